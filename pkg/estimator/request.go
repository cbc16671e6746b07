package estimator

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mchmarny/rentprice/pkg/feature"
)

// Request is the user-entered property description.
type Request struct {
	Area          float64 `json:"area" yaml:"area" validate:"gt=0,gte=10,lte=1000"`
	Rooms         float64 `json:"rooms" yaml:"rooms" validate:"gt=0,lte=10"`
	Bathroom      float64 `json:"bathroom" yaml:"bathroom" validate:"gt=0,lte=10"`
	ParkingSpaces float64 `json:"parking_spaces" yaml:"parking_spaces" validate:"gte=0,lte=10"`
	Floor         float64 `json:"floor" yaml:"floor" validate:"gte=0,lte=50"`
	HOA           float64 `json:"hoa" yaml:"hoa" validate:"gte=0"`
	RentAmount    float64 `json:"rent_amount" yaml:"rent_amount" validate:"gt=0"`
	PropertyTax   float64 `json:"property_tax" yaml:"property_tax" validate:"gte=0"`
	FireInsurance float64 `json:"fire_insurance" yaml:"fire_insurance" validate:"gte=0"`
	City          string  `json:"city" yaml:"city" validate:"required,city"`
	Animal        string  `json:"animal" yaml:"animal" validate:"required,animal"`
	Furniture     string  `json:"furniture" yaml:"furniture" validate:"required,furniture"`
}

// DefaultRequest returns the values the form starts with.
func DefaultRequest() *Request {
	return &Request{
		Area:          50,
		Rooms:         2,
		Bathroom:      1,
		ParkingSpaces: 1,
		Floor:         1,
		RentAmount:    1000,
		City:          string(feature.CitySaoPaulo),
		Animal:        string(feature.AnimalAccepted),
		Furniture:     string(feature.Furnished),
	}
}

// Record converts the request into the aligner's input.
func (r *Request) Record() *feature.Record {
	return &feature.Record{
		Area:          r.Area,
		Rooms:         r.Rooms,
		Bathroom:      r.Bathroom,
		ParkingSpaces: r.ParkingSpaces,
		Floor:         r.Floor,
		HOA:           r.HOA,
		RentAmount:    r.RentAmount,
		PropertyTax:   r.PropertyTax,
		FireInsurance: r.FireInsurance,
		City:          feature.ParseCity(r.City),
		Animal:        feature.ParseAnimal(r.Animal),
		Furniture:     feature.ParseFurniture(r.Furniture),
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	mustRegister(v, "city", func(fl validator.FieldLevel) bool {
		return feature.IsKnownCity(feature.City(fl.Field().String()))
	})
	mustRegister(v, "animal", func(fl validator.FieldLevel) bool {
		return feature.IsKnownAnimal(feature.Animal(fl.Field().String()))
	})
	mustRegister(v, "furniture", func(fl validator.FieldLevel) bool {
		return feature.IsKnownFurniture(feature.Furniture(fl.Field().String()))
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("registering %s validation: %v", tag, err))
	}
}

var fieldLabels = map[string]string{
	"Area":          "area",
	"Rooms":         "number of rooms",
	"Bathroom":      "number of bathrooms",
	"ParkingSpaces": "number of parking spaces",
	"Floor":         "floor",
	"HOA":           "HOA fee",
	"RentAmount":    "rent amount",
	"PropertyTax":   "property tax",
	"FireInsurance": "fire insurance",
	"City":          "city",
	"Animal":        "pet policy",
	"Furniture":     "furnishing",
}

// Validate checks the request and returns one message per invalid field.
// An empty result means the request can be estimated.
func Validate(r *Request) []string {
	if r == nil {
		return []string{"request is required"}
	}

	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return msgs
}

func fieldMessage(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.StructField()]
	if !ok {
		label = fe.Field()
	}

	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("%s must be greater than zero", label)
	case "gte":
		if fe.Param() != "0" {
			return fmt.Sprintf("%s must be at least %s", label, fe.Param())
		}
		return fmt.Sprintf("%s must not be negative", label)
	case "lte":
		return fmt.Sprintf("%s must be at most %s", label, fe.Param())
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "city", "animal", "furniture":
		return fmt.Sprintf("%s %q is not a supported option", label, fe.Value())
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}
