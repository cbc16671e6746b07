package feature

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	// Placeholder is the missing-value marker used in the source dataset.
	Placeholder = "-"

	ColArea          = "area"
	ColRooms         = "rooms"
	ColBathroom      = "bathroom"
	ColParkingSpaces = "parking spaces"
	ColFloor         = "floor"
	ColHOA           = "hoa (R$)"
	ColRentAmount    = "rent amount (R$)"
	ColPropertyTax   = "property tax (R$)"
	ColFireInsurance = "fire insurance (R$)"

	FieldCity      = "city"
	FieldAnimal    = "animal"
	FieldFurniture = "furniture"

	oneHotSeparator = "_"
)

// City is the city a property is located in.
type City string

const (
	CitySaoPaulo      City = "São Paulo"
	CityPortoAlegre   City = "Porto Alegre"
	CityRioDeJaneiro  City = "Rio de Janeiro"
	CityCampinas      City = "Campinas"
	CityBeloHorizonte City = "Belo Horizonte"
)

// Animal says whether pets are allowed.
type Animal string

const (
	AnimalAccepted    Animal = "aceptan mascotas"
	AnimalNotAccepted Animal = "no aceptan mascotas"
)

// Furniture says whether the property is furnished.
type Furniture string

const (
	Furnished    Furniture = "amueblado"
	NotFurnished Furniture = "no amueblado"
)

var (
	// Cities lists the cities the model knows about, in form order.
	Cities = []City{CitySaoPaulo, CityPortoAlegre, CityRioDeJaneiro, CityCampinas, CityBeloHorizonte}

	// Animals lists the pet policy labels.
	Animals = []Animal{AnimalAccepted, AnimalNotAccepted}

	// Furnitures lists the furnishing labels.
	Furnitures = []Furniture{Furnished, NotFurnished}

	// NumericColumns lists the numeric model columns in record order.
	NumericColumns = []string{
		ColArea, ColRooms, ColBathroom, ColParkingSpaces, ColFloor,
		ColHOA, ColRentAmount, ColPropertyTax, ColFireInsurance,
	}
)

// Record is a single property submitted for prediction.
type Record struct {
	Area          float64   `json:"area" yaml:"area"`
	Rooms         float64   `json:"rooms" yaml:"rooms"`
	Bathroom      float64   `json:"bathroom" yaml:"bathroom"`
	ParkingSpaces float64   `json:"parking_spaces" yaml:"parking_spaces"`
	Floor         float64   `json:"floor" yaml:"floor"`
	HOA           float64   `json:"hoa" yaml:"hoa"`
	RentAmount    float64   `json:"rent_amount" yaml:"rent_amount"`
	PropertyTax   float64   `json:"property_tax" yaml:"property_tax"`
	FireInsurance float64   `json:"fire_insurance" yaml:"fire_insurance"`
	City          City      `json:"city" yaml:"city"`
	Animal        Animal    `json:"animal" yaml:"animal"`
	Furniture     Furniture `json:"furniture" yaml:"furniture"`
}

type column struct {
	name  string
	value float64
}

// numeric returns the numeric fields keyed by their model column names.
func (r *Record) numeric() []column {
	return []column{
		{ColArea, r.Area},
		{ColRooms, r.Rooms},
		{ColBathroom, r.Bathroom},
		{ColParkingSpaces, r.ParkingSpaces},
		{ColFloor, r.Floor},
		{ColHOA, r.HOA},
		{ColRentAmount, r.RentAmount},
		{ColPropertyTax, r.PropertyTax},
		{ColFireInsurance, r.FireInsurance},
	}
}

// categorical returns the (field, value) pairs to be one-hot encoded.
func (r *Record) categorical() [][2]string {
	return [][2]string{
		{FieldCity, string(r.City)},
		{FieldAnimal, string(r.Animal)},
		{FieldFurniture, string(r.Furniture)},
	}
}

// OneHotColumn returns the indicator column name for a categorical value.
// A placeholder value encodes as zero, the way the training data did.
func OneHotColumn(field, value string) string {
	v := NormalizeLabel(value)
	if v == Placeholder {
		v = "0"
	}
	return field + oneHotSeparator + v
}

// NormalizeLabel trims and NFC-normalizes a categorical label.
func NormalizeLabel(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// ParseNumber parses a numeric text field, reading the placeholder as zero.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == Placeholder {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return v, nil
}

// IsKnownCity reports whether c is in the closed city vocabulary.
func IsKnownCity(c City) bool {
	return slices.Contains(Cities, City(NormalizeLabel(string(c))))
}

// ParseCity normalizes a city label.
func ParseCity(s string) City {
	return City(NormalizeLabel(s))
}

// ParseAnimal normalizes a pet policy label.
func ParseAnimal(s string) Animal {
	return Animal(NormalizeLabel(s))
}

// ParseFurniture normalizes a furnishing label.
func ParseFurniture(s string) Furniture {
	return Furniture(NormalizeLabel(s))
}

// ParseRecord builds a Record from raw text fields keyed by model column
// name (numeric) or field name (categorical), as found in the rental
// dataset. Missing keys read as zero; placeholders read as zero.
func ParseRecord(fields map[string]string) (*Record, error) {
	r := &Record{
		City:      ParseCity(fields[FieldCity]),
		Animal:    ParseAnimal(fields[FieldAnimal]),
		Furniture: ParseFurniture(fields[FieldFurniture]),
	}

	targets := []struct {
		name string
		dst  *float64
	}{
		{ColArea, &r.Area},
		{ColRooms, &r.Rooms},
		{ColBathroom, &r.Bathroom},
		{ColParkingSpaces, &r.ParkingSpaces},
		{ColFloor, &r.Floor},
		{ColHOA, &r.HOA},
		{ColRentAmount, &r.RentAmount},
		{ColPropertyTax, &r.PropertyTax},
		{ColFireInsurance, &r.FireInsurance},
	}

	for _, t := range targets {
		v, err := ParseNumber(fields[t.name])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", t.name, err)
		}
		*t.dst = v
	}

	return r, nil
}

// IsKnownAnimal reports whether a is a known pet policy label.
func IsKnownAnimal(a Animal) bool {
	return slices.Contains(Animals, Animal(NormalizeLabel(string(a))))
}

// IsKnownFurniture reports whether f is a known furnishing label.
func IsKnownFurniture(f Furniture) bool {
	return slices.Contains(Furnitures, Furniture(NormalizeLabel(string(f))))
}
