package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mchmarny/rentprice/pkg/estimator"
	"github.com/mchmarny/rentprice/pkg/feature"
	"github.com/mchmarny/rentprice/pkg/model"
	"github.com/urfave/cli/v3"
)

var (
	defaults = estimator.DefaultRequest()

	areaFlag = &cli.FloatFlag{
		Name:  "area",
		Usage: "Area in square meters (10-1000)",
		Value: defaults.Area,
	}

	roomsFlag = &cli.FloatFlag{
		Name:  "rooms",
		Usage: "Number of rooms (1-10)",
		Value: defaults.Rooms,
	}

	bathroomFlag = &cli.FloatFlag{
		Name:  "bathroom",
		Usage: "Number of bathrooms (1-10)",
		Value: defaults.Bathroom,
	}

	parkingFlag = &cli.FloatFlag{
		Name:  "parking",
		Usage: "Number of parking spaces (0-10)",
		Value: defaults.ParkingSpaces,
	}

	floorFlag = &cli.FloatFlag{
		Name:  "floor",
		Usage: "Floor (0-50)",
		Value: defaults.Floor,
	}

	hoaFlag = &cli.FloatFlag{
		Name:  "hoa",
		Usage: "Monthly HOA fee (R$)",
		Value: defaults.HOA,
	}

	rentFlag = &cli.FloatFlag{
		Name:  "rent",
		Usage: "Monthly rent amount (R$)",
		Value: defaults.RentAmount,
	}

	taxFlag = &cli.FloatFlag{
		Name:  "tax",
		Usage: "Monthly property tax (R$)",
		Value: defaults.PropertyTax,
	}

	insuranceFlag = &cli.FloatFlag{
		Name:  "insurance",
		Usage: "Monthly fire insurance (R$)",
		Value: defaults.FireInsurance,
	}

	cityFlag = &cli.StringFlag{
		Name:  "city",
		Usage: fmt.Sprintf("City [%s]", strings.Join(estimator.Options().Cities, ", ")),
		Value: defaults.City,
	}

	animalFlag = &cli.StringFlag{
		Name:  "animal",
		Usage: fmt.Sprintf("Pet policy [%s]", strings.Join(estimator.Options().Animals, ", ")),
		Value: defaults.Animal,
	}

	furnitureFlag = &cli.StringFlag{
		Name:  "furniture",
		Usage: fmt.Sprintf("Furnishing [%s]", strings.Join(estimator.Options().Furnitures, ", ")),
		Value: defaults.Furniture,
	}

	predictCmd = &cli.Command{
		Name:    "predict",
		Aliases: []string{"p"},
		Usage:   "Predict the total monthly rent of a property",
		UsageText: `rentprice predict --area 70 --rooms 2 --rent 3300 --hoa 2065 --city "São Paulo"
   rentprice predict --city Campinas --furniture "no amueblado" --format yaml`,
		Action: cmdPredict,
		Flags: []cli.Flag{
			areaFlag,
			roomsFlag,
			bathroomFlag,
			parkingFlag,
			floorFlag,
			hoaFlag,
			rentFlag,
			taxFlag,
			insuranceFlag,
			cityFlag,
			animalFlag,
			furnitureFlag,
		},
	}

	importanceCmd = &cli.Command{
		Name:    "importance",
		Aliases: []string{"imp"},
		Usage:   "List the model's feature importances",
		Action:  cmdImportance,
	}
)

// PredictResult is the predict command output.
type PredictResult struct {
	Input    *estimator.Request `json:"input" yaml:"input"`
	Total    float64            `json:"total" yaml:"total"`
	Display  string             `json:"display" yaml:"display"`
	Features *feature.Vector    `json:"features,omitempty" yaml:"features,omitempty"`
	Dropped  []string           `json:"dropped,omitempty" yaml:"dropped,omitempty"`
}

// FormatBRL renders an amount the way the result is shown to users.
func FormatBRL(v float64) string {
	return fmt.Sprintf("R$ %.2f", v)
}

func requestFromFlags(cmd *cli.Command) *estimator.Request {
	return &estimator.Request{
		Area:          cmd.Float(areaFlag.Name),
		Rooms:         cmd.Float(roomsFlag.Name),
		Bathroom:      cmd.Float(bathroomFlag.Name),
		ParkingSpaces: cmd.Float(parkingFlag.Name),
		Floor:         cmd.Float(floorFlag.Name),
		HOA:           cmd.Float(hoaFlag.Name),
		RentAmount:    cmd.Float(rentFlag.Name),
		PropertyTax:   cmd.Float(taxFlag.Name),
		FireInsurance: cmd.Float(insuranceFlag.Name),
		City:          cmd.String(cityFlag.Name),
		Animal:        cmd.String(animalFlag.Name),
		Furniture:     cmd.String(furnitureFlag.Name),
	}
}

func cmdPredict(ctx context.Context, cmd *cli.Command) error {
	req := requestFromFlags(cmd)

	// Validation does not need the model, report input problems first.
	if msgs := estimator.Validate(req); len(msgs) > 0 {
		for _, m := range msgs {
			slog.Error(m)
		}
		return fmt.Errorf("%w: %d field(s) failed validation", estimator.ErrInvalidRequest, len(msgs))
	}

	est, err := getConfig(cmd).Estimator(ctx)
	if err != nil {
		return err
	}

	res, err := predict(est, req)
	if err != nil {
		return err
	}

	return encode(res)
}

func predict(est *estimator.Estimator, req *estimator.Request) (*PredictResult, error) {
	e, err := est.Estimate(req)
	if err != nil {
		if errors.Is(err, estimator.ErrEstimate) {
			return nil, fmt.Errorf("%w; verify the input and try again", err)
		}
		return nil, err
	}

	return &PredictResult{
		Input:    req,
		Total:    e.Total,
		Display:  FormatBRL(e.Total),
		Features: e.Features,
		Dropped:  e.Dropped,
	}, nil
}

// ImportanceResult is the importance command output.
type ImportanceResult struct {
	Available   bool               `json:"available" yaml:"available"`
	Message     string             `json:"message,omitempty" yaml:"message,omitempty"`
	Importances []model.Importance `json:"importances,omitempty" yaml:"importances,omitempty"`
}

const noImportanceMessage = "the model does not provide feature importances"

func cmdImportance(ctx context.Context, cmd *cli.Command) error {
	est, err := getConfig(cmd).Estimator(ctx)
	if err != nil {
		return err
	}
	return encode(importances(est))
}

func importances(est *estimator.Estimator) *ImportanceResult {
	list, ok := est.Importances()
	if !ok {
		return &ImportanceResult{Message: noImportanceMessage}
	}
	return &ImportanceResult{Available: true, Importances: list}
}
