package estimator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mchmarny/rentprice/pkg/feature"
	"github.com/mchmarny/rentprice/pkg/model"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrEstimate wraps any alignment or scoring failure of a request.
	ErrEstimate = errors.New("error predicting rent")

	// ErrInvalidRequest is returned when the request fails validation.
	ErrInvalidRequest = errors.New("invalid request")
)

// ValidationError carries the individual validation messages.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidRequest, strings.Join(e.Messages, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

// Importancer is implemented by scorers that expose feature importances.
type Importancer interface {
	Importances() ([]model.Importance, bool)
}

// Estimator holds the loaded artifacts. It is built once at startup and
// shared read-only by every request.
type Estimator struct {
	aligner *feature.Aligner
	scorer  model.Scorer
}

// Estimate is the outcome of one prediction.
type Estimate struct {
	Total    float64         `json:"total" yaml:"total"`
	Features *feature.Vector `json:"features" yaml:"features"`
	Dropped  []string        `json:"dropped,omitempty" yaml:"dropped,omitempty"`
}

// New creates an Estimator from already loaded artifacts.
func New(aligner *feature.Aligner, scorer model.Scorer) (*Estimator, error) {
	if aligner == nil {
		return nil, errors.New("aligner required")
	}
	if scorer == nil {
		return nil, errors.New("scorer required")
	}
	return &Estimator{aligner: aligner, scorer: scorer}, nil
}

// Load reads the model and columns files concurrently and binds them.
func Load(ctx context.Context, modelPath, columnsPath string, policy feature.DriftPolicy) (*Estimator, error) {
	var (
		m    *model.Model
		cols feature.Columns
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		m, err = model.Load(modelPath)
		return err
	})
	g.Go(func() error {
		var err error
		cols, err = feature.LoadColumns(columnsPath)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("error loading model artifacts: %w", err)
	}

	if err := m.Bind(cols); err != nil {
		return nil, fmt.Errorf("model does not match columns: %w", err)
	}

	a, err := feature.NewAligner(cols, policy)
	if err != nil {
		return nil, fmt.Errorf("error creating aligner: %w", err)
	}

	slog.Debug("model loaded",
		"kind", m.Kind,
		"columns", len(cols),
		"trees", len(m.Trees),
		"drift", a.Policy(),
	)

	return New(a, m)
}

// Estimate validates the request, aligns it and scores it.
func (e *Estimator) Estimate(r *Request) (*Estimate, error) {
	if msgs := Validate(r); len(msgs) > 0 {
		return nil, &ValidationError{Messages: msgs}
	}

	res, err := e.aligner.Align(r.Record())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEstimate, err)
	}

	total, err := e.scorer.Predict(res.Vector)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEstimate, err)
	}

	slog.Debug("estimate", "total", total, "dropped", res.Dropped)

	return &Estimate{
		Total:    total,
		Features: res.Vector,
		Dropped:  res.Dropped,
	}, nil
}

// Importances returns the scorer's feature importances, if it has any.
func (e *Estimator) Importances() ([]model.Importance, bool) {
	if im, ok := e.scorer.(Importancer); ok {
		return im.Importances()
	}
	return nil, false
}

func (e *Estimator) Columns() feature.Columns {
	return e.aligner.Columns()
}

// Choices lists the categorical values a form can offer.
type Choices struct {
	Cities     []string `json:"cities" yaml:"cities"`
	Animals    []string `json:"animals" yaml:"animals"`
	Furnitures []string `json:"furnitures" yaml:"furnitures"`
	Defaults   *Request `json:"defaults" yaml:"defaults"`
}

// Options returns the closed categorical vocabularies and form defaults.
func Options() *Choices {
	c := &Choices{
		Cities:     make([]string, 0, len(feature.Cities)),
		Animals:    make([]string, 0, len(feature.Animals)),
		Furnitures: make([]string, 0, len(feature.Furnitures)),
		Defaults:   DefaultRequest(),
	}
	for _, v := range feature.Cities {
		c.Cities = append(c.Cities, string(v))
	}
	for _, v := range feature.Animals {
		c.Animals = append(c.Animals, string(v))
	}
	for _, v := range feature.Furnitures {
		c.Furnitures = append(c.Furnitures, string(v))
	}
	return c
}
