package model

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/mchmarny/rentprice/pkg/feature"
	"gopkg.in/yaml.v3"
)

const (
	KindGradientBoosting Kind = "gradient_boosting"
	KindRandomForest     Kind = "random_forest"
	KindLinear           Kind = "linear"

	leafIndex = -1
)

var (
	ErrInvalidModel  = errors.New("invalid model")
	ErrShapeMismatch = errors.New("feature vector shape mismatch")
)

// Kind is the regression model family.
type Kind string

// Scorer turns an aligned feature vector into a prediction.
type Scorer interface {
	Predict(v *feature.Vector) (float64, error)
}

// Node is one node of a regression tree. Node 0 is the root and a Left of -1
// marks a leaf.
type Node struct {
	Feature   int     `json:"feature" yaml:"feature"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
	Left      int     `json:"left" yaml:"left"`
	Right     int     `json:"right" yaml:"right"`
	Value     float64 `json:"value" yaml:"value"`
}

type Tree struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
}

// Model is a serialized regression model.
type Model struct {
	Kind               Kind      `json:"kind" yaml:"kind"`
	Columns            []string  `json:"columns,omitempty" yaml:"columns,omitempty"`
	Intercept          float64   `json:"intercept" yaml:"intercept"`
	LearningRate       float64   `json:"learning_rate,omitempty" yaml:"learning_rate,omitempty"`
	Coefficients       []float64 `json:"coefficients,omitempty" yaml:"coefficients,omitempty"`
	Trees              []Tree    `json:"trees,omitempty" yaml:"trees,omitempty"`
	FeatureImportances []float64 `json:"feature_importances,omitempty" yaml:"feature_importances,omitempty"`

	width int
}

// Importance is the weight of one column in the model.
type Importance struct {
	Column     string  `json:"column" yaml:"column"`
	Importance float64 `json:"importance" yaml:"importance"`
}

// Load reads a YAML or JSON model file.
func Load(path string) (*Model, error) {
	if path == "" {
		return nil, errors.New("model file path required")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading model file %s: %w", path, err)
	}

	var m Model
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("error parsing model file %s: %w", path, err)
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("model file %s: %w", path, err)
	}

	return &m, nil
}

func (m *Model) validate() error {
	switch m.Kind {
	case KindLinear:
		if len(m.Coefficients) == 0 {
			return fmt.Errorf("%w: linear model without coefficients", ErrInvalidModel)
		}
	case KindGradientBoosting, KindRandomForest:
		if len(m.Trees) == 0 {
			return fmt.Errorf("%w: %s model without trees", ErrInvalidModel, m.Kind)
		}
		for i, t := range m.Trees {
			if err := t.validate(); err != nil {
				return fmt.Errorf("%w: tree %d: %w", ErrInvalidModel, i, err)
			}
		}
		if m.Kind == KindGradientBoosting && m.LearningRate <= 0 {
			return fmt.Errorf("%w: gradient boosting learning rate must be positive, got %g",
				ErrInvalidModel, m.LearningRate)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidModel, m.Kind)
	}

	if len(m.Columns) > 0 && len(m.Coefficients) > 0 && len(m.Columns) != len(m.Coefficients) {
		return fmt.Errorf("%w: %d columns but %d coefficients",
			ErrInvalidModel, len(m.Columns), len(m.Coefficients))
	}
	if len(m.Columns) > 0 && len(m.FeatureImportances) > 0 && len(m.Columns) != len(m.FeatureImportances) {
		return fmt.Errorf("%w: %d columns but %d importances",
			ErrInvalidModel, len(m.Columns), len(m.FeatureImportances))
	}

	return nil
}

func (t *Tree) validate() error {
	if len(t.Nodes) == 0 {
		return errors.New("no nodes")
	}
	for i, n := range t.Nodes {
		if n.Left == leafIndex {
			continue
		}
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has child out of range", i)
		}
		if n.Feature < 0 {
			return fmt.Errorf("node %d has negative feature index", i)
		}
	}
	return nil
}

// maxFeature returns the largest feature index any tree splits on.
func (m *Model) maxFeature() int {
	top := -1
	for _, t := range m.Trees {
		for _, n := range t.Nodes {
			if n.Left != leafIndex && n.Feature > top {
				top = n.Feature
			}
		}
	}
	return top
}

// Bind checks the model against the expected columns and fixes its input width.
func (m *Model) Bind(columns feature.Columns) error {
	if len(m.Columns) > 0 {
		if len(m.Columns) != len(columns) {
			return fmt.Errorf("%w: model has %d columns, expected %d",
				ErrShapeMismatch, len(m.Columns), len(columns))
		}
		for i, c := range columns {
			if feature.NormalizeLabel(m.Columns[i]) != c {
				return fmt.Errorf("%w: column %d is %q in model, %q expected",
					ErrShapeMismatch, i, m.Columns[i], c)
			}
		}
	}

	if m.Kind == KindLinear && len(m.Coefficients) != len(columns) {
		return fmt.Errorf("%w: %d coefficients for %d columns",
			ErrShapeMismatch, len(m.Coefficients), len(columns))
	}

	if mf := m.maxFeature(); mf >= len(columns) {
		return fmt.Errorf("%w: tree splits on feature %d of %d",
			ErrShapeMismatch, mf, len(columns))
	}

	if len(m.FeatureImportances) > 0 && len(m.FeatureImportances) != len(columns) {
		return fmt.Errorf("%w: %d importances for %d columns",
			ErrShapeMismatch, len(m.FeatureImportances), len(columns))
	}

	m.Columns = columns
	m.width = len(columns)
	return nil
}

// Predict scores an aligned feature vector.
func (m *Model) Predict(v *feature.Vector) (float64, error) {
	if v == nil {
		return 0, errors.New("feature vector required")
	}
	if m.width > 0 && v.Len() != m.width {
		return 0, fmt.Errorf("%w: got %d features, model expects %d",
			ErrShapeMismatch, v.Len(), m.width)
	}

	x := v.Values()

	switch m.Kind {
	case KindLinear:
		if len(x) != len(m.Coefficients) {
			return 0, fmt.Errorf("%w: got %d features, model has %d coefficients",
				ErrShapeMismatch, len(x), len(m.Coefficients))
		}
		sum := m.Intercept
		for i, c := range m.Coefficients {
			sum += c * x[i]
		}
		return sum, nil
	case KindGradientBoosting:
		sum := 0.0
		for i := range m.Trees {
			p, err := m.Trees[i].predict(x)
			if err != nil {
				return 0, err
			}
			sum += p
		}
		return m.Intercept + m.LearningRate*sum, nil
	case KindRandomForest:
		sum := 0.0
		for i := range m.Trees {
			p, err := m.Trees[i].predict(x)
			if err != nil {
				return 0, err
			}
			sum += p
		}
		return sum / float64(len(m.Trees)), nil
	default:
		return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidModel, m.Kind)
	}
}

func (t *Tree) predict(x []float64) (float64, error) {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left == leafIndex {
			return n.Value, nil
		}
		if n.Feature >= len(x) {
			return 0, fmt.Errorf("%w: split on feature %d of %d", ErrShapeMismatch, n.Feature, len(x))
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Importances returns the feature importances sorted in descending order.
// The second value is false when the model does not provide them.
func (m *Model) Importances() ([]Importance, bool) {
	if len(m.FeatureImportances) == 0 || len(m.FeatureImportances) != len(m.Columns) {
		return nil, false
	}

	list := make([]Importance, len(m.FeatureImportances))
	for i, v := range m.FeatureImportances {
		list[i] = Importance{Column: m.Columns[i], Importance: v}
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Importance > list[j].Importance
	})

	return list, true
}
