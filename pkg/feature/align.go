package feature

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var ErrSchemaMismatch = errors.New("schema mismatch")

// DriftPolicy controls what happens when a categorical value encodes to a
// column the model was never trained on.
type DriftPolicy string

const (
	DriftIgnore DriftPolicy = "ignore"
	DriftWarn   DriftPolicy = "warn"
	DriftFail   DriftPolicy = "fail"

	DriftPolicyDefault = DriftWarn
)

// DriftPolicies lists the valid policies.
var DriftPolicies = []DriftPolicy{DriftIgnore, DriftWarn, DriftFail}

// ParseDriftPolicy returns the policy for s, or an error when unknown.
// An empty string yields the default.
func ParseDriftPolicy(s string) (DriftPolicy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DriftPolicyDefault, nil
	}
	for _, p := range DriftPolicies {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown drift policy %q", s)
}

// SchemaMismatchError lists the one-hot columns not found in the expected columns.
type SchemaMismatchError struct {
	Columns []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s: columns not in model schema: %s",
		ErrSchemaMismatch, strings.Join(e.Columns, ", "))
}

func (e *SchemaMismatchError) Unwrap() error {
	return ErrSchemaMismatch
}

// Aligner maps records onto a fixed column layout. It holds no mutable state
// and is safe for concurrent use.
type Aligner struct {
	columns Columns
	index   map[string]int
	policy  DriftPolicy
}

// NewAligner creates an Aligner for the given columns.
func NewAligner(columns Columns, policy DriftPolicy) (*Aligner, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: empty list", ErrInvalidColumns)
	}
	if policy == "" {
		policy = DriftPolicyDefault
	}
	if _, err := ParseDriftPolicy(string(policy)); err != nil {
		return nil, err
	}
	return &Aligner{
		columns: columns,
		index:   columns.Index(),
		policy:  policy,
	}, nil
}

func (a *Aligner) Columns() Columns {
	return a.columns
}

func (a *Aligner) Policy() DriftPolicy {
	return a.policy
}

// Alignment is the result of aligning one record.
type Alignment struct {
	Vector *Vector
	// Dropped holds one-hot columns derived from the record that the
	// expected columns do not contain.
	Dropped []string
}

// Align builds the feature vector for r. The vector always has one entry per
// expected column, in order; anything not derived from r is zero.
func (a *Aligner) Align(r *Record) (*Alignment, error) {
	if r == nil {
		return nil, errors.New("record required")
	}

	values := make([]float64, len(a.columns))

	for _, c := range r.numeric() {
		if i, ok := a.index[c.name]; ok {
			values[i] = c.value
		}
	}

	var dropped []string
	for _, fv := range r.categorical() {
		name := OneHotColumn(fv[0], fv[1])
		i, ok := a.index[name]
		if !ok {
			dropped = append(dropped, name)
			continue
		}
		values[i] = 1
	}

	if len(dropped) > 0 {
		switch a.policy {
		case DriftFail:
			return nil, &SchemaMismatchError{Columns: dropped}
		case DriftWarn:
			slog.Warn("categorical value not in model schema, zero-filled", "columns", dropped)
		}
	}

	return &Alignment{
		Vector:  &Vector{columns: a.columns, values: values},
		Dropped: dropped,
	}, nil
}

// Align aligns r against expected with the default drift policy.
func Align(r *Record, expected Columns) (*Vector, error) {
	a, err := NewAligner(expected, DriftPolicyDefault)
	if err != nil {
		return nil, err
	}
	res, err := a.Align(r)
	if err != nil {
		return nil, err
	}
	return res.Vector, nil
}
