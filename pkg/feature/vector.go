package feature

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Vector is an ordered set of feature values. Its column sequence always
// matches the Columns it was aligned against.
type Vector struct {
	columns Columns
	values  []float64
}

func (v *Vector) Len() int {
	return len(v.values)
}

func (v *Vector) Columns() Columns {
	return v.columns
}

// Values returns a copy of the values in column order.
func (v *Vector) Values() []float64 {
	out := make([]float64, len(v.values))
	copy(out, v.values)
	return out
}

// At returns the value at position i.
func (v *Vector) At(i int) float64 {
	return v.values[i]
}

// Get returns the value of the named column.
func (v *Vector) Get(name string) (float64, bool) {
	for i, n := range v.columns {
		if n == name {
			return v.values[i], true
		}
	}
	return 0, false
}

// Map returns the vector as a column to value map.
func (v *Vector) Map() map[string]float64 {
	m := make(map[string]float64, len(v.values))
	for i, n := range v.columns {
		m[n] = v.values[i]
	}
	return m
}

func (v *Vector) String() string {
	var sb strings.Builder
	for i, n := range v.columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%g", n, v.values[i])
	}
	return sb.String()
}

type vectorEntry struct {
	Column string  `json:"column" yaml:"column"`
	Value  float64 `json:"value" yaml:"value"`
}

func (v *Vector) entries() []vectorEntry {
	list := make([]vectorEntry, len(v.values))
	for i, n := range v.columns {
		list[i] = vectorEntry{Column: n, Value: v.values[i]}
	}
	return list
}

// MarshalJSON keeps column order, which a JSON object would not.
func (v *Vector) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.entries())
}

func (v *Vector) MarshalYAML() (any, error) {
	return v.entries(), nil
}

func (v *Vector) UnmarshalJSON(b []byte) error {
	var list []vectorEntry
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	v.columns = make(Columns, len(list))
	v.values = make([]float64, len(list))
	for i, e := range list {
		v.columns[i] = e.Column
		v.values[i] = e.Value
	}
	return nil
}
