package feature

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"-", 0, false},
		{" - ", 0, false},
		{"", 0, false},
		{"42", 42, false},
		{"3.5", 3.5, false},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := ParseNumber(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestParseRecord(t *testing.T) {
	r, err := ParseRecord(map[string]string{
		FieldCity:        " Campinas ",
		ColArea:          "70",
		ColRooms:         "2",
		ColBathroom:      "1",
		ColParkingSpaces: "1",
		ColFloor:         "-",
		FieldAnimal:      "aceptan mascotas",
		FieldFurniture:   "no amueblado",
		ColHOA:           "-",
		ColRentAmount:    "1500",
		ColPropertyTax:   "20",
		ColFireInsurance: "19",
	})
	require.NoError(t, err)
	assert.Equal(t, CityCampinas, r.City)
	assert.Equal(t, 0.0, r.Floor)
	assert.Equal(t, 0.0, r.HOA)
	assert.Equal(t, 1500.0, r.RentAmount)
	assert.Equal(t, NotFurnished, r.Furniture)

	_, err = ParseRecord(map[string]string{ColArea: "big"})
	assert.Error(t, err)
}

func TestOneHotColumn(t *testing.T) {
	assert.Equal(t, "city_São Paulo", OneHotColumn(FieldCity, "São Paulo"))
	assert.Equal(t, "city_0", OneHotColumn(FieldCity, "-"))
	assert.Equal(t, "furniture_amueblado", OneHotColumn(FieldFurniture, " amueblado"))
}

func TestKnownVocabulary(t *testing.T) {
	assert.True(t, IsKnownCity(CityBeloHorizonte))
	assert.True(t, IsKnownCity("Sa\u0303o Paulo"))
	assert.False(t, IsKnownCity("Curitiba"))
	assert.True(t, IsKnownAnimal(AnimalNotAccepted))
	assert.False(t, IsKnownAnimal("acept"))
	assert.True(t, IsKnownFurniture(Furnished))
	assert.False(t, IsKnownFurniture("furnished"))
}

func TestNewColumns(t *testing.T) {
	_, err := NewColumns(nil)
	assert.ErrorIs(t, err, ErrInvalidColumns)

	_, err = NewColumns([]string{"area", " "})
	assert.ErrorIs(t, err, ErrInvalidColumns)

	_, err = NewColumns([]string{"area", "area"})
	assert.ErrorIs(t, err, ErrInvalidColumns)

	cols, err := NewColumns([]string{"area", "city_São Paulo", "city_Campinas"})
	require.NoError(t, err)
	assert.Equal(t, []string{"city_São Paulo", "city_Campinas"}, cols.WithPrefix(FieldCity))
	assert.Equal(t, 1, cols.Index()["city_São Paulo"])
}

func TestLoadColumns(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "columns.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("- area\n- rooms\n- city_Campinas\n"), 0600))
	cols, err := LoadColumns(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, Columns{"area", "rooms", "city_Campinas"}, cols)

	jsonPath := filepath.Join(dir, "columns.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`["area","hoa (R$)"]`), 0600))
	cols, err = LoadColumns(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, Columns{"area", "hoa (R$)"}, cols)

	_, err = LoadColumns("")
	assert.Error(t, err)

	_, err = LoadColumns(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestVector_MarshalJSONKeepsOrder(t *testing.T) {
	cols, err := NewColumns([]string{"rooms", "area"})
	require.NoError(t, err)

	v, err := Align(testRecord(), cols)
	require.NoError(t, err)

	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"column":"rooms","value":2},{"column":"area","value":50}]`, string(b))
	assert.Equal(t, "rooms=2, area=50", v.String())

	var back Vector
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, v.Columns(), back.Columns())
	assert.Equal(t, v.Values(), back.Values())
}
