package estimator

import (
	"context"
	"errors"
	"testing"

	"github.com/mchmarny/rentprice/pkg/feature"
	"github.com/mchmarny/rentprice/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testModelPath   = "testdata/model.yaml"
	testLinearPath  = "testdata/linear.json"
	testColumnsPath = "testdata/columns.yaml"
)

func loadTestEstimator(t *testing.T, modelPath string) *Estimator {
	t.Helper()
	e, err := Load(context.Background(), modelPath, testColumnsPath, feature.DriftWarn)
	require.NoError(t, err)
	return e
}

func TestEstimate_Default(t *testing.T) {
	e := loadTestEstimator(t, testModelPath)

	res, err := e.Estimate(DefaultRequest())
	require.NoError(t, err)
	assert.InDelta(t, 1650.0, res.Total, 1e-9)
	assert.Empty(t, res.Dropped)
	assert.Equal(t, e.Columns(), res.Features.Columns())

	v, _ := res.Features.Get("city_São Paulo")
	assert.Equal(t, 1.0, v)
	v, _ = res.Features.Get("city_Porto Alegre")
	assert.Equal(t, 0.0, v)
}

func TestEstimate_Linear(t *testing.T) {
	e := loadTestEstimator(t, testLinearPath)

	req := DefaultRequest()
	req.HOA = 300
	req.PropertyTax = 50
	req.FireInsurance = 20

	res, err := e.Estimate(req)
	require.NoError(t, err)
	assert.InDelta(t, 1370.0, res.Total, 1e-9)

	_, ok := e.Importances()
	assert.False(t, ok)
}

func TestEstimate_ValidationErrors(t *testing.T) {
	e := loadTestEstimator(t, testModelPath)

	req := DefaultRequest()
	req.Area = 0
	req.Rooms = 0
	req.Bathroom = -1
	req.RentAmount = 0

	_, err := e.Estimate(req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Messages, 4)
	assert.Contains(t, ve.Messages, "area must be greater than zero")
	assert.Contains(t, ve.Messages, "rent amount must be greater than zero")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Request)
		want   []string
	}{
		{"valid", func(r *Request) {}, nil},
		{"zero area", func(r *Request) { r.Area = 0 }, []string{"area must be greater than zero"}},
		{"small area", func(r *Request) { r.Area = 5 }, []string{"area must be at least 10"}},
		{"largest area", func(r *Request) { r.Area = 1000 }, nil},
		{"negative hoa", func(r *Request) { r.HOA = -5 }, []string{"HOA fee must not be negative"}},
		{"too many rooms", func(r *Request) { r.Rooms = 11 }, []string{"number of rooms must be at most 10"}},
		{"missing city", func(r *Request) { r.City = "" }, []string{"city is required"}},
		{"unknown city", func(r *Request) { r.City = "Curitiba" }, []string{`city "Curitiba" is not a supported option`}},
		{"decomposed city", func(r *Request) { r.City = "Sa\u0303o Paulo" }, nil},
		{"unknown furniture", func(r *Request) { r.Furniture = "furnished" }, []string{`furnishing "furnished" is not a supported option`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := DefaultRequest()
			tt.mutate(r)
			assert.Equal(t, tt.want, Validate(r))
		})
	}

	assert.NotEmpty(t, Validate(nil))
}

func driftColumns(t *testing.T) feature.Columns {
	t.Helper()
	// a model trained before Campinas listings were collected
	cols, err := feature.NewColumns([]string{
		"area", "rent amount (R$)", "city_São Paulo", "city_Porto Alegre",
	})
	require.NoError(t, err)
	return cols
}

type constScorer float64

func (c constScorer) Predict(_ *feature.Vector) (float64, error) {
	return float64(c), nil
}

type failingScorer struct{}

func (failingScorer) Predict(_ *feature.Vector) (float64, error) {
	return 0, errors.New("boom")
}

func TestEstimate_Drift(t *testing.T) {
	req := DefaultRequest()
	req.City = string(feature.CityCampinas)

	a, err := feature.NewAligner(driftColumns(t), feature.DriftWarn)
	require.NoError(t, err)
	e, err := New(a, constScorer(42))
	require.NoError(t, err)

	res, err := e.Estimate(req)
	require.NoError(t, err)
	assert.Equal(t, 42.0, res.Total)
	assert.Contains(t, res.Dropped, "city_Campinas")

	a, err = feature.NewAligner(driftColumns(t), feature.DriftFail)
	require.NoError(t, err)
	e, err = New(a, constScorer(42))
	require.NoError(t, err)

	_, err = e.Estimate(req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEstimate))
	assert.True(t, errors.Is(err, feature.ErrSchemaMismatch))
}

func TestEstimate_ScorerFailure(t *testing.T) {
	a, err := feature.NewAligner(driftColumns(t), feature.DriftIgnore)
	require.NoError(t, err)
	e, err := New(a, failingScorer{})
	require.NoError(t, err)

	_, err = e.Estimate(DefaultRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEstimate))
}

func TestImportances(t *testing.T) {
	e := loadTestEstimator(t, testModelPath)
	list, ok := e.Importances()
	require.True(t, ok)
	require.NotEmpty(t, list)
	assert.Equal(t, "rent amount (R$)", list[0].Column)

	var _ Importancer = &model.Model{}
}

func TestLoad_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Load(ctx, "testdata/missing.yaml", testColumnsPath, feature.DriftWarn)
	assert.Error(t, err)

	_, err = Load(ctx, testModelPath, "testdata/missing.yaml", feature.DriftWarn)
	assert.Error(t, err)

	_, err = Load(ctx, testModelPath, testColumnsPath, "loud")
	assert.Error(t, err)

	_, err = New(nil, constScorer(1))
	assert.Error(t, err)
}

func TestOptions(t *testing.T) {
	o := Options()
	assert.Len(t, o.Cities, len(feature.Cities))
	assert.Contains(t, o.Cities, "São Paulo")
	assert.Len(t, o.Animals, 2)
	assert.Len(t, o.Furnitures, 2)
	assert.Empty(t, Validate(o.Defaults))
}
