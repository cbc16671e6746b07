package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mchmarny/rentprice/pkg/config"
	"github.com/mchmarny/rentprice/pkg/data"
	"github.com/mchmarny/rentprice/pkg/estimator"
	"github.com/mchmarny/rentprice/pkg/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

const (
	testModelPath   = "testdata/model.yaml"
	testLinearPath  = "testdata/linear.json"
	testColumnsPath = "testdata/columns.yaml"
	testRentalsPath = "testdata/rentals.csv"
)

func TestMain(m *testing.M) {
	initLogging(false)
	os.Exit(m.Run())
}

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() {
		stdout = prev
		outputFormat = formatJSON
	})
	return &buf
}

func testConfig(t *testing.T, modelPath string) *appConfig {
	t.Helper()
	dir := t.TempDir()
	cfg := &appConfig{
		Config: config.Default(dir),
		Drift:  feature.DriftWarn,
	}
	cfg.ModelPath = modelPath
	cfg.ColumnsPath = testColumnsPath
	t.Cleanup(cfg.Close)
	return cfg
}

func TestApp_Predict(t *testing.T) {
	out := captureStdout(t)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("drift: fail\n"), 0600))

	err := newApp().Run(context.Background(), []string{
		appName,
		"--config", cfgPath,
		"--model", testModelPath,
		"--columns", testColumnsPath,
		"predict",
		"--rent", "3300",
		"--city", "São Paulo",
	})
	require.NoError(t, err)

	var res PredictResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.InDelta(t, 3950.0, res.Total, 1e-9)
	assert.Equal(t, "R$ 3950.00", res.Display)
	assert.Equal(t, 3300.0, res.Input.RentAmount)
	assert.Empty(t, res.Dropped)
}

func TestApp_ImportFileSavesToken(t *testing.T) {
	keyring.MockInit()
	out := captureStdout(t)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("drift: warn\n"), 0600))

	err := newApp().Run(context.Background(), []string{
		appName,
		"--config", cfgPath,
		"--db", filepath.Join(dir, "rentals.db"),
		"import",
		"--file", testRentalsPath,
		"--token", "abc123",
		"--save-token",
	})
	require.NoError(t, err)

	var res data.ImportResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, 5, res.Imported)

	s := &tokenStore{dir: dir}
	token, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
	require.NoError(t, s.Delete())
}

func TestPredict(t *testing.T) {
	cfg := testConfig(t, testModelPath)
	est, err := cfg.Estimator(context.Background())
	require.NoError(t, err)

	res, err := predict(est, estimator.DefaultRequest())
	require.NoError(t, err)
	assert.InDelta(t, 1650.0, res.Total, 1e-9)
	assert.Equal(t, "R$ 1650.00", res.Display)

	req := estimator.DefaultRequest()
	req.Area = 0
	req.City = "Curitiba"
	_, err = predict(est, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, estimator.ErrInvalidRequest)
}

func TestEstimator_MissingArtifacts(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := cfg.Estimator(context.Background())
	assert.Error(t, err)
}

func TestImportances(t *testing.T) {
	cfg := testConfig(t, testModelPath)
	est, err := cfg.Estimator(context.Background())
	require.NoError(t, err)

	res := importances(est)
	assert.True(t, res.Available)
	require.NotEmpty(t, res.Importances)
	assert.Equal(t, feature.ColRentAmount, res.Importances[0].Column)

	cfg = testConfig(t, testLinearPath)
	est, err = cfg.Estimator(context.Background())
	require.NoError(t, err)

	res = importances(est)
	assert.False(t, res.Available)
	assert.Equal(t, noImportanceMessage, res.Message)
	assert.Empty(t, res.Importances)
}

func TestImportFile(t *testing.T) {
	cfg := testConfig(t, testModelPath)
	db, err := cfg.DB()
	require.NoError(t, err)

	// reuses the open handle
	db2, err := cfg.DB()
	require.NoError(t, err)
	assert.Same(t, db, db2)

	res, err := importFile(db, testRentalsPath, false)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Imported)

	_, err = importFile(db, filepath.Join(t.TempDir(), "missing.csv"), false)
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	out := captureStdout(t)

	require.NoError(t, encode(map[string]int{"rooms": 2}))
	assert.JSONEq(t, `{"rooms": 2}`, out.String())

	out.Reset()
	outputFormat = formatYAML
	require.NoError(t, encode(map[string]int{"rooms": 2}))
	assert.Equal(t, "rooms: 2\n", out.String())
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 5618.00", FormatBRL(5618))
	assert.Equal(t, "R$ 0.50", FormatBRL(0.5))
}
