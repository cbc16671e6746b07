package cli

import (
	"strings"
	"testing"

	"github.com/mchmarny/rentprice/pkg/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirm(t *testing.T) {
	captureStdout(t)
	prev := stdin
	t.Cleanup(func() { stdin = prev })

	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{" Y \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		stdin = strings.NewReader(tt.input)
		got, err := confirm("delete?")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestResetDB(t *testing.T) {
	cfg := testConfig(t, testModelPath)
	db, err := cfg.DB()
	require.NoError(t, err)

	_, err = importFile(db, testRentalsPath, false)
	require.NoError(t, err)

	require.NoError(t, resetDB(cfg))

	db, err = cfg.DB()
	require.NoError(t, err)
	n, err := data.CountRentals(db)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
