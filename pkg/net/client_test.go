package net

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPClient(t *testing.T) {
	client := GetHTTPClient()
	assert.NotNil(t, client)
	assert.NotZero(t, client.Timeout)
}

func TestGetClient(t *testing.T) {
	ctx := context.Background()
	assert.NotNil(t, GetClient(ctx, ""))
	assert.NotNil(t, GetClient(ctx, "test-token"))
}

func TestPrintHTTPResponse_Nil(t *testing.T) {
	// should not panic
	PrintHTTPResponse(nil)
}

func TestPrintHTTPResponse_WithResponse(t *testing.T) {
	resp := &http.Response{
		StatusCode: 200,
		Header:     http.Header{},
		Body:       http.NoBody,
	}
	// should not panic
	PrintHTTPResponse(resp)
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/houses.csv":
			w.Write([]byte("city,total (R$)\nCampinas,1000\n")) //nolint:errcheck
		case "/private.csv":
			if r.Header.Get("Authorization") != "Bearer secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte("ok")) //nolint:errcheck
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	dir := t.TempDir()

	p := filepath.Join(dir, "houses.csv")
	require.NoError(t, Download(ctx, nil, srv.URL+"/houses.csv", p))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), "Campinas")

	err = Download(ctx, GetHTTPClient(), srv.URL+"/missing.csv", filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, ErrorURLNotFound)

	err = Download(ctx, GetHTTPClient(), srv.URL+"/private.csv", filepath.Join(dir, "private.csv"))
	assert.Error(t, err)

	require.NoError(t, Download(ctx, GetOAuthClient(ctx, "secret"), srv.URL+"/private.csv", filepath.Join(dir, "private.csv")))
}
