package net

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	maxIdleConns     = 10
	timeoutInSeconds = 60
	clientAgent      = "rentprice/1.0"
)

// GetHTTPClient returns a client for anonymous downloads.
func GetHTTPClient() *http.Client {
	return &http.Client{
		Timeout: time.Duration(timeoutInSeconds) * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:          maxIdleConns,
			IdleConnTimeout:       timeoutInSeconds * time.Second,
			ResponseHeaderTimeout: time.Duration(timeoutInSeconds) * time.Second,
		},
	}
}

// GetOAuthClient returns a client sending token as a bearer credential,
// for datasets hosted behind authentication.
func GetOAuthClient(ctx context.Context, token string) *http.Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{
			TokenType:   "Bearer",
			AccessToken: token,
		},
	)
	ctx = context.WithValue(ctx, oauth2.HTTPClient, GetHTTPClient())
	return oauth2.NewClient(ctx, ts)
}

// GetClient returns the OAuth client when a token is set, the plain one otherwise.
func GetClient(ctx context.Context, token string) *http.Client {
	if token == "" {
		return GetHTTPClient()
	}
	return GetOAuthClient(ctx, token)
}
