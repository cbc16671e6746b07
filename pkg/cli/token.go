package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = appName
	keyringUser    = "dataset_token"
	tokenFileName  = "dataset_token"
	tokenFileMode  = 0600
)

// tokenStore keeps the dataset download token in the OS keychain and
// falls back to a file in the app directory.
type tokenStore struct {
	dir string
}

func (s *tokenStore) filePath() string {
	return filepath.Join(s.dir, tokenFileName)
}

func (s *tokenStore) Save(token string) error {
	if token == "" {
		return errors.New("token is empty")
	}

	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		slog.Warn("keychain unavailable, falling back to file", "error", err)
		return os.WriteFile(s.filePath(), []byte(token), tokenFileMode)
	}

	// Clean up file if it exists
	os.Remove(s.filePath())
	return nil
}

// Get returns the saved token or an empty string when none was saved.
func (s *tokenStore) Get() (string, error) {
	token, err := keyring.Get(keyringService, keyringUser)
	if err == nil && token != "" {
		return token, nil
	}
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		slog.Debug("keychain unavailable, trying file", "error", err)
	}

	b, err := os.ReadFile(s.filePath())
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading token file %s: %w", s.filePath(), err)
	}
	return strings.TrimSpace(string(b)), nil
}

func (s *tokenStore) Delete() error {
	err := keyring.Delete(keyringService, keyringUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("deleting token from keychain: %w", err)
	}
	if err := os.Remove(s.filePath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting token file: %w", err)
	}
	return nil
}
