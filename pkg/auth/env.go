package auth

import (
	"os"
	"strings"
	"time"
)

// TokenEnv names the environment variable read by EnvironmentStore.
const TokenEnv = "POSTSCRAPER_AUTH_TOKEN"

// EnvironmentStore exposes POSTSCRAPER_AUTH_TOKEN as a read-only account.
type EnvironmentStore struct{}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Store(*Account) error { return ErrStoreUnavailable }

func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	token := strings.TrimSpace(os.Getenv(TokenEnv))
	if token == "" {
		return nil, ErrTokenNotFound
	}
	if name == "" {
		name = DefaultAccount
	}
	return &Account{Name: name, Token: token, LastModified: time.Now()}, nil
}

func (e *EnvironmentStore) List() ([]*Account, error) {
	acc, err := e.Retrieve("")
	if err != nil {
		return nil, nil
	}
	return []*Account{acc}, nil
}

func (e *EnvironmentStore) Delete(string) error { return ErrStoreUnavailable }

func (e *EnvironmentStore) Exists(string) bool {
	return strings.TrimSpace(os.Getenv(TokenEnv)) != ""
}
