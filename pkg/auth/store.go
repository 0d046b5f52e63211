// Package auth keeps the opaque session tokens the CLI hands to the browser.
// Tokens are stored by account name in the system keychain when one is
// available, in an encrypted file otherwise, and can always be supplied
// through POSTSCRAPER_AUTH_TOKEN.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// DefaultAccount is the name used when none is given.
const DefaultAccount = "default"

// Account is a named auth token.
type Account struct {
	Name         string    `json:"name"`
	Token        string    `json:"token"`
	LastModified time.Time `json:"last_modified"`
}

// TokenStore is a backend that holds accounts by name.
type TokenStore interface {
	Store(account *Account) error
	Retrieve(name string) (*Account, error)
	List() ([]*Account, error)
	Delete(name string) error
	Exists(name string) bool
}

var (
	ErrTokenNotFound    = errors.New("auth token not found")
	ErrInvalidAccount   = errors.New("invalid account")
	ErrStoreUnavailable = errors.New("token store unavailable")
)

// Manager tries each backend in order.
type Manager struct {
	stores []TokenStore
}

// NewManager builds the keyring -> encrypted file -> environment chain.
func NewManager() (*Manager, error) {
	var stores []TokenStore

	if ks, err := NewKeyringStore(); err == nil {
		stores = append(stores, ks)
	}

	dir, err := configDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	fs, err := NewFileStore(filepath.Join(dir, "tokens.enc"), "")
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, fs, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores builds a Manager over the given backends.
func NewManagerWithStores(stores ...TokenStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves the account in the first backend that accepts it.
func (m *Manager) Store(account *Account) error {
	if account == nil || strings.TrimSpace(account.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidAccount)
	}
	if strings.TrimSpace(account.Token) == "" {
		return fmt.Errorf("%w: token is required", ErrInvalidAccount)
	}
	account.LastModified = time.Now()

	var errs []error
	for _, s := range m.stores {
		err := s.Store(account)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return ErrStoreUnavailable
	}
	return fmt.Errorf("failed to store token: %w", errors.Join(errs...))
}

// Retrieve returns the account from the first backend that has it.
func (m *Manager) Retrieve(name string) (*Account, error) {
	for _, s := range m.stores {
		if acc, err := s.Retrieve(name); err == nil && acc != nil {
			return acc, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, name)
}

// Token resolves the token for name. An empty name means the environment
// token if set, then the default account, then the only stored account.
func (m *Manager) Token(name string) (string, error) {
	if name != "" {
		acc, err := m.Retrieve(name)
		if err != nil {
			return "", err
		}
		return acc.Token, nil
	}

	if acc, err := NewEnvironmentStore().Retrieve(""); err == nil {
		return acc.Token, nil
	}
	if acc, err := m.Retrieve(DefaultAccount); err == nil {
		return acc.Token, nil
	}
	accounts, _ := m.List()
	if len(accounts) == 1 {
		return accounts[0].Token, nil
	}
	return "", ErrTokenNotFound
}

// List merges every backend, keeping the newest copy of each name.
func (m *Manager) List() ([]*Account, error) {
	byName := make(map[string]*Account)
	for _, s := range m.stores {
		accounts, err := s.List()
		if err != nil {
			continue
		}
		for _, acc := range accounts {
			if prev, ok := byName[acc.Name]; !ok || acc.LastModified.After(prev.LastModified) {
				byName[acc.Name] = acc
			}
		}
	}

	out := make([]*Account, 0, len(byName))
	for _, acc := range byName {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes name from every backend that holds it.
func (m *Manager) Delete(name string) error {
	deleted := false
	for _, s := range m.stores {
		if s.Delete(name) == nil {
			deleted = true
		}
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrTokenNotFound, name)
	}
	return nil
}

// Masked returns a copy of the account safe to print.
func Masked(account *Account) *Account {
	if account == nil {
		return nil
	}
	cp := *account
	cp.Token = mask(account.Token)
	return &cp
}

func mask(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func configDir() (string, error) {
	var dir string
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "postscraper")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "postscraper")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			dir = filepath.Join(xdg, "postscraper")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config", "postscraper")
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}
