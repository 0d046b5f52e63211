package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

// PassphraseEnv overrides the generated file-store passphrase.
const PassphraseEnv = "POSTSCRAPER_PASSPHRASE"

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000
)

// FileStore keeps accounts in an AES-GCM sealed JSON file whose key is
// derived from a passphrase with PBKDF2.
type FileStore struct {
	path       string
	passphrase string
	mu         sync.RWMutex
}

type sealedFile struct {
	Version  int       `json:"version"`
	Salt     string    `json:"salt"`
	Sealed   string    `json:"sealed"`
	Modified time.Time `json:"modified"`
}

// NewFileStore opens the store at path. An empty passphrase falls back to
// POSTSCRAPER_PASSPHRASE, then to a generated one kept next to the file.
func NewFileStore(path, passphrase string) (*FileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	if passphrase == "" {
		var err error
		if passphrase, err = loadPassphrase(dir); err != nil {
			return nil, fmt.Errorf("failed to get passphrase: %w", err)
		}
	}
	return &FileStore{path: path, passphrase: passphrase}, nil
}

func (f *FileStore) Store(account *Account) error {
	if account == nil || account.Name == "" {
		return ErrInvalidAccount
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	accounts, err := f.load()
	if err != nil {
		return err
	}
	accounts[account.Name] = *account
	return f.save(accounts)
}

func (f *FileStore) Retrieve(name string) (*Account, error) {
	if name == "" {
		return nil, ErrInvalidAccount
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	accounts, err := f.load()
	if err != nil {
		return nil, err
	}
	acc, ok := accounts[name]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return &acc, nil
}

func (f *FileStore) List() ([]*Account, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	accounts, err := f.load()
	if err != nil {
		return nil, err
	}
	out := make([]*Account, 0, len(accounts))
	for _, acc := range accounts {
		acc := acc
		out = append(out, &acc)
	}
	return out, nil
}

func (f *FileStore) Delete(name string) error {
	if name == "" {
		return ErrInvalidAccount
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	accounts, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := accounts[name]; !ok {
		return ErrTokenNotFound
	}
	delete(accounts, name)
	if len(accounts) == 0 {
		return os.Remove(f.path)
	}
	return f.save(accounts)
}

func (f *FileStore) Exists(name string) bool {
	acc, err := f.Retrieve(name)
	return err == nil && acc != nil
}

// load returns an empty map when the file does not exist yet.
func (f *FileStore) load() (map[string]Account, error) {
	content, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]Account), nil
	}
	if err != nil {
		return nil, err
	}

	var sf sealedFile
	if err := json.Unmarshal(content, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	salt, err := base64.StdEncoding.DecodeString(sf.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(sf.Sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode token file: %w", err)
	}

	plain, err := open(sealed, f.key(salt))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt token file: %w", err)
	}
	accounts := make(map[string]Account)
	if err := json.Unmarshal(plain, &accounts); err != nil {
		return nil, fmt.Errorf("failed to parse accounts: %w", err)
	}
	return accounts, nil
}

// save reseals with a fresh salt and replaces the file atomically.
func (f *FileStore) save(accounts map[string]Account) error {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	plain, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}
	sealed, err := seal(plain, f.key(salt))
	if err != nil {
		return fmt.Errorf("failed to encrypt accounts: %w", err)
	}

	content, err := json.MarshalIndent(sealedFile{
		Version:  1,
		Salt:     base64.StdEncoding.EncodeToString(salt),
		Sealed:   base64.StdEncoding.EncodeToString(sealed),
		Modified: time.Now(),
	}, "", "  ")
	if err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStore) key(salt []byte) []byte {
	return pbkdf2.Key([]byte(f.passphrase), salt, iterations, keySize, sha256.New)
}

func loadPassphrase(dir string) (string, error) {
	if p := os.Getenv(PassphraseEnv); p != "" {
		return p, nil
	}

	path := filepath.Join(dir, ".passphrase")
	if content, err := os.ReadFile(path); err == nil && len(content) > 0 {
		return string(content), nil
	}

	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	p := base64.URLEncoding.EncodeToString(b)
	if err := os.WriteFile(path, []byte(p), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}
	return p, nil
}

func seal(plain, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

func open(sealed, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
