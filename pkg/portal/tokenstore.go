package portal

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// Credentials is the persisted session snapshot.
type Credentials struct {
	Token        string
	RefreshToken string
	User         *User
}

func (c Credentials) Empty() bool {
	return c.Token == "" && c.RefreshToken == "" && c.User == nil
}

type TokenStore interface {
	Load() (Credentials, error)
	Save(Credentials) error
	Clear() error
}

// storedCredentials is the on-disk shape. The user is kept as a raw JSON
// string so a corrupt blob is detectable on its own.
type storedCredentials struct {
	Token        string `json:"token,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         string `json:"user,omitempty"`
}

// FileStore persists credentials in a single JSON file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the stored credentials. A missing file yields empty
// credentials. A malformed user entry clears the store and reports the
// user as absent; the tokens are dropped with it.
func (s *FileStore) Load() (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Credentials{}, nil
		}
		return Credentials{}, err
	}

	var stored storedCredentials
	if err := json.Unmarshal(raw, &stored); err != nil {
		_ = os.Remove(s.path)
		return Credentials{}, nil
	}

	creds := Credentials{
		Token:        stored.Token,
		RefreshToken: stored.RefreshToken,
	}
	if stored.User != "" {
		var user User
		if err := json.Unmarshal([]byte(stored.User), &user); err != nil || user.ID == "" {
			_ = os.Remove(s.path)
			return Credentials{}, nil
		}
		creds.User = &user
	}
	return creds, nil
}

func (s *FileStore) Save(creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := storedCredentials{
		Token:        creds.Token,
		RefreshToken: creds.RefreshToken,
	}
	if creds.User != nil {
		raw, err := json.Marshal(creds.User)
		if err != nil {
			return err
		}
		stored.User = string(raw)
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o600)
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// MemStore keeps credentials in memory, mainly for tests.
type MemStore struct {
	mu    sync.Mutex
	creds Credentials
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Load() (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds, nil
}

func (s *MemStore) Save(creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
	return nil
}

func (s *MemStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
	return nil
}
