// Package tokenstore persists the single session token on the local device.
package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/oauth2"
)

// EnvToken names the environment variable that seeds the store. A Save or
// Clear on the same store supersedes it.
const EnvToken = "HOUSEHOLD_TOKEN"

// Store holds at most one token. Writes overwrite.
type Store interface {
	Save(tok *oauth2.Token) error
	// Read returns nil, nil when no token is held.
	Read() (*oauth2.Token, error)
	Clear() error
}

// File is a Store backed by a 0600 JSON file inside a 0700 directory.
type File struct {
	path   string
	getenv func(string) string
	mu     sync.Mutex
	// envMasked is set once the store has been written or cleared.
	envMasked bool
}

// NewFile returns a file store at path.
func NewFile(path string) *File {
	return &File{path: path, getenv: os.Getenv}
}

// Path returns the backing file location.
func (f *File) Path() string {
	return f.path
}

// Save writes tok, replacing any previous token.
func (f *File) Save(tok *oauth2.Token) error {
	if tok == nil {
		return f.Clear()
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("tokenstore.Save: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.envMasked = true

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("tokenstore.Save: create dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("tokenstore.Save: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("tokenstore.Save: %w", err)
	}
	return nil
}

// Read returns the token using precedence: env var > file > empty. The env
// var only counts until this store is first saved or cleared. An env token
// carries only an access token.
func (f *File) Read() (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.envMasked {
		if v := strings.TrimSpace(f.getenv(EnvToken)); v != "" {
			return &oauth2.Token{AccessToken: v, TokenType: "Bearer"}, nil
		}
	}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tokenstore.Read: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		// Older files held a bare access token.
		return &oauth2.Token{AccessToken: strings.TrimSpace(string(data)), TokenType: "Bearer"}, nil
	}
	if tok.AccessToken == "" {
		return nil, nil
	}
	return &tok, nil
}

// Clear removes the stored token. Clearing an empty store is not an error.
func (f *File) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.envMasked = true

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("tokenstore.Clear: %w", err)
	}
	return nil
}

// Memory is an in-process Store.
type Memory struct {
	mu  sync.Mutex
	tok *oauth2.Token
}

// NewMemory returns a Memory store holding tok (which may be nil).
func NewMemory(tok *oauth2.Token) *Memory {
	return &Memory{tok: tok}
}

func (m *Memory) Save(tok *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tok == nil {
		m.tok = nil
		return nil
	}
	cp := *tok
	m.tok = &cp
	return nil
}

func (m *Memory) Read() (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tok == nil {
		return nil, nil
	}
	cp := *m.tok
	return &cp, nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tok = nil
	return nil
}
