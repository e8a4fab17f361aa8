package tokenstore

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func newTestFile(t *testing.T, env map[string]string) *File {
	t.Helper()
	f := NewFile(filepath.Join(t.TempDir(), "household", "token.json"))
	f.getenv = func(k string) string { return env[k] }
	return f
}

func TestFileSaveReadClear(t *testing.T) {
	f := newTestFile(t, nil)

	tok, err := f.Read()
	if err != nil || tok != nil {
		t.Fatalf("Read() on empty store = %v, %v; want nil, nil", tok, err)
	}

	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := f.Save(&oauth2.Token{AccessToken: "a1", RefreshToken: "r1", Expiry: exp}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	tok, err = f.Read()
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if tok.AccessToken != "a1" || tok.RefreshToken != "r1" || !tok.Expiry.Equal(exp) {
		t.Errorf("Read() = %+v", tok)
	}

	if err := f.Save(&oauth2.Token{AccessToken: "a2"}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	tok, _ = f.Read()
	if tok.AccessToken != "a2" || tok.RefreshToken != "" {
		t.Errorf("second Save() did not overwrite: %+v", tok)
	}

	if err := f.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if err := f.Clear(); err != nil {
		t.Fatalf("second Clear() error: %v", err)
	}
	tok, err = f.Read()
	if err != nil || tok != nil {
		t.Errorf("Read() after Clear() = %v, %v", tok, err)
	}
}

func TestFilePermissions(t *testing.T) {
	f := newTestFile(t, nil)
	if err := f.Save(&oauth2.Token{AccessToken: "secret"}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	info, err := os.Stat(f.Path())
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file perm = %o, want 600", perm)
	}
	dir, err := os.Stat(filepath.Dir(f.Path()))
	if err != nil {
		t.Fatalf("Stat(dir) error: %v", err)
	}
	if perm := dir.Mode().Perm(); perm != 0o700 {
		t.Errorf("dir perm = %o, want 700", perm)
	}
}

func TestFileEnvOverride(t *testing.T) {
	env := map[string]string{EnvToken: " env-token \n"}

	t.Run("env wins over an existing file", func(t *testing.T) {
		f := newTestFile(t, nil)
		if err := f.Save(&oauth2.Token{AccessToken: "file-token"}); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
		g := NewFile(f.Path())
		g.getenv = func(k string) string { return env[k] }
		tok, err := g.Read()
		if err != nil {
			t.Fatalf("Read() error: %v", err)
		}
		if tok == nil || tok.AccessToken != "env-token" {
			t.Errorf("Read() = %+v, want env-token", tok)
		}
	})

	t.Run("save supersedes env", func(t *testing.T) {
		f := newTestFile(t, env)
		if err := f.Save(&oauth2.Token{AccessToken: "user-b"}); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
		tok, err := f.Read()
		if err != nil {
			t.Fatalf("Read() error: %v", err)
		}
		if tok == nil || tok.AccessToken != "user-b" {
			t.Errorf("Read() = %+v, want user-b", tok)
		}
	})

	t.Run("clear empties the store", func(t *testing.T) {
		f := newTestFile(t, env)
		if tok, _ := f.Read(); tok == nil || tok.AccessToken != "env-token" {
			t.Fatalf("Read() before Clear() = %+v, want env-token", tok)
		}
		if err := f.Clear(); err != nil {
			t.Fatalf("Clear() error: %v", err)
		}
		tok, err := f.Read()
		if err != nil || tok != nil {
			t.Errorf("Read() after Clear() = %+v, %v; want nil, nil", tok, err)
		}
	})
}

func TestFileLegacyBareToken(t *testing.T) {
	f := newTestFile(t, nil)
	if err := os.MkdirAll(filepath.Dir(f.Path()), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f.Path(), []byte("bare-token\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	tok, err := f.Read()
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if tok == nil || tok.AccessToken != "bare-token" {
		t.Errorf("Read() = %+v, want bare-token", tok)
	}
}

func TestFileConcurrentWriters(t *testing.T) {
	f := newTestFile(t, nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Save(&oauth2.Token{AccessToken: "tok"}) //nolint:errcheck
			f.Read()                                  //nolint:errcheck
		}()
	}
	wg.Wait()

	tok, err := f.Read()
	if err != nil || tok == nil || tok.AccessToken != "tok" {
		t.Errorf("Read() = %v, %v", tok, err)
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemory(nil)
	if tok, _ := m.Read(); tok != nil {
		t.Fatalf("Read() = %v, want nil", tok)
	}
	orig := &oauth2.Token{AccessToken: "a"}
	m.Save(orig) //nolint:errcheck
	orig.AccessToken = "mutated"
	if tok, _ := m.Read(); tok.AccessToken != "a" {
		t.Errorf("Read() = %q, want copy isolated from caller", tok.AccessToken)
	}
	m.Clear() //nolint:errcheck
	if tok, _ := m.Read(); tok != nil {
		t.Errorf("Read() after Clear() = %v", tok)
	}
}

var (
	_ Store = (*File)(nil)
	_ Store = (*Memory)(nil)
)
