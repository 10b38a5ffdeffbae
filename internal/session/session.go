// Package session holds the dashboard login state and the small set of
// preferences a client keeps between runs.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

var ErrUnknownTheme = errors.New("unknown theme")

// Session is the in-process login state.
type Session struct {
	LoggedIn bool
	Username string
	Token    string
}

// Prefs is persisted between runs. Token is only kept for remembered users.
type Prefs struct {
	CurrentUser string `json:"currentUser,omitempty"`
	Remembered  bool   `json:"remembered,omitempty"`
	Theme       string `json:"theme,omitempty"`
	Token       string `json:"token,omitempty"`
}

// ThemeName returns the saved theme, light when unset.
func (p Prefs) ThemeName() string {
	if p.Theme == "" {
		return ThemeLight
	}
	return p.Theme
}

// ParseTheme accepts "light" or "dark" in any case.
func ParseTheme(s string) (string, error) {
	switch t := strings.ToLower(strings.TrimSpace(s)); t {
	case ThemeLight, ThemeDark:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTheme, s)
	}
}

// Restore resumes a session when a user was saved and remembered.
func Restore(p Prefs) Session {
	if p.CurrentUser != "" && p.Remembered {
		return Session{LoggedIn: true, Username: p.CurrentUser, Token: p.Token}
	}
	return Session{}
}

// Login records a successful login. With remember the user, flag and token
// are saved; without it all three are cleared.
func Login(p Prefs, username, token string, remember bool) (Prefs, Session) {
	if remember {
		p.CurrentUser = username
		p.Remembered = true
		p.Token = token
	} else {
		p.CurrentUser = ""
		p.Remembered = false
		p.Token = ""
	}
	return p, Session{LoggedIn: true, Username: username, Token: token}
}

// Logout drops the saved user unless it was remembered, and always drops
// the remembered flag and token. The theme is kept, so is a remembered
// username, which prefills the next login.
func Logout(p Prefs) Prefs {
	if !p.Remembered {
		p.CurrentUser = ""
	}
	p.Remembered = false
	p.Token = ""
	return p
}

// FileStore persists Prefs as a JSON file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Path() string { return f.path }

// Load returns zero Prefs when the file does not exist.
func (f *FileStore) Load() (Prefs, error) {
	var p Prefs
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("read prefs: %w", err)
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return Prefs{}, fmt.Errorf("decode prefs %s: %w", f.path, err)
	}
	return p, nil
}

// Save writes p owner-only, replacing the file atomically.
func (f *FileStore) Save(p Prefs) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".prefs-*.json")
	if err != nil {
		return fmt.Errorf("create prefs: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}
