package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

// ErrNoOAuthClient is returned when neither GOOGLE_OAUTH_CLIENT_JSON nor
// GOOGLE_OAUTH_CLIENT_FILE is set.
var ErrNoOAuthClient = errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")

// OAuthClientFromEnv reads the OAuth client definition for a desktop app
// and returns its config scoped to spreadsheets.
func OAuthClientFromEnv() (*oauth2.Config, error) {
	raw := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"))
	var b []byte
	switch {
	case raw != "":
		b = []byte(raw)
	case strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE")) != "":
		var err error
		b, err = os.ReadFile(strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE")))
		if err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
	default:
		return nil, ErrNoOAuthClient
	}
	cfg, err := goauth.ConfigFromJSON(b, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// LoadToken reads a token saved by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()

	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, errors.New("token file holds no token")
	}
	return &tok, nil
}

// SaveToken writes tok to path, readable by the owner only.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		f.Close()
		return fmt.Errorf("write token: %w", err)
	}
	return f.Close()
}

// oauthTokenSource builds a refreshing token source from the OAuth client in
// the environment and the token at GOOGLE_OAUTH_TOKEN_FILE. It returns nil
// when no token file is configured.
func oauthTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	path := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE"))
	if path == "" {
		return nil, nil
	}
	cfg, err := OAuthClientFromEnv()
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(path)
	if err != nil {
		return nil, err
	}
	return cfg.TokenSource(ctx, tok), nil
}
