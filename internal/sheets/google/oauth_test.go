package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

const desktopClient = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret",` +
	`"redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth",` +
	`"token_uri":"https://oauth2.googleapis.com/token"}}`

func clearOAuthEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE", "GOOGLE_OAUTH_TOKEN_FILE"} {
		t.Setenv(k, "")
	}
}

func TestOAuthClientFromEnv(t *testing.T) {
	clearOAuthEnv(t)
	if _, err := OAuthClientFromEnv(); !errors.Is(err, ErrNoOAuthClient) {
		t.Fatalf("err = %v, want ErrNoOAuthClient", err)
	}

	path := filepath.Join(t.TempDir(), "client.json")
	if err := os.WriteFile(path, []byte(desktopClient), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_OAUTH_CLIENT_FILE", path)
	cfg, err := OAuthClientFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ClientID != "id.apps.googleusercontent.com" || len(cfg.Scopes) != 1 {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestSaveAndLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	tok := &oauth2.Token{AccessToken: "at", RefreshToken: "rt", Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	if err := SaveToken(path, tok); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode = %o, want 600", perm)
	}

	got, err := LoadToken(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.RefreshToken != "rt" || !got.Expiry.Equal(tok.Expiry) {
		t.Fatalf("token = %+v", got)
	}

	empty := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(empty, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadToken(empty); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestOAuthTokenSource(t *testing.T) {
	clearOAuthEnv(t)
	ts, err := oauthTokenSource(context.Background())
	if err != nil || ts != nil {
		t.Fatalf("without token file: ts=%v err=%v", ts, err)
	}

	path := filepath.Join(t.TempDir(), "token.json")
	if err := SaveToken(path, &oauth2.Token{AccessToken: "at", Expiry: time.Now().Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_OAUTH_TOKEN_FILE", path)
	if _, err := oauthTokenSource(context.Background()); !errors.Is(err, ErrNoOAuthClient) {
		t.Fatalf("without client: err = %v", err)
	}

	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", desktopClient)
	ts, err = oauthTokenSource(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	tok, err := ts.Token()
	if err != nil || tok.AccessToken != "at" {
		t.Fatalf("token = %+v err = %v", tok, err)
	}
}
