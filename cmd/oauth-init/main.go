// Command oauth-init runs the Google OAuth consent flow once and saves a user
// token to GOOGLE_OAUTH_TOKEN_FILE, for spreadsheets the service account
// cannot be shared with.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"findash/internal/cli"
	"findash/internal/config"
	"findash/internal/log"
	gsheet "findash/internal/sheets/google"
)

const consentTimeout = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, os.Stderr).WithComponent(log.ComponentSheets)

	oauthCfg, err := gsheet.OAuthClientFromEnv()
	if err != nil {
		cli.Fatal(logger, "OAuth client unavailable", err)
	}
	oauthCfg.RedirectURL = "http://localhost:" + cfg.OAuthRedirectPort + "/callback"

	outFile := cfg.GoogleOAuthTokenFile
	if outFile == "" {
		outFile = "token.json"
	}

	ctx, cancel := context.WithTimeout(context.Background(), consentTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	tok, err := authorize(ctx, oauthCfg, ":"+cfg.OAuthRedirectPort)
	if err != nil {
		cli.Fatal(logger, "Authorization failed", err)
	}
	if err := gsheet.SaveToken(outFile, tok); err != nil {
		cli.Fatal(logger, "Failed to save token", err)
	}
	logger.Info("Saved OAuth token", "path", outFile)
}

// authorize prints the consent URL, waits for the redirect on addr and
// exchanges the returned code.
func authorize(ctx context.Context, cfg *oauth2.Config, addr string) (*oauth2.Token, error) {
	state := uuid.NewString()
	codes := make(chan string, 1)
	errs := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
			errs <- fmt.Errorf("consent denied: %s", q.Get("error"))
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
		default:
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
			select {
			case codes <- q.Get("code"):
			default:
			}
		}
	})
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
	defer srv.Close()

	fmt.Printf("Open this URL to authorize:\n%s\n", cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	select {
	case code := <-codes:
		tok, err := cfg.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("token exchange: %w", err)
		}
		return tok, nil
	case err := <-errs:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
