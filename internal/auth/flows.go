package auth

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/korgan/korg/internal/config"
	"github.com/korgan/korg/internal/output"
	"github.com/korgan/korg/pkg/browser"
)

const (
	loginTimeout      = 5 * time.Minute
	callbackPort      = 8085
	manualRedirectURL = "http://127.0.0.1:8085/callback"
)

// newOAuth2Config builds the OAuth2 client for the configured environment.
func newOAuth2Config(cfg *config.Config, redirectURL string) (*oauth2.Config, error) {
	env, err := cfg.GetEnvironment()
	if err != nil {
		return nil, err
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   env.AccountsServer + "/oauth2/authorize",
			TokenURL:  env.AccountsServer + "/oauth2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: redirectURL,
		Scopes:      DefaultScopes,
	}, nil
}

func requireClient(cfg *config.Config) error {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return output.NewCLIError(output.ExitConfigError, "client ID and client secret are required").
			WithHint("Run: korg config set client_id <id> && korg config set client_secret <secret>")
	}
	return nil
}

// generateState returns a random state parameter for CSRF protection.
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// loginRequest is one authorization attempt: state plus PKCE verifier.
type loginRequest struct {
	cfg      *oauth2.Config
	state    string
	verifier string
}

func newLoginRequest(oauthCfg *oauth2.Config) (*loginRequest, error) {
	state, err := generateState()
	if err != nil {
		return nil, err
	}
	return &loginRequest{cfg: oauthCfg, state: state, verifier: oauth2.GenerateVerifier()}, nil
}

func (lr *loginRequest) authURL() string {
	return lr.cfg.AuthCodeURL(lr.state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(lr.verifier),
	)
}

func (lr *loginRequest) exchange(ctx context.Context, code, state string) (*oauth2.Token, error) {
	if state != lr.state {
		return nil, fmt.Errorf("state mismatch (possible CSRF attack)")
	}
	tok, err := lr.cfg.Exchange(ctx, code, oauth2.VerifierOption(lr.verifier))
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	if tok.RefreshToken == "" {
		return nil, fmt.Errorf("no refresh token issued (offline access was not granted)")
	}
	return tok, nil
}

// InteractiveLogin opens the authorization page in the browser and waits
// for the redirect on a loopback callback server.
func InteractiveLogin(ctx context.Context, cfg *config.Config, stderr io.Writer) (*oauth2.Token, error) {
	if err := requireClient(cfg); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	cs, err := startCallbackServer(callbackPort)
	if err != nil {
		return nil, err
	}
	defer cs.Close()

	oauthCfg, err := newOAuth2Config(cfg, cs.URL)
	if err != nil {
		return nil, err
	}
	lr, err := newLoginRequest(oauthCfg)
	if err != nil {
		return nil, err
	}

	authURL := lr.authURL()
	fmt.Fprintf(stderr, "Opening browser for authentication...\n")
	fmt.Fprintf(stderr, "If the browser doesn't open, visit this URL:\n%s\n\n", authURL)
	if err := browser.Open(authURL); err != nil {
		fmt.Fprintf(stderr, "Failed to open browser: %v\n", err)
	}

	res, err := cs.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("authentication timed out after %s", loginTimeout)
	}
	if res.Error != "" {
		return nil, fmt.Errorf("authentication failed: %s", res.Error)
	}
	return lr.exchange(ctx, res.Code, res.State)
}

// ManualLogin prints the authorization URL and reads the pasted redirect
// URL from in. Used over SSH and on headless machines.
func ManualLogin(ctx context.Context, cfg *config.Config, in io.Reader, stderr io.Writer) (*oauth2.Token, error) {
	if err := requireClient(cfg); err != nil {
		return nil, err
	}

	oauthCfg, err := newOAuth2Config(cfg, manualRedirectURL)
	if err != nil {
		return nil, err
	}
	lr, err := newLoginRequest(oauthCfg)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(stderr, "1. Visit this URL in your browser:\n\n%s\n\n", lr.authURL())
	fmt.Fprintf(stderr, "2. After authorizing you are redirected to a page that won't load.\n")
	fmt.Fprintf(stderr, "3. Paste the full URL from the address bar here: ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	code, state, err := parseRedirect(line)
	if err != nil {
		return nil, err
	}
	return lr.exchange(ctx, code, state)
}

// parseRedirect extracts code and state from a pasted redirect URL.
func parseRedirect(raw string) (code, state string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("invalid URL: %w", err)
	}
	q := u.Query()
	if msg := q.Get("error"); msg != "" {
		return "", "", fmt.Errorf("authorization failed: %s", msg)
	}
	if q.Get("code") == "" {
		return "", "", fmt.Errorf("no authorization code found in URL")
	}
	return q.Get("code"), q.Get("state"), nil
}
