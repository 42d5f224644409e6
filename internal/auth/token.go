package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/korgan/korg/internal/config"
	"github.com/korgan/korg/internal/output"
	"github.com/korgan/korg/internal/secrets"
)

const (
	lockTimeout   = 10 * time.Second
	refreshWindow = 5 * time.Minute
)

// TokenCache is an oauth2.TokenSource backed by an access token cache file
// and a refresh token in the secrets store. A file lock serializes refreshes
// across concurrent korg processes.
type TokenCache struct {
	cachePath string
	lockPath  string
	store     secrets.Store
	env       string
	oauth     *oauth2.Config
	log       *zerolog.Logger
	now       func() time.Time
}

type cachedToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Expiry      time.Time `json:"expiry"`
}

// NewTokenCache creates the token cache of the configured environment.
func NewTokenCache(cfg *config.Config, store secrets.Store, log *zerolog.Logger) (*TokenCache, error) {
	oauthCfg, err := newOAuth2Config(cfg, "")
	if err != nil {
		return nil, err
	}
	env := cfg.Environment
	if env == "" {
		env = config.DefaultEnvironment
	}
	return newTokenCache(config.CacheDir(), env, oauthCfg, store, log)
}

func newTokenCache(dir, env string, oauthCfg *oauth2.Config, store secrets.Store, log *zerolog.Logger) (*TokenCache, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	cachePath := filepath.Join(dir, fmt.Sprintf("token-%s.json", env))
	return &TokenCache{
		cachePath: cachePath,
		lockPath:  cachePath + ".lock",
		store:     store,
		env:       env,
		oauth:     oauthCfg,
		log:       log,
		now:       time.Now,
	}, nil
}

func (tc *TokenCache) withLock(fn func() error) error {
	lock := flock.New(tc.lockPath)
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to acquire token lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire token lock: timeout")
	}
	defer lock.Unlock()
	return fn()
}

// Token returns a valid access token, refreshing it when it expires within
// five minutes.
func (tc *TokenCache) Token() (*oauth2.Token, error) {
	var tok *oauth2.Token
	err := tc.withLock(func() error {
		if cached, err := tc.readCache(); err == nil && cached.Expiry.Sub(tc.now()) > refreshWindow {
			tok = &oauth2.Token{AccessToken: cached.AccessToken, TokenType: cached.TokenType, Expiry: cached.Expiry}
			return nil
		}
		fresh, err := tc.refresh()
		if err != nil {
			return err
		}
		if err := tc.writeCache(fresh); err != nil {
			tc.log.Warn().Err(err).Msg("failed to cache access token")
		}
		tok = fresh
		return nil
	})
	return tok, err
}

func (tc *TokenCache) refresh() (*oauth2.Token, error) {
	key := secrets.RefreshTokenKey(tc.env)
	rt, err := tc.store.Get(key)
	if errors.Is(err, secrets.ErrNotFound) {
		return nil, output.NewCLIError(output.ExitAuth, "not signed in").WithHint("Run: korg auth login")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read refresh token: %w", err)
	}

	tc.log.Debug().Str("env", tc.env).Msg("refreshing access token")
	tok, err := tc.oauth.TokenSource(context.Background(), &oauth2.Token{RefreshToken: rt}).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorCode == "invalid_grant" {
			return nil, output.NewCLIError(output.ExitAuth, "refresh token expired or revoked").WithHint("Run: korg auth login")
		}
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	if tok.RefreshToken != "" && tok.RefreshToken != rt {
		if err := tc.store.Set(key, tok.RefreshToken); err != nil {
			tc.log.Warn().Err(err).Msg("failed to store rotated refresh token")
		}
	}
	return tok, nil
}

func (tc *TokenCache) readCache() (*cachedToken, error) {
	data, err := os.ReadFile(tc.cachePath)
	if err != nil {
		return nil, err
	}
	var ct cachedToken
	if err := json.Unmarshal(data, &ct); err != nil {
		return nil, err
	}
	return &ct, nil
}

func (tc *TokenCache) writeCache(tok *oauth2.Token) error {
	data, err := json.MarshalIndent(cachedToken{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		Expiry:      tok.Expiry,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(tc.cachePath, data, 0600)
}

// SaveLogin stores the tokens and identity of a completed login.
func (tc *TokenCache) SaveLogin(tok *oauth2.Token) error {
	return tc.withLock(func() error {
		if err := tc.store.Set(secrets.RefreshTokenKey(tc.env), tok.RefreshToken); err != nil {
			return fmt.Errorf("failed to store refresh token: %w", err)
		}
		if email, err := EmailFromToken(tok); err == nil {
			if err := tc.store.Set(secrets.IdentityKey(tc.env), email); err != nil {
				return fmt.Errorf("failed to store identity: %w", err)
			}
		} else {
			tc.log.Debug().Err(err).Msg("login token carries no usable identity")
		}
		if err := tc.writeCache(tok); err != nil {
			return fmt.Errorf("failed to cache access token: %w", err)
		}
		return nil
	})
}

// Identity returns the email of the signed-in account, if known.
func (tc *TokenCache) Identity() (string, error) {
	return tc.store.Get(secrets.IdentityKey(tc.env))
}

// Status describes the stored credentials without contacting the server.
type Status struct {
	Environment  string    `json:"environment" yaml:"environment"`
	SignedIn     bool      `json:"signedIn" yaml:"signedIn"`
	Email        string    `json:"email,omitempty" yaml:"email,omitempty"`
	AccessExpiry time.Time `json:"accessExpiry,omitempty" yaml:"accessExpiry,omitempty"`
}

// Status reports whether a refresh token is stored and when the cached
// access token expires.
func (tc *TokenCache) Status() (Status, error) {
	st := Status{Environment: tc.env}
	_, err := tc.store.Get(secrets.RefreshTokenKey(tc.env))
	switch {
	case errors.Is(err, secrets.ErrNotFound):
		return st, nil
	case err != nil:
		return st, err
	}
	st.SignedIn = true
	st.Email, _ = tc.Identity()
	if cached, err := tc.readCache(); err == nil {
		st.AccessExpiry = cached.Expiry
	}
	return st, nil
}

// Clear removes every stored token of the environment (logout).
func (tc *TokenCache) Clear() error {
	err := tc.withLock(func() error {
		for _, key := range []string{secrets.RefreshTokenKey(tc.env), secrets.IdentityKey(tc.env)} {
			if err := tc.store.Delete(key); err != nil && !errors.Is(err, secrets.ErrNotFound) {
				return fmt.Errorf("failed to delete %s: %w", key, err)
			}
		}
		if err := os.Remove(tc.cachePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete token cache: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := os.Remove(tc.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete lock file: %w", err)
	}
	return nil
}
