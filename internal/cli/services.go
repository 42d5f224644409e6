package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/korgan/korg/internal/auth"
	"github.com/korgan/korg/internal/config"
	"github.com/korgan/korg/internal/gateway"
	"github.com/korgan/korg/internal/gateway/gmailapi"
	"github.com/korgan/korg/internal/mail"
	"github.com/korgan/korg/internal/output"
	"github.com/korgan/korg/internal/secrets"
)

// ServiceProvider lazily creates and caches the secrets store, token cache
// and mail gateway for one invocation.
type ServiceProvider struct {
	cfg       *config.Config
	log       *zerolog.Logger
	userAgent string

	storeOnce sync.Once
	store     secrets.Store
	storeErr  error

	gwOnce sync.Once
	gw     mail.Gateway
	gwErr  error
}

// NewServiceProvider creates a ServiceProvider with the given config.
func NewServiceProvider(cfg *config.Config, log *zerolog.Logger, userAgent string) *ServiceProvider {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &ServiceProvider{cfg: cfg, log: log, userAgent: userAgent}
}

// WithGateway pins the gateway, bypassing credentials and backend selection.
func (sp *ServiceProvider) WithGateway(gw mail.Gateway) *ServiceProvider {
	sp.gwOnce.Do(func() { sp.gw = gw })
	return sp
}

// Secrets returns the secrets store, opening it on first call.
func (sp *ServiceProvider) Secrets() (secrets.Store, error) {
	sp.storeOnce.Do(func() {
		store, err := secrets.Open(secrets.OptionsFromEnv(config.DataDir(), sp.log))
		if err != nil {
			sp.storeErr = output.NewCLIError(output.ExitGeneral, fmt.Sprintf("Failed to initialize secrets store: %v", err))
			return
		}
		sp.store = store
	})
	return sp.store, sp.storeErr
}

// Tokens returns the OAuth token cache of the configured environment.
func (sp *ServiceProvider) Tokens() (*auth.TokenCache, error) {
	store, err := sp.Secrets()
	if err != nil {
		return nil, err
	}
	tc, err := auth.NewTokenCache(sp.cfg, store, sp.log)
	if err != nil {
		return nil, output.NewCLIError(output.ExitGeneral, fmt.Sprintf("Failed to initialize token cache: %v", err))
	}
	return tc, nil
}

// Gateway returns the mail gateway of the configured backend, creating it on
// first call.
func (sp *ServiceProvider) Gateway(ctx context.Context) (mail.Gateway, error) {
	sp.gwOnce.Do(func() {
		switch sp.cfg.BackendName() {
		case config.BackendGmail:
			sp.gw, sp.gwErr = gmailapi.NewFromDir(ctx, sp.cfg.GmailDir(), sp.log)
			if sp.gwErr != nil {
				sp.gwErr = output.NewCLIError(output.ExitConfigError, sp.gwErr.Error()).
					WithHint("Place credentials.json in " + sp.cfg.GmailDir())
			}
		default:
			sp.gw, sp.gwErr = sp.korganGateway()
		}
	})
	return sp.gw, sp.gwErr
}

func (sp *ServiceProvider) korganGateway() (mail.Gateway, error) {
	tokens, err := sp.Tokens()
	if err != nil {
		return nil, err
	}
	// Fail before the first request instead of retrying a missing login.
	if _, err := tokens.Token(); err != nil {
		return nil, err
	}

	user := sp.cfg.UserEmail
	if user == "" {
		user, _ = tokens.Identity()
	}
	if user == "" {
		return nil, output.NewCLIError(output.ExitConfigError, "mailbox owner is unknown").
			WithHint("Run: korg config set user_email you@example.com")
	}

	mc, err := gateway.NewFromConfig(sp.cfg, tokens, user, sp.userAgent, sp.log)
	if err != nil {
		return nil, err
	}
	sp.log.Debug().Str("user", user).Str("environment", sp.cfg.Environment).Msg("korgan gateway ready")
	return mc, nil
}

// Mailbox builds a mailbox over the configured gateway.
func (sp *ServiceProvider) Mailbox(ctx context.Context) (*mail.Mailbox, error) {
	gw, err := sp.Gateway(ctx)
	if err != nil {
		return nil, err
	}
	return mail.New(gw, mail.Options{
		PageSize: sp.cfg.PageSizeOrDefault(),
		StaleTTL: sp.cfg.StaleTTLDuration(),
		Log:      sp.log,
	}), nil
}
