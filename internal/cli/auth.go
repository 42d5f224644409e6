package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"

	"github.com/korgan/korg/internal/auth"
	"github.com/korgan/korg/internal/config"
	"github.com/korgan/korg/internal/output"
	"github.com/korgan/korg/internal/secrets"
)

// AuthLoginCmd implements the auth login command
type AuthLoginCmd struct {
	Manual bool `help:"Manual paste mode (no browser)" short:"m"`
}

// Run executes the login command
func (cmd *AuthLoginCmd) Run(ctx context.Context, cfg *config.Config, sp *ServiceProvider, fp *FormatterProvider) error {
	tokens, err := sp.Tokens()
	if err != nil {
		return err
	}

	var token *oauth2.Token
	if cmd.Manual {
		token, err = auth.ManualLogin(ctx, cfg, os.Stdin, fp.Stderr)
	} else {
		token, err = auth.InteractiveLogin(ctx, cfg, fp.Stderr)
	}
	if err != nil {
		if cliErr := output.FromError(err); cliErr.ExitCode != output.ExitGeneral {
			return cliErr
		}
		return output.NewCLIError(output.ExitAuth, fmt.Sprintf("Login failed: %v", err))
	}

	if err := tokens.SaveLogin(token); err != nil {
		return output.NewCLIError(output.ExitGeneral, fmt.Sprintf("Failed to save tokens: %v", err))
	}

	fmt.Fprintf(fp.Stderr, "Authenticated successfully\n")
	fmt.Fprintf(fp.Stderr, "Environment: %s\n", cfg.Environment)
	if email, err := tokens.Identity(); err == nil && email != "" {
		fmt.Fprintf(fp.Stderr, "Account: %s\n", email)
	}
	fmt.Fprintf(fp.Stderr, "Token expires: %s\n", token.Expiry.Format(time.RFC3339))

	storageType := "keyring"
	if store, _ := sp.Secrets(); isFileStore(store) {
		storageType = "encrypted file"
	}
	fmt.Fprintf(fp.Stderr, "Credentials stored in %s\n", storageType)
	return nil
}

func isFileStore(store secrets.Store) bool {
	_, ok := store.(*secrets.FileStore)
	return ok
}

// AuthLogoutCmd implements the auth logout command
type AuthLogoutCmd struct{}

// Run executes the logout command
func (cmd *AuthLogoutCmd) Run(cfg *config.Config, sp *ServiceProvider, fp *FormatterProvider) error {
	tokens, err := sp.Tokens()
	if err != nil {
		return err
	}
	if err := tokens.Clear(); err != nil {
		return output.NewCLIError(output.ExitGeneral, fmt.Sprintf("Failed to clear tokens: %v", err))
	}
	fmt.Fprintf(fp.Stderr, "Signed out of %s\n", cfg.Environment)
	return nil
}

// AuthStatusCmd implements the auth status command
type AuthStatusCmd struct{}

// Run executes the status command
func (cmd *AuthStatusCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	tokens, err := sp.Tokens()
	if err != nil {
		return err
	}
	st, err := tokens.Status()
	if err != nil {
		return output.NewCLIError(output.ExitGeneral, fmt.Sprintf("Failed to read credentials: %v", err))
	}
	if err := fp.Formatter.Print(st); err != nil {
		return err
	}
	if !st.SignedIn {
		return output.NewCLIError(output.ExitAuth, "not signed in").WithHint("Run: korg auth login")
	}
	return nil
}
