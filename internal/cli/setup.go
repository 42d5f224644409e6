package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/oauth2"

	"github.com/korgan/korg/internal/auth"
	"github.com/korgan/korg/internal/config"
	"github.com/korgan/korg/internal/output"
)

// SetupCmd implements the interactive setup wizard
type SetupCmd struct {
	SkipLogin bool `help:"Only write the config file" name:"skip-login"`
}

// setupAnswer is one prompted config key.
type setupAnswer struct {
	key      string
	label    string
	required bool
}

var setupSteps = []setupAnswer{
	{key: "environment", label: "Environment (production, staging, local)"},
	{key: "backend", label: "Backend (korgan, gmail)"},
	{key: "user_email", label: "Mailbox address"},
	{key: "client_id", label: "OAuth client ID", required: true},
	{key: "client_secret", label: "OAuth client secret", required: true},
}

// Run executes the setup wizard
func (cmd *SetupCmd) Run(ctx context.Context, cfg *config.Config, sp *ServiceProvider, fp *FormatterProvider) error {
	reader := bufio.NewReader(os.Stdin)
	w := fp.Stderr

	fmt.Fprintf(w, "\n  korg setup\n  ==========\n\n")
	if err := askConfig(reader, w, cfg); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return output.NewCLIError(output.ExitGeneral, fmt.Sprintf("Failed to save config: %v", err))
	}
	fmt.Fprintf(w, "\n  Saved %s\n", cfg.Path())

	if cmd.SkipLogin || cfg.BackendName() == config.BackendGmail {
		fmt.Fprintf(w, "\n  Next: korg mail list\n\n")
		return nil
	}

	answer := prompt(reader, w, "\n  Open browser to sign in? [Y/n]: ")
	tokens, err := sp.Tokens()
	if err != nil {
		return err
	}
	var token *oauth2.Token
	if strings.EqualFold(answer, "n") {
		token, err = auth.ManualLogin(ctx, cfg, reader, w)
	} else {
		token, err = auth.InteractiveLogin(ctx, cfg, w)
	}
	if err != nil {
		return output.NewCLIError(output.ExitAuth, fmt.Sprintf("Login failed: %v", err))
	}
	if err := tokens.SaveLogin(token); err != nil {
		return output.NewCLIError(output.ExitGeneral, fmt.Sprintf("Failed to save tokens: %v", err))
	}

	fmt.Fprintf(w, "\n  Setup complete. Try:\n\n")
	fmt.Fprintf(w, "    korg mail list\n")
	fmt.Fprintf(w, "    korg mail list --unread --from boss@example.com\n")
	fmt.Fprintf(w, "    korg mail shell\n\n")
	return nil
}

// askConfig prompts for each setup key, keeping the current value on empty
// input. Values are validated the same way as config set.
func askConfig(reader *bufio.Reader, w io.Writer, cfg *config.Config) error {
	for _, step := range setupSteps {
		current, _ := cfg.Get(step.key)
		label := step.label
		if current != "" {
			shown := current
			if isSecretKey(step.key) {
				shown = maskSecret(current)
			}
			label += " [" + shown + "]"
		}
		value := prompt(reader, w, "  "+label+": ")
		if value == "" {
			value = current
		}
		if value == "" {
			if step.required {
				return output.NewCLIError(output.ExitUsage, step.label+" is required")
			}
			continue
		}
		if err := cfg.Apply(step.key, value); err != nil {
			return output.NewCLIError(output.ExitUsage, err.Error())
		}
	}
	return nil
}

// prompt prints a prompt and reads a line of input
func prompt(reader *bufio.Reader, w io.Writer, text string) string {
	fmt.Fprint(w, text)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

// NeedsSetup returns true if the CLI has not been configured yet
func NeedsSetup(cfg *config.Config) bool {
	return cfg.BackendName() == config.BackendKorgan && (cfg.ClientID == "" || cfg.ClientSecret == "")
}
