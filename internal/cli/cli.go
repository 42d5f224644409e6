package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/willabides/kongplete"

	"github.com/korgan/korg/internal/config"
	"github.com/korgan/korg/internal/logging"
	"github.com/korgan/korg/internal/output"
)

// FormatterProvider wraps the formatter for Kong binding together with the
// resolved mode and the diagnostics writer.
type FormatterProvider struct {
	Formatter output.Formatter
	Mode      string
	Stdout    io.Writer
	Stderr    io.Writer
}

// Structured reports whether results are emitted as json or yaml documents.
func (fp *FormatterProvider) Structured() bool {
	return fp.Mode == "json" || fp.Mode == "yaml"
}

// CLI is the root command structure
type CLI struct {
	Globals

	Auth       AuthCmd                      `cmd:"" help:"Authentication commands"`
	Config     ConfigCmd                    `cmd:"" help:"Configuration commands"`
	Mail       MailCmd                      `cmd:"" help:"Mail operations"`
	Setup      SetupCmd                     `cmd:"" help:"Interactive first-run setup"`
	Completion kongplete.InstallCompletions `cmd:"" help:"Install shell completions"`
	Version    VersionCmd                   `cmd:"" help:"Show version information"`
}

// AfterApply runs once flags are parsed. It loads config, resolves the
// environment, builds the logger and formatter, and binds them.
func (c *CLI) AfterApply(ctx *kong.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return output.NewCLIError(output.ExitConfigError, err.Error()).
			WithHint("Check " + config.ConfigPath())
	}

	// Environment: flag > config > production
	if c.Env != "" {
		cfg.Environment = c.Env
	}
	if cfg.Environment == "" {
		cfg.Environment = config.DefaultEnvironment
	}
	if _, err := cfg.GetEnvironment(); err != nil {
		return output.NewCLIError(output.ExitUsage, err.Error())
	}

	log := logging.New(logging.Options{Level: cfg.LogLevel, Verbose: c.Verbose})

	mode := c.ResolvedOutput(cfg.DefaultOutput)
	var formatter output.Formatter
	if mode == "json" && c.ResultsOnly {
		formatter = output.NewJSON(true)
	} else {
		formatter = output.NewWithWriters(mode, os.Stdout, os.Stderr)
	}
	fp := &FormatterProvider{Formatter: formatter, Mode: mode, Stdout: os.Stdout, Stderr: os.Stderr}

	version := ctx.Model.Vars()["version"]
	ctx.Bind(cfg)
	ctx.Bind(fp)
	ctx.Bind(&c.Globals)
	ctx.Bind(log)
	ctx.Bind(NewServiceProvider(cfg, log, "korg/"+version))
	return nil
}

// AuthCmd holds authentication subcommands
type AuthCmd struct {
	Login  AuthLoginCmd  `cmd:"" help:"Sign in to your Korgan account"`
	Logout AuthLogoutCmd `cmd:"" help:"Sign out and remove stored credentials"`
	Status AuthStatusCmd `cmd:"" help:"Show the signed-in account"`
}

// ConfigCmd holds configuration subcommands
type ConfigCmd struct {
	Get   ConfigGetCmd        `cmd:"" help:"Get a configuration value"`
	Set   ConfigSetCmd        `cmd:"" help:"Set a configuration value"`
	Unset ConfigUnsetCmd      `cmd:"" help:"Remove a configuration value"`
	List  ConfigListConfigCmd `cmd:"" name:"list" help:"List all configuration values"`
	Path  ConfigPathCmd       `cmd:"" help:"Show config file path"`
}

// MailCmd holds mail subcommands
type MailCmd struct {
	Folders    MailFoldersCmd    `cmd:"" help:"List mail folders"`
	List       MailListCmd       `cmd:"" help:"List messages in a folder"`
	Get        MailGetCmd        `cmd:"" help:"Show one message"`
	Read       MailReadCmd       `cmd:"" help:"Mark messages read"`
	Unread     MailUnreadCmd     `cmd:"" help:"Mark messages unread"`
	Star       MailStarCmd       `cmd:"" help:"Star a message"`
	Unstar     MailUnstarCmd     `cmd:"" help:"Remove the star from a message"`
	Trash      MailTrashCmd      `cmd:"" help:"Move messages to trash"`
	Archive    MailArchiveCmd    `cmd:"" help:"Archive a message"`
	Restore    MailRestoreCmd    `cmd:"" help:"Restore a message from trash"`
	Delete     MailDeleteCmd     `cmd:"" help:"Permanently delete a message"`
	EmptyTrash MailEmptyTrashCmd `cmd:"" name:"empty-trash" help:"Permanently delete everything in trash"`
	Shell      MailShellCmd      `cmd:"" help:"Interactive mailbox session"`
}

// VersionCmd shows version information
type VersionCmd struct{}

func (cmd *VersionCmd) Run(ctx *kong.Context, fp *FormatterProvider) error {
	version := ctx.Model.Vars()["version"]
	if fp.Structured() {
		return fp.Formatter.Print(map[string]string{"version": version})
	}
	fmt.Fprintln(fp.Stdout, "korg version "+version)
	return nil
}
