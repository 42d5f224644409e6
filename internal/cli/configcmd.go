package cli

import (
	"fmt"
	"os"

	"github.com/korgan/korg/internal/config"
	"github.com/korgan/korg/internal/output"
)

// ConfigGetCmd implements config get command
type ConfigGetCmd struct {
	Key string `arg:"" help:"Config key to get (e.g., environment, page_size)" predictor:"configkey"`
}

// Run executes the get command
func (cmd *ConfigGetCmd) Run(cfg *config.Config, fp *FormatterProvider) error {
	value, err := cfg.Get(cmd.Key)
	if err != nil {
		return output.NewCLIError(output.ExitNotFound, fmt.Sprintf("Unknown config key: %s", cmd.Key))
	}
	fmt.Fprintln(fp.Stdout, value)
	return nil
}

// ConfigSetCmd implements config set command
type ConfigSetCmd struct {
	Key   string `arg:"" help:"Config key to set" predictor:"configkey"`
	Value string `arg:"" help:"Value to set"`
}

// Run executes the set command
func (cmd *ConfigSetCmd) Run(cfg *config.Config, fp *FormatterProvider) error {
	if _, err := cfg.Get(cmd.Key); err != nil {
		return output.NewCLIError(output.ExitUsage, fmt.Sprintf("Unknown config key: %s", cmd.Key))
	}

	if cmd.Key == "client_secret" {
		fmt.Fprintf(fp.Stderr, "Note: client_secret is stored in the config file in clear text.\n")
	}

	if err := cfg.Set(cmd.Key, cmd.Value); err != nil {
		return output.NewCLIError(output.ExitUsage, fmt.Sprintf("Failed to set config: %v", err))
	}

	shown := cmd.Value
	if isSecretKey(cmd.Key) {
		shown = maskSecret(shown)
	}
	fmt.Fprintf(fp.Stderr, "Set %s = %s\n", cmd.Key, shown)
	return nil
}

// ConfigUnsetCmd implements config unset command
type ConfigUnsetCmd struct {
	Key string `arg:"" help:"Config key to remove" predictor:"configkey"`
}

// Run executes the unset command
func (cmd *ConfigUnsetCmd) Run(cfg *config.Config, fp *FormatterProvider) error {
	if _, err := cfg.Get(cmd.Key); err != nil {
		return output.NewCLIError(output.ExitUsage, fmt.Sprintf("Unknown config key: %s", cmd.Key))
	}
	if err := cfg.Unset(cmd.Key); err != nil {
		return output.NewCLIError(output.ExitGeneral, fmt.Sprintf("Failed to unset config: %v", err))
	}
	fmt.Fprintf(fp.Stderr, "Unset %s\n", cmd.Key)
	return nil
}

// ConfigItem is one row of config list
type ConfigItem struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// ConfigListConfigCmd implements config list command
type ConfigListConfigCmd struct{}

// Run executes the list command
func (cmd *ConfigListConfigCmd) Run(cfg *config.Config, fp *FormatterProvider) error {
	return fp.Formatter.PrintList(configItems(cfg), []output.Column{
		{Name: "Key", Key: "Key"},
		{Name: "Value", Key: "Value"},
	})
}

func configItems(cfg *config.Config) []ConfigItem {
	keys := config.Keys()
	items := make([]ConfigItem, 0, len(keys))
	for _, key := range keys {
		value, _ := cfg.Get(key)
		if isSecretKey(key) {
			value = maskSecret(value)
		}
		items = append(items, ConfigItem{Key: key, Value: value})
	}
	return items
}

func isSecretKey(key string) bool {
	return key == "client_secret"
}

// maskSecret masks sensitive values, showing only last 4 characters
func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

// ConfigPathCmd implements config path command
type ConfigPathCmd struct{}

// Run executes the path command
func (cmd *ConfigPathCmd) Run(cfg *config.Config, fp *FormatterProvider) error {
	path := cfg.Path()
	fmt.Fprintln(fp.Stdout, path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(fp.Stderr, "(file does not exist yet - will be created on first write)\n")
	} else {
		fmt.Fprintf(fp.Stderr, "(file exists)\n")
	}
	return nil
}
