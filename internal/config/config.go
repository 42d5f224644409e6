package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yosuke-furukawa/json5/encoding/json5"

	"github.com/korgan/korg/internal/mail"
)

// Backends selectable with the backend key.
const (
	BackendKorgan = "korgan"
	BackendGmail  = "gmail"
)

// Defaults applied when a key is unset.
const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultRPS            = 10
	DefaultMaxRetries     = 3
	maxPageSize           = 500
)

// OutputModes lists the accepted default_output values.
var OutputModes = []string{"auto", "json", "yaml", "plain", "rich"}

// Config holds the CLI configuration
type Config struct {
	Environment    string `json:"environment"`
	BaseURL        string `json:"base_url,omitempty"`
	Backend        string `json:"backend,omitempty"`
	GmailConfigDir string `json:"gmail_config_dir,omitempty"`
	UserEmail      string `json:"user_email,omitempty"`
	ClientID       string `json:"client_id,omitempty"`
	ClientSecret   string `json:"client_secret,omitempty"`
	PageSize       int    `json:"page_size,omitempty"`
	StaleTTL       string `json:"stale_ttl,omitempty"`
	RequestTimeout string `json:"request_timeout,omitempty"`
	RPS            int    `json:"rps,omitempty"`
	MaxRetries     int    `json:"max_retries,omitempty"`
	DefaultOutput  string `json:"default_output,omitempty"`
	LogLevel       string `json:"log_level,omitempty"`

	path string
}

// Load reads config from the XDG path, returning defaults if the file doesn't exist.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads config from path. Save writes back to the same path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Empty environment means "not set"; resolved in cli.BeforeApply.
			return &Config{path: path}, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Config{path: path}
	if err := json5.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Path returns the file the config is saved to.
func (c *Config) Path() string {
	if c.path == "" {
		return ConfigPath()
	}
	return c.path
}

// Save writes the config file.
func (c *Config) Save() error {
	path := c.Path()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// JSON is valid JSON5.
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Keys returns every settable key in declaration order.
func Keys() []string {
	t := reflect.TypeOf(Config{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if key := jsonKey(t.Field(i)); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

func jsonKey(f reflect.StructField) string {
	if !f.IsExported() {
		return ""
	}
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func (c *Config) field(key string) (reflect.Value, error) {
	v := reflect.ValueOf(c).Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		if jsonKey(t.Field(i)) == key {
			return v.Field(i), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("unknown config key: %s", key)
}

// Get retrieves a config value by key name. Unset int keys read as "".
func (c *Config) Get(key string) (string, error) {
	f, err := c.field(key)
	if err != nil {
		return "", err
	}
	if f.Kind() == reflect.Int {
		if f.Int() == 0 {
			return "", nil
		}
		return strconv.FormatInt(f.Int(), 10), nil
	}
	return f.String(), nil
}

// Set validates and sets a config value by key name, then saves.
func (c *Config) Set(key, value string) error {
	if err := c.Apply(key, value); err != nil {
		return err
	}
	return c.Save()
}

// Apply validates and sets a config value without saving.
func (c *Config) Apply(key, value string) error {
	f, err := c.field(key)
	if err != nil {
		return err
	}
	if err := validate(key, value); err != nil {
		return err
	}
	if f.Kind() == reflect.Int {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %q", key, value)
		}
		f.SetInt(int64(n))
		return nil
	}
	f.SetString(value)
	return nil
}

// Unset resets a config value to its zero value and saves.
func (c *Config) Unset(key string) error {
	f, err := c.field(key)
	if err != nil {
		return err
	}
	f.Set(reflect.Zero(f.Type()))
	return c.Save()
}

func validate(key, value string) error {
	switch key {
	case "environment":
		if _, err := GetEnvironment(value); err != nil {
			return fmt.Errorf("%w (valid: %s)", err, strings.Join(ValidEnvironments(), ", "))
		}
	case "backend":
		if value != BackendKorgan && value != BackendGmail {
			return fmt.Errorf("unknown backend: %s (valid: %s, %s)", value, BackendKorgan, BackendGmail)
		}
	case "user_email":
		return mail.ValidateEmail(value)
	case "stale_ttl", "request_timeout":
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("%s must be a positive duration such as 30s: %q", key, value)
		}
	case "page_size":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > maxPageSize {
			return fmt.Errorf("page_size must be between 1 and %d: %q", maxPageSize, value)
		}
	case "rps", "max_retries":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("%s must be a positive integer: %q", key, value)
		}
	case "default_output":
		if !slices.Contains(OutputModes, value) {
			return fmt.Errorf("unknown output mode: %s (valid: %s)", value, strings.Join(OutputModes, ", "))
		}
	case "log_level":
		if _, err := zerolog.ParseLevel(value); err != nil {
			return fmt.Errorf("unknown log level: %s", value)
		}
	}
	return nil
}

// GetEnvironment returns the endpoints of the configured environment.
func (c *Config) GetEnvironment() (Environment, error) {
	return GetEnvironment(c.Environment)
}

// APIBase returns the gateway base URL, honouring base_url.
func (c *Config) APIBase() (string, error) {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/"), nil
	}
	env, err := c.GetEnvironment()
	if err != nil {
		return "", err
	}
	return env.APIBase, nil
}

// BackendName returns the configured backend, defaulting to korgan.
func (c *Config) BackendName() string {
	if c.Backend == "" {
		return BackendKorgan
	}
	return c.Backend
}

// GmailDir returns the gmail backend credentials directory.
func (c *Config) GmailDir() string {
	if c.GmailConfigDir == "" {
		return GmailConfigDir()
	}
	return c.GmailConfigDir
}

// PageSizeOrDefault returns page_size or mail.DefaultPageSize.
func (c *Config) PageSizeOrDefault() int {
	if c.PageSize <= 0 {
		return mail.DefaultPageSize
	}
	return c.PageSize
}

// StaleTTLDuration returns stale_ttl or mail.DefaultStaleTTL.
func (c *Config) StaleTTLDuration() time.Duration {
	return parseDuration(c.StaleTTL, mail.DefaultStaleTTL)
}

// RequestTimeoutDuration returns request_timeout or DefaultRequestTimeout.
func (c *Config) RequestTimeoutDuration() time.Duration {
	return parseDuration(c.RequestTimeout, DefaultRequestTimeout)
}

// RPSOrDefault returns rps or DefaultRPS.
func (c *Config) RPSOrDefault() int {
	if c.RPS <= 0 {
		return DefaultRPS
	}
	return c.RPS
}

// MaxRetriesOrDefault returns max_retries or DefaultMaxRetries.
func (c *Config) MaxRetriesOrDefault() int {
	if c.MaxRetries <= 0 {
		return DefaultMaxRetries
	}
	return c.MaxRetries
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
