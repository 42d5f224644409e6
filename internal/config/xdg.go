package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const appName = "korg"

// ConfigDir returns the XDG config directory for korg, typically ~/.config/korg.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json5")
}

// CacheDir returns the XDG cache directory, home of the access token cache.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, appName)
}

// DataDir returns the XDG data directory, home of the encrypted secrets
// fallback file.
func DataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// GmailConfigDir returns the default credentials directory of the gmail backend.
func GmailConfigDir() string {
	return filepath.Join(ConfigDir(), "gmail")
}
