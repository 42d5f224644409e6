package secrets

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
)

// Options selects and configures a Store backend.
type Options struct {
	// Dir holds the encrypted fallback file and the file keyring.
	Dir string
	// Password keys the encrypted fallback file. Empty derives a
	// machine-specific key.
	Password string
	// ForceFile skips the OS keyring.
	ForceFile bool
	Log       *zerolog.Logger
}

// OptionsFromEnv fills Options from KORG_STORE_PASSWORD and KORG_SECRETS_BACKEND.
func OptionsFromEnv(dir string, log *zerolog.Logger) Options {
	return Options{
		Dir:       dir,
		Password:  os.Getenv("KORG_STORE_PASSWORD"),
		ForceFile: strings.EqualFold(os.Getenv("KORG_SECRETS_BACKEND"), "file"),
		Log:       log,
	}
}

// Open returns the OS keyring store, or the encrypted file store when the
// keyring is unusable (WSL, no display server, forced, or failing to open).
func Open(opts Options) (Store, error) {
	log := opts.Log
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}

	switch {
	case opts.ForceFile:
		log.Debug().Msg("file secrets backend forced")
		return NewFileStore(opts.Dir, opts.Password)
	case IsWSL() || IsHeadless():
		log.Info().Msg("no usable keyring in this environment, using encrypted file storage")
		return NewFileStore(opts.Dir, opts.Password)
	}

	store, err := NewKeyringStore(filepath.Join(opts.Dir, "keyring"))
	if err != nil {
		log.Warn().Err(err).Msg("keyring unavailable, falling back to encrypted file")
		return NewFileStore(opts.Dir, opts.Password)
	}
	return store, nil
}

// IsWSL reports whether we run under Windows Subsystem for Linux.
func IsWSL() bool {
	if runtime.GOOS != "linux" {
		return false
	}
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	version := strings.ToLower(string(data))
	return strings.Contains(version, "microsoft") || strings.Contains(version, "wsl")
}

// IsHeadless reports a Linux session without X11 or Wayland.
func IsHeadless() bool {
	if runtime.GOOS != "linux" {
		return false
	}
	return os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == ""
}
