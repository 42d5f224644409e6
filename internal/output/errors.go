package output

import (
	"errors"
	"net/http"

	"github.com/korgan/korg/internal/mail"
)

// Exit codes following sysexits.h convention
const (
	ExitOK           = 0  // Success
	ExitGeneral      = 1  // General error, cancelled operations
	ExitUsage        = 2  // Invalid usage / bad arguments
	ExitAuth         = 3  // Authentication failure
	ExitNotFound     = 4  // Message or folder not found
	ExitConflict     = 5  // Conflict
	ExitForbidden    = 6  // Permission denied
	ExitRateLimit    = 75 // Rate limited (EX_TEMPFAIL from sysexits.h)
	ExitTimeout      = 8  // Request timeout
	ExitAPIError     = 9  // Gateway error (non-specific)
	ExitConfigError  = 10 // Configuration error
	ExitNetworkError = 11 // Network connectivity error
)

// CLIError represents a structured error with exit code and optional hint
type CLIError struct {
	ExitCode int
	Message  string
	Hint     string
}

// Error implements the error interface
func (e *CLIError) Error() string {
	return e.Message
}

// NewCLIError creates a new CLIError
func NewCLIError(code int, msg string) *CLIError {
	return &CLIError{
		ExitCode: code,
		Message:  msg,
	}
}

// WithHint adds a user-facing hint to the error
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// FromError converts any error into a CLIError. Mailbox failures map to exit
// codes by kind and HTTP status.
func FromError(err error) *CLIError {
	if err == nil {
		return nil
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	var f *mail.Failure
	if !errors.As(err, &f) {
		return NewCLIError(ExitGeneral, err.Error())
	}

	switch f.Kind {
	case mail.KindValidation:
		return NewCLIError(ExitUsage, f.Error())
	case mail.KindCancelled:
		return NewCLIError(ExitGeneral, f.Error())
	case mail.KindNetwork:
		return NewCLIError(ExitNetworkError, f.Error()).WithHint("Check your connection and try again")
	case mail.KindServer:
		switch {
		case f.Status == http.StatusUnauthorized:
			return NewCLIError(ExitAuth, f.Error()).WithHint("Run: korg auth login")
		case f.Status == http.StatusForbidden:
			return NewCLIError(ExitForbidden, f.Error())
		case f.Status == http.StatusNotFound:
			return NewCLIError(ExitNotFound, f.Error())
		case f.Status == http.StatusConflict:
			return NewCLIError(ExitConflict, f.Error())
		case f.Status == http.StatusTooManyRequests:
			return NewCLIError(ExitRateLimit, f.Error()).WithHint("Lower rps with: korg config set rps 5")
		}
		return NewCLIError(ExitAPIError, f.Error())
	}
	return NewCLIError(ExitAPIError, f.Error())
}

// Report prints err with its hint and returns the exit code to use.
func Report(formatter Formatter, err error) int {
	if err == nil {
		return ExitOK
	}
	cliErr := FromError(err)
	formatter.PrintError(cliErr)
	if cliErr.Hint != "" {
		formatter.PrintHint(cliErr.Hint)
	}
	return cliErr.ExitCode
}
