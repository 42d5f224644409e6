package mail

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a Failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNetwork
	KindServer
	KindParse
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindParse:
		return "parse"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Failure is the typed error returned by every mailbox operation and by gateways.
type Failure struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "list", "markRead"
	Message string // human-readable, suitable for a banner
	Status  int    // HTTP status when the gateway answered, 0 otherwise
	Err     error
}

func (f *Failure) Error() string {
	if f.Op == "" {
		return f.Message
	}
	return fmt.Sprintf("%s: %s", f.Op, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Retryable reports whether repeating the same call could succeed.
func (f *Failure) Retryable() bool {
	switch f.Kind {
	case KindNetwork:
		return true
	case KindServer:
		return f.Status == 429 || f.Status >= 500
	default:
		return false
	}
}

// NewValidation builds a validation failure. Validation failures are raised
// before any state change or network call.
func NewValidation(op, format string, args ...any) *Failure {
	return &Failure{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// AsFailure returns err as a *Failure, wrapping foreign errors.
// Context cancellation maps to KindCancelled and deadlines to KindNetwork.
func AsFailure(op string, err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		if f.Op == "" {
			cp := *f
			cp.Op = op
			return &cp
		}
		return f
	}
	switch {
	case errors.Is(err, context.Canceled):
		return &Failure{Kind: KindCancelled, Op: op, Message: "operation cancelled", Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Failure{Kind: KindNetwork, Op: op, Message: "request timed out", Err: err}
	default:
		return &Failure{Kind: KindUnknown, Op: op, Message: err.Error(), Err: err}
	}
}

// IsKind reports whether err is a Failure of the given kind.
func IsKind(err error, kind Kind) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == kind
}
