package mail

import (
	"context"
	netmail "net/mail"
	"strings"
)

const maxIDLength = 256

// Executor issues single mutating calls against the gateway and turns any
// error into a *Failure. It never touches folder state.
type Executor struct {
	gw Gateway
}

// NewExecutor creates an Executor.
func NewExecutor(gw Gateway) *Executor {
	return &Executor{gw: gw}
}

// Execute validates id and op, then performs the mutation.
func (e *Executor) Execute(ctx context.Context, id string, op Operation) error {
	if !op.Valid() {
		return NewValidation(string(op), "unknown operation")
	}
	if err := ValidateID(string(op), id); err != nil {
		return err
	}
	if err := e.gw.Mutate(ctx, id, op); err != nil {
		return AsFailure(string(op), err)
	}
	return nil
}

// EmptyTrash permanently deletes everything in trash.
func (e *Executor) EmptyTrash(ctx context.Context) error {
	if err := e.gw.EmptyTrash(ctx); err != nil {
		return AsFailure("emptyTrash", err)
	}
	return nil
}

// ValidateID rejects ids the gateway could never accept.
func ValidateID(op, id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return NewValidation(op, "mail id is required")
	case len(id) > maxIDLength:
		return NewValidation(op, "mail id is too long")
	case strings.ContainsAny(id, " \t\r\n/?#"):
		return NewValidation(op, "mail id %q contains invalid characters", id)
	}
	return nil
}

// ValidateEmail checks a mailbox owner address.
func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return NewValidation("user", "user email is required")
	}
	addr, err := netmail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return NewValidation("user", "malformed user email %q", email)
	}
	return nil
}
