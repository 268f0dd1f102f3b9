package messaging

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownReceipt indicates an ack or dead-letter call with a receipt
	// that matches no in-flight message (already acknowledged, or the
	// visibility window lapsed and the message was redelivered).
	ErrUnknownReceipt = errors.New("unknown receipt handle")

	// ErrNoDeadLetterQueue indicates a dead-letter request on a queue with
	// no dead-letter queue configured.
	ErrNoDeadLetterQueue = errors.New("no dead-letter queue configured")
)

// TerminalError marks a handler failure that retrying cannot fix. The
// dispatcher moves the message to the dead-letter queue instead of leaving
// it for redelivery.
type TerminalError struct {
	Err error
}

func (e *TerminalError) Error() string {
	return e.Err.Error()
}

func (e *TerminalError) Unwrap() error {
	return e.Err
}

// Terminal wraps err as a TerminalError. A nil err returns nil.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &TerminalError{Err: err}
}

// Terminalf formats a new TerminalError.
func Terminalf(format string, args ...any) error {
	return &TerminalError{Err: fmt.Errorf(format, args...)}
}

// IsTerminal reports whether any error in err's chain is a TerminalError.
func IsTerminal(err error) bool {
	var te *TerminalError
	return errors.As(err, &te)
}
