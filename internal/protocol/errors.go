package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrMalformed           = errors.New("protocol: malformed command")
	ErrEmpty               = errors.New("protocol: empty message")
	ErrMissingTerminator   = errors.New("protocol: missing terminator")
	ErrMessageTooLarge     = errors.New("protocol: message too large")
	ErrUnknownCommand      = errors.New("protocol: unknown command")
	ErrEmptyTag            = errors.New("protocol: empty tag")
	ErrAmbiguousTag        = errors.New("protocol: ambiguous tag")
	ErrTerminatorInPayload = errors.New("protocol: terminator in payload")
	ErrTerminatorInTag     = errors.New("protocol: terminator in tag")
)

// UnknownCommandError carries a well-terminated line that matched no tag.
type UnknownCommandError struct {
	Line []byte
}

func (e UnknownCommandError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownCommand, e.Line)
}

func (e UnknownCommandError) Unwrap() error {
	return ErrUnknownCommand
}

func malformed(cause error) error {
	return fmt.Errorf("%w: %w", ErrMalformed, cause)
}
