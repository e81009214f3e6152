package protocol

import (
	"bytes"
	"fmt"
)

// Encode frames cmd with the default codec.
func Encode(cmd Command) ([]byte, error) {
	return defaultCodec.Encode(cmd)
}

// Encode frames cmd as tag, payload and terminator. Payloads are not
// escaped, so a payload carrying the terminator is refused.
func (c *Codec) Encode(cmd Command) ([]byte, error) {
	if cmd.Tag == "" {
		return nil, ErrEmptyTag
	}
	if !c.Known(cmd.Tag) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Tag)
	}
	if bytes.IndexByte(cmd.Payload, Terminator) >= 0 {
		return nil, ErrTerminatorInPayload
	}
	size := len(cmd.Tag) + len(cmd.Payload) + 1
	if size > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, size, MaxMessageSize)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, cmd.Tag...)
	buf = append(buf, cmd.Payload...)
	buf = append(buf, Terminator)
	return buf, nil
}
