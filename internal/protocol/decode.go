package protocol

import (
	"bytes"
	"fmt"
)

// Decode parses one received datagram with the default codec.
func Decode(b []byte) (Command, error) {
	return defaultCodec.Decode(b)
}

// Decode parses exactly the received bytes in b. Input without a
// terminator, empty input and input above MaxMessageSize are malformed.
// A terminated line that matches no tag yields UnknownCommandError.
func (c *Codec) Decode(b []byte) (Command, error) {
	if len(b) == 0 {
		return Command{}, malformed(ErrEmpty)
	}
	if len(b) > MaxMessageSize {
		return Command{}, malformed(fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(b), MaxMessageSize))
	}

	end := bytes.IndexByte(b, Terminator)
	if end < 0 {
		return Command{}, malformed(ErrMissingTerminator)
	}
	line := b[:end]

	for _, tag := range c.tags {
		if !bytes.HasPrefix(line, []byte(tag)) {
			continue
		}
		rest := line[len(tag):]
		var payload []byte
		if len(rest) > 0 {
			payload = make([]byte, len(rest))
			copy(payload, rest)
		}
		return Command{Tag: tag, Payload: payload}, nil
	}

	raw := make([]byte, len(line))
	copy(raw, line)
	return Command{}, UnknownCommandError{Line: raw}
}
