package protocol

import (
	"fmt"
	"strings"
)

// Codec matches tags in a fixed priority order.
type Codec struct {
	tags []Tag
}

var defaultCodec = &Codec{tags: DefaultTags}

// DefaultCodec returns the codec for the reference tag set.
func DefaultCodec() *Codec {
	return defaultCodec
}

// NewCodec validates tags and keeps them in the given priority order.
func NewCodec(tags ...Tag) (*Codec, error) {
	if len(tags) == 0 {
		return nil, ErrEmptyTag
	}
	out := make([]Tag, 0, len(tags))
	for i, tag := range tags {
		if tag == "" {
			return nil, ErrEmptyTag
		}
		if strings.IndexByte(string(tag), Terminator) >= 0 {
			return nil, fmt.Errorf("%w: %q", ErrTerminatorInTag, tag)
		}
		for _, prev := range tags[:i] {
			if strings.HasPrefix(string(tag), string(prev)) || strings.HasPrefix(string(prev), string(tag)) {
				return nil, fmt.Errorf("%w: %q and %q", ErrAmbiguousTag, prev, tag)
			}
		}
		out = append(out, tag)
	}
	return &Codec{tags: out}, nil
}

// Known reports whether tag belongs to the codec tag set.
func (c *Codec) Known(tag Tag) bool {
	for _, t := range c.tags {
		if t == tag {
			return true
		}
	}
	return false
}
