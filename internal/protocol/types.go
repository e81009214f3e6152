package protocol

import "strings"

const (
	// MaxMessageSize bounds one encoded command, terminator included.
	MaxMessageSize = 1024

	// Terminator closes every encoded command.
	Terminator byte = '\n'
)

// Tag identifies a command by fixed wire prefix.
type Tag string

const (
	TagNavigate Tag = "URI="
	TagQuit     Tag = "QUIT"
)

// DefaultTags is the reference tag set in decode priority order.
var DefaultTags = []Tag{TagNavigate, TagQuit}

// Command is one decoded tag/payload pair.
type Command struct {
	Tag     Tag
	Payload []byte
}

// Navigate builds a navigate command for uri.
func Navigate(uri string) Command {
	return Command{Tag: TagNavigate, Payload: []byte(uri)}
}

// Quit builds a terminate command.
func Quit() Command {
	return Command{Tag: TagQuit}
}

func (c Command) String() string {
	if len(c.Payload) == 0 {
		return string(c.Tag)
	}
	return string(c.Tag) + string(c.Payload)
}

// Name is the tag without trailing punctuation, used for logs and metric labels.
func (t Tag) Name() string {
	name := strings.TrimRight(string(t), "=:")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(name)
}
