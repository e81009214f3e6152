package protocol

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/kioskctl/internal/testutil/testlog"
)

func TestRoundTripEncodeDecode(t *testing.T) {
	testlog.Start(t)
	payloads := []string{
		"",
		"http://example.test/",
		"https://example.test/a?b=c&d=URI=QUIT",
		"file:///srv/kiosk/index.html",
		"QUIT",
		strings.Repeat("x", MaxMessageSize-len(TagNavigate)-1),
	}
	for _, tag := range DefaultTags {
		for _, p := range payloads {
			if len(tag)+len(p)+1 > MaxMessageSize {
				continue
			}
			in := Command{Tag: tag, Payload: []byte(p)}
			buf, err := Encode(in)
			if err != nil {
				t.Fatalf("encode %s: %v", in, err)
			}
			out, err := Decode(buf)
			if err != nil {
				t.Fatalf("decode %q: %v", buf, err)
			}
			if out.Tag != in.Tag || !bytes.Equal(out.Payload, in.Payload) {
				t.Fatalf("round-trip mismatch: got=%q/%q want=%q/%q", out.Tag, out.Payload, in.Tag, in.Payload)
			}
		}
	}
}

func TestEncodeWireFormat(t *testing.T) {
	testlog.Start(t)
	buf, err := Encode(Navigate("http://example.test/"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(buf) != "URI=http://example.test/\n" {
		t.Fatalf("unexpected wire bytes: %q", buf)
	}
	buf, err = Encode(Quit())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(buf) != "QUIT\n" {
		t.Fatalf("unexpected wire bytes: %q", buf)
	}
}

func TestEncodeRejectsTerminatorInPayload(t *testing.T) {
	testlog.Start(t)
	_, err := Encode(Navigate("http://a/\nQUIT"))
	if !errors.Is(err, ErrTerminatorInPayload) {
		t.Fatalf("expected ErrTerminatorInPayload, got %v", err)
	}
}

func TestEncodeRejectsOversize(t *testing.T) {
	testlog.Start(t)
	_, err := Encode(Navigate(strings.Repeat("a", MaxMessageSize)))
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("expected ErrMessageTooLarge, got %v", err)
	}
}

func TestEncodeRejectsUnknownTag(t *testing.T) {
	testlog.Start(t)
	_, err := Encode(Command{Tag: "RELOAD"})
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	_, err = Encode(Command{})
	if !errors.Is(err, ErrEmptyTag) {
		t.Fatalf("expected ErrEmptyTag, got %v", err)
	}
}

func TestDecodeWithoutTerminatorIsMalformed(t *testing.T) {
	testlog.Start(t)
	buf := bytes.Repeat([]byte{'U'}, MaxMessageSize)
	for n := 0; n <= MaxMessageSize; n++ {
		_, err := Decode(buf[:n])
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("len=%d: expected ErrMalformed, got %v", n, err)
		}
	}
}

func TestDecodeDoesNotReadPastReceivedBytes(t *testing.T) {
	testlog.Start(t)
	backing := []byte("URI=http://a/\n")
	_, err := Decode(backing[:len(backing)-1])
	if !errors.Is(err, ErrMissingTerminator) {
		t.Fatalf("expected ErrMissingTerminator, got %v", err)
	}
}

func TestDecodeOversizeIsMalformed(t *testing.T) {
	testlog.Start(t)
	buf := append([]byte("URI="), bytes.Repeat([]byte{'a'}, MaxMessageSize)...)
	buf = append(buf, Terminator)
	_, err := Decode(buf)
	if !errors.Is(err, ErrMalformed) || !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("expected malformed oversize, got %v", err)
	}
}

func TestDecodeEmptyIsMalformed(t *testing.T) {
	testlog.Start(t)
	_, err := Decode(nil)
	if !errors.Is(err, ErrMalformed) || !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected malformed empty, got %v", err)
	}
}

func TestDecodeUnknownTag(t *testing.T) {
	testlog.Start(t)
	for _, raw := range []string{"RELOAD\n", "quit\n", "uri=http://a/\n", "\n", "QUI\n"} {
		_, err := Decode([]byte(raw))
		if !errors.Is(err, ErrUnknownCommand) {
			t.Fatalf("%q: expected ErrUnknownCommand, got %v", raw, err)
		}
		var unknown UnknownCommandError
		if !errors.As(err, &unknown) {
			t.Fatalf("%q: expected UnknownCommandError, got %T", raw, err)
		}
		if string(unknown.Line) != strings.TrimSuffix(raw, "\n") {
			t.Fatalf("%q: unexpected line %q", raw, unknown.Line)
		}
	}
}

func TestDecodeTruncatesAtFirstTerminator(t *testing.T) {
	testlog.Start(t)
	cmd, err := Decode([]byte("URI=http://a/\ntrailing junk"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cmd.Tag != TagNavigate || string(cmd.Payload) != "http://a/" {
		t.Fatalf("unexpected command: %s", cmd)
	}
}

func TestDecodePayloadIsCopied(t *testing.T) {
	testlog.Start(t)
	buf := []byte("URI=http://a/\n")
	cmd, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	buf[4] = 'X'
	if string(cmd.Payload) != "http://a/" {
		t.Fatalf("payload aliases receive buffer: %q", cmd.Payload)
	}
}

func TestNewCodecRejectsAmbiguousTags(t *testing.T) {
	testlog.Start(t)
	_, err := NewCodec("GO", "GOTO=")
	if !errors.Is(err, ErrAmbiguousTag) {
		t.Fatalf("expected ErrAmbiguousTag, got %v", err)
	}
	_, err = NewCodec("A\n")
	if !errors.Is(err, ErrTerminatorInTag) {
		t.Fatalf("expected ErrTerminatorInTag, got %v", err)
	}
	_, err = NewCodec()
	if !errors.Is(err, ErrEmptyTag) {
		t.Fatalf("expected ErrEmptyTag, got %v", err)
	}
}

func TestCustomCodecExtendsTagSet(t *testing.T) {
	testlog.Start(t)
	codec, err := NewCodec(TagNavigate, TagQuit, "RELOAD")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	buf, err := codec.Encode(Command{Tag: "RELOAD"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	cmd, err := codec.Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cmd.Tag != "RELOAD" || len(cmd.Payload) != 0 {
		t.Fatalf("unexpected command: %s", cmd)
	}
	if _, err := Decode(buf); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("default codec should not know RELOAD, got %v", err)
	}
}

func TestTagName(t *testing.T) {
	testlog.Start(t)
	if TagNavigate.Name() != "uri" || TagQuit.Name() != "quit" {
		t.Fatalf("unexpected tag names: %s %s", TagNavigate.Name(), TagQuit.Name())
	}
}
