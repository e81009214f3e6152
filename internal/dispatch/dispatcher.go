package dispatch

import (
	"errors"

	"github.com/danmuck/kioskctl/internal/channel"
	"github.com/danmuck/kioskctl/internal/host"
	"github.com/danmuck/kioskctl/internal/logging"
	"github.com/danmuck/kioskctl/internal/protocol"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"
)

// Outcome classifies what one readiness event did.
type Outcome string

const (
	OutcomeIdle        Outcome = "idle"
	OutcomeRecvError   Outcome = "recv_error"
	OutcomeEmpty       Outcome = "empty"
	OutcomeMalformed   Outcome = "malformed"
	OutcomeUnknown     Outcome = "unknown"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeIgnored     Outcome = "ignored"
	OutcomeNavigate    Outcome = "navigate"
	OutcomeTerminate   Outcome = "terminate"
)

// Receiver performs one non-blocking receive.
type Receiver interface {
	Recv(buf []byte) (int, error)
}

// Recorder observes dispatch outcomes and decoded command names.
type Recorder interface {
	Outcome(outcome string)
	Command(command string)
}

type nopRecorder struct{}

func (nopRecorder) Outcome(string) {}
func (nopRecorder) Command(string) {}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithCodec(codec *protocol.Codec) Option {
	return func(d *Dispatcher) {
		if codec != nil {
			d.codec = codec
		}
	}
}

// WithLimiter drops datagrams the limiter does not allow.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(d *Dispatcher) {
		d.limiter = limiter
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithRecorder(rec Recorder) Option {
	return func(d *Dispatcher) {
		if rec != nil {
			d.recorder = rec
		}
	}
}

// Dispatcher routes decoded commands to host actions. It is not safe for
// concurrent use; the host loop serializes calls.
type Dispatcher struct {
	actions  host.Actions
	codec    *protocol.Codec
	limiter  *rate.Limiter
	logger   zerolog.Logger
	recorder Recorder

	buf        [protocol.MaxMessageSize + 1]byte
	terminated bool
}

func New(actions host.Actions, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		actions:  actions,
		codec:    protocol.DefaultCodec(),
		logger:   logging.For("dispatch"),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Terminated reports whether a terminate command has been dispatched.
func (d *Dispatcher) Terminated() bool {
	return d.terminated
}

// OnReadable handles one readiness notification: a single receive into
// the fixed buffer followed by Dispatch.
func (d *Dispatcher) OnReadable(r Receiver) Outcome {
	n, err := r.Recv(d.buf[:])
	switch {
	case err == nil:
	case errors.Is(err, channel.ErrWouldBlock), errors.Is(err, unix.EINTR):
		return d.record(OutcomeIdle)
	case errors.Is(err, channel.ErrTruncatedDatagram):
		d.logger.Warn().Int("bytes", n).Msg("command dropped: datagram exceeds receive buffer")
		return d.record(OutcomeMalformed)
	default:
		d.logger.Warn().Err(err).Msg("command recv failed")
		return d.record(OutcomeRecvError)
	}
	if n == 0 {
		d.logger.Warn().Msg("command recv empty")
		return d.record(OutcomeEmpty)
	}
	return d.Dispatch(d.buf[:n])
}

// Dispatch decodes b and invokes at most one host action.
func (d *Dispatcher) Dispatch(b []byte) Outcome {
	if d.terminated {
		d.logger.Debug().Int("bytes", len(b)).Msg("command ignored after terminate")
		return d.record(OutcomeIgnored)
	}
	if d.limiter != nil && !d.limiter.Allow() {
		d.logger.Warn().Int("bytes", len(b)).Msg("command dropped: rate limited")
		return d.record(OutcomeRateLimited)
	}

	cmd, err := d.codec.Decode(b)
	if err != nil {
		var unknown protocol.UnknownCommandError
		if errors.As(err, &unknown) {
			d.logger.Warn().Bytes("line", unknown.Line).Msg("command dropped: unknown")
			return d.record(OutcomeUnknown)
		}
		d.logger.Warn().Err(err).Int("bytes", len(b)).Msg("command dropped: malformed")
		return d.record(OutcomeMalformed)
	}
	d.recorder.Command(cmd.Tag.Name())

	switch cmd.Tag {
	case protocol.TagNavigate:
		uri := string(cmd.Payload)
		d.logger.Info().Str("uri", uri).Msg("command uri")
		d.actions.Navigate(uri)
		return d.record(OutcomeNavigate)
	case protocol.TagQuit:
		d.logger.Info().Msg("command quit")
		d.terminated = true
		d.actions.Terminate()
		return d.record(OutcomeTerminate)
	default:
		d.logger.Warn().Str("tag", string(cmd.Tag)).Msg("command dropped: no action bound")
		return d.record(OutcomeUnknown)
	}
}

func (d *Dispatcher) record(outcome Outcome) Outcome {
	d.recorder.Outcome(string(outcome))
	return outcome
}
