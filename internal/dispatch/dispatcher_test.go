package dispatch

import (
	"math/rand"
	"testing"

	"github.com/danmuck/kioskctl/internal/channel"
	"github.com/danmuck/kioskctl/internal/protocol"
	"github.com/danmuck/kioskctl/internal/testutil/testlog"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"
)

type fakeActions struct {
	navigations []string
	terminates  int
}

func (a *fakeActions) Navigate(uri string) { a.navigations = append(a.navigations, uri) }
func (a *fakeActions) Terminate()          { a.terminates++ }

type fakeReceiver struct {
	data []byte
	n    int
	err  error
}

func (r fakeReceiver) Recv(buf []byte) (int, error) {
	if r.data != nil {
		return copy(buf, r.data), r.err
	}
	return r.n, r.err
}

type countingRecorder struct {
	outcomes map[string]int
	commands map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{outcomes: map[string]int{}, commands: map[string]int{}}
}

func (r *countingRecorder) Outcome(o string) { r.outcomes[o]++ }
func (r *countingRecorder) Command(c string) { r.commands[c]++ }

func TestDispatchNavigateVerbatim(t *testing.T) {
	testlog.Start(t)
	actions := &fakeActions{}
	d := New(actions)
	for _, uri := range []string{"http://example.test/", "not even a uri", "javascript:alert(1)", ""} {
		if got := d.Dispatch([]byte("URI=" + uri + "\n")); got != OutcomeNavigate {
			t.Fatalf("%q: expected navigate, got %s", uri, got)
		}
	}
	if len(actions.navigations) != 4 || actions.navigations[0] != "http://example.test/" || actions.navigations[2] != "javascript:alert(1)" {
		t.Fatalf("unexpected navigations: %q", actions.navigations)
	}
	if actions.terminates != 0 {
		t.Fatalf("unexpected terminate")
	}
}

func TestDispatchQuitOnceThenIgnore(t *testing.T) {
	testlog.Start(t)
	actions := &fakeActions{}
	d := New(actions)
	if got := d.Dispatch([]byte("QUIT\n")); got != OutcomeTerminate {
		t.Fatalf("expected terminate, got %s", got)
	}
	if got := d.Dispatch([]byte("QUIT\n")); got != OutcomeIgnored {
		t.Fatalf("expected ignored, got %s", got)
	}
	if got := d.Dispatch([]byte("URI=http://late.test/\n")); got != OutcomeIgnored {
		t.Fatalf("expected ignored, got %s", got)
	}
	if actions.terminates != 1 || len(actions.navigations) != 0 {
		t.Fatalf("unexpected actions: %+v", actions)
	}
	if !d.Terminated() {
		t.Fatalf("expected terminated dispatcher")
	}
}

func TestDispatchDropsBadInput(t *testing.T) {
	testlog.Start(t)
	cases := map[string]Outcome{
		"RELOAD\n":           OutcomeUnknown,
		"uri=http://a/\n":    OutcomeUnknown,
		"URI=http://a/":      OutcomeMalformed,
		"QUIT":               OutcomeMalformed,
		string(make([]byte, protocol.MaxMessageSize+1)): OutcomeMalformed,
	}
	for raw, want := range cases {
		actions := &fakeActions{}
		d := New(actions)
		if got := d.Dispatch([]byte(raw)); got != want {
			t.Fatalf("%.20q: expected %s, got %s", raw, want, got)
		}
		if len(actions.navigations) != 0 || actions.terminates != 0 {
			t.Fatalf("%.20q: bad input reached host: %+v", raw, actions)
		}
	}
}

func TestDispatchNeverPanicsOnRandomInput(t *testing.T) {
	testlog.Start(t)
	rng := rand.New(rand.NewSource(1))
	actions := &fakeActions{}
	d := New(actions, WithLogger(zerolog.Nop()))
	for i := 0; i < 2000; i++ {
		buf := make([]byte, rng.Intn(protocol.MaxMessageSize+2))
		rng.Read(buf)
		d.Dispatch(buf)
		if d.Terminated() {
			d = New(actions, WithLogger(zerolog.Nop()))
		}
	}
}

func TestOnReadableReceiveOutcomes(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name string
		recv fakeReceiver
		want Outcome
	}{
		{"would block", fakeReceiver{err: channel.ErrWouldBlock}, OutcomeIdle},
		{"interrupted", fakeReceiver{err: unix.EINTR}, OutcomeIdle},
		{"recv error", fakeReceiver{err: unix.ECONNREFUSED}, OutcomeRecvError},
		{"released", fakeReceiver{err: channel.ErrReleased}, OutcomeRecvError},
		{"empty", fakeReceiver{n: 0}, OutcomeEmpty},
		{"truncated", fakeReceiver{n: protocol.MaxMessageSize + 1, err: channel.ErrTruncatedDatagram}, OutcomeMalformed},
		{"navigate", fakeReceiver{data: []byte("URI=http://example.test/\n")}, OutcomeNavigate},
		{"quit", fakeReceiver{data: []byte("QUIT\n")}, OutcomeTerminate},
	}
	for _, tc := range cases {
		actions := &fakeActions{}
		d := New(actions)
		if got := d.OnReadable(tc.recv); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestOnReadableBoundsReceiveBuffer(t *testing.T) {
	testlog.Start(t)
	var size int
	d := New(&fakeActions{})
	d.OnReadable(receiverFunc(func(buf []byte) (int, error) {
		size = len(buf)
		return 0, channel.ErrWouldBlock
	}))
	if size != protocol.MaxMessageSize+1 {
		t.Fatalf("expected receive buffer of %d, got %d", protocol.MaxMessageSize+1, size)
	}
}

func TestDispatchRateLimited(t *testing.T) {
	testlog.Start(t)
	actions := &fakeActions{}
	d := New(actions, WithLimiter(rate.NewLimiter(0, 1)))
	if got := d.Dispatch([]byte("URI=http://a/\n")); got != OutcomeNavigate {
		t.Fatalf("expected navigate, got %s", got)
	}
	if got := d.Dispatch([]byte("URI=http://b/\n")); got != OutcomeRateLimited {
		t.Fatalf("expected rate_limited, got %s", got)
	}
	if len(actions.navigations) != 1 {
		t.Fatalf("unexpected navigations: %q", actions.navigations)
	}
}

func TestDispatchRecordsOutcomes(t *testing.T) {
	testlog.Start(t)
	rec := newCountingRecorder()
	d := New(&fakeActions{}, WithRecorder(rec))
	d.Dispatch([]byte("URI=http://a/\n"))
	d.Dispatch([]byte("URI=http://b/\n"))
	d.Dispatch([]byte("BOGUS\n"))
	d.Dispatch([]byte("QUIT\n"))
	if rec.outcomes["navigate"] != 2 || rec.outcomes["unknown"] != 1 || rec.outcomes["terminate"] != 1 {
		t.Fatalf("unexpected outcomes: %v", rec.outcomes)
	}
	if rec.commands["uri"] != 2 || rec.commands["quit"] != 1 {
		t.Fatalf("unexpected commands: %v", rec.commands)
	}
}

func TestDispatchCustomTagWithoutAction(t *testing.T) {
	testlog.Start(t)
	codec, err := protocol.NewCodec(protocol.TagNavigate, protocol.TagQuit, "RELOAD")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	actions := &fakeActions{}
	d := New(actions, WithCodec(codec))
	if got := d.Dispatch([]byte("RELOAD\n")); got != OutcomeUnknown {
		t.Fatalf("expected unknown, got %s", got)
	}
	if len(actions.navigations) != 0 || actions.terminates != 0 {
		t.Fatalf("unexpected actions: %+v", actions)
	}
}

type receiverFunc func([]byte) (int, error)

func (f receiverFunc) Recv(buf []byte) (int, error) { return f(buf) }
