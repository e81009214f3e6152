package host

import (
	"context"
	"errors"
	"sync"

	"github.com/danmuck/kioskctl/internal/logging"
)

var ErrLoopStarted = errors.New("host: loop already started")

const taskQueueSize = 16

// Loop runs posted callbacks one at a time on the goroutine that called Run.
type Loop struct {
	tasks    chan func()
	quit     chan struct{}
	done     chan struct{}
	quitOnce sync.Once
	runOnce  sync.Once
}

func NewLoop() *Loop {
	return &Loop{
		tasks: make(chan func(), taskQueueSize),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Run blocks until Quit is called or ctx is cancelled. Tasks still queued
// when the loop stops are dropped.
func (l *Loop) Run(ctx context.Context) error {
	started := false
	l.runOnce.Do(func() { started = true })
	if !started {
		return ErrLoopStarted
	}
	defer close(l.done)

	for {
		select {
		case <-l.quit:
			return nil
		case <-ctx.Done():
			return nil
		case fn := <-l.tasks:
			select {
			case <-l.quit:
				return nil
			default:
			}
			fn()
		}
	}
}

// Post queues fn for the loop goroutine. It reports false once the loop has
// stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.quit:
		return false
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.quit:
		return false
	case <-l.done:
		return false
	}
}

// Quit stops the loop after the running callback returns.
func (l *Loop) Quit() {
	l.quitOnce.Do(func() { close(l.quit) })
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// WatchReadable calls cb on the loop goroutine each time src becomes
// readable. The watcher waits for cb to return before waiting again, so
// callbacks never overlap. Watching ends when src reports an error or the
// loop stops.
func (l *Loop) WatchReadable(src Readable, cb func()) {
	logger := logging.For("host.loop")
	go func() {
		for {
			if err := src.WaitReadable(); err != nil {
				logger.Debug().Err(err).Msg("readable watch ended")
				return
			}
			ran := make(chan struct{})
			if !l.Post(func() {
				defer close(ran)
				cb()
			}) {
				return
			}
			select {
			case <-ran:
			case <-l.done:
				return
			}
		}
	}()
}
