package host

import (
	"context"
	"sync"
	"time"

	"github.com/danmuck/kioskctl/internal/logging"
	"github.com/danmuck/kioskctl/internal/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const DefaultHistoryLimit = 32

// Renderer loads a page. It stands in for the browser engine. Load runs
// on the kiosk render worker, never on the loop goroutine, and should
// return when ctx is done.
type Renderer interface {
	Load(ctx context.Context, uri string) error
}

// LogRenderer only logs the requested page.
type LogRenderer struct {
	Logger zerolog.Logger
}

func (r LogRenderer) Load(_ context.Context, uri string) error {
	r.Logger.Info().Str("uri", uri).Msg("render load")
	return nil
}

// Visit is one navigation recorded by the kiosk.
type Visit struct {
	ID  string    `json:"id"`
	URI string    `json:"uri"`
	At  time.Time `json:"at"`
	Err string    `json:"error,omitempty"`
}

// Snapshot is a copy of the kiosk state.
type Snapshot struct {
	Current    string    `json:"current"`
	History    []Visit   `json:"history"`
	Terminated bool      `json:"terminated"`
	Started    time.Time `json:"started"`
}

type renderJob struct {
	id  string
	uri string
}

// Kiosk is a headless host: it tracks navigation and quits its loop on
// terminate. Pages are loaded by one worker goroutine; a navigation that
// arrives while another is queued replaces it.
type Kiosk struct {
	loop     *Loop
	renderer Renderer
	logger   zerolog.Logger
	limit    int
	started  time.Time

	pending    chan renderJob
	ctx        context.Context
	cancel     context.CancelFunc
	workerDone chan struct{}

	mu         sync.RWMutex
	current    string
	history    []Visit
	terminated bool
}

var _ Actions = (*Kiosk)(nil)

func NewKiosk(loop *Loop, renderer Renderer, historyLimit int) *Kiosk {
	logger := logging.For("host.kiosk")
	if renderer == nil {
		renderer = LogRenderer{Logger: logger}
	}
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	ctx, cancel := context.WithCancel(context.Background())
	k := &Kiosk{
		loop:       loop,
		renderer:   renderer,
		logger:     logger,
		limit:      historyLimit,
		started:    time.Now(),
		pending:    make(chan renderJob, 1),
		ctx:        ctx,
		cancel:     cancel,
		workerDone: make(chan struct{}),
		history:    make([]Visit, 0, historyLimit),
	}
	go k.renderLoop()
	return k
}

// Navigate records the visit and queues uri for the renderer verbatim. It
// does not wait for the page to load.
func (k *Kiosk) Navigate(uri string) {
	visit := Visit{ID: uuid.NewString(), URI: uri, At: time.Now()}
	observability.RecordNavigation()

	k.mu.Lock()
	k.current = uri
	k.history = append(k.history, visit)
	if len(k.history) > k.limit {
		k.history = append(k.history[:0], k.history[len(k.history)-k.limit:]...)
	}
	k.mu.Unlock()

	k.enqueue(renderJob{id: visit.ID, uri: uri})
}

// enqueue keeps only the newest job waiting.
func (k *Kiosk) enqueue(job renderJob) {
	for {
		select {
		case k.pending <- job:
			return
		default:
		}
		select {
		case old := <-k.pending:
			k.logger.Debug().Str("uri", old.uri).Msg("render superseded")
		default:
		}
	}
}

func (k *Kiosk) renderLoop() {
	defer close(k.workerDone)
	for {
		select {
		case <-k.ctx.Done():
			return
		case job := <-k.pending:
			if err := k.renderer.Load(k.ctx, job.uri); err != nil {
				if k.ctx.Err() != nil {
					return
				}
				k.logger.Warn().Str("uri", job.uri).Err(err).Msg("render load failed")
				k.renderFailed(job.id, err)
			}
		}
	}
}

func (k *Kiosk) renderFailed(id string, err error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for i := range k.history {
		if k.history[i].ID == id {
			k.history[i].Err = err.Error()
			return
		}
	}
}

// Close cancels any in-flight render and waits for the worker to exit.
func (k *Kiosk) Close() {
	k.cancel()
	<-k.workerDone
}

// Terminate stops the host loop.
func (k *Kiosk) Terminate() {
	k.mu.Lock()
	k.terminated = true
	k.mu.Unlock()
	k.logger.Info().Msg("terminate requested")
	if k.loop != nil {
		k.loop.Quit()
	}
}

func (k *Kiosk) Snapshot() Snapshot {
	k.mu.RLock()
	defer k.mu.RUnlock()
	history := make([]Visit, len(k.history))
	copy(history, k.history)
	return Snapshot{
		Current:    k.current,
		History:    history,
		Terminated: k.terminated,
		Started:    k.started,
	}
}
