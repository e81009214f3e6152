package kiosker

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/danmuck/kioskctl/internal/channel"
	"github.com/danmuck/kioskctl/internal/dispatch"
	"github.com/danmuck/kioskctl/internal/host"
	"github.com/danmuck/kioskctl/internal/logging"
	"github.com/danmuck/kioskctl/internal/observability"
	"github.com/danmuck/kioskctl/internal/protocol"
	"github.com/danmuck/kioskctl/internal/statusapi"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const DefaultStartURI = "http://localhost/"

var (
	ErrInvalidConfig = errors.New("kiosker: invalid config")
	ErrAlreadyRun    = errors.New("kiosker: service already run")
)

// ServiceConfig configures the kiosk host process.
type ServiceConfig struct {
	Address      string
	StartURI     string
	StatusSocket string
	RateLimit    float64
	RateBurst    int
	HistoryLimit int
	// RenderCommand, when set, runs for every navigation. See host.CommandRenderer.
	RenderCommand []string

	Source   channel.ListenerSource
	Renderer host.Renderer
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Address:      channel.DefaultSocketPath,
		StartURI:     DefaultStartURI,
		StatusSocket: "",
		RateLimit:    0,
		RateBurst:    8,
		HistoryLimit: host.DefaultHistoryLimit,
	}
}

func (c ServiceConfig) Validate() error {
	if strings.TrimSpace(c.Address) == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidConfig)
	}
	if strings.ContainsRune(c.Address, 0) {
		return fmt.Errorf("%w: address contains NUL", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.StartURI) == "" {
		return fmt.Errorf("%w: start uri is required", ErrInvalidConfig)
	}
	if strings.ContainsRune(c.StartURI, rune(protocol.Terminator)) {
		return fmt.Errorf("%w: start uri contains a newline", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.StatusSocket) != "" && strings.TrimSpace(c.StatusSocket) == strings.TrimSpace(c.Address) {
		return fmt.Errorf("%w: status socket must differ from address", ErrInvalidConfig)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate limit must be >= 0", ErrInvalidConfig)
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("%w: rate burst must be >= 1 when rate limit is set", ErrInvalidConfig)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("%w: history limit must be >= 0", ErrInvalidConfig)
	}
	if len(c.RenderCommand) > 0 && strings.TrimSpace(c.RenderCommand[0]) == "" {
		return fmt.Errorf("%w: render command program is empty", ErrInvalidConfig)
	}
	return nil
}

// Service owns one run of the kiosk host.
type Service struct {
	cfg    ServiceConfig
	logger zerolog.Logger

	started atomic.Bool
	ready   chan struct{}

	mu       sync.RWMutex
	endpoint *channel.Endpoint
	kiosk    *host.Kiosk
}

func NewService() *Service {
	return NewServiceWithConfig(DefaultServiceConfig())
}

func NewServiceWithConfig(cfg ServiceConfig) *Service {
	return &Service{
		cfg:    cfg,
		logger: logging.For("kiosker"),
		ready:  make(chan struct{}),
	}
}

// Run blocks until QUIT, SIGINT or SIGTERM.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Serve(ctx)
}

// Ready is closed once the endpoint is acquired and commands are watched.
func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

func (s *Service) Endpoint() *channel.Endpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endpoint
}

func (s *Service) Kiosk() *host.Kiosk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kiosk
}

// Serve runs the host until ctx is done or a QUIT command arrives. The
// endpoint is released before Serve returns, whatever the exit path.
func (s *Service) Serve(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}
	return s.serve(ctx)
}

func (s *Service) serve(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	ep, err := channel.Acquire(channel.Config{Path: s.cfg.Address, Source: s.cfg.Source})
	if err != nil {
		return err
	}
	defer func() {
		if err := ep.Release(); err != nil {
			s.logger.Warn().Err(err).Str("path", ep.Path()).Msg("control channel release failed")
		}
	}()

	renderer, err := s.renderer()
	if err != nil {
		return err
	}
	loop := host.NewLoop()
	kiosk := host.NewKiosk(loop, renderer, s.cfg.HistoryLimit)
	defer kiosk.Close()
	kiosk.Navigate(s.cfg.StartURI)

	var status *statusapi.Server
	if path := strings.TrimSpace(s.cfg.StatusSocket); path != "" {
		status = statusapi.New(path, kiosk, statusapi.ChannelInfo{
			Address:   ep.Path(),
			Ownership: ep.Ownership().String(),
		})
		if err := status.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := status.Shutdown(shutdownCtx); err != nil {
				s.logger.Warn().Err(err).Msg("status api shutdown failed")
			}
		}()
	}

	d := dispatch.New(kiosk, s.dispatchOptions()...)
	loop.WatchReadable(ep, func() {
		d.OnReadable(ep)
	})

	s.mu.Lock()
	s.endpoint = ep
	s.kiosk = kiosk
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info().
		Str("address", ep.Path()).
		Str("ownership", ep.Ownership().String()).
		Str("start_uri", s.cfg.StartURI).
		Msg("kiosker ready")

	if err := loop.Run(ctx); err != nil {
		return err
	}
	s.logger.Info().Bool("quit_command", d.Terminated()).Msg("kiosker shutdown")
	return nil
}

func (s *Service) renderer() (host.Renderer, error) {
	if s.cfg.Renderer != nil {
		return s.cfg.Renderer, nil
	}
	if len(s.cfg.RenderCommand) == 0 {
		return nil, nil
	}
	return host.NewCommandRenderer(s.cfg.RenderCommand)
}

func (s *Service) dispatchOptions() []dispatch.Option {
	opts := []dispatch.Option{
		dispatch.WithRecorder(observability.ChannelRecorder{}),
	}
	if s.cfg.RateLimit > 0 {
		opts = append(opts, dispatch.WithLimiter(rate.NewLimiter(rate.Limit(s.cfg.RateLimit), s.cfg.RateBurst)))
	}
	return opts
}
