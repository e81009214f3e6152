// Package statusapi serves read-only kiosk status over a Unix stream socket.
package statusapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/danmuck/kioskctl/internal/host"
	"github.com/danmuck/kioskctl/internal/logging"
	"github.com/danmuck/kioskctl/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const Version = "0.1.0"

var ErrListen = errors.New("statusapi: listen failed")

// StatusSource exposes kiosk state to the API.
type StatusSource interface {
	Snapshot() host.Snapshot
}

// ChannelInfo describes the control channel for /status.
type ChannelInfo struct {
	Address   string `json:"address"`
	Ownership string `json:"ownership"`
}

type Server struct {
	path     string
	source   StatusSource
	channel  ChannelInfo
	appeared time.Time
	logger   zerolog.Logger

	router     *gin.Engine
	httpServer *http.Server
	serveErr   chan error
}

func New(path string, source StatusSource, channel ChannelInfo) *Server {
	gin.SetMode(gin.ReleaseMode)
	observability.RegisterMetrics()
	logger := logging.For("statusapi")

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.StatusAccessLog(logger, path))
	r.Use(observability.StatusMetrics())

	s := &Server{
		path:     path,
		source:   source,
		channel:  channel,
		appeared: time.Now(),
		logger:   logger,
		router:   r,
	}
	s.RegisterRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Path() string {
	return s.path
}

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.appeared).String(),
			"version": Version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/status", func(c *gin.Context) {
		snap := s.source.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"current":    snap.Current,
			"history":    snap.History,
			"terminated": snap.Terminated,
			"started":    snap.Started,
			"channel":    s.channel,
			"uptime":     time.Since(s.appeared).String(),
		})
	})
}

// Start removes a stale socket file, listens and serves in the background.
func (s *Server) Start() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: removing stale socket %s: %v", ErrListen, s.path, err)
	}
	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrListen, s.path, err)
	}
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ConnContext: func(ctx context.Context, conn net.Conn) context.Context {
			peer, err := peerCredentials(conn)
			if err != nil {
				return ctx
			}
			return observability.WithPeer(ctx, peer)
		},
	}
	s.serveErr = make(chan error, 1)
	go func() {
		err := s.httpServer.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.serveErr <- err
	}()
	s.logger.Info().Str("path", s.path).Msg("status api listening")
	return nil
}

// Shutdown stops the server and removes its socket file.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	err := s.httpServer.Shutdown(ctx)
	if serveErr := <-s.serveErr; serveErr != nil && err == nil {
		err = serveErr
	}
	if rmErr := os.Remove(s.path); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = rmErr
	}
	s.httpServer = nil
	return err
}
