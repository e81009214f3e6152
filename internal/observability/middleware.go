package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// unmatchedRoute labels requests no route matched, keeping label values bounded.
const unmatchedRoute = "unmatched"

// StatusAccessLog logs each status API request with the socket it arrived
// on and, when known, the calling process.
func StatusAccessLog(logger zerolog.Logger, socket string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Debug()
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		}

		event = event.
			Str("socket", socket).
			Str("method", c.Request.Method).
			Str("route", route(c)).
			Int("status", status).
			Dur("took", time.Since(start))
		if peer, ok := PeerFrom(c.Request.Context()); ok {
			event = event.Int32("peer_pid", peer.PID).Uint32("peer_uid", peer.UID)
		}
		if len(c.Errors) > 0 {
			event = event.Str("error", c.Errors.String())
		}
		event.Msg("status api request")
	}
}

// StatusMetrics counts status API requests by matched route.
func StatusMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		RecordStatusRequest(c.Request.Method, route(c), c.Writer.Status(), time.Since(start))
	}
}

func route(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return unmatchedRoute
}
