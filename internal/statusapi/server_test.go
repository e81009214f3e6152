package statusapi

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/kioskctl/internal/host"
	"github.com/danmuck/kioskctl/internal/testutil/testlog"
)

type staticSource struct {
	snap host.Snapshot
}

func (s staticSource) Snapshot() host.Snapshot {
	return s.snap
}

func newTestServer(path string) *Server {
	return New(path, staticSource{snap: host.Snapshot{
		Current: "http://example.test/",
		History: []host.Visit{{ID: "v1", URI: "http://example.test/", At: time.Unix(0, 0)}},
	}}, ChannelInfo{Address: "/tmp/kiosker.sock", Ownership: "self"})
}

func TestHealthRoute(t *testing.T) {
	testlog.Start(t)
	s := newTestServer("unused")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestStatusRoute(t *testing.T) {
	testlog.Start(t)
	s := newTestServer("unused")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Current string       `json:"current"`
		History []host.Visit `json:"history"`
		Channel ChannelInfo  `json:"channel"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Current != "http://example.test/" || len(body.History) != 1 || body.Channel.Ownership != "self" {
		t.Fatalf("unexpected status: %+v", body)
	}
}

func TestMetricsRoute(t *testing.T) {
	testlog.Start(t)
	s := newTestServer("unused")
	s.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "kioskctl_status_http_requests_total") {
		t.Fatalf("expected status http metrics in output")
	}
}

func TestStartServesOverUnixSocket(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "status.sock")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("write stale: %v", err)
	}
	s := newTestServer(path)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	client := &http.Client{Transport: &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", path)
		},
	}}
	resp, err := client.Get("http://kiosk/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "ok") {
		t.Fatalf("unexpected response %d: %s", resp.StatusCode, body)
	}
	client.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected status socket removed, got %v", err)
	}
}

func TestStartFailsOnBadPath(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(filepath.Join(t.TempDir(), "missing", "status.sock"))
	if err := s.Start(); err == nil {
		t.Fatalf("expected listen failure")
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown of unstarted server: %v", err)
	}
}
