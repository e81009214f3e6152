// Package channel owns the control socket endpoint.
//
// Ownership boundary:
// - supervisor hand-off discovery (LISTEN_PID/LISTEN_FDS)
// - self-created socket bind and stale path removal
// - endpoint release: close always, unlink only when self-owned
// - single non-blocking receive and readiness wait
package channel
