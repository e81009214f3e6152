// Package kiosker runs the kiosk host process.
//
// Lifecycle order:
// - acquire control endpoint
// - load start URI
// - watch the endpoint and dispatch commands on the host loop
// - optional status API
// - release the endpoint on every exit path
//
// The process stops on QUIT, SIGINT or SIGTERM.
package kiosker
