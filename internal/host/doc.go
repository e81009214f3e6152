// Package host is the contract between the control channel and the
// application it drives.
//
// Ownership boundary:
// - Actions: the navigate/terminate calls the dispatcher may make
// - Loop: the single-threaded reactor that serializes every callback
// - Kiosk: a headless host that records navigation and hands URIs to a Renderer
//
// Rendering itself belongs to the Renderer implementation and runs on the
// kiosk render worker, so a slow page never stalls the loop.
package host
