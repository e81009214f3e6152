// Package protocol owns the control channel wire contract.
//
// Ownership boundary:
// - command tags and the tag/payload/terminator framing
// - encode/decode primitives
// - malformed and unknown command classification
//
// Framing relies on the transport preserving datagram boundaries. The
// terminator is a sanity check, not a delimiter: a stream transport would
// need a length prefix added here first.
package protocol
