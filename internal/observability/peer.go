package observability

import "context"

// Peer is the process on the far side of a Unix stream connection.
type Peer struct {
	PID int32
	UID uint32
	GID uint32
}

type peerKey struct{}

func WithPeer(ctx context.Context, peer Peer) context.Context {
	return context.WithValue(ctx, peerKey{}, peer)
}

func PeerFrom(ctx context.Context) (Peer, bool) {
	peer, ok := ctx.Value(peerKey{}).(Peer)
	return peer, ok
}
