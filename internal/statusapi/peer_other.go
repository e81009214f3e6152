//go:build !linux

package statusapi

import (
	"errors"
	"net"

	"github.com/danmuck/kioskctl/internal/observability"
)

func peerCredentials(net.Conn) (observability.Peer, error) {
	return observability.Peer{}, errors.New("statusapi: peer credentials unsupported")
}
