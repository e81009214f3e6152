package statusapi

import (
	"fmt"
	"net"

	"github.com/danmuck/kioskctl/internal/observability"
	"golang.org/x/sys/unix"
)

// peerCredentials reads SO_PEERCRED from a Unix stream connection.
func peerCredentials(conn net.Conn) (observability.Peer, error) {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return observability.Peer{}, fmt.Errorf("statusapi: %T is not a unix connection", conn)
	}
	raw, err := uc.SyscallConn()
	if err != nil {
		return observability.Peer{}, err
	}
	var (
		cred    *unix.Ucred
		credErr error
	)
	if err := raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return observability.Peer{}, err
	}
	if credErr != nil {
		return observability.Peer{}, credErr
	}
	return observability.Peer{PID: cred.Pid, UID: cred.Uid, GID: cred.Gid}, nil
}
