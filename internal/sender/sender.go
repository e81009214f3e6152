// Package sender is the one-shot client side of the control channel.
package sender

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/danmuck/kioskctl/internal/channel"
	"github.com/danmuck/kioskctl/internal/logging"
	"github.com/danmuck/kioskctl/internal/protocol"
	"golang.org/x/sys/unix"
)

var (
	ErrEncode     = errors.New("sender: encode failed")
	ErrSocket     = errors.New("sender: socket create failed")
	ErrNoListener = errors.New("sender: no listener at socket path")
	ErrSend       = errors.New("sender: send failed")
)

// ResolvePath returns path, or the default socket path when path is blank.
func ResolvePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return channel.DefaultSocketPath
	}
	return path
}

// Send encodes cmd and transmits it as one datagram to path. There is no
// retry and no acknowledgement. A ctx deadline bounds the write.
func Send(ctx context.Context, path string, cmd protocol.Command) error {
	path = ResolvePath(path)
	buf, err := protocol.Encode(cmd)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}

	conn, err := newDatagramSocket()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrSend, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	if _, err := conn.WriteToUnix(buf, &net.UnixAddr{Name: path, Net: "unixgram"}); err != nil {
		if errors.Is(err, unix.ENOENT) || errors.Is(err, unix.ECONNREFUSED) {
			return fmt.Errorf("%w: %s: %w", ErrNoListener, path, err)
		}
		return fmt.Errorf("%w: %s: %w", ErrSend, path, err)
	}

	logger := logging.For("sender")
	logger.Debug().
		Str("path", path).
		Str("command", cmd.Tag.Name()).
		Int("bytes", len(buf)).
		Msg("command sent")
	return nil
}

// newDatagramSocket opens an unbound AF_UNIX datagram socket.
func newDatagramSocket() (*net.UnixConn, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSocket, err)
	}
	unix.CloseOnExec(fd)
	f := os.NewFile(uintptr(fd), "kioskcmd")
	defer f.Close()

	pc, err := net.FilePacketConn(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSocket, err)
	}
	conn, ok := pc.(*net.UnixConn)
	if !ok {
		_ = pc.Close()
		return nil, fmt.Errorf("%w: unexpected conn type %T", ErrSocket, pc)
	}
	return conn, nil
}
