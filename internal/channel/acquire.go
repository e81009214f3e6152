package channel

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/danmuck/kioskctl/internal/logging"
	"golang.org/x/sys/unix"
)

var (
	ErrInvalidHandoff = errors.New("channel: invalid supervisor socket")
	ErrStalePath      = errors.New("channel: stale socket path removal failed")
	ErrBind           = errors.New("channel: socket create/bind failed")
)

// Config selects the path to bind and where hand-off descriptors come from.
type Config struct {
	Path   string
	Source ListenerSource
}

// Acquire adopts a single supervisor-passed datagram socket, or removes any
// stale entry at the configured path and binds a new one.
func Acquire(cfg Config) (*Endpoint, error) {
	logger := logging.For("channel")
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = DefaultSocketPath
	}
	source := cfg.Source
	if source == nil {
		source = SystemdSource{}
	}

	files, err := source.ListenFiles()
	if err != nil {
		return nil, err
	}
	switch len(files) {
	case 0:
	case 1:
		ep, err := adopt(files[0])
		if err != nil {
			return nil, err
		}
		logger.Info().
			Str("path", ep.Path()).
			Str("ownership", ep.Ownership().String()).
			Msg("control channel adopted")
		return ep, nil
	default:
		for _, f := range files {
			_ = f.Close()
		}
		logger.Warn().Int("fds", len(files)).Msg("supervisor passed more than one socket; binding own")
	}

	ep, err := bind(path)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Str("path", ep.Path()).
		Str("ownership", ep.Ownership().String()).
		Msg("control channel bound")
	return ep, nil
}

func adopt(f *os.File) (*Endpoint, error) {
	defer f.Close()

	raw, err := f.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidHandoff, f.Name(), err)
	}
	var (
		path      string
		verifyErr error
	)
	if err := raw.Control(func(fd uintptr) {
		path, verifyErr = verifyDatagramSocket(int(fd))
	}); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidHandoff, f.Name(), err)
	}
	if verifyErr != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidHandoff, f.Name(), verifyErr)
	}

	pc, err := net.FilePacketConn(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidHandoff, f.Name(), err)
	}
	conn, ok := pc.(*net.UnixConn)
	if !ok {
		_ = pc.Close()
		return nil, fmt.Errorf("%w: %s: not a unix socket", ErrInvalidHandoff, f.Name())
	}
	ep, err := newEndpoint(conn, path, OwnedBySupervisor)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidHandoff, f.Name(), err)
	}
	return ep, nil
}

// verifyDatagramSocket checks fd is a locally addressed SOCK_DGRAM socket
// and returns its bound path.
func verifyDatagramSocket(fd int) (string, error) {
	typ, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TYPE)
	if err != nil {
		return "", fmt.Errorf("not a socket: %w", err)
	}
	if typ != unix.SOCK_DGRAM {
		return "", fmt.Errorf("socket type %d is not SOCK_DGRAM", typ)
	}
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return "", fmt.Errorf("getsockname: %w", err)
	}
	addr, ok := sa.(*unix.SockaddrUnix)
	if !ok {
		return "", fmt.Errorf("socket family %T is not AF_UNIX", sa)
	}
	return addr.Name, nil
}

func bind(path string) (*Endpoint, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s: %v", ErrStalePath, path, err)
	}
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBind, path, err)
	}
	ep, err := newEndpoint(conn, path, OwnedBySelf)
	if err != nil {
		_ = conn.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: %s: %v", ErrBind, path, err)
	}
	return ep, nil
}
