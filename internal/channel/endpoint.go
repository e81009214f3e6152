package channel

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// DefaultSocketPath is used when neither flag, env nor config names a path.
const DefaultSocketPath = "/tmp/kiosker.sock"

var (
	ErrWouldBlock        = errors.New("channel: no datagram queued")
	ErrTruncatedDatagram = errors.New("channel: datagram truncated by receive buffer")
	ErrReleased          = errors.New("channel: endpoint released")
)

// Ownership records who is responsible for the socket path.
type Ownership int

const (
	OwnedBySelf Ownership = iota
	OwnedBySupervisor
)

func (o Ownership) String() string {
	switch o {
	case OwnedBySupervisor:
		return "supervisor"
	default:
		return "self"
	}
}

// Endpoint is the acquired control socket plus its cleanup obligation.
type Endpoint struct {
	conn      *net.UnixConn
	raw       syscall.RawConn
	path      string
	ownership Ownership

	releaseOnce sync.Once
	released    chan struct{}
}

func newEndpoint(conn *net.UnixConn, path string, ownership Ownership) (*Endpoint, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return nil, err
	}
	return &Endpoint{
		conn:      conn,
		raw:       raw,
		path:      path,
		ownership: ownership,
		released:  make(chan struct{}),
	}, nil
}

func (e *Endpoint) Path() string {
	return e.path
}

func (e *Endpoint) Ownership() Ownership {
	return e.ownership
}

func (e *Endpoint) String() string {
	return fmt.Sprintf("unixgram:%s (%s-owned)", e.path, e.ownership)
}

// Recv performs exactly one non-blocking receive into buf. It never waits:
// an empty queue yields ErrWouldBlock. A datagram longer than buf is
// consumed and reported as ErrTruncatedDatagram.
func (e *Endpoint) Recv(buf []byte) (int, error) {
	if e.isReleased() {
		return 0, ErrReleased
	}
	var (
		n       int
		flags   int
		recvErr error
	)
	err := e.raw.Read(func(fd uintptr) bool {
		n, _, flags, _, recvErr = unix.Recvmsg(int(fd), buf, nil, unix.MSG_DONTWAIT)
		return true
	})
	if err != nil {
		return 0, err
	}
	if recvErr != nil {
		if errors.Is(recvErr, unix.EAGAIN) || errors.Is(recvErr, unix.EWOULDBLOCK) {
			return 0, ErrWouldBlock
		}
		return 0, recvErr
	}
	if flags&unix.MSG_TRUNC != 0 {
		return n, ErrTruncatedDatagram
	}
	return n, nil
}

// WaitReadable blocks in the runtime poller until a datagram is queued.
// It returns an error once the endpoint is released.
func (e *Endpoint) WaitReadable() error {
	if e.isReleased() {
		return ErrReleased
	}
	var peek [1]byte
	var peekErr error
	err := e.raw.Read(func(fd uintptr) bool {
		_, _, peekErr = unix.Recvfrom(int(fd), peek[:], unix.MSG_PEEK|unix.MSG_DONTWAIT)
		switch {
		case peekErr == nil:
			return true
		case errors.Is(peekErr, unix.EAGAIN), errors.Is(peekErr, unix.EWOULDBLOCK), errors.Is(peekErr, unix.EINTR):
			return false
		default:
			return true
		}
	})
	if err != nil {
		if e.isReleased() {
			return ErrReleased
		}
		return err
	}
	// A pending socket error also wakes the peek; Recv reports it.
	return nil
}

// Release closes the socket and unlinks the path when this process bound
// it. Safe on a nil endpoint and safe to call more than once.
func (e *Endpoint) Release() error {
	if e == nil {
		return nil
	}
	var err error
	e.releaseOnce.Do(func() {
		close(e.released)
		if e.conn != nil {
			err = e.conn.Close()
		}
		if e.ownership == OwnedBySelf && e.path != "" {
			if rmErr := os.Remove(e.path); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
				err = rmErr
			}
		}
	})
	return err
}

func (e *Endpoint) isReleased() bool {
	select {
	case <-e.released:
		return true
	default:
		return false
	}
}
