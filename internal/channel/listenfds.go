package channel

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	EnvListenPID     = "LISTEN_PID"
	EnvListenFDs     = "LISTEN_FDS"
	EnvListenFDNames = "LISTEN_FDNAMES"

	// ListenFDsStart is the first descriptor a supervisor passes.
	ListenFDsStart = 3
)

// ListenerSource yields descriptors pre-opened by a supervising process.
type ListenerSource interface {
	ListenFiles() ([]*os.File, error)
}

// SystemdSource reads the systemd socket activation environment.
type SystemdSource struct {
	// StartFD overrides ListenFDsStart when non-zero.
	StartFD int
}

func (s SystemdSource) ListenFiles() ([]*os.File, error) {
	rawPID, ok := os.LookupEnv(EnvListenPID)
	if !ok || strings.TrimSpace(rawPID) == "" {
		return nil, nil
	}
	rawFDs := os.Getenv(EnvListenFDs)
	rawNames := os.Getenv(EnvListenFDNames)
	_ = os.Unsetenv(EnvListenPID)
	_ = os.Unsetenv(EnvListenFDs)
	_ = os.Unsetenv(EnvListenFDNames)

	pid, err := strconv.Atoi(strings.TrimSpace(rawPID))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s=%q: %v", ErrInvalidHandoff, EnvListenPID, rawPID, err)
	}
	if pid != os.Getpid() {
		return nil, nil
	}
	count, err := strconv.Atoi(strings.TrimSpace(rawFDs))
	if err != nil || count < 0 {
		return nil, fmt.Errorf("%w: parse %s=%q", ErrInvalidHandoff, EnvListenFDs, rawFDs)
	}

	start := s.StartFD
	if start == 0 {
		start = ListenFDsStart
	}
	var names []string
	if rawNames != "" {
		names = strings.Split(rawNames, ":")
	}

	files := make([]*os.File, 0, count)
	for i := 0; i < count; i++ {
		fd := start + i
		unix.CloseOnExec(fd)
		name := "LISTEN_FD_" + strconv.Itoa(fd)
		if i < len(names) && names[i] != "" {
			name = names[i]
		}
		files = append(files, os.NewFile(uintptr(fd), name))
	}
	return files, nil
}
