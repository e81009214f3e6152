package host

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/kioskctl/internal/tools"
)

// URIPlaceholder in a render command is replaced by the requested URI.
const URIPlaceholder = "{uri}"

const DefaultRenderTimeout = 5 * time.Second

var ErrRenderCommand = errors.New("host: render command failed")

// CommandRenderer hands each page to an external program, for example a
// browser remote-control tool. Without a placeholder the URI is appended as
// the last argument.
type CommandRenderer struct {
	Argv    []string
	Runner  tools.CommandRunner
	Timeout time.Duration
}

func NewCommandRenderer(argv []string) (*CommandRenderer, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, fmt.Errorf("%w: empty command", ErrRenderCommand)
	}
	return &CommandRenderer{
		Argv:    append([]string(nil), argv...),
		Runner:  tools.ExecRunner{},
		Timeout: DefaultRenderTimeout,
	}, nil
}

func (r *CommandRenderer) Load(ctx context.Context, uri string) error {
	args := r.expand(uri)
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := r.Runner.Run(ctx, args[0], args[1:]...)
	if err != nil {
		detail := strings.TrimSpace(string(res.Stderr))
		if detail == "" {
			return fmt.Errorf("%w: %s exit %d: %w", ErrRenderCommand, args[0], res.ExitCode, err)
		}
		return fmt.Errorf("%w: %s exit %d: %s", ErrRenderCommand, args[0], res.ExitCode, detail)
	}
	return nil
}

func (r *CommandRenderer) expand(uri string) []string {
	args := make([]string, 0, len(r.Argv)+1)
	replaced := false
	for _, arg := range r.Argv {
		if strings.Contains(arg, URIPlaceholder) {
			arg = strings.ReplaceAll(arg, URIPlaceholder, uri)
			replaced = true
		}
		args = append(args, arg)
	}
	if !replaced {
		args = append(args, uri)
	}
	return args
}
