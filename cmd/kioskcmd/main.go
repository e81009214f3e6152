// kioskcmd sends one command to a running kioskerctl and exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/danmuck/kioskctl/internal/channel"
	"github.com/danmuck/kioskctl/internal/logging"
	"github.com/danmuck/kioskctl/internal/protocol"
	"github.com/danmuck/kioskctl/internal/sender"
	"github.com/spf13/pflag"
)

const sendTimeout = 2 * time.Second

var errUsage = errors.New("usage")

type options struct {
	address string
	quit    bool
	uri     string
	hasURI  bool
	help    bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet()
	opts, err := parseArgs(fs, args)
	if err != nil {
		fmt.Fprintf(stderr, "kioskcmd: %v\n", err)
		fmt.Fprintln(stderr, "try 'kioskcmd --help'")
		return 2
	}
	if opts.help {
		printHelp(stdout, fs)
		return 0
	}

	cmd, ok := opts.command()
	if !ok {
		return 0
	}

	logging.ConfigureRuntime()
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := sender.Send(ctx, opts.address, cmd); err != nil {
		fmt.Fprintf(stderr, "kioskcmd: %v\n", err)
		return 1
	}
	return 0
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("kioskcmd", pflag.ContinueOnError)
	fs.StringP("address", "a", channel.DefaultSocketPath, "control socket of the running kiosk")
	fs.BoolP("quit", "q", false, "ask the kiosk to exit")
	fs.StringP("uri", "u", "", "navigate the kiosk to this URI")
	fs.BoolP("help", "h", false, "show help")
	fs.SortFlags = false
	fs.Usage = func() {}
	fs.SetOutput(io.Discard)
	return fs
}

func parseArgs(fs *pflag.FlagSet, args []string) (options, error) {
	var opts options
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.help, _ = fs.GetBool("help")
	if opts.help {
		return opts, nil
	}
	opts.address, _ = fs.GetString("address")
	opts.quit, _ = fs.GetBool("quit")
	opts.uri, _ = fs.GetString("uri")
	opts.hasURI = fs.Changed("uri")

	if rest := fs.Args(); len(rest) > 0 {
		return opts, fmt.Errorf("%w: unexpected arguments: %s", errUsage, strings.Join(rest, " "))
	}
	if opts.quit && opts.hasURI {
		return opts, fmt.Errorf("%w: --quit and --uri are mutually exclusive", errUsage)
	}
	return opts, nil
}

// command reports false when no command was requested.
func (o options) command() (protocol.Command, bool) {
	switch {
	case o.quit:
		return protocol.Quit(), true
	case o.hasURI:
		return protocol.Navigate(o.uri), true
	default:
		return protocol.Command{}, false
	}
}

func printHelp(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(w, "usage: kioskcmd [--address PATH] (--uri URI | --quit)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Sends one command to a running kioskerctl over its unix datagram socket.")
	fmt.Fprintln(w, "Nothing is sent when no command is given.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "options:")
	fmt.Fprint(w, fs.FlagUsages())
}
