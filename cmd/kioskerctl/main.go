package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/kioskctl/internal/kiosker"
	"github.com/danmuck/kioskctl/internal/observability"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args)
	if errors.Is(err, pflag.ErrHelp) {
		printHelp(stdout, opts.flags)
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "kioskerctl: %v\n", err)
		fmt.Fprintln(stderr, "try 'kioskerctl --help'")
		return 2
	}

	cfg, err := resolveServiceConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "kioskerctl: %v\n", err)
		return 1
	}

	observability.InitLogger("kioskerctl")
	svc := kiosker.NewServiceWithConfig(cfg)
	if err := svc.Run(); err != nil {
		fmt.Fprintf(stderr, "kioskerctl: %v\n", err)
		return 1
	}
	return 0
}

func printHelp(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(w, "usage: kioskerctl [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Runs the kiosk host and accepts commands from kioskcmd over a unix datagram socket.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "When started by a supervisor with socket activation (LISTEN_PID/LISTEN_FDS),")
	fmt.Fprintln(w, "the handed-down socket is used and --address is ignored. The supervisor keeps")
	fmt.Fprintln(w, "ownership of that socket file. Otherwise kioskerctl binds --address itself,")
	fmt.Fprintln(w, "replacing any stale file, and removes it on exit.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Settings are applied in order: defaults, --config file, KIOSKER_* environment, flags.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "options:")
	if fs != nil {
		fmt.Fprint(w, fs.FlagUsages())
	}
}
