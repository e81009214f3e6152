package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/danmuck/kioskctl/internal/config"
)

const defaultPath = "cmd/kioskerctl/config.toml"

func main() {
	log.SetFlags(0)
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("configgen", flag.ContinueOnError)
	kind := fs.String("kind", "kiosker", "config kind: kiosker")
	output := fs.String("output", "", "output path for config template")
	validate := fs.Bool("validate", false, "validate an existing config file")
	input := fs.String("input", "", "config path for validation (defaults to per-kind cmd path)")
	force := fs.Bool("force", false, "overwrite existing config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := config.Template(*kind); err != nil {
		return err
	}

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath
		}
		cfg, err := config.LoadKioskerConfig(path)
		if err != nil {
			return err
		}
		resolved, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "# validated %s config at %s\n%s", *kind, path, resolved)
		return nil
	}

	target := *output
	if target == "" {
		target = defaultPath
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s config template to %s\n", *kind, target)
	return nil
}
