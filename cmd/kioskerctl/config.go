package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/kioskctl/internal/kiosker"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
)

const envPrefix = "KIOSKER"

// kioskerctl config.toml key mapping to kiosker runtime settings.
type fileConfig struct {
	Address      string  `toml:"address"`
	StartURI     string  `toml:"start_uri"`
	StatusSocket string  `toml:"status_socket"`
	RateLimit    float64 `toml:"rate_limit"`
	RateBurst    int     `toml:"rate_burst"`
	HistoryLimit int     `toml:"history_limit"`

	RenderCommand []string `toml:"render_command"`
}

// KIOSKER_* overrides; nil means unset.
type envConfig struct {
	Config       *string  `envconfig:"CONFIG"`
	Address      *string  `envconfig:"ADDRESS"`
	StartURI     *string  `envconfig:"START_URI"`
	StatusSocket *string  `envconfig:"STATUS_SOCKET"`
	RateLimit    *float64 `envconfig:"RATE_LIMIT"`
	RateBurst    *int     `envconfig:"RATE_BURST"`
	HistoryLimit *int     `envconfig:"HISTORY_LIMIT"`

	RenderCommand *[]string `envconfig:"RENDER_COMMAND"`
}

type options struct {
	flags *pflag.FlagSet

	configPath   string
	address      string
	startURI     string
	statusSocket string
}

func newFlagSet(opts *options) *pflag.FlagSet {
	fs := pflag.NewFlagSet("kioskerctl", pflag.ContinueOnError)
	fs.StringVarP(&opts.address, "address", "a", kiosker.DefaultServiceConfig().Address, "control socket path when no socket is handed down")
	fs.StringVarP(&opts.startURI, "start-uri", "u", kiosker.DefaultStartURI, "page loaded before commands are served")
	fs.StringVarP(&opts.configPath, "config", "c", "", "TOML config file")
	fs.StringVar(&opts.statusSocket, "status-socket", "", "serve the status api on this unix socket")
	fs.BoolP("help", "h", false, "show help")
	fs.SortFlags = false
	opts.flags = fs
	return fs
}

func parseArgs(args []string) (options, error) {
	var opts options
	fs := newFlagSet(&opts)
	fs.Usage = func() {}
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if help, _ := fs.GetBool("help"); help {
		return opts, pflag.ErrHelp
	}
	if rest := fs.Args(); len(rest) > 0 {
		return opts, fmt.Errorf("unexpected arguments: %s", strings.Join(rest, " "))
	}
	return opts, nil
}

// resolveServiceConfig layers defaults, config file, environment and flags.
func resolveServiceConfig(opts options) (kiosker.ServiceConfig, error) {
	cfg := kiosker.DefaultServiceConfig()

	var env envConfig
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return kiosker.ServiceConfig{}, fmt.Errorf("load kiosker env: %w", err)
	}

	path := strings.TrimSpace(opts.configPath)
	if path == "" && env.Config != nil {
		path = strings.TrimSpace(*env.Config)
	}
	if path != "" {
		if err := applyFileConfig(&cfg, path); err != nil {
			return kiosker.ServiceConfig{}, err
		}
	}

	applyEnvConfig(&cfg, env)

	if fs := opts.flags; fs != nil {
		if fs.Changed("address") {
			cfg.Address = strings.TrimSpace(opts.address)
		}
		if fs.Changed("start-uri") {
			cfg.StartURI = opts.startURI
		}
		if fs.Changed("status-socket") {
			cfg.StatusSocket = strings.TrimSpace(opts.statusSocket)
		}
	}

	if err := cfg.Validate(); err != nil {
		return kiosker.ServiceConfig{}, err
	}
	return cfg, nil
}

func applyFileConfig(cfg *kiosker.ServiceConfig, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load kiosker config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load kiosker config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("address") {
		cfg.Address = strings.TrimSpace(raw.Address)
	}
	if meta.IsDefined("start_uri") {
		cfg.StartURI = raw.StartURI
	}
	if meta.IsDefined("status_socket") {
		cfg.StatusSocket = strings.TrimSpace(raw.StatusSocket)
	}
	if meta.IsDefined("rate_limit") {
		cfg.RateLimit = raw.RateLimit
	}
	if meta.IsDefined("rate_burst") {
		cfg.RateBurst = raw.RateBurst
	}
	if meta.IsDefined("history_limit") {
		cfg.HistoryLimit = raw.HistoryLimit
	}
	if meta.IsDefined("render_command") {
		cfg.RenderCommand = raw.RenderCommand
	}
	return nil
}

func applyEnvConfig(cfg *kiosker.ServiceConfig, env envConfig) {
	if env.Address != nil {
		cfg.Address = strings.TrimSpace(*env.Address)
	}
	if env.StartURI != nil {
		cfg.StartURI = *env.StartURI
	}
	if env.StatusSocket != nil {
		cfg.StatusSocket = strings.TrimSpace(*env.StatusSocket)
	}
	if env.RateLimit != nil {
		cfg.RateLimit = *env.RateLimit
	}
	if env.RateBurst != nil {
		cfg.RateBurst = *env.RateBurst
	}
	if env.HistoryLimit != nil {
		cfg.HistoryLimit = *env.HistoryLimit
	}
	if env.RenderCommand != nil {
		cfg.RenderCommand = *env.RenderCommand
	}
}
