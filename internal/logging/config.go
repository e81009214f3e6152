package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvPrefix       = "KIOSK_LOG"
	EnvLogLevel     = "KIOSK_LOG_LEVEL"
	EnvLogTimestamp = "KIOSK_LOG_TIMESTAMP"
	EnvLogNoColor   = "KIOSK_LOG_NOCOLOR"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Config is the resolved console logger setup.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
	Out       io.Writer
}

var configureOnce sync.Once

func ConfigureRuntime() {
	Configure(ProfileRuntime)
}

func ConfigureTests() {
	Configure(ProfileTest)
}

func Configure(profile Profile) {
	configureOnce.Do(func() {
		cfg := defaultConfig(profile)
		errs := applyEnvOverrides(&cfg)
		log.Logger = New(cfg)
		zerolog.SetGlobalLevel(cfg.Level)
		for _, err := range errs {
			log.Logger.Warn().Err(err).Msg("ignoring log environment override")
		}
	})
}

// New builds a console logger writing to cfg.Out.
func New(cfg Config) zerolog.Logger {
	out := cfg.Out
	if out == nil {
		out = colorable.NewColorableStderr()
	}
	writer := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    cfg.NoColor,
		TimeFormat: time.RFC3339,
	}
	if !cfg.Timestamp {
		writer.PartsExclude = []string{zerolog.TimestampFieldName}
	}
	return zerolog.New(writer).Level(cfg.Level).With().Timestamp().Logger()
}

// For returns the global logger tagged with a component name.
func For(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

func defaultConfig(profile Profile) Config {
	cfg := Config{
		NoColor: !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()),
	}
	switch profile {
	case ProfileTest:
		cfg.Level = zerolog.DebugLevel
		cfg.Timestamp = false
	default:
		cfg.Level = zerolog.InfoLevel
		cfg.Timestamp = true
	}
	return cfg
}

// applyEnvOverrides reads each variable on its own so one malformed value
// does not discard the others. Rejected values are returned.
func applyEnvOverrides(cfg *Config) []error {
	var errs []error

	var level struct {
		Value string `envconfig:"LEVEL"`
	}
	if err := envconfig.Process(EnvPrefix, &level); err != nil {
		errs = append(errs, err)
	} else if strings.TrimSpace(level.Value) != "" {
		if lvl, ok := parseLevel(level.Value); ok {
			cfg.Level = lvl
		} else {
			errs = append(errs, fmt.Errorf("%s: unknown level %q", EnvLogLevel, level.Value))
		}
	}

	var timestamp struct {
		Value *bool `envconfig:"TIMESTAMP"`
	}
	if err := envconfig.Process(EnvPrefix, &timestamp); err != nil {
		errs = append(errs, err)
	} else if timestamp.Value != nil {
		cfg.Timestamp = *timestamp.Value
	}

	var noColor struct {
		Value *bool `envconfig:"NOCOLOR"`
	}
	if err := envconfig.Process(EnvPrefix, &noColor); err != nil {
		errs = append(errs, err)
	} else if noColor.Value != nil {
		cfg.NoColor = *noColor.Value
	}
	return errs
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace", "diagnostics":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none", "inactive":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}
