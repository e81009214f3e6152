package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/kioskctl/internal/kiosker"
	"github.com/pelletier/go-toml/v2"
)

// KioskerConfig is the kioskerctl config.toml schema.
type KioskerConfig struct {
	Address      string  `toml:"address"`
	StartURI     string  `toml:"start_uri"`
	StatusSocket string  `toml:"status_socket"`
	RateLimit    float64 `toml:"rate_limit"`
	RateBurst    int     `toml:"rate_burst"`
	HistoryLimit int     `toml:"history_limit"`

	RenderCommand []string `toml:"render_command"`
}

// DefaultKioskerConfig mirrors kiosker.DefaultServiceConfig.
func DefaultKioskerConfig() KioskerConfig {
	def := kiosker.DefaultServiceConfig()
	return KioskerConfig{
		Address:      def.Address,
		StartURI:     def.StartURI,
		StatusSocket: def.StatusSocket,
		RateLimit:    def.RateLimit,
		RateBurst:    def.RateBurst,
		HistoryLimit: def.HistoryLimit,
	}
}

// ServiceConfig maps the file schema onto the runtime settings.
func (c KioskerConfig) ServiceConfig() kiosker.ServiceConfig {
	cfg := kiosker.DefaultServiceConfig()
	cfg.Address = c.Address
	cfg.StartURI = c.StartURI
	cfg.StatusSocket = c.StatusSocket
	cfg.RateLimit = c.RateLimit
	cfg.RateBurst = c.RateBurst
	cfg.HistoryLimit = c.HistoryLimit
	cfg.RenderCommand = c.RenderCommand
	return cfg
}

// LoadKioskerConfig decodes path over the defaults. Keys missing from the
// file keep their default; unknown keys are an error.
func LoadKioskerConfig(path string) (KioskerConfig, error) {
	cfg := DefaultKioskerConfig()
	if err := loadToml(path, &cfg); err != nil {
		return KioskerConfig{}, err
	}
	cfg.Address = strings.TrimSpace(cfg.Address)
	cfg.StatusSocket = strings.TrimSpace(cfg.StatusSocket)
	if err := ValidateKioskerConfig(cfg); err != nil {
		return KioskerConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			keys := make([]string, 0, len(strict.Errors))
			for _, de := range strict.Errors {
				keys = append(keys, strings.Join(de.Key(), "."))
			}
			return fmt.Errorf("config parse failed (%s): unknown keys: %s", path, strings.Join(keys, ", "))
		}
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateKioskerConfig(cfg KioskerConfig) error {
	return cfg.ServiceConfig().Validate()
}

// Marshal renders cfg as TOML.
func Marshal(cfg KioskerConfig) ([]byte, error) {
	return toml.Marshal(cfg)
}
