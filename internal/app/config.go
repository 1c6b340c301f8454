package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"

	"picturemission/internal/progress"
)

// Config controls runtime behavior for the TUI app.
type Config struct {
	DataDir      string `env:"PICTUREMISSION_DATA_DIR"`
	LogPath      string `env:"PICTUREMISSION_LOG_PATH"`
	CatalogPath  string `env:"PICTUREMISSION_CATALOG"`
	StateKey     string `env:"PICTUREMISSION_STATE_KEY"`
	Memory       bool   `env:"PICTUREMISSION_MEMORY"`
	Dev          bool   `env:"PICTUREMISSION_DEV"`
	DevHTTP      string `env:"PICTUREMISSION_DEV_HTTP"`
	DemoScenario string `env:"PICTUREMISSION_DEMO"`
	ASCIIOnly    bool   `env:"PICTUREMISSION_ASCII"`
	Debug        bool   `env:"PICTUREMISSION_DEBUG"`
	// EnablePrizes overrides the catalog's enable_prizes when set.
	EnablePrizes *bool `env:"PICTUREMISSION_ENABLE_PRIZES"`
	UI           UIConfig
}

type UIConfig struct {
	StyleVariant string `env:"PICTUREMISSION_STYLE"`
	MotionLevel  string `env:"PICTUREMISSION_MOTION"`
}

func DefaultConfig() Config {
	return Config{
		StateKey: progress.DefaultStateKey,
		DevHTTP:  "127.0.0.1:17321",
		UI: UIConfig{
			StyleVariant: "modern_arcade",
			MotionLevel:  "full",
		},
	}
}

// LoadConfig starts from DefaultConfig and applies PICTUREMISSION_* variables.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.UI.StyleVariant {
	case "", "modern_arcade", "cozy_clean", "retro_terminal":
	default:
		return fmt.Errorf("invalid ui style variant %q", c.UI.StyleVariant)
	}
	if c.UI.StyleVariant == "" {
		c.UI.StyleVariant = "modern_arcade"
	}
	switch c.UI.MotionLevel {
	case "", "off", "reduced", "full":
	default:
		return fmt.Errorf("invalid ui motion level %q", c.UI.MotionLevel)
	}
	if c.UI.MotionLevel == "" {
		c.UI.MotionLevel = "full"
	}

	c.StateKey = strings.TrimSpace(c.StateKey)
	if c.StateKey == "" {
		c.StateKey = progress.DefaultStateKey
	}
	if c.Dev && strings.TrimSpace(c.DevHTTP) == "" {
		return errors.New("dev mode needs a listen address")
	}

	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.New("cannot resolve user home directory")
		}
		c.DataDir = filepath.Join(home, ".local", "share", "picturemission")
	}
	return nil
}

// StatePath is the sqlite file holding progress and mission history.
func (c Config) StatePath() string {
	return filepath.Join(c.DataDir, "state.db")
}
