package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gavel/internal/utils"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prefix shared by every environment variable the server reads.
const EnvPrefix = "GAVEL_"

// Config represents the server configuration.
type Config struct {
	Log    LogConfig    `envPrefix:"LOG_"`
	TCP    TCPConfig    `envPrefix:"TCP_"`
	HTTP   HTTPConfig   `envPrefix:"HTTP_"`
	Closer CloserConfig `envPrefix:"SWEEP_"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `env:"PRETTY" envDefault:"false"`
}

// TCPConfig is the binary order entry listener.
type TCPConfig struct {
	Address string `env:"ADDRESS" envDefault:"0.0.0.0"`
	Port    int    `env:"PORT" envDefault:"9001" validate:"gte=0,lte=65535"`
	Workers int    `env:"WORKERS" envDefault:"10" validate:"gte=1"`
}

type HTTPConfig struct {
	Address string `env:"ADDRESS" envDefault:":8000" validate:"required"`
}

// CloserConfig controls how often auctions are started and ended on schedule.
type CloserConfig struct {
	Interval time.Duration `env:"INTERVAL" envDefault:"1s" validate:"gt=0"`
}

// Load loads the configuration from the environment.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := utils.ValidateInput(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SetupLogging configures the global zerolog logger.
func (c *Config) SetupLogging() {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if c.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
