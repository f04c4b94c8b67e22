package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const DefaultPath = "config/config.yaml"

type Config struct {
	Env    string       `yaml:"env" env:"ENV" env-default:"prod"`
	API    APIConfig    `yaml:"api"`
	Form   FormConfig   `yaml:"form"`
	Health HealthConfig `yaml:"health"`
	Log    LogConfig    `yaml:"log"`
}

// APIConfig points at the sensor metadata service. URL is the full endpoint
// the form POSTs to.
type APIConfig struct {
	URL     string        `yaml:"url" env:"API_URL" env-required:"true"`
	Timeout time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"30s"`
}

type FormConfig struct {
	StatusTTL time.Duration `yaml:"status_ttl" env:"FORM_STATUS_TTL" env-default:"5s"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled" env:"HEALTH_ENABLED" env-default:"false"`
	Address string `yaml:"address" env:"HEALTH_ADDRESS" env-default:":8081"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// Load resolves the config path (argument, CONFIG_PATH, DefaultPath) and
// reads it. When the default file is absent the environment alone is used.
func Load(configPath string) (*Config, error) {
	explicit := true
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		configPath = DefaultPath
		explicit = false
	}

	var cfg Config

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if explicit {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from environment: %w", err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return &cfg, nil
}

func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}
