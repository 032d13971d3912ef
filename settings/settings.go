package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"comfymobile/logger"
)

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(c)
}

// Default returns the configuration used when no config file exists:
// a local backend, a day of metadata caching, text logging.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "local",
			Url:  "http://127.0.0.1:8188",
		},
		Convert: ConvertConfig{
			OutputSuffix: ".api.json",
		},
		Cache: CacheConfig{
			Path:     "cache/comfymobile",
			TtlHours: 24,
		},
		Logging: logger.Config{
			Level:  logger.LevelInfo,
			Format: "text",
		},
	}
}

// LoadConfig loads the configuration from a TOML file, layered over the
// defaults. It returns a pointer to the Config struct or an error if
// loading fails.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Get absolute path for better error messages
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path // fallback to relative path
	}

	config := Default()
	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", absPath, err)
	}

	// Validate the configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// TTL converts the configured cache lifetime to a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TtlHours) * time.Hour
}
