package settings

import (
	"comfymobile/logger"
)

type (
	Config struct {
		Server  ServerConfig  `toml:"server" validate:"required"`
		Convert ConvertConfig `toml:"convert"`
		Cache   CacheConfig   `toml:"cache"`
		Logging logger.Config `toml:"logging" validate:"required"`
	}

	ServerConfig struct {
		Name string `toml:"name" validate:"required"`
		Url  string `toml:"url" validate:"required,url"`
	}

	ConvertConfig struct {
		ObjectInfoPath string `toml:"objectInfoPath"`
		OutputSuffix   string `toml:"outputSuffix"`
	}

	CacheConfig struct {
		Path     string `toml:"path"`
		TtlHours int    `toml:"ttlHours" validate:"gte=0"`
	}
)
