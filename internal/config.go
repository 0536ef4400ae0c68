package internal

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the top-level, viper-loaded configuration for a database
// instance: where its file lives, how many frames each buffer pool gets
// and the LRU-K replacer's k, B+-tree fanout, and debug logging. The page
// size is the compile-time storage.PageSize, not a config value.
type Config struct {
	Storage struct {
		File              string `mapstructure:"file"`
		BufferPoolFrames  int    `mapstructure:"buffer_pool_frames"`
		ReplacerK         int    `mapstructure:"replacer_k"`
	} `mapstructure:"storage"`
	Index struct {
		LeafMaxSize     int `mapstructure:"leaf_max_size"`
		InternalMaxSize int `mapstructure:"internal_max_size"`
	} `mapstructure:"index"`
	Server struct {
		Debug bool `mapstructure:"debug"`
	} `mapstructure:"server"`
}

// DefaultConfig returns sane defaults, used when no config file is given
// (e.g. the embedded REPL pointed straight at a database file).
func DefaultConfig(file string) *Config {
	var cfg Config
	cfg.Storage.File = file
	cfg.Storage.BufferPoolFrames = 64
	cfg.Storage.ReplacerK = 2
	cfg.Server.Debug = false
	return &cfg
}

// LoadConfig reads a YAML config file via viper, falling back to
// DefaultConfig's values for anything left unset.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("storage.buffer_pool_frames", 64)
	v.SetDefault("storage.replacer_k", 2)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("internal: read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("internal: unmarshal config: %w", err)
	}
	return &cfg, nil
}
