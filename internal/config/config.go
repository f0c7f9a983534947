package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	HistoryLimit      int           `mapstructure:"history_limit" yaml:"history_limit"`
	AvatarDir         string        `mapstructure:"avatar_dir" yaml:"avatar_dir"`
	AvatarMaxBytes    int64         `mapstructure:"avatar_max_bytes" yaml:"avatar_max_bytes"`
	StaticDir         string        `mapstructure:"static_dir" yaml:"static_dir"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		HistoryLimit:      200,
		AvatarDir:         "data/avatars",
		AvatarMaxBytes:    2 << 20, // 2 MiB
		StaticDir:         "static",
	}
}
