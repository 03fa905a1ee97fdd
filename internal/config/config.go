// Package config loads the agent settings from the process environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	LogLevel   string `env:"Y_LOGLEVEL" envDefault:"debug"`
	LogFile    string `env:"Y_LOGFILE"`
	LogMaxSize int    `env:"Y_LOGMAXSIZE" envDefault:"16"`
	LogColor   bool   `env:"Y_LOGCOLOR" envDefault:"true"`
	Console    bool   `env:"Y_CONSOLE" envDefault:"false"`
	MinHook    string `env:"Y_MINHOOK"`
}

func Load() (Config, error) {
	return load(env.Options{})
}

func load(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
