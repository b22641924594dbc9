package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Server holds the server settings that may come from the environment. The
// values become flag defaults, so explicit flags still win.
type Server struct {
	Addr       string `env:"WAYFARER_ADDR" envDefault:":8080"`
	ConfigDir  string `env:"WAYFARER_CONFIGS" envDefault:"./configs"`
	DataDir    string `env:"WAYFARER_DATA" envDefault:"./data"`
	TuningPath string `env:"WAYFARER_TUNING"`
	DisableDB  bool   `env:"WAYFARER_DISABLE_DB"`
}

func LoadServer() (Server, error) {
	var s Server
	if err := ParseEnv(&s); err != nil {
		return Server{}, err
	}
	return s, nil
}
