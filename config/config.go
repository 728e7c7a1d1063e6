package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the full server configuration. Every field has a default so a
// config file is optional; CLI flags and env vars override file values.
type Config struct {
	Hostname    string `toml:"hostname"`
	Port        int    `toml:"port"`
	CORSOrigins string `toml:"cors_origins"`

	DBHost     string `toml:"db_host"`
	DBPort     int    `toml:"db_port"`
	DBUser     string `toml:"db_user"`
	DBPassword string `toml:"db_password"`
	DBName     string `toml:"db_name"`

	JWTSecret     string `toml:"jwt_secret"`
	TokenTTLHours int    `toml:"token_ttl_hours"`

	NotifyWorkers   int `toml:"notify_workers"`
	NotifyQueueSize int `toml:"notify_queue_size"`

	DefaultPageSize int `toml:"default_page_size"`
	MaxPageSize     int `toml:"max_page_size"`
}

func Default() *Config {
	return &Config{
		Hostname:        "localhost",
		Port:            8080,
		CORSOrigins:     "http://localhost:3001",
		DBHost:          "localhost",
		DBPort:          5432,
		DBUser:          "campushub",
		DBPassword:      "campushub",
		DBName:          "campushub",
		TokenTTLHours:   24,
		NotifyWorkers:   4,
		NotifyQueueSize: 256,
		DefaultPageSize: 20,
		MaxPageSize:     50,
	}
}

// Load reads a TOML config file on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}
