package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DB           *Postgres     `yaml:"database"`
	Server       *Server       `yaml:"server"`
	Admin        *Admin        `yaml:"admin"`
	Reservations *Reservations `yaml:"reservations"`
	Events       *Events       `yaml:"events"`
}

type Postgres struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Admin struct {
	Token string `yaml:"token"`
}

type Reservations struct {
	SlotCapacity int `yaml:"slot_capacity"`
}

type Events struct {
	PingIntervalSeconds int `yaml:"ping_interval_seconds"`
}

const (
	DefaultPort         = 3000
	DefaultSlotCapacity = 6
	DefaultPingSeconds  = 25
)

// Load reads the YAML config at path. Credentials may be overridden through
// the CASALUNA_DB_PASSWORD and CASALUNA_ADMIN_TOKEN environment variables so
// they do not have to live in the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.DB == nil {
		return nil, fmt.Errorf("config %s: missing database section", path)
	}
	cfg.DB.Password = getEnv("CASALUNA_DB_PASSWORD", cfg.DB.Password)

	if cfg.Server == nil {
		cfg.Server = &Server{}
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}

	if cfg.Admin == nil {
		cfg.Admin = &Admin{}
	}
	cfg.Admin.Token = getEnv("CASALUNA_ADMIN_TOKEN", cfg.Admin.Token)

	if cfg.Reservations == nil {
		cfg.Reservations = &Reservations{}
	}
	if cfg.Reservations.SlotCapacity == 0 {
		cfg.Reservations.SlotCapacity = DefaultSlotCapacity
	}

	if cfg.Events == nil {
		cfg.Events = &Events{}
	}
	if cfg.Events.PingIntervalSeconds == 0 {
		cfg.Events.PingIntervalSeconds = DefaultPingSeconds
	}

	return cfg, nil
}

// PingInterval is the keep-alive period for open event streams.
func (c *Config) PingInterval() time.Duration {
	return time.Duration(c.Events.PingIntervalSeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
