// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Bus        BusConfig                  `yaml:"bus"`
	Logging    LoggingConfig              `yaml:"logging"`
	Metrics    MetricsConfig              `yaml:"metrics"`
	Interfaces map[string]InterfaceConfig `yaml:"interfaces" validate:"dive"`
}

// ---- BUS ----

type BusConfig struct {
	URL      string `yaml:"url"`
	Subject  string `yaml:"subject"`
	Queue    string `yaml:"queue"`
	Embedded bool   `yaml:"embedded"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" validate:"min=0,max=65535"`
}

// ---- LOGGING ----

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json"`
	File   string `yaml:"file"`
}

// ---- METRICS ----

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen" validate:"required_if=Enabled true"`
}

// ---- INTERFACE ----

type InterfaceConfig struct {
	Protocol string                 `yaml:"protocol" validate:"required,oneof=rtu tcp"`
	Address  string                 `yaml:"address" validate:"required"`
	Baudrate uint32                 `yaml:"baudrate"`
	TCPPort  uint32                 `yaml:"tcp_port"`
	Slaves   map[string]SlaveConfig `yaml:"slaves" validate:"required,min=1,dive"`
}

// ---- SLAVE ----

type SlaveConfig struct {
	ID *int          `yaml:"id" validate:"required,min=0,max=255"`
	Co []PointConfig `yaml:"co" validate:"dive"`
	Di []PointConfig `yaml:"di" validate:"dive"`
	Hr []PointConfig `yaml:"hr" validate:"dive"`
	Ir []PointConfig `yaml:"ir" validate:"dive"`
}

// ---- POINT ----

type PointConfig struct {
	Name string `yaml:"name" validate:"required"`
	Addr *int   `yaml:"addr" validate:"required,min=0,max=255"`
	Type string `yaml:"type" validate:"omitempty,oneof=bool u16 i16 u32 i32 f32"`
	Func string `yaml:"func" validate:"omitempty,oneof=single multiple"`
}

// Load reads a gateway configuration file.
// The result is not normalized or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadInterface reads a file holding a single interface definition
// and registers it under name.
func LoadInterface(cfg *Config, name, path string) error {
	if name == "" {
		return fmt.Errorf("config: interface name required for %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var ic InterfaceConfig
	if err := yaml.Unmarshal(data, &ic); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.Interfaces == nil {
		cfg.Interfaces = make(map[string]InterfaceConfig)
	}
	if _, exists := cfg.Interfaces[name]; exists {
		return fmt.Errorf("config: interface %q defined twice", name)
	}
	cfg.Interfaces[name] = ic
	return nil
}
