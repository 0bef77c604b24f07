// internal/config/normalize.go
package config

import "strings"

const (
	DefaultSubject   = "modbus.gateway"
	DefaultBusHost   = "127.0.0.1"
	DefaultBusPort   = 4222
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"

	DefaultPointType = "bool"
	DefaultPointFunc = "multiple"
)

// Normalize lowercases enumerated fields and fills defaults.
// It is allowed to mutate configuration.
// It MUST be called before Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Bus.Subject == "" {
		cfg.Bus.Subject = DefaultSubject
	}
	if cfg.Bus.Embedded && cfg.Bus.Host == "" {
		cfg.Bus.Host = DefaultBusHost
	}
	if cfg.Bus.Embedded && cfg.Bus.Port == 0 {
		cfg.Bus.Port = DefaultBusPort
	}

	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}

	for name, ic := range cfg.Interfaces {
		ic.Protocol = strings.ToLower(ic.Protocol)

		for sname, sc := range ic.Slaves {
			normalizePoints(sc.Co, true)
			normalizePoints(sc.Di, false)
			normalizePoints(sc.Hr, true)
			normalizePoints(sc.Ir, false)
			ic.Slaves[sname] = sc
		}

		cfg.Interfaces[name] = ic
	}
}

// normalizePoints applies type and func defaults in place.
// func is only meaningful on writable blocks and is cleared elsewhere.
func normalizePoints(points []PointConfig, writable bool) {
	for i := range points {
		p := &points[i]

		p.Type = strings.ToLower(p.Type)
		if p.Type == "" {
			p.Type = DefaultPointType
		}

		if !writable {
			p.Func = ""
			continue
		}
		p.Func = strings.ToLower(p.Func)
		if p.Func == "" {
			p.Func = DefaultPointFunc
		}
	}
}
