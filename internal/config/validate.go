// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if cfg.Bus.URL == "" && !cfg.Bus.Embedded {
		return errors.New("config: bus.url is required unless bus.embedded is set")
	}

	if len(cfg.Interfaces) == 0 {
		return errors.New("config: at least one interface required")
	}

	for name, ic := range cfg.Interfaces {
		if err := checkName("interface", name); err != nil {
			return err
		}

		// ------------------------------------------------------------
		// LINK CONFIG (protocol specific)
		// ------------------------------------------------------------

		switch ic.Protocol {
		case "rtu":
			if ic.Baudrate == 0 {
				return fmt.Errorf("interface %q: missing required 'baudrate' for rtu", name)
			}
		case "tcp":
			if ic.TCPPort == 0 || ic.TCPPort > 65535 {
				return fmt.Errorf("interface %q: invalid tcp_port %d", name, ic.TCPPort)
			}
		}

		// ------------------------------------------------------------
		// POINT NAMES (unique within one block)
		// ------------------------------------------------------------

		for sname, sc := range ic.Slaves {
			if err := checkName("slave", sname); err != nil {
				return fmt.Errorf("interface %q: %w", name, err)
			}

			blocks := []struct {
				key    string
				points []PointConfig
			}{
				{"co", sc.Co}, {"di", sc.Di}, {"hr", sc.Hr}, {"ir", sc.Ir},
			}

			for _, b := range blocks {
				seen := make(map[string]struct{}, len(b.points))
				for _, p := range b.points {
					if err := checkName("point", p.Name); err != nil {
						return fmt.Errorf("interface %q slave %q: %w", name, sname, err)
					}
					if _, dup := seen[p.Name]; dup {
						return fmt.Errorf(
							"interface %q slave %q: point %q defined twice in %s",
							name, sname, p.Name, b.key,
						)
					}
					seen[p.Name] = struct{}{}
				}
			}
		}
	}

	return nil
}

// checkName rejects names that cannot be addressed by a point path.
func checkName(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s name must not be empty", kind)
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("%s name %q must not contain '/'", kind, name)
	}
	return nil
}
