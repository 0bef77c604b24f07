// internal/catalog/builder.go
package catalog

import (
	"errors"
	"fmt"

	cfg "github.com/tamzrod/modbus-gateway/internal/config"
)

// Build converts a normalized, validated config into a Catalog.
// The returned catalog is never mutated afterwards.
func Build(c *cfg.Config) (*Catalog, error) {
	if c == nil {
		return nil, errors.New("catalog: nil config")
	}

	cat := &Catalog{interfaces: make(map[string]*Interface, len(c.Interfaces))}

	for name, ic := range c.Interfaces {
		iface, err := buildInterface(name, ic)
		if err != nil {
			return nil, fmt.Errorf("catalog: interface %q: %w", name, err)
		}
		cat.interfaces[name] = iface
	}

	return cat, nil
}

func buildInterface(name string, ic cfg.InterfaceConfig) (*Interface, error) {
	proto, err := parseProtocol(ic.Protocol)
	if err != nil {
		return nil, err
	}

	iface := &Interface{
		Name:     name,
		Protocol: proto,
		Address:  ic.Address,
		slaves:   make(map[string]*Slave, len(ic.Slaves)),
	}

	switch proto {
	case ProtocolRTU:
		iface.Config = ic.Baudrate
	case ProtocolTCP:
		iface.Config = ic.TCPPort
	}

	for sname, sc := range ic.Slaves {
		if sc.ID == nil || *sc.ID < 0 || *sc.ID > 255 {
			return nil, fmt.Errorf("slave %q: invalid id", sname)
		}

		s := &Slave{ID: uint8(*sc.ID)}

		blocks := []struct {
			bt     BlockType
			points []cfg.PointConfig
			dst    *map[string]Point
		}{
			{BlockCo, sc.Co, &s.co},
			{BlockDi, sc.Di, &s.di},
			{BlockHr, sc.Hr, &s.hr},
			{BlockIr, sc.Ir, &s.ir},
		}

		for _, b := range blocks {
			m := make(map[string]Point, len(b.points))
			for _, pc := range b.points {
				p, err := buildPoint(b.bt, pc)
				if err != nil {
					return nil, fmt.Errorf("slave %q point %q: %w", sname, pc.Name, err)
				}
				m[pc.Name] = p
			}
			*b.dst = m
		}

		iface.slaves[sname] = s
	}

	return iface, nil
}

func buildPoint(bt BlockType, pc cfg.PointConfig) (Point, error) {
	if pc.Addr == nil || *pc.Addr < 0 || *pc.Addr > 255 {
		return Point{}, errors.New("invalid addr")
	}

	vt, err := parseValueType(pc.Type)
	if err != nil {
		return Point{}, err
	}

	mode := WriteMultiple
	if bt.Writable() {
		if mode, err = parseWriteMode(pc.Func); err != nil {
			return Point{}, err
		}
	}

	return Point{
		Address:   uint8(*pc.Addr),
		Block:     bt,
		Type:      vt,
		WriteMode: mode,
	}, nil
}
