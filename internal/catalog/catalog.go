// internal/catalog/catalog.go
package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// Point is one addressable value.
type Point struct {
	Address   uint8
	Block     BlockType
	Type      ValueType
	WriteMode WriteMode // ignored for Di / Ir
}

// Slave is one physical device on a link.
type Slave struct {
	ID uint8

	co map[string]Point
	di map[string]Point
	hr map[string]Point
	ir map[string]Point
}

// FindPoint looks name up in Co, Di, Hr, Ir order.
// When a name exists in several blocks the first one wins.
func (s *Slave) FindPoint(name string) (Point, bool) {
	for _, b := range BlockTypes() {
		if p, ok := s.block(b)[name]; ok {
			return p, true
		}
	}
	return Point{}, false
}

// Len returns the number of points in block b.
func (s *Slave) Len(b BlockType) int {
	return len(s.block(b))
}

func (s *Slave) block(b BlockType) map[string]Point {
	switch b {
	case BlockCo:
		return s.co
	case BlockDi:
		return s.di
	case BlockHr:
		return s.hr
	case BlockIr:
		return s.ir
	}
	return nil
}

// Interface is one physical Modbus link.
// Read-only once built; shared by pointer between concurrent requests.
type Interface struct {
	Name     string
	Protocol Protocol
	Address  string
	Config   uint32 // baudrate (rtu) or tcp port (tcp)

	slaves map[string]*Slave
}

// FindSlave returns the slave registered under name.
func (i *Interface) FindSlave(name string) (*Slave, bool) {
	s, ok := i.slaves[name]
	return s, ok
}

// SlaveNames returns slave names in sorted order.
func (i *Interface) SlaveNames() []string {
	names := make([]string, 0, len(i.slaves))
	for n := range i.slaves {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (i *Interface) String() string {
	configKey := "tcp_port"
	if i.Protocol == ProtocolRTU {
		configKey = "baudrate"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "protocol: %s\naddress: %s\n%s: %d\nslaves:\n", i.Protocol, i.Address, configKey, i.Config)
	for _, name := range i.SlaveNames() {
		s := i.slaves[name]
		fmt.Fprintf(&b, "  %s: %d\n", name, s.ID)
		for _, bt := range BlockTypes() {
			fmt.Fprintf(&b, "    %s: %d\n", strings.ToLower(bt.String()), s.Len(bt))
		}
	}
	return b.String()
}

// Catalog is the immutable set of configured interfaces.
type Catalog struct {
	interfaces map[string]*Interface
}

// Interface returns the interface registered under name.
func (c *Catalog) Interface(name string) (*Interface, bool) {
	i, ok := c.interfaces[name]
	return i, ok
}

// Names returns interface names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.interfaces))
	for n := range c.interfaces {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Collision is a point name defined in more than one block of a slave.
type Collision struct {
	Interface string
	Slave     string
	Point     string
	Blocks    []BlockType // priority order; Blocks[0] wins lookups
}

func (c Collision) String() string {
	parts := make([]string, len(c.Blocks))
	for i, b := range c.Blocks {
		parts[i] = b.String()
	}
	return fmt.Sprintf("/%s/%s/%s defined in %s, %s wins",
		c.Interface, c.Slave, c.Point, strings.Join(parts, ","), parts[0])
}

// Collisions reports every cross-block name collision, sorted by path.
func (c *Catalog) Collisions() []Collision {
	var out []Collision
	for _, iname := range c.Names() {
		iface := c.interfaces[iname]
		for _, sname := range iface.SlaveNames() {
			s := iface.slaves[sname]

			seen := make(map[string][]BlockType)
			for _, b := range BlockTypes() {
				for name := range s.block(b) {
					seen[name] = append(seen[name], b)
				}
			}

			names := make([]string, 0, len(seen))
			for name, blocks := range seen {
				if len(blocks) > 1 {
					names = append(names, name)
				}
			}
			sort.Strings(names)

			for _, name := range names {
				out = append(out, Collision{
					Interface: iname,
					Slave:     sname,
					Point:     name,
					Blocks:    seen[name],
				})
			}
		}
	}
	return out
}
