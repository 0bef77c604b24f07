// internal/gateway/plan.go
package gateway

import (
	"strings"

	"github.com/tamzrod/modbus-gateway/internal/batch"
)

// Group is the ordered work for one interface.
type Group struct {
	Interface string
	Items     []batch.Item
}

// Plan groups point paths by interface.
// Groups keep first-seen order; items keep arrival order.
type Plan struct {
	groups []Group
	index  map[string]int
}

func NewPlan() *Plan {
	return &Plan{index: make(map[string]int)}
}

// Push adds one path. Paths not shaped "/<interface>/<slave>/<point>"
// are dropped and Push reports false.
func (p *Plan) Push(path string, value any) bool {
	iface, slave, point, ok := splitPath(path)
	if !ok {
		return false
	}

	item := batch.Item{Slave: slave, Point: point, Value: value}

	i, ok := p.index[iface]
	if !ok {
		p.index[iface] = len(p.groups)
		p.groups = append(p.groups, Group{Interface: iface, Items: []batch.Item{item}})
		return true
	}
	p.groups[i].Items = append(p.groups[i].Items, item)
	return true
}

// Groups returns the planned groups.
func (p *Plan) Groups() []Group {
	return p.groups
}

// Len returns the number of accepted paths.
func (p *Plan) Len() int {
	n := 0
	for _, g := range p.groups {
		n += len(g.Items)
	}
	return n
}

// splitPath requires exactly four segments with an empty first one.
// Inner segments may be empty; lookups reject them later.
func splitPath(path string) (iface, slave, point string, ok bool) {
	if !strings.HasPrefix(path, "/") {
		return "", "", "", false
	}
	parts := strings.Split(path, "/")
	if len(parts) != 4 {
		return "", "", "", false
	}
	return parts[1], parts[2], parts[3], true
}
