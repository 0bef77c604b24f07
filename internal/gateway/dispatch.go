// internal/gateway/dispatch.go
package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-gateway/internal/batch"
	"github.com/tamzrod/modbus-gateway/internal/catalog"
	"github.com/tamzrod/modbus-gateway/internal/fault"
	"github.com/tamzrod/modbus-gateway/internal/metrics"
	"github.com/tamzrod/modbus-gateway/internal/modbus"
)

// Opener opens a fresh session for one batch.
type Opener func(ctx context.Context, iface *catalog.Interface) (modbus.Session, error)

// HealthRecorder receives the outcome of every batch.
type HealthRecorder interface {
	Observe(iface string, err error)
}

// Dispatcher runs one batch per interface group concurrently.
type Dispatcher struct {
	catalog *catalog.Catalog
	open    Opener
	exec    *batch.Executor
	health  HealthRecorder
	log     zerolog.Logger
}

// NewDispatcher creates a dispatcher. A nil open uses modbus.Open;
// health may be nil.
func NewDispatcher(cat *catalog.Catalog, open Opener, health HealthRecorder, log zerolog.Logger) *Dispatcher {
	if open == nil {
		open = modbus.Open
	}
	return &Dispatcher{
		catalog: cat,
		open:    open,
		exec:    batch.New(log),
		health:  health,
		log:     log,
	}
}

type groupResult struct {
	results []batch.Result
	err     error
}

// Dispatch runs every group and merges the Get results by point name.
//
// An unknown interface rejects the whole request before any session
// is opened. A failing group is logged and contributes nothing; it
// never fails the request.
func (d *Dispatcher) Dispatch(ctx context.Context, groups []Group, intent modbus.Intent) (map[string]any, error) {
	ifaces := make([]*catalog.Interface, len(groups))
	for i, g := range groups {
		iface, ok := d.catalog.Interface(g.Interface)
		if !ok {
			return nil, fault.New(fault.KindUnknownInterface, "%s", g.Interface)
		}
		ifaces[i] = iface
	}

	out := make([]groupResult, len(groups))

	var wg sync.WaitGroup
	for i := range groups {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := d.runGroup(ctx, ifaces[i], intent, groups[i].Items)
			out[i] = groupResult{results: res, err: err}
		}(i)
	}
	wg.Wait()

	// merge in plan order; later groups overwrite duplicate point names
	merged := make(map[string]any)
	for _, r := range out {
		if r.err != nil {
			continue
		}
		for _, res := range r.results {
			merged[res.Point] = res.Value
		}
	}
	return merged, nil
}

func (d *Dispatcher) runGroup(ctx context.Context, iface *catalog.Interface, intent modbus.Intent, items []batch.Item) ([]batch.Result, error) {
	start := time.Now()

	d.log.Info().
		Str("interface", iface.Name).
		Stringer("intent", intent).
		Int("items", len(items)).
		Msg("batch started")

	results, err := d.execute(ctx, iface, intent, items)

	metrics.ObserveBatch(iface.Name, err == nil, time.Since(start))
	if d.health != nil {
		d.health.Observe(iface.Name, err)
	}

	if err != nil {
		d.log.Warn().
			Err(err).
			Str("interface", iface.Name).
			Stringer("intent", intent).
			Str("kind", fault.KindOf(err).String()).
			Msg("batch failed")
		return nil, err
	}
	return results, nil
}

func (d *Dispatcher) execute(ctx context.Context, iface *catalog.Interface, intent modbus.Intent, items []batch.Item) ([]batch.Result, error) {
	sess, err := d.open(ctx, iface)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			d.log.Debug().Err(cerr).Str("interface", iface.Name).Msg("session close failed")
		}
	}()

	return d.exec.Run(ctx, sess, iface, intent, items)
}
