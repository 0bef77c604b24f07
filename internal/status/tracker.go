// internal/status/tracker.go
package status

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-gateway/internal/metrics"
)

// Tracker keeps the health of every interface.
// Safe for concurrent use; batches on different interfaces report in parallel.
type Tracker struct {
	mu    sync.Mutex
	snaps map[string]*Snapshot
	log   zerolog.Logger
	now   func() time.Time
}

// NewTracker creates a tracker with every named interface in HealthUnknown.
func NewTracker(names []string, log zerolog.Logger) *Tracker {
	t := &Tracker{
		snaps: make(map[string]*Snapshot, len(names)),
		log:   log,
		now:   time.Now,
	}
	for _, n := range names {
		t.snaps[n] = &Snapshot{}
		metrics.SetInterfaceHealth(n, uint8(HealthUnknown))
	}
	return t
}

// Observe records the outcome of one batch on iface.
// A nil err is a success.
func (t *Tracker) Observe(iface string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap, ok := t.snaps[iface]
	if !ok {
		snap = &Snapshot{}
		t.snaps[iface] = snap
	}
	prev := snap.Health
	now := t.now()
	snap.UpdatedAt = now

	if err == nil {
		// Recovery / OK
		snap.Health = HealthOK
		snap.LastErrorCode = 0
		snap.LastError = ""
		snap.ConsecutiveFailures = 0
		snap.ErrorSince = time.Time{}

		if prev != HealthOK {
			t.log.Info().Str("interface", iface).Str("from", prev.String()).Msg("interface healthy")
		}
	} else {
		if prev != HealthError {
			snap.ErrorSince = now
		}
		snap.Health = HealthError
		snap.LastErrorCode = errorCode(err)
		snap.LastError = err.Error()
		snap.ConsecutiveFailures++

		if prev != HealthError {
			t.log.Warn().Str("interface", iface).Str("from", prev.String()).
				Uint16("code", snap.LastErrorCode).Err(err).Msg("interface failing")
		}
	}

	if prev != snap.Health {
		metrics.SetInterfaceHealth(iface, uint8(snap.Health))
	}
}

// Get returns a copy of the snapshot for iface.
func (t *Tracker) Get(iface string) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.snaps[iface]
	if !ok {
		return Snapshot{}, false
	}
	return *s, true
}

// Views returns the reported view of every interface, sorted by name.
func (t *Tracker) Views() []View {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	out := make([]View, 0, len(t.snaps))
	for name, s := range t.snaps {
		out = append(out, Encode(name, *s, now))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Interface < out[j].Interface })
	return out
}

// ---- metrics.HealthSource ----

// Report returns every view and whether no interface is in error.
func (t *Tracker) Report() (any, bool) {
	views := t.Views()
	healthy := true
	for _, v := range views {
		if v.HealthCode == uint8(HealthError) {
			healthy = false
		}
	}
	return views, healthy
}

// Interface returns the view of one interface.
func (t *Tracker) Interface(name string) (any, bool) {
	s, ok := t.Get(name)
	if !ok {
		return nil, false
	}
	return Encode(name, s, t.now()), true
}

// errorCode extracts a best-effort uint16 code from an error without assuming concrete types.
// If the error does not expose a code, returns 1 (generic error).
func errorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	type coderA interface{ Code() uint16 }
	type coderB interface{ ErrorCode() uint16 }

	var a coderA
	if errors.As(err, &a) {
		return a.Code()
	}
	var b coderB
	if errors.As(err, &b) {
		return b.ErrorCode()
	}

	return 1
}
