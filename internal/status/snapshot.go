// internal/status/snapshot.go
package status

import "time"

// Snapshot is the health of one interface.
// It carries no logic; the Tracker owns all transitions.
type Snapshot struct {
	Health              Health
	LastErrorCode       uint16
	LastError           string
	ConsecutiveFailures uint32

	// ErrorSince is zero unless Health is HealthError.
	ErrorSince time.Time
	UpdatedAt  time.Time
}
