// internal/status/encode.go
package status

import "time"

// View is the JSON shape of a Snapshot.
type View struct {
	Interface           string `json:"interface"`
	Health              string `json:"health"`
	HealthCode          uint8  `json:"health_code"`
	LastErrorCode       uint16 `json:"last_error_code"`
	LastError           string `json:"last_error,omitempty"`
	ConsecutiveFailures uint32 `json:"consecutive_failures"`
	SecondsInError      uint16 `json:"seconds_in_error"`
	UpdatedAt           string `json:"updated_at,omitempty"`
}

// Encode converts a Snapshot into its reported view at time now.
// No IO. No side effects.
func Encode(name string, s Snapshot, now time.Time) View {
	v := View{
		Interface:           name,
		Health:              s.Health.String(),
		HealthCode:          uint8(s.Health),
		LastErrorCode:       s.LastErrorCode,
		LastError:           s.LastError,
		ConsecutiveFailures: s.ConsecutiveFailures,
	}

	if s.Health == HealthError && !s.ErrorSince.IsZero() {
		secs := now.Sub(s.ErrorSince) / time.Second
		if secs > SecondsInErrorMax {
			secs = SecondsInErrorMax
		}
		if secs > 0 {
			v.SecondsInError = uint16(secs)
		}
	}
	if !s.UpdatedAt.IsZero() {
		v.UpdatedAt = s.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return v
}
