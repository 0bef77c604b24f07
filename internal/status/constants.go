// internal/status/constants.go
package status

// ---- HEALTH CODES ----

// Health is the state of one interface as seen by the last batch.
type Health uint8

// HealthUnknown means no batch has run on the interface yet.
const HealthUnknown Health = 0

// HealthOK means the last batch succeeded.
const HealthOK Health = 1

// HealthError means the last batch failed.
const HealthError Health = 2

func (h Health) String() string {
	switch h {
	case HealthOK:
		return "ok"
	case HealthError:
		return "error"
	default:
		return "unknown"
	}
}

// ---- LIMITS ----

// SecondsInErrorMax caps the reported time in error.
const SecondsInErrorMax = 65535
