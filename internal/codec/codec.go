// internal/codec/codec.go
package codec

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/tamzrod/modbus-gateway/internal/catalog"
	"github.com/tamzrod/modbus-gateway/internal/fault"
)

// Decode converts wire words into a JSON-ready scalar.
//
// Result types: Bool→bool, U16→uint16, I16→int16, U32→uint32,
// I32→int32, F32→float32. 32-bit values are [hi, lo].
func Decode(words []uint16, vt catalog.ValueType) (any, error) {
	if len(words) != int(vt.Words()) {
		return nil, fault.New(fault.KindSizeMismatch, "%d", len(words))
	}

	switch vt {
	case catalog.TypeBool:
		return words[0] != 0, nil
	case catalog.TypeU16:
		return words[0], nil
	case catalog.TypeI16:
		return int16(words[0]), nil
	case catalog.TypeU32:
		return join(words), nil
	case catalog.TypeI32:
		return int32(join(words)), nil
	case catalog.TypeF32:
		f := math.Float32frombits(join(words))
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return nil, fault.New(fault.KindConversion, "%s", vt)
		}
		return f, nil
	}
	return nil, fault.New(fault.KindConversion, "%s", vt)
}

// Encode converts a request value into two wire words.
//
// Single-word types occupy words[1]; words[0] is zero.
// Two-word types are only accepted with accessSize 2.
// Out-of-range or wrong-kind input is rejected, never clamped.
func Encode(value any, vt catalog.ValueType, accessSize uint16) ([2]uint16, error) {
	if value == nil {
		return [2]uint16{}, invalid(nil)
	}
	if accessSize != 1 && accessSize != 2 {
		return [2]uint16{}, invalid(value)
	}

	switch vt {
	case catalog.TypeBool:
		b, ok := value.(bool)
		if !ok {
			return [2]uint16{}, invalid(value)
		}
		if b {
			return [2]uint16{0, 1}, nil
		}
		return [2]uint16{0, 0}, nil

	case catalog.TypeU16:
		u, ok := asUint64(value)
		if !ok || u > math.MaxUint16 {
			return [2]uint16{}, invalid(value)
		}
		return [2]uint16{0, uint16(u)}, nil

	case catalog.TypeI16:
		i, ok := asInt64(value)
		if !ok || magnitude(i) > math.MaxInt16 {
			return [2]uint16{}, invalid(value)
		}
		return [2]uint16{0, uint16(int16(i))}, nil
	}

	// 32-bit types need both words
	if accessSize != 2 {
		return [2]uint16{}, invalid(value)
	}

	switch vt {
	case catalog.TypeU32:
		u, ok := asUint64(value)
		if !ok || u > math.MaxUint32 {
			return [2]uint16{}, invalid(value)
		}
		return split(uint32(u)), nil

	case catalog.TypeI32:
		i, ok := asInt64(value)
		if !ok || magnitude(i) > math.MaxInt32 {
			return [2]uint16{}, invalid(value)
		}
		return split(uint32(int32(i))), nil

	case catalog.TypeF32:
		f, ok := asFloat64(value)
		if !ok {
			return [2]uint16{}, invalid(value)
		}
		// Range guard compares the ceiling, truncated to int64, against
		// MaxInt32. It bounds magnitude, not float32 range.
		if magnitude(saturatingInt64(math.Ceil(f))) > math.MaxInt32 {
			return [2]uint16{}, invalid(value)
		}
		return split(math.Float32bits(float32(f))), nil
	}

	return [2]uint16{}, invalid(value)
}

func join(words []uint16) uint32 {
	return uint32(words[0])<<16 | uint32(words[1])
}

func split(v uint32) [2]uint16 {
	return [2]uint16{uint16(v >> 16), uint16(v)}
}

// magnitude is |i| without overflow on MinInt64.
func magnitude(i int64) uint64 {
	if i < 0 {
		return uint64(-(i + 1)) + 1
	}
	return uint64(i)
}

// saturatingInt64 truncates f toward zero, saturating at the int64 bounds.
// NaN maps to 0.
func saturatingInt64(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// Invalid reports value as rejected request input.
func Invalid(value any) error {
	return invalid(value)
}

func invalid(value any) *fault.Error {
	return fault.New(fault.KindInvalidInputValue, "%s", describe(value))
}

func describe(value any) string {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(b)
}
