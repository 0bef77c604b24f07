// internal/catalog/types.go
package catalog

import "fmt"

// Protocol is the link type of one interface.
type Protocol uint8

const (
	ProtocolRTU Protocol = iota + 1
	ProtocolTCP
)

func (p Protocol) String() string {
	switch p {
	case ProtocolRTU:
		return "rtu"
	case ProtocolTCP:
		return "tcp"
	default:
		return fmt.Sprintf("protocol(%d)", uint8(p))
	}
}

// BlockType is the Modbus data block a point lives in.
type BlockType uint8

const (
	BlockCo BlockType = iota + 1 // coils
	BlockDi                      // discrete inputs
	BlockHr                      // holding registers
	BlockIr                      // input registers
)

// BlockTypes lists every block type in lookup priority order.
func BlockTypes() []BlockType {
	return []BlockType{BlockCo, BlockDi, BlockHr, BlockIr}
}

func (b BlockType) String() string {
	switch b {
	case BlockCo:
		return "Co"
	case BlockDi:
		return "Di"
	case BlockHr:
		return "Hr"
	case BlockIr:
		return "Ir"
	default:
		return fmt.Sprintf("block(%d)", uint8(b))
	}
}

// Writable reports whether the block accepts writes.
func (b BlockType) Writable() bool {
	return b == BlockCo || b == BlockHr
}

// ValueType is the logical type carried by a point.
type ValueType uint8

const (
	TypeBool ValueType = iota + 1
	TypeU16
	TypeI16
	TypeU32
	TypeI32
	TypeF32
)

// ValueTypes lists every value type.
func ValueTypes() []ValueType {
	return []ValueType{TypeBool, TypeU16, TypeI16, TypeU32, TypeI32, TypeF32}
}

func (v ValueType) String() string {
	switch v {
	case TypeBool:
		return "Bool"
	case TypeU16:
		return "U16"
	case TypeI16:
		return "I16"
	case TypeU32:
		return "U32"
	case TypeI32:
		return "I32"
	case TypeF32:
		return "F32"
	default:
		return fmt.Sprintf("type(%d)", uint8(v))
	}
}

// Words is the number of 16-bit wire words the type occupies.
func (v ValueType) Words() uint16 {
	switch v {
	case TypeU32, TypeI32, TypeF32:
		return 2
	default:
		return 1
	}
}

// WriteMode selects single or multiple write function codes.
type WriteMode uint8

const (
	WriteMultiple WriteMode = iota
	WriteSingle
)

func (m WriteMode) String() string {
	if m == WriteSingle {
		return "Single"
	}
	return "Multiple"
}

func parseProtocol(s string) (Protocol, error) {
	switch s {
	case "rtu":
		return ProtocolRTU, nil
	case "tcp":
		return ProtocolTCP, nil
	}
	return 0, fmt.Errorf("invalid protocol %q", s)
}

func parseValueType(s string) (ValueType, error) {
	switch s {
	case "", "bool":
		return TypeBool, nil
	case "u16":
		return TypeU16, nil
	case "i16":
		return TypeI16, nil
	case "u32":
		return TypeU32, nil
	case "i32":
		return TypeI32, nil
	case "f32":
		return TypeF32, nil
	}
	return 0, fmt.Errorf("invalid type %q", s)
}

func parseWriteMode(s string) (WriteMode, error) {
	switch s {
	case "", "multiple":
		return WriteMultiple, nil
	case "single":
		return WriteSingle, nil
	}
	return 0, fmt.Errorf("invalid func %q", s)
}
