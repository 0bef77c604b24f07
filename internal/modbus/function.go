// internal/modbus/function.go
package modbus

import (
	"fmt"

	"github.com/tamzrod/modbus-gateway/internal/catalog"
	"github.com/tamzrod/modbus-gateway/internal/fault"
)

// Intent is the direction of one point operation.
type Intent uint8

const (
	Get Intent = iota + 1
	Set
)

func (i Intent) String() string {
	switch i {
	case Get:
		return "GET"
	case Set:
		return "SET"
	default:
		return fmt.Sprintf("intent(%d)", uint8(i))
	}
}

// Function is a Modbus operation. The value is the function code.
type Function uint8

const (
	ReadCoils              Function = 1
	ReadDiscreteInputs     Function = 2
	ReadHoldingRegisters   Function = 3
	ReadInputRegisters     Function = 4
	WriteSingleCoil        Function = 5
	WriteSingleRegister    Function = 6
	WriteMultipleCoils     Function = 15
	WriteMultipleRegisters Function = 16
)

// Functions lists every supported function.
func Functions() []Function {
	return []Function{
		ReadCoils, ReadDiscreteInputs, ReadHoldingRegisters, ReadInputRegisters,
		WriteSingleCoil, WriteSingleRegister, WriteMultipleCoils, WriteMultipleRegisters,
	}
}

func (f Function) String() string {
	switch f {
	case ReadCoils:
		return "ReadCoils"
	case ReadDiscreteInputs:
		return "ReadDiscreteInputs"
	case ReadHoldingRegisters:
		return "ReadHoldingRegisters"
	case ReadInputRegisters:
		return "ReadInputRegisters"
	case WriteSingleCoil:
		return "WriteSingleCoil"
	case WriteSingleRegister:
		return "WriteSingleRegister"
	case WriteMultipleCoils:
		return "WriteMultipleCoils"
	case WriteMultipleRegisters:
		return "WriteMultipleRegisters"
	default:
		return fmt.Sprintf("fc(%d)", uint8(f))
	}
}

// Resolve maps a point and intent to the function to issue and the
// number of bits/words to access.
//
//	block | Get                  | Set
//	Co    | ReadCoils            | WriteSingleCoil / WriteMultipleCoils
//	Di    | ReadDiscreteInputs   | unsupported
//	Hr    | ReadHoldingRegisters | WriteSingleRegister / WriteMultipleRegisters
//	Ir    | ReadInputRegisters   | unsupported
func Resolve(p catalog.Point, intent Intent) (Function, uint16, error) {
	fn, err := resolveFunction(p, intent)
	if err != nil {
		return 0, 0, err
	}
	return fn, p.Type.Words(), nil
}

func resolveFunction(p catalog.Point, intent Intent) (Function, error) {
	switch intent {
	case Get:
		switch p.Block {
		case catalog.BlockCo:
			return ReadCoils, nil
		case catalog.BlockDi:
			return ReadDiscreteInputs, nil
		case catalog.BlockHr:
			return ReadHoldingRegisters, nil
		case catalog.BlockIr:
			return ReadInputRegisters, nil
		}

	case Set:
		switch p.Block {
		case catalog.BlockCo:
			if p.WriteMode == catalog.WriteSingle {
				return WriteSingleCoil, nil
			}
			return WriteMultipleCoils, nil
		case catalog.BlockHr:
			if p.WriteMode == catalog.WriteSingle {
				return WriteSingleRegister, nil
			}
			return WriteMultipleRegisters, nil
		case catalog.BlockDi, catalog.BlockIr:
			return 0, fault.New(fault.KindUnsupportedOperation, "%s", p.Block)
		}
	}

	return 0, fault.New(fault.KindUnsupportedOperation, "%s %s", intent, p.Block)
}
