// internal/modbus/function_test.go
package modbus

import (
	"testing"

	"github.com/tamzrod/modbus-gateway/internal/catalog"
	"github.com/tamzrod/modbus-gateway/internal/fault"
)

func TestResolve_Table(t *testing.T) {
	type key struct {
		block  catalog.BlockType
		intent Intent
		mode   catalog.WriteMode
	}

	want := map[key]Function{
		{catalog.BlockCo, Get, catalog.WriteSingle}:   ReadCoils,
		{catalog.BlockCo, Get, catalog.WriteMultiple}: ReadCoils,
		{catalog.BlockCo, Set, catalog.WriteSingle}:   WriteSingleCoil,
		{catalog.BlockCo, Set, catalog.WriteMultiple}: WriteMultipleCoils,

		{catalog.BlockDi, Get, catalog.WriteSingle}:   ReadDiscreteInputs,
		{catalog.BlockDi, Get, catalog.WriteMultiple}: ReadDiscreteInputs,

		{catalog.BlockHr, Get, catalog.WriteSingle}:   ReadHoldingRegisters,
		{catalog.BlockHr, Get, catalog.WriteMultiple}: ReadHoldingRegisters,
		{catalog.BlockHr, Set, catalog.WriteSingle}:   WriteSingleRegister,
		{catalog.BlockHr, Set, catalog.WriteMultiple}: WriteMultipleRegisters,

		{catalog.BlockIr, Get, catalog.WriteSingle}:   ReadInputRegisters,
		{catalog.BlockIr, Get, catalog.WriteMultiple}: ReadInputRegisters,
	}

	// walk every combination so a new block, intent or mode cannot slip through
	for _, b := range catalog.BlockTypes() {
		for _, intent := range []Intent{Get, Set} {
			for _, mode := range []catalog.WriteMode{catalog.WriteSingle, catalog.WriteMultiple} {
				for _, vt := range catalog.ValueTypes() {
					p := catalog.Point{Address: 1, Block: b, Type: vt, WriteMode: mode}

					fn, size, err := Resolve(p, intent)

					expect, ok := want[key{b, intent, mode}]
					if !ok {
						if !fault.Is(err, fault.KindUnsupportedOperation) {
							t.Fatalf("%v %v %v: expected UnsupportedOperation, got fn=%v err=%v", b, intent, mode, fn, err)
						}
						continue
					}

					if err != nil {
						t.Fatalf("%v %v %v: unexpected error %v", b, intent, mode, err)
					}
					if fn != expect {
						t.Fatalf("%v %v %v: got %v want %v", b, intent, mode, fn, expect)
					}
					if size != vt.Words() {
						t.Fatalf("%v %v: access size got %d want %d", b, vt, size, vt.Words())
					}
				}
			}
		}
	}
}

func TestResolve_UnsupportedDetail(t *testing.T) {
	_, _, err := Resolve(catalog.Point{Block: catalog.BlockIr, Type: catalog.TypeU16}, Set)
	if err == nil || err.Error() != "UnsupportedOperation: Ir" {
		t.Fatalf("got %v", err)
	}
}

func TestFunctionCodes(t *testing.T) {
	want := []uint8{1, 2, 3, 4, 5, 6, 15, 16}
	for i, fn := range Functions() {
		if uint8(fn) != want[i] {
			t.Fatalf("%v: code %d want %d", fn, uint8(fn), want[i])
		}
	}
}

func TestBits(t *testing.T) {
	bits := []bool{true, false, true, true, false, false, false, false, true}
	packed := packBits(bits)
	if len(packed) != 2 || packed[0] != 0x0D || packed[1] != 0x01 {
		t.Fatalf("packBits: got %#v", packed)
	}
	got := unpackBits(packed, len(bits))
	for i := range bits {
		if got[i] != bits[i] {
			t.Fatalf("unpackBits[%d]: got %v want %v", i, got[i], bits[i])
		}
	}

	regs := unpackRegisters(packRegisters([]uint16{0x4048, 0x0001}))
	if len(regs) != 2 || regs[0] != 0x4048 || regs[1] != 0x0001 {
		t.Fatalf("registers: got %#v", regs)
	}
}
