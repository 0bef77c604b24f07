// internal/batch/executor.go
package batch

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-gateway/internal/catalog"
	"github.com/tamzrod/modbus-gateway/internal/codec"
	"github.com/tamzrod/modbus-gateway/internal/fault"
	"github.com/tamzrod/modbus-gateway/internal/metrics"
	"github.com/tamzrod/modbus-gateway/internal/modbus"
)

// Executor runs ordered point operations on one open session.
// It holds no per-batch state and may be shared.
type Executor struct {
	log zerolog.Logger
}

// New creates an executor.
func New(log zerolog.Logger) *Executor {
	return &Executor{log: log}
}

// Run performs exactly one batch.
// All-or-nothing: the first failure aborts the batch and drops any
// results gathered so far. Set acknowledgments produce no results.
func (e *Executor) Run(
	ctx context.Context,
	sess modbus.Session,
	iface *catalog.Interface,
	intent modbus.Intent,
	items []Item,
) ([]Result, error) {
	var results []Result

	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return nil, fault.Wrap(fault.KindTransport, err, "%s", iface.Name)
		}

		slave, ok := iface.FindSlave(it.Slave)
		if !ok {
			return nil, fault.New(fault.KindSlaveNotFound, "%s", it.Slave)
		}
		point, ok := slave.FindPoint(it.Point)
		if !ok {
			return nil, fault.New(fault.KindValueNotDefined, "%s in %s", it.Point, it.Slave)
		}

		sess.SetUnitID(slave.ID)

		fn, size, err := modbus.Resolve(point, intent)
		if err != nil {
			return nil, err
		}

		e.log.Debug().
			Str("interface", iface.Name).
			Str("slave", it.Slave).
			Str("point", it.Point).
			Uint8("unit", slave.ID).
			Stringer("function", fn).
			Uint8("addr", point.Address).
			Uint16("size", size).
			Msg("transaction")

		switch intent {
		case modbus.Get:
			v, err := get(sess, fn, point, size)
			if err != nil {
				return nil, err
			}
			results = append(results, Result{Point: it.Point, Value: v})

		case modbus.Set:
			if err := set(sess, fn, point, size, it.Value); err != nil {
				return nil, err
			}
		}
	}

	// Commit only if every item succeeded
	return results, nil
}

// ---- Get ----

func get(sess modbus.Session, fn modbus.Function, p catalog.Point, size uint16) (any, error) {
	addr := uint16(p.Address)

	switch fn {
	case modbus.ReadCoils, modbus.ReadDiscreteInputs:
		var bits []bool
		var err error
		if fn == modbus.ReadCoils {
			bits, err = sess.ReadCoils(addr, size)
		} else {
			bits, err = sess.ReadDiscreteInputs(addr, size)
		}
		metrics.IncTransaction(fn.String(), err == nil)
		if err != nil {
			return nil, err
		}
		if len(bits) != 1 {
			return nil, fault.New(fault.KindSizeMismatch, "%d", len(bits))
		}
		return bits[0], nil

	case modbus.ReadHoldingRegisters, modbus.ReadInputRegisters:
		var words []uint16
		var err error
		if fn == modbus.ReadHoldingRegisters {
			words, err = sess.ReadHoldingRegisters(addr, size)
		} else {
			words, err = sess.ReadInputRegisters(addr, size)
		}
		metrics.IncTransaction(fn.String(), err == nil)
		if err != nil {
			return nil, err
		}
		return codec.Decode(words, p.Type)
	}

	return nil, fault.New(fault.KindUnsupportedOperation, "%s", fn)
}

// ---- Set ----

func set(sess modbus.Session, fn modbus.Function, p catalog.Point, size uint16, value any) error {
	addr := uint16(p.Address)

	switch fn {
	case modbus.WriteSingleCoil, modbus.WriteMultipleCoils:
		on, ok := value.(bool)
		if !ok {
			return codec.Invalid(value)
		}
		var err error
		if fn == modbus.WriteSingleCoil {
			err = sess.WriteSingleCoil(addr, on)
		} else {
			err = sess.WriteMultipleCoils(addr, []bool{on})
		}
		metrics.IncTransaction(fn.String(), err == nil)
		return err

	case modbus.WriteSingleRegister:
		words, err := codec.Encode(value, p.Type, size)
		if err != nil {
			return err
		}
		if size == 1 {
			err = sess.WriteSingleRegister(addr, words[1])
			metrics.IncTransaction(fn.String(), err == nil)
			return err
		}
		// Two-word values take two writes: addr <- hi, addr+1 <- lo.
		for i, w := range words {
			err = sess.WriteSingleRegister(addr+uint16(i), w)
			metrics.IncTransaction(fn.String(), err == nil)
			if err != nil {
				return err
			}
		}
		return nil

	case modbus.WriteMultipleRegisters:
		words, err := codec.Encode(value, p.Type, size)
		if err != nil {
			return err
		}
		regs := words[1:]
		if size == 2 {
			regs = words[:]
		}
		err = sess.WriteMultipleRegisters(addr, regs)
		metrics.IncTransaction(fn.String(), err == nil)
		return err
	}

	return fault.New(fault.KindUnsupportedOperation, "%s", fn)
}
