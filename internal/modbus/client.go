// internal/modbus/client.go
package modbus

import (
	"errors"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/modbus-gateway/internal/fault"
)

// Client is a Session backed by a goburrow client handler.
// It carries no state beyond the open link and the selected unit id.
type Client struct {
	target  string
	closer  func() error
	setUnit func(uint8)
	client  modbus.Client
}

func (c *Client) SetUnitID(id uint8) {
	c.setUnit(id)
}

// Close closes the underlying link.
func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	return c.closer()
}

// ---- Session interface ----

func (c *Client) ReadCoils(addr, qty uint16) ([]bool, error) {
	b, err := c.client.ReadCoils(addr, qty)
	if err != nil {
		return nil, c.wrap(ReadCoils, addr, qty, err)
	}
	return unpackBits(b, int(qty)), nil
}

func (c *Client) ReadDiscreteInputs(addr, qty uint16) ([]bool, error) {
	b, err := c.client.ReadDiscreteInputs(addr, qty)
	if err != nil {
		return nil, c.wrap(ReadDiscreteInputs, addr, qty, err)
	}
	return unpackBits(b, int(qty)), nil
}

func (c *Client) ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) {
	b, err := c.client.ReadHoldingRegisters(addr, qty)
	if err != nil {
		return nil, c.wrap(ReadHoldingRegisters, addr, qty, err)
	}
	return unpackRegisters(b), nil
}

func (c *Client) ReadInputRegisters(addr, qty uint16) ([]uint16, error) {
	b, err := c.client.ReadInputRegisters(addr, qty)
	if err != nil {
		return nil, c.wrap(ReadInputRegisters, addr, qty, err)
	}
	return unpackRegisters(b), nil
}

func (c *Client) WriteSingleCoil(addr uint16, on bool) error {
	var v uint16
	if on {
		v = 0xFF00
	}
	if _, err := c.client.WriteSingleCoil(addr, v); err != nil {
		return c.wrap(WriteSingleCoil, addr, 1, err)
	}
	return nil
}

func (c *Client) WriteSingleRegister(addr, word uint16) error {
	if _, err := c.client.WriteSingleRegister(addr, word); err != nil {
		return c.wrap(WriteSingleRegister, addr, 1, err)
	}
	return nil
}

func (c *Client) WriteMultipleCoils(addr uint16, bits []bool) error {
	qty := uint16(len(bits))
	if _, err := c.client.WriteMultipleCoils(addr, qty, packBits(bits)); err != nil {
		return c.wrap(WriteMultipleCoils, addr, qty, err)
	}
	return nil
}

func (c *Client) WriteMultipleRegisters(addr uint16, words []uint16) error {
	qty := uint16(len(words))
	if _, err := c.client.WriteMultipleRegisters(addr, qty, packRegisters(words)); err != nil {
		return c.wrap(WriteMultipleRegisters, addr, qty, err)
	}
	return nil
}

// wrap classifies a library error: device exceptions become
// ProtocolException, everything else is a transport failure.
func (c *Client) wrap(fn Function, addr, qty uint16, err error) error {
	var me *modbus.ModbusError
	if errors.As(err, &me) {
		return fault.Exception(me.FunctionCode&0x7F, me.ExceptionCode, err)
	}
	return fault.Wrap(fault.KindTransport, err, "%s %s", c.target, fn.describe(addr, qty))
}
