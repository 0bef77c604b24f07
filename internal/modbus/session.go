// internal/modbus/session.go
package modbus

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/modbus-gateway/internal/catalog"
	"github.com/tamzrod/modbus-gateway/internal/fault"
)

// Session is one open link to an interface.
// The unit id is per transaction and must be set before each request.
// A Session is not safe for concurrent use.
type Session interface {
	SetUnitID(id uint8)

	ReadCoils(addr, qty uint16) ([]bool, error)              // FC 1
	ReadDiscreteInputs(addr, qty uint16) ([]bool, error)     // FC 2
	ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) // FC 3
	ReadInputRegisters(addr, qty uint16) ([]uint16, error)   // FC 4

	WriteSingleCoil(addr uint16, on bool) error               // FC 5
	WriteSingleRegister(addr, word uint16) error              // FC 6
	WriteMultipleCoils(addr uint16, bits []bool) error        // FC 15
	WriteMultipleRegisters(addr uint16, words []uint16) error // FC 16

	Close() error
}

// Serial framing is fixed: 8N1 with a 1000 ms read timeout.
const (
	rtuDataBits = 8
	rtuParity   = "N"
	rtuStopBits = 1
	rtuTimeout  = 1000 * time.Millisecond
)

// Open opens a fresh session for iface. Sessions are never pooled.
func Open(ctx context.Context, iface *catalog.Interface) (Session, error) {
	c, err := Dial(ctx, iface)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Dial connects to iface using its protocol.
func Dial(ctx context.Context, iface *catalog.Interface) (*Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, fault.Wrap(fault.KindTransport, err, "open %s", iface.Name)
	}

	switch iface.Protocol {
	case catalog.ProtocolRTU:
		return dialRTU(iface.Address, iface.Config)
	case catalog.ProtocolTCP:
		return dialTCP(iface.Address, iface.Config)
	}
	return nil, fault.New(fault.KindTransport, "interface %s: unsupported protocol %s", iface.Name, iface.Protocol)
}

func dialRTU(device string, baudrate uint32) (*Client, error) {
	h := modbus.NewRTUClientHandler(device)
	h.BaudRate = int(baudrate)
	h.DataBits = rtuDataBits
	h.Parity = rtuParity
	h.StopBits = rtuStopBits
	h.Timeout = rtuTimeout

	if err := h.Connect(); err != nil {
		return nil, fault.Wrap(fault.KindTransport, err, "failed to open %q", device)
	}

	return &Client{
		target:  device,
		closer:  h.Close,
		setUnit: func(id uint8) { h.SlaveId = id },
		client:  modbus.NewClient(h),
	}, nil
}

func dialTCP(host string, port uint32) (*Client, error) {
	addr := net.JoinHostPort(host, strconv.FormatUint(uint64(port), 10))

	if _, err := net.ResolveTCPAddr("tcp", addr); err != nil {
		return nil, fault.Wrap(fault.KindTransport, err, "failed to parse socket address %q", addr)
	}

	h := modbus.NewTCPClientHandler(addr)
	if err := h.Connect(); err != nil {
		return nil, fault.Wrap(fault.KindTransport, err, "failed to connect to %q", addr)
	}

	return &Client{
		target:  addr,
		closer:  h.Close,
		setUnit: func(id uint8) { h.SlaveId = id },
		client:  modbus.NewClient(h),
	}, nil
}

func (f Function) describe(addr, qty uint16) string {
	return fmt.Sprintf("%s addr=%d qty=%d", f, addr, qty)
}
