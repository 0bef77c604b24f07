// internal/modbus/modbustest/server.go

// Package modbustest provides an in-process Modbus TCP device for tests.
package modbustest

import (
	"encoding/binary"
	"io"
	"net"
	"strconv"
	"sync"
)

// Request is one decoded request seen by the server.
type Request struct {
	UnitID   uint8
	Function uint8
	Address  uint16
	Quantity uint16
}

type memory struct {
	coils    map[uint16]bool
	discrete map[uint16]bool
	holding  map[uint16]uint16
	input    map[uint16]uint16
}

// Server answers Modbus TCP requests from per-unit memory.
// Unknown units get zeroed memory.
type Server struct {
	ln net.Listener
	wg sync.WaitGroup

	mu         sync.Mutex
	units      map[uint8]*memory
	exceptions map[uint8]uint8
	requests   []Request
	conns      map[net.Conn]struct{}
}

// NewServer starts a server on a loopback port.
func NewServer() (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	s := &Server{
		ln:         ln,
		units:      make(map[uint8]*memory),
		exceptions: make(map[uint8]uint8),
		conns:      make(map[net.Conn]struct{}),
	}

	s.wg.Add(1)
	go s.serve()
	return s, nil
}

// Host returns the listen host.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.ln.Addr().String())
	return host
}

// Port returns the listen port.
func (s *Server) Port() uint32 {
	_, port, _ := net.SplitHostPort(s.ln.Addr().String())
	p, _ := strconv.ParseUint(port, 10, 32)
	return uint32(p)
}

// Close stops the listener and drops open connections.
func (s *Server) Close() error {
	err := s.ln.Close()

	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

// ---- memory access ----

func (s *Server) SetCoil(unit uint8, addr uint16, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mem(unit).coils[addr] = v
}

func (s *Server) SetDiscrete(unit uint8, addr uint16, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mem(unit).discrete[addr] = v
}

func (s *Server) SetHolding(unit uint8, addr uint16, words ...uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.mem(unit)
	for i, w := range words {
		m.holding[addr+uint16(i)] = w
	}
}

func (s *Server) SetInput(unit uint8, addr uint16, words ...uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.mem(unit)
	for i, w := range words {
		m.input[addr+uint16(i)] = w
	}
}

func (s *Server) Coil(unit uint8, addr uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mem(unit).coils[addr]
}

func (s *Server) Holding(unit uint8, addr uint16) uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mem(unit).holding[addr]
}

// Fail makes every request to unit answer with exception code.
func (s *Server) Fail(unit uint8, code uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exceptions[unit] = code
}

// Requests returns a copy of every request seen so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *Server) mem(unit uint8) *memory {
	m, ok := s.units[unit]
	if !ok {
		m = &memory{
			coils:    make(map[uint16]bool),
			discrete: make(map[uint16]bool),
			holding:  make(map[uint16]uint16),
			input:    make(map[uint16]uint16),
		}
		s.units[unit] = m
	}
	return m
}

// ---- transport ----

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handle(conn)
	}
}

// handle serves one connection.
//
// MBAP:
//
//	TID(2) PID(2) LEN(2) UID(1) PDU(LEN-1)
func (s *Server) handle(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	header := make([]byte, 7)
	for {
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		length := binary.BigEndian.Uint16(header[4:6])
		if length < 2 {
			return
		}
		pdu := make([]byte, length-1)
		if _, err := io.ReadFull(conn, pdu); err != nil {
			return
		}

		resp := s.process(header[6], pdu)

		out := make([]byte, 7+len(resp))
		copy(out[0:4], header[0:4])
		binary.BigEndian.PutUint16(out[4:6], uint16(len(resp)+1))
		out[6] = header[6]
		copy(out[7:], resp)

		if _, err := conn.Write(out); err != nil {
			return
		}
	}
}

func (s *Server) process(unit uint8, pdu []byte) []byte {
	fc := pdu[0]
	data := pdu[1:]
	if len(data) < 4 {
		return []byte{fc | 0x80, 0x03}
	}

	addr := binary.BigEndian.Uint16(data[0:2])
	qty := binary.BigEndian.Uint16(data[2:4])
	if fc == 5 || fc == 6 {
		qty = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, Request{UnitID: unit, Function: fc, Address: addr, Quantity: qty})

	if code, ok := s.exceptions[unit]; ok {
		return []byte{fc | 0x80, code}
	}

	m := s.mem(unit)

	switch fc {
	case 1, 2:
		src := m.coils
		if fc == 2 {
			src = m.discrete
		}
		n := (int(qty) + 7) / 8
		out := make([]byte, 2+n)
		out[0] = fc
		out[1] = byte(n)
		for i := 0; i < int(qty); i++ {
			if src[addr+uint16(i)] {
				out[2+i/8] |= 1 << uint(i%8)
			}
		}
		return out

	case 3, 4:
		src := m.holding
		if fc == 4 {
			src = m.input
		}
		out := make([]byte, 2+2*int(qty))
		out[0] = fc
		out[1] = byte(2 * qty)
		for i := 0; i < int(qty); i++ {
			binary.BigEndian.PutUint16(out[2+2*i:], src[addr+uint16(i)])
		}
		return out

	case 5:
		v := binary.BigEndian.Uint16(data[2:4])
		if v != 0xFF00 && v != 0x0000 {
			return []byte{fc | 0x80, 0x03}
		}
		m.coils[addr] = v == 0xFF00
		return append([]byte(nil), pdu[:5]...)

	case 6:
		m.holding[addr] = binary.BigEndian.Uint16(data[2:4])
		return append([]byte(nil), pdu[:5]...)

	case 15:
		if len(data) < 5 || len(data)-5 < int(data[4]) {
			return []byte{fc | 0x80, 0x03}
		}
		bits := data[5:]
		for i := 0; i < int(qty); i++ {
			if i/8 >= len(bits) {
				break
			}
			m.coils[addr+uint16(i)] = bits[i/8]&(1<<uint(i%8)) != 0
		}
		return append([]byte(nil), pdu[:5]...)

	case 16:
		if len(data) < 5 || len(data)-5 < 2*int(qty) {
			return []byte{fc | 0x80, 0x03}
		}
		words := data[5:]
		for i := 0; i < int(qty); i++ {
			m.holding[addr+uint16(i)] = binary.BigEndian.Uint16(words[2*i:])
		}
		return append([]byte(nil), pdu[:5]...)
	}

	return []byte{fc | 0x80, 0x01}
}
