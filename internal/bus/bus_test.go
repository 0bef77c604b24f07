// internal/bus/bus_test.go
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-gateway/internal/catalog"
	"github.com/tamzrod/modbus-gateway/internal/config"
	"github.com/tamzrod/modbus-gateway/internal/gateway"
	"github.com/tamzrod/modbus-gateway/internal/modbus/modbustest"
)

const testSubject = "modbus.gateway.test"

// echoHandler replies with a canned answer and records requests.
type echoHandler struct {
	mu       sync.Mutex
	requests []string
	reply    []byte
	active   int
	maxSeen  int
}

func (h *echoHandler) Handle(_ context.Context, req []byte) []byte {
	h.mu.Lock()
	h.requests = append(h.requests, string(req))
	h.active++
	if h.active > h.maxSeen {
		h.maxSeen = h.active
	}
	h.mu.Unlock()

	time.Sleep(10 * time.Millisecond)

	h.mu.Lock()
	h.active--
	h.mu.Unlock()

	if h.reply != nil {
		return h.reply
	}
	// TEST echo
	var m map[string]string
	_ = json.Unmarshal(req, &m)
	out, _ := json.Marshal(map[string]string{"TEST": m["TEST"]})
	return out
}

func startNATS(t *testing.T) *nats.Conn {
	t.Helper()

	e, err := NewEmbedded(EmbeddedOptions{Host: "127.0.0.1", Port: -1}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEmbedded() err=%v", err)
	}
	if err := e.Start(5 * time.Second); err != nil {
		t.Fatalf("Start() err=%v", err)
	}
	t.Cleanup(e.Shutdown)

	nc, err := Connect(e.ClientURL(), "test", zerolog.Nop())
	if err != nil {
		t.Fatalf("Connect() err=%v", err)
	}
	t.Cleanup(nc.Close)
	return nc
}

func serve(t *testing.T, nc *nats.Conn, h Handler) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	s := NewServer(nc, testSubject, "", h, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	select {
	case <-s.Ready():
	case err := <-done:
		t.Fatalf("Serve() exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("server not ready")
	}

	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Serve() err=%v", err)
		}
	})
}

func TestClient_Test(t *testing.T) {
	nc := startNATS(t)
	h := &echoHandler{}
	serve(t, nc, h)

	ok, err := NewClient(nc, testSubject, 2*time.Second).Test(context.Background())
	if err != nil {
		t.Fatalf("Test() err=%v", err)
	}
	if !ok {
		t.Fatalf("token not echoed")
	}
}

func TestClient_ErrorReply(t *testing.T) {
	nc := startNATS(t)
	serve(t, nc, &echoHandler{reply: []byte(`{"ERROR":"UNKNOWN INTERFACE","DETAILS":"UnknownInterface: ghost"}`)})

	_, err := NewClient(nc, testSubject, 2*time.Second).Get(context.Background(), []string{"/ghost/s/p"})

	var re *ReplyError
	if !errors.As(err, &re) {
		t.Fatalf("expected ReplyError, got %v", err)
	}
	if re.Code != "UNKNOWN INTERFACE" {
		t.Fatalf("code %q", re.Code)
	}
}

func TestClient_InvalidReply(t *testing.T) {
	nc := startNATS(t)
	serve(t, nc, &echoHandler{reply: []byte(`{"GET":{},"SET":null}`)})

	_, err := NewClient(nc, testSubject, 2*time.Second).Get(context.Background(), nil)
	if !errors.Is(err, ErrInvalidReply) {
		t.Fatalf("expected ErrInvalidReply, got %v", err)
	}
}

func TestClient_NoResponder(t *testing.T) {
	nc := startNATS(t)

	_, err := NewClient(nc, testSubject, 200*time.Millisecond).Raw(context.Background(), []byte(`{"TEST":"x"}`))
	if err == nil {
		t.Fatalf("expected error without a server")
	}
}

func TestServer_HandlesOneRequestAtATime(t *testing.T) {
	nc := startNATS(t)
	h := &echoHandler{}
	serve(t, nc, h)

	c := NewClient(nc, testSubject, 5*time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Test(context.Background()); err != nil {
				t.Errorf("Test() err=%v", err)
			}
		}()
	}
	wg.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.requests) != 8 {
		t.Fatalf("handled %d requests", len(h.requests))
	}
	if h.maxSeen != 1 {
		t.Fatalf("requests overlapped: %d at once", h.maxSeen)
	}
}

func TestServer_QueueGroup(t *testing.T) {
	nc := startNATS(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, b := &echoHandler{}, &echoHandler{}
	for _, h := range []*echoHandler{a, b} {
		s := NewServer(nc, testSubject, "workers", h, zerolog.Nop())
		go func() { _ = s.Serve(ctx) }()
		<-s.Ready()
	}

	c := NewClient(nc, testSubject, 2*time.Second)
	for i := 0; i < 4; i++ {
		if _, err := c.Test(context.Background()); err != nil {
			t.Fatalf("Test() err=%v", err)
		}
	}

	a.mu.Lock()
	b.mu.Lock()
	total := len(a.requests) + len(b.requests)
	a.mu.Unlock()
	b.mu.Unlock()
	if total != 4 {
		t.Fatalf("queue group delivered %d times for 4 requests", total)
	}
}

func TestEndToEnd(t *testing.T) {
	dev, err := modbustest.NewServer()
	if err != nil {
		t.Fatalf("modbustest.NewServer() err=%v", err)
	}
	defer dev.Close()
	dev.SetHolding(1, 10, 0x4048, 0x0000)

	id, addr, flowAddr := 1, 0, 10
	cat, err := catalog.Build(&config.Config{
		Interfaces: map[string]config.InterfaceConfig{
			"plc1": {
				Protocol: "tcp",
				Address:  dev.Host(),
				TCPPort:  dev.Port(),
				Slaves: map[string]config.SlaveConfig{
					"s1": {
						ID: &id,
						Co: []config.PointConfig{{Name: "pump", Addr: &addr, Func: "single"}},
						Hr: []config.PointConfig{{Name: "flow", Addr: &flowAddr, Type: "f32"}},
					},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("catalog.Build() err=%v", err)
	}

	h := gateway.NewHandler(gateway.NewDispatcher(cat, nil, nil, zerolog.Nop()), zerolog.Nop())

	nc := startNATS(t)
	serve(t, nc, h)
	c := NewClient(nc, testSubject, 5*time.Second)

	got, err := c.Get(context.Background(), []string{"/plc1/s1/flow"})
	if err != nil {
		t.Fatalf("Get() err=%v", err)
	}
	if diff := cmp.Diff(map[string]any{"flow": 3.125}, got); diff != "" {
		t.Fatalf("Get (-want +got):\n%s", diff)
	}

	if err := c.Set(context.Background(), map[string]any{"/plc1/s1/pump": true}); err != nil {
		t.Fatalf("Set() err=%v", err)
	}
	if !dev.Coil(1, 0) {
		t.Fatalf("coil not written")
	}

	_, err = c.Get(context.Background(), []string{"/ghost/s1/flow"})
	var re *ReplyError
	if !errors.As(err, &re) || re.Code != gateway.ErrUnknownInterface {
		t.Fatalf("expected UNKNOWN INTERFACE, got %v", err)
	}
}
