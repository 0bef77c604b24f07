// internal/gateway/handler_test.go
package gateway

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-gateway/internal/catalog"
	"github.com/tamzrod/modbus-gateway/internal/config"
	"github.com/tamzrod/modbus-gateway/internal/modbus/modbustest"
)

// rig is a handler wired to two fake Modbus TCP devices.
type rig struct {
	h    *Handler
	plc1 *modbustest.Server
	plc2 *modbustest.Server
}

func newRig(t *testing.T) *rig {
	t.Helper()

	start := func() *modbustest.Server {
		srv, err := modbustest.NewServer()
		if err != nil {
			t.Fatalf("modbustest.NewServer() err=%v", err)
		}
		t.Cleanup(func() { _ = srv.Close() })
		return srv
	}
	plc1, plc2 := start(), start()

	c := &config.Config{
		Interfaces: map[string]config.InterfaceConfig{
			"plc1": {
				Protocol: "tcp",
				Address:  plc1.Host(),
				TCPPort:  plc1.Port(),
				Slaves: map[string]config.SlaveConfig{
					"s1": {
						ID: intp(1),
						Co: []config.PointConfig{{Name: "pump", Addr: intp(0), Type: "bool", Func: "single"}},
						Hr: []config.PointConfig{
							{Name: "flow", Addr: intp(10), Type: "f32"},
							{Name: "speed", Addr: intp(12), Type: "u16"},
						},
					},
				},
			},
			"plc2": {
				Protocol: "tcp",
				Address:  plc2.Host(),
				TCPPort:  plc2.Port(),
				Slaves: map[string]config.SlaveConfig{
					"s2": {
						ID: intp(2),
						Ir: []config.PointConfig{{Name: "temp", Addr: intp(0), Type: "i16"}},
					},
				},
			},
		},
	}
	cat, err := catalog.Build(c)
	if err != nil {
		t.Fatalf("catalog.Build() err=%v", err)
	}

	d := NewDispatcher(cat, nil, nil, zerolog.Nop())
	return &rig{h: NewHandler(d, zerolog.Nop()), plc1: plc1, plc2: plc2}
}

func (r *rig) do(t *testing.T, request string) map[string]any {
	t.Helper()
	reply := r.h.Handle(context.Background(), []byte(request))

	var out map[string]any
	if err := json.Unmarshal(reply, &out); err != nil {
		t.Fatalf("reply is not JSON: %q", reply)
	}
	return out
}

func TestHandle_GetFloat(t *testing.T) {
	r := newRig(t)
	r.plc1.SetHolding(1, 10, 0x4048, 0x0000)

	reply := r.h.Handle(context.Background(), []byte(`{"GET":["/plc1/s1/flow"]}`))
	if string(reply) != `{"GET":{"flow":3.125}}` {
		t.Fatalf("reply %s", reply)
	}
}

func TestHandle_SetCoilSingle(t *testing.T) {
	r := newRig(t)

	reply := r.h.Handle(context.Background(), []byte(`{"SET":{"/plc1/s1/pump":true}}`))
	if string(reply) != `{"SET":null}` {
		t.Fatalf("reply %s", reply)
	}

	reqs := r.plc1.Requests()
	if len(reqs) != 1 || reqs[0].Function != 5 || reqs[0].Address != 0 || reqs[0].UnitID != 1 {
		t.Fatalf("requests %+v", reqs)
	}
	if !r.plc1.Coil(1, 0) {
		t.Fatalf("coil not set")
	}
}

func TestHandle_GetAcrossInterfaces(t *testing.T) {
	r := newRig(t)
	r.plc1.SetHolding(1, 12, 1500)
	r.plc2.SetInput(2, 0, 0xFFF6)

	got := r.do(t, `{"get":["/plc1/s1/speed","/plc2/s2/temp","bad","/a/b"]}`)
	want := map[string]any{"GET": map[string]any{"speed": 1500.0, "temp": -10.0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("reply (-want +got):\n%s", diff)
	}
}

func TestHandle_FailingGroupKeepsOthers(t *testing.T) {
	r := newRig(t)
	r.plc1.SetHolding(1, 12, 7)
	r.plc2.Fail(2, 0x02)

	got := r.do(t, `{"GET":["/plc1/s1/speed","/plc2/s2/temp"]}`)
	want := map[string]any{"GET": map[string]any{"speed": 7.0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("reply (-want +got):\n%s", diff)
	}
}

func TestHandle_UnknownInterface(t *testing.T) {
	r := newRig(t)

	got := r.do(t, `{"GET":["/plc1/s1/speed","/ghost/s1/x"]}`)
	if got["ERROR"] != ErrUnknownInterface {
		t.Fatalf("reply %v", got)
	}
	if _, ok := got["GET"]; ok {
		t.Fatalf("data reply leaked: %v", got)
	}
	if n := len(r.plc1.Requests()); n != 0 {
		t.Fatalf("plc1 saw %d requests", n)
	}
}

func TestHandle_SetFailureStillAcknowledged(t *testing.T) {
	r := newRig(t)

	// out of range for u16: the batch fails, the reply does not
	reply := r.h.Handle(context.Background(), []byte(`{"SET":{"/plc1/s1/speed":70000}}`))
	if string(reply) != `{"SET":null}` {
		t.Fatalf("reply %s", reply)
	}
	if n := len(r.plc1.Requests()); n != 0 {
		t.Fatalf("unexpected transactions: %d", n)
	}
}

func TestHandle_SetWritesInArrivalOrder(t *testing.T) {
	r := newRig(t)

	reply := r.h.Handle(context.Background(), []byte(`{"SET":{"/plc1/s1/speed":9,"/plc1/s1/pump":true}}`))
	if string(reply) != `{"SET":null}` {
		t.Fatalf("reply %s", reply)
	}

	reqs := r.plc1.Requests()
	if len(reqs) != 2 || reqs[0].Function != 16 || reqs[1].Function != 5 {
		t.Fatalf("requests %+v", reqs)
	}
	if r.plc1.Holding(1, 12) != 9 {
		t.Fatalf("speed not written")
	}
}

func TestHandle_Test(t *testing.T) {
	r := newRig(t)

	for _, req := range []string{`{"TEST":"plc1"}`, `{"test":"nowhere"}`} {
		got := r.do(t, req)
		if _, ok := got["TEST"].(string); !ok {
			t.Fatalf("%s: reply %v", req, got)
		}
	}
}

func TestHandle_Errors(t *testing.T) {
	r := newRig(t)

	cases := []struct {
		req     string
		code    string
		details string
	}{
		{`not json`, ErrInvalidRequest, ""},
		{`[1,2]`, ErrInvalidRequest, ""},
		{`{}`, ErrInvalidRequest, ""},
		{`{"GET":[],"SET":{}}`, ErrInvalidRequest, ""},
		{`{"TEST":5}`, "INVALID TEST", "5"},
		{`{"TEST":null}`, "INVALID TEST", "null"},
		{`{"GET":"/plc1/s1/flow"}`, "INVALID GET", `"/plc1/s1/flow"`},
		{`{"GET":["/plc1/s1/flow", 3]}`, "INVALID GET", `["/plc1/s1/flow",3]`},
		{`{"SET":["/plc1/s1/pump"]}`, "INVALID SET", `["/plc1/s1/pump"]`},
		{`{"DELETE":{}}`, ErrInvalidMethod, "DELETE"},
	}

	for _, c := range cases {
		got := r.do(t, c.req)
		if got["ERROR"] != c.code {
			t.Fatalf("%s: reply %v", c.req, got)
		}
		if c.details != "" && got["DETAILS"] != c.details {
			t.Fatalf("%s: details %q want %q", c.req, got["DETAILS"], c.details)
		}
	}
}

func TestHandle_EmptyBatches(t *testing.T) {
	r := newRig(t)

	if reply := r.h.Handle(context.Background(), []byte(`{"GET":[]}`)); string(reply) != `{"GET":{}}` {
		t.Fatalf("reply %s", reply)
	}
	if reply := r.h.Handle(context.Background(), []byte(`{"SET":{"bad":1}}`)); string(reply) != `{"SET":null}` {
		t.Fatalf("reply %s", reply)
	}
}
