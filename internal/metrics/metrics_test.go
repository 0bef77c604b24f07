// internal/metrics/metrics_test.go
package metrics

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

type fakeHealth struct {
	healthy bool
	all     map[string]string
}

func (f fakeHealth) Report() (any, bool) { return f.all, f.healthy }

func (f fakeHealth) Interface(name string) (any, bool) {
	v, ok := f.all[name]
	return v, ok
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(RequestCount.WithLabelValues("GET", StatusFailed))
	IncRequest("GET", false)
	if got := testutil.ToFloat64(RequestCount.WithLabelValues("GET", StatusFailed)); got != before+1 {
		t.Fatalf("request counter: got %v want %v", got, before+1)
	}

	ObserveBatch("m-plc", true, 20*time.Millisecond)
	if got := testutil.ToFloat64(BatchCount.WithLabelValues("m-plc", StatusSuccess)); got != 1 {
		t.Fatalf("batch counter: got %v", got)
	}

	IncTransaction("ReadCoils", true)
	if got := testutil.ToFloat64(TransactionCount.WithLabelValues("ReadCoils", StatusSuccess)); got < 1 {
		t.Fatalf("transaction counter: got %v", got)
	}

	SetInterfaceHealth("m-plc", 2)
	if got := testutil.ToFloat64(InterfaceHealth.WithLabelValues("m-plc")); got != 2 {
		t.Fatalf("health gauge: got %v", got)
	}
}

func TestRouter_Healthz(t *testing.T) {
	h := fakeHealth{healthy: false, all: map[string]string{"plc1": "error"}}
	srv := httptest.NewServer(Router(h))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["plc1"] != "error" {
		t.Fatalf("body %v", body)
	}

	one, err := http.Get(srv.URL + "/healthz/plc1")
	if err != nil {
		t.Fatal(err)
	}
	one.Body.Close()
	if one.StatusCode != http.StatusOK {
		t.Fatalf("status %d", one.StatusCode)
	}

	missing, err := http.Get(srv.URL + "/healthz/nope")
	if err != nil {
		t.Fatal(err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d", missing.StatusCode)
	}
}

func TestServer_MetricsEndpoint(t *testing.T) {
	IncRequest("TEST", true)

	s := NewServer("127.0.0.1:0", fakeHealth{healthy: true}, zerolog.Nop())
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen() err=%v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Serve() }()

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if !strings.Contains(string(data), "modbus_gateway_requests_total") {
		t.Fatalf("metrics output missing counter")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() err=%v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Serve() err=%v", err)
	}
}
