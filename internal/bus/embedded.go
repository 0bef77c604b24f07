// internal/bus/embedded.go
package bus

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/rs/zerolog"
)

// EmbeddedOptions configures the in-process NATS server.
// An empty Host listens on all addresses; Port -1 picks a random free port.
type EmbeddedOptions struct {
	Host string
	Port int
}

// Embedded is an in-process NATS server for single-box deployments.
type Embedded struct {
	ns  *server.Server
	log zerolog.Logger
}

// NewEmbedded creates the server. It does not listen until Start.
func NewEmbedded(o EmbeddedOptions, log zerolog.Logger) (*Embedded, error) {
	ns, err := server.NewServer(&server.Options{
		Host:   o.Host,
		Port:   o.Port,
		NoSigs: true,
		NoLog:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("bus: create nats server: %w", err)
	}
	return &Embedded{ns: ns, log: log}, nil
}

// Start launches the server and waits until it accepts clients.
func (e *Embedded) Start(timeout time.Duration) error {
	go e.ns.Start()
	if !e.ns.ReadyForConnections(timeout) {
		e.ns.Shutdown()
		return fmt.Errorf("bus: nats server not ready after %s", timeout)
	}
	e.log.Info().Str("url", e.ns.ClientURL()).Msg("embedded nats server started")
	return nil
}

// ClientURL is the URL clients connect to.
func (e *Embedded) ClientURL() string {
	return e.ns.ClientURL()
}

// Wait blocks until the server shuts down.
func (e *Embedded) Wait() {
	e.ns.WaitForShutdown()
}

// Shutdown stops the server.
func (e *Embedded) Shutdown() {
	e.ns.Shutdown()
	e.log.Info().Msg("embedded nats server stopped")
}
