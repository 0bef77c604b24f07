// internal/bus/server.go
package bus

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Handler turns one request into exactly one reply.
type Handler interface {
	Handle(ctx context.Context, request []byte) []byte
}

// Server answers requests on one subject, one at a time.
type Server struct {
	nc      *nats.Conn
	subject string
	queue   string
	h       Handler
	log     zerolog.Logger

	ready chan struct{}
}

func NewServer(nc *nats.Conn, subject, queue string, h Handler, log zerolog.Logger) *Server {
	return &Server{nc: nc, subject: subject, queue: queue, h: h, log: log, ready: make(chan struct{})}
}

// Ready is closed once the subscription is active.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Serve runs the request loop until ctx is done.
// Each request is handled and answered before the next is taken.
func (s *Server) Serve(ctx context.Context) error {
	var (
		sub *nats.Subscription
		err error
	)
	if s.queue != "" {
		sub, err = s.nc.QueueSubscribeSync(s.subject, s.queue)
	} else {
		sub, err = s.nc.SubscribeSync(s.subject)
	}
	if err != nil {
		return fmt.Errorf("bus: subscribe %s: %w", s.subject, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	// make the subscription visible before callers start sending
	if err := s.nc.Flush(); err != nil {
		return fmt.Errorf("bus: flush: %w", err)
	}

	s.log.Info().Str("subject", s.subject).Str("queue", s.queue).Msg("bus server listening")
	close(s.ready)

	for {
		msg, err := sub.NextMsgWithContext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, nats.ErrConnectionClosed) {
				return fmt.Errorf("bus: %w", err)
			}
			return fmt.Errorf("bus: next message: %w", err)
		}

		s.serveOne(ctx, msg)
	}
}

func (s *Server) serveOne(ctx context.Context, msg *nats.Msg) {
	s.log.Debug().Int("bytes", len(msg.Data)).Msg("request received")

	reply := s.h.Handle(ctx, msg.Data)

	if msg.Reply == "" {
		s.log.Warn().Msg("request without reply subject dropped")
		return
	}
	if err := msg.Respond(reply); err != nil {
		s.log.Warn().Err(err).Msg("reply failed")
	}
}
