// internal/bus/client.go
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// ReplyError is an ERROR reply from the gateway.
type ReplyError struct {
	Code    string `json:"ERROR"`
	Details string `json:"DETAILS"`
}

func (e *ReplyError) Error() string {
	if e.Details == "" {
		return e.Code
	}
	return e.Code + ": " + e.Details
}

// ErrInvalidReply means the gateway answered with something that is
// not a single TEST, GET, SET or ERROR object.
var ErrInvalidReply = errors.New("bus: invalid reply")

// Client sends gateway requests over NATS.
type Client struct {
	nc      *nats.Conn
	subject string
	timeout time.Duration
}

func NewClient(nc *nats.Conn, subject string, timeout time.Duration) *Client {
	return &Client{nc: nc, subject: subject, timeout: timeout}
}

// Raw sends request as-is and returns the raw reply.
func (c *Client) Raw(ctx context.Context, request []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.nc.RequestWithContext(ctx, c.subject, request)
	if err != nil {
		return nil, fmt.Errorf("bus: request %s: %w", c.subject, err)
	}
	return msg.Data, nil
}

// Test checks that the gateway answers by echoing a random token.
func (c *Client) Test(ctx context.Context) (bool, error) {
	token := uuid.NewString()

	var echoed string
	if err := c.do(ctx, "TEST", token, &echoed); err != nil {
		return false, err
	}
	return echoed == token, nil
}

// Get reads the given point paths. Points that failed are absent.
func (c *Client) Get(ctx context.Context, paths []string) (map[string]any, error) {
	if paths == nil {
		paths = []string{}
	}
	values := map[string]any{}
	if err := c.do(ctx, "GET", paths, &values); err != nil {
		return nil, err
	}
	return values, nil
}

// Set writes path to value pairs.
func (c *Client) Set(ctx context.Context, values map[string]any) error {
	if values == nil {
		values = map[string]any{}
	}
	var ack any
	return c.do(ctx, "SET", values, &ack)
}

func (c *Client) do(ctx context.Context, method string, body, out any) error {
	req, err := json.Marshal(map[string]any{method: body})
	if err != nil {
		return fmt.Errorf("bus: encode %s: %w", method, err)
	}

	data, err := c.Raw(ctx, req)
	if err != nil {
		return err
	}
	return decodeReply(data, method, out)
}

func decodeReply(data []byte, method string, out any) error {
	var reply map[string]json.RawMessage
	if err := json.Unmarshal(data, &reply); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}

	if _, ok := reply["ERROR"]; ok {
		var re ReplyError
		if err := json.Unmarshal(data, &re); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidReply, err)
		}
		return &re
	}

	body, ok := reply[method]
	if !ok || len(reply) != 1 {
		return fmt.Errorf("%w: %s", ErrInvalidReply, data)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	return nil
}
