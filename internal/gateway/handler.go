// internal/gateway/handler.go
package gateway

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-gateway/internal/fault"
	"github.com/tamzrod/modbus-gateway/internal/metrics"
	"github.com/tamzrod/modbus-gateway/internal/modbus"
)

// Methods
const (
	MethodTest = "TEST"
	MethodGet  = "GET"
	MethodSet  = "SET"
)

// Error codes
const (
	ErrInvalidRequest   = "INVALID REQUEST"
	ErrInvalidMethod    = "INVALID METHOD"
	ErrUnknownInterface = "UNKNOWN INTERFACE"
)

// ErrorReply is the single rejection reply.
type ErrorReply struct {
	Error   string `json:"ERROR"`
	Details string `json:"DETAILS"`
}

// Handler turns one request into exactly one reply.
type Handler struct {
	d   *Dispatcher
	log zerolog.Logger
}

func NewHandler(d *Dispatcher, log zerolog.Logger) *Handler {
	return &Handler{d: d, log: log}
}

// Handle processes one request message. It never fails: every problem
// is reported inside the returned reply.
func (h *Handler) Handle(ctx context.Context, request []byte) []byte {
	members, err := decodeObject(request)
	if err != nil {
		h.log.Info().Err(err).Int("bytes", len(request)).Msg("invalid request")
		metrics.IncRequest("INVALID", false)
		return encodeError(ErrInvalidRequest, err.Error())
	}
	if len(members) != 1 {
		metrics.IncRequest("INVALID", false)
		return encodeError(ErrInvalidRequest, "expected exactly one method")
	}

	method := strings.ToUpper(members[0].Key)
	body := members[0].Value

	var reply []byte
	var ok bool
	switch method {
	case MethodTest:
		reply, ok = h.test(body)
	case MethodGet:
		reply, ok = h.get(ctx, body)
	case MethodSet:
		reply, ok = h.set(ctx, body)
	default:
		metrics.IncRequest("INVALID", false)
		return encodeError(ErrInvalidMethod, members[0].Key)
	}

	metrics.IncRequest(method, ok)
	return reply
}

// ---- methods ----

func (h *Handler) test(body json.RawMessage) ([]byte, bool) {
	var name string
	if isNull(body) {
		return invalidBody(MethodTest, body), false
	}
	if err := json.Unmarshal(body, &name); err != nil {
		return invalidBody(MethodTest, body), false
	}

	// echoed whether or not the interface exists
	if _, known := h.d.catalog.Interface(name); !known {
		h.log.Debug().Str("interface", name).Msg("test for unknown interface")
	}
	return encode(map[string]any{MethodTest: name}), true
}

func (h *Handler) get(ctx context.Context, body json.RawMessage) ([]byte, bool) {
	var raw []json.RawMessage
	if isNull(body) {
		return invalidBody(MethodGet, body), false
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return invalidBody(MethodGet, body), false
	}

	plan := NewPlan()
	for _, r := range raw {
		var path string
		if isNull(r) {
			return invalidBody(MethodGet, body), false
		}
		if err := json.Unmarshal(r, &path); err != nil {
			return invalidBody(MethodGet, body), false
		}
		plan.Push(path, nil)
	}

	h.log.Info().Int("paths", len(raw)).Int("planned", plan.Len()).Msg("GET request")

	values, err := h.d.Dispatch(ctx, plan.Groups(), modbus.Get)
	if err != nil {
		return dispatchError(err), false
	}
	return encode(map[string]any{MethodGet: values}), true
}

func (h *Handler) set(ctx context.Context, body json.RawMessage) ([]byte, bool) {
	members, err := decodeObject(body)
	if err != nil {
		return invalidBody(MethodSet, body), false
	}

	plan := NewPlan()
	for _, m := range members {
		v, err := decodeValue(m.Value)
		if err != nil {
			return invalidBody(MethodSet, body), false
		}
		plan.Push(m.Key, v)
	}

	h.log.Info().Int("paths", len(members)).Int("planned", plan.Len()).Msg("SET request")

	if _, err := h.d.Dispatch(ctx, plan.Groups(), modbus.Set); err != nil {
		return dispatchError(err), false
	}
	return encode(map[string]any{MethodSet: nil}), true
}

// ---- replies ----

func invalidBody(method string, body json.RawMessage) []byte {
	return encodeError("INVALID "+method, compact(body))
}

func dispatchError(err error) []byte {
	if fault.Is(err, fault.KindUnknownInterface) {
		return encodeError(ErrUnknownInterface, err.Error())
	}
	return encodeError(ErrInvalidRequest, err.Error())
}

func encodeError(code, details string) []byte {
	return encode(ErrorReply{Error: code, Details: details})
}

func encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// replies only carry scalars decoded by the codec
		b, _ = json.Marshal(ErrorReply{Error: ErrInvalidRequest, Details: err.Error()})
	}
	return b
}
