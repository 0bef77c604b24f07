// internal/fault/fault.go
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a gateway failure.
// The set is closed; every failure the engine reports carries one of these.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindTransport
	KindProtocolException
	KindSizeMismatch
	KindConversion
	KindUnsupportedOperation
	KindInvalidInputValue
	KindSlaveNotFound
	KindValueNotDefined
	KindUnknownInterface
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "TransportError"
	case KindProtocolException:
		return "ProtocolException"
	case KindSizeMismatch:
		return "SizeMismatch"
	case KindConversion:
		return "ConversionError"
	case KindUnsupportedOperation:
		return "UnsupportedOperation"
	case KindInvalidInputValue:
		return "InvalidInputValue"
	case KindSlaveNotFound:
		return "SlaveNotFound"
	case KindValueNotDefined:
		return "ValueNotDefined"
	case KindUnknownInterface:
		return "UnknownInterface"
	default:
		return "UnknownError"
	}
}

// Error is the recoverable error type of the engine.
type Error struct {
	Kind   Kind
	Detail string

	// Exception is the Modbus exception code for KindProtocolException.
	Exception uint8

	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Code is a best-effort numeric code for health reporting.
// Device exceptions report their exception code, everything else 1.
func (e *Error) Code() uint16 {
	if e.Kind == KindProtocolException && e.Exception != 0 {
		return uint16(e.Exception)
	}
	return 1
}

// New builds an Error with a formatted detail.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error around a cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: err}
}

// Exception reports a device-returned Modbus exception.
func Exception(fc, code uint8, err error) *Error {
	return &Error{
		Kind:      KindProtocolException,
		Detail:    fmt.Sprintf("fc=%d code=%d", fc, code),
		Exception: code,
		Err:       err,
	}
}

// KindOf returns the Kind of err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
