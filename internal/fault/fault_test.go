// internal/fault/fault_test.go
package fault

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestError_Message(t *testing.T) {
	err := Wrap(KindTransport, io.EOF, "read plc1")
	if got := err.Error(); got != "TransportError: read plc1: EOF" {
		t.Fatalf("got %q", got)
	}

	if got := New(KindSlaveNotFound, "%s", "s9").Error(); got != "SlaveNotFound: s9" {
		t.Fatalf("got %q", got)
	}

	if got := (&Error{Kind: KindSizeMismatch}).Error(); got != "SizeMismatch" {
		t.Fatalf("got %q", got)
	}
}

func TestKindOf_ThroughWrapping(t *testing.T) {
	base := New(KindValueNotDefined, "flow in s1")
	wrapped := fmt.Errorf("batch: %w", base)

	if KindOf(wrapped) != KindValueNotDefined {
		t.Fatalf("kind %v", KindOf(wrapped))
	}
	if !Is(wrapped, KindValueNotDefined) {
		t.Fatalf("Is() = false")
	}
	if Is(nil, KindUnknown) {
		t.Fatalf("nil matched a kind")
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatalf("plain error has a kind")
	}
	if !errors.Is(Wrap(KindTransport, io.EOF, "x"), io.EOF) {
		t.Fatalf("cause not unwrapped")
	}
}

func TestCode(t *testing.T) {
	if c := Exception(3, 2, nil).Code(); c != 2 {
		t.Fatalf("exception code %d", c)
	}
	if c := New(KindTransport, "x").Code(); c != 1 {
		t.Fatalf("transport code %d", c)
	}
	if c := (&Error{Kind: KindProtocolException}).Code(); c != 1 {
		t.Fatalf("zero exception code %d", c)
	}
}

func TestKind_StringsAreDistinct(t *testing.T) {
	seen := make(map[string]Kind)
	for k := KindUnknown; k <= KindUnknownInterface; k++ {
		s := k.String()
		if prev, dup := seen[s]; dup {
			t.Fatalf("%v and %v share %q", prev, k, s)
		}
		seen[s] = k
	}
}
