package provider

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Errorf(Embedding, "embed", cause)

	want := "embedding provider: embed: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}

func TestError_MatchesThroughWrapping(t *testing.T) {
	inner := Errorf(VectorIndex, "query", errors.New("timeout"))
	wrapped := fmt.Errorf("searching knowledge: %w", inner)

	var pErr *Error
	if !errors.As(wrapped, &pErr) {
		t.Fatal("expected errors.As to match *Error through wrapping")
	}
	if pErr.Provider != VectorIndex {
		t.Errorf("Provider = %q, want %q", pErr.Provider, VectorIndex)
	}
	if pErr.Op != "query" {
		t.Errorf("Op = %q, want %q", pErr.Op, "query")
	}
}
