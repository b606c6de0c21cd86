package fstree

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := newError(KindIO, "Checkout", "a/b.txt", fmt.Errorf("permission denied"))
	want := "Checkout: io (a/b.txt): permission denied"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := newError(KindIO, "op", "path", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is should see through Unwrap to the cause")
	}
}

func TestIsKind(t *testing.T) {
	err := newError(KindNotFound, "op", "path", nil)
	if !IsKind(err, KindNotFound) {
		t.Fatalf("expected KindNotFound")
	}
	if IsKind(err, KindIO) {
		t.Fatalf("expected not KindIO")
	}
	if IsKind(errors.New("plain"), KindIO) {
		t.Fatalf("a plain error must never match a Kind")
	}
}

func TestIsKindWrapped(t *testing.T) {
	inner := newError(KindCorrupt, "inner", "x", nil)
	wrapped := fmt.Errorf("outer: %w", inner)
	if !IsKind(wrapped, KindCorrupt) {
		t.Fatalf("IsKind must see through fmt.Errorf wrapping")
	}
}
