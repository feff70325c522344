package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name      string
		err       error
		kind      string
		retryable bool
	}{
		{name: "nil", err: nil, kind: "", retryable: false},
		{name: "transport", err: &TransportError{Endpoint: "items", Err: base}, kind: "transport", retryable: true},
		{name: "wrapped transport", err: fmt.Errorf("list ids: %w", &TransportError{Endpoint: "items", StatusCode: 503, Err: base}), kind: "transport", retryable: true},
		{name: "parse", err: &ParseError{Endpoint: "item", Err: base}, kind: "parse", retryable: false},
		{name: "store", err: fmt.Errorf("save: %w", &StoreError{Op: "insert item", Err: base}), kind: "store", retryable: false},
		{name: "other", err: base, kind: "other", retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.kind {
				t.Fatalf("Kind() = %q, want %q", got, tt.kind)
			}
			if got := Retryable(tt.err); got != tt.retryable {
				t.Fatalf("Retryable() = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestErrorMessagesAndUnwrap(t *testing.T) {
	base := errors.New("connection refused")

	te := &TransportError{Endpoint: "channels", Err: base}
	if te.Error() != "transport channels: connection refused" {
		t.Fatalf("unexpected message: %s", te.Error())
	}
	withStatus := &TransportError{Endpoint: "item", StatusCode: 404, Err: errors.New("not found")}
	if withStatus.Error() != "transport item: status 404: not found" {
		t.Fatalf("unexpected message: %s", withStatus.Error())
	}
	if !errors.Is(te, base) {
		t.Fatal("transport error should unwrap to its cause")
	}

	se := &StoreError{Op: "advance watermark", Err: ErrNotFound}
	if !errors.Is(fmt.Errorf("sync: %w", se), ErrNotFound) {
		t.Fatal("store error should unwrap to ErrNotFound")
	}
	if se.Error() != "store advance watermark: not found" {
		t.Fatalf("unexpected message: %s", se.Error())
	}
}

func TestItemResidRefs(t *testing.T) {
	item := Item{
		GUID: "pkg",
		Groups: []Group{
			{ID: "root", Refs: []Ref{{IDRef: "main"}}},
			{ID: "main", Refs: []Ref{{ResidRef: "a"}, {ResidRef: "b"}}},
			{ID: "side", Refs: []Ref{{ResidRef: "c"}}},
		},
	}

	got := item.ResidRefs()
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	if refs := (Item{}).ResidRefs(); refs != nil {
		t.Fatalf("expected nil refs, got %v", refs)
	}
}
