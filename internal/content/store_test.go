package content

import (
	"errors"
	"testing"

	"credentry/pkg/platform/sentinel"
)

func TestPutIsContentAddressedAndIdempotent(t *testing.T) {
	s := NewInMemory()

	ref, err := s.Put(t.Context(), []byte("diploma"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if ref != Ref([]byte("diploma")) {
		t.Fatalf("expected content-addressed ref, got %q", ref)
	}

	again, err := s.Put(t.Context(), []byte("diploma"))
	if err != nil {
		t.Fatalf("second put: %v", err)
	}
	if again != ref {
		t.Fatalf("expected identical refs for identical content, got %q and %q", ref, again)
	}
}

func TestGetRoundTrip(t *testing.T) {
	s := NewInMemory()
	ref, err := s.Put(t.Context(), []byte("transcript"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	blob, err := s.Get(t.Context(), ref)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(blob) != "transcript" {
		t.Fatalf("unexpected content %q", blob)
	}

	// Returned slices must not alias the stored blob.
	blob[0] = 'X'
	fresh, err := s.Get(t.Context(), ref)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if string(fresh) != "transcript" {
		t.Fatalf("stored content mutated: %q", fresh)
	}
}

func TestGetUnknownRef(t *testing.T) {
	s := NewInMemory()
	if _, err := s.Get(t.Context(), "sha3:deadbeef"); !errors.Is(err, sentinel.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExists(t *testing.T) {
	s := NewInMemory()
	ref, err := s.Put(t.Context(), []byte("award"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	ok, err := s.Exists(t.Context(), ref)
	if err != nil || !ok {
		t.Fatalf("expected ref to resolve, ok=%v err=%v", ok, err)
	}
	ok, err = s.Exists(t.Context(), "sha3:deadbeef")
	if err != nil || ok {
		t.Fatalf("expected unknown ref to miss, ok=%v err=%v", ok, err)
	}
}
