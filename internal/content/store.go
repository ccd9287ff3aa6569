// Package content stores submitted credential documents, addressed by their
// digest. The certificate record keeps only the returned reference; the
// registry never serves raw documents to verifiers.
package content

import (
	"context"
	"sync"

	"credentry/pkg/hasher"
	"credentry/pkg/platform/sentinel"
)

// Store is the document blob contract.
type Store interface {
	// Put stores content and returns its content-addressed reference.
	// Storing the same bytes twice returns the same reference.
	Put(ctx context.Context, content []byte) (string, error)
	// Get returns the content for a reference.
	Get(ctx context.Context, ref string) ([]byte, error)
	// Exists reports whether a reference resolves.
	Exists(ctx context.Context, ref string) (bool, error)
}

// InMemory is the development and test blob store.
type InMemory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewInMemory() *InMemory {
	return &InMemory{blobs: make(map[string][]byte)}
}

// Ref derives the content-addressed reference for a document.
func Ref(content []byte) string {
	return "sha3:" + hasher.Sum(content).String()
}

func (s *InMemory) Put(_ context.Context, content []byte) (string, error) {
	ref := Ref(content)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[ref]; !ok {
		s.blobs[ref] = append([]byte(nil), content...)
	}
	return ref, nil
}

func (s *InMemory) Get(_ context.Context, ref string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[ref]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]byte(nil), blob...), nil
}

func (s *InMemory) Exists(_ context.Context, ref string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[ref]
	return ok, nil
}
