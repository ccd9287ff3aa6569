package ledger

import (
	"context"
	"sync"
	"time"

	dErrors "credentry/pkg/domain-errors"
)

// defaultSubmitTimeout bounds how long a submission may wait for the gate
// plus run.
const defaultSubmitTimeout = 5 * time.Second

// MemoryGate serializes mutations behind a single mutex. This matches the
// single-threaded apply semantics of the underlying commit log: contention is
// acceptable because mutations are small and bounded.
type MemoryGate struct {
	mu      sync.Mutex
	timeout time.Duration
}

func NewMemoryGate() *MemoryGate {
	return &MemoryGate{timeout: defaultSubmitTimeout}
}

func (g *MemoryGate) Submit(ctx context.Context, op string, fn func(ctx context.Context) error) (Confirmation, error) {
	if err := ctx.Err(); err != nil {
		return Confirmation{}, dErrors.Wrap(err, dErrors.CodeTimeout, "submission aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Admission check only: once fn starts it runs to completion, success
	// or typed failure, regardless of the caller's deadline.
	if err := ctx.Err(); err != nil {
		return Confirmation{}, dErrors.Wrap(err, dErrors.CodeTimeout, "submission aborted: context cancelled")
	}

	if err := fn(ctx); err != nil {
		return Confirmation{}, err
	}
	return newConfirmation(op), nil
}
