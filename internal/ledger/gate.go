// Package ledger provides the submission gate through which every registry
// mutation is applied. All writers of both registries share one gate, so the
// observable history is a total order over submitted mutations and
// cross-registry reads inside a submission can never race a concurrent write.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Confirmation is the durable, externally observable reference returned once
// and only once per successful mutation.
type Confirmation struct {
	ID        uuid.UUID `json:"id"`
	Op        string    `json:"op"`
	AppliedAt time.Time `json:"applied_at"`
}

// Gate serializes mutations. fn runs with every precondition check, state
// change, counter update, and event emission inside one atomic boundary:
// if fn returns an error nothing it did is visible.
//
// Once a submission is admitted it runs to completion; callers that time out
// waiting must not assume the mutation did not happen.
type Gate interface {
	Submit(ctx context.Context, op string, fn func(ctx context.Context) error) (Confirmation, error)
}

func newConfirmation(op string) Confirmation {
	return Confirmation{ID: uuid.New(), Op: op, AppliedAt: time.Now().UTC()}
}
