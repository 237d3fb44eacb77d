package reconcile

import (
	"context"
	"errors"
	"fmt"

	"pulse/api/internal/store"
)

// ErrPersistence marks every failure of a store call during reconciliation.
// The caller retries by calling Reconcile again with the same edit.
var ErrPersistence = errors.New("persistence failure")

// Store is the topic surface the reconciler reads and writes through.
type Store = store.TopicStore

// Transactor is implemented by stores that can run the whole write sequence
// atomically.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// OpError reports the write that failed and aborted the sequence.
type OpError struct {
	Phase   Phase
	TopicID string
	Err     error
}

func (e *OpError) Error() string {
	if e.TopicID == "" {
		return fmt.Sprintf("reconcile %s: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("reconcile %s %s: %v", e.Phase, e.TopicID, e.Err)
}

// Unwrap reports ErrPersistence for storage failures. A write the store
// refused because the id is owned by another session unwraps to
// ErrForeignTopic instead; retrying it cannot succeed.
func (e *OpError) Unwrap() []error {
	if errors.Is(e.Err, store.ErrSessionMismatch) {
		return []error{ErrForeignTopic, e.Err}
	}
	return []error{ErrPersistence, e.Err}
}

// Reconcile reads the session's active topics, diffs them against edited and
// applies the result. Validation errors come back before any write.
func Reconcile(ctx context.Context, st Store, sessionID string, edited []Edit) (Plan, error) {
	previous, err := st.ReadActiveTopics(ctx, sessionID)
	if err != nil {
		return Plan{}, &OpError{Phase: PhaseRead, Err: err}
	}
	plan, err := Diff(sessionID, previous, edited)
	if err != nil {
		return Plan{}, err
	}
	if err := Apply(ctx, st, plan); err != nil {
		return plan, err
	}
	return plan, nil
}

// Apply issues the plan's writes in phase order: archive removed topics,
// park moved survivors at negative orders, write survivors' final state,
// insert new topics. The first failure stops the sequence. When st is a
// Transactor the sequence runs in one transaction; otherwise already
// applied writes stay, and re-running Reconcile from the persisted state
// converges on the same result.
func Apply(ctx context.Context, st Store, plan Plan) error {
	if plan.Empty() {
		return nil
	}
	if tx, ok := st.(Transactor); ok {
		return tx.WithinTx(ctx, func(s Store) error {
			return applyOps(ctx, s, plan)
		})
	}
	return applyOps(ctx, st, plan)
}

func applyOps(ctx context.Context, st Store, plan Plan) error {
	for _, op := range plan.Ops() {
		if err := ctx.Err(); err != nil {
			return &OpError{Phase: op.Phase, TopicID: op.Topic.ID, Err: err}
		}
		if err := st.WriteTopic(ctx, op.Topic); err != nil {
			return &OpError{Phase: op.Phase, TopicID: op.Topic.ID, Err: err}
		}
	}
	return nil
}
