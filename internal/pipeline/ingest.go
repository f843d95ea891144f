package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"carecount/internal"
)

// ItemStore is the persistence surface the reconciler drives. The validated
// path may be missing entirely in a given deployment; the direct paths map
// onto the preferred and legacy table shapes.
type ItemStore interface {
	// ValidatedIngest runs the server-side validated write. A non-nil error
	// means the path could not be reached (internal.ErrStoreUnavailable or a
	// transport failure); ok=false means it ran and rejected the item.
	ValidatedIngest(ctx context.Context, item internal.LoggedItem) (ok bool, msg string, err error)
	// InsertPreferred writes into the preferred shape, ingest id included.
	// A *internal.SchemaError return routes the item to the legacy shape.
	InsertPreferred(ctx context.Context, item internal.LoggedItem) error
	// InsertLegacy writes into the legacy shape, which has no ingest id
	// column. Implementations drop the field.
	InsertLegacy(ctx context.Context, item internal.LoggedItem) error
}

// ComputeIngestID derives the deterministic idempotency key for one logical
// submission: a v5 UUID over the URL namespace of the five identifying
// fields. Identical inputs always produce the identical id, which the
// storage layer uses as its natural dedup key.
func ComputeIngestID(visitID int, email, name string, qty int, timestampISO string) string {
	key := fmt.Sprintf("visit_items::%d::%s::%s::%d::%s", visitID, email, name, qty, timestampISO)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// Reconciler persists a LoggedItem at most once despite an unreliable
// validated path. Each level of the chain runs at most once per call; there
// are no retries across terminal outcomes.
type Reconciler struct {
	store ItemStore
}

func NewReconciler(store ItemStore) *Reconciler {
	return &Reconciler{store: store}
}

// Ingest walks the fallback chain:
//
//	validated ok            -> VALIDATED
//	rejected or unreachable -> preferred direct
//	preferred ok            -> FALLBACK
//	preferred schema error  -> legacy direct
//	legacy ok               -> LEGACY_FALLBACK
//	anything else           -> FAILED
//
// Every path returns a terminal result with a human-readable message and
// the attempt trail; no error escapes to the caller.
func (r *Reconciler) Ingest(ctx context.Context, item internal.LoggedItem) internal.IngestResult {
	attempts := make([]internal.IngestAttempt, 0, 3)

	ok, msg, err := r.store.ValidatedIngest(ctx, item)
	switch {
	case err == nil && ok:
		attempts = append(attempts, internal.IngestAttempt{Stage: "validated", OK: true, Detail: msg})
		return internal.IngestResult{Outcome: internal.OutcomeValidated, Message: "item logged", Attempts: attempts}
	case err == nil:
		attempts = append(attempts, internal.IngestAttempt{Stage: "validated", Detail: "rejected: " + msg})
	default:
		attempts = append(attempts, internal.IngestAttempt{Stage: "validated", Detail: "unavailable: " + err.Error()})
	}

	if err := r.store.InsertPreferred(ctx, item); err == nil {
		attempts = append(attempts, internal.IngestAttempt{Stage: "preferred_direct", OK: true})
		return internal.IngestResult{Outcome: internal.OutcomeFallback, Message: "item logged (fallback)", Attempts: attempts}
	} else if !internal.IsSchemaError(err) {
		attempts = append(attempts, internal.IngestAttempt{Stage: "preferred_direct", Detail: err.Error()})
		return internal.IngestResult{
			Outcome:  internal.OutcomeFailed,
			Message:  fmt.Sprintf("ingest failed: %v", err),
			Attempts: attempts,
		}
	} else {
		attempts = append(attempts, internal.IngestAttempt{Stage: "preferred_direct", Detail: "schema mismatch: " + err.Error()})
	}

	if err := r.store.InsertLegacy(ctx, item); err != nil {
		attempts = append(attempts, internal.IngestAttempt{Stage: "legacy_direct", Detail: err.Error()})
		return internal.IngestResult{
			Outcome:  internal.OutcomeFailed,
			Message:  fmt.Sprintf("ingest failed: %v", err),
			Attempts: attempts,
		}
	}
	attempts = append(attempts, internal.IngestAttempt{Stage: "legacy_direct", OK: true})
	return internal.IngestResult{Outcome: internal.OutcomeLegacyFallback, Message: "item logged (legacy fallback)", Attempts: attempts}
}
