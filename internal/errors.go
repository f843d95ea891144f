package internal

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStoreUnavailable marks a validated-write path that could not be reached
// at all (function not deployed, endpoint missing). The reconciler treats it
// like a rejection for control flow but keeps it distinct in the attempt
// trail because it points at a deployment gap, not a business rule.
var ErrStoreUnavailable = errors.New("validated ingest path unavailable")

// SchemaError means a direct-write destination rejected the payload shape
// (missing table or column). It is the only error that routes a preferred
// insert onto the legacy shape.
type SchemaError struct {
	Table  ItemTable
	Code   string
	Detail string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema mismatch on %s (%s): %s", e.Table, e.Code, e.Detail)
}

func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// RecognitionError aggregates the per-stage failures of an exhausted
// recognizer chain. Callers show a generic message; the detail is for
// operators.
type RecognitionError struct {
	Failures []StageFailure
}

type StageFailure struct {
	Source ObservationSource
	Err    error
}

func (e *RecognitionError) Error() string {
	if len(e.Failures) == 0 {
		return "could not identify item"
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Source, f.Err))
	}
	return "could not identify item: " + strings.Join(parts, "; ")
}
