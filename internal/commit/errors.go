// Package commit turns a validated plan into durable allocation rows
// through one of two strategies: a stored procedure that enforces
// overlap, adjacency and idempotency inside a single transaction, or
// a direct insert with a pre-check for environments where the
// procedure is not installed.  Every failure is classified into a
// closed set of typed errors so callers never probe message strings.
package commit

import "fmt"

// ConflictError means another allocation or hold already occupies a
// requested table for an overlapping window, or a concurrent commit
// won the race.  The caller should re-quote; retrying the same plan
// will not succeed.
type ConflictError struct {
    Message string
}

func (e *ConflictError) Error() string {
    return fmt.Sprintf("assignment conflict: %s", e.Message)
}

// ValidationError means the plan breaks a domain rule (non adjacent
// tables under strict policy, zone mismatch, insufficient capacity)
// independent of concurrent state.  Retrying without changing the
// selection will not succeed.
type ValidationError struct {
    Message string
}

func (e *ValidationError) Error() string {
    return fmt.Sprintf("assignment validation failed: %s", e.Message)
}

// RepositoryError wraps infrastructure failures: connection loss,
// unexpected driver errors, or a missing stored procedure.  This is
// the only class safe to retry with backoff.  ProcedureMissing marks
// errors eligible for the one time downgrade to the direct strategy.
type RepositoryError struct {
    Message          string
    ProcedureMissing bool
    Cause            error
}

func (e *RepositoryError) Error() string {
    if e.Cause != nil {
        return fmt.Sprintf("assignment repository error: %s: %v", e.Message, e.Cause)
    }
    return fmt.Sprintf("assignment repository error: %s", e.Message)
}

func (e *RepositoryError) Unwrap() error {
    return e.Cause
}
