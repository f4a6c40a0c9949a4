// Package session runs the staff assignment workflow: open a
// workspace for a booking, propose a selection, back it with a hold,
// confirm it into allocations.  Concurrency control is optimistic:
// every mutating call carries the context version and selection
// version the operator last saw, and a mismatch is rejected with the
// expected value instead of silently overwriting someone else's work.
package session

import (
    "errors"
    "fmt"

    "github.com/iliyamo/restaurant-table-reservation/internal/availability"
)

// ErrSessionNotFound is returned when no live session exists for the
// booking.  Expired sessions count as absent.
var ErrSessionNotFound = errors.New("assignment session not found")

// ErrSessionDisabled is returned when manual assignment is switched
// off for the deployment.
var ErrSessionDisabled = errors.New("manual assignment sessions are disabled")

// InputError rejects a malformed request shape: empty selection,
// unknown mode, confirm against the wrong hold.  Never retried.
type InputError struct {
    Message string
}

func (e *InputError) Error() string {
    return fmt.Sprintf("invalid selection input: %s", e.Message)
}

// StaleContextError means the operator's availability context is out
// of date.  It carries both versions so the client can refresh and
// retry.
type StaleContextError struct {
    Expected string
    Provided string
}

func (e *StaleContextError) Error() string {
    return fmt.Sprintf("stale context version: expected %s, got %s", e.Expected, e.Provided)
}

// StaleSelectionError means another call already mutated the
// session's selection.
type StaleSelectionError struct {
    Expected uint64
    Provided uint64
}

func (e *StaleSelectionError) Error() string {
    return fmt.Sprintf("stale selection version: expected %d, got %d", e.Expected, e.Provided)
}

// ConflictError means the hold or commit lost a race to another
// claim.  Conflicts lists the blocking entries for the operator.
type ConflictError struct {
    Conflicts []availability.BusyWindow
}

func (e *ConflictError) Error() string {
    return fmt.Sprintf("selection conflicts with %d existing claims", len(e.Conflicts))
}
