package model

import "time"

// SessionState enumerates the lifecycle of a staff assignment
// session.  Confirmed, Cancelled and Expired are terminal.
type SessionState string

// Session states.  A session starts in Draft, moves to Proposed once
// a selection is stored, to Held when the selection is backed by a
// live hold, and to Confirmed when the hold is committed.  A Held
// session whose hold expires drops back to Proposed rather than
// failing silently.
const (
    SessionDraft     SessionState = "DRAFT"
    SessionProposed  SessionState = "PROPOSED"
    SessionHeld      SessionState = "HELD"
    SessionConfirmed SessionState = "CONFIRMED"
    SessionCancelled SessionState = "CANCELLED"
    SessionExpired   SessionState = "EXPIRED"
)

// Terminal reports whether no further transitions are allowed from
// the state.
func (s SessionState) Terminal() bool {
    return s == SessionConfirmed || s == SessionCancelled || s == SessionExpired
}

// AssignmentSession represents a row in the `assignment_sessions`
// table.  One session exists per booking at a time (booking_id is
// unique among non-terminal sessions).  SelectionVersion increases on
// every selection mutation; ContextVersion fingerprints the
// availability context the operator last saw.  Both must match on
// mutating calls or the call is rejected as stale.
//
// Fields:
//  ID               - UUID primary key of the session.
//  BookingID        - booking this session works on.
//  RestaurantID     - restaurant scope.
//  State            - current SessionState.
//  Selection        - currently chosen table ids (stored as JSON).
//  SelectionVersion - monotonic counter of selection mutations.
//  ContextVersion   - fingerprint of the availability context at last read.
//  HoldID           - hold backing a Held session (nullable UUID).
//  HoldExpired      - set when the backing hold lapsed before confirm.
//  ExpiresAt        - when the session itself times out.
//  CreatedBy        - staff user who opened the session.
//  CreatedAt        - timestamp of creation.
//  UpdatedAt        - timestamp of last update.
type AssignmentSession struct {
    ID               string       // assignment_sessions.id (UUID)
    BookingID        uint64       // assignment_sessions.booking_id
    RestaurantID     uint64       // assignment_sessions.restaurant_id
    State            SessionState // assignment_sessions.state
    Selection        []uint64     // assignment_sessions.selection (JSON array)
    SelectionVersion uint64       // assignment_sessions.selection_version
    ContextVersion   string       // assignment_sessions.context_version
    HoldID           *string      // assignment_sessions.hold_id (nullable UUID)
    HoldExpired      bool         // assignment_sessions.hold_expired
    ExpiresAt        time.Time    // assignment_sessions.expires_at
    CreatedBy        uint64       // assignment_sessions.created_by
    CreatedAt        time.Time    // assignment_sessions.created_at
    UpdatedAt        time.Time    // assignment_sessions.updated_at
}
