// Package queue defines message payloads exchanged over the message broker.
package queue

// AssignmentCommittedEvent is published when a table assignment is
// successfully committed. It contains enough information for downstream
// consumers to log, notify, or trigger analytics without querying the
// primary database.
type AssignmentCommittedEvent struct {
    BookingID    uint64   `json:"booking_id"`
    RestaurantID uint64   `json:"restaurant_id"`
    TableIDs     []uint64 `json:"table_ids"`
    MergeGroupID string   `json:"merge_group_id,omitempty"`
    StartsAt     string   `json:"starts_at"`
    EndsAt       string   `json:"ends_at"`
    Strategy     string   `json:"strategy"`
    CommittedAt  string   `json:"committed_at"`
}
