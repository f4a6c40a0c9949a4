package model

import (
    "encoding/json"
    "time"
)

// Outbox event statuses.  Pending rows are due for dispatch,
// processing rows were picked up by a worker, done rows delivered,
// dead rows exhausted their attempts and need manual attention.
const (
    OutboxStatusPending    = "pending"
    OutboxStatusProcessing = "processing"
    OutboxStatusDone       = "done"
    OutboxStatusDead       = "dead"
)

// Outbox event types produced by the commit path.
const (
    EventAssignmentCommitted = "assignment.committed"
    EventAssignmentFallback  = "assignment.fallback_used"
)

// OutboxEvent represents a row in the `outbox_events` table.  Events
// are written in the same transaction as the state change they
// describe and delivered at least once by the background worker.
//
// Fields:
//  ID            - primary key identifier.
//  EventType     - handler routing key (e.g. "assignment.committed").
//  RestaurantID  - restaurant scope of the event.
//  BookingID     - booking the event refers to (0 when not applicable).
//  DedupeKey     - unique key; a duplicate insert means already enqueued.
//  Payload       - JSON payload handed to the handler verbatim.
//  Status        - one of the OutboxStatus* constants.
//  AttemptCount  - delivery attempts made so far.
//  NextAttemptAt - earliest time the event is due again.
//  LastError     - message from the most recent failed attempt.
//  CreatedAt     - timestamp of enqueue.
type OutboxEvent struct {
    ID            uint64          // outbox_events.id
    EventType     string          // outbox_events.event_type
    RestaurantID  uint64          // outbox_events.restaurant_id
    BookingID     uint64          // outbox_events.booking_id
    DedupeKey     string          // outbox_events.dedupe_key
    Payload       json.RawMessage // outbox_events.payload
    Status        string          // outbox_events.status
    AttemptCount  int             // outbox_events.attempt_count
    NextAttemptAt time.Time       // outbox_events.next_attempt_at
    LastError     *string         // outbox_events.last_error (nullable)
    CreatedAt     time.Time       // outbox_events.created_at
}

// ScarcityMetric represents a row in the `scarcity_metrics` table.
// One row per (restaurant, table type); recomputed by the background
// job and read by the selector through the cached snapshot.
//
// Fields:
//  RestaurantID - restaurant the metric belongs to.
//  TableType    - derived type key ("capacity:4|category:booth|seating:indoor").
//  Score        - scarcity score, higher means rarer.
//  TableCount   - number of active tables of this type.
//  ComputedAt   - when the row was last recomputed.
type ScarcityMetric struct {
    RestaurantID uint64    // scarcity_metrics.restaurant_id
    TableType    string    // scarcity_metrics.table_type
    Score        float64   // scarcity_metrics.scarcity_score
    TableCount   int       // scarcity_metrics.table_count
    ComputedAt   time.Time // scarcity_metrics.computed_at
}
