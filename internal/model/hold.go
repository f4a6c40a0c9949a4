package model

import "time"

// TableHold represents a row in the `table_holds` table.  A hold is a
// short lived soft lock over a set of tables for a time window.  It
// keeps a proposed plan from being taken by a concurrent session
// while staff review it.  Expiry is evaluated at read time: rows with
// expires_at in the past are simply filtered out by queries and later
// removed by the sweeper, mirroring how seat holds behave elsewhere.
//
// Fields:
//  ID             - UUID primary key of the hold.
//  RestaurantID   - restaurant scope of the hold.
//  BookingID      - booking the hold was taken for.
//  ZoneID         - zone of the held tables (plans never span zones).
//  StartAt        - start of the held window (UTC).
//  EndAt          - end of the held window (UTC, exclusive).
//  ExpiresAt      - when the hold lapses and stops blocking others.
//  IdempotencyKey - client supplied key; replays return the same hold.
//  CreatedBy      - user who took the hold (nullable).
//  CreatedAt      - timestamp of creation.
//  TableIDs       - member tables, joined from table_hold_members.
type TableHold struct {
    ID             string    // table_holds.id (UUID)
    RestaurantID   uint64    // table_holds.restaurant_id
    BookingID      uint64    // table_holds.booking_id
    ZoneID         uint64    // table_holds.zone_id
    StartAt        time.Time // table_holds.start_at
    EndAt          time.Time // table_holds.end_at
    ExpiresAt      time.Time // table_holds.expires_at
    IdempotencyKey *string   // table_holds.idempotency_key (nullable)
    CreatedBy      *uint64   // table_holds.created_by (nullable)
    CreatedAt      time.Time // table_holds.created_at
    TableIDs       []uint64  // joined from table_hold_members
}

// Live reports whether the hold still blocks other claims at the
// given instant.  An expired hold is treated as absent everywhere.
func (h *TableHold) Live(now time.Time) bool {
    return h.ExpiresAt.After(now)
}

// HoldMember represents a row in the `table_hold_members` table.  One
// row exists per table covered by a hold.
//
// Fields:
//  HoldID  - parent hold UUID.
//  TableID - held table.
type HoldMember struct {
    HoldID  string // table_hold_members.hold_id
    TableID uint64 // table_hold_members.table_id
}
