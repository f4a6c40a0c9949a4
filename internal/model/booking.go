package model

import "time"

// Booking statuses used by the assignment flow.  Only pending and
// confirmed bookings participate in availability checks; cancelled
// bookings release their allocations.
const (
    BookingStatusPending   = "PENDING"
    BookingStatusConfirmed = "CONFIRMED"
    BookingStatusSeated    = "SEATED"
    BookingStatusCancelled = "CANCELLED"
)

// Booking represents a row in the `bookings` table.  The window
// [StartAt, EndAt) is half open: a booking ending at 19:00 does not
// conflict with one starting at 19:00 on the same table.
//
// Fields:
//  ID           - primary key identifier of the booking.
//  RestaurantID - restaurant the booking was made at.
//  UserID       - staff member or customer who created the booking.
//  PartySize    - number of guests to seat.
//  StartAt      - start of the occupancy window (UTC).
//  EndAt        - end of the occupancy window (UTC, exclusive).
//  Status       - one of the BookingStatus* constants.
//  CreatedAt    - timestamp of creation.
//  UpdatedAt    - timestamp of last update.
type Booking struct {
    ID           uint64    // bookings.id
    RestaurantID uint64    // bookings.restaurant_id
    UserID       uint64    // bookings.user_id
    PartySize    int       // bookings.party_size
    StartAt      time.Time // bookings.start_at
    EndAt        time.Time // bookings.end_at
    Status       string    // bookings.status
    CreatedAt    time.Time // bookings.created_at
    UpdatedAt    time.Time // bookings.updated_at
}

// Allocation represents a row in the `allocations` table.  An
// allocation pins one table to one booking for the booking's window.
// A multi table plan produces one allocation row per member table,
// all sharing the same merge group identifier.
//
// Fields:
//  ID             - primary key identifier.
//  BookingID      - booking the table is assigned to.
//  TableID        - assigned table.
//  StartAt        - start of the occupied window (copied from the booking).
//  EndAt          - end of the occupied window (exclusive).
//  MergeGroupID   - UUID shared by rows of one multi table plan (nullable).
//  IdempotencyKey - commit request key; replays match on this column.
//  AssignedBy     - user who confirmed the assignment (nullable).
//  AssignedAt     - timestamp of the commit.
type Allocation struct {
    ID             uint64    // allocations.id
    BookingID      uint64    // allocations.booking_id
    TableID        uint64    // allocations.table_id
    StartAt        time.Time // allocations.start_at
    EndAt          time.Time // allocations.end_at
    MergeGroupID   *string   // allocations.merge_group_id (nullable UUID)
    IdempotencyKey *string   // allocations.idempotency_key (nullable)
    AssignedBy     *uint64   // allocations.assigned_by (nullable)
    AssignedAt     time.Time // allocations.assigned_at
}
