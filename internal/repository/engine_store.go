package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/restaurant-table-reservation/internal/availability"
    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// EngineStore bundles the read paths the assignment engine needs
// into one value.  Each method delegates to the owning repository so
// the individual repos stay single purpose.
type EngineStore struct {
    bookings    *BookingRepo
    restaurants *RestaurantRepo
    tables      *TableRepo
    allocations *AllocationRepo
    holds       *HoldRepo
}

// NewEngineStore wires the aggregate from a shared database handle.
func NewEngineStore(db *sql.DB) *EngineStore {
    return &EngineStore{
        bookings:    NewBookingRepo(db),
        restaurants: NewRestaurantRepo(db),
        tables:      NewTableRepo(db),
        allocations: NewAllocationRepo(db),
        holds:       NewHoldRepo(db),
    }
}

// GetBooking resolves a booking by id, or (nil, nil) when absent.
func (s *EngineStore) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
    return s.bookings.GetByID(ctx, id)
}

// GetRestaurant resolves a restaurant by id, or (nil, nil) when absent.
func (s *EngineStore) GetRestaurant(ctx context.Context, id uint64) (*model.Restaurant, error) {
    return s.restaurants.GetByID(ctx, id)
}

// ListTables returns the restaurant's table inventory.
func (s *EngineStore) ListTables(ctx context.Context, restaurantID uint64) ([]model.Table, error) {
    return s.tables.ListTables(ctx, restaurantID)
}

// ListAdjacency returns the restaurant's adjacency pairs.
func (s *EngineStore) ListAdjacency(ctx context.Context, restaurantID uint64) ([]model.Adjacency, error) {
    return s.tables.ListAdjacency(ctx, restaurantID)
}

// ListAllocationsOverlapping returns committed allocations whose
// window intersects w.
func (s *EngineStore) ListAllocationsOverlapping(ctx context.Context, restaurantID uint64, w availability.Window) ([]model.Allocation, error) {
    return s.allocations.ListOverlapping(ctx, restaurantID, w)
}

// ListLiveHolds returns every unexpired hold of the restaurant.
func (s *EngineStore) ListLiveHolds(ctx context.Context, restaurantID uint64, now time.Time) ([]model.TableHold, error) {
    return s.holds.ListLiveHolds(ctx, restaurantID, now)
}
