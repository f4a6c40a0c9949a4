package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// BookingRepo provides read access to the bookings table.  The
// assignment engine never creates or mutates bookings; they are
// owned by the reservation flow.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the provided database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// GetByID fetches one booking.  It returns (nil, nil) when the id
// does not exist so callers can map absence to their own error.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT id, restaurant_id, user_id, party_size, start_at, end_at, status, created_at, updated_at
           FROM bookings WHERE id = ?`, id)
    var b model.Booking
    var endAt sql.NullTime
    if err := row.Scan(&b.ID, &b.RestaurantID, &b.UserID, &b.PartySize, &b.StartAt, &endAt, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
        if err == sql.ErrNoRows {
            return nil, nil
        }
        return nil, err
    }
    if endAt.Valid {
        b.EndAt = endAt.Time
    }
    return &b, nil
}

// RestaurantRepo provides read access to the restaurants table.  The
// engine only consumes the policy flags.
type RestaurantRepo struct {
    db *sql.DB
}

// NewRestaurantRepo returns a new RestaurantRepo bound to the provided database.
func NewRestaurantRepo(db *sql.DB) *RestaurantRepo { return &RestaurantRepo{db: db} }

// ListIDs returns the ids of every restaurant.  The scarcity
// recompute job iterates over them.
func (r *RestaurantRepo) ListIDs(ctx context.Context) ([]uint64, error) {
    rows, err := r.db.QueryContext(ctx, `SELECT id FROM restaurants ORDER BY id`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []uint64
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        out = append(out, id)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// GetByID fetches one restaurant, or (nil, nil) when absent.
func (r *RestaurantRepo) GetByID(ctx context.Context, id uint64) (*model.Restaurant, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT id, name, require_adjacency, created_at FROM restaurants WHERE id = ?`, id)
    var rest model.Restaurant
    if err := row.Scan(&rest.ID, &rest.Name, &rest.RequireAdjacency, &rest.CreatedAt); err != nil {
        if err == sql.ErrNoRows {
            return nil, nil
        }
        return nil, err
    }
    return &rest, nil
}
