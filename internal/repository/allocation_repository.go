package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/iliyamo/restaurant-table-reservation/internal/availability"
    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// AllocationRepo persists committed table allocations.  It backs both
// the engine's availability reads and the direct insert commit path.
// The unique key on (table_id, start_at) is the last line of defence
// against double booking when the stored procedure is unavailable.
type AllocationRepo struct {
    db *sql.DB
}

// NewAllocationRepo returns a new AllocationRepo bound to the provided database.
func NewAllocationRepo(db *sql.DB) *AllocationRepo { return &AllocationRepo{db: db} }

const allocationColumns = `id, booking_id, table_id, start_at, end_at, merge_group_id, idempotency_key, assigned_by, assigned_at`

// scanAllocations drains a result set into allocation values.
func scanAllocations(rows *sql.Rows) ([]model.Allocation, error) {
    defer rows.Close()
    var out []model.Allocation
    for rows.Next() {
        var a model.Allocation
        if err := rows.Scan(&a.ID, &a.BookingID, &a.TableID, &a.StartAt, &a.EndAt,
            &a.MergeGroupID, &a.IdempotencyKey, &a.AssignedBy, &a.AssignedAt); err != nil {
            return nil, err
        }
        out = append(out, a)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// ListOverlapping returns every allocation of the restaurant whose
// window intersects w.  The windows are half open, so a row ending
// exactly at w.Start does not count.
func (r *AllocationRepo) ListOverlapping(ctx context.Context, restaurantID uint64, w availability.Window) ([]model.Allocation, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT a.id, a.booking_id, a.table_id, a.start_at, a.end_at, a.merge_group_id, a.idempotency_key, a.assigned_by, a.assigned_at
           FROM allocations a
           JOIN table_inventory t ON t.id = a.table_id
          WHERE t.restaurant_id = ? AND a.start_at < ? AND a.end_at > ?
          ORDER BY a.id`, restaurantID, w.End.UTC(), w.Start.UTC())
    if err != nil {
        return nil, err
    }
    return scanAllocations(rows)
}

// ListByIdempotencyKey returns allocation rows previously committed
// for the booking under the given key, used for replay detection.
func (r *AllocationRepo) ListByIdempotencyKey(ctx context.Context, bookingID uint64, key string) ([]model.Allocation, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+allocationColumns+` FROM allocations
          WHERE booking_id = ? AND idempotency_key = ? ORDER BY table_id`, bookingID, key)
    if err != nil {
        return nil, err
    }
    return scanAllocations(rows)
}

// ListByBooking returns the current allocations of one booking.
func (r *AllocationRepo) ListByBooking(ctx context.Context, bookingID uint64) ([]model.Allocation, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+allocationColumns+` FROM allocations WHERE booking_id = ? ORDER BY table_id`, bookingID)
    if err != nil {
        return nil, err
    }
    return scanAllocations(rows)
}

// InsertAllocations writes the rows and removes stale rows of the
// same booking on tables outside keepTables, all in one transaction.
// Re-assigning a booking therefore swaps its plan atomically.  The
// returned slice carries the generated ids.
func (r *AllocationRepo) InsertAllocations(ctx context.Context, rows []model.Allocation, keepTables []uint64) ([]model.Allocation, error) {
    if len(rows) == 0 {
        return nil, nil
    }
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    defer tx.Rollback()

    bookingID := rows[0].BookingID
    if len(keepTables) > 0 {
        placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keepTables)), ",")
        args := make([]interface{}, 0, len(keepTables)+1)
        args = append(args, bookingID)
        for _, tid := range keepTables {
            args = append(args, tid)
        }
        if _, err = tx.ExecContext(ctx,
            `DELETE FROM allocations WHERE booking_id = ? AND table_id NOT IN (`+placeholders+`)`,
            args...); err != nil {
            return nil, err
        }
    }

    out := make([]model.Allocation, 0, len(rows))
    for _, a := range rows {
        res, err := tx.ExecContext(ctx,
            `INSERT INTO allocations (booking_id, table_id, start_at, end_at, merge_group_id, idempotency_key, assigned_by, assigned_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
            a.BookingID, a.TableID, a.StartAt.UTC(), a.EndAt.UTC(),
            a.MergeGroupID, a.IdempotencyKey, a.AssignedBy, a.AssignedAt.UTC())
        if err != nil {
            return nil, err
        }
        id, err := res.LastInsertId()
        if err != nil {
            return nil, err
        }
        a.ID = uint64(id)
        out = append(out, a)
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    return out, nil
}
