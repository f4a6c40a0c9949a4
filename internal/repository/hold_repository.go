package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/go-sql-driver/mysql"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// HoldRepo persists table holds and their member rows.  A hold is a
// short lived soft lock: a parent row in `table_holds` plus one
// `table_hold_members` row per covered table.  Every read treats a
// row whose expires_at has passed as absent, so a crashed sweeper
// never resurrects expired holds.
type HoldRepo struct {
    db *sql.DB
}

// NewHoldRepo returns a new HoldRepo bound to the provided database.
func NewHoldRepo(db *sql.DB) *HoldRepo { return &HoldRepo{db: db} }

// CreateHold inserts the hold and its member rows in one transaction.
// The caller has already checked availability; the unique key on
// (hold_id, table_id) only guards against duplicate members.
func (r *HoldRepo) CreateHold(ctx context.Context, h *model.TableHold) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    defer tx.Rollback()

    _, err = tx.ExecContext(ctx,
        `INSERT INTO table_holds (id, restaurant_id, booking_id, zone_id, start_at, end_at, expires_at, idempotency_key, created_by, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
        h.ID, h.RestaurantID, h.BookingID, h.ZoneID,
        h.StartAt.UTC(), h.EndAt.UTC(), h.ExpiresAt.UTC(),
        h.IdempotencyKey, h.CreatedBy, h.CreatedAt.UTC())
    if err != nil {
        var me *mysql.MySQLError
        if errors.As(err, &me) && me.Number == 1062 {
            return ErrConflict
        }
        return err
    }
    for _, tid := range h.TableIDs {
        if _, err = tx.ExecContext(ctx,
            `INSERT INTO table_hold_members (hold_id, table_id) VALUES (?, ?)`,
            h.ID, tid); err != nil {
            return err
        }
    }
    return tx.Commit()
}

// GetLiveHold fetches one hold by id when it has not expired at the
// given instant.  It returns (nil, nil) for unknown or expired ids.
func (r *HoldRepo) GetLiveHold(ctx context.Context, id string, now time.Time) (*model.TableHold, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT id, restaurant_id, booking_id, zone_id, start_at, end_at, expires_at, idempotency_key, created_by, created_at
           FROM table_holds WHERE id = ? AND expires_at > ?`, id, now.UTC())
    return r.scanHold(ctx, row)
}

// FindLiveHoldByKey resolves a live hold by its idempotency key
// within one booking, or (nil, nil) when no live match exists.
func (r *HoldRepo) FindLiveHoldByKey(ctx context.Context, bookingID uint64, key string, now time.Time) (*model.TableHold, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT id, restaurant_id, booking_id, zone_id, start_at, end_at, expires_at, idempotency_key, created_by, created_at
           FROM table_holds WHERE booking_id = ? AND idempotency_key = ? AND expires_at > ?`,
        bookingID, key, now.UTC())
    return r.scanHold(ctx, row)
}

// scanHold reads one hold row and joins in its member table ids.
func (r *HoldRepo) scanHold(ctx context.Context, row *sql.Row) (*model.TableHold, error) {
    var h model.TableHold
    err := row.Scan(&h.ID, &h.RestaurantID, &h.BookingID, &h.ZoneID,
        &h.StartAt, &h.EndAt, &h.ExpiresAt, &h.IdempotencyKey, &h.CreatedBy, &h.CreatedAt)
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, nil
        }
        return nil, err
    }
    rows, err := r.db.QueryContext(ctx,
        `SELECT table_id FROM table_hold_members WHERE hold_id = ? ORDER BY table_id`, h.ID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        var tid uint64
        if err := rows.Scan(&tid); err != nil {
            return nil, err
        }
        h.TableIDs = append(h.TableIDs, tid)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return &h, nil
}

// ListLiveHolds returns every unexpired hold of a restaurant with
// member tables attached.  The engine marks them all on the
// availability index before quoting.
func (r *HoldRepo) ListLiveHolds(ctx context.Context, restaurantID uint64, now time.Time) ([]model.TableHold, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT h.id, h.restaurant_id, h.booking_id, h.zone_id, h.start_at, h.end_at, h.expires_at, h.idempotency_key, h.created_by, h.created_at, m.table_id
           FROM table_holds h
           JOIN table_hold_members m ON m.hold_id = h.id
          WHERE h.restaurant_id = ? AND h.expires_at > ?
          ORDER BY h.id, m.table_id`, restaurantID, now.UTC())
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []model.TableHold
    index := make(map[string]int)
    for rows.Next() {
        var h model.TableHold
        var tid uint64
        if err := rows.Scan(&h.ID, &h.RestaurantID, &h.BookingID, &h.ZoneID,
            &h.StartAt, &h.EndAt, &h.ExpiresAt, &h.IdempotencyKey, &h.CreatedBy, &h.CreatedAt, &tid); err != nil {
            return nil, err
        }
        if i, ok := index[h.ID]; ok {
            out[i].TableIDs = append(out[i].TableIDs, tid)
            continue
        }
        h.TableIDs = []uint64{tid}
        index[h.ID] = len(out)
        out = append(out, h)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// DeleteHold removes a hold and, via the foreign key cascade, its
// member rows.  Deleting an unknown id is a no-op.
func (r *HoldRepo) DeleteHold(ctx context.Context, id string) error {
    _, err := r.db.ExecContext(ctx, `DELETE FROM table_holds WHERE id = ?`, id)
    return err
}

// DeleteExpiredHolds removes up to limit expired holds and reports
// how many it deleted.  The sweeper loops until a batch comes back
// short.
func (r *HoldRepo) DeleteExpiredHolds(ctx context.Context, now time.Time, limit int) (int64, error) {
    res, err := r.db.ExecContext(ctx,
        `DELETE FROM table_holds WHERE expires_at <= ? LIMIT ?`, now.UTC(), limit)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}
