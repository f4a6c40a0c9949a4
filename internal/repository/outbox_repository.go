package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/go-sql-driver/mysql"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
    "github.com/iliyamo/restaurant-table-reservation/internal/outbox"
)

// OutboxRepo persists outbox events.  The unique key on dedupe_key
// makes enqueueing idempotent; a duplicate insert is reported as
// outbox.ErrDuplicateEvent, which the queue treats as success.
type OutboxRepo struct {
    db *sql.DB
}

// NewOutboxRepo returns a new OutboxRepo bound to the provided database.
func NewOutboxRepo(db *sql.DB) *OutboxRepo { return &OutboxRepo{db: db} }

// InsertEvent enqueues a new event.  The row starts pending and due
// immediately.
func (r *OutboxRepo) InsertEvent(ctx context.Context, e *model.OutboxEvent) error {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO outbox_events
            (event_type, restaurant_id, booking_id, dedupe_key, payload, status, attempt_count, next_attempt_at, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
        e.EventType, e.RestaurantID, e.BookingID, e.DedupeKey, []byte(e.Payload),
        e.Status, e.AttemptCount, e.NextAttemptAt.UTC(), e.CreatedAt.UTC())
    if err != nil {
        var me *mysql.MySQLError
        if errors.As(err, &me) && me.Number == 1062 {
            return outbox.ErrDuplicateEvent
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    e.ID = uint64(id)
    return nil
}

// DueBatch returns up to limit events that are due at the given
// instant.  Processing rows come back too so that events orphaned by
// a crashed worker are retried once their next_attempt_at passes.
func (r *OutboxRepo) DueBatch(ctx context.Context, now time.Time, limit int) ([]model.OutboxEvent, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, event_type, restaurant_id, booking_id, dedupe_key, payload,
                status, attempt_count, next_attempt_at, last_error, created_at
           FROM outbox_events
          WHERE status IN (?, ?) AND next_attempt_at <= ?
          ORDER BY status, next_attempt_at, created_at
          LIMIT ?`,
        model.OutboxStatusPending, model.OutboxStatusProcessing, now.UTC(), limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []model.OutboxEvent
    for rows.Next() {
        var e model.OutboxEvent
        var payload []byte
        if err := rows.Scan(&e.ID, &e.EventType, &e.RestaurantID, &e.BookingID, &e.DedupeKey,
            &payload, &e.Status, &e.AttemptCount, &e.NextAttemptAt, &e.LastError, &e.CreatedAt); err != nil {
            return nil, err
        }
        e.Payload = payload
        out = append(out, e)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// MarkProcessing flags an event as picked up by a worker.
func (r *OutboxRepo) MarkProcessing(ctx context.Context, id uint64) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE outbox_events SET status = ? WHERE id = ?`,
        model.OutboxStatusProcessing, id)
    return err
}

// MarkDone flags an event as delivered.
func (r *OutboxRepo) MarkDone(ctx context.Context, id uint64) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE outbox_events SET status = ?, last_error = NULL WHERE id = ?`,
        model.OutboxStatusDone, id)
    return err
}

// MarkFailed records a failed attempt and schedules the next one.
func (r *OutboxRepo) MarkFailed(ctx context.Context, id uint64, attempts int, nextAttemptAt time.Time, lastError string) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE outbox_events SET status = ?, attempt_count = ?, next_attempt_at = ?, last_error = ? WHERE id = ?`,
        model.OutboxStatusPending, attempts, nextAttemptAt.UTC(), lastError, id)
    return err
}

// MarkDead parks an event after its attempts are exhausted.  Dead
// rows are never picked up again; they exist for operators.
func (r *OutboxRepo) MarkDead(ctx context.Context, id uint64, attempts int, lastError string) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE outbox_events SET status = ?, attempt_count = ?, last_error = ? WHERE id = ?`,
        model.OutboxStatusDead, attempts, lastError, id)
    return err
}
