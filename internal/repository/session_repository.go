package repository

import (
    "context"
    "database/sql"
    "encoding/json"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// SessionRepo persists assignment sessions.  The current selection is
// stored as a JSON array of table ids so a session survives a server
// restart with its proposal intact.
type SessionRepo struct {
    db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the provided database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// GetActiveByBooking returns the newest non-terminal session for a
// booking, or (nil, nil) when none exists.  Expiry is judged by the
// caller; a session past its deadline is still returned so the
// manager can transition it to EXPIRED.
func (r *SessionRepo) GetActiveByBooking(ctx context.Context, bookingID uint64) (*model.AssignmentSession, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT id, booking_id, restaurant_id, state, selection, selection_version, context_version,
                hold_id, hold_expired, expires_at, created_by, created_at, updated_at
           FROM assignment_sessions
          WHERE booking_id = ? AND state NOT IN (?, ?, ?)
          ORDER BY created_at DESC LIMIT 1`,
        bookingID, model.SessionConfirmed, model.SessionCancelled, model.SessionExpired)

    var s model.AssignmentSession
    var selection []byte
    err := row.Scan(&s.ID, &s.BookingID, &s.RestaurantID, &s.State, &selection,
        &s.SelectionVersion, &s.ContextVersion, &s.HoldID, &s.HoldExpired,
        &s.ExpiresAt, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, nil
        }
        return nil, err
    }
    if len(selection) > 0 {
        if err := json.Unmarshal(selection, &s.Selection); err != nil {
            return nil, err
        }
    }
    return &s, nil
}

// Create inserts a new session row.
func (r *SessionRepo) Create(ctx context.Context, s *model.AssignmentSession) error {
    selection, err := json.Marshal(s.Selection)
    if err != nil {
        return err
    }
    _, err = r.db.ExecContext(ctx,
        `INSERT INTO assignment_sessions
            (id, booking_id, restaurant_id, state, selection, selection_version, context_version,
             hold_id, hold_expired, expires_at, created_by, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
        s.ID, s.BookingID, s.RestaurantID, s.State, selection, s.SelectionVersion, s.ContextVersion,
        s.HoldID, s.HoldExpired, s.ExpiresAt.UTC(), s.CreatedBy, s.CreatedAt.UTC(), s.UpdatedAt.UTC())
    return err
}

// Update rewrites the mutable columns of an existing session.
func (r *SessionRepo) Update(ctx context.Context, s *model.AssignmentSession) error {
    selection, err := json.Marshal(s.Selection)
    if err != nil {
        return err
    }
    _, err = r.db.ExecContext(ctx,
        `UPDATE assignment_sessions
            SET state = ?, selection = ?, selection_version = ?, context_version = ?,
                hold_id = ?, hold_expired = ?, expires_at = ?, updated_at = ?
          WHERE id = ?`,
        s.State, selection, s.SelectionVersion, s.ContextVersion,
        s.HoldID, s.HoldExpired, s.ExpiresAt.UTC(), s.UpdatedAt.UTC(), s.ID)
    return err
}
