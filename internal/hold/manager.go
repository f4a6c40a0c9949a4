// Package hold manages provisional TTL claims on tables.  A live
// hold blocks other holds and commits on its tables for overlapping
// windows; an expired hold blocks nothing and is reclaimed by the
// sweeper.  Expiry is enforced at read time by the store, so the
// manager never races a background purge.
package hold

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/google/uuid"
    "go.uber.org/zap"

    "github.com/iliyamo/restaurant-table-reservation/internal/availability"
    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// ErrHoldNotFound is returned when a hold id does not resolve to a
// live hold.  An expired hold is indistinguishable from a deleted
// one on purpose.
var ErrHoldNotFound = errors.New("hold not found")

// ConflictError reports the claims that block a hold request.  It is
// a typed result, not a generic failure, so callers can show the
// operator exactly which tables are taken and by whom.
type ConflictError struct {
    Conflicts []availability.BusyWindow
}

func (e *ConflictError) Error() string {
    return fmt.Sprintf("hold conflicts with %d existing claims", len(e.Conflicts))
}

// Store is the persistence the manager needs.  All lookups treat
// rows with expires_at in the past as absent.
type Store interface {
    CreateHold(ctx context.Context, h *model.TableHold) error
    GetLiveHold(ctx context.Context, id string, now time.Time) (*model.TableHold, error)
    FindLiveHoldByKey(ctx context.Context, bookingID uint64, key string, now time.Time) (*model.TableHold, error)
    DeleteHold(ctx context.Context, id string) error
    DeleteExpiredHolds(ctx context.Context, now time.Time, limit int) (int64, error)
}

// CreateRequest carries everything needed to take a hold.  The index
// must already include committed allocations and every live hold of
// the restaurant; the engine builds it per request.
type CreateRequest struct {
    RestaurantID   uint64
    BookingID      uint64
    ZoneID         uint64
    TableIDs       []uint64
    Window         availability.Window
    TTL            time.Duration
    IdempotencyKey *string
    CreatedBy      *uint64
    Index          *availability.Index
}

// Manager implements hold creation, cancellation and sweeping.
type Manager struct {
    store      Store
    defaultTTL time.Duration
    log        *zap.Logger
    now        func() time.Time
}

// NewManager wires a manager.  defaultTTL applies when a request
// leaves TTL zero.
func NewManager(store Store, defaultTTL time.Duration, log *zap.Logger) *Manager {
    if defaultTTL <= 0 {
        defaultTTL = 2 * time.Minute
    }
    return &Manager{store: store, defaultTTL: defaultTTL, log: log, now: time.Now}
}

// Create takes a hold over the requested tables.  Replaying the same
// idempotency key while the original hold is live returns that hold
// unchanged.  Conflicting claims produce a *ConflictError.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*model.TableHold, error) {
    if len(req.TableIDs) == 0 {
        return nil, fmt.Errorf("hold requires at least one table")
    }
    now := m.now().UTC()

    if req.IdempotencyKey != nil && *req.IdempotencyKey != "" {
        existing, err := m.store.FindLiveHoldByKey(ctx, req.BookingID, *req.IdempotencyKey, now)
        if err != nil {
            return nil, fmt.Errorf("idempotency lookup: %w", err)
        }
        if existing != nil {
            return existing, nil
        }
    }

    if req.Index != nil {
        if conflicts := req.Index.ConflictsFor(req.TableIDs, req.Window); len(conflicts) > 0 {
            return nil, &ConflictError{Conflicts: conflicts}
        }
    }

    ttl := req.TTL
    if ttl <= 0 {
        ttl = m.defaultTTL
    }
    h := &model.TableHold{
        ID:             uuid.NewString(),
        RestaurantID:   req.RestaurantID,
        BookingID:      req.BookingID,
        ZoneID:         req.ZoneID,
        StartAt:        req.Window.Start,
        EndAt:          req.Window.End,
        ExpiresAt:      now.Add(ttl),
        IdempotencyKey: req.IdempotencyKey,
        CreatedBy:      req.CreatedBy,
        CreatedAt:      now,
        TableIDs:       append([]uint64(nil), req.TableIDs...),
    }
    if err := m.store.CreateHold(ctx, h); err != nil {
        return nil, fmt.Errorf("create hold: %w", err)
    }
    m.log.Info("hold created",
        zap.String("hold_id", h.ID),
        zap.Uint64("booking_id", h.BookingID),
        zap.Uint64s("table_ids", h.TableIDs),
        zap.Time("expires_at", h.ExpiresAt))
    return h, nil
}

// Get resolves a live hold by id.  Expired or unknown ids return
// ErrHoldNotFound.
func (m *Manager) Get(ctx context.Context, id string) (*model.TableHold, error) {
    h, err := m.store.GetLiveHold(ctx, id, m.now().UTC())
    if err != nil {
        return nil, fmt.Errorf("get hold: %w", err)
    }
    if h == nil {
        return nil, ErrHoldNotFound
    }
    return h, nil
}

// Cancel releases a hold.  Cancelling an unknown or already expired
// hold is a no-op; the caller's intent is satisfied either way.
func (m *Manager) Cancel(ctx context.Context, id string) error {
    if err := m.store.DeleteHold(ctx, id); err != nil {
        return fmt.Errorf("cancel hold: %w", err)
    }
    return nil
}

// SweepExpired reclaims expired hold rows in bounded batches and
// returns how many were removed.  Safe to run concurrently with
// request traffic because reads already filter on expiry.
func (m *Manager) SweepExpired(ctx context.Context, batchSize int) (int64, error) {
    if batchSize <= 0 {
        batchSize = 100
    }
    var total int64
    for {
        n, err := m.store.DeleteExpiredHolds(ctx, m.now().UTC(), batchSize)
        if err != nil {
            return total, fmt.Errorf("sweep expired holds: %w", err)
        }
        total += n
        if n < int64(batchSize) {
            break
        }
    }
    if total > 0 {
        m.log.Info("expired holds swept", zap.Int64("count", total))
    }
    return total, nil
}
