package session

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/google/uuid"
    "go.uber.org/zap"

    "github.com/iliyamo/restaurant-table-reservation/internal/commit"
    "github.com/iliyamo/restaurant-table-reservation/internal/engine"
    "github.com/iliyamo/restaurant-table-reservation/internal/hold"
    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// Selection modes accepted by Select.
const (
    ModePropose = "propose"
    ModeHold    = "hold"
)

// Store persists sessions.  GetActiveByBooking returns the newest
// non-terminal session for a booking, or nil.
type Store interface {
    GetActiveByBooking(ctx context.Context, bookingID uint64) (*model.AssignmentSession, error)
    Create(ctx context.Context, s *model.AssignmentSession) error
    Update(ctx context.Context, s *model.AssignmentSession) error
}

// Config holds the session tunables.
type Config struct {
    Enabled    bool
    SessionTTL time.Duration
    HoldTTL    time.Duration
}

// DefaultConfig enables sessions with a 30 minute session timeout
// and the hold manager's own default TTL.
func DefaultConfig() Config {
    return Config{Enabled: true, SessionTTL: 30 * time.Minute}
}

// Manager drives the session state machine.  It composes the engine
// (context loading and validation), the hold manager and the commit
// orchestrator; it never touches allocation state directly.
type Manager struct {
    store  Store
    engine *engine.Engine
    holds  *hold.Manager
    commit *commit.Orchestrator
    cfg    Config
    log    *zap.Logger
    now    func() time.Time
}

// NewManager wires a session manager.
func NewManager(store Store, eng *engine.Engine, holds *hold.Manager, orchestrator *commit.Orchestrator, cfg Config, log *zap.Logger) *Manager {
    if cfg.SessionTTL <= 0 {
        cfg.SessionTTL = 30 * time.Minute
    }
    return &Manager{store: store, engine: eng, holds: holds, commit: orchestrator, cfg: cfg, log: log, now: time.Now}
}

// View is a session plus the context the operator should work
// against next.
type View struct {
    Session        *model.AssignmentSession `json:"session"`
    ContextVersion string                   `json:"context_version"`
}

// SelectionRequest mutates a session's chosen table set.
type SelectionRequest struct {
    BookingID        uint64
    TableIDs         []uint64
    Mode             string
    ContextVersion   string
    SelectionVersion uint64
    IdempotencyKey   *string
    UserID           uint64
}

// SelectionResult reports the outcome.  When the selection failed
// validation the session is unchanged and Validation carries the
// failing checks; that is a normal result, not an error.
type SelectionResult struct {
    Session    *model.AssignmentSession `json:"session"`
    Validation *engine.ValidationResult `json:"validation"`
    Hold       *model.TableHold         `json:"hold,omitempty"`
}

// ConfirmRequest finalises a held selection.
type ConfirmRequest struct {
    BookingID        uint64
    HoldID           string
    IdempotencyKey   string
    ContextVersion   string
    SelectionVersion uint64
    UserID           uint64
}

// ConfirmResult is the committed assignment.
type ConfirmResult struct {
    Session      *model.AssignmentSession `json:"session"`
    Assignments  []model.Allocation       `json:"assignments"`
    MergeGroupID *string                  `json:"merge_group_id,omitempty"`
}

// GetOrCreate returns the booking's live session, creating one in
// Draft when none exists.  Loading refreshes the session from its
// hold and from the clock, so callers always see the true state.
func (m *Manager) GetOrCreate(ctx context.Context, bookingID, userID uint64) (*View, error) {
    if !m.cfg.Enabled {
        return nil, ErrSessionDisabled
    }
    c, err := m.engine.LoadContext(ctx, bookingID)
    if err != nil {
        return nil, err
    }
    s, err := m.loadActive(ctx, bookingID)
    if err != nil && !errors.Is(err, ErrSessionNotFound) {
        return nil, err
    }
    if s == nil {
        now := m.now().UTC()
        s = &model.AssignmentSession{
            ID:               uuid.NewString(),
            BookingID:        bookingID,
            RestaurantID:     c.Booking.RestaurantID,
            State:            model.SessionDraft,
            SelectionVersion: 0,
            ContextVersion:   c.Version,
            ExpiresAt:        now.Add(m.cfg.SessionTTL),
            CreatedBy:        userID,
            CreatedAt:        now,
            UpdatedAt:        now,
        }
        if err := m.store.Create(ctx, s); err != nil {
            return nil, fmt.Errorf("create session: %w", err)
        }
        m.log.Info("assignment session opened",
            zap.String("session_id", s.ID), zap.Uint64("booking_id", bookingID))
    }
    return &View{Session: s, ContextVersion: c.Version}, nil
}

// loadActive fetches the booking's session, expiring it when its TTL
// has passed and downgrading Held sessions whose hold lapsed.
func (m *Manager) loadActive(ctx context.Context, bookingID uint64) (*model.AssignmentSession, error) {
    s, err := m.store.GetActiveByBooking(ctx, bookingID)
    if err != nil {
        return nil, fmt.Errorf("load session: %w", err)
    }
    if s == nil {
        return nil, ErrSessionNotFound
    }
    now := m.now().UTC()
    if !s.State.Terminal() && !s.ExpiresAt.After(now) {
        s.State = model.SessionExpired
        s.UpdatedAt = now
        if s.HoldID != nil {
            if err := m.holds.Cancel(ctx, *s.HoldID); err != nil {
                m.log.Warn("cancel hold of expired session failed", zap.String("hold_id", *s.HoldID), zap.Error(err))
            }
            s.HoldID = nil
        }
        if err := m.store.Update(ctx, s); err != nil {
            return nil, fmt.Errorf("expire session: %w", err)
        }
        return nil, ErrSessionNotFound
    }
    if err := m.refreshFromHold(ctx, s); err != nil {
        return nil, err
    }
    return s, nil
}

// refreshFromHold checks a Held session's hold.  A lapsed or missing
// hold drops the session back to Proposed with HoldExpired set, so
// the operator is told to re-hold instead of confirm failing
// mysteriously later.
func (m *Manager) refreshFromHold(ctx context.Context, s *model.AssignmentSession) error {
    if s.State != model.SessionHeld || s.HoldID == nil {
        return nil
    }
    _, err := m.holds.Get(ctx, *s.HoldID)
    if err == nil {
        return nil
    }
    if !errors.Is(err, hold.ErrHoldNotFound) {
        return err
    }
    m.log.Info("hold lapsed under session, reverting to proposed",
        zap.String("session_id", s.ID), zap.String("hold_id", *s.HoldID))
    s.State = model.SessionProposed
    s.HoldID = nil
    s.HoldExpired = true
    s.SelectionVersion++
    s.UpdatedAt = m.now().UTC()
    if err := m.store.Update(ctx, s); err != nil {
        return fmt.Errorf("update session after hold expiry: %w", err)
    }
    return nil
}

// Select applies a propose or hold request to the session.
func (m *Manager) Select(ctx context.Context, req SelectionRequest) (*SelectionResult, error) {
    if !m.cfg.Enabled {
        return nil, ErrSessionDisabled
    }
    if req.Mode != ModePropose && req.Mode != ModeHold {
        return nil, &InputError{Message: fmt.Sprintf("unknown mode %q", req.Mode)}
    }
    if len(req.TableIDs) == 0 {
        return nil, &InputError{Message: "selection requires at least one table"}
    }

    s, err := m.loadActive(ctx, req.BookingID)
    if err != nil {
        return nil, err
    }
    if s.State.Terminal() {
        return nil, &InputError{Message: fmt.Sprintf("session is %s", s.State)}
    }

    c, err := m.engine.LoadContext(ctx, req.BookingID)
    if err != nil {
        return nil, err
    }
    if req.ContextVersion != c.Version {
        return nil, &StaleContextError{Expected: c.Version, Provided: req.ContextVersion}
    }
    if req.SelectionVersion != s.SelectionVersion {
        return nil, &StaleSelectionError{Expected: s.SelectionVersion, Provided: req.SelectionVersion}
    }

    validation := m.engine.ValidateSelection(c, req.TableIDs, nil)
    if !validation.OK {
        // selection stays as it was; the caller gets the failing
        // checks and decides what to do
        return &SelectionResult{Session: s, Validation: validation}, nil
    }

    // a new selection supersedes any previous hold
    if s.HoldID != nil {
        if err := m.holds.Cancel(ctx, *s.HoldID); err != nil {
            m.log.Warn("cancel superseded hold failed", zap.String("hold_id", *s.HoldID), zap.Error(err))
        }
        s.HoldID = nil
    }

    res := &SelectionResult{Validation: validation}
    if req.Mode == ModeHold {
        zoneID := uint64(0)
        if t, ok := c.TableByID[req.TableIDs[0]]; ok {
            zoneID = t.ZoneID
        }
        h, err := m.holds.Create(ctx, hold.CreateRequest{
            RestaurantID:   c.Booking.RestaurantID,
            BookingID:      req.BookingID,
            ZoneID:         zoneID,
            TableIDs:       req.TableIDs,
            Window:         c.Window,
            TTL:            m.cfg.HoldTTL,
            IdempotencyKey: req.IdempotencyKey,
            CreatedBy:      &req.UserID,
            Index:          c.Index,
        })
        if err != nil {
            var conflict *hold.ConflictError
            if errors.As(err, &conflict) {
                return nil, &ConflictError{Conflicts: conflict.Conflicts}
            }
            return nil, err
        }
        s.State = model.SessionHeld
        s.HoldID = &h.ID
        s.HoldExpired = false
        res.Hold = h
    } else {
        s.State = model.SessionProposed
        s.HoldExpired = false
    }

    s.Selection = append([]uint64(nil), req.TableIDs...)
    s.SelectionVersion++
    s.ContextVersion = c.Version
    s.UpdatedAt = m.now().UTC()
    if err := m.store.Update(ctx, s); err != nil {
        return nil, fmt.Errorf("update session: %w", err)
    }
    res.Session = s
    return res, nil
}

// Confirm commits a held selection.  Re-confirming an already
// confirmed session with the same idempotency key replays the
// original result.
func (m *Manager) Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
    if !m.cfg.Enabled {
        return nil, ErrSessionDisabled
    }
    if req.IdempotencyKey == "" {
        return nil, &InputError{Message: "confirm requires an idempotency key"}
    }

    s, err := m.loadActive(ctx, req.BookingID)
    if err != nil {
        return nil, err
    }

    c, err := m.engine.LoadContext(ctx, req.BookingID)
    if err != nil {
        return nil, err
    }

    if s.State == model.SessionConfirmed {
        // idempotent replay through the strategy layer; the hold is
        // long gone but the allocations are durable
        return m.runCommit(ctx, s, c, req)
    }

    if s.State != model.SessionHeld || s.HoldID == nil {
        return nil, hold.ErrHoldNotFound
    }
    if *s.HoldID != req.HoldID {
        return nil, &InputError{Message: "hold id does not belong to this session"}
    }
    if _, err := m.holds.Get(ctx, req.HoldID); err != nil {
        return nil, err
    }
    if req.ContextVersion != c.Version {
        return nil, &StaleContextError{Expected: c.Version, Provided: req.ContextVersion}
    }
    if req.SelectionVersion != s.SelectionVersion {
        return nil, &StaleSelectionError{Expected: s.SelectionVersion, Provided: req.SelectionVersion}
    }

    res, err := m.runCommit(ctx, s, c, req)
    if err != nil {
        return nil, err
    }

    if err := m.holds.Cancel(ctx, req.HoldID); err != nil {
        m.log.Warn("release hold after confirm failed", zap.String("hold_id", req.HoldID), zap.Error(err))
    }
    s.State = model.SessionConfirmed
    s.HoldID = nil
    s.UpdatedAt = m.now().UTC()
    if err := m.store.Update(ctx, s); err != nil {
        return nil, fmt.Errorf("update session: %w", err)
    }
    res.Session = s
    m.log.Info("assignment confirmed",
        zap.String("session_id", s.ID),
        zap.Uint64("booking_id", s.BookingID),
        zap.Uint64s("table_ids", s.Selection))
    return res, nil
}

func (m *Manager) runCommit(ctx context.Context, s *model.AssignmentSession, c *engine.Context, req ConfirmRequest) (*ConfirmResult, error) {
    requireAdjacency := c.Restaurant != nil && c.Restaurant.RequireAdjacency
    out, err := m.commit.Commit(ctx, commit.Request{
        RestaurantID:     s.RestaurantID,
        BookingID:        s.BookingID,
        TableIDs:         s.Selection,
        Window:           c.Window,
        IdempotencyKey:   req.IdempotencyKey,
        RequireAdjacency: requireAdjacency,
        Source:           "manual",
        AssignedBy:       &req.UserID,
    })
    if err != nil {
        return nil, err
    }
    return &ConfirmResult{Session: s, Assignments: out.Assignments, MergeGroupID: out.MergeGroupID}, nil
}

// Cancel terminates the booking's session and releases its hold.
func (m *Manager) Cancel(ctx context.Context, bookingID uint64) (*model.AssignmentSession, error) {
    if !m.cfg.Enabled {
        return nil, ErrSessionDisabled
    }
    s, err := m.loadActive(ctx, bookingID)
    if err != nil {
        return nil, err
    }
    if s.State == model.SessionConfirmed {
        return nil, &InputError{Message: "session is already confirmed"}
    }
    if s.HoldID != nil {
        if err := m.holds.Cancel(ctx, *s.HoldID); err != nil {
            m.log.Warn("cancel hold failed", zap.String("hold_id", *s.HoldID), zap.Error(err))
        }
        s.HoldID = nil
    }
    s.State = model.SessionCancelled
    s.UpdatedAt = m.now().UTC()
    if err := m.store.Update(ctx, s); err != nil {
        return nil, fmt.Errorf("update session: %w", err)
    }
    m.log.Info("assignment session cancelled",
        zap.String("session_id", s.ID), zap.Uint64("booking_id", bookingID))
    return s, nil
}
