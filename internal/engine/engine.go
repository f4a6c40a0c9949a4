// Package engine is the entry point of the assignment subsystem.  It
// loads a per booking context (window, policy flags, inventory,
// committed allocations and live holds), fingerprints it with a
// context version for optimistic concurrency, and exposes quoting
// and validation over it.  The session and commit layers both work
// against this package so every path sees the same rules.
package engine

import (
    "context"
    "errors"
    "fmt"
    "time"

    "go.uber.org/zap"

    "github.com/iliyamo/restaurant-table-reservation/internal/availability"
    "github.com/iliyamo/restaurant-table-reservation/internal/model"
    "github.com/iliyamo/restaurant-table-reservation/internal/scarcity"
    "github.com/iliyamo/restaurant-table-reservation/internal/selector"
)

// ErrBookingNotFound is returned when the booking id does not
// resolve to a booking the engine may assign tables for.
var ErrBookingNotFound = errors.New("booking not found")

// Store is the read surface the engine needs.  Lookups returning nil
// mean "absent" rather than an error.
type Store interface {
    GetBooking(ctx context.Context, id uint64) (*model.Booking, error)
    GetRestaurant(ctx context.Context, id uint64) (*model.Restaurant, error)
    ListTables(ctx context.Context, restaurantID uint64) ([]model.Table, error)
    ListAdjacency(ctx context.Context, restaurantID uint64) ([]model.Adjacency, error)
    ListAllocationsOverlapping(ctx context.Context, restaurantID uint64, w availability.Window) ([]model.Allocation, error)
    ListLiveHolds(ctx context.Context, restaurantID uint64, now time.Time) ([]model.TableHold, error)
}

// ScarcityProvider resolves the cached scarcity snapshot.  A nil
// provider is allowed; scores then default to zero.
type ScarcityProvider interface {
    SnapshotFor(ctx context.Context, restaurantID uint64) (scarcity.Snapshot, error)
}

// Config carries the selector tunables.
type Config struct {
    Weights selector.Weights
    Limits  selector.Limits
    // Dining durations by party size band, applied when a booking
    // has no end time of its own.
    SmallPartyDuration  time.Duration // parties up to 4
    MediumPartyDuration time.Duration // parties up to 8
    LargePartyDuration  time.Duration // everyone else
}

// DefaultConfig returns the stock tunables.
func DefaultConfig() Config {
    return Config{
        Weights:             selector.DefaultWeights(),
        Limits:              selector.DefaultLimits(),
        SmallPartyDuration:  90 * time.Minute,
        MediumPartyDuration: 120 * time.Minute,
        LargePartyDuration:  150 * time.Minute,
    }
}

// Context is everything known about one booking's assignment problem
// at a point in time.  Version fingerprints the parts other actors
// can change; a mutating call presenting an older version is stale.
// The booking's own live hold and allocations are not marked busy in
// the index, otherwise a session could never confirm its own plan.
type Context struct {
    Booking     *model.Booking
    Restaurant  *model.Restaurant
    Window      availability.Window
    Tables      []model.Table
    TableByID   map[uint64]*model.Table
    Adjacency   map[uint64][]uint64
    Index       *availability.Index
    Holds       []model.TableHold
    Allocations []model.Allocation
    Scarcity    map[uint64]float64
    Version     string
}

// Engine loads contexts and answers quote and validation requests.
type Engine struct {
    store    Store
    scarcity ScarcityProvider
    cfg      Config
    log      *zap.Logger
    now      func() time.Time
}

// New wires an engine.
func New(store Store, scarcityProvider ScarcityProvider, cfg Config, log *zap.Logger) *Engine {
    def := DefaultConfig()
    if cfg.Limits == (selector.Limits{}) {
        cfg.Limits = def.Limits
    }
    if cfg.Weights == (selector.Weights{}) {
        cfg.Weights = def.Weights
    }
    if cfg.SmallPartyDuration <= 0 {
        cfg.SmallPartyDuration = def.SmallPartyDuration
    }
    if cfg.MediumPartyDuration <= 0 {
        cfg.MediumPartyDuration = def.MediumPartyDuration
    }
    if cfg.LargePartyDuration <= 0 {
        cfg.LargePartyDuration = def.LargePartyDuration
    }
    return &Engine{store: store, scarcity: scarcityProvider, cfg: cfg, log: log, now: time.Now}
}

// bookingWindow derives the occupancy window.  Bookings normally
// carry both ends; legacy rows without an end time get a default
// dining duration by party size band.
func (e *Engine) bookingWindow(b *model.Booking) (availability.Window, error) {
    end := b.EndAt
    if end.IsZero() || !end.After(b.StartAt) {
        switch {
        case b.PartySize <= 4:
            end = b.StartAt.Add(e.cfg.SmallPartyDuration)
        case b.PartySize <= 8:
            end = b.StartAt.Add(e.cfg.MediumPartyDuration)
        default:
            end = b.StartAt.Add(e.cfg.LargePartyDuration)
        }
    }
    return availability.NewWindow(b.StartAt, end)
}

// LoadContext assembles the booking's assignment context.
func (e *Engine) LoadContext(ctx context.Context, bookingID uint64) (*Context, error) {
    booking, err := e.store.GetBooking(ctx, bookingID)
    if err != nil {
        return nil, fmt.Errorf("load booking: %w", err)
    }
    if booking == nil {
        return nil, fmt.Errorf("%w: id %d", ErrBookingNotFound, bookingID)
    }
    restaurant, err := e.store.GetRestaurant(ctx, booking.RestaurantID)
    if err != nil {
        return nil, fmt.Errorf("load restaurant: %w", err)
    }
    window, err := e.bookingWindow(booking)
    if err != nil {
        return nil, fmt.Errorf("derive booking window: %w", err)
    }

    tables, err := e.store.ListTables(ctx, booking.RestaurantID)
    if err != nil {
        return nil, fmt.Errorf("load tables: %w", err)
    }
    adjacencyRows, err := e.store.ListAdjacency(ctx, booking.RestaurantID)
    if err != nil {
        return nil, fmt.Errorf("load adjacency: %w", err)
    }
    allocations, err := e.store.ListAllocationsOverlapping(ctx, booking.RestaurantID, window)
    if err != nil {
        return nil, fmt.Errorf("load allocations: %w", err)
    }
    holds, err := e.store.ListLiveHolds(ctx, booking.RestaurantID, e.now().UTC())
    if err != nil {
        return nil, fmt.Errorf("load holds: %w", err)
    }

    c := &Context{
        Booking:     booking,
        Restaurant:  restaurant,
        Window:      window,
        Tables:      tables,
        TableByID:   make(map[uint64]*model.Table, len(tables)),
        Adjacency:   make(map[uint64][]uint64),
        Holds:       holds,
        Allocations: allocations,
    }
    for i := range tables {
        c.TableByID[tables[i].ID] = &tables[i]
    }
    for _, row := range adjacencyRows {
        c.Adjacency[row.TableID] = append(c.Adjacency[row.TableID], row.AdjacentID)
        c.Adjacency[row.AdjacentID] = append(c.Adjacency[row.AdjacentID], row.TableID)
    }

    dayStart := time.Date(window.Start.Year(), window.Start.Month(), window.Start.Day(), 0, 0, 0, 0, time.UTC)
    c.Index = availability.NewIndex(dayStart)
    for i := range allocations {
        if allocations[i].BookingID == booking.ID {
            continue
        }
        c.Index.MarkAllocation(&allocations[i])
    }
    for i := range holds {
        if holds[i].BookingID == booking.ID {
            continue
        }
        c.Index.MarkHold(&holds[i])
    }

    c.Scarcity = map[uint64]float64{}
    if e.scarcity != nil {
        snap, err := e.scarcity.SnapshotFor(ctx, booking.RestaurantID)
        if err != nil {
            e.log.Warn("scarcity snapshot unavailable, scoring without it",
                zap.Uint64("restaurant_id", booking.RestaurantID), zap.Error(err))
        } else {
            c.Scarcity = scarcity.ScoresByTable(snap, tables)
        }
    }

    c.Version = contextVersion(c)
    return c, nil
}

// QuoteResult is the ranked plan list plus the context version the
// caller must echo back on mutating calls.
type QuoteResult struct {
    Plans          []selector.Plan      `json:"plans"`
    Fallback       string               `json:"fallback,omitempty"`
    Diagnostics    selector.Diagnostics `json:"diagnostics"`
    ContextVersion string               `json:"context_version"`
    Window         availability.Window  `json:"window"`
}

// Quote produces ranked candidate plans for the booking.  Read only;
// "no plan" is a fallback reason, never an error.
func (e *Engine) Quote(ctx context.Context, bookingID uint64) (*QuoteResult, error) {
    c, err := e.LoadContext(ctx, bookingID)
    if err != nil {
        return nil, err
    }
    return e.QuoteWithContext(c)
}

// QuoteWithContext runs the selector over an already loaded context.
func (e *Engine) QuoteWithContext(c *Context) (*QuoteResult, error) {
    requireAdjacency := c.Restaurant != nil && c.Restaurant.RequireAdjacency
    res, err := selector.Select(selector.Input{
        PartySize:        c.Booking.PartySize,
        Window:           c.Window,
        Tables:           c.Tables,
        Adjacency:        c.Adjacency,
        Index:            c.Index,
        Scarcity:         c.Scarcity,
        RequireAdjacency: requireAdjacency,
        Weights:          e.cfg.Weights,
        Limits:           e.cfg.Limits,
    })
    if err != nil {
        return nil, err
    }
    return &QuoteResult{
        Plans:          res.Plans,
        Fallback:       res.Fallback,
        Diagnostics:    res.Diagnostics,
        ContextVersion: c.Version,
        Window:         c.Window,
    }, nil
}
