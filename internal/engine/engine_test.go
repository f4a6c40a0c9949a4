package engine

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/require"
    "go.uber.org/zap"

    "github.com/iliyamo/restaurant-table-reservation/internal/availability"
    "github.com/iliyamo/restaurant-table-reservation/internal/commit"
    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

type fakeEngineStore struct {
    bookings    map[uint64]*model.Booking
    restaurant  *model.Restaurant
    tables      []model.Table
    adjacency   []model.Adjacency
    allocations []model.Allocation
    holds       []model.TableHold
}

func (f *fakeEngineStore) GetBooking(_ context.Context, id uint64) (*model.Booking, error) {
    b, ok := f.bookings[id]
    if !ok {
        return nil, nil
    }
    cp := *b
    return &cp, nil
}

func (f *fakeEngineStore) GetRestaurant(_ context.Context, _ uint64) (*model.Restaurant, error) {
    if f.restaurant == nil {
        return nil, nil
    }
    cp := *f.restaurant
    return &cp, nil
}

func (f *fakeEngineStore) ListTables(_ context.Context, _ uint64) ([]model.Table, error) {
    return append([]model.Table(nil), f.tables...), nil
}

func (f *fakeEngineStore) ListAdjacency(_ context.Context, _ uint64) ([]model.Adjacency, error) {
    return append([]model.Adjacency(nil), f.adjacency...), nil
}

func (f *fakeEngineStore) ListAllocationsOverlapping(_ context.Context, _ uint64, w availability.Window) ([]model.Allocation, error) {
    var out []model.Allocation
    for _, a := range f.allocations {
        if a.StartAt.Before(w.End) && w.Start.Before(a.EndAt) {
            out = append(out, a)
        }
    }
    return out, nil
}

func (f *fakeEngineStore) ListLiveHolds(_ context.Context, _ uint64, now time.Time) ([]model.TableHold, error) {
    var out []model.TableHold
    for _, h := range f.holds {
        if h.ExpiresAt.After(now) {
            out = append(out, h)
        }
    }
    return out, nil
}

func baseStore() *fakeEngineStore {
    start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
    return &fakeEngineStore{
        bookings: map[uint64]*model.Booking{
            10: {
                ID:           10,
                RestaurantID: 1,
                PartySize:    4,
                StartAt:      start,
                EndAt:        start.Add(2 * time.Hour),
                Status:       model.BookingStatusConfirmed,
            },
        },
        restaurant: &model.Restaurant{ID: 1, RequireAdjacency: true},
        tables: []model.Table{
            {ID: 1, RestaurantID: 1, ZoneID: 1, Capacity: 4, IsActive: true, Status: model.TableStatusAvailable},
            {ID: 2, RestaurantID: 1, ZoneID: 1, Capacity: 2, IsActive: true, Status: model.TableStatusAvailable},
            {ID: 3, RestaurantID: 1, ZoneID: 2, Capacity: 6, IsActive: true, Status: model.TableStatusAvailable},
        },
        adjacency: []model.Adjacency{{TableID: 1, AdjacentID: 2}},
    }
}

func newTestEngine(store Store) *Engine {
    return New(store, nil, DefaultConfig(), zap.NewNop())
}

func TestLoadContextUnknownBooking(t *testing.T) {
    e := newTestEngine(baseStore())
    _, err := e.LoadContext(context.Background(), 999)
    require.ErrorIs(t, err, ErrBookingNotFound)
}

func TestBookingWindowDefaultsByPartyBand(t *testing.T) {
    store := baseStore()
    start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
    store.bookings[11] = &model.Booking{ID: 11, RestaurantID: 1, PartySize: 2, StartAt: start}
    store.bookings[12] = &model.Booking{ID: 12, RestaurantID: 1, PartySize: 6, StartAt: start}
    store.bookings[13] = &model.Booking{ID: 13, RestaurantID: 1, PartySize: 11, StartAt: start}
    e := newTestEngine(store)

    c, err := e.LoadContext(context.Background(), 11)
    require.NoError(t, err)
    require.Equal(t, 90*time.Minute, c.Window.Duration())

    c, err = e.LoadContext(context.Background(), 12)
    require.NoError(t, err)
    require.Equal(t, 2*time.Hour, c.Window.Duration())

    c, err = e.LoadContext(context.Background(), 13)
    require.NoError(t, err)
    require.Equal(t, 150*time.Minute, c.Window.Duration())
}

func TestLoadContextIgnoresOwnClaims(t *testing.T) {
    store := baseStore()
    start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
    store.holds = []model.TableHold{{
        ID:        "own-hold",
        BookingID: 10,
        TableIDs:  []uint64{1},
        StartAt:   start,
        EndAt:     start.Add(2 * time.Hour),
        ExpiresAt: time.Now().Add(time.Hour),
    }}
    e := newTestEngine(store)

    c, err := e.LoadContext(context.Background(), 10)
    require.NoError(t, err)
    require.True(t, c.Index.IsFree(1, c.Window))
}

func TestContextVersionStableAndSensitive(t *testing.T) {
    store := baseStore()
    e := newTestEngine(store)

    c1, err := e.LoadContext(context.Background(), 10)
    require.NoError(t, err)
    c2, err := e.LoadContext(context.Background(), 10)
    require.NoError(t, err)
    require.Equal(t, c1.Version, c2.Version)

    // a foreign allocation in the window must change the version
    start := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)
    store.allocations = append(store.allocations, model.Allocation{
        ID: 1, BookingID: 99, TableID: 2, StartAt: start, EndAt: start.Add(time.Hour),
    })
    c3, err := e.LoadContext(context.Background(), 10)
    require.NoError(t, err)
    require.NotEqual(t, c1.Version, c3.Version)
}

func TestContextVersionIgnoresOwnHold(t *testing.T) {
    store := baseStore()
    e := newTestEngine(store)
    before, err := e.LoadContext(context.Background(), 10)
    require.NoError(t, err)

    start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
    store.holds = append(store.holds, model.TableHold{
        ID:        "own-hold",
        BookingID: 10,
        TableIDs:  []uint64{1},
        StartAt:   start,
        EndAt:     start.Add(2 * time.Hour),
        ExpiresAt: time.Now().Add(time.Hour),
    })
    after, err := e.LoadContext(context.Background(), 10)
    require.NoError(t, err)
    require.Equal(t, before.Version, after.Version)
}

func TestQuoteRanksPlans(t *testing.T) {
    e := newTestEngine(baseStore())
    res, err := e.Quote(context.Background(), 10)
    require.NoError(t, err)
    require.Empty(t, res.Fallback)
    require.NotEmpty(t, res.Plans)
    require.Equal(t, []uint64{1}, res.Plans[0].TableIDs)
    require.NotEmpty(t, res.ContextVersion)
}

func TestValidateSelection(t *testing.T) {
    store := baseStore()
    start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
    store.holds = []model.TableHold{{
        ID:        "foreign-hold",
        BookingID: 42,
        TableIDs:  []uint64{2},
        StartAt:   start,
        EndAt:     start.Add(2 * time.Hour),
        ExpiresAt: time.Now().Add(time.Hour),
    }}
    e := newTestEngine(store)
    c, err := e.LoadContext(context.Background(), 10)
    require.NoError(t, err)

    ok := e.ValidateSelection(c, []uint64{1}, nil)
    require.True(t, ok.OK)
    require.Equal(t, "selection is valid", ok.Summary)

    held := e.ValidateSelection(c, []uint64{2}, nil)
    require.False(t, held.OK)
    require.Len(t, held.Conflicts, 1)
    require.Equal(t, "foreign-hold", held.Conflicts[0].HoldID)

    spanning := e.ValidateSelection(c, []uint64{1, 3}, nil)
    require.False(t, spanning.OK)
    var zoneFailed bool
    for _, check := range spanning.Checks {
        if check.Name == CheckZone && !check.OK {
            zoneFailed = true
        }
    }
    require.True(t, zoneFailed)

    unknown := e.ValidateSelection(c, []uint64{77}, nil)
    require.False(t, unknown.OK)

    empty := e.ValidateSelection(c, nil, nil)
    require.False(t, empty.OK)
}

func TestValidateCommitMapsToTaxonomy(t *testing.T) {
    store := baseStore()
    start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
    store.holds = []model.TableHold{{
        ID:        "foreign-hold",
        BookingID: 42,
        TableIDs:  []uint64{2},
        StartAt:   start,
        EndAt:     start.Add(2 * time.Hour),
        ExpiresAt: time.Now().Add(time.Hour),
    }}
    e := newTestEngine(store)
    w, err := availability.NewWindow(start, start.Add(2*time.Hour))
    require.NoError(t, err)

    req := commit.Request{RestaurantID: 1, BookingID: 10, Window: w}

    req.TableIDs = []uint64{1}
    require.NoError(t, e.ValidateCommit(context.Background(), req))

    req.TableIDs = []uint64{2}
    var conflictErr *commit.ConflictError
    require.ErrorAs(t, e.ValidateCommit(context.Background(), req), &conflictErr)

    req.TableIDs = []uint64{77}
    var validationErr *commit.ValidationError
    require.ErrorAs(t, e.ValidateCommit(context.Background(), req), &validationErr)
}
