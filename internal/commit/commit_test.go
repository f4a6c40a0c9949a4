package commit

import (
    "context"
    "errors"
    "fmt"
    "testing"
    "time"

    "github.com/go-sql-driver/mysql"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"

    "github.com/iliyamo/restaurant-table-reservation/internal/availability"
    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

func sqlState(s string) [5]byte {
    var out [5]byte
    copy(out[:], s)
    return out
}

func TestClassifyMySQLError(t *testing.T) {
    cases := []struct {
        name string
        err  error
        want interface{}
    }{
        {
            name: "duplicate entry is conflict",
            err:  &mysql.MySQLError{Number: 1062, SQLState: sqlState("23000"), Message: "Duplicate entry"},
            want: &ConflictError{},
        },
        {
            name: "signal 45001 is conflict",
            err:  &mysql.MySQLError{Number: 1644, SQLState: sqlState("45001"), Message: "overlapping allocation"},
            want: &ConflictError{},
        },
        {
            name: "signal 45002 is validation",
            err:  &mysql.MySQLError{Number: 1644, SQLState: sqlState("45002"), Message: "tables not adjacent"},
            want: &ValidationError{},
        },
        {
            name: "missing procedure is repository",
            err:  &mysql.MySQLError{Number: 1305, SQLState: sqlState("42000"), Message: "PROCEDURE does not exist"},
            want: &RepositoryError{},
        },
        {
            name: "missing table is repository",
            err:  &mysql.MySQLError{Number: 1146, SQLState: sqlState("42S02"), Message: "Table doesn't exist"},
            want: &RepositoryError{},
        },
        {
            name: "plain error is repository",
            err:  errors.New("connection refused"),
            want: &RepositoryError{},
        },
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            got := classifyMySQLError(tc.err)
            switch tc.want.(type) {
            case *ConflictError:
                var e *ConflictError
                require.ErrorAs(t, got, &e)
            case *ValidationError:
                var e *ValidationError
                require.ErrorAs(t, got, &e)
            case *RepositoryError:
                var e *RepositoryError
                require.ErrorAs(t, got, &e)
            }
        })
    }
}

func TestClassifyMarksProcedureMissing(t *testing.T) {
    got := classifyMySQLError(&mysql.MySQLError{Number: 1305, SQLState: sqlState("42000"), Message: "missing"})
    var repoErr *RepositoryError
    require.ErrorAs(t, got, &repoErr)
    require.True(t, repoErr.ProcedureMissing)

    got = classifyMySQLError(errors.New("boom"))
    require.ErrorAs(t, got, &repoErr)
    require.False(t, repoErr.ProcedureMissing)
}

type fakeStrategy struct {
    name  string
    res   *Result
    err   error
    calls int
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Commit(_ context.Context, _ Request) (*Result, error) {
    f.calls++
    if f.err != nil {
        return nil, f.err
    }
    return f.res, nil
}

type fakeEnqueuer struct {
    events []string
    err    error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, eventType string, _, _ uint64, _ string, _ interface{}) error {
    f.events = append(f.events, eventType)
    return f.err
}

func commitRequest(t *testing.T) Request {
    w, err := availability.NewWindow(
        time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
        time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC),
    )
    require.NoError(t, err)
    return Request{
        RestaurantID:   1,
        BookingID:      10,
        TableIDs:       []uint64{1, 2},
        Window:         w,
        IdempotencyKey: "key-1",
    }
}

func TestOrchestratorPublishesCommitEvent(t *testing.T) {
    st := &fakeStrategy{name: "atomic_procedure", res: &Result{
        Assignments: []model.Allocation{{BookingID: 10, TableID: 1}, {BookingID: 10, TableID: 2}},
    }}
    outbox := &fakeEnqueuer{}
    o := NewOrchestrator(st, nil, outbox, zap.NewNop())

    res, err := o.Commit(context.Background(), commitRequest(t))
    require.NoError(t, err)
    require.Len(t, res.Assignments, 2)
    require.Equal(t, []string{model.EventAssignmentCommitted}, outbox.events)
}

func TestOrchestratorDowngradesOnceOnMissingProcedure(t *testing.T) {
    atomic := &fakeStrategy{
        name: "atomic_procedure",
        err:  &RepositoryError{Message: "missing", ProcedureMissing: true},
    }
    direct := &fakeStrategy{name: "direct_insert", res: &Result{
        Assignments:  []model.Allocation{{BookingID: 10, TableID: 1}},
        FallbackUsed: true,
    }}
    outbox := &fakeEnqueuer{}
    o := NewOrchestrator(atomic, direct, outbox, zap.NewNop())

    res, err := o.Commit(context.Background(), commitRequest(t))
    require.NoError(t, err)
    require.True(t, res.FallbackUsed)
    require.Equal(t, 1, atomic.calls)
    require.Equal(t, 1, direct.calls)
    require.Equal(t, []string{model.EventAssignmentCommitted, model.EventAssignmentFallback}, outbox.events)

    // next commit goes straight to the downgraded strategy
    _, err = o.Commit(context.Background(), commitRequest(t))
    require.NoError(t, err)
    require.Equal(t, 1, atomic.calls)
    require.Equal(t, 2, direct.calls)
}

func TestOrchestratorPassesThroughTypedErrors(t *testing.T) {
    direct := &fakeStrategy{name: "direct_insert"}
    for _, failure := range []error{
        &ConflictError{Message: "table taken"},
        &ValidationError{Message: "not adjacent"},
        &RepositoryError{Message: "db down"},
    } {
        st := &fakeStrategy{name: "atomic_procedure", err: failure}
        o := NewOrchestrator(st, direct, &fakeEnqueuer{}, zap.NewNop())
        _, err := o.Commit(context.Background(), commitRequest(t))
        require.ErrorIs(t, err, failure)
    }
    require.Zero(t, direct.calls)
}

type fakeDirectStore struct {
    existing map[string][]model.Allocation
    inserted []model.Allocation
    keep     []uint64
    insertErr error
}

func (f *fakeDirectStore) ListByIdempotencyKey(_ context.Context, bookingID uint64, key string) ([]model.Allocation, error) {
    return f.existing[fmt.Sprintf("%d:%s", bookingID, key)], nil
}

func (f *fakeDirectStore) InsertAllocations(_ context.Context, rows []model.Allocation, keepTables []uint64) ([]model.Allocation, error) {
    if f.insertErr != nil {
        return nil, f.insertErr
    }
    f.inserted = rows
    f.keep = keepTables
    out := make([]model.Allocation, len(rows))
    copy(out, rows)
    for i := range out {
        out[i].ID = uint64(i + 1)
    }
    return out, nil
}

type allowAllValidator struct{ err error }

func (v *allowAllValidator) ValidateCommit(_ context.Context, _ Request) error { return v.err }

func TestDirectInsertCommit(t *testing.T) {
    store := &fakeDirectStore{existing: make(map[string][]model.Allocation)}
    s := NewDirectInsert(store, &allowAllValidator{}, zap.NewNop())

    res, err := s.Commit(context.Background(), commitRequest(t))
    require.NoError(t, err)
    require.True(t, res.FallbackUsed)
    require.Len(t, res.Assignments, 2)
    require.NotNil(t, res.MergeGroupID)
    require.Equal(t, []uint64{1, 2}, store.keep)
    for _, a := range res.Assignments {
        require.Equal(t, "key-1", *a.IdempotencyKey)
        require.Equal(t, res.MergeGroupID, a.MergeGroupID)
    }
}

func TestDirectInsertIdempotentReplay(t *testing.T) {
    mg := "merge-1"
    store := &fakeDirectStore{existing: map[string][]model.Allocation{
        "10:key-1": {
            {ID: 5, BookingID: 10, TableID: 1, MergeGroupID: &mg},
            {ID: 6, BookingID: 10, TableID: 2, MergeGroupID: &mg},
        },
    }}
    s := NewDirectInsert(store, &allowAllValidator{}, zap.NewNop())

    res, err := s.Commit(context.Background(), commitRequest(t))
    require.NoError(t, err)
    require.Len(t, res.Assignments, 2)
    require.Equal(t, uint64(5), res.Assignments[0].ID)
    require.Equal(t, &mg, res.MergeGroupID)
    require.Empty(t, store.inserted)
}

func TestDirectInsertValidationShortCircuits(t *testing.T) {
    store := &fakeDirectStore{existing: make(map[string][]model.Allocation)}
    s := NewDirectInsert(store, &allowAllValidator{err: &ValidationError{Message: "zone mismatch"}}, zap.NewNop())

    _, err := s.Commit(context.Background(), commitRequest(t))
    var vErr *ValidationError
    require.ErrorAs(t, err, &vErr)
    require.Empty(t, store.inserted)
}

func TestDirectInsertDuplicateRaceIsConflict(t *testing.T) {
    store := &fakeDirectStore{
        existing:  make(map[string][]model.Allocation),
        insertErr: &mysql.MySQLError{Number: 1062, SQLState: sqlState("23000"), Message: "Duplicate entry"},
    }
    s := NewDirectInsert(store, &allowAllValidator{}, zap.NewNop())

    _, err := s.Commit(context.Background(), commitRequest(t))
    var cErr *ConflictError
    require.ErrorAs(t, err, &cErr)
}
