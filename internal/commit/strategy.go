package commit

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/go-sql-driver/mysql"
    "github.com/google/uuid"
    "go.uber.org/zap"

    "github.com/iliyamo/restaurant-table-reservation/internal/availability"
    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// Request is one commit attempt.  TableIDs is the full, final table
// set for the booking; tables the booking held before that are not in
// the set are released as part of the commit.
type Request struct {
    RestaurantID     uint64
    BookingID        uint64
    TableIDs         []uint64
    Window           availability.Window
    IdempotencyKey   string
    RequireAdjacency bool
    Source           string
    AssignedBy       *uint64
}

// Result is a successful commit.  MergeGroupID is set when the plan
// spans more than one table.  FallbackUsed marks results produced by
// the direct strategy so reconciliation can find them later.
type Result struct {
    Assignments  []model.Allocation
    MergeGroupID *string
    FallbackUsed bool
}

// Strategy is one way of making an assignment durable.  Chosen at
// startup, not branched per call.
type Strategy interface {
    Name() string
    Commit(ctx context.Context, req Request) (*Result, error)
}

// MySQL error numbers the classifier cares about.
const (
    mysqlDupEntry         = 1062 // ER_DUP_ENTRY
    mysqlSignalException  = 1644 // ER_SIGNAL_EXCEPTION (SIGNAL SQLSTATE '45xxx')
    mysqlProcMissing      = 1305 // ER_SP_DOES_NOT_EXIST
    mysqlTableMissing     = 1146 // ER_NO_SUCH_TABLE
    sqlStateConflict      = "45001"
    sqlStateValidation    = "45002"
)

// classifyMySQLError maps a driver error onto the commit taxonomy.
// The stored procedure SIGNALs 45001 for overlap conflicts and 45002
// for validation failures; everything unrecognised is infrastructure.
func classifyMySQLError(err error) error {
    var myErr *mysql.MySQLError
    if !errors.As(err, &myErr) {
        return &RepositoryError{Message: "commit failed", Cause: err}
    }
    state := string(myErr.SQLState[:])
    switch {
    case myErr.Number == mysqlDupEntry:
        return &ConflictError{Message: myErr.Message}
    case myErr.Number == mysqlSignalException && state == sqlStateConflict:
        return &ConflictError{Message: myErr.Message}
    case myErr.Number == mysqlSignalException && state == sqlStateValidation:
        return &ValidationError{Message: myErr.Message}
    case myErr.Number == mysqlProcMissing || myErr.Number == mysqlTableMissing:
        return &RepositoryError{Message: "atomic procedure unavailable", ProcedureMissing: true, Cause: err}
    default:
        return &RepositoryError{Message: "commit failed", Cause: err}
    }
}

// AtomicProcedure commits through the assign_tables_atomic stored
// procedure.  The procedure runs overlap, adjacency and idempotency
// checks and the inserts inside one transaction and returns the
// resulting allocation rows.
type AtomicProcedure struct {
    db  *sql.DB
    log *zap.Logger
}

// NewAtomicProcedure builds the default strategy.
func NewAtomicProcedure(db *sql.DB, log *zap.Logger) *AtomicProcedure {
    return &AtomicProcedure{db: db, log: log}
}

// Name identifies the strategy in logs and telemetry.
func (s *AtomicProcedure) Name() string { return "atomic_procedure" }

// Commit executes the procedure and scans the returned rows.
func (s *AtomicProcedure) Commit(ctx context.Context, req Request) (*Result, error) {
    mergeGroup := ""
    if len(req.TableIDs) > 1 {
        mergeGroup = uuid.NewString()
    }
    ids := make([]string, len(req.TableIDs))
    for i, id := range req.TableIDs {
        ids[i] = fmt.Sprint(id)
    }
    var assignedBy interface{}
    if req.AssignedBy != nil {
        assignedBy = *req.AssignedBy
    }

    rows, err := s.db.QueryContext(ctx,
        `CALL assign_tables_atomic(?, ?, ?, ?, ?, ?, ?, ?)`,
        req.BookingID,
        strings.Join(ids, ","),
        req.Window.Start.UTC(),
        req.Window.End.UTC(),
        req.IdempotencyKey,
        req.RequireAdjacency,
        nullableString(mergeGroup),
        assignedBy,
    )
    if err != nil {
        return nil, classifyMySQLError(err)
    }
    defer rows.Close()

    var res Result
    for rows.Next() {
        var a model.Allocation
        var mg sql.NullString
        var key sql.NullString
        var by sql.NullInt64
        if err := rows.Scan(&a.ID, &a.BookingID, &a.TableID, &a.StartAt, &a.EndAt, &mg, &key, &by, &a.AssignedAt); err != nil {
            return nil, &RepositoryError{Message: "scan allocation row", Cause: err}
        }
        if mg.Valid {
            v := mg.String
            a.MergeGroupID = &v
            res.MergeGroupID = &v
        }
        if key.Valid {
            v := key.String
            a.IdempotencyKey = &v
        }
        if by.Valid {
            v := uint64(by.Int64)
            a.AssignedBy = &v
        }
        res.Assignments = append(res.Assignments, a)
    }
    if err := rows.Err(); err != nil {
        return nil, classifyMySQLError(err)
    }
    if len(res.Assignments) == 0 {
        return nil, &RepositoryError{Message: "procedure returned no allocation rows"}
    }
    return &res, nil
}

func nullableString(s string) interface{} {
    if s == "" {
        return nil
    }
    return s
}

// Validator re-runs the domain checks the engine applies to a
// selection.  The direct strategy needs them because, unlike the
// procedure, the database does not enforce adjacency or zone rules
// for plain inserts.  Implementations return *ConflictError or
// *ValidationError.
type Validator interface {
    ValidateCommit(ctx context.Context, req Request) error
}

// DirectStore is the persistence surface of the direct strategy.
type DirectStore interface {
    // ListByIdempotencyKey returns allocation rows previously
    // committed under the key, for replay detection.
    ListByIdempotencyKey(ctx context.Context, bookingID uint64, key string) ([]model.Allocation, error)
    // InsertAllocations writes the rows and deletes stale rows of the
    // same booking on tables outside keepTables, in one transaction.
    InsertAllocations(ctx context.Context, rows []model.Allocation, keepTables []uint64) ([]model.Allocation, error)
}

// DirectInsert is the degraded strategy for environments without the
// stored procedure.  It accepts a narrower guarantee: the pre-check
// and insert are two steps, so a very tight race can slip through to
// the unique key and surface as a conflict.
type DirectInsert struct {
    store    DirectStore
    validate Validator
    log      *zap.Logger
    now      func() time.Time
}

// NewDirectInsert builds the fallback strategy.
func NewDirectInsert(store DirectStore, validate Validator, log *zap.Logger) *DirectInsert {
    return &DirectInsert{store: store, validate: validate, log: log, now: time.Now}
}

// Name identifies the strategy in logs and telemetry.
func (s *DirectInsert) Name() string { return "direct_insert" }

// Commit pre-checks the idempotency key, validates the plan, then
// inserts.  A pre-existing row set under the same key is a
// successful replay, not an error.
func (s *DirectInsert) Commit(ctx context.Context, req Request) (*Result, error) {
    if req.IdempotencyKey != "" {
        existing, err := s.store.ListByIdempotencyKey(ctx, req.BookingID, req.IdempotencyKey)
        if err != nil {
            return nil, &RepositoryError{Message: "idempotency pre-check", Cause: err}
        }
        if len(existing) > 0 {
            res := &Result{Assignments: existing, FallbackUsed: true}
            for _, a := range existing {
                if a.MergeGroupID != nil {
                    res.MergeGroupID = a.MergeGroupID
                    break
                }
            }
            return res, nil
        }
    }

    if s.validate != nil {
        if err := s.validate.ValidateCommit(ctx, req); err != nil {
            return nil, err
        }
    }

    var mergeGroup *string
    if len(req.TableIDs) > 1 {
        v := uuid.NewString()
        mergeGroup = &v
    }
    now := s.now().UTC()
    rows := make([]model.Allocation, len(req.TableIDs))
    for i, tid := range req.TableIDs {
        rows[i] = model.Allocation{
            BookingID:    req.BookingID,
            TableID:      tid,
            StartAt:      req.Window.Start,
            EndAt:        req.Window.End,
            MergeGroupID: mergeGroup,
            AssignedBy:   req.AssignedBy,
            AssignedAt:   now,
        }
        if req.IdempotencyKey != "" {
            key := req.IdempotencyKey
            rows[i].IdempotencyKey = &key
        }
    }

    inserted, err := s.store.InsertAllocations(ctx, rows, req.TableIDs)
    if err != nil {
        return nil, classifyMySQLError(err)
    }
    s.log.Warn("assignment committed via direct insert fallback",
        zap.Uint64("booking_id", req.BookingID),
        zap.Uint64s("table_ids", req.TableIDs))
    return &Result{Assignments: inserted, MergeGroupID: mergeGroup, FallbackUsed: true}, nil
}
