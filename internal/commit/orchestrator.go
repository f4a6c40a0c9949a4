package commit

import (
    "context"
    "errors"
    "fmt"
    "sync"

    "go.uber.org/zap"

    "github.com/iliyamo/restaurant-table-reservation/internal/availability"
    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// Enqueuer is the outbox surface the orchestrator publishes into.
type Enqueuer interface {
    Enqueue(ctx context.Context, eventType string, restaurantID, bookingID uint64, dedupeKey string, payload interface{}) error
}

// committedPayload is the outbox body for a successful assignment.
type committedPayload struct {
    BookingID    uint64               `json:"booking_id"`
    RestaurantID uint64               `json:"restaurant_id"`
    TableIDs     []uint64             `json:"table_ids"`
    MergeGroupID *string              `json:"merge_group_id,omitempty"`
    Window       availability.Window  `json:"window"`
    Source       string               `json:"source,omitempty"`
    Strategy     string               `json:"strategy"`
}

// fallbackPayload records that the degraded path was taken, for
// later reconciliation.
type fallbackPayload struct {
    BookingID    uint64 `json:"booking_id"`
    RestaurantID uint64 `json:"restaurant_id"`
    Reason       string `json:"reason"`
}

// Orchestrator runs commits through the active strategy and, when
// the atomic procedure turns out to be missing, downgrades to the
// fallback strategy once for the life of the process.  Successful
// commits enqueue outbox events for downstream consumers.
type Orchestrator struct {
    mu         sync.Mutex
    active     Strategy
    fallback   Strategy
    downgraded bool

    outbox Enqueuer
    log    *zap.Logger
}

// NewOrchestrator wires the orchestrator.  fallback may be nil when
// the deployment forbids the degraded path.
func NewOrchestrator(active, fallback Strategy, outbox Enqueuer, log *zap.Logger) *Orchestrator {
    return &Orchestrator{active: active, fallback: fallback, outbox: outbox, log: log}
}

func (o *Orchestrator) current() Strategy {
    o.mu.Lock()
    defer o.mu.Unlock()
    return o.active
}

func (o *Orchestrator) downgrade() Strategy {
    o.mu.Lock()
    defer o.mu.Unlock()
    if !o.downgraded && o.fallback != nil {
        o.log.Warn("atomic assignment procedure missing, downgrading to direct insert strategy")
        o.active = o.fallback
        o.downgraded = true
    }
    return o.active
}

// Commit finalises an assignment.  Conflict, validation and stale
// state errors pass through typed; only a missing procedure triggers
// the one time strategy downgrade and an immediate retry.
func (o *Orchestrator) Commit(ctx context.Context, req Request) (*Result, error) {
    st := o.current()
    res, err := st.Commit(ctx, req)
    if err != nil {
        var repoErr *RepositoryError
        if errors.As(err, &repoErr) && repoErr.ProcedureMissing && o.fallback != nil && st.Name() != o.fallback.Name() {
            st = o.downgrade()
            res, err = st.Commit(ctx, req)
        }
        if err != nil {
            return nil, err
        }
    }

    o.publish(ctx, req, res, st.Name())
    return res, nil
}

// publish enqueues the post-commit events.  Enqueue failures are
// logged, not returned: the assignment is already durable and the
// dedupe key lets a later retry re-enqueue safely.
func (o *Orchestrator) publish(ctx context.Context, req Request, res *Result, strategy string) {
    if o.outbox == nil {
        return
    }
    dedupe := fmt.Sprintf("%s:%d:%s", model.EventAssignmentCommitted, req.BookingID, req.IdempotencyKey)
    payload := committedPayload{
        BookingID:    req.BookingID,
        RestaurantID: req.RestaurantID,
        TableIDs:     req.TableIDs,
        MergeGroupID: res.MergeGroupID,
        Window:       req.Window,
        Source:       req.Source,
        Strategy:     strategy,
    }
    if err := o.outbox.Enqueue(ctx, model.EventAssignmentCommitted, req.RestaurantID, req.BookingID, dedupe, payload); err != nil {
        o.log.Error("enqueue assignment.committed failed",
            zap.Uint64("booking_id", req.BookingID), zap.Error(err))
    }

    if res.FallbackUsed {
        dedupe := fmt.Sprintf("%s:%d:%s", model.EventAssignmentFallback, req.BookingID, req.IdempotencyKey)
        payload := fallbackPayload{
            BookingID:    req.BookingID,
            RestaurantID: req.RestaurantID,
            Reason:       "atomic procedure unavailable",
        }
        if err := o.outbox.Enqueue(ctx, model.EventAssignmentFallback, req.RestaurantID, req.BookingID, dedupe, payload); err != nil {
            o.log.Error("enqueue assignment.fallback_used failed",
                zap.Uint64("booking_id", req.BookingID), zap.Error(err))
        }
    }
}
