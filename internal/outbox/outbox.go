// Package outbox gives post-commit side effects at-least-once
// delivery.  Events are durable rows; a background worker picks due
// rows, dispatches them to a handler keyed by event type and retries
// failures with capped exponential backoff until they succeed or
// exhaust their attempts and go dead.
package outbox

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "math/rand"
    "time"

    "go.uber.org/zap"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// ErrDuplicateEvent is returned by stores when the dedupe key
// already exists.  The queue treats it as success: the event is
// already enqueued, which is all the caller wanted.
var ErrDuplicateEvent = errors.New("outbox event already enqueued")

// Handler processes one event.  A nil return marks the event done; an
// error schedules a retry.
type Handler func(ctx context.Context, e *model.OutboxEvent) error

// Store is the persistence the queue runs on.
type Store interface {
    InsertEvent(ctx context.Context, e *model.OutboxEvent) error
    // DueBatch returns pending and processing rows whose
    // next_attempt_at has passed, ordered by status, next_attempt_at,
    // created_at.
    DueBatch(ctx context.Context, now time.Time, limit int) ([]model.OutboxEvent, error)
    MarkProcessing(ctx context.Context, id uint64) error
    MarkDone(ctx context.Context, id uint64) error
    MarkFailed(ctx context.Context, id uint64, attempts int, nextAttemptAt time.Time, lastError string) error
    MarkDead(ctx context.Context, id uint64, attempts int, lastError string) error
}

// Config bounds the retry behaviour.
type Config struct {
    BatchSize   int
    MaxAttempts int
    BaseDelay   time.Duration
    MaxDelay    time.Duration
}

// DefaultConfig returns the stock retry bounds: ten attempts with
// 250ms doubling delays capped at 30 seconds.
func DefaultConfig() Config {
    return Config{BatchSize: 25, MaxAttempts: 10, BaseDelay: 250 * time.Millisecond, MaxDelay: 30 * time.Second}
}

// Queue dispatches outbox events to registered handlers.
type Queue struct {
    store    Store
    cfg      Config
    handlers map[string]Handler
    log      *zap.Logger
    now      func() time.Time
    jitter   func() time.Duration
}

// NewQueue builds a queue with the given bounds; zero valued config
// fields fall back to the defaults.
func NewQueue(store Store, cfg Config, log *zap.Logger) *Queue {
    def := DefaultConfig()
    if cfg.BatchSize <= 0 {
        cfg.BatchSize = def.BatchSize
    }
    if cfg.MaxAttempts <= 0 {
        cfg.MaxAttempts = def.MaxAttempts
    }
    if cfg.BaseDelay <= 0 {
        cfg.BaseDelay = def.BaseDelay
    }
    if cfg.MaxDelay <= 0 {
        cfg.MaxDelay = def.MaxDelay
    }
    return &Queue{
        store:    store,
        cfg:      cfg,
        handlers: make(map[string]Handler),
        log:      log,
        now:      time.Now,
        jitter:   func() time.Duration { return time.Duration(rand.Int63n(int64(cfg.BaseDelay))) },
    }
}

// Register binds a handler to an event type.  Registration happens at
// startup before the worker runs; there is no locking.
func (q *Queue) Register(eventType string, h Handler) {
    q.handlers[eventType] = h
}

// Enqueue inserts a pending event.  A duplicate dedupe key means the
// event is already queued and is reported as success.
func (q *Queue) Enqueue(ctx context.Context, eventType string, restaurantID, bookingID uint64, dedupeKey string, payload interface{}) error {
    raw, err := json.Marshal(payload)
    if err != nil {
        return fmt.Errorf("marshal outbox payload: %w", err)
    }
    e := &model.OutboxEvent{
        EventType:     eventType,
        RestaurantID:  restaurantID,
        BookingID:     bookingID,
        DedupeKey:     dedupeKey,
        Payload:       raw,
        Status:        model.OutboxStatusPending,
        NextAttemptAt: q.now().UTC(),
    }
    if err := q.store.InsertEvent(ctx, e); err != nil {
        if errors.Is(err, ErrDuplicateEvent) {
            return nil
        }
        return fmt.Errorf("insert outbox event: %w", err)
    }
    return nil
}

// Backoff computes the delay before the given attempt is retried.
// The exponent is clamped so large attempt counts cannot overflow,
// the result is capped, and jitter spreads concurrent retries out.
func (q *Queue) Backoff(attempt int) time.Duration {
    exp := attempt
    if exp > 8 {
        exp = 8
    }
    d := q.cfg.BaseDelay * (1 << uint(exp))
    if d > q.cfg.MaxDelay {
        d = q.cfg.MaxDelay
    }
    return d + q.jitter()
}

// ProcessBatch claims one batch of due events and dispatches them.
// It returns how many events were handled (in any direction).
func (q *Queue) ProcessBatch(ctx context.Context) (int, error) {
    now := q.now().UTC()
    events, err := q.store.DueBatch(ctx, now, q.cfg.BatchSize)
    if err != nil {
        return 0, fmt.Errorf("load due outbox events: %w", err)
    }
    for i := range events {
        e := &events[i]
        if err := q.store.MarkProcessing(ctx, e.ID); err != nil {
            q.log.Error("mark outbox event processing failed", zap.Uint64("event_id", e.ID), zap.Error(err))
            continue
        }
        q.dispatch(ctx, e)
    }
    return len(events), nil
}

func (q *Queue) dispatch(ctx context.Context, e *model.OutboxEvent) {
    h, ok := q.handlers[e.EventType]
    if !ok {
        // poison message safety: retrying an event nobody handles
        // would loop forever
        q.log.Warn("unknown outbox event type, marking done",
            zap.Uint64("event_id", e.ID), zap.String("event_type", e.EventType))
        if err := q.store.MarkDone(ctx, e.ID); err != nil {
            q.log.Error("mark outbox event done failed", zap.Uint64("event_id", e.ID), zap.Error(err))
        }
        return
    }

    if err := h(ctx, e); err != nil {
        attempts := e.AttemptCount + 1
        if attempts >= q.cfg.MaxAttempts {
            q.log.Error("outbox event exhausted retries, marking dead",
                zap.Uint64("event_id", e.ID),
                zap.String("event_type", e.EventType),
                zap.Int("attempts", attempts),
                zap.Error(err))
            if merr := q.store.MarkDead(ctx, e.ID, attempts, err.Error()); merr != nil {
                q.log.Error("mark outbox event dead failed", zap.Uint64("event_id", e.ID), zap.Error(merr))
            }
            return
        }
        next := q.now().UTC().Add(q.Backoff(attempts))
        q.log.Warn("outbox event delivery failed, scheduling retry",
            zap.Uint64("event_id", e.ID),
            zap.String("event_type", e.EventType),
            zap.Int("attempts", attempts),
            zap.Time("next_attempt_at", next),
            zap.Error(err))
        if merr := q.store.MarkFailed(ctx, e.ID, attempts, next, err.Error()); merr != nil {
            q.log.Error("mark outbox event failed failed", zap.Uint64("event_id", e.ID), zap.Error(merr))
        }
        return
    }

    if err := q.store.MarkDone(ctx, e.ID); err != nil {
        q.log.Error("mark outbox event done failed", zap.Uint64("event_id", e.ID), zap.Error(err))
    }
}

// Run processes batches on a fixed interval until the context is
// cancelled.  Meant to run in its own goroutine from main.
func (q *Queue) Run(ctx context.Context, interval time.Duration) {
    if interval <= 0 {
        interval = 3 * time.Second
    }
    ticker := time.NewTicker(interval)
    defer ticker.Stop()
    q.log.Info("outbox worker started", zap.Duration("interval", interval))
    for {
        select {
        case <-ctx.Done():
            q.log.Info("outbox worker stopped")
            return
        case <-ticker.C:
            if _, err := q.ProcessBatch(ctx); err != nil {
                q.log.Error("outbox batch failed", zap.Error(err))
            }
        }
    }
}
