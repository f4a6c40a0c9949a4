package outbox

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/stretchr/testify/require"
    "go.uber.org/zap"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

type fakeOutboxStore struct {
    events map[uint64]*model.OutboxEvent
    nextID uint64
    byKey  map[string]bool
}

func newFakeOutboxStore() *fakeOutboxStore {
    return &fakeOutboxStore{events: make(map[uint64]*model.OutboxEvent), byKey: make(map[string]bool)}
}

func (f *fakeOutboxStore) InsertEvent(_ context.Context, e *model.OutboxEvent) error {
    if f.byKey[e.DedupeKey] {
        return ErrDuplicateEvent
    }
    f.nextID++
    e.ID = f.nextID
    cp := *e
    f.events[e.ID] = &cp
    f.byKey[e.DedupeKey] = true
    return nil
}

func (f *fakeOutboxStore) DueBatch(_ context.Context, now time.Time, limit int) ([]model.OutboxEvent, error) {
    var out []model.OutboxEvent
    for id := uint64(1); id <= f.nextID && len(out) < limit; id++ {
        e, ok := f.events[id]
        if !ok {
            continue
        }
        if (e.Status == model.OutboxStatusPending || e.Status == model.OutboxStatusProcessing) &&
            !e.NextAttemptAt.After(now) {
            out = append(out, *e)
        }
    }
    return out, nil
}

func (f *fakeOutboxStore) MarkProcessing(_ context.Context, id uint64) error {
    f.events[id].Status = model.OutboxStatusProcessing
    return nil
}

func (f *fakeOutboxStore) MarkDone(_ context.Context, id uint64) error {
    f.events[id].Status = model.OutboxStatusDone
    return nil
}

func (f *fakeOutboxStore) MarkFailed(_ context.Context, id uint64, attempts int, nextAttemptAt time.Time, lastError string) error {
    e := f.events[id]
    e.Status = model.OutboxStatusPending
    e.AttemptCount = attempts
    e.NextAttemptAt = nextAttemptAt
    e.LastError = &lastError
    return nil
}

func (f *fakeOutboxStore) MarkDead(_ context.Context, id uint64, attempts int, lastError string) error {
    e := f.events[id]
    e.Status = model.OutboxStatusDead
    e.AttemptCount = attempts
    e.LastError = &lastError
    return nil
}

func testQueue(store Store, cfg Config) (*Queue, *time.Time) {
    q := NewQueue(store, cfg, zap.NewNop())
    now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
    q.now = func() time.Time { return now }
    q.jitter = func() time.Duration { return 0 }
    return q, &now
}

func TestEnqueueDeduplicates(t *testing.T) {
    store := newFakeOutboxStore()
    q, _ := testQueue(store, Config{})

    require.NoError(t, q.Enqueue(context.Background(), "assignment.committed", 1, 10, "k1", map[string]int{"a": 1}))
    require.NoError(t, q.Enqueue(context.Background(), "assignment.committed", 1, 10, "k1", map[string]int{"a": 1}))
    require.Len(t, store.events, 1)
}

func TestProcessBatchDeliversAndMarksDone(t *testing.T) {
    store := newFakeOutboxStore()
    q, _ := testQueue(store, Config{})

    var handled []uint64
    q.Register("assignment.committed", func(_ context.Context, e *model.OutboxEvent) error {
        handled = append(handled, e.ID)
        return nil
    })
    require.NoError(t, q.Enqueue(context.Background(), "assignment.committed", 1, 10, "k1", nil))

    n, err := q.ProcessBatch(context.Background())
    require.NoError(t, err)
    require.Equal(t, 1, n)
    require.Equal(t, []uint64{1}, handled)
    require.Equal(t, model.OutboxStatusDone, store.events[1].Status)
}

func TestProcessBatchRetriesThenSucceeds(t *testing.T) {
    store := newFakeOutboxStore()
    q, now := testQueue(store, Config{MaxAttempts: 10})

    failures := 3
    q.Register("flaky", func(_ context.Context, _ *model.OutboxEvent) error {
        if failures > 0 {
            failures--
            return errors.New("transient")
        }
        return nil
    })
    require.NoError(t, q.Enqueue(context.Background(), "flaky", 1, 10, "k1", nil))

    for i := 0; i < 10 && store.events[1].Status != model.OutboxStatusDone; i++ {
        *now = now.Add(time.Minute) // jump past any backoff
        _, err := q.ProcessBatch(context.Background())
        require.NoError(t, err)
    }
    require.Equal(t, model.OutboxStatusDone, store.events[1].Status)
    require.Equal(t, 3, store.events[1].AttemptCount)
}

func TestProcessBatchDeadAfterMaxAttempts(t *testing.T) {
    store := newFakeOutboxStore()
    q, now := testQueue(store, Config{MaxAttempts: 3})

    q.Register("doomed", func(_ context.Context, _ *model.OutboxEvent) error {
        return errors.New("permanent")
    })
    require.NoError(t, q.Enqueue(context.Background(), "doomed", 1, 10, "k1", nil))

    for i := 0; i < 5; i++ {
        *now = now.Add(time.Minute)
        _, err := q.ProcessBatch(context.Background())
        require.NoError(t, err)
    }
    e := store.events[1]
    require.Equal(t, model.OutboxStatusDead, e.Status)
    require.Equal(t, 3, e.AttemptCount)
    require.NotNil(t, e.LastError)

    // dead rows are never picked up again
    *now = now.Add(time.Hour)
    n, err := q.ProcessBatch(context.Background())
    require.NoError(t, err)
    require.Zero(t, n)
}

func TestProcessBatchUnknownTypeMarkedDone(t *testing.T) {
    store := newFakeOutboxStore()
    q, _ := testQueue(store, Config{})

    require.NoError(t, q.Enqueue(context.Background(), "nobody.handles.this", 1, 10, "k1", nil))
    _, err := q.ProcessBatch(context.Background())
    require.NoError(t, err)
    require.Equal(t, model.OutboxStatusDone, store.events[1].Status)
    require.Zero(t, store.events[1].AttemptCount)
}

func TestBackoffCapsAndClamps(t *testing.T) {
    q, _ := testQueue(newFakeOutboxStore(), Config{})

    require.Equal(t, 500*time.Millisecond, q.Backoff(1))
    require.Equal(t, time.Second, q.Backoff(2))
    require.Equal(t, 8*time.Second, q.Backoff(5))
    // 2^8 * 250ms = 64s, capped at 30s
    require.Equal(t, 30*time.Second, q.Backoff(8))
    // exponent clamps at 8, so huge attempt counts do not overflow
    require.Equal(t, 30*time.Second, q.Backoff(200))
}
