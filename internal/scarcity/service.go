package scarcity

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// MetricStore is the persistence the service needs.  The repository
// package provides the MySQL implementation; tests use an in-memory
// fake.
type MetricStore interface {
    ListMetrics(ctx context.Context, restaurantID uint64) ([]model.ScarcityMetric, error)
    UpsertMetrics(ctx context.Context, metrics []model.ScarcityMetric) error
    DeleteMetricsExcept(ctx context.Context, restaurantID uint64, keepTypes []string) error
}

// TableSource lists the table inventory the recompute runs over.
type TableSource interface {
    ListTables(ctx context.Context, restaurantID uint64) ([]model.Table, error)
}

// Snapshot maps table type to scarcity score for one restaurant.
type Snapshot map[string]float64

// Service serves cached scarcity snapshots and runs the recompute.
// The Redis client is optional; with a nil client every read goes to
// the store, which is fine for tests and small deployments.
type Service struct {
    store  MetricStore
    tables TableSource
    rdb    *redis.Client
    ttl    time.Duration
    log    *zap.Logger
}

// NewService wires the service.  ttl bounds how stale a cached
// snapshot may get between recompute runs.
func NewService(store MetricStore, tables TableSource, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *Service {
    if ttl <= 0 {
        ttl = 5 * time.Minute
    }
    return &Service{store: store, tables: tables, rdb: rdb, ttl: ttl, log: log}
}

func cacheKey(restaurantID uint64) string {
    return fmt.Sprintf("scarcity:snapshot:%d", restaurantID)
}

// SnapshotFor returns the restaurant's scarcity snapshot, from cache
// when possible.  A cache failure degrades to a store read rather
// than failing the request.
func (s *Service) SnapshotFor(ctx context.Context, restaurantID uint64) (Snapshot, error) {
    if s.rdb != nil {
        raw, err := s.rdb.Get(ctx, cacheKey(restaurantID)).Bytes()
        if err == nil {
            var snap Snapshot
            if jerr := json.Unmarshal(raw, &snap); jerr == nil {
                return snap, nil
            }
        } else if err != redis.Nil {
            s.log.Warn("scarcity cache read failed", zap.Uint64("restaurant_id", restaurantID), zap.Error(err))
        }
    }

    metrics, err := s.store.ListMetrics(ctx, restaurantID)
    if err != nil {
        return nil, fmt.Errorf("load scarcity metrics: %w", err)
    }
    snap := make(Snapshot, len(metrics))
    for _, m := range metrics {
        snap[m.TableType] = m.Score
    }

    if s.rdb != nil {
        if raw, err := json.Marshal(snap); err == nil {
            if err := s.rdb.Set(ctx, cacheKey(restaurantID), raw, s.ttl).Err(); err != nil {
                s.log.Warn("scarcity cache write failed", zap.Uint64("restaurant_id", restaurantID), zap.Error(err))
            }
        }
    }
    return snap, nil
}

// Invalidate drops the cached snapshot.  Called after every
// recompute so readers pick up fresh scores on the next request.
func (s *Service) Invalidate(ctx context.Context, restaurantID uint64) {
    if s.rdb == nil {
        return
    }
    if err := s.rdb.Del(ctx, cacheKey(restaurantID)).Err(); err != nil {
        s.log.Warn("scarcity cache invalidate failed", zap.Uint64("restaurant_id", restaurantID), zap.Error(err))
    }
}

// ScoresByTable resolves per table scores from a snapshot for the
// selector.  Tables whose type has no metric row fall back to the
// capacity band heuristic against the supplied seat supply.
func ScoresByTable(snap Snapshot, tables []model.Table) map[uint64]float64 {
    seatSupply := 0
    for i := range tables {
        if tables[i].Assignable() {
            seatSupply += tables[i].Capacity
        }
    }
    out := make(map[uint64]float64, len(tables))
    for i := range tables {
        t := &tables[i]
        if score, ok := snap[TableType(t)]; ok {
            out[t.ID] = score
        } else {
            out[t.ID] = HeuristicScore(t.Capacity, seatSupply)
        }
    }
    return out
}

// Recompute rebuilds the metric rows for one restaurant: upsert the
// current types, delete rows for types no longer on the floor, then
// invalidate the cache.
func (s *Service) Recompute(ctx context.Context, restaurantID uint64) error {
    tables, err := s.tables.ListTables(ctx, restaurantID)
    if err != nil {
        return fmt.Errorf("list tables: %w", err)
    }
    metrics := Compute(restaurantID, tables)

    if len(metrics) > 0 {
        if err := s.store.UpsertMetrics(ctx, metrics); err != nil {
            return fmt.Errorf("upsert scarcity metrics: %w", err)
        }
    }
    keep := make([]string, len(metrics))
    for i, m := range metrics {
        keep[i] = m.TableType
    }
    if err := s.store.DeleteMetricsExcept(ctx, restaurantID, keep); err != nil {
        return fmt.Errorf("prune scarcity metrics: %w", err)
    }

    s.Invalidate(ctx, restaurantID)
    s.log.Info("scarcity metrics recomputed",
        zap.Uint64("restaurant_id", restaurantID),
        zap.Int("types", len(metrics)))
    return nil
}
