package scarcity

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/require"
    "go.uber.org/zap"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

func TestTableType(t *testing.T) {
    cases := []struct {
        name  string
        table model.Table
        want  string
    }{
        {
            name:  "full fields lowercased",
            table: model.Table{Capacity: 4, Category: "Booth", SeatingType: "Outdoor"},
            want:  "capacity:4|category:booth|seating:outdoor",
        },
        {
            name:  "defaults applied",
            table: model.Table{Capacity: 2},
            want:  "capacity:2|category:standard|seating:indoor",
        },
        {
            name:  "whitespace trimmed",
            table: model.Table{Capacity: 6, Category: " bar ", SeatingType: ""},
            want:  "capacity:6|category:bar|seating:indoor",
        },
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            require.Equal(t, tc.want, TableType(&tc.table))
        })
    }
}

func TestScore(t *testing.T) {
    require.Equal(t, 1.0, Score(1))
    require.Equal(t, 0.5, Score(2))
    require.Equal(t, 0.3333, Score(3))
    require.Equal(t, 0.0, Score(0))
}

func TestHeuristicScore(t *testing.T) {
    require.Equal(t, 0.016, HeuristicScore(2, 100))
    require.Equal(t, 0.0018, HeuristicScore(4, 100))
    require.Equal(t, 0.0012, HeuristicScore(6, 100))
    require.Equal(t, 0.0008, HeuristicScore(10, 100))
    // zero supply clamps instead of dividing by zero
    require.Equal(t, 1.6, HeuristicScore(2, 0))
}

func TestComputeGroupsByType(t *testing.T) {
    tables := []model.Table{
        {ID: 1, Capacity: 4, Category: "standard", IsActive: true, Status: model.TableStatusAvailable},
        {ID: 2, Capacity: 4, Category: "standard", IsActive: true, Status: model.TableStatusAvailable},
        {ID: 3, Capacity: 4, Category: "booth", IsActive: true, Status: model.TableStatusAvailable},
        {ID: 4, Capacity: 8, Category: "standard", IsActive: false, Status: model.TableStatusAvailable},
        {ID: 5, Capacity: 2, Category: "bar", IsActive: true, Status: model.TableStatusOutOfService},
    }
    metrics := Compute(42, tables)
    require.Len(t, metrics, 2)

    require.Equal(t, "capacity:4|category:standard|seating:indoor", metrics[0].TableType)
    require.Equal(t, 2, metrics[0].TableCount)
    require.Equal(t, 0.5, metrics[0].Score)
    require.Equal(t, uint64(42), metrics[0].RestaurantID)

    require.Equal(t, "capacity:4|category:booth|seating:indoor", metrics[1].TableType)
    require.Equal(t, 1, metrics[1].TableCount)
    require.Equal(t, 1.0, metrics[1].Score)
}

func TestScoresByTableFallsBackToHeuristic(t *testing.T) {
    snap := Snapshot{"capacity:4|category:standard|seating:indoor": 0.5}
    tables := []model.Table{
        {ID: 1, Capacity: 4, Category: "standard", IsActive: true, Status: model.TableStatusAvailable},
        {ID: 2, Capacity: 2, Category: "bar", IsActive: true, Status: model.TableStatusAvailable},
    }
    scores := ScoresByTable(snap, tables)
    require.Equal(t, 0.5, scores[1])
    require.Equal(t, HeuristicScore(2, 6), scores[2])
}

type fakeMetricStore struct {
    metrics  map[string]model.ScarcityMetric
    upserted []model.ScarcityMetric
    kept     []string
}

func newFakeMetricStore() *fakeMetricStore {
    return &fakeMetricStore{metrics: make(map[string]model.ScarcityMetric)}
}

func (f *fakeMetricStore) ListMetrics(_ context.Context, restaurantID uint64) ([]model.ScarcityMetric, error) {
    var out []model.ScarcityMetric
    for _, m := range f.metrics {
        if m.RestaurantID == restaurantID {
            out = append(out, m)
        }
    }
    return out, nil
}

func (f *fakeMetricStore) UpsertMetrics(_ context.Context, metrics []model.ScarcityMetric) error {
    for _, m := range metrics {
        f.metrics[m.TableType] = m
    }
    f.upserted = append(f.upserted, metrics...)
    return nil
}

func (f *fakeMetricStore) DeleteMetricsExcept(_ context.Context, _ uint64, keepTypes []string) error {
    f.kept = keepTypes
    keep := make(map[string]bool, len(keepTypes))
    for _, k := range keepTypes {
        keep[k] = true
    }
    for key := range f.metrics {
        if !keep[key] {
            delete(f.metrics, key)
        }
    }
    return nil
}

type fakeTableSource struct{ tables []model.Table }

func (f *fakeTableSource) ListTables(_ context.Context, _ uint64) ([]model.Table, error) {
    return f.tables, nil
}

func TestRecomputeUpsertsAndPrunes(t *testing.T) {
    store := newFakeMetricStore()
    store.metrics["capacity:9|category:gone|seating:indoor"] = model.ScarcityMetric{
        RestaurantID: 7, TableType: "capacity:9|category:gone|seating:indoor", Score: 1,
    }
    src := &fakeTableSource{tables: []model.Table{
        {ID: 1, Capacity: 4, IsActive: true, Status: model.TableStatusAvailable},
        {ID: 2, Capacity: 4, IsActive: true, Status: model.TableStatusAvailable},
    }}
    svc := NewService(store, src, nil, time.Minute, zap.NewNop())

    require.NoError(t, svc.Recompute(context.Background(), 7))
    require.Len(t, store.metrics, 1)

    m, ok := store.metrics["capacity:4|category:standard|seating:indoor"]
    require.True(t, ok)
    require.Equal(t, 0.5, m.Score)
    require.Equal(t, 2, m.TableCount)

    snap, err := svc.SnapshotFor(context.Background(), 7)
    require.NoError(t, err)
    require.Equal(t, Snapshot{"capacity:4|category:standard|seating:indoor": 0.5}, snap)
}
