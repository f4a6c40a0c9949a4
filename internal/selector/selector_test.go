package selector

import (
    "testing"
    "time"

    "github.com/stretchr/testify/require"

    "github.com/iliyamo/restaurant-table-reservation/internal/availability"
    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

func testWindow(t *testing.T) availability.Window {
    t.Helper()
    w, err := availability.NewWindow(
        time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
        time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC),
    )
    require.NoError(t, err)
    return w
}

func table(id, zone uint64, capacity int) model.Table {
    return model.Table{
        ID:       id,
        ZoneID:   zone,
        Capacity: capacity,
        IsActive: true,
        Status:   model.TableStatusAvailable,
    }
}

// symmetric adjacency between every listed pair
func adjacency(pairs ...[2]uint64) map[uint64][]uint64 {
    m := make(map[uint64][]uint64)
    for _, p := range pairs {
        m[p[0]] = append(m[p[0]], p[1])
        m[p[1]] = append(m[p[1]], p[0])
    }
    return m
}

func TestSelectRejectsInvalidPartySize(t *testing.T) {
    _, err := Select(Input{PartySize: 0, Window: testWindow(t)})
    require.ErrorIs(t, err, ErrInvalidPartySize)
    _, err = Select(Input{PartySize: -3, Window: testWindow(t)})
    require.ErrorIs(t, err, ErrInvalidPartySize)
}

func TestSelectPrefersTightMergeForLargeParty(t *testing.T) {
    // Party of 9 with a 4, a 6 and an 8 seat table: 4+6 covers with
    // one spare seat and must rank first; 6+8 busts the waste cap.
    in := Input{
        PartySize: 9,
        Window:    testWindow(t),
        Tables:    []model.Table{table(1, 1, 6), table(2, 1, 4), table(3, 1, 8)},
        Adjacency: adjacency([2]uint64{1, 2}, [2]uint64{2, 3}, [2]uint64{1, 3}),
        RequireAdjacency: true,
    }
    res, err := Select(in)
    require.NoError(t, err)
    require.Empty(t, res.Fallback)
    require.Len(t, res.Plans, 2)

    require.Equal(t, []uint64{1, 2}, res.Plans[0].TableIDs)
    require.True(t, res.Plans[0].IsMerge)
    require.Equal(t, 1, res.Plans[0].Metrics.Waste)

    require.Equal(t, []uint64{2, 3}, res.Plans[1].TableIDs)
    require.Equal(t, 3, res.Plans[1].Metrics.Waste)

    require.Positive(t, res.Diagnostics.SkippedOverage)
}

func TestSelectSinglesRankAboveMerges(t *testing.T) {
    in := Input{
        PartySize: 4,
        Window:    testWindow(t),
        Tables:    []model.Table{table(1, 1, 6), table(2, 1, 4)},
        Adjacency: adjacency([2]uint64{1, 2}),
    }
    res, err := Select(in)
    require.NoError(t, err)
    require.Len(t, res.Plans, 2)
    require.Equal(t, []uint64{2}, res.Plans[0].TableIDs)
    require.False(t, res.Plans[0].IsMerge)
    require.Equal(t, 0, res.Plans[0].Metrics.Waste)
    require.Equal(t, []uint64{1}, res.Plans[1].TableIDs)
}

func TestSelectDeterministic(t *testing.T) {
    in := Input{
        PartySize: 6,
        Window:    testWindow(t),
        Tables: []model.Table{
            table(5, 1, 4), table(1, 1, 4), table(3, 1, 2),
            table(2, 1, 6), table(4, 1, 8),
        },
        Adjacency: adjacency([2]uint64{1, 3}, [2]uint64{1, 5}, [2]uint64{3, 5}, [2]uint64{2, 4}),
    }
    first, err := Select(in)
    require.NoError(t, err)
    for i := 0; i < 5; i++ {
        again, err := Select(in)
        require.NoError(t, err)
        require.Equal(t, first.Plans, again.Plans)
    }
}

func TestSelectTieBreakIsNumericByTableID(t *testing.T) {
    // Tables 9 and 10 produce identical plans apart from the id, so
    // the tie break decides.  It must compare ids as numbers: 9
    // before 10, even though "10" sorts before "9" as a string.
    in := Input{
        PartySize: 2,
        Window:    testWindow(t),
        Tables:    []model.Table{table(10, 1, 2), table(9, 1, 2)},
    }
    res, err := Select(in)
    require.NoError(t, err)
    require.Len(t, res.Plans, 2)
    require.Equal(t, []uint64{9}, res.Plans[0].TableIDs)
    require.Equal(t, []uint64{10}, res.Plans[1].TableIDs)
}

func TestSelectAdjacencyRequired(t *testing.T) {
    in := Input{
        PartySize:        7,
        Window:           testWindow(t),
        Tables:           []model.Table{table(1, 1, 4), table(2, 1, 4)},
        Adjacency:        nil, // tables are not adjacent
        RequireAdjacency: true,
    }
    res, err := Select(in)
    require.NoError(t, err)
    require.Empty(t, res.Plans)
    require.Equal(t, FallbackAdjacencyUnsolved, res.Fallback)
    require.Positive(t, res.Diagnostics.SkippedAdjacency)

    // Same floor without the policy: the merge is allowed and carries
    // the adjacency penalty instead.
    in.RequireAdjacency = false
    res, err = Select(in)
    require.NoError(t, err)
    require.Len(t, res.Plans, 1)
    require.False(t, res.Plans[0].Adjacent)
    require.Equal(t, float64(1), res.Plans[0].Metrics.AdjacencyCost)
}

func TestSelectMergesNeverSpanZones(t *testing.T) {
    in := Input{
        PartySize: 8,
        Window:    testWindow(t),
        Tables:    []model.Table{table(1, 1, 4), table(2, 2, 4)},
        Adjacency: adjacency([2]uint64{1, 2}),
    }
    res, err := Select(in)
    require.NoError(t, err)
    require.Empty(t, res.Plans)
    require.Equal(t, FallbackNoCapacity, res.Fallback)
}

func TestSelectSkipsBusyTables(t *testing.T) {
    w := testWindow(t)
    ix := availability.NewIndex(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
    ix.MarkAllocation(&model.Allocation{
        BookingID: 1,
        TableID:   2,
        StartAt:   w.Start,
        EndAt:     w.End,
    })
    in := Input{
        PartySize: 4,
        Window:    w,
        Tables:    []model.Table{table(1, 1, 6), table(2, 1, 4)},
        Index:     ix,
    }
    res, err := Select(in)
    require.NoError(t, err)
    require.Len(t, res.Plans, 1)
    require.Equal(t, []uint64{1}, res.Plans[0].TableIDs)
}

func TestSelectHonoursPartyBounds(t *testing.T) {
    big := table(1, 1, 8)
    big.MinParty = 5
    in := Input{
        PartySize: 2,
        Window:    testWindow(t),
        Tables:    []model.Table{big},
    }
    res, err := Select(in)
    require.NoError(t, err)
    require.Empty(t, res.Plans)
    require.Equal(t, FallbackNoCapacity, res.Fallback)
    require.Positive(t, res.Diagnostics.SkippedPartyFit)
}

func TestSelectExcludesOutOfServiceTables(t *testing.T) {
    down := table(1, 1, 4)
    down.Status = model.TableStatusOutOfService
    in := Input{
        PartySize: 4,
        Window:    testWindow(t),
        Tables:    []model.Table{down, table(2, 1, 4)},
    }
    res, err := Select(in)
    require.NoError(t, err)
    require.Len(t, res.Plans, 1)
    require.Equal(t, []uint64{2}, res.Plans[0].TableIDs)
}

func TestSelectEvaluationCap(t *testing.T) {
    tables := make([]model.Table, 0, 30)
    for i := uint64(1); i <= 30; i++ {
        tables = append(tables, table(i, 1, 2))
    }
    in := Input{
        PartySize: 20,
        Window:    testWindow(t),
        Tables:    tables,
        Limits:    Limits{KMax: 3, MaxWaste: 4, MaxPlansPerTier: 50, MaxEvaluations: 10},
    }
    res, err := Select(in)
    require.NoError(t, err)
    require.True(t, res.Diagnostics.EvaluationCapHit)
    require.LessOrEqual(t, res.Diagnostics.Evaluations, 10)
}
