package availability

import (
    "testing"
    "time"

    "github.com/stretchr/testify/require"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

func mustWindow(t *testing.T, start, end string) Window {
    t.Helper()
    s, err := time.Parse(time.RFC3339, start)
    require.NoError(t, err)
    e, err := time.Parse(time.RFC3339, end)
    require.NoError(t, err)
    w, err := NewWindow(s, e)
    require.NoError(t, err)
    return w
}

func TestWindowOverlaps(t *testing.T) {
    cases := []struct {
        name string
        a    Window
        b    Window
        want bool
    }{
        {
            name: "disjoint",
            a:    mustWindow(t, "2026-03-01T18:00:00Z", "2026-03-01T19:00:00Z"),
            b:    mustWindow(t, "2026-03-01T20:00:00Z", "2026-03-01T21:00:00Z"),
            want: false,
        },
        {
            name: "adjacent touch does not overlap",
            a:    mustWindow(t, "2026-03-01T18:00:00Z", "2026-03-01T19:00:00Z"),
            b:    mustWindow(t, "2026-03-01T19:00:00Z", "2026-03-01T20:00:00Z"),
            want: false,
        },
        {
            name: "partial overlap",
            a:    mustWindow(t, "2026-03-01T18:00:00Z", "2026-03-01T19:30:00Z"),
            b:    mustWindow(t, "2026-03-01T19:00:00Z", "2026-03-01T20:00:00Z"),
            want: true,
        },
        {
            name: "containment",
            a:    mustWindow(t, "2026-03-01T18:00:00Z", "2026-03-01T22:00:00Z"),
            b:    mustWindow(t, "2026-03-01T19:00:00Z", "2026-03-01T20:00:00Z"),
            want: true,
        },
        {
            name: "identical",
            a:    mustWindow(t, "2026-03-01T18:00:00Z", "2026-03-01T19:00:00Z"),
            b:    mustWindow(t, "2026-03-01T18:00:00Z", "2026-03-01T19:00:00Z"),
            want: true,
        },
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            require.Equal(t, tc.want, tc.a.Overlaps(tc.b))
            require.Equal(t, tc.want, tc.b.Overlaps(tc.a))
        })
    }
}

func TestNewWindowRejectsInvertedRange(t *testing.T) {
    s := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
    _, err := NewWindow(s, s)
    require.Error(t, err)
    _, err = NewWindow(s, s.Add(-time.Hour))
    require.Error(t, err)
}

func TestIndexIsFree(t *testing.T) {
    origin := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
    ix := NewIndex(origin)
    ix.MarkAllocation(&model.Allocation{
        BookingID: 7,
        TableID:   1,
        StartAt:   time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
        EndAt:     time.Date(2026, 3, 1, 19, 30, 0, 0, time.UTC),
    })

    require.False(t, ix.IsFree(1, mustWindow(t, "2026-03-01T19:00:00Z", "2026-03-01T20:00:00Z")))
    require.True(t, ix.IsFree(1, mustWindow(t, "2026-03-01T19:30:00Z", "2026-03-01T20:30:00Z")))
    require.True(t, ix.IsFree(1, mustWindow(t, "2026-03-01T16:00:00Z", "2026-03-01T18:00:00Z")))
    require.True(t, ix.IsFree(2, mustWindow(t, "2026-03-01T18:00:00Z", "2026-03-01T19:00:00Z")))
}

func TestIndexUnalignedAdjacentWindows(t *testing.T) {
    // Both windows touch the 19:00-19:15 slot but do not overlap; the
    // exact window scan must win over the rounded bitset.
    origin := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
    ix := NewIndex(origin)
    ix.MarkAllocation(&model.Allocation{
        BookingID: 3,
        TableID:   5,
        StartAt:   time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
        EndAt:     time.Date(2026, 3, 1, 19, 10, 0, 0, time.UTC),
    })
    require.True(t, ix.IsFree(5, mustWindow(t, "2026-03-01T19:10:00Z", "2026-03-01T20:00:00Z")))
}

func TestConflictsForReportsSources(t *testing.T) {
    origin := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
    ix := NewIndex(origin)
    ix.MarkAllocation(&model.Allocation{
        BookingID: 11,
        TableID:   2,
        StartAt:   time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
        EndAt:     time.Date(2026, 3, 1, 19, 30, 0, 0, time.UTC),
    })
    ix.MarkHold(&model.TableHold{
        ID:       "hold-1",
        TableIDs: []uint64{2, 3},
        StartAt:  time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC),
        EndAt:    time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC),
    })

    got := ix.ConflictsFor([]uint64{2, 3, 4}, mustWindow(t, "2026-03-01T19:00:00Z", "2026-03-01T19:45:00Z"))
    require.Len(t, got, 3)
    require.Equal(t, uint64(2), got[0].TableID)
    require.Equal(t, SourceBooking, got[0].Source)
    require.Equal(t, uint64(11), got[0].BookingID)
    require.Equal(t, uint64(2), got[1].TableID)
    require.Equal(t, SourceHold, got[1].Source)
    require.Equal(t, "hold-1", got[1].HoldID)
    require.Equal(t, uint64(3), got[2].TableID)
}

func TestFreeTablesPreservesOrder(t *testing.T) {
    origin := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
    ix := NewIndex(origin)
    ix.MarkHold(&model.TableHold{
        ID:       "hold-2",
        TableIDs: []uint64{9},
        StartAt:  time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
        EndAt:    time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC),
    })
    w := mustWindow(t, "2026-03-01T18:30:00Z", "2026-03-01T19:30:00Z")
    require.Equal(t, []uint64{8, 10}, ix.FreeTables([]uint64{8, 9, 10}, w))
}
