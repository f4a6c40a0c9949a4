package availability

import (
    "sort"
    "time"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// Busy window sources.  Conflicts report where the blocking claim
// came from so callers can tell a committed booking from a hold.
const (
    SourceBooking = "booking"
    SourceHold    = "hold"
)

// BusyWindow is one blocking claim on a table.  Exactly one of
// BookingID or HoldID is set depending on Source.
type BusyWindow struct {
    TableID   uint64
    Window    Window
    Source    string
    BookingID uint64 // set when Source == SourceBooking
    HoldID    string // set when Source == SourceHold
}

type tableBusy struct {
    bits    *slotBitset
    windows []BusyWindow
}

// Index holds the busy state of every table of one restaurant for the
// horizon it was built over.  It is built per request from the
// allocation and live hold rows and is not safe for concurrent
// mutation; reads after the build phase are safe to share.
type Index struct {
    origin time.Time
    tables map[uint64]*tableBusy
}

// NewIndex creates an empty index.  The origin anchors the slot
// bitsets; the start of the queried day is the usual choice.
func NewIndex(origin time.Time) *Index {
    return &Index{origin: origin.UTC(), tables: make(map[uint64]*tableBusy)}
}

// MarkAllocation records a committed allocation as busy.
func (ix *Index) MarkAllocation(a *model.Allocation) {
    w := Window{Start: a.StartAt.UTC(), End: a.EndAt.UTC()}
    ix.mark(BusyWindow{TableID: a.TableID, Window: w, Source: SourceBooking, BookingID: a.BookingID})
}

// MarkHold records every member table of a live hold as busy.  The
// caller filters expired holds; an expired hold must never be marked.
func (ix *Index) MarkHold(h *model.TableHold) {
    w := Window{Start: h.StartAt.UTC(), End: h.EndAt.UTC()}
    for _, tid := range h.TableIDs {
        ix.mark(BusyWindow{TableID: tid, Window: w, Source: SourceHold, HoldID: h.ID})
    }
}

func (ix *Index) mark(bw BusyWindow) {
    tb := ix.tables[bw.TableID]
    if tb == nil {
        tb = &tableBusy{bits: newSlotBitset(ix.origin)}
        ix.tables[bw.TableID] = tb
    }
    tb.bits.markRange(bw.Window)
    tb.windows = append(tb.windows, bw)
}

// IsFree reports whether the table has no blocking claim overlapping
// the window.  The bitset answers the common free case in O(1); when
// it reports a touched slot the exact window list decides, so windows
// that merely share a slot with a neighbour do not false conflict.
func (ix *Index) IsFree(tableID uint64, w Window) bool {
    tb := ix.tables[tableID]
    if tb == nil {
        return true
    }
    if !tb.bits.anySet(w) {
        return true
    }
    for _, bw := range tb.windows {
        if bw.Window.Overlaps(w) {
            return false
        }
    }
    return true
}

// ConflictsFor returns every blocking claim that overlaps the window
// on any of the given tables, ordered by table id then window start
// for deterministic output.
func (ix *Index) ConflictsFor(tableIDs []uint64, w Window) []BusyWindow {
    var out []BusyWindow
    for _, tid := range tableIDs {
        tb := ix.tables[tid]
        if tb == nil {
            continue
        }
        for _, bw := range tb.windows {
            if bw.Window.Overlaps(w) {
                out = append(out, bw)
            }
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].TableID != out[j].TableID {
            return out[i].TableID < out[j].TableID
        }
        return out[i].Window.Start.Before(out[j].Window.Start)
    })
    return out
}

// FreeTables filters the given tables down to those free for the
// window, preserving input order.
func (ix *Index) FreeTables(tableIDs []uint64, w Window) []uint64 {
    free := make([]uint64, 0, len(tableIDs))
    for _, tid := range tableIDs {
        if ix.IsFree(tid, w) {
            free = append(free, tid)
        }
    }
    return free
}
