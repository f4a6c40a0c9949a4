package engine

import (
    "fmt"
    "hash/fnv"
    "sort"
)

// contextVersion fingerprints the parts of a context other actors
// can change: the window, the policy flag, the usable inventory, the
// adjacency graph, and every foreign allocation and live hold.  The
// booking's own claims are left out so taking a hold does not
// invalidate the very session that took it.  The
// same state always hashes to the same version, so a client holding
// the version can detect any interleaved change.  FNV-64a keeps this
// cheap; this is a staleness token, not a security measure.
func contextVersion(c *Context) string {
    h := fnv.New64a()

    fmt.Fprintf(h, "w|%d|%d\n", c.Window.Start.Unix(), c.Window.End.Unix())
    if c.Restaurant != nil {
        fmt.Fprintf(h, "p|%t\n", c.Restaurant.RequireAdjacency)
    }

    tableIDs := make([]uint64, 0, len(c.Tables))
    for i := range c.Tables {
        tableIDs = append(tableIDs, c.Tables[i].ID)
    }
    sort.Slice(tableIDs, func(i, j int) bool { return tableIDs[i] < tableIDs[j] })
    for _, id := range tableIDs {
        t := c.TableByID[id]
        fmt.Fprintf(h, "t|%d|%d|%d|%t|%s\n", t.ID, t.ZoneID, t.Capacity, t.IsActive, t.Status)
    }

    adjacency := make([]string, 0, len(c.Adjacency))
    for id, neighbours := range c.Adjacency {
        ns := append([]uint64(nil), neighbours...)
        sort.Slice(ns, func(i, j int) bool { return ns[i] < ns[j] })
        adjacency = append(adjacency, fmt.Sprintf("a|%d|%v", id, ns))
    }
    sort.Strings(adjacency)
    for _, line := range adjacency {
        fmt.Fprintln(h, line)
    }

    allocations := make([]string, 0, len(c.Allocations))
    for i := range c.Allocations {
        a := &c.Allocations[i]
        if a.BookingID == c.Booking.ID {
            continue
        }
        allocations = append(allocations, fmt.Sprintf("al|%d|%d|%d|%d", a.TableID, a.BookingID, a.StartAt.Unix(), a.EndAt.Unix()))
    }
    sort.Strings(allocations)
    for _, line := range allocations {
        fmt.Fprintln(h, line)
    }

    holds := make([]string, 0, len(c.Holds))
    for i := range c.Holds {
        hd := &c.Holds[i]
        if hd.BookingID == c.Booking.ID {
            continue
        }
        ids := append([]uint64(nil), hd.TableIDs...)
        sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
        holds = append(holds, fmt.Sprintf("h|%s|%v|%d|%d|%d", hd.ID, ids, hd.StartAt.Unix(), hd.EndAt.Unix(), hd.ExpiresAt.Unix()))
    }
    sort.Strings(holds)
    for _, line := range holds {
        fmt.Fprintln(h, line)
    }

    return fmt.Sprintf("%016x", h.Sum64())
}
