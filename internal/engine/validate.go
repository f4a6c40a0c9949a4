package engine

import (
    "context"
    "fmt"
    "strings"

    "github.com/iliyamo/restaurant-table-reservation/internal/availability"
    "github.com/iliyamo/restaurant-table-reservation/internal/commit"
    "github.com/iliyamo/restaurant-table-reservation/internal/selector"
)

// Check is one validation rule outcome.
type Check struct {
    Name   string `json:"name"`
    OK     bool   `json:"ok"`
    Detail string `json:"detail,omitempty"`
}

// Check names, stable for machine consumption.
const (
    CheckTablesKnown  = "tables_known"
    CheckCapacity     = "capacity"
    CheckZone         = "zone"
    CheckAdjacency    = "adjacency"
    CheckAvailability = "availability"
)

// ValidationResult is the dry-run verdict for a selection.  Conflicts
// carries the blocking claims when the availability check fails so
// staff can see who holds the tables.
type ValidationResult struct {
    OK             bool                      `json:"ok"`
    Checks         []Check                   `json:"checks"`
    Summary        string                    `json:"summary"`
    Conflicts      []availability.BusyWindow `json:"conflicts,omitempty"`
    ContextVersion string                    `json:"context_version"`
}

// Validate loads the booking's context and judges the selection
// against it.  requireAdjacency overrides the restaurant policy when
// non-nil.
func (e *Engine) Validate(ctx context.Context, bookingID uint64, tableIDs []uint64, requireAdjacency *bool) (*ValidationResult, error) {
    c, err := e.LoadContext(ctx, bookingID)
    if err != nil {
        return nil, err
    }
    return e.ValidateSelection(c, tableIDs, requireAdjacency), nil
}

// ValidateSelection runs the rule checks over an already loaded
// context.  The same checks back the session's propose path and the
// direct commit strategy, so a selection cannot pass one layer and
// fail another for a different reason.
func (e *Engine) ValidateSelection(c *Context, tableIDs []uint64, requireAdjacency *bool) *ValidationResult {
    res := &ValidationResult{OK: true, ContextVersion: c.Version}

    if len(tableIDs) == 0 {
        res.OK = false
        res.Checks = append(res.Checks, Check{Name: CheckTablesKnown, OK: false, Detail: "selection is empty"})
        res.Summary = "selection is empty"
        return res
    }

    var unknown []string
    var capacitySum int
    zones := make(map[uint64]bool)
    for _, id := range tableIDs {
        t, ok := c.TableByID[id]
        if !ok || !t.Assignable() {
            unknown = append(unknown, fmt.Sprint(id))
            continue
        }
        capacitySum += t.Capacity
        zones[t.ZoneID] = true
    }
    if len(unknown) > 0 {
        res.Checks = append(res.Checks, Check{
            Name:   CheckTablesKnown,
            OK:     false,
            Detail: "unknown or unavailable tables: " + strings.Join(unknown, ", "),
        })
        res.OK = false
    } else {
        res.Checks = append(res.Checks, Check{Name: CheckTablesKnown, OK: true})
    }

    if capacitySum < c.Booking.PartySize {
        res.Checks = append(res.Checks, Check{
            Name:   CheckCapacity,
            OK:     false,
            Detail: fmt.Sprintf("capacity %d is below party size %d", capacitySum, c.Booking.PartySize),
        })
        res.OK = false
    } else {
        res.Checks = append(res.Checks, Check{Name: CheckCapacity, OK: true})
    }

    if len(zones) > 1 {
        res.Checks = append(res.Checks, Check{Name: CheckZone, OK: false, Detail: "selection spans multiple zones"})
        res.OK = false
    } else {
        res.Checks = append(res.Checks, Check{Name: CheckZone, OK: true})
    }

    adjacencyRequired := c.Restaurant != nil && c.Restaurant.RequireAdjacency
    if requireAdjacency != nil {
        adjacencyRequired = *requireAdjacency
    }
    if adjacencyRequired && len(tableIDs) > 1 && !selector.Connected(tableIDs, c.Adjacency) {
        res.Checks = append(res.Checks, Check{Name: CheckAdjacency, OK: false, Detail: "tables are not physically adjacent"})
        res.OK = false
    } else {
        res.Checks = append(res.Checks, Check{Name: CheckAdjacency, OK: true})
    }

    if conflicts := c.Index.ConflictsFor(tableIDs, c.Window); len(conflicts) > 0 {
        res.Conflicts = conflicts
        res.Checks = append(res.Checks, Check{
            Name:   CheckAvailability,
            OK:     false,
            Detail: fmt.Sprintf("%d conflicting claims on the requested tables", len(conflicts)),
        })
        res.OK = false
    } else {
        res.Checks = append(res.Checks, Check{Name: CheckAvailability, OK: true})
    }

    if res.OK {
        res.Summary = "selection is valid"
    } else {
        var failed []string
        for _, check := range res.Checks {
            if !check.OK {
                failed = append(failed, check.Name)
            }
        }
        res.Summary = "failed checks: " + strings.Join(failed, ", ")
    }
    return res
}

// ValidateCommit lets the engine stand in as the direct commit
// strategy's validator.  Conflicts and rule failures come back as
// the commit taxonomy so the strategy never inspects check lists.
func (e *Engine) ValidateCommit(ctx context.Context, req commit.Request) error {
    c, err := e.LoadContext(ctx, req.BookingID)
    if err != nil {
        return &commit.RepositoryError{Message: "load assignment context", Cause: err}
    }
    res := e.ValidateSelection(c, req.TableIDs, &req.RequireAdjacency)
    if res.OK {
        return nil
    }
    if len(res.Conflicts) > 0 {
        return &commit.ConflictError{Message: res.Summary}
    }
    return &commit.ValidationError{Message: res.Summary}
}
