// Package selector enumerates and ranks table plans for a booking.
// A plan is a set of one or more tables in a single zone whose
// combined capacity covers the party size.  Singles are enumerated
// first; merges are found by a bounded depth first search over
// capacity sorted candidates so the worst case stays governed by the
// configured limits rather than the size of the floor.
package selector

import (
    "errors"
    "fmt"
    "sort"
    "strconv"
    "strings"

    "github.com/iliyamo/restaurant-table-reservation/internal/availability"
    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// ErrInvalidPartySize is returned for a non-positive party size.  An
// empty result is never an error; callers get a fallback reason
// instead.
var ErrInvalidPartySize = errors.New("party size must be positive")

// Fallback reasons reported when no plan could be produced.
const (
    FallbackNoCapacity        = "no_capacity"
    FallbackAdjacencyUnsolved = "adjacency_unsatisfiable"
)

// Weights are the scoring coefficients.  Lower scores rank first, so
// every term is a penalty.
type Weights struct {
    Waste         float64 // seats over party size
    TableCount    float64 // extra tables beyond the first
    Scarcity      float64 // summed scarcity of the plan's tables
    Fragmentation float64 // wasted share of the plan's capacity
    ZoneBalance   float64 // share of the zone's free tables consumed
    Adjacency     float64 // non adjacent merge penalty (advisory mode)
}

// DefaultWeights mirror the tuning the scoring was shipped with.
func DefaultWeights() Weights {
    return Weights{
        Waste:         1.0,
        TableCount:    0.6,
        Scarcity:      0.8,
        Fragmentation: 0.4,
        ZoneBalance:   0.3,
        Adjacency:     0.5,
    }
}

// Limits bound the combinatorial search.  They are configuration, not
// constants, so worst case cost stays auditable per deployment.
type Limits struct {
    KMax           int // max tables per merge
    MaxWaste       int // max seats over party size for a merge
    MaxPlansPerTier int // max plans kept per waste tier
    MaxEvaluations int // max combinations examined in total
}

// DefaultLimits returns the stock search bounds.
func DefaultLimits() Limits {
    return Limits{KMax: 3, MaxWaste: 4, MaxPlansPerTier: 50, MaxEvaluations: 500}
}

// Metrics carries the per plan scoring inputs so callers can explain
// a ranking.
type Metrics struct {
    Waste         int     `json:"waste"`
    TableCount    int     `json:"table_count"`
    Scarcity      float64 `json:"scarcity"`
    Fragmentation float64 `json:"fragmentation"`
    ZoneBalance   float64 `json:"zone_balance"`
    AdjacencyCost float64 `json:"adjacency_cost"`
}

// Plan is one ranked candidate.  TableIDs are sorted ascending; Key
// is the canonical string form used for dedupe and deterministic tie
// breaking.
type Plan struct {
    Key      string   `json:"key"`
    TableIDs []uint64 `json:"table_ids"`
    ZoneID   uint64   `json:"zone_id"`
    Capacity int      `json:"capacity"`
    IsMerge  bool     `json:"is_merge"`
    Adjacent bool     `json:"adjacent"`
    Score    float64  `json:"score"`
    Metrics  Metrics  `json:"metrics"`
}

// Diagnostics counts why combinations were skipped.  Purely
// informational; useful when a floor yields fewer plans than staff
// expect.
type Diagnostics struct {
    SkippedCapacity  int `json:"skipped_capacity"`
    SkippedOverage   int `json:"skipped_overage"`
    SkippedAdjacency int `json:"skipped_adjacency"`
    SkippedPartyFit  int `json:"skipped_party_fit"`
    SkippedTierFull  int `json:"skipped_tier_full"`
    Evaluations      int `json:"evaluations"`
    EvaluationCapHit bool `json:"evaluation_cap_hit"`
}

// Input bundles everything one Select call needs.  Tables should be
// the restaurant's inventory; the selector filters assignability and
// availability itself.  Scarcity maps table id to its scarcity score
// and may be nil.
type Input struct {
    PartySize        int
    Window           availability.Window
    Tables           []model.Table
    Adjacency        map[uint64][]uint64
    Index            *availability.Index
    Scarcity         map[uint64]float64
    RequireAdjacency bool
    Weights          Weights
    Limits           Limits
}

// Result is the ranked plan list.  When Plans is empty Fallback holds
// a machine readable reason.
type Result struct {
    Plans       []Plan      `json:"plans"`
    Fallback    string      `json:"fallback,omitempty"`
    Diagnostics Diagnostics `json:"diagnostics"`
}

// Select enumerates and ranks plans.  Given identical inputs the
// returned order is identical across calls.
func Select(in Input) (Result, error) {
    if in.PartySize <= 0 {
        return Result{}, fmt.Errorf("%w: got %d", ErrInvalidPartySize, in.PartySize)
    }
    if in.Limits == (Limits{}) {
        in.Limits = DefaultLimits()
    }
    if in.Weights == (Weights{}) {
        in.Weights = DefaultWeights()
    }

    s := &search{in: in, seen: make(map[string]bool), tiers: make(map[int]int)}
    s.collectCandidates()
    s.enumerateSingles()
    s.enumerateMerges()

    res := Result{Plans: s.plans, Diagnostics: s.diag}
    if len(res.Plans) == 0 {
        if s.adjacencyOnlyBlocked {
            res.Fallback = FallbackAdjacencyUnsolved
        } else {
            res.Fallback = FallbackNoCapacity
        }
        return res, nil
    }

    sort.Slice(res.Plans, func(i, j int) bool { return planLess(&res.Plans[i], &res.Plans[j]) })
    return res, nil
}

// planLess is the deterministic ranking: score, then waste, then
// table count, then the sorted table ids compared numerically.
func planLess(a, b *Plan) bool {
    if a.Score != b.Score {
        return a.Score < b.Score
    }
    if a.Metrics.Waste != b.Metrics.Waste {
        return a.Metrics.Waste < b.Metrics.Waste
    }
    if len(a.TableIDs) != len(b.TableIDs) {
        return len(a.TableIDs) < len(b.TableIDs)
    }
    for i := range a.TableIDs {
        if a.TableIDs[i] != b.TableIDs[i] {
            return a.TableIDs[i] < b.TableIDs[i]
        }
    }
    return false
}

type search struct {
    in    Input
    diag  Diagnostics
    plans []Plan
    seen  map[string]bool
    tiers map[int]int

    free       []model.Table
    byZone     map[uint64][]model.Table
    freeInZone map[uint64]int

    // set when at least one capacity-feasible merge was rejected and
    // adjacency was the only reason
    adjacencyOnlyBlocked bool
}

// collectCandidates filters the inventory down to assignable tables
// free for the window and groups them per zone sorted by capacity
// ascending, table id as tiebreak.
func (s *search) collectCandidates() {
    s.byZone = make(map[uint64][]model.Table)
    s.freeInZone = make(map[uint64]int)
    for _, t := range s.in.Tables {
        if !t.Assignable() {
            continue
        }
        if s.in.Index != nil && !s.in.Index.IsFree(t.ID, s.in.Window) {
            continue
        }
        s.free = append(s.free, t)
        s.byZone[t.ZoneID] = append(s.byZone[t.ZoneID], t)
        s.freeInZone[t.ZoneID]++
    }
    for _, zone := range s.byZone {
        sort.Slice(zone, func(i, j int) bool {
            if zone[i].Capacity != zone[j].Capacity {
                return zone[i].Capacity < zone[j].Capacity
            }
            return zone[i].ID < zone[j].ID
        })
    }
}

// partyFits applies the table's own min/max party bounds.  Zero max
// means "up to capacity"; the bound only applies to single table
// plans, a merge is judged on combined capacity.
func partyFits(t *model.Table, party int) bool {
    if t.MinParty > 0 && party < t.MinParty {
        return false
    }
    max := t.MaxParty
    if max <= 0 {
        max = t.Capacity
    }
    return party <= max
}

func (s *search) enumerateSingles() {
    for i := range s.free {
        t := &s.free[i]
        if t.Capacity < s.in.PartySize {
            s.diag.SkippedCapacity++
            continue
        }
        if !partyFits(t, s.in.PartySize) {
            s.diag.SkippedPartyFit++
            continue
        }
        s.addPlan([]model.Table{*t}, t.ZoneID, false)
    }
}

// enumerateMerges runs a depth first search per zone over capacity
// ascending candidates.  Because candidates are sorted ascending the
// search can stop extending a prefix once the next table alone would
// push the combination past the waste cap.
func (s *search) enumerateMerges() {
    if s.in.Limits.KMax < 2 {
        return
    }
    maxCapacity := s.in.PartySize + s.in.Limits.MaxWaste

    zoneIDs := make([]uint64, 0, len(s.byZone))
    for zid := range s.byZone {
        zoneIDs = append(zoneIDs, zid)
    }
    sort.Slice(zoneIDs, func(i, j int) bool { return zoneIDs[i] < zoneIDs[j] })

    for _, zid := range zoneIDs {
        tables := s.byZone[zid]
        if len(tables) < 2 {
            continue
        }
        combo := make([]model.Table, 0, s.in.Limits.KMax)
        s.extend(zid, tables, 0, combo, 0, maxCapacity)
        if s.diag.EvaluationCapHit {
            return
        }
    }
}

func (s *search) extend(zoneID uint64, tables []model.Table, from int, combo []model.Table, capSum, maxCapacity int) {
    for i := from; i < len(tables); i++ {
        if s.diag.Evaluations >= s.in.Limits.MaxEvaluations {
            s.diag.EvaluationCapHit = true
            return
        }
        next := capSum + tables[i].Capacity
        if next > maxCapacity {
            // candidates are capacity ascending; everything after
            // this index only gets bigger
            s.diag.SkippedOverage += len(tables) - i
            return
        }
        combo = append(combo, tables[i])
        if len(combo) >= 2 {
            s.diag.Evaluations++
            if next >= s.in.PartySize {
                s.tryMerge(zoneID, combo, next)
            } else if len(combo) < s.in.Limits.KMax {
                s.extend(zoneID, tables, i+1, combo, next, maxCapacity)
            } else {
                s.diag.SkippedCapacity++
            }
        } else if len(combo) < s.in.Limits.KMax {
            s.extend(zoneID, tables, i+1, combo, next, maxCapacity)
        }
        combo = combo[:len(combo)-1]
        if s.diag.EvaluationCapHit {
            return
        }
    }
}

func (s *search) tryMerge(zoneID uint64, combo []model.Table, capSum int) {
    adjacent := s.connected(combo)
    if s.in.RequireAdjacency && !adjacent {
        s.diag.SkippedAdjacency++
        if len(s.plans) == 0 {
            s.adjacencyOnlyBlocked = true
        }
        return
    }
    s.addPlanAdj(combo, zoneID, true, adjacent, capSum)
}

func (s *search) connected(combo []model.Table) bool {
    ids := make([]uint64, len(combo))
    for i, t := range combo {
        ids[i] = t.ID
    }
    return Connected(ids, s.in.Adjacency)
}

// Connected reports whether the tables form one connected component
// of the adjacency graph, via breadth first search.  Shared with the
// validation path so a selection is judged by the same rule that
// produced it.
func Connected(tableIDs []uint64, adjacency map[uint64][]uint64) bool {
    if len(tableIDs) < 2 {
        return true
    }
    inSet := make(map[uint64]bool, len(tableIDs))
    for _, id := range tableIDs {
        inSet[id] = true
    }
    visited := map[uint64]bool{tableIDs[0]: true}
    queue := []uint64{tableIDs[0]}
    for len(queue) > 0 {
        cur := queue[0]
        queue = queue[1:]
        for _, n := range adjacency[cur] {
            if inSet[n] && !visited[n] {
                visited[n] = true
                queue = append(queue, n)
            }
        }
    }
    return len(visited) == len(tableIDs)
}

func (s *search) addPlan(combo []model.Table, zoneID uint64, merge bool) {
    capSum := 0
    for _, t := range combo {
        capSum += t.Capacity
    }
    s.addPlanAdj(combo, zoneID, merge, true, capSum)
}

func (s *search) addPlanAdj(combo []model.Table, zoneID uint64, merge, adjacent bool, capSum int) {
    ids := make([]uint64, len(combo))
    for i, t := range combo {
        ids[i] = t.ID
    }
    sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
    key := planKey(ids)
    if s.seen[key] {
        return
    }

    waste := capSum - s.in.PartySize
    if s.tiers[waste] >= s.in.Limits.MaxPlansPerTier {
        s.diag.SkippedTierFull++
        return
    }

    var scarcitySum float64
    for _, t := range combo {
        scarcitySum += s.in.Scarcity[t.ID]
    }
    m := Metrics{
        Waste:         waste,
        TableCount:    len(combo),
        Scarcity:      scarcitySum,
        Fragmentation: float64(waste) / float64(capSum),
        ZoneBalance:   float64(len(combo)) / float64(s.freeInZone[zoneID]),
    }
    if merge && !adjacent {
        m.AdjacencyCost = 1
    }
    w := s.in.Weights
    score := w.Waste*float64(m.Waste) +
        w.TableCount*float64(m.TableCount-1) +
        w.Scarcity*m.Scarcity +
        w.Fragmentation*m.Fragmentation +
        w.ZoneBalance*m.ZoneBalance +
        w.Adjacency*m.AdjacencyCost

    s.seen[key] = true
    s.tiers[waste]++
    s.plans = append(s.plans, Plan{
        Key:      key,
        TableIDs: ids,
        ZoneID:   zoneID,
        Capacity: capSum,
        IsMerge:  merge,
        Adjacent: adjacent,
        Score:    score,
        Metrics:  m,
    })
    s.adjacencyOnlyBlocked = false
}

// planKey renders the canonical "id+id+id" form of a sorted id set.
func planKey(ids []uint64) string {
    parts := make([]string, len(ids))
    for i, id := range ids {
        parts[i] = strconv.FormatUint(id, 10)
    }
    return strings.Join(parts, "+")
}
