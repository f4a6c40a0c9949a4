// Package scarcity computes how rare each table "type" is at a
// restaurant.  The selector uses the scores as a penalty so it avoids
// burning a rare table (the only booth, the one large top) on a party
// a common table could seat.  Scores are recomputed by a background
// job and read through a cached snapshot; they are never a source of
// truth for availability.
package scarcity

import (
    "fmt"
    "math"
    "strings"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// Defaults used when a table leaves its descriptive fields empty.
const (
    defaultCategory = "standard"
    defaultSeating  = "indoor"
)

// TableType derives the scarcity grouping key for a table.  The key
// is `capacity:<n>|category:<c>|seating:<s>` with lowercased,
// defaulted components so "Booth" and "booth" land in one bucket.
func TableType(t *model.Table) string {
    category := strings.ToLower(strings.TrimSpace(t.Category))
    if category == "" {
        category = defaultCategory
    }
    seating := strings.ToLower(strings.TrimSpace(t.SeatingType))
    if seating == "" {
        seating = defaultSeating
    }
    return fmt.Sprintf("capacity:%d|category:%s|seating:%s", t.Capacity, category, seating)
}

// Score converts a type's table count into its scarcity score.  One
// of a kind scores 1.0; the score falls off as 1/count, rounded to
// four decimals.
func Score(count int) float64 {
    if count <= 0 {
        return 0
    }
    return round4(1 / float64(count))
}

// HeuristicScore estimates a score for a type with no metric row,
// from the capacity band's assumed demand weight against the
// restaurant's total seat supply.  Small tops see the most demand,
// so they get the heaviest weight.
func HeuristicScore(capacity, seatSupply int) float64 {
    var weight float64
    switch {
    case capacity <= 2:
        weight = 1.6
    case capacity <= 4:
        weight = 0.18
    case capacity <= 6:
        weight = 0.12
    default:
        weight = 0.08
    }
    if seatSupply < 1 {
        seatSupply = 1
    }
    return round4(weight / float64(seatSupply))
}

func round4(v float64) float64 {
    return math.Round(v*10000) / 10000
}

// Compute groups the given tables by type and returns one metric per
// type, for tables that pass the assignability filter.  Output order
// follows first appearance, which keeps recompute upserts stable.
func Compute(restaurantID uint64, tables []model.Table) []model.ScarcityMetric {
    counts := make(map[string]int)
    var order []string
    for i := range tables {
        t := &tables[i]
        if !t.Assignable() {
            continue
        }
        key := TableType(t)
        if counts[key] == 0 {
            order = append(order, key)
        }
        counts[key]++
    }
    metrics := make([]model.ScarcityMetric, 0, len(order))
    for _, key := range order {
        metrics = append(metrics, model.ScarcityMetric{
            RestaurantID: restaurantID,
            TableType:    key,
            Score:        Score(counts[key]),
            TableCount:   counts[key],
        })
    }
    return metrics
}
