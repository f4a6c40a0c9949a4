package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// ScarcityRepo persists per-restaurant scarcity metrics.  The
// recompute job upserts one row per table type and prunes rows for
// types that disappeared from the inventory.
type ScarcityRepo struct {
    db *sql.DB
}

// NewScarcityRepo returns a new ScarcityRepo bound to the provided database.
func NewScarcityRepo(db *sql.DB) *ScarcityRepo { return &ScarcityRepo{db: db} }

// ListMetrics returns the stored metrics of one restaurant.
func (r *ScarcityRepo) ListMetrics(ctx context.Context, restaurantID uint64) ([]model.ScarcityMetric, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT restaurant_id, table_type, scarcity_score, table_count, computed_at
           FROM scarcity_metrics WHERE restaurant_id = ? ORDER BY table_type`, restaurantID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []model.ScarcityMetric
    for rows.Next() {
        var m model.ScarcityMetric
        if err := rows.Scan(&m.RestaurantID, &m.TableType, &m.Score, &m.TableCount, &m.ComputedAt); err != nil {
            return nil, err
        }
        out = append(out, m)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// UpsertMetrics writes the metrics, overwriting rows that already
// exist for the same (restaurant, table type).
func (r *ScarcityRepo) UpsertMetrics(ctx context.Context, metrics []model.ScarcityMetric) error {
    if len(metrics) == 0 {
        return nil
    }
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    defer tx.Rollback()

    for _, m := range metrics {
        if _, err = tx.ExecContext(ctx,
            `INSERT INTO scarcity_metrics (restaurant_id, table_type, scarcity_score, table_count, computed_at)
             VALUES (?, ?, ?, ?, ?)
             ON DUPLICATE KEY UPDATE scarcity_score = VALUES(scarcity_score),
                                     table_count = VALUES(table_count),
                                     computed_at = VALUES(computed_at)`,
            m.RestaurantID, m.TableType, m.Score, m.TableCount, m.ComputedAt.UTC()); err != nil {
            return err
        }
    }
    return tx.Commit()
}

// DeleteMetricsExcept removes metrics of the restaurant whose table
// type is not in keepTypes.  An empty keepTypes clears them all.
func (r *ScarcityRepo) DeleteMetricsExcept(ctx context.Context, restaurantID uint64, keepTypes []string) error {
    if len(keepTypes) == 0 {
        _, err := r.db.ExecContext(ctx,
            `DELETE FROM scarcity_metrics WHERE restaurant_id = ?`, restaurantID)
        return err
    }
    placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keepTypes)), ",")
    args := make([]interface{}, 0, len(keepTypes)+1)
    args = append(args, restaurantID)
    for _, t := range keepTypes {
        args = append(args, t)
    }
    _, err := r.db.ExecContext(ctx,
        `DELETE FROM scarcity_metrics WHERE restaurant_id = ? AND table_type NOT IN (`+placeholders+`)`,
        args...)
    return err
}
