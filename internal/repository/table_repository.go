package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// TableRepo provides read access to the table inventory and the
// adjacency graph.  The engine loads both once per assignment
// context; nothing in the assignment flow mutates inventory.
type TableRepo struct {
    db *sql.DB
}

// NewTableRepo returns a new TableRepo bound to the provided database.
func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{db: db} }

// ListTables returns every table of a restaurant, active or not.
// Filtering on assignability happens in the selector so that out of
// service tables still show up in diagnostics.
func (r *TableRepo) ListTables(ctx context.Context, restaurantID uint64) ([]model.Table, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, restaurant_id, zone_id, table_number, capacity, min_party, max_party,
                category, seating_type, mobility, is_active, status, created_at, updated_at
           FROM table_inventory WHERE restaurant_id = ? ORDER BY id`, restaurantID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []model.Table
    for rows.Next() {
        var t model.Table
        if err := rows.Scan(&t.ID, &t.RestaurantID, &t.ZoneID, &t.TableNumber,
            &t.Capacity, &t.MinParty, &t.MaxParty, &t.Category, &t.SeatingType,
            &t.Mobility, &t.IsActive, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
            return nil, err
        }
        out = append(out, t)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// ListAdjacency returns the adjacency pairs of a restaurant.  Pairs
// are stored once per unordered pair; the selector mirrors them.
func (r *TableRepo) ListAdjacency(ctx context.Context, restaurantID uint64) ([]model.Adjacency, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT a.table_id, a.adjacent_table_id
           FROM table_adjacency a
           JOIN table_inventory t ON t.id = a.table_id
          WHERE t.restaurant_id = ?
          ORDER BY a.table_id, a.adjacent_table_id`, restaurantID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []model.Adjacency
    for rows.Next() {
        var a model.Adjacency
        if err := rows.Scan(&a.TableID, &a.AdjacentID); err != nil {
            return nil, err
        }
        out = append(out, a)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}
