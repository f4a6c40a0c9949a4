package model

import "time"

// Table operational statuses.  OUT_OF_SERVICE tables remain in the
// inventory but are excluded from assignment, same as inactive ones.
const (
    TableStatusAvailable    = "AVAILABLE"
    TableStatusOutOfService = "OUT_OF_SERVICE"
)

// Zone represents a row in the `zones` table.  Zones partition a
// restaurant floor into areas such as "main dining", "patio" or
// "bar".  Combination plans never span more than one zone, so the
// zone is the unit of locality for table assignment.
//
// Fields:
//  ID           - primary key identifier of the zone.
//  RestaurantID - restaurant the zone belongs to.
//  Name         - human readable zone name, unique per restaurant.
//  IsActive     - whether tables in this zone may be assigned.
//  CreatedAt    - timestamp of creation.
type Zone struct {
    ID           uint64    // zones.id
    RestaurantID uint64    // zones.restaurant_id
    Name         string    // zones.name
    IsActive     bool      // zones.is_active
    CreatedAt    time.Time // zones.created_at
}

// Table represents a physical table in the `table_inventory` table.
// Capacity is the number of seats; Category and SeatingType describe
// the kind of table and are also the inputs for the scarcity type key.
// MinParty and MaxParty bound the party sizes the table accepts on its
// own; zero means unbounded.
//
// Fields:
//  ID           - primary key identifier of the table.
//  RestaurantID - owning restaurant.
//  ZoneID       - zone the table sits in.
//  TableNumber  - stable human readable key (e.g. "T12", "B3").
//  Capacity     - number of seats at the table.
//  MinParty     - smallest party the table may be used for (0 = any).
//  MaxParty     - largest party the table may be used for (0 = capacity).
//  Category     - table category (e.g. "standard", "booth", "bar").
//  SeatingType  - seating style (e.g. "indoor", "outdoor").
//  Mobility     - "MOVABLE" or "FIXED"; informational to the engine.
//  IsActive     - inactive tables are excluded from assignment.
//  Status       - operational status (Available/OutOfService).
//  CreatedAt    - timestamp of creation.
//  UpdatedAt    - timestamp of last update.
type Table struct {
    ID           uint64    // table_inventory.id
    RestaurantID uint64    // table_inventory.restaurant_id
    ZoneID       uint64    // table_inventory.zone_id
    TableNumber  string    // table_inventory.table_number
    Capacity     int       // table_inventory.capacity
    MinParty     int       // table_inventory.min_party
    MaxParty     int       // table_inventory.max_party
    Category     string    // table_inventory.category
    SeatingType  string    // table_inventory.seating_type
    Mobility     string    // table_inventory.mobility
    IsActive     bool      // table_inventory.is_active
    Status       string    // table_inventory.status
    CreatedAt    time.Time // table_inventory.created_at
    UpdatedAt    time.Time // table_inventory.updated_at
}

// Assignable reports whether the table may appear in a plan at all.
// Both the active flag and the operational status must allow it.
func (t *Table) Assignable() bool {
    return t.IsActive && t.Status != TableStatusOutOfService
}

// Adjacency represents a row in the `table_adjacency` table.  Each
// row declares that two tables can be physically joined or seated
// together.  The relation is stored once per unordered pair; readers
// should treat it as symmetric.
//
// Fields:
//  TableID    - first table of the pair.
//  AdjacentID - second table of the pair.
type Adjacency struct {
    TableID    uint64 // table_adjacency.table_id
    AdjacentID uint64 // table_adjacency.adjacent_table_id
}
