package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// UserRepo provides access to staff accounts.  Only the login flow
// reads this table; everything downstream works from the JWT claims.
type UserRepo struct {
    db *sql.DB
}

// NewUserRepo returns a new UserRepo bound to the provided database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// GetByEmail fetches an active user by email along with the resolved
// role name.  It returns (nil, nil) when the email is unknown or the
// account is disabled.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT u.id, u.email, u.password_hash, r.name, u.role_id, u.is_active, u.created_at, u.updated_at
           FROM users u
           JOIN roles r ON r.id = u.role_id
          WHERE u.email = ? AND u.is_active = 1`, email)
    var u model.User
    if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.RoleID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
        if err == sql.ErrNoRows {
            return nil, nil
        }
        return nil, err
    }
    return &u, nil
}
