package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"holidayrent/internal/domain"
	"holidayrent/internal/models"

	"github.com/google/uuid"
)

const userColumns = `id, email, first_name, last_name, phone, password_hash, role, is_active, created_at, updated_at`

func scanUser(row scanner) (*models.User, error) {
	var (
		u     models.User
		phone sql.NullString
		role  string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &phone, &u.PasswordHash, &role,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if u.Role, err = models.ParseRole(role); err != nil {
		return nil, fmt.Errorf("user %s: %w", u.ID, err)
	}
	u.Phone = stringPtr(phone)
	return &u, nil
}

func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := db.now()
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.FirstName, u.LastName, nullString(u.Phone), u.PasswordHash, string(u.Role),
		u.IsActive, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Errorf(domain.ErrConflict, "email already registered")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return db.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (db *DB) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Errorf(domain.ErrNotFound, "user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (db *DB) UpdateUserProfile(ctx context.Context, id string, patch models.ProfilePatch) error {
	var set setClause
	if v, ok := patch.FirstName.Get(); ok {
		set.add("first_name", v)
	}
	if v, ok := patch.LastName.Get(); ok {
		set.add("last_name", v)
	}
	if v, ok := patch.Phone.Get(); ok {
		set.add("phone", nullString(v))
	}
	set.add("updated_at", db.now())
	return db.execUpdate(ctx, "users", id, set, "user")
}
