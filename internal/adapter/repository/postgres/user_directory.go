package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/finflow-backend/internal/domain"
)

// UserDirectory resolves notification targets and contacts from the users table
type UserDirectory struct {
	db *DB
}

// NewUserDirectory creates a new user directory
func NewUserDirectory(db *DB) *UserDirectory {
	return &UserDirectory{db: db}
}

// ResolveAssigned returns the tracker's assigned user
func (d *UserDirectory) ResolveAssigned(ctx context.Context, trackerID uuid.UUID) (uuid.UUID, error) {
	return d.single(ctx, `SELECT assigned_to FROM financing_trackers WHERE id = $1`, trackerID, "financing tracker")
}

// ResolveDepartmentManagers returns the active managers of dept
func (d *UserDirectory) ResolveDepartmentManagers(ctx context.Context, dept domain.Department) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM users
		WHERE department = $1 AND role = $2 AND is_active
		ORDER BY name
	`
	return d.many(ctx, query, string(dept), string(domain.RoleManager))
}

// ResolveDepartmentMembers returns every active user of dept
func (d *UserDirectory) ResolveDepartmentMembers(ctx context.Context, dept domain.Department) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM users
		WHERE department = $1 AND is_active
		ORDER BY name
	`
	return d.many(ctx, query, string(dept))
}

// ResolveMarketer returns the reservation's marketer
func (d *UserDirectory) ResolveMarketer(ctx context.Context, reservationID uuid.UUID) (uuid.UUID, error) {
	return d.single(ctx, `SELECT marketer_id FROM reservations WHERE id = $1`, reservationID, "reservation")
}

// GetContact returns a user's delivery addresses
func (d *UserDirectory) GetContact(ctx context.Context, userID uuid.UUID) (*domain.Contact, error) {
	query := `SELECT id, email, phone FROM users WHERE id = $1`

	var c domain.Contact
	err := d.db.conn(ctx).QueryRowContext(ctx, query, userID).Scan(&c.UserID, &c.Email, &c.Phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError("user", userID)
		}
		return nil, fmt.Errorf("failed to get user contact: %w", err)
	}
	return &c, nil
}

func (d *UserDirectory) single(ctx context.Context, query string, id uuid.UUID, entity string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := d.db.conn(ctx).QueryRowContext(ctx, query, id).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, domain.NotFoundError(entity, id)
		}
		return uuid.Nil, fmt.Errorf("failed to resolve %s user: %w", entity, err)
	}
	return userID, nil
}

func (d *UserDirectory) many(ctx context.Context, query string, args ...interface{}) ([]uuid.UUID, error) {
	rows, err := d.db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	ids, err := scanIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan users: %w", err)
	}
	return ids, nil
}
