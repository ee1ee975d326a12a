package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"carteret/internal/identity"
	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
)

// PostgresStore is a PostgreSQL-backed UserStore.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a user store backed by the given database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, user *identity.User) error {
	query := `
		INSERT INTO users (id, email, full_name, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`

	res, err := s.db.ExecContext(ctx, query, user.ID.String(), user.Email, user.FullName, string(user.Role))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to insert user")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check insert result")
	}
	if rows == 0 {
		return dErrors.New(dErrors.CodeConflict, "user already exists")
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*identity.User, error) {
	query := `
		SELECT id, email, full_name, role, created_at, updated_at
		FROM users
		WHERE id = $1`

	row := s.db.QueryRowContext(ctx, query, userID.String())
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find user")
	}
	return user, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]*identity.User, error) {
	query := `
		SELECT id, email, full_name, role, created_at, updated_at
		FROM users
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	defer rows.Close()

	var users []*identity.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to scan user")
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to iterate users")
	}
	return users, nil
}

func (s *PostgresStore) UpdateRole(ctx context.Context, userID id.UserID, role identity.Role) error {
	query := `
		UPDATE users
		SET role = $2, updated_at = NOW()
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, userID.String(), string(role))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update role")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check update result")
	}
	if rows == 0 {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID.String())
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return dErrors.Wrap(err, dErrors.CodeConflict, "user is still referenced")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete user")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check delete result")
	}
	if rows == 0 {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*identity.User, error) {
	var (
		user    identity.User
		rawID   string
		rawRole string
	)
	if err := row.Scan(&rawID, &user.Email, &user.FullName, &rawRole, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}

	userID, err := id.ParseUserID(rawID)
	if err != nil {
		return nil, err
	}
	role, err := identity.ParseRole(rawRole)
	if err != nil {
		return nil, err
	}
	user.ID = userID
	user.Role = role
	return &user, nil
}
