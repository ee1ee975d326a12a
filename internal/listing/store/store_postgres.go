package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"carteret/internal/listing"
	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
)

const foreignKeyViolation = "23503"

// PostgresStore is a PostgreSQL-backed ListingStore.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const listingColumns = `id, name, description, city, address_line1, phone, website, email,
	hours, attributes, price_level, status, badge, owner_id, created_at, updated_at`

func (s *PostgresStore) Insert(ctx context.Context, l *listing.Listing) error {
	hours, err := json.Marshal(l.Hours)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode listing hours")
	}
	attributes, err := json.Marshal(l.Attributes)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode listing attributes")
	}

	var ownerID any
	if l.OwnerID != nil {
		ownerID = l.OwnerID.String()
	}

	query := `
		INSERT INTO listings (id, name, description, city, address_line1, phone, website, email,
			hours, attributes, price_level, status, badge, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = s.db.ExecContext(ctx, query,
		l.ID.String(), l.Name, l.Description, l.City, l.AddressLine1, l.Phone, l.Website, l.Email,
		hours, attributes, l.PriceLevel, string(l.Status), string(l.Badge), ownerID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			// The owner row is gone: the submitting session refers to an
			// account the server no longer knows.
			return dErrors.Wrap(err, dErrors.CodeStaleSession, "listing owner does not exist")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to insert listing")
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, listingID id.ListingID) (*listing.Listing, error) {
	query := fmt.Sprintf(`SELECT %s FROM listings WHERE id = $1`, listingColumns)

	row := s.db.QueryRowContext(ctx, query, listingID.String())
	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dErrors.New(dErrors.CodeNotFound, "listing not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find listing")
	}
	return l, nil
}

func (s *PostgresStore) List(ctx context.Context, filter listing.Filter) ([]*listing.Listing, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.City != "" {
		args = append(args, filter.City)
		conds = append(conds, fmt.Sprintf("LOWER(city) = LOWER($%d)", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM listings`, listingColumns)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list listings")
	}
	defer rows.Close()

	var listings []*listing.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to scan listing")
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to iterate listings")
	}
	return listings, nil
}

// UpdateStatus applies a status move only when the row still holds the
// expected status. A zero row count means either the row vanished or another
// writer got there first; the re-read distinguishes the two.
func (s *PostgresStore) UpdateStatus(ctx context.Context, listingID id.ListingID, from, to listing.Status) error {
	query := `
		UPDATE listings
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`

	res, err := s.db.ExecContext(ctx, query, listingID.String(), string(from), string(to))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update listing status")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check status update result")
	}
	if rows == 0 {
		current, findErr := s.FindByID(ctx, listingID)
		if findErr != nil {
			return findErr
		}
		return dErrors.Newf(dErrors.CodeConflict, "listing is %s, expected %s", current.Status, from)
	}
	return nil
}

func (s *PostgresStore) SetBadge(ctx context.Context, listingID id.ListingID, badge listing.Badge) error {
	query := `
		UPDATE listings
		SET badge = $2, updated_at = NOW()
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, listingID.String(), string(badge))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set listing badge")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check badge update result")
	}
	if rows == 0 {
		return dErrors.New(dErrors.CodeNotFound, "listing not found")
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, listingID id.ListingID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM listings WHERE id = $1`, listingID.String())
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete listing")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check delete result")
	}
	if rows == 0 {
		return dErrors.New(dErrors.CodeNotFound, "listing not found")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*listing.Listing, error) {
	var (
		l          listing.Listing
		rawID      string
		hours      []byte
		attributes []byte
		rawStatus  string
		rawBadge   string
		ownerID    sql.NullString
	)
	err := row.Scan(&rawID, &l.Name, &l.Description, &l.City, &l.AddressLine1, &l.Phone,
		&l.Website, &l.Email, &hours, &attributes, &l.PriceLevel, &rawStatus, &rawBadge, &ownerID,
		&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}

	listingID, err := id.ParseListingID(rawID)
	if err != nil {
		return nil, err
	}
	l.ID = listingID

	if l.Status, err = listing.ParseStatus(rawStatus); err != nil {
		return nil, err
	}
	if l.Badge, err = listing.ParseBadge(rawBadge); err != nil {
		return nil, err
	}
	if len(hours) > 0 {
		if err := json.Unmarshal(hours, &l.Hours); err != nil {
			return nil, fmt.Errorf("decode listing hours: %w", err)
		}
	}
	if len(attributes) > 0 {
		if err := json.Unmarshal(attributes, &l.Attributes); err != nil {
			return nil, fmt.Errorf("decode listing attributes: %w", err)
		}
	}
	if ownerID.Valid {
		parsed, err := id.ParseUserID(ownerID.String)
		if err != nil {
			return nil, err
		}
		l.OwnerID = &parsed
	}
	return &l, nil
}
