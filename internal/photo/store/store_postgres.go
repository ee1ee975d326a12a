package store

import (
	"context"
	"database/sql"

	"carteret/internal/photo"
	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
)

// PostgresStore is a PostgreSQL-backed PhotoStore.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, p *photo.Photo) error {
	query := `
		INSERT INTO photos (id, listing_id, storage_path, content_type, is_primary)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.ExecContext(ctx, query,
		p.ID.String(), p.ListingID.String(), p.StoragePath, p.ContentType, p.IsPrimary)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to insert photo")
	}
	return nil
}

func (s *PostgresStore) ListByListing(ctx context.Context, listingID id.ListingID) ([]*photo.Photo, error) {
	query := `
		SELECT id, listing_id, storage_path, content_type, is_primary, created_at
		FROM photos
		WHERE listing_id = $1
		ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, listingID.String())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list photos")
	}
	defer rows.Close()

	var photos []*photo.Photo
	for rows.Next() {
		var (
			p            photo.Photo
			rawID        string
			rawListingID string
		)
		if err := rows.Scan(&rawID, &rawListingID, &p.StoragePath, &p.ContentType, &p.IsPrimary, &p.CreatedAt); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to scan photo")
		}
		if p.ID, err = id.ParsePhotoID(rawID); err != nil {
			return nil, err
		}
		if p.ListingID, err = id.ParseListingID(rawListingID); err != nil {
			return nil, err
		}
		photos = append(photos, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to iterate photos")
	}
	return photos, nil
}

func (s *PostgresStore) DeleteByListing(ctx context.Context, listingID id.ListingID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM photos WHERE listing_id = $1`, listingID.String()); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete photos")
	}
	return nil
}
