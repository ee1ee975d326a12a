package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"carteret/internal/verification"
	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
)

const foreignKeyViolation = "23503"

// PostgresStore is a PostgreSQL-backed VerificationStore.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, v *verification.Verification) error {
	query := `
		INSERT INTO verifications (id, listing_id, requester_id, entity_type, notes, document_paths, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.ExecContext(ctx, query,
		v.ID.String(), v.ListingID.String(), v.RequesterID.String(),
		v.EntityType, v.Notes, pq.Array(v.DocumentPaths), string(v.Status))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			if pqErr.Constraint == "verifications_requester_id_fkey" {
				return dErrors.Wrap(err, dErrors.CodeStaleSession, "requester does not exist")
			}
			return dErrors.Wrap(err, dErrors.CodeNotFound, "listing not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to insert verification")
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, verificationID id.VerificationID) (*verification.Verification, error) {
	query := `
		SELECT id, listing_id, requester_id, entity_type, notes, document_paths,
			status, reviewer_id, reviewed_at, created_at
		FROM verifications
		WHERE id = $1`

	row := s.db.QueryRowContext(ctx, query, verificationID.String())
	v, err := scanVerification(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dErrors.New(dErrors.CodeNotFound, "verification not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find verification")
	}
	return v, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]*verification.Verification, error) {
	query := `
		SELECT id, listing_id, requester_id, entity_type, notes, document_paths,
			status, reviewer_id, reviewed_at, created_at
		FROM verifications
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list verifications")
	}
	defer rows.Close()

	var verifications []*verification.Verification
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to scan verification")
		}
		verifications = append(verifications, v)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to iterate verifications")
	}
	return verifications, nil
}

// Approve decides the request and flips the listing badge in one
// transaction. Either both rows change or neither does.
func (s *PostgresStore) Approve(ctx context.Context, verificationID id.VerificationID, reviewerID id.UserID, reviewedAt time.Time) (id.ListingID, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return id.ListingID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	var rawListingID string
	err = tx.QueryRowContext(ctx, `
		UPDATE verifications
		SET status = $2, reviewer_id = $3, reviewed_at = $4
		WHERE id = $1 AND status = $5
		RETURNING listing_id`,
		verificationID.String(), string(verification.StatusApproved),
		reviewerID.String(), reviewedAt, string(verification.StatusSubmitted),
	).Scan(&rawListingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return id.ListingID{}, s.decideConflict(ctx, verificationID)
		}
		return id.ListingID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to approve verification")
	}

	listingID, err := id.ParseListingID(rawListingID)
	if err != nil {
		return id.ListingID{}, err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE listings SET badge = 'verified', updated_at = NOW() WHERE id = $1`,
		rawListingID)
	if err != nil {
		return id.ListingID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to set listing badge")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return id.ListingID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check badge update result")
	}
	if rows == 0 {
		return id.ListingID{}, dErrors.New(dErrors.CodeNotFound, "listing not found")
	}

	if err := tx.Commit(); err != nil {
		return id.ListingID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit approval")
	}
	return listingID, nil
}

func (s *PostgresStore) Reject(ctx context.Context, verificationID id.VerificationID, reviewerID id.UserID, notes string, reviewedAt time.Time) error {
	query := `
		UPDATE verifications
		SET status = $2, reviewer_id = $3, reviewed_at = $4,
			notes = CASE WHEN $5 = '' THEN notes ELSE $5 END
		WHERE id = $1 AND status = $6`

	res, err := s.db.ExecContext(ctx, query,
		verificationID.String(), string(verification.StatusRejected),
		reviewerID.String(), reviewedAt, notes, string(verification.StatusSubmitted))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reject verification")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check rejection result")
	}
	if rows == 0 {
		return s.decideConflict(ctx, verificationID)
	}
	return nil
}

// decideConflict distinguishes a vanished request from one already decided.
func (s *PostgresStore) decideConflict(ctx context.Context, verificationID id.VerificationID) error {
	current, err := s.FindByID(ctx, verificationID)
	if err != nil {
		return err
	}
	return dErrors.Newf(dErrors.CodeConflict, "verification is already %s", current.Status)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVerification(row rowScanner) (*verification.Verification, error) {
	var (
		v              verification.Verification
		rawID          string
		rawListingID   string
		rawRequesterID string
		rawStatus      string
		docs           pq.StringArray
		reviewerID     sql.NullString
		reviewedAt     sql.NullTime
	)
	err := row.Scan(&rawID, &rawListingID, &rawRequesterID, &v.EntityType, &v.Notes,
		&docs, &rawStatus, &reviewerID, &reviewedAt, &v.CreatedAt)
	if err != nil {
		return nil, err
	}

	if v.ID, err = id.ParseVerificationID(rawID); err != nil {
		return nil, err
	}
	if v.ListingID, err = id.ParseListingID(rawListingID); err != nil {
		return nil, err
	}
	if v.RequesterID, err = id.ParseUserID(rawRequesterID); err != nil {
		return nil, err
	}
	if v.Status, err = verification.ParseStatus(rawStatus); err != nil {
		return nil, err
	}
	v.DocumentPaths = []string(docs)
	if reviewerID.Valid {
		parsed, err := id.ParseUserID(reviewerID.String)
		if err != nil {
			return nil, err
		}
		v.ReviewerID = &parsed
	}
	if reviewedAt.Valid {
		ts := reviewedAt.Time
		v.ReviewedAt = &ts
	}
	return &v, nil
}
