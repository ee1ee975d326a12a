package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"carteret/internal/audit"
	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
)

// PostgresStore persists audit events in the audit_outbox table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Enqueue(ctx context.Context, event *audit.Event) error {
	detail, err := json.Marshal(event.Detail)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode audit detail")
	}

	var actorID any
	if event.ActorID != nil {
		actorID = event.ActorID.String()
	}

	query := `
		INSERT INTO audit_outbox (id, action, actor_id, subject_type, subject_id, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`

	_, err = s.db.ExecContext(ctx, query,
		event.ID, string(event.Action), actorID, event.SubjectType, event.SubjectID, detail, event.OccurredAt)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to enqueue audit event")
	}
	return nil
}

func (s *PostgresStore) FetchUnpublished(ctx context.Context, limit int) ([]*audit.Event, error) {
	query := `
		SELECT id, action, actor_id, subject_type, subject_id, detail, occurred_at
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY occurred_at
		LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch audit events")
	}
	defer rows.Close()

	var events []*audit.Event
	for rows.Next() {
		var (
			event   audit.Event
			action  string
			actorID sql.NullString
			detail  []byte
		)
		if err := rows.Scan(&event.ID, &action, &actorID, &event.SubjectType, &event.SubjectID, &detail, &event.OccurredAt); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to scan audit event")
		}
		event.Action = audit.Action(action)
		if actorID.Valid {
			parsed, err := id.ParseUserID(actorID.String)
			if err != nil {
				return nil, err
			}
			event.ActorID = &parsed
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &event.Detail); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode audit detail")
			}
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to iterate audit events")
	}
	return events, nil
}

func (s *PostgresStore) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		UPDATE audit_outbox
		SET published_at = NOW()
		WHERE id = ANY($1)`

	if _, err := s.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark audit events published")
	}
	return nil
}
