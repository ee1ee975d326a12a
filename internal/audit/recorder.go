package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	id "carteret/pkg/domain"
)

// OutboxWriter is the slice of the outbox store the recorder needs.
type OutboxWriter interface {
	Enqueue(ctx context.Context, event *Event) error
}

// Recorder accepts audit events from the serving path. Recording is
// best-effort: a failed enqueue is logged and never fails the action that
// produced it.
type Recorder interface {
	Record(ctx context.Context, action Action, actorID *id.UserID, subjectType, subjectID string, detail map[string]string)
}

type recorder struct {
	outbox OutboxWriter
	logger *slog.Logger
}

// NewRecorder creates a recorder over the given outbox.
func NewRecorder(outbox OutboxWriter, logger *slog.Logger) Recorder {
	return &recorder{outbox: outbox, logger: logger}
}

func (r *recorder) Record(ctx context.Context, action Action, actorID *id.UserID, subjectType, subjectID string, detail map[string]string) {
	event := &Event{
		ID:          uuid.New(),
		Action:      action,
		ActorID:     actorID,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Detail:      detail,
		OccurredAt:  time.Now().UTC(),
	}
	if err := r.outbox.Enqueue(ctx, event); err != nil {
		r.logger.Error("failed to enqueue audit event",
			"action", string(action), "subject_id", subjectID, "error", err)
	}
}

// NopRecorder discards events. Used when auditing is not configured.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Action, *id.UserID, string, string, map[string]string) {}
