package identity

import (
	"context"
	"log/slog"
	"time"

	"carteret/internal/platform/metrics"
	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
)

// UserStore is the slice of persistence the resolver needs. The full
// interface lives in the store subpackage.
type UserStore interface {
	Insert(ctx context.Context, user *User) error
	FindByID(ctx context.Context, userID id.UserID) (*User, error)
}

// Resolver turns a provider principal into a full Identity by joining it
// with the durable role record, creating the record on first sign-in.
//
// Role lookup failures never surface as errors: a signed-in principal whose
// record cannot be read resolves with role "user". Absence of an identity is
// expressed only by a nil principal in, nil identity out.
type Resolver struct {
	users   UserStore
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewResolver creates a resolver over the given role-record store.
func NewResolver(users UserStore, logger *slog.Logger, m *metrics.Metrics) *Resolver {
	return &Resolver{
		users:   users,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Resolve joins the principal with its role record. A nil principal resolves
// to a nil identity with no error.
func (r *Resolver) Resolve(ctx context.Context, principal *Principal) (*Identity, error) {
	if principal == nil {
		r.metrics.IdentityResolutions.WithLabelValues("absent").Inc()
		return nil, nil
	}

	role := r.lookupRole(ctx, principal)

	return &Identity{
		ID:         principal.ID,
		Email:      principal.Email,
		Phone:      principal.Phone,
		Role:       role,
		ResolvedAt: r.now().UTC(),
	}, nil
}

func (r *Resolver) lookupRole(ctx context.Context, principal *Principal) Role {
	user, err := r.users.FindByID(ctx, principal.ID)
	if err == nil {
		r.metrics.IdentityResolutions.WithLabelValues("resolved").Inc()
		return user.Role
	}

	if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		r.logger.Warn("role lookup failed, using default role",
			"user_id", principal.ID.String(), "error", err)
		r.metrics.IdentityResolutions.WithLabelValues("degraded").Inc()
		return RoleUser
	}

	// First sign-in: create the record with the default role. A concurrent
	// resolver may win the insert; the loser re-reads and uses what it finds.
	insertErr := r.users.Insert(ctx, &User{
		ID:       principal.ID,
		Email:    principal.Email,
		FullName: "",
		Role:     RoleUser,
	})
	switch {
	case insertErr == nil:
		r.metrics.RoleRecordsCreated.Inc()
		r.metrics.IdentityResolutions.WithLabelValues("resolved").Inc()
		return RoleUser
	case dErrors.HasCode(insertErr, dErrors.CodeConflict):
		user, err := r.users.FindByID(ctx, principal.ID)
		if err != nil {
			r.logger.Warn("role re-read after insert race failed, using default role",
				"user_id", principal.ID.String(), "error", err)
			r.metrics.IdentityResolutions.WithLabelValues("degraded").Inc()
			return RoleUser
		}
		r.metrics.IdentityResolutions.WithLabelValues("resolved").Inc()
		return user.Role
	default:
		r.logger.Warn("role record creation failed, using default role",
			"user_id", principal.ID.String(), "error", insertErr)
		r.metrics.IdentityResolutions.WithLabelValues("degraded").Inc()
		return RoleUser
	}
}
