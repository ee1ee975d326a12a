// Package store defines persistence for role records. Stores are pure I/O;
// the create-on-first-use race handling lives in the resolver.
package store

import (
	"context"

	"carteret/internal/identity"
	id "carteret/pkg/domain"
)

// UserStore persists role records.
//
// Insert must be safe under concurrent creation of the same identifier: the
// second writer receives CodeConflict and nothing is overwritten. FindByID
// returns CodeNotFound for unknown identifiers so the resolver can
// distinguish "create one" from "degrade gracefully".
type UserStore interface {
	Insert(ctx context.Context, user *identity.User) error
	FindByID(ctx context.Context, userID id.UserID) (*identity.User, error)
	List(ctx context.Context, limit int) ([]*identity.User, error)
	UpdateRole(ctx context.Context, userID id.UserID, role identity.Role) error
	Delete(ctx context.Context, userID id.UserID) error
}
