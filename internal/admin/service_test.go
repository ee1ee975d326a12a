package admin_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carteret/internal/admin"
	"carteret/internal/audit"
	auditstore "carteret/internal/audit/store"
	"carteret/internal/authz"
	"carteret/internal/identity"
	identitystore "carteret/internal/identity/store"
	"carteret/internal/listing"
	liststore "carteret/internal/listing/store"
	"carteret/internal/objectstore"
	"carteret/internal/photo"
	photostore "carteret/internal/photo/store"
	"carteret/internal/platform/logger"
	"carteret/internal/platform/metrics"
	"carteret/internal/verification"
	verifstore "carteret/internal/verification/store"
	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
)

type fixture struct {
	service  *admin.Service
	users    *identitystore.MemoryStore
	listings *liststore.MemoryStore
	photos   *photostore.MemoryStore
	objects  *objectstore.MemoryStore
	listSvc  *listing.Service
	admin    *identity.Identity
	user     *identity.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.New()
	m := metrics.NewWith(prometheus.NewRegistry())
	gate := authz.NewGate(log, m)
	recorder := audit.NewRecorder(auditstore.NewMemoryStore(), log)

	users := identitystore.NewMemoryStore()
	listings := liststore.NewMemoryStore()
	photos := photostore.NewMemoryStore()
	objects := objectstore.NewMemoryStore()

	listSvc := listing.NewService(listings, nil, gate, recorder, log, m)
	verifSvc := verification.NewService(verifstore.NewMemoryStore(listings), gate, recorder, log, m)

	return &fixture{
		service:  admin.NewService(users, listSvc, verifSvc, photos, objects, gate, recorder, log),
		users:    users,
		listings: listings,
		photos:   photos,
		objects:  objects,
		listSvc:  listSvc,
		admin:    &identity.Identity{ID: id.NewUserID(), Role: identity.RoleAdmin},
		user:     &identity.Identity{ID: id.NewUserID(), Role: identity.RoleUser},
	}
}

func (f *fixture) seedUser(t *testing.T, role identity.Role) *identity.User {
	t.Helper()
	u := &identity.User{ID: id.NewUserID(), Email: "someone@example.com", Role: role}
	require.NoError(t, f.users.Insert(context.Background(), u))
	return u
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedUser(t, identity.RoleUser)
	_, err := f.listSvc.Create(ctx, listing.NewListingInput{Name: "Dash Diner", City: "Beaufort"})
	require.NoError(t, err)

	dash, err := f.service.Dashboard(ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, dash.Listings, 1)
	assert.Len(t, dash.Users, 1)
	assert.Empty(t, dash.Verifications)
}

func TestDashboard_RequiresAdmin(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Dashboard(context.Background(), f.user)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodePermissionDenied))
}

func TestChangeRole(t *testing.T) {
	f := newFixture(t)
	target := f.seedUser(t, identity.RoleUser)

	require.NoError(t, f.service.ChangeRole(context.Background(), f.admin, target.ID, identity.RoleAdmin))

	got, err := f.users.FindByID(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, identity.RoleAdmin, got.Role)
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	target := f.seedUser(t, identity.RoleUser)

	require.NoError(t, f.service.DeleteUser(context.Background(), f.admin, target.ID))

	_, err := f.users.FindByID(context.Background(), target.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestDeleteUser_AdminsProtected(t *testing.T) {
	f := newFixture(t)
	target := f.seedUser(t, identity.RoleAdmin)

	err := f.service.DeleteUser(context.Background(), f.admin, target.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = f.users.FindByID(context.Background(), target.ID)
	assert.NoError(t, err)
}

func TestDeleteListing_CleansUpPhotos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	l, err := f.listSvc.Create(ctx, listing.NewListingInput{Name: "Doomed Donuts", City: "Beaufort"})
	require.NoError(t, err)

	key := l.ID.String() + "/abc-front.jpg"
	f.objects.Seed(key, []byte("bytes"))
	require.NoError(t, f.photos.Insert(ctx, &photo.Photo{
		ID:          id.NewPhotoID(),
		ListingID:   l.ID,
		StoragePath: key,
	}))

	require.NoError(t, f.service.DeleteListing(ctx, f.admin, l.ID))

	_, err = f.listings.FindByID(ctx, l.ID)
	require.Error(t, err)
	remaining, err := f.photos.ListByListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
	_, ok := f.objects.Get(key)
	assert.False(t, ok)
}
