package identity_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carteret/internal/identity"
	"carteret/internal/identity/store"
	"carteret/internal/platform/logger"
	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
)

// fakeProvider is a scriptable auth provider.
type fakeProvider struct {
	mu         sync.Mutex
	principal  *identity.Principal
	currentErr error
	subscriber func(*identity.Principal)
	ended      bool
}

func (p *fakeProvider) CurrentPrincipal(context.Context) (*identity.Principal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.currentErr != nil {
		return nil, p.currentErr
	}
	return p.principal, nil
}

func (p *fakeProvider) Subscribe(fn func(*identity.Principal)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscriber = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.subscriber = nil
	}
}

func (p *fakeProvider) EndSession(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ended = true
	return nil
}

func (p *fakeProvider) emit(principal *identity.Principal) {
	p.mu.Lock()
	fn := p.subscriber
	p.mu.Unlock()
	if fn != nil {
		fn(principal)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestSessionResolver_StartResolvesCurrentPrincipal(t *testing.T) {
	users := store.NewMemoryStore()
	userID := id.NewUserID()
	require.NoError(t, users.Insert(context.Background(), &identity.User{
		ID: userID, Email: "a@example.com", Role: identity.RoleAdmin,
	}))

	provider := &fakeProvider{principal: &identity.Principal{ID: userID, Email: "a@example.com"}}
	session := identity.NewSessionResolver(newResolver(users), provider, logger.New(), testMetrics())
	defer session.Close()

	require.NoError(t, session.Start(context.Background()))

	got := session.Current()
	require.NotNil(t, got)
	assert.Equal(t, identity.RoleAdmin, got.Role)
}

func TestSessionResolver_StartProviderDown(t *testing.T) {
	provider := &fakeProvider{currentErr: dErrors.New(dErrors.CodeUpstream, "provider down")}
	session := identity.NewSessionResolver(newResolver(store.NewMemoryStore()), provider, logger.New(), testMetrics())
	defer session.Close()

	err := session.Start(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAuthUnavailable))
	assert.Nil(t, session.Current())
}

func TestSessionResolver_SignInEventResolvesIdentity(t *testing.T) {
	provider := &fakeProvider{}
	session := identity.NewSessionResolver(newResolver(store.NewMemoryStore()), provider, logger.New(), testMetrics())
	defer session.Close()
	require.NoError(t, session.Start(context.Background()))
	require.Nil(t, session.Current())

	userID := id.NewUserID()
	provider.emit(&identity.Principal{ID: userID, Email: "b@example.com"})

	waitFor(t, func() bool { return session.Current() != nil })
	assert.Equal(t, userID, session.Current().ID)
	assert.Equal(t, identity.RoleUser, session.Current().Role)
}

func TestSessionResolver_SignOutEventClearsImmediately(t *testing.T) {
	users := store.NewMemoryStore()
	userID := id.NewUserID()
	require.NoError(t, users.Insert(context.Background(), &identity.User{
		ID: userID, Email: "c@example.com", Role: identity.RoleUser,
	}))

	provider := &fakeProvider{principal: &identity.Principal{ID: userID, Email: "c@example.com"}}
	session := identity.NewSessionResolver(newResolver(users), provider, logger.New(), testMetrics())
	defer session.Close()
	require.NoError(t, session.Start(context.Background()))
	require.NotNil(t, session.Current())

	provider.emit(nil)
	assert.Nil(t, session.Current())
}

// slowStore delays reads until released, to let a newer event overtake an
// older in-flight resolution.
type slowStore struct {
	inner   *store.MemoryStore
	release chan struct{}
	delayed id.UserID
}

func (s *slowStore) Insert(ctx context.Context, u *identity.User) error {
	return s.inner.Insert(ctx, u)
}

func (s *slowStore) FindByID(ctx context.Context, userID id.UserID) (*identity.User, error) {
	if userID == s.delayed {
		<-s.release
	}
	return s.inner.FindByID(ctx, userID)
}

func TestSessionResolver_NewestEventWins(t *testing.T) {
	inner := store.NewMemoryStore()
	staleID := id.NewUserID()
	freshID := id.NewUserID()
	require.NoError(t, inner.Insert(context.Background(), &identity.User{
		ID: staleID, Email: "stale@example.com", Role: identity.RoleAdmin,
	}))
	require.NoError(t, inner.Insert(context.Background(), &identity.User{
		ID: freshID, Email: "fresh@example.com", Role: identity.RoleUser,
	}))

	users := &slowStore{inner: inner, release: make(chan struct{}), delayed: staleID}
	provider := &fakeProvider{}
	session := identity.NewSessionResolver(newResolver(users), provider, logger.New(), testMetrics())
	defer session.Close()
	require.NoError(t, session.Start(context.Background()))

	// Older event stalls in the store; the newer one resolves first.
	provider.emit(&identity.Principal{ID: staleID, Email: "stale@example.com"})
	provider.emit(&identity.Principal{ID: freshID, Email: "fresh@example.com"})

	waitFor(t, func() bool { return session.Current() != nil })
	require.Equal(t, freshID, session.Current().ID)

	// Releasing the stale resolution must not clobber the fresher identity.
	close(users.release)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, freshID, session.Current().ID)
}

func TestSessionResolver_SignOutEndsProviderSession(t *testing.T) {
	users := store.NewMemoryStore()
	userID := id.NewUserID()
	require.NoError(t, users.Insert(context.Background(), &identity.User{
		ID: userID, Email: "d@example.com", Role: identity.RoleUser,
	}))

	provider := &fakeProvider{principal: &identity.Principal{ID: userID, Email: "d@example.com"}}
	session := identity.NewSessionResolver(newResolver(users), provider, logger.New(), testMetrics())
	defer session.Close()
	require.NoError(t, session.Start(context.Background()))

	require.NoError(t, session.SignOut(context.Background()))
	assert.Nil(t, session.Current())
	assert.True(t, provider.ended)
}
