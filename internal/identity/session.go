package identity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"carteret/internal/platform/metrics"
	dErrors "carteret/pkg/domain-errors"
)

// Provider is the managed auth collaborator. CurrentPrincipal reports who is
// signed in right now (nil when nobody is); Subscribe delivers auth-change
// notifications, at least once and possibly out of order; EndSession
// terminates the provider-side session.
type Provider interface {
	CurrentPrincipal(ctx context.Context) (*Principal, error)
	Subscribe(fn func(principal *Principal)) (unsubscribe func())
	EndSession(ctx context.Context) error
}

const resolveTimeout = 10 * time.Second

// SessionResolver tracks the identity of one long-lived session across
// auth-change events. Each event starts an asynchronous resolution; a
// generation counter makes the newest event win, so a slow resolution for a
// superseded event is discarded rather than clobbering fresher state.
//
// The HTTP transport does not use it: each request resolves its bearer token
// fresh (see the Authenticate middleware), so a privilege change applies on
// the caller's next action. SessionResolver is for embedding consumers that
// keep one session open against the provider, such as a CLI or an
// in-process agent acting as a user.
//
// Consumers read the current identity through Current and must not hold on
// to it across events.
type SessionResolver struct {
	resolver *Resolver
	provider Provider
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu      sync.Mutex
	gen     uint64
	current *Identity

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
}

// NewSessionResolver creates a session resolver. Call Start before reading
// from it and Close when the session ends.
func NewSessionResolver(resolver *Resolver, provider Provider, logger *slog.Logger, m *metrics.Metrics) *SessionResolver {
	ctx, cancel := context.WithCancel(context.Background())
	return &SessionResolver{
		resolver: resolver,
		provider: provider,
		logger:   logger,
		metrics:  m,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start queries the provider for the session's current principal, resolves
// it synchronously, then subscribes to auth-change events. If the provider
// cannot be reached the session starts in an unknown state and the error
// carries CodeAuthUnavailable.
func (s *SessionResolver) Start(ctx context.Context) error {
	principal, err := s.provider.CurrentPrincipal(ctx)
	if err != nil {
		s.unsubscribe = s.provider.Subscribe(s.onEvent)
		return dErrors.Wrap(err, dErrors.CodeAuthUnavailable, "auth provider unreachable at session start")
	}

	identity, err := s.resolver.Resolve(ctx, principal)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = identity
	s.mu.Unlock()

	s.unsubscribe = s.provider.Subscribe(s.onEvent)
	return nil
}

// Current returns the most recently resolved identity, or nil when the
// session is signed out or not yet resolved.
func (s *SessionResolver) Current() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SignOut ends the provider session and clears the local identity without
// waiting for the corresponding auth event to arrive.
func (s *SessionResolver) SignOut(ctx context.Context) error {
	s.onEvent(nil)
	if err := s.provider.EndSession(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUpstream, "failed to end provider session")
	}
	return nil
}

// Close unsubscribes from the provider and waits for in-flight resolutions.
func (s *SessionResolver) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.cancel()
	s.wg.Wait()
}

func (s *SessionResolver) onEvent(principal *Principal) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	if principal == nil {
		// Sign-out needs no store round-trip and applies immediately.
		s.current = nil
		s.mu.Unlock()
		s.metrics.IdentityResolutions.WithLabelValues("absent").Inc()
		return
	}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(s.ctx, resolveTimeout)
		defer cancel()

		identity, err := s.resolver.Resolve(ctx, principal)
		if err != nil {
			s.logger.Warn("identity resolution failed", "user_id", principal.ID.String(), "error", err)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen {
			s.metrics.IdentityResolutions.WithLabelValues("discarded").Inc()
			return
		}
		s.current = identity
	}()
}
