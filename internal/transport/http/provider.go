package http

import (
	"context"

	"carteret/internal/identity"
	"carteret/internal/jwttoken"
	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
)

// requestProvider adapts one request's bearer token to the auth collaborator
// interface. CurrentPrincipal re-validates the token on every call instead
// of replaying what the middleware saw, so a token that expired between
// preparing a submission and sending it reads as signed out.
type requestProvider struct {
	tokens *jwttoken.JWTService
	token  string
}

func newRequestProvider(tokens *jwttoken.JWTService, token string) *requestProvider {
	return &requestProvider{tokens: tokens, token: token}
}

func (p *requestProvider) CurrentPrincipal(context.Context) (*identity.Principal, error) {
	if p.token == "" {
		return nil, nil
	}
	claims, err := p.tokens.ValidateToken(p.token)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeStaleSession) {
			// An expired token is a definite answer, not an outage.
			return nil, nil
		}
		return nil, err
	}
	return principalFromClaims(claims)
}

// Subscribe is a no-op: a single HTTP request has no auth-change stream.
func (p *requestProvider) Subscribe(func(*identity.Principal)) func() { return func() {} }

// EndSession is handled by the managed provider directly, not through the
// API server.
func (p *requestProvider) EndSession(context.Context) error { return nil }

func principalFromClaims(claims *jwttoken.Claims) (*identity.Principal, error) {
	userID, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeStaleSession, "invalid token subject")
	}
	return &identity.Principal{
		ID:    userID,
		Email: claims.Email,
		Phone: claims.Phone,
	}, nil
}
