// Package jwttoken validates the access tokens minted by the managed auth
// provider and, for tests and local development, can mint compatible ones.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
)

// Claims are the token claims we rely on. The subject carries the provider's
// user identifier; email and phone mirror the provider profile.
type Claims struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

// JWTService verifies provider access tokens with a shared HMAC secret.
type JWTService struct {
	signingKey []byte
	issuer     string
}

func NewJWTService(signingKey string, issuer string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// GenerateToken mints a signed token for the given user. Used by tests and
// the local development seeder; production tokens come from the provider.
func (s *JWTService) GenerateToken(userID id.UserID, email, phone string, expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: email,
		Phone: phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// ValidateToken verifies the signature, expiry and issuer of a token and
// returns its claims. Failures carry CodeStaleSession so callers answer 401.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeStaleSession, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeStaleSession, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeStaleSession, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeStaleSession, "invalid token claims")
	}

	return claims, nil
}

// ExtractUserID validates the token and parses its subject.
func (s *JWTService) ExtractUserID(tokenString string) (id.UserID, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return id.UserID{}, err
	}
	userID, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return id.UserID{}, dErrors.New(dErrors.CodeStaleSession, "invalid token subject")
	}
	return userID, nil
}
