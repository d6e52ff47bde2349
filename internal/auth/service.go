package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/havencrm/havencrm/internal/authz"
	"github.com/havencrm/havencrm/internal/shared"
)

// Claims is the JWT claims structure carried by bearer credentials.
type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// Service turns an opaque bearer credential into an Actor. This is the only
// place credential validity is judged; everything downstream trusts the Actor
// it is handed.
type Service struct {
	repo   Repository
	secret []byte
}

// NewService constructs a new Service.
func NewService(repo Repository, secret string) *Service {
	return &Service{repo: repo, secret: []byte(secret)}
}

// ResolveActor verifies the credential and loads the current identity. It
// rejects missing, malformed, and expired credentials as well as credentials
// referencing a deactivated identity; every failure maps to the
// authentication taxonomy in shared.
func (s *Service) ResolveActor(ctx context.Context, credential string) (authz.Actor, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return authz.Actor{}, shared.ErrCredentialMissing
	}

	token, err := jwt.ParseWithClaims(credential, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return authz.Actor{}, shared.ErrCredentialInvalid
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == "" {
		return authz.Actor{}, shared.ErrCredentialInvalid
	}

	// Role and tenant come from the identity store, not the token, so role
	// changes and deactivations take effect immediately.
	identity, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return authz.Actor{}, shared.ErrCredentialInvalid
		}
		return authz.Actor{}, err
	}
	if !identity.IsActive {
		return authz.Actor{}, shared.ErrIdentityInactive
	}
	return identity.Actor(), nil
}
