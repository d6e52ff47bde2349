package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havencrm/havencrm/internal/auth"
	"github.com/havencrm/havencrm/internal/authz"
	"github.com/havencrm/havencrm/internal/shared"
)

const testSecret = "test-secret"

type stubRepository struct {
	identities map[string]auth.Identity
	err        error
}

func (s *stubRepository) FindByID(ctx context.Context, id string) (*auth.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	identity, ok := s.identities[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &identity, nil
}

func signToken(t *testing.T, secret string, userID string, expiresAt time.Time) string {
	t.Helper()
	claims := auth.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func activeIdentity() auth.Identity {
	return auth.Identity{
		ID:       "u1",
		Email:    "agent@example.com",
		Role:     authz.RoleAgent,
		AgencyID: "T1",
		IsActive: true,
	}
}

func TestResolveActorMissingCredential(t *testing.T) {
	svc := auth.NewService(&stubRepository{}, testSecret)

	for _, credential := range []string{"", "   "} {
		_, err := svc.ResolveActor(context.Background(), credential)
		assert.ErrorIs(t, err, shared.ErrCredentialMissing)
	}
}

func TestResolveActorMalformedCredential(t *testing.T) {
	svc := auth.NewService(&stubRepository{}, testSecret)

	_, err := svc.ResolveActor(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, shared.ErrCredentialInvalid)
}

func TestResolveActorExpiredCredential(t *testing.T) {
	svc := auth.NewService(&stubRepository{}, testSecret)
	token := signToken(t, testSecret, "u1", time.Now().Add(-time.Hour))

	_, err := svc.ResolveActor(context.Background(), token)
	assert.ErrorIs(t, err, shared.ErrCredentialInvalid)
}

func TestResolveActorWrongSecret(t *testing.T) {
	svc := auth.NewService(&stubRepository{}, testSecret)
	token := signToken(t, "some-other-secret", "u1", time.Now().Add(time.Hour))

	_, err := svc.ResolveActor(context.Background(), token)
	assert.ErrorIs(t, err, shared.ErrCredentialInvalid)
}

func TestResolveActorUnknownIdentity(t *testing.T) {
	svc := auth.NewService(&stubRepository{identities: map[string]auth.Identity{}}, testSecret)
	token := signToken(t, testSecret, "ghost", time.Now().Add(time.Hour))

	_, err := svc.ResolveActor(context.Background(), token)
	assert.ErrorIs(t, err, shared.ErrCredentialInvalid)
}

func TestResolveActorInactiveIdentity(t *testing.T) {
	identity := activeIdentity()
	identity.IsActive = false
	repo := &stubRepository{identities: map[string]auth.Identity{"u1": identity}}
	svc := auth.NewService(repo, testSecret)
	token := signToken(t, testSecret, "u1", time.Now().Add(time.Hour))

	_, err := svc.ResolveActor(context.Background(), token)
	assert.ErrorIs(t, err, shared.ErrIdentityInactive)
}

func TestResolveActorTakesRoleAndTenantFromStore(t *testing.T) {
	// The token only names the identity; role and agency always reflect the
	// current stored record.
	repo := &stubRepository{identities: map[string]auth.Identity{"u1": activeIdentity()}}
	svc := auth.NewService(repo, testSecret)
	token := signToken(t, testSecret, "u1", time.Now().Add(time.Hour))

	actor, err := svc.ResolveActor(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", actor.ID)
	assert.Equal(t, authz.RoleAgent, actor.Role)
	assert.Equal(t, authz.TenantID("T1"), actor.TenantID)
	assert.True(t, actor.Authenticated())
}

func TestResolveActorPropagatesStoreErrors(t *testing.T) {
	repo := &stubRepository{err: assert.AnError}
	svc := auth.NewService(repo, testSecret)
	token := signToken(t, testSecret, "u1", time.Now().Add(time.Hour))

	_, err := svc.ResolveActor(context.Background(), token)
	assert.ErrorIs(t, err, assert.AnError)
}
