package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marksboard/backend/internal/logger"
	"marksboard/backend/internal/metrics"
	"marksboard/backend/internal/shared"
)

type stubCAS struct {
	identity *shared.Identity
	err      error
}

func (s stubCAS) Validate(context.Context, string, string) (*shared.Identity, error) {
	return s.identity, s.err
}

var testIdentity = &shared.Identity{
	Username:   "asha.rao",
	RollNumber: "2023111123",
	Email:      "asha.rao@students.iiit.ac.in",
	Name:       "Asha Rao",
}

func newTestService(cas TicketValidator) *AuthService {
	return NewAuthService(cas, NewMemoryRevoker(), shared.SecurityConfig{
		JWTSecret:          "test-secret",
		JWTExpirationHours: 24,
	}, metrics.NewMock(), logger.Nop())
}

func TestAuthService(t *testing.T) {
	ctx := context.Background()

	t.Run("Login Issues Valid Token", func(t *testing.T) {
		svc := newTestService(stubCAS{identity: testIdentity})

		res, err := svc.Login(ctx, "ST-1", "http://svc")
		require.NoError(t, err)
		assert.NotEmpty(t, res.Token)
		assert.WithinDuration(t, time.Now().Add(24*time.Hour), res.ExpiresAt, time.Minute)
		assert.Equal(t, testIdentity, res.User)

		claims, err := svc.ValidateToken(ctx, res.Token)
		require.NoError(t, err)
		assert.Equal(t, "2023111123", claims.RollNumber)
		assert.Equal(t, "Asha Rao", claims.Name)
		assert.Equal(t, "marksboard", claims.Issuer)
		assert.NotEmpty(t, claims.ID)
	})

	t.Run("Tokens Are Unique", func(t *testing.T) {
		svc := newTestService(stubCAS{identity: testIdentity})

		a, err := svc.Login(ctx, "ST-1", "")
		require.NoError(t, err)
		b, err := svc.Login(ctx, "ST-2", "")
		require.NoError(t, err)
		assert.NotEqual(t, a.Token, b.Token)
	})

	t.Run("Rejected Ticket", func(t *testing.T) {
		svc := newTestService(stubCAS{err: ErrTicketRejected})

		_, err := svc.Login(ctx, "bad", "")
		assert.ErrorIs(t, err, shared.ErrUnauthenticated)
	})

	t.Run("Garbage And Missing Tokens", func(t *testing.T) {
		svc := newTestService(stubCAS{identity: testIdentity})

		_, err := svc.ValidateToken(ctx, "")
		assert.ErrorIs(t, err, shared.ErrUnauthenticated)

		_, err = svc.ValidateToken(ctx, "not.a.jwt")
		assert.ErrorIs(t, err, shared.ErrUnauthenticated)
	})

	t.Run("Wrong Secret", func(t *testing.T) {
		issuer := newTestService(stubCAS{identity: testIdentity})
		res, err := issuer.Login(ctx, "ST-1", "")
		require.NoError(t, err)

		other := NewAuthService(stubCAS{}, nil, shared.SecurityConfig{JWTSecret: "other"}, metrics.NewMock(), logger.Nop())
		_, err = other.ValidateToken(ctx, res.Token)
		assert.ErrorIs(t, err, shared.ErrUnauthenticated)
	})

	t.Run("Expired Token", func(t *testing.T) {
		svc := newTestService(stubCAS{identity: testIdentity})
		res, err := svc.Login(ctx, "ST-1", "")
		require.NoError(t, err)

		svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
		_, err = svc.ValidateToken(ctx, res.Token)
		assert.ErrorIs(t, err, shared.ErrUnauthenticated)
	})

	t.Run("Non HMAC Token Rejected", func(t *testing.T) {
		svc := newTestService(stubCAS{identity: testIdentity})

		token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			RollNumber: "2023111123",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "marksboard",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.ValidateToken(ctx, signed)
		assert.ErrorIs(t, err, shared.ErrUnauthenticated)
	})

	t.Run("Empty Roll Number Rejected", func(t *testing.T) {
		svc := newTestService(stubCAS{identity: &shared.Identity{Username: "x"}})

		_, err := svc.Login(ctx, "ST-1", "")
		assert.ErrorIs(t, err, shared.ErrUnauthenticated)
	})

	t.Run("Logout Revokes", func(t *testing.T) {
		svc := newTestService(stubCAS{identity: testIdentity})
		res, err := svc.Login(ctx, "ST-1", "")
		require.NoError(t, err)

		require.NoError(t, svc.Logout(ctx, res.Token))

		_, err = svc.ValidateToken(ctx, res.Token)
		assert.ErrorIs(t, err, shared.ErrUnauthenticated)
		assert.NoError(t, svc.Logout(ctx, res.Token), "logout is idempotent")
		assert.NoError(t, svc.Logout(ctx, "garbage"))
	})

	t.Run("Revocation Store Down", func(t *testing.T) {
		svc := NewAuthService(stubCAS{identity: testIdentity}, brokenRevoker{}, shared.SecurityConfig{JWTSecret: "s"}, metrics.NewMock(), logger.Nop())
		res, err := svc.Login(ctx, "ST-1", "")
		require.NoError(t, err)

		_, err = svc.ValidateToken(ctx, res.Token)
		assert.ErrorIs(t, err, shared.ErrUnauthenticated)
	})
}

type brokenRevoker struct{}

func (brokenRevoker) Revoke(context.Context, string, time.Duration) error {
	return errors.New("redis down")
}

func (brokenRevoker) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestClaimsContext(t *testing.T) {
	_, ok := ClaimsFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithClaims(context.Background(), &Claims{RollNumber: "2023111123"})
	claims, ok := ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "2023111123", claims.RollNumber)
}
