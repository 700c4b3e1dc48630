package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"marksboard/backend/internal/metrics"
	"marksboard/backend/internal/shared"
)

const tokenIssuer = "marksboard"

// TicketValidator exchanges a single-sign-on ticket for an identity.
type TicketValidator interface {
	Validate(ctx context.Context, ticket, service string) (*shared.Identity, error)
}

// Claims is the session token payload
type Claims struct {
	RollNumber string `json:"rollNumber"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	jwt.RegisteredClaims
}

// LoginResult is returned by a successful Login
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *shared.Identity
}

// AuthService turns CAS tickets into signed session tokens and checks them on
// every request. Logged-out tokens are tracked by the Revoker.
type AuthService struct {
	cas     TicketValidator
	revoker Revoker
	secret  []byte
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// NewAuthService creates a new AuthService instance
func NewAuthService(cas TicketValidator, revoker Revoker, security shared.SecurityConfig, m *metrics.Metrics, logger zerolog.Logger) *AuthService {
	if revoker == nil {
		revoker = NewMemoryRevoker()
	}
	hours := security.JWTExpirationHours
	if hours <= 0 {
		hours = 24
	}
	return &AuthService{
		cas:     cas,
		revoker: revoker,
		secret:  []byte(security.JWTSecret),
		ttl:     time.Duration(hours) * time.Hour,
		metrics: m,
		logger:  logger.With().Str("component", "auth").Logger(),
		now:     time.Now,
	}
}

// TTL is the lifetime of issued tokens.
func (s *AuthService) TTL() time.Duration {
	return s.ttl
}

// Login validates a CAS ticket and issues a session token
func (s *AuthService) Login(ctx context.Context, ticket, service string) (*LoginResult, error) {
	// 1. Validate ticket with CAS
	identity, err := s.cas.Validate(ctx, ticket, service)
	if err != nil {
		s.metrics.RecordLogin(ctx, false)
		s.logger.Warn().Err(err).Msg("cas login failed")
		return nil, fmt.Errorf("%w: %v", shared.ErrUnauthenticated, err)
	}
	if identity.RollNumber == "" {
		s.metrics.RecordLogin(ctx, false)
		return nil, fmt.Errorf("%w: identity has no roll number", shared.ErrUnauthenticated)
	}

	// 2. Sign token
	token, expiresAt, err := s.generateToken(identity)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	s.metrics.RecordLogin(ctx, true)
	s.logger.Info().
		Str("roll_number", identity.RollNumber).
		Str("username", identity.Username).
		Msg("user logged in")

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: identity}, nil
}

// ValidateToken checks signature, expiry and revocation. Any failure is ErrUnauthenticated.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: token missing", shared.ErrUnauthenticated)
	}

	// 1. Parse and verify signature locally
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnauthenticated, err)
	}
	if claims.RollNumber == "" {
		return nil, fmt.Errorf("%w: token has no roll number", shared.ErrUnauthenticated)
	}

	// 2. Revocation check
	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("revocation check failed")
		return nil, fmt.Errorf("%w: session could not be verified", shared.ErrUnauthenticated)
	}
	if revoked {
		return nil, fmt.Errorf("%w: session revoked", shared.ErrUnauthenticated)
	}

	return claims, nil
}

// Logout revokes the token. Invalid or already expired tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return nil
	}

	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if err := s.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		return err
	}

	s.logger.Info().Str("roll_number", claims.RollNumber).Msg("user logged out")
	return nil
}

// ============================================================================
// Internal Helpers
// ============================================================================

func (s *AuthService) generateToken(identity *shared.Identity) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := Claims{
		RollNumber: identity.RollNumber,
		Name:       identity.Name,
		Email:      identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.Username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	return signed, expiresAt, err
}

func (s *AuthService) parseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ============================================================================
// Request Context
// ============================================================================

type claimsKey struct{}

// WithClaims stores the authenticated session in ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the session stored by WithClaims, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok && claims != nil
}
