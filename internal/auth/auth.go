// Package auth establishes the verified tenant identity on incoming
// requests. Session issuance is the identity provider's business; this
// package only validates the provider-minted bearer token (HS256 JWT whose
// subject is the external identity ID) and resolves it to a tenant. Absence
// of a verified identity on a protected route is always a request failure,
// never a pass-through.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrymomot/domainboard/internal/store"
)

var (
	// ErrUnauthenticated is returned when the request carries no usable
	// bearer token.
	ErrUnauthenticated = errors.New("auth: missing bearer token")

	// ErrInvalidToken is returned when the token fails verification.
	ErrInvalidToken = errors.New("auth: invalid token")
)

type Config struct {
	JWTSecret string        `env:"AUTH_JWT_SECRET,required"` // HMAC key shared with the identity provider.
	TokenTTL  time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"24h"`
}

// Service verifies bearer tokens and resolves tenants.
type Service struct {
	secret []byte
	ttl    time.Duration
	store  store.Store
}

func NewService(cfg Config, st store.Store) *Service {
	return &Service{secret: []byte(cfg.JWTSecret), ttl: cfg.TokenTTL, store: st}
}

// IssueToken mints a token for an external identity ID. Used by tests and
// local development; production tokens come from the identity provider.
func (s *Service) IssueToken(externalID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   externalID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates the token and returns the external identity ID.
// Only HS256 is accepted, which closes the algorithm-confusion hole.
func (s *Service) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Authenticate resolves the Authorization header to a tenant.
func (s *Service) Authenticate(ctx context.Context, authorization string) (*store.Tenant, error) {
	tokenString, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok || tokenString == "" {
		return nil, ErrUnauthenticated
	}

	externalID, err := s.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}

	// A valid token for an unprovisioned identity means the creation webhook
	// has not arrived yet; the tenant lookup error propagates as not-found.
	return s.store.TenantByExternalID(ctx, externalID)
}

// Middleware enforces a verified tenant on every request it wraps and
// stores the tenant in the request context.
func (s *Service) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenant, err := s.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				writeAuthError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), tenant)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	switch {
	case errors.Is(err, store.ErrTenantNotFound):
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"tenant not found"}`))
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidToken):
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"unauthorized"}`))
	default:
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"internal server error"}`))
	}
}
