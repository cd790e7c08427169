package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

// tokenClaims mirrors the payload issued at login: {id, email, role}.
type tokenClaims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 bearer tokens signed with a shared secret.
type TokenVerifier struct {
	secret []byte
	clock  clockwork.Clock
}

// NewTokenVerifier creates a verifier for tokens signed with secret
func NewTokenVerifier(secret string, clock clockwork.Clock) *TokenVerifier {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenVerifier{secret: []byte(secret), clock: clock}
}

// Resolve implements Provider. The token is read from the Authorization
// header, falling back to the `token` query parameter since browsers cannot
// set headers on a websocket upgrade.
func (v *TokenVerifier) Resolve(r *http.Request) (Claims, error) {
	raw, err := bearerToken(r)
	if err != nil {
		return Claims{}, err
	}
	return v.Verify(raw)
}

// Verify parses and validates a raw token string
func (v *TokenVerifier) Verify(raw string) (Claims, error) {
	var tc tokenClaims
	token, err := jwt.ParseWithClaims(raw, &tc, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.clock.Now),
	)
	if err != nil || !token.Valid {
		return Claims{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if tc.Email == "" && tc.UserID == "" {
		return Claims{}, fmt.Errorf("%w: token carries no subject", ErrUnauthorized)
	}

	ident := tc.Email
	if ident == "" {
		ident = tc.UserID
	}
	return Claims{
		UserID:   tc.UserID,
		Email:    tc.Email,
		Role:     ParseRole(tc.Role),
		Identity: ident,
	}, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if t := r.URL.Query().Get("token"); t != "" {
			return t, nil
		}
		return "", ErrNoCredentials
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("%w: invalid authorization header format", ErrUnauthorized)
	}
	return parts[1], nil
}

// Issuer signs tokens accepted by TokenVerifier. Login lives elsewhere; this
// is used by local tooling and tests.
type Issuer struct {
	secret []byte
	clock  clockwork.Clock
	ttl    time.Duration
}

// NewIssuer creates an issuer. A zero ttl issues tokens without expiry.
func NewIssuer(secret string, clock clockwork.Clock, ttl time.Duration) *Issuer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Issuer{secret: []byte(secret), clock: clock, ttl: ttl}
}

// Issue signs a token for the given user
func (i *Issuer) Issue(userID, email string, role Role) (string, error) {
	now := i.clock.Now()
	claims := tokenClaims{
		UserID: userID,
		Email:  email,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}
