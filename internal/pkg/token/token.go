// Package token issues and verifies the stateless capability tokens embedded
// in confirmation and unsubscribe links. A token proves control of an email
// address for a bounded time window; nothing is persisted server-side, so a
// link stays usable until it expires.
package token

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// TTL is how long a confirmation/unsubscribe link stays valid.
const TTL = 24 * time.Hour

// Verification failure reasons. They are distinguished for logging only;
// user-facing responses must collapse all of them into ErrInvalidLink so the
// endpoint is not an oracle for which check failed.
var (
	ErrMalformed     = errors.New("token: malformed structure")
	ErrBadSignature  = errors.New("token: signature mismatch")
	ErrExpired       = errors.New("token: expired")
	ErrEmailMismatch = errors.New("token: email mismatch")
)

// ErrInvalidLink is the only error end users ever see.
var ErrInvalidLink = errors.New("invalid or expired link")

// Claims is the signed token payload.
type Claims struct {
	Email string `json:"email"`
	jwtlib.RegisteredClaims
}

// Service signs and verifies subscriber capability tokens with a
// server-held secret (HS256).
type Service struct {
	secret []byte
	now    func() time.Time
}

func NewService(secret string) *Service {
	return &Service{secret: []byte(secret), now: time.Now}
}

// WithClock overrides the time source. Used by tests to probe expiry.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Issue creates a token bound to email, valid for TTL from now.
func (s *Service) Issue(email string) (string, error) {
	now := s.now()
	claims := Claims{
		Email: normalizeEmail(email),
		RegisteredClaims: jwtlib.RegisteredClaims{
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(TTL)),
		},
	}
	t := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Verify checks raw against email. The returned error is one of the
// sentinel reasons above, nil on success.
func (s *Service) Verify(raw, email string) error {
	t, err := jwtlib.ParseWithClaims(raw, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, ErrBadSignature
		}
		return s.secret, nil
	}, jwtlib.WithTimeFunc(s.now))
	if err != nil {
		switch {
		case errors.Is(err, jwtlib.ErrTokenExpired):
			return ErrExpired
		case errors.Is(err, jwtlib.ErrTokenSignatureInvalid):
			return ErrBadSignature
		case errors.Is(err, jwtlib.ErrTokenMalformed):
			return ErrMalformed
		default:
			return ErrMalformed
		}
	}

	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return ErrMalformed
	}
	if claims.Email == "" || claims.Email != normalizeEmail(email) {
		return ErrEmailMismatch
	}
	return nil
}

// Email extracts the email a token was issued for without verifying expiry.
// Signature is still checked; used by admin tooling only.
func (s *Service) Email(raw string) (string, error) {
	t, err := jwtlib.ParseWithClaims(raw, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		return s.secret, nil
	}, jwtlib.WithTimeFunc(s.now), jwtlib.WithoutClaimsValidation())
	if err != nil {
		return "", ErrMalformed
	}
	claims, ok := t.Claims.(*Claims)
	if !ok {
		return "", ErrMalformed
	}
	return claims.Email, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
