// Package token issues and verifies the HS256 session tokens handed to
// clients after register and login.
package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"github.com/ovaphlow/pitchfork/service-todo-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-todo-go/pkg/utilities"
)

const DefaultTTL = 7 * 24 * time.Hour

var (
	ErrAuthRequired = apperr.New(apperr.Auth, "Login to continue.")
	ErrInvalidToken = apperr.New(apperr.Auth, "Invalid token.")
)

// Claims carries the user id as sub and a KSUID as jti.
type Claims struct {
	jwt.RegisteredClaims
}

// Denylist records revoked token ids until their natural expiry.
type Denylist interface {
	Revoke(ctx context.Context, jti, subject string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type Issuer struct {
	secret  []byte
	ttl     time.Duration
	clock   clockwork.Clock
	revoked Denylist
}

// NewIssuer builds an issuer. revoked may be nil, in which case logout only
// clears the client cookie.
func NewIssuer(secret string, ttl time.Duration, clock clockwork.Clock, revoked Denylist) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, clock: clock, revoked: revoked}
}

func (i *Issuer) TTL() time.Duration { return i.ttl }

func (i *Issuer) Issue(userID string) (string, *Claims, error) {
	now := i.clock.Now()
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID,
		ID:        utilities.NewKSUID(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks signature, algorithm and expiry, then consults the denylist.
func (i *Issuer) Verify(ctx context.Context, raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrAuthRequired
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, apperr.Wrap(ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if i.revoked != nil && claims.ID != "" {
		revoked, err := i.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, ErrInvalidToken
		}
	}
	return claims, nil
}

// DecodeSubject reads sub without checking the signature or expiry. The
// result is only fit for log lines about a token that failed Verify.
func (i *Issuer) DecodeSubject(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrAuthRequired
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return "", apperr.Wrap(ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Revoke denylists the token until it would have expired anyway.
func (i *Issuer) Revoke(ctx context.Context, c *Claims) error {
	if i.revoked == nil || c == nil || c.ID == "" {
		return nil
	}
	if c.ExpiresAt == nil {
		return errors.New("revoke: token has no expiry")
	}
	if !c.ExpiresAt.Time.After(i.clock.Now()) {
		return nil
	}
	return i.revoked.Revoke(ctx, c.ID, c.Subject, c.ExpiresAt.Time)
}
