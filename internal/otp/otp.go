// Package otp generates and checks six digit one-time codes. Only the
// digest of a code is ever handed back for storage.
package otp

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ovaphlow/pitchfork/service-todo-go/internal/apperr"
)

const (
	minCode    = 100000
	codeSpan   = 900000
	DefaultTTL = 10 * time.Minute
)

// Purpose names the flow a code belongs to. Each purpose is stored in its
// own columns, so a reset code can never satisfy a verification check.
type Purpose string

const (
	PurposeReset  Purpose = "reset"
	PurposeVerify Purpose = "verify"
)

var (
	ErrInvalid = apperr.New(apperr.Auth, "Invalid OTP.")
	ErrExpired = apperr.New(apperr.Auth, "OTP expired.")
)

// Hasher is the subset of the password hasher the engine needs.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(digest, plain string) bool
}

// Code is a freshly generated OTP. Plain goes into the outgoing mail,
// Digest and ExpiresAt go into the store.
type Code struct {
	Purpose   Purpose
	Plain     string
	Digest    string
	ExpiresAt time.Time
}

type Engine struct {
	hasher Hasher
	clock  clockwork.Clock
	ttl    time.Duration
	rand   io.Reader
}

// Option tweaks an Engine built by NewEngine.
type Option func(*Engine)

// WithRand makes the engine draw codes from r instead of crypto/rand.
func WithRand(r io.Reader) Option {
	return func(e *Engine) { e.rand = r }
}

func NewEngine(hasher Hasher, clock clockwork.Clock, ttl time.Duration, opts ...Option) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	e := &Engine{hasher: hasher, clock: clock, ttl: ttl, rand: rand.Reader}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) TTL() time.Duration { return e.ttl }

// NewCode draws a uniform integer in [100000, 999999] from r, or from
// crypto/rand when r is nil.
func NewCode(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	n, err := rand.Int(r, big.NewInt(codeSpan))
	if err != nil {
		return "", fmt.Errorf("otp random: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+minCode), nil
}

func (e *Engine) Generate(p Purpose) (*Code, error) {
	plain, err := NewCode(e.rand)
	if err != nil {
		return nil, err
	}
	digest, err := e.hasher.Hash(plain)
	if err != nil {
		return nil, fmt.Errorf("otp hash: %w", err)
	}
	return &Code{
		Purpose:   p,
		Plain:     plain,
		Digest:    digest,
		ExpiresAt: e.clock.Now().Add(e.ttl),
	}, nil
}

// Check compares submitted against the stored digest before looking at the
// expiry, so a correct but stale code reports ErrExpired and a wrong code
// always reports ErrInvalid. An empty digest never matches.
func (e *Engine) Check(submitted, digest string, expiresAt time.Time) error {
	if digest == "" || !e.hasher.Verify(digest, submitted) {
		return ErrInvalid
	}
	if e.clock.Now().After(expiresAt) {
		return ErrExpired
	}
	return nil
}
