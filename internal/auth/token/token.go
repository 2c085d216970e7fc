// Package token issues and validates the bearer tokens handed out after a
// successful challenge login.
//
// A token has the form
//
//	subject-<subjectID>.<expiry unix seconds>.<hex HMAC-SHA256>
//
// where the HMAC covers "<identity>:<subjectID>:<expiry>". The identity is
// not part of the token, so the signature can only be recomputed when the
// caller names the identity it expects.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"anchorgate/pkg/platform/sentinel"
)

const (
	DefaultTTL = 86400 * time.Second

	subjectPrefix   = "subject-"
	signatureLength = sha256.Size * 2

	// UnknownIdentity is reported in claims when the caller did not say
	// which identity the token belongs to.
	UnknownIdentity = "did:anchorgate:unknown"
)

var ErrTokenValidationFailed = errors.New("token validation failed")

// Claims is what a validated token asserts.
type Claims struct {
	Identity  string    `json:"identity"`
	SubjectID uint64    `json:"subject_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Manager signs and checks tokens with a shared secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	strict bool
}

type Option func(*Manager)

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithStrictSignature makes Validate require an expected identity and
// recompute the signature. Without it only structure and expiry are checked.
func WithStrictSignature(strict bool) Option {
	return func(m *Manager) { m.strict = strict }
}

func New(secret string, opts ...Option) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	m := &Manager{
		secret: []byte(secret),
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

func (m *Manager) Strict() bool {
	return m.strict
}

// Generate issues a token for identity and returns it with its expiry.
func (m *Manager) Generate(identity string, subjectID uint64) (string, time.Time, error) {
	if identity == "" {
		return "", time.Time{}, errors.New("identity is required")
	}
	expiresAt := m.now().Add(m.ttl).Truncate(time.Second)
	exp := uint64(expiresAt.Unix())
	sig := m.sign(identity, subjectID, exp)
	return fmt.Sprintf("%s%d.%d.%s", subjectPrefix, subjectID, exp, sig), expiresAt, nil
}

// Parse splits a token into its fields without checking the signature or
// expiry.
func Parse(token string) (subjectID uint64, expiry uint64, signature string, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return 0, 0, "", fmt.Errorf("%w: expected 3 fields, got %d", ErrTokenValidationFailed, len(parts))
	}
	rawSubject, ok := strings.CutPrefix(parts[0], subjectPrefix)
	if !ok {
		return 0, 0, "", fmt.Errorf("%w: missing %q prefix", ErrTokenValidationFailed, subjectPrefix)
	}
	subjectID, err = strconv.ParseUint(rawSubject, 10, 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("%w: invalid subject id", ErrTokenValidationFailed)
	}
	expiry, err = strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("%w: invalid expiry", ErrTokenValidationFailed)
	}
	signature = parts[2]
	if len(signature) != signatureLength {
		return 0, 0, "", fmt.Errorf("%w: invalid signature length", ErrTokenValidationFailed)
	}
	if _, err := hex.DecodeString(signature); err != nil {
		return 0, 0, "", fmt.Errorf("%w: signature is not hex", ErrTokenValidationFailed)
	}
	return subjectID, expiry, signature, nil
}

// Validate parses token and checks expiry. In strict mode it also requires
// expectedIdentity and verifies the signature against it.
func (m *Manager) Validate(token string, expectedIdentity *string) (*Claims, error) {
	subjectID, exp, signature, err := Parse(token)
	if err != nil {
		return nil, err
	}
	if m.now().Unix() > int64(exp) {
		return nil, fmt.Errorf("%w: token expired at %d: %w", ErrTokenValidationFailed, exp, sentinel.ErrExpired)
	}

	identity := UnknownIdentity
	if expectedIdentity != nil && *expectedIdentity != "" {
		identity = *expectedIdentity
	}
	if m.strict {
		if identity == UnknownIdentity {
			return nil, fmt.Errorf("%w: identity required for signature check", ErrTokenValidationFailed)
		}
		expected, _ := hex.DecodeString(m.sign(identity, subjectID, exp))
		got, _ := hex.DecodeString(signature)
		if !hmac.Equal(expected, got) {
			return nil, fmt.Errorf("%w: signature mismatch", ErrTokenValidationFailed)
		}
	}

	expiresAt := time.Unix(int64(exp), 0).UTC()
	return &Claims{
		Identity:  identity,
		SubjectID: subjectID,
		IssuedAt:  expiresAt.Add(-m.ttl),
		ExpiresAt: expiresAt,
	}, nil
}

func (m *Manager) sign(identity string, subjectID, exp uint64) string {
	mac := hmac.New(sha256.New, m.secret)
	fmt.Fprintf(mac, "%s:%d:%d", identity, subjectID, exp)
	return hex.EncodeToString(mac.Sum(nil))
}
