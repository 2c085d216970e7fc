package models

import "time"

// DefaultChallengeTTL is how long an issued nonce stays redeemable.
const DefaultChallengeTTL = 300 * time.Second

// Challenge is a single-use nonce issued before login. Identity is the
// identity the caller claimed when asking for it, if any.
type Challenge struct {
	Nonce     string    `json:"nonce"`
	Identity  *string   `json:"identity,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether now is past the challenge's expiry. A nonce is
// still redeemable at exactly ExpiresAt.
func (c *Challenge) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// ChallengeRequest is the body of POST /api/auth/challenge.
type ChallengeRequest struct {
	Identity *string `json:"identity,omitempty"`
}

// ChallengeResponse is returned to the caller, who signs Message.
type ChallengeResponse struct {
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Identity  string `json:"identity"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	SubjectID uint64    `json:"subject_id"`
	Identity  string    `json:"identity"`
	ExpiresAt time.Time `json:"expires_at"`
}
