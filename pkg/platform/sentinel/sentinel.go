package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, collaborators and the
// challenge/token primitives return these (optionally wrapped) so services can
// translate them into domain errors.
//
//   - ErrNotFound: nonce, record or batch membership does not exist
//   - ErrExpired: nonce or bearer token is past its lifetime
//   - ErrAlreadyUsed: single-use resource was consumed before
//   - ErrInvalidState: entity in wrong state for requested operation
//   - ErrUnavailable: collaborator (ledger, resolver, database) unreachable
//
// Validation failures (bad input, malformed tokens) use pkg/domain-errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
