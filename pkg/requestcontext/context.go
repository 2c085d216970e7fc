// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets the values; services and handlers read them without
// importing net/http:
//
//	identity := requestcontext.Identity(ctx)
//	requestID := requestcontext.RequestID(ctx)
//
// Tests inject values directly:
//
//	ctx = requestcontext.WithSubject(ctx, "did:example:alice", 42)
package requestcontext

import (
	"context"
	"time"
)

type (
	identityKey    struct{}
	subjectIDKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need context.WithValue.
var (
	ContextKeyIdentity  = identityKey{}
	ContextKeySubjectID = subjectIDKey{}
	ContextKeyRequestID = requestIDKey{}
	ContextKeyTime      = requestTimeKey{}
)

// -----------------------------------------------------------------------------
// Authenticated subject
// -----------------------------------------------------------------------------

// Identity returns the authenticated identity (DID), or "" when absent.
func Identity(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyIdentity).(string); ok {
		return v
	}
	return ""
}

// SubjectID returns the authenticated numeric subject id, or 0 when absent.
// Subject ids are never 0 for authenticated requests.
func SubjectID(ctx context.Context) uint64 {
	if v, ok := ctx.Value(ContextKeySubjectID).(uint64); ok {
		return v
	}
	return 0
}

// WithSubject injects the authenticated identity and subject id.
func WithSubject(ctx context.Context, identity string, subjectID uint64) context.Context {
	ctx = context.WithValue(ctx, ContextKeyIdentity, identity)
	return context.WithValue(ctx, ContextKeySubjectID, subjectID)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// RequestID retrieves the request correlation id from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request correlation id into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now returns the request-scoped time, falling back to time.Now() when the
// request time middleware did not run.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a fixed request time.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyTime, t)
}
