package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anchorgate/internal/platform/logger"
	"anchorgate/pkg/requestcontext"
)

type stubValidator struct {
	valid    string
	identity string
}

func (s *stubValidator) ValidateToken(_ context.Context, token, identity string) (*Principal, error) {
	s.identity = identity
	if token != s.valid {
		return nil, errors.New("bad token")
	}
	return &Principal{Identity: "did:example:alice", SubjectID: 7}, nil
}

func TestRequireAuth(t *testing.T) {
	validator := &stubValidator{valid: "subject-7.9999999999.ab"}
	var gotIdentity string
	var gotSubject uint64
	h := RequireAuth(validator, logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIdentity = requestcontext.Identity(r.Context())
		gotSubject = requestcontext.SubjectID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Missing")
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+validator.valid)
		req.Header.Set(HeaderIdentity, "did:example:alice")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "did:example:alice", gotIdentity)
		assert.Equal(t, uint64(7), gotSubject)
		assert.Equal(t, "did:example:alice", validator.identity)
	})

	t.Run("cookie fallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: validator.valid})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
