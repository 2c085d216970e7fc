//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"anchorgate/internal/records/models"
	"anchorgate/internal/records/store"
	"anchorgate/pkg/platform/sentinel"
	"anchorgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.Pool)
	s.Require().NoError(s.store.EnsureSchema(s.ctx))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(s.ctx, "records"))
}

func (s *PostgresStoreSuite) TestRoundTripPreservesCanonicalBytes() {
	created := time.Date(2026, 5, 4, 3, 2, 1, 987654321, time.FixedZone("X", 3600))
	r, err := models.NewRecord("r1", "did:example:alice", "observation", map[string]string{"z": "1", "a": "2"}, 77, created)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Put(s.ctx, r))

	got, err := s.store.Get(s.ctx, "r1")
	s.Require().NoError(err)

	want, _ := r.CanonicalBytes()
	have, _ := got.CanonicalBytes()
	s.Equal(string(want), string(have), "stored record must hash identically")
}

func (s *PostgresStoreSuite) TestNotFoundAndDelete() {
	_, err := s.store.Get(s.ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)

	r, err := models.NewRecord("r2", "did:example:bob", "note", nil, 1, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Put(s.ctx, r))
	s.Require().NoError(s.store.Delete(s.ctx, "r2"))

	_, err = s.store.Get(s.ctx, "r2")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListOrdered() {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"c", "a", "b"} {
		r, err := models.NewRecord(id, "did:example:alice", "note", nil, 1, base.Add(time.Duration(i)*time.Second))
		s.Require().NoError(err)
		s.Require().NoError(s.store.Put(s.ctx, r))
	}

	list, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal("c", list[0].ID)
	s.Equal("b", list[2].ID)
}
