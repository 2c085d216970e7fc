package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"anchorgate/internal/anchor/ledger"
	"anchorgate/internal/anchor/merkle"
	"anchorgate/internal/anchor/models"
	recordmodels "anchorgate/internal/records/models"
	"anchorgate/internal/records/store"
	dErrors "anchorgate/pkg/domain-errors"
	"anchorgate/pkg/platform/circuit"
)

type QueueSuite struct {
	suite.Suite
	ctx    context.Context
	now    time.Time
	store  *store.InMemory
	ledger *ledger.Mock
	queue  *Queue
}

func TestQueueSuite(t *testing.T) {
	suite.Run(t, new(QueueSuite))
}

func (s *QueueSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.store = store.NewInMemory()
	s.ledger = ledger.NewMock()
	s.queue = New(s.store,
		WithLedger(s.ledger),
		WithClock(func() time.Time { return s.now }),
	)
}

func (s *QueueSuite) putRecord(id string, attrs map[string]string) *recordmodels.Record {
	r, err := recordmodels.NewRecord(id, "did:example:alice", "note", attrs, 7, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Put(s.ctx, r))
	return r
}

func (s *QueueSuite) enqueueRecords(ids ...string) {
	for _, id := range ids {
		s.putRecord(id, map[string]string{"id": id})
		s.queue.Enqueue(id)
	}
}

func (s *QueueSuite) TestCreateBatch() {
	s.Run("empty queue yields no batch", func() {
		result, err := s.queue.CreateBatch(s.ctx)
		s.Require().NoError(err)
		s.Nil(result)
	})

	s.Run("drains pending and commits in order", func() {
		s.enqueueRecords("p1", "p2", "p3")
		s.Equal(3, s.queue.PendingCount())

		result, err := s.queue.CreateBatch(s.ctx)
		s.Require().NoError(err)
		s.Require().NotNil(result)
		s.Equal(0, s.queue.PendingCount())
		s.Equal([]string{"p1", "p2", "p3"}, result.RecordIDs)
		s.Equal(3, result.Root.RecordCount)
		s.Equal(merkle.AlgoSHA256, result.Root.AlgoID)
		s.Equal(uint64(s.now.Unix()), result.Root.Timestamp)

		expected := merkle.New()
		for _, id := range result.RecordIDs {
			r, err := s.store.Get(s.ctx, id)
			s.Require().NoError(err)
			data, err := r.CanonicalBytes()
			s.Require().NoError(err)
			expected.AddLeafWithID(data, id)
		}
		root, ok := expected.Root()
		s.Require().True(ok)
		s.Equal(root, result.Root.RootHash)

		again, err := s.queue.CreateBatch(s.ctx)
		s.Require().NoError(err)
		s.Nil(again, "second batch right after must be empty")
	})
}

func (s *QueueSuite) TestCreateBatchSkipsVanishedRecords() {
	s.enqueueRecords("p1")
	s.queue.Enqueue("ghost")
	s.enqueueRecords("p3")

	result, err := s.queue.CreateBatch(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(result)
	s.Equal([]string{"p1", "p3"}, result.RecordIDs)
	s.Equal(2, result.Root.RecordCount)
}

func (s *QueueSuite) TestCreateBatchAllVanished() {
	s.queue.Enqueue("ghost-1")
	s.queue.Enqueue("ghost-2")

	result, err := s.queue.CreateBatch(s.ctx)
	s.Require().NoError(err)
	s.Nil(result)
	s.Equal(0, s.queue.PendingCount())
}

func (s *QueueSuite) TestCreateBatchCancelledRequeues() {
	s.enqueueRecords("p1", "p2")
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	result, err := s.queue.CreateBatch(ctx)
	s.ErrorIs(err, context.Canceled)
	s.Nil(result)
	s.Equal(2, s.queue.PendingCount(), "snapshot must not be lost")

	result, err = s.queue.CreateBatch(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"p1", "p2"}, result.RecordIDs)
}

func (s *QueueSuite) TestBatchIDsAreMonotonic() {
	s.enqueueRecords("a")
	first, err := s.queue.CreateBatch(s.ctx)
	s.Require().NoError(err)

	s.enqueueRecords("b")
	second, err := s.queue.CreateBatch(s.ctx)
	s.Require().NoError(err)

	s.Equal(uint64(s.now.Unix()), first.Root.BatchID)
	s.Equal(first.Root.BatchID+1, second.Root.BatchID, "same second must not reuse an id")

	s.now = s.now.Add(time.Minute)
	s.enqueueRecords("c")
	third, err := s.queue.CreateBatch(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(s.now.Unix()), third.Root.BatchID)
}

func (s *QueueSuite) TestAnchorToLedger() {
	s.enqueueRecords("p1")
	result, err := s.queue.CreateBatch(s.ctx)
	s.Require().NoError(err)
	id := result.Root.BatchID

	s.Run("ledger reference", func() {
		ref := s.queue.AnchorToLedger(s.ctx, result)
		s.Equal(fmt.Sprintf("0xmock_%x_testnet", id), ref)
		anchored := s.ledger.Anchored()
		s.Require().Len(anchored, 1)
		s.Equal(result.Root.RootHashHex(), anchored[0].RootHashHex)
		s.Equal(fmt.Sprintf("anchorgate://records/batch-%d", id), anchored[0].MetaURI)
	})

	s.Run("ledger failure falls back to placeholder", func() {
		s.ledger.SetFailure(ledger.ErrLedgerUnavailable)
		defer s.ledger.SetFailure(nil)
		ref := s.queue.AnchorToLedger(s.ctx, result)
		s.Equal(fmt.Sprintf("0xmock_%x_local", id), ref)
	})

	s.Run("no ledger configured", func() {
		q := New(s.store)
		s.Equal(fmt.Sprintf("0xmock_%x_local", id), q.AnchorToLedger(s.ctx, result))
	})
}

func (s *QueueSuite) TestAnchorToLedgerCircuitOpen() {
	breaker := circuit.New("ledger",
		circuit.WithFailureThreshold(1),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return s.now }),
	)
	q := New(s.store, WithLedger(s.ledger), WithBreaker(breaker))
	s.putRecord("p1", nil)
	q.Enqueue("p1")
	result, err := q.CreateBatch(s.ctx)
	s.Require().NoError(err)

	s.ledger.SetFailure(errors.New("down"))
	q.AnchorToLedger(s.ctx, result)
	s.True(breaker.IsOpen())

	s.ledger.SetFailure(nil)
	ref := q.AnchorToLedger(s.ctx, result)
	s.Contains(ref, "_local")
	s.Empty(s.ledger.Anchored(), "open circuit must skip the ledger")

	s.now = s.now.Add(2 * time.Minute)
	ref = q.AnchorToLedger(s.ctx, result)
	s.Contains(ref, "_testnet", "probe after cooldown reaches the ledger")
}

func (s *QueueSuite) TestProofForRecord() {
	s.enqueueRecords("p1", "p2", "p3")
	batch, err := s.queue.CreateAndAnchor(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(batch)

	s.Run("index 1 verifies against stored root", func() {
		proof, err := s.queue.GenerateProofForRecord(s.ctx, "p2")
		s.Require().NoError(err)
		s.Require().NotNil(proof)
		s.Equal(batch.BatchID, proof.BatchID)
		s.Equal(1, proof.Proof.LeafIndex)
		s.Equal("p2", proof.Proof.RecordID)
		s.Equal(batch.RootHashHex, proof.AnchoredRoot)
		s.True(proof.Verify())
	})

	s.Run("corrupted sibling fails", func() {
		proof, err := s.queue.GenerateProofForRecord(s.ctx, "p2")
		s.Require().NoError(err)
		proof.Proof.ProofHashes[0] = merkle.HashToHex(merkle.HashData([]byte("evil")))
		s.False(proof.Verify())
		s.False(merkle.VerifyProof(proof.Proof))
	})

	s.Run("record in no batch", func() {
		proof, err := s.queue.GenerateProofForRecord(s.ctx, "unknown")
		s.Require().NoError(err)
		s.Nil(proof)

		proof, valid, err := s.queue.VerifyRecord(s.ctx, "unknown")
		s.Require().NoError(err)
		s.Nil(proof)
		s.False(valid)
	})
}

func (s *QueueSuite) TestVerifyRecordDetectsTampering() {
	s.enqueueRecords("p1", "p2", "p3")
	_, err := s.queue.CreateAndAnchor(s.ctx)
	s.Require().NoError(err)

	_, valid, err := s.queue.VerifyRecord(s.ctx, "p3")
	s.Require().NoError(err)
	s.True(valid)

	s.putRecord("p3", map[string]string{"id": "p3", "edited": "yes"})
	proof, valid, err := s.queue.VerifyRecord(s.ctx, "p3")
	s.Require().NoError(err)
	s.Require().NotNil(proof)
	s.True(merkle.VerifyProof(proof.Proof), "fresh proof is self-consistent")
	s.False(valid, "but no longer reproduces the anchored root")
}

func (s *QueueSuite) TestProofAfterDeletion() {
	s.enqueueRecords("p1", "p2", "p3")
	_, err := s.queue.CreateAndAnchor(s.ctx)
	s.Require().NoError(err)

	s.Run("requested record deleted", func() {
		s.Require().NoError(s.store.Delete(s.ctx, "p2"))
		proof, err := s.queue.GenerateProofForRecord(s.ctx, "p2")
		s.Nil(proof)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("sibling deleted changes the rebuilt root", func() {
		_, valid, err := s.queue.VerifyRecord(s.ctx, "p1")
		s.Require().NoError(err)
		s.False(valid)
	})
}

func (s *QueueSuite) TestFirstMatchIsLowestBatchID() {
	s.enqueueRecords("p1", "p2")
	first, err := s.queue.CreateAndAnchor(s.ctx)
	s.Require().NoError(err)

	s.queue.Enqueue("p1")
	second, err := s.queue.CreateAndAnchor(s.ctx)
	s.Require().NoError(err)
	s.Greater(second.BatchID, first.BatchID)

	proof, err := s.queue.GenerateProofForRecord(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(first.BatchID, proof.BatchID)
	s.True(proof.Verify())
}

func (s *QueueSuite) TestStoreAndListBatches() {
	root := &models.MerkleRoot{RootHash: merkle.HashData([]byte("r")), AlgoID: merkle.AlgoSHA256, BatchID: 20, RecordCount: 1}
	s.queue.StoreAnchoredBatch(s.ctx, models.NewAnchoredBatch(root, ""), []string{"x"})
	root10 := *root
	root10.BatchID = 10
	s.queue.StoreAnchoredBatch(s.ctx, models.NewAnchoredBatch(&root10, ""), []string{"y"})

	overwrite := models.NewAnchoredBatch(root, "")
	overwrite.TxRef = "second"
	s.queue.StoreAnchoredBatch(s.ctx, overwrite, []string{"z"})

	batches := s.queue.Batches()
	s.Require().Len(batches, 2)
	s.Equal(uint64(10), batches[0].BatchID)
	s.Equal(uint64(20), batches[1].BatchID)
	s.Equal("second", batches[1].TxRef)
}

func (s *QueueSuite) TestCreateAndAnchorEmpty() {
	batch, err := s.queue.CreateAndAnchor(s.ctx)
	s.Require().NoError(err)
	s.Nil(batch)
	s.Empty(s.queue.Batches())
}

func (s *QueueSuite) TestConcurrentEnqueueDuringBatching() {
	const writers, perWriter = 8, 50
	for w := 0; w < writers; w++ {
		for i := 0; i < perWriter; i++ {
			s.putRecord(fmt.Sprintf("w%d-%d", w, i), nil)
		}
	}

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				s.queue.Enqueue(fmt.Sprintf("w%d-%d", w, i))
			}
		}()
	}

	seen := make(map[string]int)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	collect := func() {
		result, err := s.queue.CreateBatch(s.ctx)
		s.Require().NoError(err)
		if result != nil {
			for _, id := range result.RecordIDs {
				seen[id]++
			}
		}
	}
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
			collect()
		}
	}
	collect()

	s.Len(seen, writers*perWriter, "no enqueue may be lost")
	for id, n := range seen {
		s.Equal(1, n, "record %s batched more than once", id)
	}
}
