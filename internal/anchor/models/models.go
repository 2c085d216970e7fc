package models

import (
	"fmt"
	"strings"

	"anchorgate/internal/anchor/merkle"
)

// DefaultMetaURIPrefix is used when no prefix is configured.
const DefaultMetaURIPrefix = "anchorgate://records"

// MerkleRoot is the commitment produced for one batch.
type MerkleRoot struct {
	RootHash    []byte
	AlgoID      string
	BatchID     uint64
	RecordCount int
	Timestamp   uint64
}

// RootHashHex returns the lowercase hex encoding of RootHash.
func (r *MerkleRoot) RootHashHex() string {
	return merkle.HashToHex(r.RootHash)
}

// BatchResult is what CreateBatch hands to the caller: the root plus the
// record ids in leaf order.
type BatchResult struct {
	Root      *MerkleRoot
	RecordIDs []string
}

// AnchoredBatch is the persisted, JSON-friendly form of a committed root.
type AnchoredBatch struct {
	BatchID     uint64 `json:"batch_id"`
	RootHashHex string `json:"root_hash"`
	AlgoID      string `json:"algo_id"`
	RecordCount int    `json:"record_count"`
	Timestamp   uint64 `json:"timestamp"`
	MetaURI     string `json:"meta_uri"`
	TxRef       string `json:"tx_ref,omitempty"`
}

// NewAnchoredBatch converts a root into its stored form. An empty prefix
// falls back to DefaultMetaURIPrefix.
func NewAnchoredBatch(root *MerkleRoot, metaURIPrefix string) *AnchoredBatch {
	return &AnchoredBatch{
		BatchID:     root.BatchID,
		RootHashHex: root.RootHashHex(),
		AlgoID:      root.AlgoID,
		RecordCount: root.RecordCount,
		Timestamp:   root.Timestamp,
		MetaURI:     MetaURI(metaURIPrefix, root.BatchID),
	}
}

// MetaURI builds "<prefix>/batch-<id>".
func MetaURI(prefix string, batchID uint64) string {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultMetaURIPrefix
	}
	return fmt.Sprintf("%s/batch-%d", prefix, batchID)
}

// RecordProof ties an inclusion proof to the batch whose stored root it
// must reproduce.
type RecordProof struct {
	BatchID      uint64        `json:"batch_id"`
	AnchoredRoot string        `json:"anchored_root"`
	TxRef        string        `json:"tx_ref,omitempty"`
	Proof        *merkle.Proof `json:"proof"`
}

// Verify checks the proof path and that the recomputed root matches the
// anchored one. A record edited after anchoring rebuilds to a different root
// and fails here even though its fresh proof is internally consistent.
func (p *RecordProof) Verify() bool {
	if p == nil || p.Proof == nil {
		return false
	}
	return merkle.VerifyProof(p.Proof) && p.Proof.RootHash == p.AnchoredRoot
}
