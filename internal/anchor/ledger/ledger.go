// Package ledger publishes Merkle roots to an external append-only log and
// returns a transaction reference for each anchored batch.
package ledger

import "errors"

// ErrLedgerUnavailable is returned when the ledger rejects or cannot accept an anchor.
var ErrLedgerUnavailable = errors.New("ledger unavailable")

// AnchorRequest carries the batch commitment to the ledger.
type AnchorRequest struct {
	BatchID     uint64 `json:"batch_id"`
	RootHashHex string `json:"root_hash"`
	AlgoID      string `json:"algo_id"`
	RecordCount int    `json:"record_count"`
	MetaURI     string `json:"meta_uri"`
}
