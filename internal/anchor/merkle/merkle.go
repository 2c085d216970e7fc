// Package merkle builds binary SHA-256 hash trees over record bytes and
// produces self-contained inclusion proofs.
//
// Levels are reduced pairwise. A trailing node without a partner is hashed
// with itself (H(x||x)); it is never promoted unhashed. A tree with a single
// leaf has that leaf hash as its root. Changing either rule changes every root
// already anchored.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

// AlgoSHA256 is the algorithm tag recorded with every root.
const AlgoSHA256 = "sha256"

// Proof is an inclusion proof for one leaf. Hashes are lowercase hex and
// ProofHashes run from the leaf level up to (excluding) the root.
type Proof struct {
	LeafHash    string   `json:"leaf_hash"`
	LeafIndex   int      `json:"leaf_index"`
	ProofHashes []string `json:"proof_hashes"`
	RootHash    string   `json:"root_hash"`
	RecordID    string   `json:"record_id"`
}

// Tree is an append-only list of leaf hashes with a parallel list of record
// ids (len(leaves) == len(ids) always). It is not safe for concurrent use;
// callers build one per batch and discard it.
type Tree struct {
	leaves [][]byte
	ids    []string
}

func New() *Tree {
	return &Tree{}
}

// AddLeaf hashes data and appends it with an empty record id.
func (t *Tree) AddLeaf(data []byte) {
	t.AddLeafWithID(data, "")
}

// AddLeafWithID hashes data and appends it, remembering id for proofs.
func (t *Tree) AddLeafWithID(data []byte, id string) {
	t.leaves = append(t.leaves, HashData(data))
	t.ids = append(t.ids, id)
}

// AddHash appends an already computed leaf hash.
func (t *Tree) AddHash(hash []byte) {
	t.leaves = append(t.leaves, bytes.Clone(hash))
	t.ids = append(t.ids, "")
}

func (t *Tree) LeafCount() int {
	return len(t.leaves)
}

// Leaves returns a copy of the leaf hashes in insertion order.
func (t *Tree) Leaves() [][]byte {
	out := make([][]byte, len(t.leaves))
	for i, l := range t.leaves {
		out[i] = bytes.Clone(l)
	}
	return out
}

// LeafIDs returns a copy of the record ids in leaf order.
func (t *Tree) LeafIDs() []string {
	return append([]string(nil), t.ids...)
}

// IndexOf returns the first leaf index carrying id, or -1.
func (t *Tree) IndexOf(id string) int {
	for i, v := range t.ids {
		if v == id {
			return i
		}
	}
	return -1
}

func (t *Tree) Clear() {
	t.leaves = nil
	t.ids = nil
}

// Root returns the Merkle root, or false for an empty tree.
func (t *Tree) Root() ([]byte, bool) {
	if len(t.leaves) == 0 {
		return nil, false
	}
	level := t.leaves
	for len(level) > 1 {
		level = nextLevel(level)
	}
	return bytes.Clone(level[0]), true
}

// GenerateProof returns the inclusion proof for the leaf at index, or false
// when the index is out of range.
func (t *Tree) GenerateProof(index int) (*Proof, bool) {
	if index < 0 || index >= len(t.leaves) {
		return nil, false
	}

	path := make([]string, 0)
	level := t.leaves
	pos := index
	for len(level) > 1 {
		sibling := pos ^ 1
		if sibling >= len(level) {
			// trailing odd node pairs with itself
			sibling = pos
		}
		path = append(path, HashToHex(level[sibling]))
		level = nextLevel(level)
		pos /= 2
	}

	return &Proof{
		LeafHash:    HashToHex(t.leaves[index]),
		LeafIndex:   index,
		ProofHashes: path,
		RootHash:    HashToHex(level[0]),
		RecordID:    t.ids[index],
	}, true
}

// VerifyProof recomputes the root from the proof alone. It returns false for
// any malformed input rather than failing.
func VerifyProof(p *Proof) bool {
	if p == nil || p.LeafIndex < 0 {
		return false
	}
	current, err := hex.DecodeString(p.LeafHash)
	if err != nil {
		return false
	}
	pos := p.LeafIndex
	for _, siblingHex := range p.ProofHashes {
		sibling, err := hex.DecodeString(siblingHex)
		if err != nil {
			return false
		}
		if pos%2 == 0 {
			current = hashPair(current, sibling)
		} else {
			current = hashPair(sibling, current)
		}
		pos /= 2
	}
	return HashToHex(current) == p.RootHash
}

// HashData returns SHA-256(data).
func HashData(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// HashToHex hex-encodes a digest.
func HashToHex(hash []byte) string {
	return hex.EncodeToString(hash)
}

func nextLevel(level [][]byte) [][]byte {
	next := make([][]byte, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		left := level[i]
		right := left
		if i+1 < len(level) {
			right = level[i+1]
		}
		next = append(next, hashPair(left, right))
	}
	return next
}

func hashPair(left, right []byte) []byte {
	h := sha256.New()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}
