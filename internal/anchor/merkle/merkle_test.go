package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sha(parts ...[]byte) []byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

func buildTree(items [][]byte) *Tree {
	tree := New()
	for i, item := range items {
		tree.AddLeafWithID(item, fmt.Sprintf("rec-%d", i))
	}
	return tree
}

func randomItems(r *rand.Rand, n int) [][]byte {
	items := make([][]byte, n)
	for i := range items {
		b := make([]byte, 1+r.Intn(64))
		r.Read(b)
		items[i] = b
	}
	return items
}

// flipByte returns hexStr with one decoded byte inverted.
func flipByte(t *testing.T, hexStr string, pos int) string {
	t.Helper()
	b, err := hex.DecodeString(hexStr)
	require.NoError(t, err)
	b[pos%len(b)] ^= 0xff
	return hex.EncodeToString(b)
}

func TestRoot_EmptyTree(t *testing.T) {
	root, ok := New().Root()
	assert.False(t, ok)
	assert.Nil(t, root)
}

func TestRoot_SingleLeafIsLeafHash(t *testing.T) {
	tree := New()
	tree.AddLeaf([]byte("hello"))

	root, ok := tree.Root()
	require.True(t, ok)
	assert.Equal(t, sha([]byte("hello")), root, "single leaf is not paired with itself")
	assert.NotEqual(t, sha(sha([]byte("hello")), sha([]byte("hello"))), root)
}

func TestRoot_PairingAndOddDuplication(t *testing.T) {
	a, b, c := []byte("data1"), []byte("data2"), []byte("data3")
	ha, hb, hc := sha(a), sha(b), sha(c)

	two := buildTree([][]byte{a, b})
	root, ok := two.Root()
	require.True(t, ok)
	assert.Equal(t, sha(ha, hb), root)

	three := buildTree([][]byte{a, b, c})
	root, ok = three.Root()
	require.True(t, ok)
	assert.Len(t, root, 32)
	assert.Equal(t, sha(sha(ha, hb), sha(hc, hc)), root, "odd trailing leaf is hashed with itself")

	// five leaves: the odd node is duplicated at the second level too
	d, e := []byte("data4"), []byte("data5")
	hd, he := sha(d), sha(e)
	five := buildTree([][]byte{a, b, c, d, e})
	root, ok = five.Root()
	require.True(t, ok)
	l1 := [][]byte{sha(ha, hb), sha(hc, hd), sha(he, he)}
	l2 := [][]byte{sha(l1[0], l1[1]), sha(l1[2], l1[2])}
	assert.Equal(t, sha(l2[0], l2[1]), root)
}

func TestRoot_Deterministic(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for n := 1; n <= 40; n++ {
		items := randomItems(r, n)
		root1, ok1 := buildTree(items).Root()
		root2, ok2 := buildTree(items).Root()
		require.True(t, ok1)
		require.True(t, ok2)
		assert.Equal(t, root1, root2, "n=%d", n)
	}
}

func TestRoot_OrderMatters(t *testing.T) {
	r1, _ := buildTree([][]byte{[]byte("test"), []byte("data")}).Root()
	r2, _ := buildTree([][]byte{[]byte("data"), []byte("test")}).Root()
	assert.NotEqual(t, r1, r2)
}

func TestGenerateProof_OutOfBounds(t *testing.T) {
	_, ok := New().GenerateProof(0)
	assert.False(t, ok, "empty tree")

	tree := buildTree([][]byte{[]byte("a"), []byte("b")})
	_, ok = tree.GenerateProof(2)
	assert.False(t, ok)
	_, ok = tree.GenerateProof(-1)
	assert.False(t, ok)
}

func TestGenerateProof_Shape(t *testing.T) {
	a, b, c := []byte("p1"), []byte("p2"), []byte("p3")
	tree := buildTree([][]byte{a, b, c})

	proof, ok := tree.GenerateProof(2)
	require.True(t, ok)
	root, _ := tree.Root()

	assert.Equal(t, HashToHex(sha(c)), proof.LeafHash)
	assert.Equal(t, 2, proof.LeafIndex)
	assert.Equal(t, "rec-2", proof.RecordID)
	assert.Equal(t, HashToHex(root), proof.RootHash)
	assert.Equal(t, []string{
		HashToHex(sha(c)),              // self-duplicate at the leaf level
		HashToHex(sha(sha(a), sha(b))), // left sibling one level up
	}, proof.ProofHashes)
}

func TestGenerateProof_SingleLeaf(t *testing.T) {
	tree := buildTree([][]byte{[]byte("only")})
	proof, ok := tree.GenerateProof(0)
	require.True(t, ok)
	assert.Empty(t, proof.ProofHashes)
	assert.Equal(t, proof.LeafHash, proof.RootHash)
	assert.True(t, VerifyProof(proof))
}

func TestVerifyProof_AllIndices(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for n := 1; n <= 33; n++ {
		tree := buildTree(randomItems(r, n))
		for i := 0; i < n; i++ {
			proof, ok := tree.GenerateProof(i)
			require.True(t, ok)
			assert.True(t, VerifyProof(proof), "n=%d index=%d", n, i)
		}
	}
}

func TestGenerateProof_Deterministic(t *testing.T) {
	items := randomItems(rand.New(rand.NewSource(3)), 11)
	t1, t2 := buildTree(items), buildTree(items)
	for i := 0; i < len(items); i++ {
		p1, _ := t1.GenerateProof(i)
		p2, _ := t2.GenerateProof(i)
		assert.Equal(t, p1, p2)
	}
}

func TestVerifyProof_TamperSensitivity(t *testing.T) {
	items := randomItems(rand.New(rand.NewSource(11)), 13)
	tree := buildTree(items)

	for i := 0; i < len(items); i++ {
		proof, ok := tree.GenerateProof(i)
		require.True(t, ok)

		for bytePos := 0; bytePos < 32; bytePos += 7 {
			leafTampered := *proof
			leafTampered.LeafHash = flipByte(t, proof.LeafHash, bytePos)
			assert.False(t, VerifyProof(&leafTampered), "leaf byte %d index %d", bytePos, i)

			for s := range proof.ProofHashes {
				sibTampered := *proof
				sibTampered.ProofHashes = append([]string(nil), proof.ProofHashes...)
				sibTampered.ProofHashes[s] = flipByte(t, proof.ProofHashes[s], bytePos)
				assert.False(t, VerifyProof(&sibTampered), "sibling %d byte %d index %d", s, bytePos, i)
			}
		}
	}
}

func TestVerifyProof_Malformed(t *testing.T) {
	tree := buildTree([][]byte{[]byte("a"), []byte("b"), []byte("c")})
	proof, _ := tree.GenerateProof(1)

	assert.False(t, VerifyProof(nil))

	bad := *proof
	bad.LeafHash = "zz-not-hex"
	assert.False(t, VerifyProof(&bad))

	bad = *proof
	bad.ProofHashes = []string{"abc", proof.ProofHashes[1]}
	assert.False(t, VerifyProof(&bad))

	bad = *proof
	bad.LeafIndex = 0
	assert.False(t, VerifyProof(&bad), "wrong position swaps concatenation order")

	bad = *proof
	bad.LeafIndex = -1
	assert.False(t, VerifyProof(&bad))

	bad = *proof
	bad.RootHash = flipByte(t, proof.RootHash, 0)
	assert.False(t, VerifyProof(&bad))
}

func TestTree_IDsParallelLeaves(t *testing.T) {
	tree := New()
	tree.AddLeaf([]byte("x"))
	tree.AddLeafWithID([]byte("y"), "rec-y")
	tree.AddHash(sha([]byte("z")))

	assert.Equal(t, 3, tree.LeafCount())
	assert.Equal(t, []string{"", "rec-y", ""}, tree.LeafIDs())
	assert.Len(t, tree.Leaves(), 3)
	assert.Equal(t, 1, tree.IndexOf("rec-y"))
	assert.Equal(t, -1, tree.IndexOf("missing"))

	tree.Clear()
	assert.Zero(t, tree.LeafCount())
	assert.Empty(t, tree.LeafIDs())
	_, ok := tree.Root()
	assert.False(t, ok)
}
