// Package state builds the off-circuit sparse Merkle tree of account
// states that the operator maintains between batches. It hashes with the
// same MiMC-over-BN254 compression function the circuit's Merkle gadgets
// use, so that a tree built here is exactly what pkg/circuit can prove
// membership against.
package state

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/hash"

	"snasma/pkg/core"
)

// Compress2 is the native counterpart of the in-circuit H2 compression
// function.
func Compress2(a, b *big.Int) *big.Int {
	h := hash.MIMC_BN254.New()
	h.Write(fieldBytes(a))
	h.Write(fieldBytes(b))
	var out fr.Element
	out.SetBytes(h.Sum(nil))
	return out.BigInt(new(big.Int))
}

func fieldBytes(v *big.Int) []byte {
	var e fr.Element
	e.SetBigInt(v)
	b := e.Bytes()
	return b[:]
}

// Leaf hashes an account state in the fixed order the circuit's leaf codec
// uses: pubkey.x, pubkey.y, balance, nonce.
func Leaf(pubkeyX, pubkeyY, balance *big.Int, nonce uint64) *big.Int {
	acc := Compress2(pubkeyX, pubkeyY)
	acc = Compress2(acc, balance)
	return Compress2(acc, new(big.Int).SetUint64(nonce))
}

type nodeKey struct {
	level uint8
	idx   uint64
}

// Tree is a sparse Merkle tree of depth core.Depth. Unpopulated subtrees
// read as the precomputed all-zero hash for their level, so the tree never
// needs to materialize more than the leaves that have actually been set.
type Tree struct {
	zero  [core.Depth + 1]*big.Int
	nodes map[nodeKey]*big.Int
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	t := &Tree{nodes: make(map[nodeKey]*big.Int)}
	t.zero[0] = big.NewInt(0)
	for i := 1; i <= core.Depth; i++ {
		t.zero[i] = Compress2(t.zero[i-1], t.zero[i-1])
	}
	return t
}

func (t *Tree) nodeAt(level uint8, idx uint64) *big.Int {
	if v, ok := t.nodes[nodeKey{level, idx}]; ok {
		return v
	}
	return t.zero[level]
}

// Root returns the current tree root.
func (t *Tree) Root() *big.Int {
	return t.nodeAt(core.Depth, 0)
}

// Update sets the leaf at idx and recomputes every ancestor hash on its
// path to the root.
func (t *Tree) Update(idx uint64, leaf *big.Int) {
	t.nodes[nodeKey{0, idx}] = leaf
	cur := leaf
	for level := uint8(0); level < core.Depth; level++ {
		sibling := t.nodeAt(level, idx^1)

		var left, right *big.Int
		if idx%2 == 0 {
			left, right = cur, sibling
		} else {
			left, right = sibling, cur
		}
		cur = Compress2(left, right)
		idx /= 2
		t.nodes[nodeKey{level + 1, idx}] = cur
	}
}

// Siblings returns the D sibling hashes along idx's path to the root,
// ordered from the leaf level upward — the order the Merkle path gadgets
// in pkg/circuit expect.
func (t *Tree) Siblings(idx uint64) [core.Depth]*big.Int {
	var out [core.Depth]*big.Int
	for level := uint8(0); level < core.Depth; level++ {
		out[level] = t.nodeAt(level, idx^1)
		idx /= 2
	}
	return out
}

// ComputeRoot is the off-circuit counterpart of pkg/circuit.ComputeRoot: it
// folds a leaf up through its sibling path to a root, without needing a
// live Tree. Bit i of idx (LSB first) selects whether the running hash is
// the left or right child at level i, matching the in-circuit gadget's
// api.ToBinary/api.Select convention.
func ComputeRoot(idx uint64, siblings [core.Depth]*big.Int, leaf *big.Int) *big.Int {
	cur := leaf
	for level := 0; level < core.Depth; level++ {
		sibling := siblings[level]
		var left, right *big.Int
		if (idx>>uint(level))&1 == 0 {
			left, right = cur, sibling
		} else {
			left, right = sibling, cur
		}
		cur = Compress2(left, right)
	}
	return cur
}
