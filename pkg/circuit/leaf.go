package circuit

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash"
)

// Leaf folds an account state into one field element using the two-input
// compression capability h, in the normative order (pubkey.x, pubkey.y,
// balance, nonce):
//
//	leaf = H2(H2(H2(pubkey.x, pubkey.y), balance), nonce)
//
// This order must match whatever off-circuit accounting builds the tree
// with (see pkg/state), or the circuit's membership checks will never be
// satisfiable against a tree assembled independently.
func Leaf(h hash.FieldHasher, pubkeyX, pubkeyY, balance, nonce frontend.Variable) frontend.Variable {
	h.Reset()
	h.Write(pubkeyX, pubkeyY)
	acc := h.Sum()

	h.Reset()
	h.Write(acc, balance)
	acc = h.Sum()

	h.Reset()
	h.Write(acc, nonce)
	return h.Sum()
}
