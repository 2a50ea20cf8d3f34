package circuit

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash"

	"snasma/pkg/core"
)

// Authenticate asserts that leaf, combined with the D-long sibling array
// following the path described by indexBits, hashes to root. indexBits[i]
// selects, at level i, whether the current node is the left (0) or right
// (1) child of its parent — the convention gnark's own merkle gadget uses.
func Authenticate(api frontend.API, h hash.FieldHasher, root frontend.Variable, indexBits [core.Depth]frontend.Variable, siblings [core.Depth]frontend.Variable, leaf frontend.Variable) {
	api.AssertIsEqual(ComputeRoot(api, h, indexBits, siblings, leaf), root)
}

// ComputeRoot walks leaf up through the D sibling hashes following the path
// described by indexBits and returns the resulting root. Re-using the same
// siblings array with a different leaf recomputes the root after that one
// leaf changes, since updating a single leaf cannot change any sibling on
// its own path.
func ComputeRoot(api frontend.API, h hash.FieldHasher, indexBits [core.Depth]frontend.Variable, siblings [core.Depth]frontend.Variable, leaf frontend.Variable) frontend.Variable {
	current := leaf
	for i := 0; i < core.Depth; i++ {
		sibling := siblings[i]
		bit := indexBits[i]

		left := api.Select(bit, sibling, current)
		right := api.Select(bit, current, sibling)

		h.Reset()
		h.Write(left, right)
		current = h.Sum()
	}
	return current
}
