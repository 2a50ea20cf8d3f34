package circuit

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/rangecheck"

	"snasma/pkg/core"
)

// Subadd enforces the balance-gadget contract: given sender balance a,
// receiver balance b and transfer amount n, it constrains
//
//	x = a - n, y = b + n, 0 <= n <= a, x < 2^BalanceBits, y < 2^BalanceBits
//
// and returns (x, y). The two overflow boundaries are checked with
// different comparators: the sender side with the non-strict
// AssertIsLessOrEqual gadget (n must not exceed the funds available), the
// receiver side with a strict bit-width range check (the post-transfer
// balance must still fit in BalanceBits).
func Subadd(api frontend.API, a, b, n frontend.Variable) (x, y frontend.Variable) {
	api.AssertIsLessOrEqual(n, a)

	x = api.Sub(a, n)
	y = api.Add(b, n)

	ranger := rangecheck.New(api)
	ranger.Check(x, core.BalanceBits)
	ranger.Check(y, core.BalanceBits)

	return x, y
}
