package circuit

import (
	"github.com/consensys/gnark/frontend"
)

// BatchSize is the number of transaction steps chained into one
// BatchCircuit. It is a compile-time constant because gnark circuits have a
// fixed shape; a different batch size means a different compiled circuit
// and a different trusted setup.
const BatchSize = 4

// BatchCircuit chains BatchSize TxStep instances so that each
// step's post-root feeds the next step's pre-root:
//
//	Steps[0].pre_root  = RootBefore
//	Steps[i+1].pre_root = Steps[i].post_root
//	RootAfter           = Steps[BatchSize-1].post_root
//
// Only the two end roots and, per transaction, the on-chain summary tuple
// (from_idx, to_idx, amount) are public — the intermediate roots between
// steps never leave the circuit.
type BatchCircuit struct {
	RootBefore frontend.Variable `gnark:",public"`
	RootAfter  frontend.Variable `gnark:",public"`

	FromIdx [BatchSize]frontend.Variable `gnark:",public"`
	ToIdx   [BatchSize]frontend.Variable `gnark:",public"`
	Amount  [BatchSize]frontend.Variable `gnark:",public"`

	Steps [BatchSize]TxStep
}

func (c *BatchCircuit) Define(api frontend.API) error {
	root := c.RootBefore
	for i := 0; i < BatchSize; i++ {
		step := c.Steps[i]

		// the public on-chain summary must match what the operator signed
		// the witness against
		api.AssertIsEqual(step.FromIdx, c.FromIdx[i])
		api.AssertIsEqual(step.ToIdx, c.ToIdx[i])
		api.AssertIsEqual(step.Amount, c.Amount[i])

		next, err := ApplyTransaction(api, root, step)
		if err != nil {
			return err
		}
		root = next
	}
	api.AssertIsEqual(root, c.RootAfter)
	return nil
}
