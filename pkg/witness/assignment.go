package witness

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"
	"github.com/consensys/gnark/std/signature/eddsa"

	"snasma/pkg/circuit"
	"snasma/pkg/core"
)

func pointVar(p Point) twistededwards.Point {
	return twistededwards.Point{X: frontend.Variable(p.X), Y: frontend.Variable(p.Y)}
}

func siblingVars(arr [core.Depth]*big.Int) [core.Depth]frontend.Variable {
	var out [core.Depth]frontend.Variable
	for i, v := range arr {
		out[i] = frontend.Variable(v)
	}
	return out
}

// Step converts a TxProof into the circuit-level TxStep assignment. The
// sender's post-transaction nonce (sig_nonce + 1) is supplied here because
// it is a witness value the circuit only constrains, not derives.
func (p TxProof) Step() circuit.TxStep {
	nextNonce := new(big.Int).Add(new(big.Int).SetUint64(p.Stx.Nonce), big.NewInt(1))

	return circuit.TxStep{
		FromIdx: frontend.Variable(new(big.Int).SetUint64(p.Stx.Tx.FromIdx)),
		ToIdx:   frontend.Variable(new(big.Int).SetUint64(p.Stx.Tx.ToIdx)),
		Amount:  frontend.Variable(new(big.Int).SetUint64(p.Stx.Tx.Amount)),

		FromPubKey:  eddsa.PublicKey{A: pointVar(p.StateFrom.PubKey)},
		FromBalance: frontend.Variable(p.StateFrom.Balance),
		SigNonce:    frontend.Variable(new(big.Int).SetUint64(p.Stx.Nonce)),
		NextNonce:   frontend.Variable(nextNonce),

		ToPubKey:  eddsa.PublicKey{A: pointVar(p.StateTo.PubKey)},
		ToBalance: frontend.Variable(p.StateTo.Balance),
		ToNonce:   frontend.Variable(new(big.Int).SetUint64(p.StateTo.Nonce)),

		Signature: eddsa.Signature{R: pointVar(p.Stx.Sig.R), S: frontend.Variable(p.Stx.Sig.S)},

		BeforeFrom: siblingVars(p.BeforeFrom),
		BeforeTo:   siblingVars(p.BeforeTo),
	}
}

// BatchAssignment builds a circuit.BatchCircuit assignment from a
// BatchInput and the expected post-batch root. len(input.Proofs) must equal
// circuit.BatchSize.
func BatchAssignment(input BatchInput, rootAfter *big.Int) (*circuit.BatchCircuit, error) {
	if len(input.Proofs) != circuit.BatchSize {
		return nil, fmt.Errorf("witness: batch has %d transactions, want %d", len(input.Proofs), circuit.BatchSize)
	}

	assignment := &circuit.BatchCircuit{
		RootBefore: frontend.Variable(input.RootBefore),
		RootAfter:  frontend.Variable(rootAfter),
	}
	for i, p := range input.Proofs {
		assignment.Steps[i] = p.Step()
		assignment.FromIdx[i] = frontend.Variable(new(big.Int).SetUint64(p.Stx.Tx.FromIdx))
		assignment.ToIdx[i] = frontend.Variable(new(big.Int).SetUint64(p.Stx.Tx.ToIdx))
		assignment.Amount[i] = frontend.Variable(new(big.Int).SetUint64(p.Stx.Tx.Amount))
	}
	return assignment, nil
}
