// Package circuit implements the transaction-application circuit family:
// one signed transfer bound to two Merkle-path updates, balance arithmetic
// under bit-width constraints, and the chaining contract that lets many
// such steps compose into a batch.
package circuit

import (
	tedwards "github.com/consensys/gnark-crypto/ecc/twistededwards"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"
	"github.com/consensys/gnark/std/hash/mimc"
	"github.com/consensys/gnark/std/signature/eddsa"

	"snasma/pkg/core"
)

// TxStep holds the circuit-level variables of one transaction-application
// step: the witness for both accounts touched, the signature over the
// on-chain summary, and the sibling paths needed to walk the sender's and
// the receiver's leaves through the tree.
type TxStep struct {
	FromIdx frontend.Variable
	ToIdx   frontend.Variable
	Amount  frontend.Variable

	FromPubKey  eddsa.PublicKey
	FromBalance frontend.Variable
	SigNonce    frontend.Variable
	NextNonce   frontend.Variable

	ToPubKey  eddsa.PublicKey
	ToBalance frontend.Variable
	ToNonce   frontend.Variable

	Signature eddsa.Signature

	BeforeFrom [core.Depth]frontend.Variable
	BeforeTo   [core.Depth]frontend.Variable
}

// ApplyTransaction enforces every constraint of a single transaction
// application against preRoot and returns the resulting post-root:
//
//  1. bit widths of from_idx, to_idx, amount and sig_nonce
//  2. nonce advance (next_nonce = sig_nonce + 1)
//  3. EdDSA signature over from_idx || to_idx || amount || sig_nonce
//  4. sender pre-membership at preRoot, keyed by sig_nonce
//  5. the balance transfer (subadd)
//  6. the sender's post-leaf and the resulting mid-root
//  7. receiver pre-membership at mid-root — this is what forbids
//     from_idx == to_idx, since a self-transfer's receiver leaf at
//     mid-root has already been overwritten by the sender's update
//  8. the receiver's post-leaf and the resulting post-root
//
// Sender is always updated before receiver, and before_from is
// deliberately re-used both to authenticate the sender's pre-state and to
// compute the mid-root: updating one leaf cannot change any sibling on its
// own path.
func ApplyTransaction(api frontend.API, preRoot frontend.Variable, s TxStep) (postRoot frontend.Variable, err error) {
	fromIdxBits := api.ToBinary(s.FromIdx, core.Depth)
	toIdxBits := api.ToBinary(s.ToIdx, core.Depth)
	amountBits := api.ToBinary(s.Amount, core.AmountBits)
	sigNonceBits := api.ToBinary(s.SigNonce, core.Depth)

	api.AssertIsEqual(api.Add(s.SigNonce, 1), s.NextNonce)

	curve, err := twistededwards.NewEdCurve(api, tedwards.BN254)
	if err != nil {
		return nil, err
	}
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return nil, err
	}

	msgBits := make([]frontend.Variable, 0, 3*core.Depth+core.AmountBits)
	msgBits = append(msgBits, fromIdxBits...)
	msgBits = append(msgBits, toIdxBits...)
	msgBits = append(msgBits, amountBits...)
	msgBits = append(msgBits, sigNonceBits...)
	msg := api.FromBinary(msgBits...)

	h.Reset()
	if err := eddsa.Verify(curve, s.Signature, msg, s.FromPubKey, &h); err != nil {
		return nil, err
	}

	var fromIdxArr, toIdxArr [core.Depth]frontend.Variable
	copy(fromIdxArr[:], fromIdxBits)
	copy(toIdxArr[:], toIdxBits)

	h.Reset()
	leafBeforeFrom := Leaf(&h, s.FromPubKey.A.X, s.FromPubKey.A.Y, s.FromBalance, s.SigNonce)
	Authenticate(api, &h, preRoot, fromIdxArr, s.BeforeFrom, leafBeforeFrom)

	x, y := Subadd(api, s.FromBalance, s.ToBalance, s.Amount)

	h.Reset()
	leafAfterFrom := Leaf(&h, s.FromPubKey.A.X, s.FromPubKey.A.Y, x, s.NextNonce)
	midRoot := ComputeRoot(api, &h, fromIdxArr, s.BeforeFrom, leafAfterFrom)

	h.Reset()
	leafBeforeTo := Leaf(&h, s.ToPubKey.A.X, s.ToPubKey.A.Y, s.ToBalance, s.ToNonce)
	Authenticate(api, &h, midRoot, toIdxArr, s.BeforeTo, leafBeforeTo)

	h.Reset()
	leafAfterTo := Leaf(&h, s.ToPubKey.A.X, s.ToPubKey.A.Y, y, s.ToNonce)
	postRoot = ComputeRoot(api, &h, toIdxArr, s.BeforeTo, leafAfterTo)

	return postRoot, nil
}

// TransactionCircuit proves a single transaction application in isolation.
// It is used for unit-testing the step logic (see the scenarios in
// tx_test.go); the batch composer in batch.go chains TxStep instances
// directly rather than wrapping each in its own TransactionCircuit.
type TransactionCircuit struct {
	PreRoot  frontend.Variable `gnark:",public"`
	PostRoot frontend.Variable `gnark:",public"`

	Step TxStep
}

func (c *TransactionCircuit) Define(api frontend.API) error {
	got, err := ApplyTransaction(api, c.PreRoot, c.Step)
	if err != nil {
		return err
	}
	api.AssertIsEqual(got, c.PostRoot)
	return nil
}
