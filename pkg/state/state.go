package state

import (
	"fmt"
	"math/big"

	"snasma/pkg/witness"
)

// State is the operator's view of account balances: a Tree plus the
// account records that hash into its leaves.
type State struct {
	Tree     *Tree
	accounts map[uint64]witness.AccountState
}

// New returns an empty state: every account starts at the zero account
// (pubkey coordinates (0, 0), zero balance, zero nonce).
func New() *State {
	return &State{Tree: NewTree(), accounts: make(map[uint64]witness.AccountState)}
}

// Account returns the account currently at idx, or the zero account if
// idx has never been written.
func (s *State) Account(idx uint64) witness.AccountState {
	if a, ok := s.accounts[idx]; ok {
		return a
	}
	return witness.AccountState{PubKey: witness.Point{X: big.NewInt(0), Y: big.NewInt(0)}, Balance: big.NewInt(0)}
}

// SetAccount writes an account record and updates its tree leaf to match.
func (s *State) SetAccount(idx uint64, a witness.AccountState) {
	s.accounts[idx] = a
	s.Tree.Update(idx, Leaf(a.PubKey.X, a.PubKey.Y, a.Balance, a.Nonce))
}

// Apply validates stx against the current account state, applies it, and
// returns the TxProof witness the circuit needs to prove this step.
//
// BeforeFrom is read before any leaf in this step changes. BeforeTo is
// read after the sender's leaf is updated but before the receiver's is —
// matching the mid-root the circuit computes between authenticating the
// sender and the receiver in pkg/circuit.ApplyTransaction. AfterTo is
// carried for parity with the on-disk witness format (see
// pkg/witness.TxProof) and is filled from the state after the receiver's
// leaf is updated.
func (s *State) Apply(stx witness.SignedTx) (witness.TxProof, error) {
	if !stx.IsValid() {
		return witness.TxProof{}, fmt.Errorf("state: invalid transaction")
	}

	from := s.Account(stx.Tx.FromIdx)
	if from.Nonce != stx.Nonce {
		return witness.TxProof{}, fmt.Errorf("state: nonce mismatch: account has %d, tx signed %d", from.Nonce, stx.Nonce)
	}

	amount := new(big.Int).SetUint64(stx.Tx.Amount)
	if from.Balance.Cmp(amount) < 0 {
		return witness.TxProof{}, fmt.Errorf("state: insufficient funds: account has %s, tx moves %s", from.Balance, amount)
	}

	to := s.Account(stx.Tx.ToIdx)

	beforeFrom := s.Tree.Siblings(stx.Tx.FromIdx)

	newFromBalance := new(big.Int).Sub(from.Balance, amount)
	newToBalance := new(big.Int).Add(to.Balance, amount)

	s.SetAccount(stx.Tx.FromIdx, witness.AccountState{
		PubKey:  from.PubKey,
		Balance: newFromBalance,
		Nonce:   from.Nonce + 1,
	})

	beforeTo := s.Tree.Siblings(stx.Tx.ToIdx)

	s.SetAccount(stx.Tx.ToIdx, witness.AccountState{
		PubKey:  to.PubKey,
		Balance: newToBalance,
		Nonce:   to.Nonce,
	})

	afterTo := s.Tree.Siblings(stx.Tx.ToIdx)

	return witness.TxProof{
		Stx:        stx,
		StateFrom:  from,
		StateTo:    to,
		BeforeFrom: beforeFrom,
		BeforeTo:   beforeTo,
		AfterTo:    afterTo,
	}, nil
}

// ReplayRoots derives the pre- and post-batch Merkle roots implied by an
// ordered sequence of TxProof witness records, by folding each step's
// sender and receiver leaves through their sibling paths exactly as
// pkg/circuit.ApplyTransaction does in-circuit. The on-disk witness format
// does not carry the batch's two public roots explicitly, so a verifier
// with only a witness file recovers them this way before checking the
// batch.
func ReplayRoots(proofs []witness.TxProof) (rootBefore, rootAfter *big.Int, err error) {
	if len(proofs) == 0 {
		return nil, nil, fmt.Errorf("state: cannot derive roots from an empty batch")
	}

	first := proofs[0]
	rootBefore = ComputeRoot(first.Stx.Tx.FromIdx, first.BeforeFrom,
		Leaf(first.StateFrom.PubKey.X, first.StateFrom.PubKey.Y, first.StateFrom.Balance, first.Stx.Nonce))

	root := rootBefore
	for _, p := range proofs {
		amount := new(big.Int).SetUint64(p.Stx.Tx.Amount)
		x := new(big.Int).Sub(p.StateFrom.Balance, amount)
		y := new(big.Int).Add(p.StateTo.Balance, amount)

		// mid-root is never exposed as part of the public statement; it
		// only has to agree with what before_to was authenticated against,
		// which the constraint system checks when the batch is proved.
		_ = ComputeRoot(p.Stx.Tx.FromIdx, p.BeforeFrom,
			Leaf(p.StateFrom.PubKey.X, p.StateFrom.PubKey.Y, x, p.Stx.Nonce+1))

		root = ComputeRoot(p.Stx.Tx.ToIdx, p.BeforeTo,
			Leaf(p.StateTo.PubKey.X, p.StateTo.PubKey.Y, y, p.StateTo.Nonce))
	}

	return rootBefore, root, nil
}
