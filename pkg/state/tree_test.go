package state_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snasma/pkg/state"
	"snasma/pkg/witness"
)

func TestEmptyTreeIsDeterministic(t *testing.T) {
	a := state.NewTree()
	b := state.NewTree()
	assert.Equal(t, a.Root(), b.Root())
}

func TestUpdateChangesRoot(t *testing.T) {
	tree := state.NewTree()
	before := tree.Root()
	tree.Update(5, state.Leaf(big.NewInt(1), big.NewInt(2), big.NewInt(1000), 0))
	assert.NotEqual(t, before, tree.Root())
}

func TestSiblingsAuthenticateComputedRoot(t *testing.T) {
	tree := state.NewTree()
	leaf := state.Leaf(big.NewInt(9), big.NewInt(10), big.NewInt(500), 3)
	tree.Update(17, leaf)

	siblings := tree.Siblings(17)
	got := state.ComputeRoot(17, siblings, leaf)
	assert.Equal(t, tree.Root(), got)
}

func TestApplyRejectsNonceMismatch(t *testing.T) {
	s := state.New()
	s.SetAccount(1, witness.AccountState{
		PubKey:  witness.Point{X: big.NewInt(1), Y: big.NewInt(2)},
		Balance: big.NewInt(1000),
		Nonce:   3,
	})
	s.SetAccount(2, witness.AccountState{PubKey: witness.Point{X: big.NewInt(3), Y: big.NewInt(4)}, Balance: big.NewInt(0)})

	_, err := s.Apply(witness.SignedTx{
		Tx:    witness.OnchainTx{FromIdx: 1, ToIdx: 2, Amount: 10},
		Nonce: 0, // stale; account is already at nonce 3
	})
	require.Error(t, err)
}

func TestApplyRejectsInsufficientFunds(t *testing.T) {
	s := state.New()
	s.SetAccount(1, witness.AccountState{PubKey: witness.Point{X: big.NewInt(1), Y: big.NewInt(2)}, Balance: big.NewInt(100)})
	s.SetAccount(2, witness.AccountState{PubKey: witness.Point{X: big.NewInt(3), Y: big.NewInt(4)}, Balance: big.NewInt(0)})

	_, err := s.Apply(witness.SignedTx{Tx: witness.OnchainTx{FromIdx: 1, ToIdx: 2, Amount: 250}})
	require.Error(t, err)
}

func TestApplyUpdatesBalancesAndRoot(t *testing.T) {
	s := state.New()
	s.SetAccount(7, witness.AccountState{PubKey: witness.Point{X: big.NewInt(1), Y: big.NewInt(2)}, Balance: big.NewInt(1000)})
	s.SetAccount(42, witness.AccountState{PubKey: witness.Point{X: big.NewInt(3), Y: big.NewInt(4)}, Balance: big.NewInt(0)})

	rootBefore := new(big.Int).Set(s.Tree.Root())

	proof, err := s.Apply(witness.SignedTx{Tx: witness.OnchainTx{FromIdx: 7, ToIdx: 42, Amount: 250}})
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(1000), proof.StateFrom.Balance)
	assert.Equal(t, big.NewInt(750), s.Account(7).Balance)
	assert.Equal(t, big.NewInt(250), s.Account(42).Balance)
	assert.EqualValues(t, 1, s.Account(7).Nonce)
	assert.NotEqual(t, rootBefore, s.Tree.Root())

	rootBefore2, rootAfter, err := state.ReplayRoots([]witness.TxProof{proof})
	require.NoError(t, err)
	assert.Equal(t, rootBefore, rootBefore2)
	assert.Equal(t, s.Tree.Root(), rootAfter)
}
