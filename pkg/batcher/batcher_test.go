package batcher_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snasma/pkg/batcher"
	"snasma/pkg/circuit"
	"snasma/pkg/state"
	"snasma/pkg/witness"
)

func seedAccount(s *state.State, idx uint64, balance int64) {
	s.SetAccount(idx, witness.AccountState{
		PubKey:  witness.Point{X: big.NewInt(int64(idx) + 1), Y: big.NewInt(int64(idx) + 2)},
		Balance: big.NewInt(balance),
	})
}

func TestCutBatchRequiresFullBatch(t *testing.T) {
	s := state.New()
	b := batcher.New(s)
	seedAccount(s, 1, 1000)
	seedAccount(s, 2, 0)

	require.NoError(t, b.Submit(witness.SignedTx{Tx: witness.OnchainTx{FromIdx: 1, ToIdx: 2, Amount: 10}}))
	assert.Equal(t, 1, b.Pending())

	_, _, err := b.CutBatch()
	assert.Error(t, err)
}

func TestCutBatchAppliesInOrder(t *testing.T) {
	s := state.New()
	b := batcher.New(s)
	for i := uint64(1); i <= 4; i++ {
		seedAccount(s, i, 1000)
	}

	for i := uint64(1); i <= uint64(circuit.BatchSize); i++ {
		require.NoError(t, b.Submit(witness.SignedTx{
			Tx:    witness.OnchainTx{FromIdx: i, ToIdx: (i % 4) + 1, Amount: 10},
			Nonce: 0,
		}))
	}

	input, rootAfter, err := b.CutBatch()
	require.NoError(t, err)
	assert.Len(t, input.Proofs, circuit.BatchSize)
	for i, p := range input.Proofs {
		assert.EqualValues(t, i+1, p.Stx.Tx.FromIdx)
	}
	assert.Equal(t, s.Tree.Root(), rootAfter)
	assert.Equal(t, 0, b.Pending())
}

func TestCutBatchDropsInvalidTransactionFromPool(t *testing.T) {
	s := state.New()
	b := batcher.New(s)
	seedAccount(s, 1, 10)
	seedAccount(s, 2, 0)

	for i := 0; i < circuit.BatchSize; i++ {
		require.NoError(t, b.Submit(witness.SignedTx{Tx: witness.OnchainTx{FromIdx: 1, ToIdx: 2, Amount: 1000}}))
	}

	_, _, err := b.CutBatch()
	assert.Error(t, err)
	assert.Equal(t, circuit.BatchSize-1, b.Pending())
}

func TestCutBatchDropsSettledTransactionsAheadOfFailure(t *testing.T) {
	s := state.New()
	b := batcher.New(s)
	seedAccount(s, 1, 1000)
	seedAccount(s, 2, 0)
	seedAccount(s, 3, 0)

	// index 0 and 1 succeed and mutate state (settled); index 2 fails
	// (account 1 holds only 990 after funding account 2, short of 5000);
	// index 3 never
	// gets a chance to apply.
	require.NoError(t, b.Submit(witness.SignedTx{Tx: witness.OnchainTx{FromIdx: 1, ToIdx: 2, Amount: 10}, Nonce: 0}))
	require.NoError(t, b.Submit(witness.SignedTx{Tx: witness.OnchainTx{FromIdx: 2, ToIdx: 3, Amount: 5}, Nonce: 0}))
	require.NoError(t, b.Submit(witness.SignedTx{Tx: witness.OnchainTx{FromIdx: 1, ToIdx: 2, Amount: 5000}, Nonce: 1}))
	require.NoError(t, b.Submit(witness.SignedTx{Tx: witness.OnchainTx{FromIdx: 3, ToIdx: 1, Amount: 1}, Nonce: 0}))

	_, _, err := b.CutBatch()
	assert.Error(t, err)

	// only the never-attempted transaction after the failure remains
	// queued; the two settled transactions ahead of it must not linger in
	// the pool where a later CutBatch would try to re-apply them against
	// their now-stale nonces.
	assert.Equal(t, 1, b.Pending())

	assert.Equal(t, big.NewInt(990), s.Account(1).Balance)
	assert.EqualValues(t, 1, s.Account(1).Nonce)
	assert.Equal(t, big.NewInt(5), s.Account(2).Balance)
	assert.EqualValues(t, 1, s.Account(2).Nonce)
	assert.Equal(t, big.NewInt(5), s.Account(3).Balance)
}
