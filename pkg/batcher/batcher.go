// Package batcher is the operator role: it pools signed transactions and
// cuts them, in submission order, into fixed-size batches against a shared
// account state, producing the witness the prover needs for each batch.
package batcher

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/rs/zerolog/log"

	"snasma/pkg/circuit"
	"snasma/pkg/state"
	"snasma/pkg/witness"
)

// Batcher pools signed transactions and assembles them into batches. It
// holds no consensus or networking concerns: a Batcher is driven entirely
// by direct calls to Submit and CutBatch.
type Batcher struct {
	state *state.State

	poolMu sync.Mutex
	pool   []witness.SignedTx
}

// New returns a Batcher operating over the given state.
func New(s *state.State) *Batcher {
	return &Batcher{state: s}
}

// Submit validates and queues a signed transaction for the next batch.
// Queuing does not mutate account state — state only changes when a batch
// is cut, so a rejected or never-batched transaction leaves no trace.
func (b *Batcher) Submit(stx witness.SignedTx) error {
	if !stx.IsValid() {
		return fmt.Errorf("batcher: invalid transaction")
	}

	b.poolMu.Lock()
	defer b.poolMu.Unlock()
	b.pool = append(b.pool, stx)

	log.Info().
		Uint64("from", stx.Tx.FromIdx).
		Uint64("to", stx.Tx.ToIdx).
		Uint64("amount", stx.Tx.Amount).
		Uint64("nonce", stx.Nonce).
		Msg("queued transaction")
	return nil
}

// Pending returns the number of transactions waiting for a batch.
func (b *Batcher) Pending() int {
	b.poolMu.Lock()
	defer b.poolMu.Unlock()
	return len(b.pool)
}

// CutBatch applies the next circuit.BatchSize pooled transactions to the
// state tree, in FIFO order, and returns the resulting witness.BatchInput
// together with the post-batch root. If fewer than circuit.BatchSize
// transactions are pending, it returns an error and leaves the pool and
// state untouched; padding a short batch with no-op transactions is a
// caller decision, not the batcher's.
//
// If applying a pooled transaction fails — Submit checks only bit-widths,
// so a nonce mismatch or insufficient funds, including one caused by an
// earlier transaction in this same batch, surfaces here — the batch is
// abandoned.
// Every transaction up to and including the offending one is dropped from
// the pool, not just the offending one: state mutations already applied
// by the earlier transactions in this loop cannot be rolled back through
// the Tree's update-in-place API, so those transactions are already
// settled against state and must not be resubmitted by a future CutBatch
// call.
func (b *Batcher) CutBatch() (witness.BatchInput, *big.Int, error) {
	b.poolMu.Lock()
	defer b.poolMu.Unlock()

	if len(b.pool) < circuit.BatchSize {
		return witness.BatchInput{}, nil, fmt.Errorf("batcher: %d pending, need %d for a batch", len(b.pool), circuit.BatchSize)
	}

	rootBefore := new(big.Int).Set(b.state.Tree.Root())
	input := witness.BatchInput{
		RootBefore: rootBefore,
		Proofs:     make([]witness.TxProof, 0, circuit.BatchSize),
	}

	for i := 0; i < circuit.BatchSize; i++ {
		stx := b.pool[i]
		proof, err := b.state.Apply(stx)
		if err != nil {
			b.pool = b.pool[i+1:]
			log.Error().Err(err).Int("index", i).Msg("dropped queued transaction while cutting batch")
			return witness.BatchInput{}, nil, err
		}
		input.Proofs = append(input.Proofs, proof)
	}
	b.pool = b.pool[circuit.BatchSize:]

	rootAfter := new(big.Int).Set(b.state.Tree.Root())
	log.Info().
		Str("root_before", rootBefore.String()).
		Str("root_after", rootAfter.String()).
		Int("count", circuit.BatchSize).
		Msg("cut batch")
	return input, rootAfter, nil
}
