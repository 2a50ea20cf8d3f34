// Package witness models the per-transaction witness records the operator
// publishes to a prover, and the plain-text format they are read from.
package witness

import (
	"math/big"

	"snasma/pkg/core"
)

// Point is an affine twisted-Edwards curve point.
type Point struct {
	X, Y *big.Int
}

// OnchainTx is the compact per-transaction summary that ends up published
// alongside the proof: sender index, receiver index, amount.
type OnchainTx struct {
	FromIdx uint64
	ToIdx   uint64
	Amount  uint64
}

// IsValid reports whether the transaction respects its declared bit-widths
// and the amount-positivity invariant (P6).
func (tx OnchainTx) IsValid() bool {
	return tx.FromIdx < uint64(1)<<core.Depth &&
		tx.ToIdx < uint64(1)<<core.Depth &&
		tx.Amount != 0 && tx.Amount < uint64(1)<<core.AmountBits
}

// Signature is an EdDSA signature: a curve point R and a scalar s.
type Signature struct {
	R Point
	S *big.Int
}

// AccountState is one account's leaf content before hashing.
type AccountState struct {
	PubKey  Point
	Balance *big.Int
	Nonce   uint64
}

// IsValid reports whether the nonce fits its declared bit-width.
func (a AccountState) IsValid() bool {
	return a.Nonce < uint64(1)<<core.Depth
}

// SignedTx is an OnchainTx together with the nonce and signature that
// authorize it.
type SignedTx struct {
	Tx    OnchainTx
	Nonce uint64
	Sig   Signature
}

// IsValid reports whether the embedded transaction and nonce are valid.
func (s SignedTx) IsValid() bool {
	return s.Tx.IsValid() && s.Nonce < uint64(1)<<core.Depth
}

// TxProof is the witness for one transaction-application step: the signed
// transaction, both accounts' pre-state, and the three sibling arrays the
// circuit needs to walk the sender's and receiver's leaves through the
// tree. AfterTo is carried for parity with the on-disk format but is not
// consumed by the single-step circuit: BeforeTo already authenticates the
// receiver's leaf both before and after its update, since updating a leaf
// cannot change any sibling on its own path.
type TxProof struct {
	Stx        SignedTx
	StateFrom  AccountState
	StateTo    AccountState
	BeforeFrom [core.Depth]*big.Int
	BeforeTo   [core.Depth]*big.Int
	AfterTo    [core.Depth]*big.Int
}

// BatchInput is an ordered sequence of TxProof records sharing one public
// pre-state root.
type BatchInput struct {
	RootBefore *big.Int
	Proofs     []TxProof
}
