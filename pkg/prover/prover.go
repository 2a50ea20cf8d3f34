// Package prover wires the proving-system layer: compiling
// circuit.BatchCircuit to R1CS, running Groth16 setup once, and producing
// or checking proofs against assembled witnesses. Everything here consumes
// an already-built constraint system; it never observes or mutates
// intermediate circuit-construction state (that discipline belongs to
// pkg/circuit).
package prover

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	gnarkwitness "github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"snasma/pkg/circuit"
	"snasma/pkg/core"
)

// Prover holds the compiled constraint system and the Groth16 key pair for
// circuit.BatchCircuit. Setup builds one by running a (non-production)
// trusted setup; Load and FromKeys build one around existing keys. Callers that need a real ceremony's keys should load them from
// disk instead of calling Setup.
type Prover struct {
	r1cs constraint.ConstraintSystem
	pk   groth16.ProvingKey
	vk   groth16.VerifyingKey
}

// Setup compiles circuit.BatchCircuit and runs Groth16's key generation.
func Setup() (*Prover, error) {
	var c circuit.BatchCircuit
	cs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &c)
	if err != nil {
		return nil, fmt.Errorf("prover: compiling batch circuit: %w", err)
	}

	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return nil, fmt.Errorf("prover: key generation: %w", err)
	}

	return &Prover{r1cs: cs, pk: pk, vk: vk}, nil
}

// FromKeys builds a Prover around an already-compiled constraint system and
// an existing key pair, for deployments that load proving and verifying
// keys produced by a separate, trusted setup ceremony.
func FromKeys(cs constraint.ConstraintSystem, pk groth16.ProvingKey, vk groth16.VerifyingKey) *Prover {
	return &Prover{r1cs: cs, pk: pk, vk: vk}
}

// VerifyingKey exposes the verifying key so it can be persisted or shared
// with a remote verifier.
func (p *Prover) VerifyingKey() groth16.VerifyingKey {
	return p.vk
}

// Load compiles circuit.BatchCircuit and reads a previously cached Groth16
// key pair from the paths in cfg, rather than regenerating a trusted setup.
// It returns an error if either artifact is missing so callers can fall back
// to Setup.
func Load(cfg *core.Config) (*Prover, error) {
	var c circuit.BatchCircuit
	cs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &c)
	if err != nil {
		return nil, fmt.Errorf("prover: compiling batch circuit: %w", err)
	}

	pkFile, err := os.Open(cfg.ProvingKeyFile)
	if err != nil {
		return nil, fmt.Errorf("prover: opening proving key: %w", err)
	}
	defer pkFile.Close()

	pk := groth16.NewProvingKey(ecc.BN254)
	if _, err := pk.ReadFrom(pkFile); err != nil {
		return nil, fmt.Errorf("prover: reading proving key: %w", err)
	}

	vkFile, err := os.Open(cfg.VerifyingKeyFile)
	if err != nil {
		return nil, fmt.Errorf("prover: opening verifying key: %w", err)
	}
	defer vkFile.Close()

	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(vkFile); err != nil {
		return nil, fmt.Errorf("prover: reading verifying key: %w", err)
	}

	return &Prover{r1cs: cs, pk: pk, vk: vk}, nil
}

// Save writes the proving and verifying keys to the paths in cfg, creating
// their parent directory if needed, so a later process can pick them up via
// Load instead of rerunning Setup.
func (p *Prover) Save(cfg *core.Config) error {
	if err := os.MkdirAll(filepath.Dir(cfg.ProvingKeyFile), 0o755); err != nil {
		return fmt.Errorf("prover: creating proving key directory: %w", err)
	}
	pkFile, err := os.Create(cfg.ProvingKeyFile)
	if err != nil {
		return fmt.Errorf("prover: creating proving key file: %w", err)
	}
	defer pkFile.Close()
	if _, err := p.pk.WriteTo(pkFile); err != nil {
		return fmt.Errorf("prover: writing proving key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.VerifyingKeyFile), 0o755); err != nil {
		return fmt.Errorf("prover: creating verifying key directory: %w", err)
	}
	vkFile, err := os.Create(cfg.VerifyingKeyFile)
	if err != nil {
		return fmt.Errorf("prover: creating verifying key file: %w", err)
	}
	defer vkFile.Close()
	if _, err := p.vk.WriteTo(vkFile); err != nil {
		return fmt.Errorf("prover: writing verifying key: %w", err)
	}

	return nil
}

// Check assigns the given batch and checks, without producing a proof,
// whether the constraint system is satisfied. This is the cheap path the
// CLI uses to decide its exit code: a full Groth16 proof is only worth
// generating once the batch is known to be valid.
func (p *Prover) Check(assignment *circuit.BatchCircuit) error {
	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return fmt.Errorf("prover: building witness: %w", err)
	}
	return p.r1cs.IsSolved(w)
}

// Prove assigns the given batch, produces a Groth16 proof, and returns the
// serialized proof together with the serialized public witness.
func (p *Prover) Prove(assignment *circuit.BatchCircuit) (proofBytes, publicWitnessBytes []byte, err error) {
	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, nil, fmt.Errorf("prover: building witness: %w", err)
	}

	proof, err := groth16.Prove(p.r1cs, p.pk, w)
	if err != nil {
		return nil, nil, fmt.Errorf("prover: batch invalid: %w", err)
	}

	var proofBuf bytes.Buffer
	if _, err := proof.WriteTo(&proofBuf); err != nil {
		return nil, nil, fmt.Errorf("prover: serializing proof: %w", err)
	}

	pub, err := w.Public()
	if err != nil {
		return nil, nil, fmt.Errorf("prover: extracting public witness: %w", err)
	}
	var pubBuf bytes.Buffer
	if _, err := pub.WriteTo(&pubBuf); err != nil {
		return nil, nil, fmt.Errorf("prover: serializing public witness: %w", err)
	}

	return proofBuf.Bytes(), pubBuf.Bytes(), nil
}

// Verify checks a serialized proof against a serialized public witness.
func (p *Prover) Verify(proofBytes, publicWitnessBytes []byte) error {
	pub, err := gnarkwitness.New(ecc.BN254.ScalarField())
	if err != nil {
		return fmt.Errorf("prover: allocating public witness: %w", err)
	}
	if _, err := pub.ReadFrom(bytes.NewReader(publicWitnessBytes)); err != nil {
		return fmt.Errorf("prover: deserializing public witness: %w", err)
	}

	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return fmt.Errorf("prover: deserializing proof: %w", err)
	}

	if err := groth16.Verify(proof, p.vk, pub); err != nil {
		return fmt.Errorf("prover: verification failed: %w", err)
	}
	return nil
}
