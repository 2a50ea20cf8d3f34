// Command snasma is the thin CLI wrapper around the batch circuit: it
// reads a witness file, checks whether the resulting batch satisfies the
// constraint system, and reports the result through its exit code. Proof
// generation itself is not on the happy path here — the CLI's job is
// bounding the core's I/O, not serving as a production prover front-end.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"snasma/pkg/circuit"
	"snasma/pkg/core"
	"snasma/pkg/prover"
	"snasma/pkg/state"
	"snasma/pkg/witness"
)

const (
	exitOK            = 0
	exitUsage         = 1
	exitOpenFailure   = 2
	exitParseFailure  = 3
	exitUnsatisfiable = 4
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	_ = godotenv.Load()

	var echo bool

	root := &cobra.Command{
		Use:   "snasma <batch-count> <witness-file>",
		Short: "Check a batch of signed transactions against the transaction-application circuit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], args[1], echo)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Flags().BoolVar(&echo, "echo", false, "print each parsed transaction summary before checking the batch")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("snasma failed")
		os.Exit(exitCodeFor(err))
	}
}

// stageError lets run() report which stage failed without main having to
// re-derive it from error text.
type stageError struct {
	code int
	err  error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func exitCodeFor(err error) int {
	var se *stageError
	if as(err, &se) {
		return se.code
	}
	return exitUsage
}

func as(err error, target **stageError) bool {
	for err != nil {
		if se, ok := err.(*stageError); ok {
			*target = se
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func run(countArg, path string, echo bool) error {
	var n int
	if _, err := fmt.Sscanf(countArg, "%d", &n); err != nil || n <= 0 {
		return &stageError{exitUsage, fmt.Errorf("batch-count must be a positive integer, got %q", countArg)}
	}
	if n != circuit.BatchSize {
		return &stageError{exitUsage, fmt.Errorf("batch-count %d does not match the compiled batch size %d", n, circuit.BatchSize)}
	}

	f, err := os.Open(path)
	if err != nil {
		return &stageError{exitOpenFailure, fmt.Errorf("opening witness file: %w", err)}
	}
	defer f.Close()

	proofs, err := witness.Deserialize(f, n)
	if err != nil {
		return &stageError{exitParseFailure, err}
	}
	if len(proofs) != n {
		return &stageError{exitParseFailure, fmt.Errorf("witness file has %d transaction records, want %d", len(proofs), n)}
	}

	if echo {
		for i, p := range proofs {
			log.Info().
				Int("index", i).
				Uint64("from", p.Stx.Tx.FromIdx).
				Uint64("to", p.Stx.Tx.ToIdx).
				Uint64("amount", p.Stx.Tx.Amount).
				Msg("parsed transaction")
		}
	}

	rootBefore, rootAfter, err := state.ReplayRoots(proofs)
	if err != nil {
		return &stageError{exitParseFailure, err}
	}

	input := witness.BatchInput{RootBefore: rootBefore, Proofs: proofs}
	assignment, err := witness.BatchAssignment(input, rootAfter)
	if err != nil {
		return &stageError{exitParseFailure, err}
	}

	p, err := loadOrSetupProver(core.DefaultConfig())
	if err != nil {
		return &stageError{exitUnsatisfiable, fmt.Errorf("preparing constraint system: %w", err)}
	}

	if err := p.Check(assignment); err != nil {
		return &stageError{exitUnsatisfiable, fmt.Errorf("batch invalid: %w", err)}
	}

	log.Info().Int("count", n).Msg("batch satisfied")
	return nil
}

// loadOrSetupProver reuses a trusted setup cached on disk if one exists at
// cfg's key paths, and otherwise runs a fresh setup and caches it there for
// the next invocation.
func loadOrSetupProver(cfg *core.Config) (*prover.Prover, error) {
	if p, err := prover.Load(cfg); err == nil {
		return p, nil
	}

	p, err := prover.Setup()
	if err != nil {
		return nil, err
	}
	if err := p.Save(cfg); err != nil {
		log.Warn().Err(err).Msg("could not cache trusted setup to disk")
	}
	return p, nil
}
