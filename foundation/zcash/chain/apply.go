package chain

import (
	"fmt"

	"github.com/zoroproject/zoro/foundation/attest"
	"github.com/zoroproject/zoro/foundation/zcash"
	"github.com/zoroproject/zoro/foundation/zcash/mmr"
)

// Batch is the unit of work a prover or importer executes: a starting state
// and accumulator, the blocks to fold onto them, and optionally an
// attestation that an earlier execution already vouched for the starting
// point.
type Batch struct {
	State       ChainState
	Accumulator mmr.Accumulator
	Blocks      []Block

	// SortedHints carries one ascending-index hint per block. Nil, or a
	// nil entry, means derive the hint locally.
	SortedHints [][]uint32

	// Attestation is the opaque proof for the starting point, empty when
	// the batch starts from an unattested state.
	Attestation []byte
}

// Result is the outcome of a batch: the advanced state and accumulator and
// the program identities inherited from the attestation chain, forwarded so
// a downstream verifier can see every program that ever touched the state.
type Result struct {
	State            ChainState
	Accumulator      mmr.Accumulator
	UpstreamPrograms []zcash.Digest
}

// Apply folds a batch of blocks onto its starting point. When the batch
// carries an attestation, the verifier's claim must match the starting state
// and accumulator digests exactly before any block is touched.
//
// Each block is validated against the running state, and the hash of the
// block it displaces as the tip is appended to the accumulator, keeping the
// accumulator one block behind the tip: the tip hash lives in the state, and
// every earlier block hash is committed by the accumulator.
func Apply(p zcash.Params, batch Batch, verifier attest.Verifier) (Result, error) {
	var upstream []zcash.Digest

	if len(batch.Attestation) > 0 {
		if verifier == nil {
			return Result{}, fmt.Errorf("batch carries an attestation but no verifier is configured")
		}

		claim, err := verifier.Verify(batch.Attestation)
		if err != nil {
			return Result{}, fmt.Errorf("verifying attestation: %w", err)
		}

		if err := attest.CheckPrecondition(claim, batch.State.Digest(), batch.Accumulator.Digest()); err != nil {
			return Result{}, err
		}

		upstream = claim.UpstreamPrograms
	}

	state := batch.State
	acc := batch.Accumulator

	for i, block := range batch.Blocks {
		var hint []uint32
		if i < len(batch.SortedHints) {
			hint = batch.SortedHints[i]
		}

		next, err := Validate(p, state, block, hint)
		if err != nil {
			return Result{}, fmt.Errorf("applying block %d of batch: %w", i, err)
		}

		acc = acc.Add(state.BestBlockHash)
		state = next
	}

	return Result{
		State:            state,
		Accumulator:      acc,
		UpstreamPrograms: upstream,
	}, nil
}
