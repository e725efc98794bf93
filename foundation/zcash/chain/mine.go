package chain

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/zoroproject/zoro/foundation/zcash"
	"github.com/zoroproject/zoro/foundation/zcash/equihash"
	"github.com/zoroproject/zoro/foundation/zcash/pow"
)

// ErrMiningBudgetExhausted is returned when no valid block was found within
// the nonce budget.
var ErrMiningBudgetExhausted = errors.New("mining budget exhausted")

// MineRequest describes the block a caller wants mined on top of a state.
type MineRequest struct {
	Version          uint32
	Time             uint32
	MerkleRoot       zcash.Digest
	FinalSaplingRoot zcash.Digest

	// MaxNonces bounds the search. Zero means 1 << 16 attempts.
	MaxNonces uint32
}

// Mine produces a block that Validate will accept on top of the state. It
// runs the in-memory Equihash solver, so it is only practical on networks
// with small parameters; it exists for tests and local tooling, not for
// competing with real miners.
func Mine(p zcash.Params, state ChainState, req MineRequest) (Block, error) {
	target := NextBlockTarget(p, state)
	bits := pow.TargetToCompact(target)
	eq := equihash.Params{N: p.EquihashN, K: p.EquihashK}

	maxNonces := req.MaxNonces
	if maxNonces == 0 {
		maxNonces = 1 << 16
	}

	block := Block{
		Header: Header{
			Version:          req.Version,
			Time:             req.Time,
			Bits:             bits,
			FinalSaplingRoot: req.FinalSaplingRoot,
		},
		MerkleRoot: req.MerkleRoot,
	}

	for nonce := uint32(0); nonce < maxNonces; nonce++ {
		binary.LittleEndian.PutUint32(block.Header.Nonce[:4], nonce)

		// The Equihash input is the header up to the nonce; the solution
		// itself is appended after, so solving and hash grinding share
		// one encoding pass.
		block.Header.Solution = nil
		headerBytes := EncodeHeader(p, state.BestBlockHash, block)
		input := headerBytes[:equihashInputLen]

		solutions, err := equihash.Solve(eq, input)
		if err != nil {
			return Block{}, fmt.Errorf("solving nonce %d: %w", nonce, err)
		}

		for _, solution := range solutions {
			block.Header.Solution = solution

			full := EncodeHeader(p, state.BestBlockHash, block)
			hash := HeaderDigest(full)

			if !hash.ToUint256().Gt(target) {
				return block, nil
			}
		}
	}

	return Block{}, fmt.Errorf("after %d nonces: %w", maxNonces, ErrMiningBudgetExhausted)
}
