package chain

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/zoroproject/zoro/foundation/zcash"
	"github.com/zoroproject/zoro/foundation/zcash/equihash"
	"github.com/zoroproject/zoro/foundation/zcash/pow"
)

// ErrHashAboveTarget is returned when a block hash, read as a 256-bit
// little-endian integer, exceeds the target its header must satisfy.
var ErrHashAboveTarget = errors.New("block hash above target")

// Validate checks one candidate block against the chain state and returns
// the successor state. The input state is never mutated; on any failure the
// error reports which rule broke and the caller keeps its original state.
//
// The sortedHint carries the block's Equihash indices in ascending order.
// Callers that do not track one pass nil and it is derived on the spot;
// provers forward the hint untouched so verification stays linear.
func Validate(p zcash.Params, state ChainState, block Block, sortedHint []uint32) (ChainState, error) {
	next := state.Copy()
	next.hydrate()

	height := next.BlockHeight + 1

	// Timestamp rule first: the new time must beat the median of the
	// recent past.
	mtp, ok := MedianTimePast(next.PrevTimestamps, 0)
	if !ok {
		return ChainState{}, fmt.Errorf("chain state at height %d has no timestamp history", state.BlockHeight)
	}
	if err := ValidateTimestamp(mtp, block.Header.Time); err != nil {
		return ChainState{}, fmt.Errorf("block %d: %w", height, err)
	}

	// Difficulty: recompute the target this block must carry.
	target := nextTarget(p, next, height, mtp)
	next.CurrentTarget = target
	next.TotalWork.Add(next.TotalWork, pow.Work(target))

	// Proof of work: the header hash must land at or below the target and
	// the Equihash solution must check out against the header prefix.
	headerBytes := EncodeHeader(p, state.BestBlockHash, block)
	blockHash := HeaderDigest(headerBytes)

	if blockHash.ToUint256().Gt(target) {
		return ChainState{}, fmt.Errorf("block %d, hash %s: %w", height, blockHash, ErrHashAboveTarget)
	}

	if sortedHint == nil {
		sortedHint = equihash.SortedHint(block.Header.Solution)
	}

	eq := equihash.Params{N: p.EquihashN, K: p.EquihashK}
	input, err := EquihashInput(headerBytes)
	if err != nil {
		return ChainState{}, fmt.Errorf("block %d: %w", height, err)
	}
	if err := equihash.Verify(eq, input, block.Header.Solution, sortedHint); err != nil {
		return ChainState{}, fmt.Errorf("block %d: %w", height, err)
	}

	// The header must declare exactly the bits encoding of the computed
	// target; a prover cannot substitute an easier one.
	if err := pow.ValidateBits(target, block.Header.Bits); err != nil {
		return ChainState{}, fmt.Errorf("block %d: %w", height, err)
	}

	// All rules hold. Roll the state forward.
	next.BlockHeight = height
	next.BestBlockHash = blockHash

	next.PrevTimestamps = appendBounded(next.PrevTimestamps, block.Header.Time, zcash.MaxTimestampHistory)
	next.PowTargetHistory = appendBoundedTargets(next.PowTargetHistory, target, zcash.PowAveragingWindow)

	if height%zcash.EpochLength == 0 {
		next.EpochStartTime = block.Header.Time
	}

	return next, nil
}

// NextBlockTarget returns the proof-of-work target the next block on the
// state must satisfy. Miners and provers use it to know what to aim for;
// Validate recomputes it independently.
func NextBlockTarget(p zcash.Params, state ChainState) *uint256.Int {
	s := state.Copy()
	s.hydrate()

	mtp, _ := MedianTimePast(s.PrevTimestamps, 0)

	return nextTarget(p, s, s.BlockHeight+1, mtp)
}

// nextTarget computes the target from an already hydrated state. The window
// start median is only defined once a full averaging window of timestamps
// exists; before that NextTarget returns the floor anyway.
func nextTarget(p zcash.Params, s ChainState, height uint32, lastMTP uint32) *uint256.Int {
	if windowStartMTP, ok := MedianTimePast(s.PrevTimestamps, zcash.PowAveragingWindow); ok {
		return pow.NextTarget(p, s.PowTargetHistory, height, lastMTP, windowStartMTP)
	}
	return pow.Diff1Target(p)
}

// appendBounded appends to a rolling window, evicting the oldest entry once
// the window is full.
func appendBounded(window []uint32, v uint32, max int) []uint32 {
	window = append(window, v)
	if len(window) > max {
		window = window[len(window)-max:]
	}
	return window
}

func appendBoundedTargets(window []*uint256.Int, v *uint256.Int, max int) []*uint256.Int {
	window = append(window, v)
	if len(window) > max {
		window = window[len(window)-max:]
	}
	return window
}
