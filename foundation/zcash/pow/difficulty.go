package pow

import (
	"github.com/holiman/uint256"

	"github.com/zoroproject/zoro/foundation/zcash"
)

// Damping and clamping constants for the difficulty adjustment. The actual
// timespan of an averaging window is pulled 1/4 of the way toward the
// expected timespan, then clamped so a single window can move difficulty at
// most 32% down or 16% up.
const (
	powDampingFactor     = 4
	powMaxAdjustDownRate = 32
	powMaxAdjustUpRate   = 16
)

// NextTarget computes the proof-of-work target the block at the specified
// height must satisfy, from the rolling target history and the medians of
// the timestamps at both ends of the averaging window.
//
// While the chain is younger than one full averaging window, or the supplied
// history is incomplete, the difficulty-1 floor is returned instead of
// running the adjustment. This matches the original behavior; on Zcash
// networks the difficulty-1 target and the proof-of-work limit are the same
// value, so the two floor conventions seen in older revisions coincide.
func NextTarget(p zcash.Params, history []*uint256.Int, height uint32, lastMTP uint32, windowStartMTP uint32) *uint256.Int {
	if height < zcash.PowAveragingWindow || len(history) < zcash.PowAveragingWindow {
		return Diff1Target(p)
	}

	avg := averageTarget(history)

	expected := int64(zcash.PowAveragingWindow) * int64(p.TargetSpacing(height))
	actual := dampenedTimespan(expected, int64(lastMTP)-int64(windowStartMTP))

	// new = avg * actual / expected, computed as
	// (avg/expected)*actual + (avg%expected)*actual/expected so the
	// intermediate products stay inside 256 bits.
	exp256 := uint256.NewInt(uint64(expected))
	act256 := uint256.NewInt(uint64(actual))

	quo, rem := new(uint256.Int), new(uint256.Int)
	quo.DivMod(avg, exp256, rem)

	quo.Mul(quo, act256)
	rem.Mul(rem, act256)
	rem.Div(rem, exp256)

	target := quo.Add(quo, rem)

	if limit := PowLimit(p); target.Gt(limit) {
		target = limit
	}

	return ReduceTargetPrecision(target)
}

// Work converts a target into the expected amount of work needed to produce
// a block hash at or below it: 2^256 / (target+1).
func Work(target *uint256.Int) *uint256.Int {
	if target.IsZero() {
		return new(uint256.Int)
	}

	// floor(2^256 / (t+1)) == floor((2^256 - 1 - t) / (t+1)) + 1, which
	// keeps the whole computation inside 256 bits.
	one := uint256.NewInt(1)
	den := new(uint256.Int).Add(target, one)
	num := new(uint256.Int).Not(target)

	return num.Div(num, den).Add(num, one)
}

// averageTarget returns the arithmetic mean of the target history. Entries
// can sit near 2^255 on easy test networks, so the targets are divided one
// by one and the remainders accumulated separately instead of summing first,
// keeping every intermediate value inside 256 bits.
func averageTarget(history []*uint256.Int) *uint256.Int {
	n := uint256.NewInt(uint64(len(history)))

	avg := new(uint256.Int)
	rems := new(uint256.Int)
	quo, rem := new(uint256.Int), new(uint256.Int)

	for _, t := range history {
		quo.DivMod(t, n, rem)
		avg.Add(avg, quo)
		rems.Add(rems, rem)
	}

	return avg.Add(avg, rems.Div(rems, n))
}

// dampenedTimespan smooths the measured window timespan 1/4 of the way
// toward the expected timespan and clamps the result to the allowed
// adjustment band.
func dampenedTimespan(expected int64, actual int64) int64 {
	if actual > expected {
		actual = expected + (actual-expected)/powDampingFactor
	} else {
		actual = expected - (expected-actual)/powDampingFactor
	}

	min := expected * (100 - powMaxAdjustUpRate) / 100
	max := expected * (100 + powMaxAdjustDownRate) / 100

	switch {
	case actual < min:
		return min
	case actual > max:
		return max
	}

	return actual
}
