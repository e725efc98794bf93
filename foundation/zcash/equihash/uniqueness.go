package equihash

import (
	"fmt"
	"math/bits"
)

// schwartzZippelPrime is the Mersenne prime 2^61-1. Products of field
// elements fit a 128-bit intermediate, so the arithmetic stays in
// machine words.
const schwartzZippelPrime = 1<<61 - 1

// checkUniqueness proves the indices pairwise distinct using the
// prover-supplied sorted copy. The hint must be strictly increasing, which
// rules out duplicates within the hint itself, and must be a permutation of
// the indices, checked probabilistically by comparing the polynomials
// prod(r - indices[i]) and prod(r - hint[i]) at a point r derived from the
// indices. A dishonest hint passes with probability at most
// len(indices)/2^61, negligible for any real solution width.
func checkUniqueness(indices []uint32, sortedHint []uint32) error {
	if len(sortedHint) != len(indices) {
		return fmt.Errorf("hint has %d entries, want %d: %w", len(sortedHint), len(indices), ErrDuplicateIndices)
	}

	for i := 1; i < len(sortedHint); i++ {
		if sortedHint[i] <= sortedHint[i-1] {
			return fmt.Errorf("hint not strictly increasing at position %d: %w", i, ErrDuplicateIndices)
		}
	}

	r := challengePoint(indices)

	if productAt(r, indices) != productAt(r, sortedHint) {
		return fmt.Errorf("hint is not a permutation of the indices: %w", ErrDuplicateIndices)
	}

	return nil
}

// challengePoint derives the evaluation point from the indices themselves
// and offsets it past every representable index value, so each factor
// (r - index) is a positive integer before reduction.
func challengePoint(indices []uint32) uint64 {
	const base = 1099511628211

	var h uint64
	for _, idx := range indices {
		h = mulmod(h, base) + uint64(idx) + 1
		if h >= schwartzZippelPrime {
			h -= schwartzZippelPrime
		}
	}

	return h + 1<<32
}

// productAt evaluates prod(r - v) mod 2^61-1 over the values.
func productAt(r uint64, values []uint32) uint64 {
	acc := uint64(1)
	for _, v := range values {
		acc = mulmod(acc, (r-uint64(v))%schwartzZippelPrime)
	}
	return acc
}

// mulmod multiplies two field elements. Both operands are below 2^62, so
// the high half of the product is below the modulus and a single 128/64
// division reduces it.
func mulmod(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	_, rem := bits.Div64(hi, lo, schwartzZippelPrime)
	return rem
}
