// Package equihash implements verification of Equihash proof-of-work
// solutions, the memory-hard generalized-birthday scheme used by Zcash.
// A solution is a set of 2^k indices whose domain-separated hashes form a
// binary collision tree that XORs down to zero.
package equihash

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dchest/blake2b"
)

// Verification failures, one per stage, so callers can tell a malformed
// solution from a cryptographically invalid one.
var (
	ErrBadSolutionLength = errors.New("wrong number of solution indices")
	ErrIndexOutOfRange   = errors.New("solution index out of range")
	ErrDuplicateIndices  = errors.New("duplicate solution indices")
	ErrIndicesOutOfOrder = errors.New("solution indices out of order")
	ErrCollisionMismatch = errors.New("collision tree mismatch")
	ErrNonZeroRoot       = errors.New("collision tree root is not zero")
)

// Params holds the Equihash problem parameters. Zcash mainnet runs n=200,
// k=9; tests and the regression network run much smaller instances.
type Params struct {
	N uint32
	K uint32
}

// CollisionBitLen is the number of bits two siblings must agree on to merge.
func (p Params) CollisionBitLen() uint32 {
	return p.N / (p.K + 1)
}

// IndexBits is the bit width of a single solution index.
func (p Params) IndexBits() uint32 {
	return p.CollisionBitLen() + 1
}

// MaxIndex is the exclusive upper bound for a solution index.
func (p Params) MaxIndex() uint32 {
	return 1 << p.IndexBits()
}

// SolutionWidth is the number of indices in a solution: 2^k.
func (p Params) SolutionWidth() int {
	return 1 << p.K
}

// IndicesPerHashOutput is how many consecutive indices share one BLAKE2b
// invocation; each invocation yields this many n-bit rows.
func (p Params) IndicesPerHashOutput() uint32 {
	return 512 / p.N
}

// HashOutputLen is the byte length requested from the per-index hash.
func (p Params) HashOutputLen() uint32 {
	return p.IndicesPerHashOutput() * p.N / 8
}

// Verify checks an Equihash solution against the header bytes it was mined
// over (the serialized header up to and including the nonce). The sortedHint
// must hold the same indices in ascending order; provers that already track
// their indices sorted pass it through, everyone else can produce one with
// SortedHint. Verification is O(n log n) at worst and O(n) when the hint is
// honest.
func Verify(p Params, header []byte, indices []uint32, sortedHint []uint32) error {
	if len(indices) != p.SolutionWidth() {
		return fmt.Errorf("got %d, want %d: %w", len(indices), p.SolutionWidth(), ErrBadSolutionLength)
	}

	for i, idx := range indices {
		if idx >= p.MaxIndex() {
			return fmt.Errorf("index %d at position %d exceeds %d: %w", idx, i, p.MaxIndex()-1, ErrIndexOutOfRange)
		}
	}

	// The hint proves all indices distinct without a quadratic scan: a
	// strictly increasing sequence has no duplicates, and the permutation
	// check ties the hint to the actual indices.
	if err := checkUniqueness(indices, sortedHint); err != nil {
		return err
	}

	return checkCollisionTree(p, header, indices)
}

// SortedHint returns the indices sorted ascending, the form Verify expects
// as its uniqueness hint.
func SortedHint(indices []uint32) []uint32 {
	hint := make([]uint32, len(indices))
	copy(hint, indices)

	// Insertion sort keeps this allocation-free; solutions are small.
	for i := 1; i < len(hint); i++ {
		for j := i; j > 0 && hint[j] < hint[j-1]; j-- {
			hint[j], hint[j-1] = hint[j-1], hint[j]
		}
	}

	return hint
}

// =============================================================================

// row is one node of the collision tree: the remaining hash elements, each
// CollisionBitLen bits wide, plus the smallest index in the subtree for the
// left-right ordering rule.
type row struct {
	elements []uint32
	minIndex uint32
}

// checkCollisionTree rebuilds the binary collision tree bottom-up and checks
// the three merge rules at every internal node: the leading elements agree,
// the left subtree's minimum index precedes the right's, and the index sets
// are disjoint (already guaranteed globally by the uniqueness stage).
func checkCollisionTree(p Params, header []byte, indices []uint32) error {
	rows := make([]row, len(indices))
	for i, idx := range indices {
		elements, err := leafElements(p, header, idx)
		if err != nil {
			return err
		}
		rows[i] = row{elements: elements, minIndex: idx}
	}

	for level := uint32(0); level < p.K; level++ {
		next := rows[:0]

		for i := 0; i < len(rows); i += 2 {
			left, right := rows[i], rows[i+1]

			if left.elements[0] != right.elements[0] {
				return fmt.Errorf("level %d, pair %d: %w", level, i/2, ErrCollisionMismatch)
			}
			if left.minIndex >= right.minIndex {
				return fmt.Errorf("level %d, pair %d: %w", level, i/2, ErrIndicesOutOfOrder)
			}

			merged := make([]uint32, len(left.elements)-1)
			for j := range merged {
				merged[j] = left.elements[j+1] ^ right.elements[j+1]
			}

			next = append(next, row{elements: merged, minIndex: left.minIndex})
		}

		rows = next
	}

	if rows[0].elements[0] != 0 {
		return ErrNonZeroRoot
	}

	return nil
}

// leafElements derives the hash row for one index: a personalized BLAKE2b
// over the header and the index's hash-group number, sliced to the index's
// n-bit sub-chunk and expanded into k+1 elements of CollisionBitLen bits.
func leafElements(p Params, header []byte, idx uint32) ([]uint32, error) {
	h, err := blake2b.New(&blake2b.Config{
		Size:   uint8(p.HashOutputLen()),
		Person: personalization(p),
	})
	if err != nil {
		return nil, fmt.Errorf("constructing equihash hasher: %w", err)
	}

	var group [4]byte
	binary.LittleEndian.PutUint32(group[:], idx/p.IndicesPerHashOutput())

	h.Write(header)
	h.Write(group[:])
	out := h.Sum(nil)

	chunkLen := p.N / 8
	offset := (idx % p.IndicesPerHashOutput()) * chunkLen
	chunk := out[offset : offset+chunkLen]

	return expandBits(chunk, p.CollisionBitLen(), p.K+1), nil
}

// personalization builds the 16-byte BLAKE2b personalization tag
// "ZcashPoW" || le32(n) || le32(k).
func personalization(p Params) []byte {
	person := make([]byte, 16)
	copy(person, "ZcashPoW")
	binary.LittleEndian.PutUint32(person[8:], p.N)
	binary.LittleEndian.PutUint32(person[12:], p.K)
	return person
}

// expandBits splits a byte chunk, read as a most-significant-bit-first
// stream, into count elements of width bits each.
func expandBits(chunk []byte, width uint32, count uint32) []uint32 {
	elements := make([]uint32, count)

	for i := uint32(0); i < count; i++ {
		var v uint32
		for b := uint32(0); b < width; b++ {
			bit := i*width + b
			if chunk[bit/8]>>(7-bit%8)&1 == 1 {
				v |= 1 << (width - 1 - b)
			}
		}
		elements[i] = v
	}

	return elements
}
