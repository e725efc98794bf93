// Package mmr implements a Merkle Mountain Range accumulator over block
// hashes. The accumulator keeps one optional peak per tree height, so its
// size stays logarithmic in the number of leaves while still committing to
// every block ever appended.
package mmr

import (
	"encoding/binary"
	"fmt"

	"github.com/dchest/blake2b"

	"github.com/zoroproject/zoro/foundation/zcash"
)

// mmrPersonalization domain-separates the accumulator hashes from the other
// BLAKE2b uses in the system. Nodes and the roots digest share it; their
// input lengths differ, and BLAKE2b binds the input length at finalization.
const mmrPersonalization = "ZcashBlockMMR"

// HashFunc combines two child digests into a parent digest. The production
// accumulator uses NodeHash; tests inject a transparent function so tree
// shapes can be checked by hand.
type HashFunc func(left, right zcash.Digest) zcash.Digest

// Accumulator is a Merkle Mountain Range in peaks-only form. Slot i holds
// the root of a perfect subtree of 2^i leaves, or nil when no such subtree
// exists, and the slice always ends with a single nil sentinel slot ready to
// receive the next carry.
//
// Accumulator has value semantics: Add returns a new accumulator and never
// mutates the receiver's slots.
type Accumulator struct {
	roots []*zcash.Digest
	hash  HashFunc
}

// New constructs an empty accumulator using the production node hash.
func New() Accumulator {
	return NewWithHash(NodeHash)
}

// NewWithHash constructs an empty accumulator with a caller-supplied node
// hash.
func NewWithHash(hash HashFunc) Accumulator {
	return Accumulator{
		roots: []*zcash.Digest{nil},
		hash:  hash,
	}
}

// FromRoots rebuilds an accumulator from previously exported roots. The
// trailing nil sentinel is restored if the export dropped it.
func FromRoots(hash HashFunc, roots []*zcash.Digest) Accumulator {
	rs := make([]*zcash.Digest, len(roots))
	for i, r := range roots {
		if r != nil {
			d := *r
			rs[i] = &d
		}
	}

	if len(rs) == 0 || rs[len(rs)-1] != nil {
		rs = append(rs, nil)
	}

	return Accumulator{roots: rs, hash: hash}
}

// Add appends one leaf and returns the grown accumulator. Insertion is the
// binary carry chain: the leaf merges with the existing root at each
// occupied height until it lands in a free slot.
func (a Accumulator) Add(leaf zcash.Digest) Accumulator {
	roots := make([]*zcash.Digest, len(a.roots))
	copy(roots, a.roots)

	carry := leaf

	i := 0
	for ; i < len(roots) && roots[i] != nil; i++ {
		carry = a.hash(*roots[i], carry)
		roots[i] = nil
	}

	if i == len(roots) {
		roots = append(roots, nil)
	}

	settled := carry
	roots[i] = &settled

	if i == len(roots)-1 {
		roots = append(roots, nil)
	}

	return Accumulator{roots: roots, hash: a.hash}
}

// Roots returns a copy of the peak slots, including the trailing nil
// sentinel.
func (a Accumulator) Roots() []*zcash.Digest {
	roots := make([]*zcash.Digest, len(a.roots))
	for i, r := range a.roots {
		if r != nil {
			d := *r
			roots[i] = &d
		}
	}
	return roots
}

// LeafCount derives the number of appended leaves from the occupied slots:
// slot i contributes 2^i leaves.
func (a Accumulator) LeafCount() uint64 {
	var n uint64
	for i, r := range a.roots {
		if r != nil {
			n += 1 << uint(i)
		}
	}
	return n
}

// Digest commits to the entire accumulator under a personalized BLAKE2b-256.
// Empty slots are written as zero digests and the slot count is appended,
// so accumulators with different shapes always hash differently.
func (a Accumulator) Digest() zcash.Digest {
	h, err := blake2b.New(&blake2b.Config{
		Size:   zcash.DigestSize,
		Person: []byte(mmrPersonalization),
	})
	if err != nil {
		// The config is constant; New can only reject a malformed one.
		panic(fmt.Sprintf("mmr digest hasher: %v", err))
	}

	for _, r := range a.roots {
		if r == nil {
			h.Write(zcash.ZeroDigest.Bytes())
			continue
		}
		h.Write(r.Bytes())
	}

	var count [8]byte
	binary.LittleEndian.PutUint64(count[:], uint64(len(a.roots)))
	h.Write(count[:])

	var d zcash.Digest
	copy(d[:], h.Sum(nil))
	return d
}

// MatchesPeaks reports whether the non-empty peaks of the accumulator equal
// the peak list of an inclusion proof. Proof peaks run left to right, from
// the largest subtree down; the slots store them smallest first, so the
// comparison walks the slots backwards.
func (a Accumulator) MatchesPeaks(peaks []zcash.Digest) bool {
	i := len(peaks) - 1

	for _, r := range a.roots {
		if r == nil {
			continue
		}
		if i < 0 || *r != peaks[i] {
			return false
		}
		i--
	}

	return i < 0
}

// NodeHash is the production parent hash: personalized BLAKE2b-256 over the
// two children.
func NodeHash(left, right zcash.Digest) zcash.Digest {
	h, err := blake2b.New(&blake2b.Config{
		Size:   zcash.DigestSize,
		Person: []byte(mmrPersonalization),
	})
	if err != nil {
		// The config is constant; New can only reject a malformed one.
		panic(fmt.Sprintf("mmr node hasher: %v", err))
	}

	h.Write(left.Bytes())
	h.Write(right.Bytes())

	var d zcash.Digest
	copy(d[:], h.Sum(nil))
	return d
}
