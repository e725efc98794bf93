package mmr

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/zoroproject/zoro/foundation/zcash"
)

// Proof building failures.
var (
	ErrLeafOutOfRange = errors.New("leaf index out of range")
	ErrNoLeaves       = errors.New("no leaves")
)

// Proof is an inclusion proof for one leaf against an accumulator snapshot:
// the sibling hashes climbing from the leaf to its mountain peak, plus every
// peak of the range at that snapshot. The peaks tie the proof to the
// accumulator; a verifier checks the climb and then matches the peaks
// against the roots it trusts.
type Proof struct {
	PeaksHashes    []zcash.Digest `json:"peaks_hashes"`
	SiblingsHashes []zcash.Digest `json:"siblings_hashes"`
	LeafIndex      uint64         `json:"leaf_index"`
	LeafCount      uint64         `json:"leaf_count"`
}

// BuildProof constructs the inclusion proof for one leaf by materializing
// the full range over the given leaves. This is the explorer-side half; the
// verifier side never needs more than the proof itself.
func BuildProof(hash HashFunc, leaves []zcash.Digest, leafIndex uint64) (Proof, error) {
	if len(leaves) == 0 {
		return Proof{}, ErrNoLeaves
	}
	if leafIndex >= uint64(len(leaves)) {
		return Proof{}, fmt.Errorf("leaf %d of %d: %w", leafIndex, len(leaves), ErrLeafOutOfRange)
	}

	nodes := buildNodes(hash, leaves)
	size := uint64(len(nodes))

	var siblings []zcash.Digest

	pos := leafIndexToPos(leafIndex)
	height := uint32(0)
	for {
		var sibling, parent uint64

		if posHeight(pos+1) > height {
			// pos is a right child; the sibling sits one subtree below.
			sibling = pos - siblingOffset(height)
			parent = pos + 1
		} else {
			sibling = pos + siblingOffset(height)
			parent = sibling + 1
		}

		if sibling >= size {
			// No sibling inside the range: pos is a peak.
			break
		}

		siblings = append(siblings, nodes[sibling])
		pos = parent
		height++
	}

	peakPositions := peaks(size)
	peaksHashes := make([]zcash.Digest, len(peakPositions))
	for i, p := range peakPositions {
		peaksHashes[i] = nodes[p]
	}

	return Proof{
		PeaksHashes:    peaksHashes,
		SiblingsHashes: siblings,
		LeafIndex:      leafIndex,
		LeafCount:      uint64(len(leaves)),
	}, nil
}

// VerifyProof checks that the leaf climbs through the siblings to one of
// the claimed peaks. Callers must separately check the peaks against roots
// they trust, for example with Accumulator.MatchesPeaks.
func VerifyProof(hash HashFunc, leaf zcash.Digest, proof Proof) bool {
	size := leafCountToMMRSize(proof.LeafCount)

	pos := leafIndexToPos(proof.LeafIndex)
	if pos >= size {
		return false
	}

	current := leaf
	height := uint32(0)

	for _, sibling := range proof.SiblingsHashes {
		if posHeight(pos+1) > height {
			current = hash(sibling, current)
			pos = pos + 1
		} else {
			if pos+siblingOffset(height) >= size {
				// The climb already reached a peak; extra siblings
				// mean the proof is malformed.
				return false
			}
			current = hash(current, sibling)
			pos = pos + siblingOffset(height) + 1
		}
		height++
	}

	peakPositions := peaks(size)
	if len(proof.PeaksHashes) != len(peakPositions) {
		return false
	}

	for i, p := range peakPositions {
		if p == pos {
			return proof.PeaksHashes[i] == current
		}
	}

	return false
}

// buildNodes lays the range out in post-order array form: every leaf append
// is followed by the parents it completes.
func buildNodes(hash HashFunc, leaves []zcash.Digest) []zcash.Digest {
	nodes := make([]zcash.Digest, 0, 2*len(leaves))

	for _, leaf := range leaves {
		nodes = append(nodes, leaf)

		height := uint32(0)
		for posHeight(uint64(len(nodes))) > height {
			right := nodes[len(nodes)-1]
			left := nodes[uint64(len(nodes))-1-siblingOffset(height)]
			nodes = append(nodes, hash(left, right))
			height++
		}
	}

	return nodes
}

// =============================================================================
// Position arithmetic. Positions are zero-based indexes into the post-order
// array form of the range.

// posHeight returns the height of the node at a position: leaves are height
// zero. The walk repeatedly strips complete left subtrees until the position
// lands on the rightmost path, whose node heights are read off the all-ones
// pattern.
func posHeight(pos uint64) uint32 {
	for {
		n := pos + 1
		if n&(n+1) == 0 {
			return uint32(bits.OnesCount64(n)) - 1
		}

		k := uint(64 - bits.LeadingZeros64(n))
		leftSize := uint64(1)<<(k-1) - 1
		pos -= leftSize
	}
}

// leafIndexToPos maps the i-th leaf to its array position. Each preceding
// leaf contributes itself plus the parents it completed, which telescopes to
// 2i minus the number of set bits of i.
func leafIndexToPos(leafIndex uint64) uint64 {
	return 2*leafIndex - uint64(bits.OnesCount64(leafIndex))
}

// leafCountToMMRSize returns the node count of a range holding n leaves.
func leafCountToMMRSize(leafCount uint64) uint64 {
	return 2*leafCount - uint64(bits.OnesCount64(leafCount))
}

// siblingOffset is the distance between two siblings at a height.
func siblingOffset(height uint32) uint64 {
	return (2 << height) - 1
}

// peaks lists the peak positions of a range of the given size, left to
// right. Each iteration peels off the largest perfect subtree that fits in
// the remaining nodes.
func peaks(size uint64) []uint64 {
	var out []uint64

	var base uint64
	remaining := size
	for remaining > 0 {
		treeLeaves := uint64(1) << (bits.Len64(remaining+1) - 1)
		var treeSize uint64
		for {
			treeSize = 2*treeLeaves - 1
			if treeSize <= remaining {
				break
			}
			treeLeaves >>= 1
		}

		out = append(out, base+treeSize-1)
		base += treeSize
		remaining -= treeSize
	}

	return out
}
