// Package chain implements the block-header state transition: validating a
// candidate header against the running chain state and producing the
// successor state. The state is deliberately tiny, a few hundred bytes of
// rolling history, so it can be carried through storage, over the wire and
// into a proof system without dragging the chain behind it.
package chain

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/dchest/blake2b"
	"github.com/holiman/uint256"

	"github.com/zoroproject/zoro/foundation/zcash"
	"github.com/zoroproject/zoro/foundation/zcash/pow"
)

// statePersonalization domain-separates the chain-state digest from every
// other BLAKE2b use in the system.
const statePersonalization = "ZcashChainState"

// ChainState is the compact summary of a header chain: everything the next
// state transition needs and nothing more. Validation never mutates a state
// in place; a successor is built on a copy and returned only on success.
type ChainState struct {
	BlockHeight      uint32
	TotalWork        *uint256.Int
	BestBlockHash    zcash.Digest
	CurrentTarget    *uint256.Int
	PrevTimestamps   []uint32
	PowTargetHistory []*uint256.Int
	EpochStartTime   uint32
}

// GenesisState builds the state that precedes block one of a network: height
// zero, the genesis block hash as the tip, and histories seeded from the
// network parameters.
func GenesisState(p zcash.Params, genesisHash zcash.Digest) ChainState {
	return ChainState{
		BlockHeight:      0,
		TotalWork:        new(uint256.Int),
		BestBlockHash:    genesisHash,
		CurrentTarget:    pow.PowLimit(p),
		PrevTimestamps:   []uint32{p.GenesisTime},
		PowTargetHistory: []*uint256.Int{pow.PowLimit(p)},
		EpochStartTime:   p.GenesisTime,
	}
}

// Copy returns a deep copy. The big integers and history slices are cloned
// so the copy can be advanced without aliasing the original.
func (s ChainState) Copy() ChainState {
	c := s

	c.TotalWork = new(uint256.Int)
	if s.TotalWork != nil {
		c.TotalWork.Set(s.TotalWork)
	}

	c.CurrentTarget = new(uint256.Int)
	if s.CurrentTarget != nil {
		c.CurrentTarget.Set(s.CurrentTarget)
	}

	c.PrevTimestamps = append([]uint32(nil), s.PrevTimestamps...)

	c.PowTargetHistory = make([]*uint256.Int, len(s.PowTargetHistory))
	for i, t := range s.PowTargetHistory {
		c.PowTargetHistory[i] = new(uint256.Int).Set(t)
	}

	return c
}

// hydrate re-seeds empty histories so a state loaded from an external source
// with the rolling windows stripped can still be advanced. A state with
// populated histories passes through untouched.
func (s *ChainState) hydrate() {
	if len(s.PrevTimestamps) == 0 {
		s.PrevTimestamps = []uint32{s.EpochStartTime}
	}
	if len(s.PowTargetHistory) == 0 {
		s.PowTargetHistory = []*uint256.Int{new(uint256.Int).Set(s.CurrentTarget)}
	}
}

// Digest computes the canonical hash of the state under a personalized
// BLAKE2b-256. Every field is written in a fixed-width form, with the
// variable-length histories length-prefixed, so distinct states cannot
// serialize to the same stream.
func (s ChainState) Digest() zcash.Digest {
	h, err := blake2b.New(&blake2b.Config{
		Size:   zcash.DigestSize,
		Person: []byte(statePersonalization),
	})
	if err != nil {
		// The config is constant; New can only reject a malformed one.
		panic(fmt.Sprintf("chain state hasher: %v", err))
	}

	var u32 [4]byte

	binary.LittleEndian.PutUint32(u32[:], s.BlockHeight)
	h.Write(u32[:])

	work := s.TotalWork.Bytes32()
	h.Write(work[:])

	h.Write(s.BestBlockHash.Bytes())

	target := s.CurrentTarget.Bytes32()
	h.Write(target[:])

	h.Write([]byte{byte(len(s.PrevTimestamps))})
	for _, ts := range s.PrevTimestamps {
		binary.LittleEndian.PutUint32(u32[:], ts)
		h.Write(u32[:])
	}

	h.Write([]byte{byte(len(s.PowTargetHistory))})
	for _, t := range s.PowTargetHistory {
		b := t.Bytes32()
		h.Write(b[:])
	}

	binary.LittleEndian.PutUint32(u32[:], s.EpochStartTime)
	h.Write(u32[:])

	var d zcash.Digest
	copy(d[:], h.Sum(nil))
	return d
}

// =============================================================================

// stateJSON is the interchange form of a chain state: hex strings for the
// 256-bit quantities and display-order hashes, matching the exported data
// sets the importer consumes.
type stateJSON struct {
	BlockHeight      uint32       `json:"block_height"`
	TotalWork        string       `json:"total_work"`
	BestBlockHash    zcash.Digest `json:"best_block_hash"`
	CurrentTarget    string       `json:"current_target"`
	PrevTimestamps   []uint32     `json:"prev_timestamps"`
	PowTargetHistory []string     `json:"pow_target_history"`
	EpochStartTime   uint32       `json:"epoch_start_time"`
}

// MarshalJSON implements json.Marshaler.
func (s ChainState) MarshalJSON() ([]byte, error) {
	history := make([]string, len(s.PowTargetHistory))
	for i, t := range s.PowTargetHistory {
		history[i] = t.Hex()
	}

	return json.Marshal(stateJSON{
		BlockHeight:      s.BlockHeight,
		TotalWork:        s.TotalWork.Hex(),
		BestBlockHash:    s.BestBlockHash,
		CurrentTarget:    s.CurrentTarget.Hex(),
		PrevTimestamps:   s.PrevTimestamps,
		PowTargetHistory: history,
		EpochStartTime:   s.EpochStartTime,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *ChainState) UnmarshalJSON(data []byte) error {
	var js stateJSON
	if err := json.Unmarshal(data, &js); err != nil {
		return err
	}

	totalWork, err := uint256.FromHex(js.TotalWork)
	if err != nil {
		return fmt.Errorf("parsing total_work: %w", err)
	}

	currentTarget, err := uint256.FromHex(js.CurrentTarget)
	if err != nil {
		return fmt.Errorf("parsing current_target: %w", err)
	}

	history := make([]*uint256.Int, len(js.PowTargetHistory))
	for i, hex := range js.PowTargetHistory {
		if history[i], err = uint256.FromHex(hex); err != nil {
			return fmt.Errorf("parsing pow_target_history[%d]: %w", i, err)
		}
	}

	*s = ChainState{
		BlockHeight:      js.BlockHeight,
		TotalWork:        totalWork,
		BestBlockHash:    js.BestBlockHash,
		CurrentTarget:    currentTarget,
		PrevTimestamps:   js.PrevTimestamps,
		PowTargetHistory: history,
		EpochStartTime:   js.EpochStartTime,
	}

	return nil
}
