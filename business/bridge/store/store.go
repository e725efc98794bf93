// Package store persists the bridge's view of the header chain: the blocks
// it has accepted, the chain state after each of them, and the accumulator
// leaves needed to rebuild inclusion proofs. Everything is height-keyed in
// LevelDB with big-endian keys so range scans walk the chain in order.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/zoroproject/zoro/foundation/zcash"
	"github.com/zoroproject/zoro/foundation/zcash/chain"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// Key prefixes. Each record family gets one byte followed by the big-endian
// block height.
const (
	prefixBlock = 0x01
	prefixState = 0x02
	prefixLeaf  = 0x03
)

// headKey holds the height of the chain tip.
var headKey = []byte("head")

// Store provides access to the bridge database.
type Store struct {
	db *leveldb.DB
}

// New opens or creates the database at the given path.
func New(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("opening database at %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

// NewInMemory constructs a store backed by memory, for tests and tooling
// that never needs persistence.
func NewInMemory() (*Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================

// storedBlock is the RLP wire form of a block.
type storedBlock struct {
	Version          uint32
	Time             uint32
	Bits             uint32
	Nonce            [32]byte
	FinalSaplingRoot [32]byte
	MerkleRoot       [32]byte
	Solution         []uint32
}

// storedState is the RLP wire form of a chain state. The 256-bit quantities
// travel as big-endian byte strings.
type storedState struct {
	BlockHeight      uint32
	TotalWork        []byte
	BestBlockHash    [32]byte
	CurrentTarget    []byte
	PrevTimestamps   []uint32
	PowTargetHistory [][]byte
	EpochStartTime   uint32
}

// SaveBlock writes the block accepted at a height.
func (s *Store) SaveBlock(height uint32, block chain.Block) error {
	rec := storedBlock{
		Version:          block.Header.Version,
		Time:             block.Header.Time,
		Bits:             block.Header.Bits,
		Nonce:            block.Header.Nonce,
		FinalSaplingRoot: block.Header.FinalSaplingRoot,
		MerkleRoot:       block.MerkleRoot,
		Solution:         block.Header.Solution,
	}

	data, err := rlp.EncodeToBytes(rec)
	if err != nil {
		return fmt.Errorf("encoding block %d: %w", height, err)
	}

	return s.db.Put(key(prefixBlock, height), data, nil)
}

// Block reads the block accepted at a height.
func (s *Store) Block(height uint32) (chain.Block, error) {
	data, err := s.db.Get(key(prefixBlock, height), nil)
	if err != nil {
		return chain.Block{}, wrapNotFound(err, "block", height)
	}

	var rec storedBlock
	if err := rlp.DecodeBytes(data, &rec); err != nil {
		return chain.Block{}, fmt.Errorf("decoding block %d: %w", height, err)
	}

	return chain.Block{
		Header: chain.Header{
			Version:          rec.Version,
			Time:             rec.Time,
			Bits:             rec.Bits,
			Nonce:            rec.Nonce,
			FinalSaplingRoot: rec.FinalSaplingRoot,
			Solution:         rec.Solution,
		},
		MerkleRoot: rec.MerkleRoot,
	}, nil
}

// Blocks reads up to size blocks starting at the from height, stopping early
// at the end of the chain.
func (s *Store) Blocks(from uint32, size int) ([]chain.Block, error) {
	blocks := make([]chain.Block, 0, size)

	iter := s.db.NewIterator(&util.Range{
		Start: key(prefixBlock, from),
		Limit: []byte{prefixBlock + 1},
	}, nil)
	defer iter.Release()

	for iter.Next() {
		if len(blocks) == size {
			break
		}

		var rec storedBlock
		if err := rlp.DecodeBytes(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("decoding block at key %x: %w", iter.Key(), err)
		}

		blocks = append(blocks, chain.Block{
			Header: chain.Header{
				Version:          rec.Version,
				Time:             rec.Time,
				Bits:             rec.Bits,
				Nonce:            rec.Nonce,
				FinalSaplingRoot: rec.FinalSaplingRoot,
				Solution:         rec.Solution,
			},
			MerkleRoot: rec.MerkleRoot,
		})
	}

	if err := iter.Error(); err != nil {
		return nil, err
	}

	return blocks, nil
}

// SaveState writes the chain state reached after the block at a height.
func (s *Store) SaveState(height uint32, state chain.ChainState) error {
	rec := storedState{
		BlockHeight:      state.BlockHeight,
		TotalWork:        state.TotalWork.Bytes(),
		BestBlockHash:    state.BestBlockHash,
		CurrentTarget:    state.CurrentTarget.Bytes(),
		PrevTimestamps:   state.PrevTimestamps,
		PowTargetHistory: make([][]byte, len(state.PowTargetHistory)),
		EpochStartTime:   state.EpochStartTime,
	}
	for i, t := range state.PowTargetHistory {
		rec.PowTargetHistory[i] = t.Bytes()
	}

	data, err := rlp.EncodeToBytes(rec)
	if err != nil {
		return fmt.Errorf("encoding state %d: %w", height, err)
	}

	return s.db.Put(key(prefixState, height), data, nil)
}

// State reads the chain state reached after the block at a height.
func (s *Store) State(height uint32) (chain.ChainState, error) {
	data, err := s.db.Get(key(prefixState, height), nil)
	if err != nil {
		return chain.ChainState{}, wrapNotFound(err, "state", height)
	}

	var rec storedState
	if err := rlp.DecodeBytes(data, &rec); err != nil {
		return chain.ChainState{}, fmt.Errorf("decoding state %d: %w", height, err)
	}

	history := make([]*uint256.Int, len(rec.PowTargetHistory))
	for i, b := range rec.PowTargetHistory {
		history[i] = new(uint256.Int).SetBytes(b)
	}

	return chain.ChainState{
		BlockHeight:      rec.BlockHeight,
		TotalWork:        new(uint256.Int).SetBytes(rec.TotalWork),
		BestBlockHash:    rec.BestBlockHash,
		CurrentTarget:    new(uint256.Int).SetBytes(rec.CurrentTarget),
		PrevTimestamps:   rec.PrevTimestamps,
		PowTargetHistory: history,
		EpochStartTime:   rec.EpochStartTime,
	}, nil
}

// SaveLeaf writes the accumulator leaf recorded when the block at a height
// stopped being the tip.
func (s *Store) SaveLeaf(height uint32, leaf zcash.Digest) error {
	return s.db.Put(key(prefixLeaf, height), leaf.Bytes(), nil)
}

// Leaves reads every accumulator leaf in height order. Inclusion proofs are
// rebuilt from this list.
func (s *Store) Leaves() ([]zcash.Digest, error) {
	var leaves []zcash.Digest

	iter := s.db.NewIterator(util.BytesPrefix([]byte{prefixLeaf}), nil)
	defer iter.Release()

	for iter.Next() {
		d, err := zcash.NewDigest(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("decoding leaf at key %x: %w", iter.Key(), err)
		}
		leaves = append(leaves, d)
	}

	if err := iter.Error(); err != nil {
		return nil, err
	}

	return leaves, nil
}

// SetHead records the height of the chain tip.
func (s *Store) SetHead(height uint32) error {
	var v [4]byte
	binary.BigEndian.PutUint32(v[:], height)
	return s.db.Put(headKey, v[:], nil)
}

// Head returns the height of the chain tip.
func (s *Store) Head() (uint32, error) {
	data, err := s.db.Get(headKey, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return binary.BigEndian.Uint32(data), nil
}

// =============================================================================

func key(prefix byte, height uint32) []byte {
	k := make([]byte, 5)
	k[0] = prefix
	binary.BigEndian.PutUint32(k[1:], height)
	return k
}

func wrapNotFound(err error, kind string, height uint32) error {
	if errors.Is(err, leveldb.ErrNotFound) {
		return fmt.Errorf("%s %d: %w", kind, height, ErrNotFound)
	}
	return fmt.Errorf("reading %s %d: %w", kind, height, err)
}
