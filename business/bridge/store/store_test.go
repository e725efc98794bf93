package store_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/zoroproject/zoro/business/bridge/store"
	"github.com/zoroproject/zoro/foundation/zcash"
	"github.com/zoroproject/zoro/foundation/zcash/chain"
)

func testBlock(seed byte) chain.Block {
	var nonce, sapling, merkle zcash.Digest
	nonce[0] = seed
	sapling[1] = seed
	merkle[2] = seed

	return chain.Block{
		Header: chain.Header{
			Version:          4,
			Time:             1000 + uint32(seed),
			Bits:             0x207fffff,
			Nonce:            nonce,
			FinalSaplingRoot: sapling,
			Solution:         []uint32{3, 7, uint32(seed), 42, 99, 101, 200, 255},
		},
		MerkleRoot: merkle,
	}
}

func testState(height uint32) chain.ChainState {
	var tip zcash.Digest
	tip[0] = byte(height)

	return chain.ChainState{
		BlockHeight:      height,
		TotalWork:        uint256.NewInt(1_000_000 + uint64(height)),
		BestBlockHash:    tip,
		CurrentTarget:    uint256.NewInt(0).Lsh(uint256.NewInt(0x7fffff), 200),
		PrevTimestamps:   []uint32{100, 175, 250},
		PowTargetHistory: []*uint256.Int{uint256.NewInt(11), uint256.NewInt(22)},
		EpochStartTime:   100,
	}
}

func TestBlockRoundTrip(t *testing.T) {
	db, err := store.NewInMemory()
	require.NoError(t, err)
	defer db.Close()

	block := testBlock(9)
	require.NoError(t, db.SaveBlock(5, block))

	got, err := db.Block(5)
	require.NoError(t, err)
	require.Equal(t, block, got)

	_, err = db.Block(6)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestBlocksRange(t *testing.T) {
	db, err := store.NewInMemory()
	require.NoError(t, err)
	defer db.Close()

	for h := uint32(1); h <= 5; h++ {
		require.NoError(t, db.SaveBlock(h, testBlock(byte(h))))
	}

	blocks, err := db.Blocks(2, 2)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	require.Equal(t, testBlock(2), blocks[0])
	require.Equal(t, testBlock(3), blocks[1])

	// The range stops at the end of the chain.
	blocks, err = db.Blocks(4, 10)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	require.Equal(t, testBlock(4), blocks[0])
	require.Equal(t, testBlock(5), blocks[1])

	blocks, err = db.Blocks(6, 10)
	require.NoError(t, err)
	require.Empty(t, blocks)
}

func TestStateRoundTrip(t *testing.T) {
	db, err := store.NewInMemory()
	require.NoError(t, err)
	defer db.Close()

	state := testState(7)
	require.NoError(t, db.SaveState(7, state))

	got, err := db.State(7)
	require.NoError(t, err)
	require.Equal(t, state, got)

	_, err = db.State(8)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestLeavesOrdered(t *testing.T) {
	db, err := store.NewInMemory()
	require.NoError(t, err)
	defer db.Close()

	// Write out of order. The big-endian keys bring them back sorted.
	for _, h := range []uint32{3, 0, 2, 1} {
		var leaf zcash.Digest
		leaf[0] = byte(h)
		require.NoError(t, db.SaveLeaf(h, leaf))
	}

	leaves, err := db.Leaves()
	require.NoError(t, err)
	require.Len(t, leaves, 4)
	for i, leaf := range leaves {
		require.Equal(t, byte(i), leaf[0])
	}
}

func TestHead(t *testing.T) {
	db, err := store.NewInMemory()
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Head()
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, db.SetHead(42))

	head, err := db.Head()
	require.NoError(t, err)
	require.Equal(t, uint32(42), head)
}
