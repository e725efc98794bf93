// Package bridge implements the header-chain bridge node: it ingests block
// headers, runs them through consensus validation, maintains the chain state
// and the block accumulator, and persists everything for the query API.
package bridge

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/zoroproject/zoro/business/bridge/store"
	"github.com/zoroproject/zoro/foundation/attest"
	"github.com/zoroproject/zoro/foundation/events"
	"github.com/zoroproject/zoro/foundation/zcash"
	"github.com/zoroproject/zoro/foundation/zcash/chain"
	"github.com/zoroproject/zoro/foundation/zcash/mmr"
)

// ErrNoProofForTip is returned when an inclusion proof is requested for the
// tip block. The tip hash lives in the chain state; only displaced blocks
// are committed by the accumulator.
var ErrNoProofForTip = errors.New("tip block has no inclusion proof yet")

// Config contains all the mandatory systems required by the bridge.
type Config struct {
	Log      *zap.SugaredLogger
	Params   zcash.Params
	Store    *store.Store
	Evts     *events.Events
	Verifier attest.Verifier

	// Genesis seeds an empty database. Ignored once the store has a head.
	Genesis chain.ChainState
}

// Bridge manages the consensus state of the node.
type Bridge struct {
	log      *zap.SugaredLogger
	params   zcash.Params
	store    *store.Store
	evts     *events.Events
	verifier attest.Verifier

	mu    sync.RWMutex
	state chain.ChainState
	acc   mmr.Accumulator
}

// New constructs a bridge, seeding the database with the genesis state when
// it is empty and otherwise resuming from the persisted head.
func New(cfg Config) (*Bridge, error) {
	b := Bridge{
		log:      cfg.Log,
		params:   cfg.Params,
		store:    cfg.Store,
		evts:     cfg.Evts,
		verifier: cfg.Verifier,
	}

	head, err := cfg.Store.Head()
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := cfg.Store.SaveState(0, cfg.Genesis); err != nil {
			return nil, fmt.Errorf("seeding genesis state: %w", err)
		}
		if err := cfg.Store.SetHead(0); err != nil {
			return nil, fmt.Errorf("seeding genesis head: %w", err)
		}
		b.state = cfg.Genesis
		b.acc = mmr.New()
		return &b, nil

	case err != nil:
		return nil, fmt.Errorf("reading head: %w", err)
	}

	state, err := cfg.Store.State(head)
	if err != nil {
		return nil, fmt.Errorf("loading state at head %d: %w", head, err)
	}

	// The accumulator is rebuilt from the persisted leaves so the database
	// stays free of derived structures.
	leaves, err := cfg.Store.Leaves()
	if err != nil {
		return nil, fmt.Errorf("loading accumulator leaves: %w", err)
	}

	acc := mmr.New()
	for _, leaf := range leaves {
		acc = acc.Add(leaf)
	}

	b.state = state
	b.acc = acc

	return &b, nil
}

// Head returns a copy of the current chain state.
func (b *Bridge) Head() chain.ChainState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.state.Copy()
}

// Accumulator returns the current block accumulator.
func (b *Bridge) Accumulator() mmr.Accumulator {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.acc
}

// StateAt returns the persisted chain state reached after the block at the
// given height.
func (b *Bridge) StateAt(height uint32) (chain.ChainState, error) {
	return b.store.State(height)
}

// BlocksRange returns up to size accepted blocks starting at the from
// height.
func (b *Bridge) BlocksRange(from uint32, size int) ([]chain.Block, error) {
	return b.store.Blocks(from, size)
}

// SubmitBlocks validates a batch of blocks against the current head and, if
// every one of them passes, advances the state, grows the accumulator and
// persists the whole batch. On any failure nothing is committed.
//
// When the batch carries an attestation, the claim it proves must match the
// current state and accumulator before any block is validated.
func (b *Bridge) SubmitBlocks(blocks []chain.Block, hints [][]uint32, attestation []byte) (chain.ChainState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(attestation) > 0 {
		if b.verifier == nil {
			return chain.ChainState{}, errors.New("attestation submitted but no verifier is configured")
		}

		claim, err := b.verifier.Verify(attestation)
		if err != nil {
			return chain.ChainState{}, fmt.Errorf("verifying attestation: %w", err)
		}

		if err := attest.CheckPrecondition(claim, b.state.Digest(), b.acc.Digest()); err != nil {
			return chain.ChainState{}, err
		}
	}

	// Validate the whole batch against scratch copies first, so a bad
	// block in the middle cannot leave a half-applied chain behind.
	type accepted struct {
		block chain.Block
		state chain.ChainState
		leaf  zcash.Digest
	}

	state := b.state
	acc := b.acc
	batch := make([]accepted, 0, len(blocks))

	for i, block := range blocks {
		var hint []uint32
		if i < len(hints) {
			hint = hints[i]
		}

		next, err := chain.Validate(b.params, state, block, hint)
		if err != nil {
			return chain.ChainState{}, fmt.Errorf("block %d of batch: %w", i, err)
		}

		leaf := state.BestBlockHash
		acc = acc.Add(leaf)

		batch = append(batch, accepted{block: block, state: next, leaf: leaf})
		state = next
	}

	for _, a := range batch {
		if err := b.store.SaveBlock(a.state.BlockHeight, a.block); err != nil {
			return chain.ChainState{}, fmt.Errorf("persisting block %d: %w", a.state.BlockHeight, err)
		}
		if err := b.store.SaveState(a.state.BlockHeight, a.state); err != nil {
			return chain.ChainState{}, fmt.Errorf("persisting state %d: %w", a.state.BlockHeight, err)
		}
		if err := b.store.SaveLeaf(a.state.BlockHeight-1, a.leaf); err != nil {
			return chain.ChainState{}, fmt.Errorf("persisting leaf %d: %w", a.state.BlockHeight-1, err)
		}
	}

	if err := b.store.SetHead(state.BlockHeight); err != nil {
		return chain.ChainState{}, fmt.Errorf("persisting head: %w", err)
	}

	b.state = state
	b.acc = acc

	b.log.Infow("chain advanced", "height", state.BlockHeight, "tip", state.BestBlockHash, "blocks", len(blocks))

	b.evts.Send(events.Event{
		Height:    state.BlockHeight,
		BlockHash: state.BestBlockHash.String(),
		TotalWork: state.TotalWork.Hex(),
	})

	return state.Copy(), nil
}

// InclusionProof builds the accumulator inclusion proof for the block at a
// height. The proof covers every block below the tip; the tip itself is
// committed by the chain state instead.
func (b *Bridge) InclusionProof(height uint32) (mmr.Proof, error) {
	b.mu.RLock()
	head := b.state.BlockHeight
	b.mu.RUnlock()

	if height >= head {
		return mmr.Proof{}, fmt.Errorf("height %d, head %d: %w", height, head, ErrNoProofForTip)
	}

	leaves, err := b.store.Leaves()
	if err != nil {
		return mmr.Proof{}, fmt.Errorf("loading leaves: %w", err)
	}

	return mmr.BuildProof(mmr.NodeHash, leaves, uint64(height))
}
