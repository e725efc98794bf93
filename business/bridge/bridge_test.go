package bridge_test

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/zoroproject/zoro/business/bridge"
	"github.com/zoroproject/zoro/business/bridge/store"
	"github.com/zoroproject/zoro/foundation/attest"
	"github.com/zoroproject/zoro/foundation/events"
	"github.com/zoroproject/zoro/foundation/zcash"
	"github.com/zoroproject/zoro/foundation/zcash/chain"
	"github.com/zoroproject/zoro/foundation/zcash/mmr"
)

const (
	success = "\u2713"
	failed  = "\u2717"
)

// newTestBridge constructs a bridge on an in-memory store with a regnet
// genesis.
func newTestBridge(t *testing.T, db *store.Store, verifier attest.Verifier) *bridge.Bridge {
	t.Helper()

	p := zcash.Regnet()

	b, err := bridge.New(bridge.Config{
		Log:      zap.NewNop().Sugar(),
		Params:   p,
		Store:    db,
		Evts:     events.New(),
		Verifier: verifier,
		Genesis:  chain.GenesisState(p, zcash.Digest{}),
	})
	if err != nil {
		t.Fatalf("\t%s\tShould construct the bridge: %v.", failed, err)
	}

	return b
}

// mineBlocks produces n consecutive valid blocks on top of the bridge head.
func mineBlocks(t *testing.T, b *bridge.Bridge, n int) []chain.Block {
	t.Helper()

	p := zcash.Regnet()
	state := b.Head()

	var blocks []chain.Block
	for i := 0; i < n; i++ {
		var merkle zcash.Digest
		merkle[0] = byte(0x60 + i)

		block, err := chain.Mine(p, state, chain.MineRequest{
			Version:    4,
			Time:       state.PrevTimestamps[len(state.PrevTimestamps)-1] + zcash.PostBlossomTargetSpacing,
			MerkleRoot: merkle,
		})
		if err != nil {
			t.Fatalf("\t%s\tShould mine block %d: %v.", failed, i+1, err)
		}

		state, err = chain.Validate(p, state, block, nil)
		if err != nil {
			t.Fatalf("\t%s\tShould validate mined block %d: %v.", failed, i+1, err)
		}

		blocks = append(blocks, block)
	}

	return blocks
}

// =============================================================================

func Test_SubmitAndResume(t *testing.T) {
	t.Log("Given the need to ingest blocks and resume from the database.")
	{
		t.Logf("\tTest 0:\tWhen submitting a batch of mined blocks.")
		{
			db, err := store.NewInMemory()
			if err != nil {
				t.Fatalf("\t%s\tShould open an in-memory store: %v.", failed, err)
			}
			defer db.Close()

			b := newTestBridge(t, db, nil)
			blocks := mineBlocks(t, b, 3)

			state, err := b.SubmitBlocks(blocks, nil, nil)
			if err != nil {
				t.Fatalf("\t%s\tShould accept the batch: %v.", failed, err)
			}
			t.Logf("\t%s\tShould accept the batch.", success)

			if state.BlockHeight != 3 {
				t.Fatalf("\t%s\tShould reach height 3, got %d.", failed, state.BlockHeight)
			}
			t.Logf("\t%s\tShould reach height 3.", success)

			if b.Accumulator().LeafCount() != 3 {
				t.Fatalf("\t%s\tShould hold 3 accumulator leaves, got %d.", failed, b.Accumulator().LeafCount())
			}
			t.Logf("\t%s\tShould hold 3 accumulator leaves.", success)

			for h := uint32(1); h <= 3; h++ {
				if _, err := db.State(h); err != nil {
					t.Fatalf("\t%s\tShould persist the state at height %d: %v.", failed, h, err)
				}
				if _, err := db.Block(h); err != nil {
					t.Fatalf("\t%s\tShould persist the block at height %d: %v.", failed, h, err)
				}
			}
			t.Logf("\t%s\tShould persist every block and state.", success)

			// A second bridge on the same database must land on the
			// same head and accumulator.
			b2 := newTestBridge(t, db, nil)

			if b2.Head().Digest() != b.Head().Digest() {
				t.Fatalf("\t%s\tShould resume with the same chain state.", failed)
			}
			t.Logf("\t%s\tShould resume with the same chain state.", success)

			if b2.Accumulator().Digest() != b.Accumulator().Digest() {
				t.Fatalf("\t%s\tShould resume with the same accumulator.", failed)
			}
			t.Logf("\t%s\tShould resume with the same accumulator.", success)
		}
	}
}

func Test_InclusionProofs(t *testing.T) {
	t.Log("Given the need to prove accepted blocks against the accumulator.")
	{
		t.Logf("\tTest 0:\tWhen proving blocks below the tip.")
		{
			db, err := store.NewInMemory()
			if err != nil {
				t.Fatalf("\t%s\tShould open an in-memory store: %v.", failed, err)
			}
			defer db.Close()

			b := newTestBridge(t, db, nil)
			blocks := mineBlocks(t, b, 3)

			if _, err := b.SubmitBlocks(blocks, nil, nil); err != nil {
				t.Fatalf("\t%s\tShould accept the batch: %v.", failed, err)
			}

			for h := uint32(0); h < 3; h++ {
				proof, err := b.InclusionProof(h)
				if err != nil {
					t.Fatalf("\t%s\tShould build a proof for height %d: %v.", failed, h, err)
				}

				state, err := db.State(h)
				if err != nil {
					t.Fatalf("\t%s\tShould load the state at height %d: %v.", failed, h, err)
				}

				if !mmr.VerifyProof(mmr.NodeHash, state.BestBlockHash, proof) {
					t.Fatalf("\t%s\tShould verify the proof for height %d.", failed, h)
				}
			}
			t.Logf("\t%s\tShould verify proofs for every block below the tip.", success)

			if _, err := b.InclusionProof(3); !errors.Is(err, bridge.ErrNoProofForTip) {
				t.Fatalf("\t%s\tShould refuse a proof for the tip, got %v.", failed, err)
			}
			t.Logf("\t%s\tShould refuse a proof for the tip.", success)
		}
	}
}

// claimVerifier trusts its attestation blob and returns a fixed claim.
type claimVerifier struct {
	claim attest.Claim
}

func (v claimVerifier) Verify(attestation []byte) (attest.Claim, error) {
	return v.claim, nil
}

func Test_AttestedSubmission(t *testing.T) {
	t.Log("Given the need to check attestation claims before extending the chain.")
	{
		t.Logf("\tTest 0:\tWhen the claim matches the current head.")
		{
			db, err := store.NewInMemory()
			if err != nil {
				t.Fatalf("\t%s\tShould open an in-memory store: %v.", failed, err)
			}
			defer db.Close()

			verifier := &claimVerifier{}
			b := newTestBridge(t, db, verifier)
			blocks := mineBlocks(t, b, 1)

			verifier.claim = attest.Claim{
				ChainStateDigest:  b.Head().Digest(),
				AccumulatorDigest: b.Accumulator().Digest(),
			}

			if _, err := b.SubmitBlocks(blocks, nil, []byte{0x01}); err != nil {
				t.Fatalf("\t%s\tShould accept an attested batch: %v.", failed, err)
			}
			t.Logf("\t%s\tShould accept an attested batch.", success)
		}

		t.Logf("\tTest 1:\tWhen the claim does not match the current head.")
		{
			db, err := store.NewInMemory()
			if err != nil {
				t.Fatalf("\t%s\tShould open an in-memory store: %v.", failed, err)
			}
			defer db.Close()

			verifier := &claimVerifier{
				claim: attest.Claim{
					ChainStateDigest: zcash.Digest{0xde, 0xad},
				},
			}
			b := newTestBridge(t, db, verifier)
			blocks := mineBlocks(t, b, 1)

			if _, err := b.SubmitBlocks(blocks, nil, []byte{0x01}); !errors.Is(err, attest.ErrStateMismatch) {
				t.Fatalf("\t%s\tShould reject a mismatched claim, got %v.", failed, err)
			}
			t.Logf("\t%s\tShould reject a mismatched claim.", success)
		}
	}
}
