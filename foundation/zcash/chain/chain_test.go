package chain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/zoroproject/zoro/foundation/attest"
	"github.com/zoroproject/zoro/foundation/zcash"
	"github.com/zoroproject/zoro/foundation/zcash/chain"
	"github.com/zoroproject/zoro/foundation/zcash/mmr"
)

// mineChain produces n consecutive valid blocks on top of the state.
func mineChain(t *testing.T, p zcash.Params, state chain.ChainState, n int) []chain.Block {
	t.Helper()

	var blocks []chain.Block
	for i := 0; i < n; i++ {
		merkle, err := zcash.NewDigest(bytesOf(byte(0x40 + i)))
		if err != nil {
			t.Fatalf("\t%s\tShould build a merkle root: %v.", failed, err)
		}

		block, err := chain.Mine(p, state, chain.MineRequest{
			Version:    4,
			Time:       p.GenesisTime + uint32(i+1)*zcash.PostBlossomTargetSpacing,
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

// genesis builds a regnet starting state.
func genesis(t *testing.T, p zcash.Params) chain.ChainState {
	t.Helper()

	hash, err := zcash.NewDigest(bytesOf(0x01))
	if err != nil {
		t.Fatalf("\t%s\tShould build the genesis hash: %v.", failed, err)
	}

	return chain.GenesisState(p, hash)
}

// =============================================================================

func Test_ValidateChain(t *testing.T) {
	p := zcash.Regnet()

	t.Log("Given the need to advance the chain state block by block.")
	{
		t.Log("\tTest 0:\tWhen validating three mined blocks in sequence.")
		{
			state := genesis(t, p)
			blocks := mineChain(t, p, state, 3)

			for i, block := range blocks {
				next, err := chain.Validate(p, state, block, nil)
				if err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould accept block %d: %v.", failed, i+1, err)
				}

				if next.BlockHeight != state.BlockHeight+1 {
					t.Fatalf("\t%s\tTest 0:\tShould advance the height by one, got %d from %d.", failed, next.BlockHeight, state.BlockHeight)
				}
				if !next.TotalWork.Gt(state.TotalWork) {
					t.Fatalf("\t%s\tTest 0:\tShould strictly grow the total work.", failed)
				}
				if next.BestBlockHash == state.BestBlockHash {
					t.Fatalf("\t%s\tTest 0:\tShould move the tip hash.", failed)
				}
				if len(next.PrevTimestamps) != len(state.PrevTimestamps)+1 {
					t.Fatalf("\t%s\tTest 0:\tShould grow the timestamp history.", failed)
				}
				if len(next.PowTargetHistory) != len(state.PowTargetHistory)+1 {
					t.Fatalf("\t%s\tTest 0:\tShould grow the target history.", failed)
				}

				state = next
			}
			t.Logf("\t%s\tTest 0:\tShould accept all three blocks and grow the state.", success)
		}

		t.Log("\tTest 1:\tWhen the input state must stay untouched.")
		{
			state := genesis(t, p)
			before := state.Digest()

			blocks := mineChain(t, p, state, 1)
			if _, err := chain.Validate(p, state, blocks[0], nil); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould accept the block: %v.", failed, err)
			}

			if state.Digest() != before {
				t.Fatalf("\t%s\tTest 1:\tShould leave the input state unmodified.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould leave the input state unmodified.", success)
		}

		t.Log("\tTest 2:\tWhen a block's timestamp does not beat the median.")
		{
			state := genesis(t, p)
			blocks := mineChain(t, p, state, 1)

			bad := blocks[0]
			bad.Header.Time = p.GenesisTime

			_, err := chain.Validate(p, state, bad, nil)
			if !errors.Is(err, chain.ErrTimestampTooOld) {
				t.Fatalf("\t%s\tTest 2:\tShould reject with the timestamp error, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould reject with the timestamp error.", success)
		}

		t.Log("\tTest 3:\tWhen any proof-of-work field is tampered with.")
		{
			state := genesis(t, p)
			blocks := mineChain(t, p, state, 1)

			mutations := []func(*chain.Block){
				func(b *chain.Block) { b.Header.Bits++ },
				func(b *chain.Block) { b.Header.Nonce[8] ^= 0x01 },
				func(b *chain.Block) { b.MerkleRoot[0] ^= 0x01 },
				func(b *chain.Block) { b.Header.Solution[0], b.Header.Solution[1] = b.Header.Solution[1], b.Header.Solution[0] },
			}

			for i, mutate := range mutations {
				bad := blocks[0]
				bad.Header.Solution = append([]uint32(nil), blocks[0].Header.Solution...)
				mutate(&bad)

				if _, err := chain.Validate(p, state, bad, nil); err == nil {
					t.Fatalf("\t%s\tTest 3:\tShould reject mutation %d.", failed, i)
				}
			}
			t.Logf("\t%s\tTest 3:\tShould reject every mutation.", success)
		}

		t.Log("\tTest 4:\tWhen a block is replayed on the wrong parent.")
		{
			state := genesis(t, p)
			blocks := mineChain(t, p, state, 2)

			next, err := chain.Validate(p, state, blocks[0], nil)
			if err != nil {
				t.Fatalf("\t%s\tTest 4:\tShould accept block one: %v.", failed, err)
			}

			if _, err := chain.Validate(p, next, blocks[0], nil); err == nil {
				t.Fatalf("\t%s\tTest 4:\tShould reject the first block on top of itself.", failed)
			}
			t.Logf("\t%s\tTest 4:\tShould reject the first block on top of itself.", success)
		}
	}
}

func Test_StateDigestAndJSON(t *testing.T) {
	p := zcash.Regnet()

	t.Log("Given the need for a canonical state commitment and interchange form.")
	{
		t.Log("\tTest 0:\tWhen hashing the same state twice.")
		{
			state := genesis(t, p)
			if state.Digest() != state.Digest() {
				t.Fatalf("\t%s\tTest 0:\tShould be deterministic.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould be deterministic.", success)
		}

		t.Log("\tTest 1:\tWhen any field changes.")
		{
			state := genesis(t, p)
			base := state.Digest()

			other := state.Copy()
			other.BlockHeight++
			if other.Digest() == base {
				t.Fatalf("\t%s\tTest 1:\tShould change with the height.", failed)
			}

			other = state.Copy()
			other.PrevTimestamps = append(other.PrevTimestamps, 12345)
			if other.Digest() == base {
				t.Fatalf("\t%s\tTest 1:\tShould change with the timestamp history.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould change when a field changes.", success)
		}

		t.Log("\tTest 2:\tWhen round-tripping through JSON.")
		{
			state := genesis(t, p)
			blocks := mineChain(t, p, state, 2)
			for _, block := range blocks {
				var err error
				if state, err = chain.Validate(p, state, block, nil); err != nil {
					t.Fatalf("\t%s\tTest 2:\tShould advance the state: %v.", failed, err)
				}
			}

			data, err := json.Marshal(state)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould marshal the state: %v.", failed, err)
			}

			var loaded chain.ChainState
			if err := json.Unmarshal(data, &loaded); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould unmarshal the state: %v.", failed, err)
			}

			if loaded.Digest() != state.Digest() {
				t.Fatalf("\t%s\tTest 2:\tShould preserve the state digest.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould preserve the state digest.", success)
		}
	}
}

// =============================================================================

// claimVerifier is a test double that returns a fixed claim.
type claimVerifier struct {
	claim attest.Claim
	err   error
}

func (v claimVerifier) Verify(attestation []byte) (attest.Claim, error) {
	return v.claim, v.err
}

func Test_ApplyBatch(t *testing.T) {
	p := zcash.Regnet()

	t.Log("Given the need to fold a batch of blocks onto an attested state.")
	{
		t.Log("\tTest 0:\tWhen applying three blocks without an attestation.")
		{
			state := genesis(t, p)
			blocks := mineChain(t, p, state, 3)

			result, err := chain.Apply(p, chain.Batch{
				State:       state,
				Accumulator: mmr.New(),
				Blocks:      blocks,
			}, nil)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould apply the batch: %v.", failed, err)
			}

			if result.State.BlockHeight != 3 {
				t.Fatalf("\t%s\tTest 0:\tShould end at height 3, got %d.", failed, result.State.BlockHeight)
			}
			if result.Accumulator.LeafCount() != 3 {
				t.Fatalf("\t%s\tTest 0:\tShould have accumulated 3 displaced tips, got %d.", failed, result.Accumulator.LeafCount())
			}
			t.Logf("\t%s\tTest 0:\tShould apply the batch and grow the accumulator.", success)
		}

		t.Log("\tTest 1:\tWhen the attestation matches the starting point.")
		{
			state := genesis(t, p)
			blocks := mineChain(t, p, state, 1)
			acc := mmr.New()

			program, err := zcash.NewDigest(bytesOf(0x77))
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould build the program id: %v.", failed, err)
			}

			verifier := claimVerifier{claim: attest.Claim{
				ChainStateDigest:  state.Digest(),
				AccumulatorDigest: acc.Digest(),
				UpstreamPrograms:  []zcash.Digest{program},
			}}

			result, err := chain.Apply(p, chain.Batch{
				State:       state,
				Accumulator: acc,
				Blocks:      blocks,
				Attestation: []byte("opaque"),
			}, verifier)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould apply the attested batch: %v.", failed, err)
			}

			if len(result.UpstreamPrograms) != 1 || result.UpstreamPrograms[0] != program {
				t.Fatalf("\t%s\tTest 1:\tShould forward the upstream program ids.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould forward the upstream program ids.", success)
		}

		t.Log("\tTest 2:\tWhen the attestation claims a different state.")
		{
			state := genesis(t, p)
			blocks := mineChain(t, p, state, 1)

			verifier := claimVerifier{claim: attest.Claim{
				AccumulatorDigest: mmr.New().Digest(),
			}}

			_, err := chain.Apply(p, chain.Batch{
				State:       state,
				Accumulator: mmr.New(),
				Blocks:      blocks,
				Attestation: []byte("opaque"),
			}, verifier)
			if !errors.Is(err, attest.ErrStateMismatch) {
				t.Fatalf("\t%s\tTest 2:\tShould reject with the state mismatch error, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould reject with the state mismatch error.", success)
		}

		t.Log("\tTest 3:\tWhen a block in the middle of the batch is invalid.")
		{
			state := genesis(t, p)
			blocks := mineChain(t, p, state, 3)
			blocks[1].Header.Time = p.GenesisTime

			_, err := chain.Apply(p, chain.Batch{
				State:       state,
				Accumulator: mmr.New(),
				Blocks:      blocks,
			}, nil)
			if err == nil {
				t.Fatalf("\t%s\tTest 3:\tShould reject the batch.", failed)
			}
			t.Logf("\t%s\tTest 3:\tShould reject the batch.", success)
		}
	}
}
