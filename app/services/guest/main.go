//go:build mipsle

// The guest program is the batch transition compiled for the zkVM. The host
// prover feeds it a starting chain state, the accumulator roots, and a run of
// block headers; the guest replays consensus validation and commits the
// digests of where it started and where it ended. Recursive batches hand in
// the previous execution's claim as an attestation.
package main

import (
	"encoding/json"
	"fmt"

	"github.com/ProjectZKM/Ziren/crates/go-runtime/zkvm_runtime"

	"github.com/zoroproject/zoro/foundation/attest"
	"github.com/zoroproject/zoro/foundation/zcash"
	"github.com/zoroproject/zoro/foundation/zcash/chain"
	"github.com/zoroproject/zoro/foundation/zcash/mmr"
)

// output is the public statement of one execution. Everything a downstream
// verifier needs is here: the starting digests (to chain against a prior
// claim), the ending digests, and every program identity inherited from the
// attestation chain.
type output struct {
	StartStateDigest [32]byte
	StartAccDigest   [32]byte
	EndStateDigest   [32]byte
	EndAccDigest     [32]byte
	EndHeight        uint32
	ProgramDigests   []byte
}

func main() {
	network := zkvm_runtime.Read[string]()

	p, err := params(network)
	if err != nil {
		panic(err)
	}

	state := readState()
	acc := readAccumulator()
	blocks := readBlocks(p)
	attestation := zkvm_runtime.Read[[]byte]()

	startState := state.Digest()
	startAcc := acc.Digest()

	result, err := chain.Apply(p, chain.Batch{
		State:       state,
		Accumulator: acc,
		Blocks:      blocks,
		Attestation: attestation,
	}, claimVerifier{})
	if err != nil {
		panic(err)
	}

	programs := make([]byte, 0, len(result.UpstreamPrograms)*32)
	for _, d := range result.UpstreamPrograms {
		programs = append(programs, d.Bytes()...)
	}

	zkvm_runtime.Commit(output{
		StartStateDigest: startState,
		StartAccDigest:   startAcc,
		EndStateDigest:   result.State.Digest(),
		EndAccDigest:     result.Accumulator.Digest(),
		EndHeight:        result.State.BlockHeight,
		ProgramDigests:   programs,
	})
}

func params(network string) (zcash.Params, error) {
	switch network {
	case "mainnet":
		return zcash.Mainnet(), nil
	case "regnet":
		return zcash.Regnet(), nil
	}
	return zcash.Params{}, fmt.Errorf("unknown network %q", network)
}

// readState reads the starting chain state as its canonical JSON form. The
// zkVM hint serializer only moves byte strings, so structured values travel
// through their own codecs.
func readState() chain.ChainState {
	data := zkvm_runtime.Read[[]byte]()

	var state chain.ChainState
	if err := json.Unmarshal(data, &state); err != nil {
		panic(err)
	}
	return state
}

// readAccumulator reads the starting accumulator as its root slots: one flag
// byte per slot followed by the 32-byte root when the flag is set. The slot
// layout, empty slots included, is exactly what the digest commits to.
func readAccumulator() mmr.Accumulator {
	data := zkvm_runtime.Read[[]byte]()
	if len(data)%33 != 0 {
		panic("accumulator roots must be 33-byte slots")
	}

	roots := make([]*zcash.Digest, len(data)/33)
	for i := range roots {
		slot := data[i*33 : (i+1)*33]
		if slot[0] == 0 {
			continue
		}

		d, err := zcash.NewDigest(slot[1:])
		if err != nil {
			panic(err)
		}
		roots[i] = &d
	}

	return mmr.FromRoots(mmr.NodeHash, roots)
}

// readBlocks reads the batch as a count followed by one wire-encoded header
// per block.
func readBlocks(p zcash.Params) []chain.Block {
	count := zkvm_runtime.Read[uint32]()

	blocks := make([]chain.Block, count)
	for i := range blocks {
		data := zkvm_runtime.Read[[]byte]()

		block, _, err := chain.DecodeHeader(p, data)
		if err != nil {
			panic(err)
		}
		blocks[i] = block
	}
	return blocks
}

// claimVerifier decodes the claim a previous execution committed. The
// cryptographic link between the claim and its proof is the prover's recursive
// aggregation; inside the guest the blob is already trusted input, so decoding
// is all that is left to do.
type claimVerifier struct{}

func (claimVerifier) Verify(attestation []byte) (attest.Claim, error) {
	if len(attestation) < 64 || (len(attestation)-64)%32 != 0 {
		return attest.Claim{}, fmt.Errorf("attestation must be two digests plus program digests, have %d bytes", len(attestation))
	}

	var claim attest.Claim
	copy(claim.ChainStateDigest[:], attestation[:32])
	copy(claim.AccumulatorDigest[:], attestation[32:64])

	rest := attestation[64:]
	claim.UpstreamPrograms = make([]zcash.Digest, len(rest)/32)
	for i := range claim.UpstreamPrograms {
		copy(claim.UpstreamPrograms[i][:], rest[i*32:(i+1)*32])
	}

	return claim, nil
}
