package cmd

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/zoroproject/zoro/foundation/zcash"
	"github.com/zoroproject/zoro/foundation/zcash/chain"
)

var (
	mineBlocks   int
	mineStateIn  string
	mineStateOut string
	mineOut      string
)

// mineCmd produces a run of valid blocks with the in-memory solver. Only
// practical on regnet, where the Equihash parameters are small.
var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Mine a run of blocks for testing",
	Run: func(cmd *cobra.Command, args []string) {
		if err := mineRun(); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(mineCmd)
	mineCmd.Flags().IntVarP(&mineBlocks, "blocks", "b", 3, "Number of blocks to mine.")
	mineCmd.Flags().StringVar(&mineStateIn, "state", "", "Chain state file to mine on top of. Empty starts from genesis.")
	mineCmd.Flags().StringVar(&mineStateOut, "state-out", "", "File to write the advanced chain state to.")
	mineCmd.Flags().StringVarP(&mineOut, "out", "o", "", "File to write the mined headers to. Empty writes to stdout.")
}

func mineRun() error {
	p, err := networkParams()
	if err != nil {
		return err
	}
	if p.EquihashN > 48 {
		return fmt.Errorf("network %s is too hard for the in-memory solver, use regnet", p.Name)
	}

	state, err := loadOrGenesisState(p)
	if err != nil {
		return err
	}

	blocks := make([]chain.Block, 0, mineBlocks)
	for i := 0; i < mineBlocks; i++ {
		height := state.BlockHeight + 1

		block, err := chain.Mine(p, state, chain.MineRequest{
			Version:    4,
			Time:       state.PrevTimestamps[len(state.PrevTimestamps)-1] + p.TargetSpacing(height),
			MerkleRoot: syntheticMerkleRoot(height),
		})
		if err != nil {
			return fmt.Errorf("mining block %d: %w", height, err)
		}

		next, err := chain.Validate(p, state, block, nil)
		if err != nil {
			return fmt.Errorf("validating mined block %d: %w", height, err)
		}

		blocks = append(blocks, block)
		state = next
		log.Printf("mined block %d: %s", height, state.BestBlockHash)
	}

	payload := struct {
		Blocks []chain.Block `json:"blocks"`
	}{
		Blocks: blocks,
	}
	if err := writeJSON(mineOut, payload); err != nil {
		return fmt.Errorf("writing headers: %w", err)
	}

	if mineStateOut != "" {
		if err := writeJSON(mineStateOut, state); err != nil {
			return fmt.Errorf("writing state: %w", err)
		}
	}

	return nil
}

// loadOrGenesisState reads the configured state file or builds the genesis
// state for the network.
func loadOrGenesisState(p zcash.Params) (chain.ChainState, error) {
	if mineStateIn == "" {
		return chain.GenesisState(p, zcash.Digest{}), nil
	}

	data, err := os.ReadFile(mineStateIn)
	if err != nil {
		return chain.ChainState{}, err
	}

	var state chain.ChainState
	if err := json.Unmarshal(data, &state); err != nil {
		return chain.ChainState{}, fmt.Errorf("parsing state file: %w", err)
	}
	return state, nil
}

// syntheticMerkleRoot derives a placeholder transaction commitment for a
// height. Header validation never inspects the merkle root, it only has to
// be present.
func syntheticMerkleRoot(height uint32) zcash.Digest {
	var seed [8]byte
	copy(seed[:4], "zoro")
	binary.LittleEndian.PutUint32(seed[4:], height)
	return zcash.Digest(sha256.Sum256(seed[:]))
}

// writeJSON writes a value as indented JSON to a file, or stdout when the
// path is empty.
func writeJSON(path string, v any) error {
	out := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
