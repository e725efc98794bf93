package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zoroproject/zoro/foundation/zcash/chain"
)

var importBatch int

// importCmd submits headers from a file to the node's private API.
var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Submit headers from a file to the node",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := importHeaders(args[0]); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().IntVar(&importBatch, "batch", 100, "Number of headers per submission.")
}

func importHeaders(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var payload struct {
		Blocks      []chain.Block `json:"blocks"`
		SortedHints [][]uint32    `json:"sorted_hints"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parsing header file: %w", err)
	}
	if len(payload.Blocks) == 0 {
		return fmt.Errorf("header file contains no blocks")
	}

	url := viper.GetString(privateURLFlag) + "/v1/node/headers"

	for from := 0; from < len(payload.Blocks); from += importBatch {
		to := from + importBatch
		if to > len(payload.Blocks) {
			to = len(payload.Blocks)
		}

		chunk := struct {
			Blocks      []chain.Block `json:"blocks"`
			SortedHints [][]uint32    `json:"sorted_hints,omitempty"`
		}{
			Blocks: payload.Blocks[from:to],
		}
		if len(payload.SortedHints) >= to {
			chunk.SortedHints = payload.SortedHints[from:to]
		}

		body, err := json.Marshal(chunk)
		if err != nil {
			return err
		}

		resp, err := http.Post(url, "application/json", bytes.NewReader(body))
		if err != nil {
			return err
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return err
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("node rejected blocks %d..%d: %s: %s", from, to-1, resp.Status, respBody)
		}

		var ack struct {
			Height    uint32 `json:"height"`
			BlockHash string `json:"block_hash"`
		}
		if err := json.Unmarshal(respBody, &ack); err != nil {
			return err
		}

		log.Printf("submitted blocks %d..%d, chain at height %d (%s)", from, to-1, ack.Height, ack.BlockHash)
	}

	return nil
}
