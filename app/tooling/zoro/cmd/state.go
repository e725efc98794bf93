package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// stateCmd prints the chain state at a height, or the head when no height
// is given.
var stateCmd = &cobra.Command{
	Use:   "state [height]",
	Short: "Print the chain state at a height, or the head",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		url := viper.GetString(urlFlag) + "/v1/head"
		if len(args) == 1 {
			url = viper.GetString(urlFlag) + "/v1/state/" + args[0]
		}

		if err := printJSON(url); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)
}

// printJSON fetches a JSON document and pretty-prints it to stdout.
func printJSON(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("node returned %s: %s", resp.Status, body)
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
