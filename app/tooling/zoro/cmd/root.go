// Package cmd contains the bridge client commands.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zoroproject/zoro/foundation/zcash"
)

const (
	urlFlag        = "url"
	privateURLFlag = "private-url"
	networkFlag    = "network"
)

var rootCmd = &cobra.Command{
	Use:               "zoro",
	Short:             "Client for the bridge node",
	PersistentPreRunE: rootCmdPreRun,
}

func init() {
	rootCmd.PersistentFlags().StringP(urlFlag, "u", "http://localhost:8280", "Public API of the bridge node.")
	rootCmd.PersistentFlags().String(privateURLFlag, "http://localhost:9280", "Private API of the bridge node.")
	rootCmd.PersistentFlags().StringP(networkFlag, "n", "mainnet", "Network to use: mainnet or regnet.")
}

func rootCmdPreRun(cmd *cobra.Command, args []string) error {

	// Every flag can also come from the environment: ZORO_URL,
	// ZORO_PRIVATE_URL, ZORO_NETWORK.
	viper.SetEnvPrefix("ZORO")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func networkParams() (zcash.Params, error) {
	switch network := viper.GetString(networkFlag); network {
	case "mainnet":
		return zcash.Mainnet(), nil
	case "regnet":
		return zcash.Regnet(), nil
	default:
		return zcash.Params{}, fmt.Errorf("unknown network %q", network)
	}
}
