package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clearledger-systems/clearledger-stack/cli/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cledger",
	Short: "ClearLedger Stack CLI",
	Long: `cledger is the command-line interface for the ClearLedger payment
integrity platform.

Ingest payments, verify hash chains, drive remittance cycles, run
reconciliations, and seed fake payment traffic from your terminal.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.cledger/config.yaml)")
	rootCmd.PersistentFlags().String("profile", "default", "profile to use")
	rootCmd.PersistentFlags().String("output", "table", "output format: table, json, yaml")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.Default()
	}
}

// profileFromFlags resolves the active profile for a command invocation.
func profileFromFlags(cmd *cobra.Command) (*config.Profile, error) {
	name, _ := cmd.Flags().GetString("profile")
	return cfg.GetProfile(name)
}
