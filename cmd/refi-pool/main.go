package main

import (
	"os"

	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/spf13/cobra"

	clientconfig "github.com/quantumauth-io/refi-pool-dashboard/cmd/refi-pool/config"
	appconfig "github.com/quantumauth-io/refi-pool-dashboard/internal/config"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "refi-pool",
	Short:        "Read-only dashboard for the ReFi donation pool",
	Long:         "Connects a wallet, reads the DonationPool contract balances and shows them in a local browser page or on the terminal",
	SilenceUsage: true,
	Version:      Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config.yaml (default: search ~/.config/refi-pool, ~/config, .)")
	rootCmd.SetVersionTemplate("refi-pool {{.Version}} (commit " + Commit + ", built " + BuildDate + ")\n")
}

func loadConfig() (*appconfig.Config, error) {
	return clientconfig.Load(configPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("refi-pool failed", "error", err)
		os.Exit(1)
	}
}
