package main

import (
	"fmt"

	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/spf13/cobra"

	"github.com/quantumauth-io/refi-pool-dashboard/internal/app"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/wallet"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect an address and remember it for auto-connect",
	RunE: func(cmd *cobra.Command, args []string) error {
		connector, _ := cmd.Flags().GetString("connector")
		address, _ := cmd.Flags().GetString("address")

		w, err := openWallet(cmd)
		if err != nil {
			return err
		}
		defer closeWallet(w)

		st, err := w.Client.Connect(cmd.Context(), connector, address)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "connected %s via %s\n", st.Account.Address, st.Account.ConnectorID)
		return nil
	},
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Forget the stored wallet session",
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWallet(cmd)
		if err != nil {
			return err
		}
		defer closeWallet(w)

		if err := w.Client.Disconnect(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "disconnected")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)

	connectCmd.Flags().String("connector", wallet.WatchConnectorID, "Connector id (watch, injected)")
	connectCmd.Flags().String("address", "", "Account address to connect")
}

// openWallet loads the chains and the session store only; no balances are read.
func openWallet(cmd *cobra.Command) (*app.Wallet, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.OpenWallet(cmd.Context(), cfg)
}

func closeWallet(w *app.Wallet) {
	if err := w.Close(); err != nil {
		log.Warn("wallet cleanup failed", "error", err)
	}
}
