package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/quantumauth-io/refi-pool-dashboard/internal/chains"
)

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List the configured networks and the RPC endpoint picked for each",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		resolved, provider, err := chains.ConfigureNetwork(cfg.Networks, chains.WithPreferredRPC(cfg.App.PreferredRPC))
		if err != nil {
			return err
		}
		defer provider.Close()

		return printNetworks(cmd.OutOrStdout(), resolved)
	},
}

func init() {
	rootCmd.AddCommand(networksCmd)
}

func printNetworks(out io.Writer, resolved *chains.ResolvedChains) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKEY\tCURRENCY\tRPC\tACTIVE")

	active := resolved.Default().ID
	for _, c := range resolved.All() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Name, c.Network, c.NativeCurrency.Symbol,
			rpcLabel(c), lo.Ternary(c.ID == active, "*", ""),
		)
	}
	return tw.Flush()
}

func rpcLabel(c chains.ResolvedChain) string {
	if c.RPCName == "" {
		return c.URL
	}
	return strings.Join([]string{c.RPCName, c.URL}, " ")
}
