package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/quantumauth-io/refi-pool-dashboard/internal/app"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/dashboard"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/query"
)

var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "Fetch the pool balances once and print them",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		return printBalances(cmd.Context(), cmd.OutOrStdout(), asJSON, timeout)
	},
}

func init() {
	rootCmd.AddCommand(balancesCmd)

	balancesCmd.Flags().Bool("json", false, "Print JSON (default when stdout is not a terminal)")
	balancesCmd.Flags().Duration("timeout", 30*time.Second, "How long to wait for both reads")
}

type balancesOutput struct {
	Address   string       `json:"address,omitempty"`
	Connected bool         `json:"connected"`
	Contract  string       `json:"contract"`
	ChainID   uint64       `json:"chainId"`
	Native    resultOutput `json:"native"`
	Pool      resultOutput `json:"pool"`
}

type resultOutput struct {
	Status query.Status `json:"status"`
	Value  string       `json:"value,omitempty"`
	Raw    string       `json:"raw,omitempty"`
	Error  string       `json:"error,omitempty"`
}

func printBalances(ctx context.Context, out io.Writer, asJSON bool, timeout time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	v, err := a.Display.Wait(waitCtx)
	if err != nil {
		return fmt.Errorf("waiting for balances: %w", err)
	}

	if !asJSON && !isTerminal(out) {
		asJSON = true
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(newBalancesOutput(v))
	}
	_, err = io.WriteString(out, dashboard.RenderText(v))
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newBalancesOutput(v dashboard.View) balancesOutput {
	o := balancesOutput{
		Address:   v.Address,
		Connected: v.Connected,
		Contract:  v.ContractAddress,
		ChainID:   v.ChainID,
		Native:    resultOutput{Status: v.Native.Status},
		Pool:      resultOutput{Status: v.Pool.Status},
	}
	switch v.Native.Status {
	case query.StatusSuccess:
		o.Native.Value = v.Native.Data.Formatted
		if v.Native.Data.Raw != nil {
			o.Native.Raw = v.Native.Data.Raw.String()
		}
	case query.StatusError:
		o.Native.Error = v.Native.Err.Error()
	}
	switch v.Pool.Status {
	case query.StatusSuccess:
		if v.Pool.Data.Token != nil {
			o.Pool.Value = v.Pool.Data.Token.String()
		}
		if v.Pool.Data.ETH != nil {
			o.Pool.Raw = v.Pool.Data.ETH.String()
		}
	case query.StatusError:
		o.Pool.Error = v.Pool.Err.Error()
	}
	return o
}
