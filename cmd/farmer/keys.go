package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"OdysseyFarmer/internal/balance"
	"OdysseyFarmer/internal/chain"
	"OdysseyFarmer/internal/config"
	"OdysseyFarmer/internal/keystore"
	"OdysseyFarmer/internal/notifier"
)

var withBalances bool

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the account addresses derived from the keys file",
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := keystore.ReadFile(cfg.Worker.KeysFile)
		if err != nil {
			return err
		}
		res := keystore.Load(lines)
		out := cmd.OutOrStdout()
		for _, le := range res.Errors {
			fmt.Fprintln(cmd.ErrOrStderr(), le.Error())
		}

		var oracle *balance.Oracle
		if withBalances && len(res.Accounts) > 0 {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			client, err := chain.Dial(ctx, cfg.Network.PrimaryRPC, chainOptions())
			if err != nil {
				return err
			}
			oracle = balance.NewOracle(client, 0, cfg.Network.CallTimeout, logger)
			oracle.Refresh(ctx, res.Accounts)
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for i, a := range res.Accounts {
			if oracle == nil {
				fmt.Fprintf(tw, "%d\t%s\n", i+1, a.Identity)
				continue
			}
			r, _ := oracle.Latest(a.Identity)
			bal := notifier.FormatEther(config.WeiToEther(r.Amount).String())
			if r.Err != "" {
				bal = "error: " + r.Err
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, a.Identity, bal)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "%d accounts, %d invalid lines, %d duplicates\n", len(res.Accounts), len(res.Errors), res.Duplicates)
		return nil
	},
}

func init() {
	keysCmd.Flags().BoolVar(&withBalances, "balances", false, "also query primary network balances")
}
