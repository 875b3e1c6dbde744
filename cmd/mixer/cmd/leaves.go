package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/kysee/zk-mixer/leaves"
	"github.com/spf13/cobra"
)

var leavesCmd = &cobra.Command{
	Use:   "leaves",
	Short: "Print the leaves of the mixer tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, _, err := dialChain(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		all, err := leaves.NewFetcher(leaves.NewRPCSource(client), leaves.WithLogger(logger)).FetchLeaves(ctx, cfg.TreeID)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for i, l := range all {
			fmt.Fprintf(out, "%d\t%s\n", i, l.Hex())
		}

		var root hexutil.Bytes
		if err := client.CallContext(ctx, &root, "mt_getRoot", cfg.TreeID); err != nil {
			return err
		}
		fmt.Fprintf(out, "root\t%s\n", root)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(leavesCmd)
}
