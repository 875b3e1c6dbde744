package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/holiman/uint256"
	"github.com/kysee/zk-mixer/node"
	"github.com/kysee/zk-mixer/prover"
	"github.com/spf13/cobra"
)

var nodeArgs struct {
	listen      string
	depositSize string
	endow       []string
}

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Run a development chain",
	Long: `node runs an in-memory development chain with one mixer tree (--tree-id)
and serves its JSON-RPC over http and websocket on --listen.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bzVk, err := os.ReadFile(cfg.VerifyingKey)
		if err != nil {
			return err
		}
		vk, err := prover.ReadVerifyingKey(bzVk)
		if err != nil {
			return err
		}
		depositSize, err := uint256.FromDecimal(nodeArgs.depositSize)
		if err != nil {
			return fmt.Errorf("--deposit-size: %w", err)
		}

		ncfg := node.Config{
			Depth:        cfg.TreeDepth,
			VerifyingKey: vk,
			Trees:        []node.TreeConfig{{ID: cfg.TreeID, DepositSize: depositSize}},
			ListenAddr:   nodeArgs.listen,
			Log:          logger,
		}
		for _, e := range nodeArgs.endow {
			addr, amount, ok := strings.Cut(e, "=")
			if !ok {
				return fmt.Errorf("--endow %q: want <address>=<amount>", e)
			}
			accountID, err := decodeAddress(addr)
			if err != nil {
				return err
			}
			balance, err := uint256.FromDecimal(amount)
			if err != nil {
				return fmt.Errorf("--endow %q: %w", e, err)
			}
			ncfg.Endowments = append(ncfg.Endowments, node.Endowment{AccountID: accountID, Balance: balance})
		}

		n, err := node.Start(ncfg)
		if err != nil {
			return err
		}
		defer node.Stop(n)
		fmt.Fprintln(cmd.OutOrStdout(), n.Endpoint())

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		return nil
	},
}

func init() {
	rootCmd.AddCommand(nodeCmd)
	nodeCmd.Flags().StringVar(&nodeArgs.listen, "listen", "127.0.0.1:9944", "Address serving JSON-RPC")
	nodeCmd.Flags().StringVar(&nodeArgs.depositSize, "deposit-size", "1000000000000", "Deposit size of the mixer tree")
	nodeCmd.Flags().StringSliceVar(&nodeArgs.endow, "endow", nil, "Initial balance as <address>=<amount>, repeatable")
}
