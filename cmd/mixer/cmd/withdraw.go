package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/holiman/uint256"
	"github.com/kysee/zk-mixer/leaves"
	"github.com/kysee/zk-mixer/node"
	"github.com/kysee/zk-mixer/prover"
	"github.com/kysee/zk-mixer/relayer"
	"github.com/kysee/zk-mixer/submitter"
	"github.com/kysee/zk-mixer/types"
	"github.com/spf13/cobra"
)

var (
	withdrawNote noteFlags
	withdrawArgs struct {
		recipient string
		relayer   string
		fee       string
		refund    string
		direct    bool
		key       string
	}
)

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Withdraw a deposited note",
	Long: `withdraw proves ownership of a deposited note and withdraws it to
--recipient. The withdrawal is handed to the relayer unless --direct is set, in
which case it is submitted with --key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		note, err := withdrawNote.load()
		if err != nil {
			return err
		}
		recipient, err := decodeAddress(withdrawArgs.recipient)
		if err != nil {
			return err
		}
		relayerID, err := decodeAddress(withdrawArgs.relayer)
		if err != nil {
			return err
		}
		fee, err := uint256.FromDecimal(withdrawArgs.fee)
		if err != nil {
			return fmt.Errorf("--fee: %w", err)
		}
		refund, err := uint256.FromDecimal(withdrawArgs.refund)
		if err != nil {
			return fmt.Errorf("--refund: %w", err)
		}
		treeID, err := note.TreeID()
		if err != nil {
			return err
		}
		commitment, err := note.Commitment()
		if err != nil {
			return err
		}
		pk, err := os.ReadFile(cfg.ProvingKey)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		client, chain, err := dialChain(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		all, err := leaves.NewFetcher(leaves.NewRPCSource(client), leaves.WithLogger(logger)).FetchLeaves(ctx, treeID)
		if err != nil {
			return err
		}
		idx := -1
		for i, l := range all {
			if bytes.Equal(l, commitment) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("note %s is not deposited in tree %d", commitment.Hex(), treeID)
		}

		ccs, err := prover.CompileCircuit(cfg.TreeDepth)
		if err != nil {
			return err
		}
		coord := prover.NewCoordinator(
			prover.NewPlonkBackend(ccs, cfg.TreeDepth, logger),
			prover.WithLogger(logger),
			prover.WithConcurrency(cfg.Workers),
		)
		defer coord.Destroy()

		logger.Info().Int("index", idx).Int("leaves", len(all)).Msg("proving")
		res, err := coord.Prove(ctx, &types.ProofRequest{
			Note:       note.String(),
			Relayer:    relayerID,
			Recipient:  recipient,
			Leaves:     all,
			LeafIndex:  uint64(idx),
			Fee:        fee,
			Refund:     refund,
			ProvingKey: pk,
		})
		if err != nil {
			return err
		}

		var out types.TxOutcome
		if withdrawArgs.direct {
			signer, err := readKey(withdrawArgs.key)
			if err != nil {
				return err
			}
			call := node.WithdrawCall(treeID, res, recipient, relayerID, fee, refund)
			out = submitter.New(chain, submitter.WithLogger(logger)).SubmitOutcome(ctx, call, signer)
		} else {
			relayCmd, err := relayer.NewMixerRelayCommand(cfg.Chain, treeID, res, recipient, relayerID, fee, refund)
			if err != nil {
				return err
			}
			session, err := relayer.NewClient(cfg.RelayerURL, relayer.WithLogger(logger)).Relay(ctx, relayCmd)
			if err != nil {
				return err
			}
			defer session.Close()
			if _, err := session.Wait(ctx); err != nil {
				logger.Debug().Err(err).Msg("relay failed")
			}
			out = session.Outcome()
		}

		fmt.Fprintln(cmd.OutOrStdout(), out)
		if out.Status != types.OutcomeSuccess {
			return fmt.Errorf("withdraw %s", out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(withdrawCmd)
	withdrawNote.register(withdrawCmd)
	withdrawCmd.Flags().StringVar(&withdrawArgs.recipient, "recipient", "", "SS58 address receiving the withdrawal")
	withdrawCmd.Flags().StringVar(&withdrawArgs.relayer, "relayer", "", "SS58 address of the relayer receiving the fee")
	withdrawCmd.Flags().StringVar(&withdrawArgs.fee, "fee", "0", "Relayer fee")
	withdrawCmd.Flags().StringVar(&withdrawArgs.refund, "refund", "0", "Refund")
	withdrawCmd.Flags().BoolVar(&withdrawArgs.direct, "direct", false, "Submit the withdrawal on chain instead of through the relayer")
	withdrawCmd.Flags().StringVar(&withdrawArgs.key, "key", "mixer.key", "Account key used with --direct")
	_ = withdrawCmd.MarkFlagRequired("recipient")
	_ = withdrawCmd.MarkFlagRequired("relayer")
}
