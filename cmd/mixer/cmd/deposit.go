package cmd

import (
	"fmt"

	"github.com/kysee/zk-mixer/node"
	"github.com/kysee/zk-mixer/submitter"
	"github.com/kysee/zk-mixer/types"
	"github.com/spf13/cobra"
)

var (
	depositNote noteFlags
	depositKey  string
)

var depositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Deposit a note into the mixer tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		note, err := depositNote.load()
		if err != nil {
			return err
		}
		commitment, err := note.Commitment()
		if err != nil {
			return err
		}
		treeID, err := note.TreeID()
		if err != nil {
			return err
		}
		signer, err := readKey(depositKey)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		client, chain, err := dialChain(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		out := submitter.New(chain, submitter.WithLogger(logger)).SubmitOutcome(ctx, node.DepositCall(treeID, commitment), signer)
		fmt.Fprintln(cmd.OutOrStdout(), out)
		if out.Status != types.OutcomeSuccess {
			return fmt.Errorf("deposit %s", out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(depositCmd)
	depositNote.register(depositCmd)
	depositCmd.Flags().StringVar(&depositKey, "key", "mixer.key", "Account key paying the deposit")
}
