package cmd

import (
	"fmt"
	"os"

	"github.com/kysee/zk-mixer/crypto"
	"github.com/kysee/zk-mixer/types"
	"github.com/spf13/cobra"
)

var noteArgs struct {
	chainID    string
	token      string
	amount     string
	out        string
	passphrase string
}

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Generate a mixer note",
	Long: `note generates a fresh mixer note for --tree-id. The note is printed, or
sealed with --passphrase and written to --out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		note, err := types.GenerateMixerNote(noteArgs.chainID, cfg.TreeID, noteArgs.token, noteArgs.amount)
		if err != nil {
			return err
		}
		commitment, err := note.Commitment()
		if err != nil {
			return err
		}
		logger.Debug().Str("commitment", commitment.Hex()).Msg("note generated")

		if noteArgs.out == "" {
			fmt.Fprintln(cmd.OutOrStdout(), note.String())
			return nil
		}
		if noteArgs.passphrase == "" {
			return fmt.Errorf("--passphrase is required with --out")
		}
		sealed, err := crypto.SealNote([]byte(noteArgs.passphrase), note.String())
		if err != nil {
			return err
		}
		return os.WriteFile(noteArgs.out, sealed, 0o600)
	},
}

func init() {
	rootCmd.AddCommand(noteCmd)
	noteCmd.Flags().StringVar(&noteArgs.chainID, "chain-id", "1080", "Chain id recorded in the note")
	noteCmd.Flags().StringVar(&noteArgs.token, "token", "WEBB", "Token symbol")
	noteCmd.Flags().StringVar(&noteArgs.amount, "amount", "1", "Deposit amount")
	noteCmd.Flags().StringVar(&noteArgs.out, "out", "", "Write the sealed note to this file")
	noteCmd.Flags().StringVar(&noteArgs.passphrase, "passphrase", os.Getenv("MIXER_NOTE_PASSPHRASE"), "Passphrase sealing the note")
}
