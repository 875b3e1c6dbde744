package cmd

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/kysee/zk-mixer/crypto"
	"github.com/kysee/zk-mixer/types"
	"github.com/spf13/cobra"
)

var keyOut string

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Generate an account key",
	RunE: func(cmd *cobra.Command, args []string) error {
		signer, err := crypto.NewKey()
		if err != nil {
			return err
		}
		if err := os.WriteFile(keyOut, []byte(hexutil.Encode(signer.Bytes())), 0o600); err != nil {
			return err
		}
		addr, err := types.EncodeSS58(crypto.AccountID(signer), types.SubstratePrefix)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), addr)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keyCmd)
	keyCmd.Flags().StringVar(&keyOut, "out", "mixer.key", "Where to write the key")
}
