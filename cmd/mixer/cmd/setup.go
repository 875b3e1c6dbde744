package cmd

import (
	"bytes"
	"os"

	"github.com/kysee/zk-mixer/prover"
	"github.com/spf13/cobra"
)

var solidityOut string

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Compile the withdraw circuit and generate its keys",
	Long: `setup compiles the withdraw circuit for --tree-depth and writes the PLONK
proving and verifying keys. The SRS is not safe for production use.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info().Int("depth", cfg.TreeDepth).Msg("compiling circuit")
		keys, err := prover.Setup(cfg.TreeDepth)
		if err != nil {
			return err
		}
		logger.Info().Int("constraints", keys.CCS.GetNbConstraints()).Msg("circuit compiled")

		pk, err := keys.ProvingKeyBytes()
		if err != nil {
			return err
		}
		if err := os.WriteFile(cfg.ProvingKey, pk, 0o600); err != nil {
			return err
		}
		vk, err := keys.VerifyingKeyBytes()
		if err != nil {
			return err
		}
		if err := os.WriteFile(cfg.VerifyingKey, vk, 0o644); err != nil {
			return err
		}
		logger.Info().Str("pk", cfg.ProvingKey).Str("vk", cfg.VerifyingKey).Msg("keys written")

		if solidityOut != "" {
			var buf bytes.Buffer
			if err := keys.VerifyingKey.ExportSolidity(&buf); err != nil {
				return err
			}
			if err := os.WriteFile(solidityOut, buf.Bytes(), 0o644); err != nil {
				return err
			}
			logger.Info().Str("path", solidityOut).Msg("solidity verifier written")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
	setupCmd.Flags().StringVar(&solidityOut, "solidity", "", "Also write a Solidity verifier of the verifying key to this path")
}
