// Package cmd implements the mixer command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/kysee/zk-mixer/config"
	"github.com/kysee/zk-mixer/utils"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	Version string
	Commit  string

	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mixer",
	Short: "Deposit into and withdraw from a zero-knowledge mixer",
	Long: `mixer generates notes, deposits them into a mixer tree and withdraws
them with a zero-knowledge proof, either directly on chain or through a relayer.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(cmd.Flags(), cfgFile); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger = utils.NewLogger(cfg.LogLevel)
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (%s)", Version, Commit)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to a config file")
	config.AddFlags(rootCmd.PersistentFlags())
}
