// Package cli implements the voiceteller command-line interface.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/voiceteller/voiceteller/internal/config"
	"github.com/voiceteller/voiceteller/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voiceteller",
		Short: "Voice-driven banking assistant",
		Long:  "VoiceTeller is a voice assistant for banking: speak a request, it transcribes, reasons over your accounts, and talks back.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level, "pretty")
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.voiceteller/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newAssistCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
