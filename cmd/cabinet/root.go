// File: cmd/cabinet/root.go
package main

import (
	"strings"

	"github.com/spf13/cobra"

	"cabinet/internal/flags"
	"cabinet/internal/logger"
	"cabinet/pkg/formatter"
)

type rootFlags struct {
	debug    bool
	output   string
	progress bool
}

func newRootCmd() *cobra.Command {
	cmdFlags := rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "cabinet",
		Short: "Cabinet stores and moves files across filesystems and object stores.",
		Long: `A unified CLI over named storage cabinets. A cabinet is a directory tree,
an S3 bucket or a GCS bucket, optionally scoped to a key prefix. Configure
cabinets with 'cabinet config set' and work with their items from one place.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			output := strings.ToLower(cmdFlags.output)
			if err := formatter.ValidateOutput(output); err != nil {
				return err
			}

			log := logger.NewLogger(cmdFlags.debug)
			app, err := newApp(log, cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			app.Output = output
			app.Progress = cmdFlags.progress && output == formatter.OutputTable

			cmd.SetContext(contextWithApp(cmd.Context(), app))
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&cmdFlags.debug, flags.Debug, flags.DebugShort, false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&cmdFlags.output, flags.Output, flags.OutputShort, formatter.OutputTable, "Output format (table or yaml)")
	rootCmd.PersistentFlags().BoolVar(&cmdFlags.progress, flags.Progress, true, "Show a progress bar for transfers on a terminal")

	rootCmd.AddCommand(newCabinetCmds()...)
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}
