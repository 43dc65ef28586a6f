package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/data-validator/data-validator/internal/cli"
	"github.com/data-validator/data-validator/internal/config"
	"github.com/data-validator/data-validator/pkg/log"
)

func main() {
	command := NewDvctlCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}

func NewDvctlCommand() *cobra.Command {
	var (
		logLevel string
		undoLog  = func() {}
	)

	cmd := &cobra.Command{
		Use:   "dvctl [flags] [options]",
		Short: "dvctl manages datasets and validation checks of a data-validator API.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel == "" {
				cfg, err := config.New()
				if err != nil {
					return err
				}
				logLevel = cfg.Service.LogLevel
			}
			_, undoLog = log.Setup(logLevel)
			zap.S().Named("dvctl").Debugf("running %s", cmd.CommandPath())
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			undoLog()
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", logLevel, "Log level (debug, info, warn, error). Defaults to DATA_VALIDATOR_LOG_LEVEL")

	cmd.AddCommand(cli.NewCmdGet())
	cmd.AddCommand(cli.NewCmdUpload())
	cmd.AddCommand(cli.NewCmdAnalyze())
	cmd.AddCommand(cli.NewCmdCreate())
	cmd.AddCommand(cli.NewCmdRun())
	cmd.AddCommand(cli.NewCmdCheckTypes())
	cmd.AddCommand(cli.NewCmdHealth())
	cmd.AddCommand(cli.NewCmdPingConnection())
	cmd.AddCommand(cli.NewCmdExport())
	cmd.AddCommand(cli.NewCmdWatch())
	cmd.AddCommand(cli.NewCmdDevServer())
	cmd.AddCommand(cli.NewCmdDevToken())
	cmd.AddCommand(cli.NewCmdConfigure())
	cmd.AddCommand(cli.NewCmdVersion())

	return cmd
}
