package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/data-validator/data-validator/internal/client"
)

type ConfigureOptions struct {
	GlobalOptions
}

func DefaultConfigureOptions() *ConfigureOptions {
	return &ConfigureOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdConfigure() *cobra.Command {
	o := DefaultConfigureOptions()
	cmd := &cobra.Command{
		Use:          "configure",
		Short:        "Write the client config file",
		Example:      "configure -u https://validator.example.com/api --token $TOKEN",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
	}
	o.Bind(cmd.Flags())
	if err := cmd.MarkFlagRequired("server-url"); err != nil {
		panic(err)
	}
	return cmd
}

func (o *ConfigureOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
}

func (o *ConfigureOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.ConfigFilePath == "" {
		return fmt.Errorf("a config file path is required")
	}
	return nil
}

func (o *ConfigureOptions) Run(ctx context.Context, args []string) error {
	if err := client.WriteConfig(o.ConfigFilePath, o.ServerUrl, o.Token); err != nil {
		return err
	}
	fmt.Fprintf(o.stdout(), "Wrote %s\n", o.ConfigFilePath)
	return nil
}
