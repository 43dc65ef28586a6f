package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type HealthOptions struct {
	GlobalOptions
	OutputOptions
}

func DefaultHealthOptions() *HealthOptions {
	return &HealthOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdHealth() *cobra.Command {
	o := DefaultHealthOptions()
	cmd := &cobra.Command{
		Use:          "health",
		Short:        "Check that the API answers",
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
	return cmd
}

func (o *HealthOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	o.OutputOptions.Bind(fs)
}

func (o *HealthOptions) Complete(cmd *cobra.Command, args []string) error {
	return o.GlobalOptions.Complete(cmd, args)
}

func (o *HealthOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	return o.OutputOptions.Validate()
}

func (o *HealthOptions) Run(ctx context.Context, args []string) error {
	cs, err := o.Clientset()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	res := cs.Health.Check(ctx)
	status, ok := res.Value()
	if !ok {
		return fmt.Errorf("checking %s: %w", cs.Transport.BaseURL(), res.Err())
	}
	return o.print(o.stdout(), status, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "SERVER\tSTATUS")
		fmt.Fprintf(w, "%s\t%s\n", cs.Transport.BaseURL(), status.Status)
	})
}
