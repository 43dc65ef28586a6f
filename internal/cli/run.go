package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	api "github.com/data-validator/data-validator/api/v1alpha1"
)

type RunOptions struct {
	GlobalOptions
	OutputOptions

	FailOnFailed bool
}

func DefaultRunOptions() *RunOptions {
	return &RunOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdRun() *cobra.Command {
	o := DefaultRunOptions()
	cmd := &cobra.Command{
		Use:          "run CHECK_ID...",
		Short:        "Run validation checks and wait for their results",
		Example:      "run 8a1c5a4e-9b0c-4d8e-9f0a-2b6d7e8f9a01 --fail-on-failed",
		Args:         cobra.MinimumNArgs(1),
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

func (o *RunOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	o.OutputOptions.Bind(fs)

	fs.BoolVar(&o.FailOnFailed, "fail-on-failed", o.FailOnFailed, "Exit with an error when a check reports failed records")
}

func (o *RunOptions) Complete(cmd *cobra.Command, args []string) error {
	return o.GlobalOptions.Complete(cmd, args)
}

func (o *RunOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	return o.OutputOptions.Validate()
}

// Run runs the checks one after the other. Every check is attempted even
// when an earlier one fails.
func (o *RunOptions) Run(ctx context.Context, args []string) error {
	cs, err := o.Clientset()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}
	svc, err := o.ValidationService(cs)
	if err != nil {
		return err
	}

	results := make([]api.ValidationResult, 0, len(args))
	var errs []error
	for _, checkID := range args {
		res := svc.Run(ctx, checkID)
		r, ok := res.Value()
		if !ok {
			errs = append(errs, fmt.Errorf("running check/%s: %w", checkID, res.Err()))
			continue
		}
		results = append(results, r)
		if o.FailOnFailed && r.Status == api.ResultStatusFailed {
			errs = append(errs, fmt.Errorf("check/%s failed with %d failed records", checkID, r.Metrics.FailedRecords))
		}
	}

	if err := o.print(o.stdout(), results, func(w *tabwriter.Writer) {
		printResultsTable(w, results)
	}); err != nil {
		return err
	}
	return utilerrors.NewAggregate(errs)
}
