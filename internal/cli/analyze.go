package cli

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	api "github.com/data-validator/data-validator/api/v1alpha1"
)

type AnalyzeOptions struct {
	GlobalOptions
	OutputOptions
}

func DefaultAnalyzeOptions() *AnalyzeOptions {
	return &AnalyzeOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdAnalyze() *cobra.Command {
	o := DefaultAnalyzeOptions()
	cmd := &cobra.Command{
		Use:          "analyze DATASET_ID",
		Short:        "Profile the columns of a CSV dataset and suggest checks",
		Args:         cobra.ExactArgs(1),
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

func (o *AnalyzeOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	o.OutputOptions.Bind(fs)
}

func (o *AnalyzeOptions) Complete(cmd *cobra.Command, args []string) error {
	return o.GlobalOptions.Complete(cmd, args)
}

func (o *AnalyzeOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	return o.OutputOptions.Validate()
}

func (o *AnalyzeOptions) Run(ctx context.Context, args []string) error {
	cs, err := o.Clientset()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	res := cs.Datasets.AnalyzeCSV(ctx, args[0])
	analysis, ok := res.Value()
	if !ok {
		return fmt.Errorf("analyzing dataset/%s: %w", args[0], res.Err())
	}
	return o.print(o.stdout(), analysis, func(w *tabwriter.Writer) {
		printAnalysisTable(w, analysis)
	})
}

func printAnalysisTable(w *tabwriter.Writer, a api.DatasetAnalysis) {
	columns := make([]string, 0, len(a.Columns))
	for name := range a.Columns {
		columns = append(columns, name)
	}
	slices.Sort(columns)

	fmt.Fprintln(w, "COLUMN\tTYPE\tUNIQUE\tMISSING\tMISSING %\tMIN\tMAX\tMEAN")
	for _, name := range columns {
		c := a.Columns[name]
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.1f\t%s\t%s\t%s\n", name, c.DataType, c.UniqueValues, c.MissingValues,
			c.MissingPercentage, formatStat(c.Min), formatStat(c.Max), formatStat(c.Mean))
	}

	if len(a.Recommendations) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "RECOMMENDED CHECK\tCOLUMN\tREASON")
	for _, r := range a.Recommendations {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Type, r.Column, r.Message)
	}
}

func formatStat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'g', 6, 64)
}
