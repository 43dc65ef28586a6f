package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/pkg/result"
)

type GetOptions struct {
	GlobalOptions
	OutputOptions

	CheckID string
}

func DefaultGetOptions() *GetOptions {
	return &GetOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdGet() *cobra.Command {
	o := DefaultGetOptions()
	cmd := &cobra.Command{
		Use:   "get (TYPE | TYPE/ID)",
		Short: "Display one or many resources.",
		Long: `Display one or many resources.

Types: datasets, connections, checks, results.
For results, "result/CHECK_ID" shows the newest result of that check.`,
		Example: "get datasets\nget dataset/csv_1234 -o yaml\nget result/8a1c... -o json",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *GetOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	o.OutputOptions.Bind(fs)

	fs.StringVar(&o.CheckID, "check", o.CheckID, "Only list the results of this check")
}

func (o *GetOptions) Complete(cmd *cobra.Command, args []string) error {
	return o.GlobalOptions.Complete(cmd, args)
}

func (o *GetOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if _, _, err := parseAndValidateKindId(args[0]); err != nil {
		return err
	}
	return o.OutputOptions.Validate()
}

func (o *GetOptions) Run(ctx context.Context, args []string) error { // nolint: gocyclo
	cs, err := o.Clientset()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	kind, id, err := parseAndValidateKindId(args[0])
	if err != nil {
		return err
	}

	errorPrefix := fmt.Sprintf("reading %s/%s", kind, id)
	if id == "" {
		errorPrefix = fmt.Sprintf("listing %s", plural(kind))
	}

	switch {
	case kind == DatasetKind && id == "":
		return printResult(o, errorPrefix, cs.Datasets.ListCSV(ctx), printDatasetsTable)
	case kind == DatasetKind:
		return printResult(o, errorPrefix, cs.Datasets.GetCSV(ctx, id), func(w *tabwriter.Writer, d api.CsvDataset) {
			printDatasetsTable(w, []api.CsvDataset{d})
		})
	case kind == ConnectionKind && id == "":
		return printResult(o, errorPrefix, cs.Datasets.ListPostgresConnections(ctx), printConnectionsTable)
	case kind == ConnectionKind:
		return printResult(o, errorPrefix, cs.Datasets.GetPostgresConnection(ctx, id), func(w *tabwriter.Writer, c api.PostgresConnection) {
			printConnectionsTable(w, []api.PostgresConnection{c})
		})
	case kind == CheckKind:
		res := cs.Validation.ListChecks(ctx)
		if id != "" {
			res = filterChecks(res, id)
		}
		return printResult(o, errorPrefix, res, printChecksTable)
	case kind == ResultKind && id == "":
		res := cs.Validation.ListResults(ctx)
		if o.CheckID != "" {
			res = filterResults(res, o.CheckID)
		}
		return printResult(o, errorPrefix, res, printResultsTable)
	case kind == ResultKind:
		svc, err := o.ValidationService(cs)
		if err != nil {
			return err
		}
		return printResult(o, errorPrefix, svc.Latest(ctx, id), func(w *tabwriter.Writer, r api.ValidationResult) {
			printResultsTable(w, []api.ValidationResult{r})
		})
	default:
		return fmt.Errorf("unsupported resource kind: %s", kind)
	}
}

func printResult[T any](o *GetOptions, errorPrefix string, res result.Result[T], table func(w *tabwriter.Writer, v T)) error {
	v, ok := res.Value()
	if !ok {
		return fmt.Errorf("%s: %w", errorPrefix, res.Err())
	}
	return o.print(o.stdout(), v, func(w *tabwriter.Writer) { table(w, v) })
}

func filterChecks(res result.Result[[]api.ValidationCheck], id string) result.Result[[]api.ValidationCheck] {
	checks, ok := res.Value()
	if !ok {
		return res
	}
	for _, c := range checks {
		if c.Id == id {
			return result.Ok([]api.ValidationCheck{c})
		}
	}
	return result.Fail[[]api.ValidationCheck]("Check not found")
}

func filterResults(res result.Result[[]api.ValidationResult], checkID string) result.Result[[]api.ValidationResult] {
	results, ok := res.Value()
	if !ok {
		return res
	}
	out := make([]api.ValidationResult, 0, len(results))
	for _, r := range results {
		if r.CheckId == checkID {
			out = append(out, r)
		}
	}
	return result.Ok(out)
}

func formatTime(t api.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func printDatasetsTable(w *tabwriter.Writer, datasets []api.CsvDataset) {
	fmt.Fprintln(w, "ID\tNAME\tFILE\tROWS\tCOLUMNS\tUPLOADED")
	for _, d := range datasets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n", d.Id, d.Name, d.FileName, d.RowCount, len(d.Columns), formatTime(d.UploadedAt))
	}
}

func printConnectionsTable(w *tabwriter.Writer, conns []api.PostgresConnection) {
	fmt.Fprintln(w, "ID\tNAME\tHOST\tPORT\tDATABASE\tSCHEMA\tUSER")
	for _, c := range conns {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n", c.Id, c.Name, c.Host, c.Port, c.Database, orDash(c.Schema), c.Username)
	}
}

func printChecksTable(w *tabwriter.Writer, checks []api.ValidationCheck) {
	fmt.Fprintln(w, "ID\tNAME\tDATASET\tTYPE\tCOLUMN\tCHECK\tCREATED")
	for _, c := range checks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", c.Id, c.Name, orDash(c.DatasetName), c.DatasetType, c.Column, c.CheckType, formatTime(c.CreatedAt))
	}
}

func printResultsTable(w *tabwriter.Writer, results []api.ValidationResult) {
	fmt.Fprintln(w, "ID\tCHECK\tSTATUS\tFAILED\tTOTAL\tCREATED")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n", r.Id, r.CheckId, r.Status, r.Metrics.FailedRecords, r.Metrics.TotalRecords, formatTime(r.CreatedAt))
	}
}
