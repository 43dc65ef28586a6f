package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"
	"go.uber.org/zap"

	"github.com/data-validator/data-validator/internal/report"
	"github.com/data-validator/data-validator/internal/report/types"
)

var legalReportFormats = []string{string(types.ReportFormatCSV), string(types.ReportFormatXLSX)}

type ExportOptions struct {
	GlobalOptions

	Format     string
	OutputFile string
	LatestOnly bool
}

func DefaultExportOptions() *ExportOptions {
	return &ExportOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Format:        string(types.ReportFormatCSV),
	}
}

func NewCmdExport() *cobra.Command {
	o := DefaultExportOptions()
	cmd := &cobra.Command{
		Use:          "export",
		Short:        "Export validation results as a CSV or Excel report",
		Example:      "export --format xlsx -f results.xlsx --latest-only",
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

func (o *ExportOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVar(&o.Format, "format", o.Format, fmt.Sprintf("Report format. One of: (%s).", strings.Join(legalReportFormats, ", ")))
	fs.StringVarP(&o.OutputFile, "file", "f", o.OutputFile, "Write the report to this file instead of stdout")
	fs.BoolVar(&o.LatestOnly, "latest-only", o.LatestOnly, "Only keep the newest result of each check")
}

func (o *ExportOptions) Complete(cmd *cobra.Command, args []string) error {
	return o.GlobalOptions.Complete(cmd, args)
}

func (o *ExportOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if !funk.Contains(legalReportFormats, o.Format) {
		return fmt.Errorf("report format must be one of %s", strings.Join(legalReportFormats, ", "))
	}
	if o.Format == string(types.ReportFormatXLSX) && o.OutputFile == "" {
		return fmt.Errorf("an output file is required for %s reports", o.Format)
	}
	return nil
}

func (o *ExportOptions) Run(ctx context.Context, args []string) error {
	cs, err := o.Clientset()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	checksRes := cs.Validation.ListChecks(ctx)
	checks, ok := checksRes.Value()
	if !ok {
		return fmt.Errorf("listing checks: %w", checksRes.Err())
	}
	resultsRes := cs.Validation.ListResults(ctx)
	results, ok := resultsRes.Value()
	if !ok {
		return fmt.Errorf("listing results: %w", resultsRes.Err())
	}

	opts := types.ReportOptions{Format: types.ReportFormat(o.Format), LatestOnly: o.LatestOnly}
	renderer, err := report.NewRenderer(opts.Format)
	if err != nil {
		return err
	}
	data := report.Build(checks, results, opts, time.Now())
	content, err := renderer.Render(data)
	if err != nil {
		return fmt.Errorf("rendering %s report: %w", renderer.SupportedFormat(), err)
	}

	if o.OutputFile == "" {
		_, err := o.stdout().Write(content)
		return err
	}
	if err := os.WriteFile(o.OutputFile, content, 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	zap.S().Named("cli").Infof("wrote %d results to %s", len(data.Rows), o.OutputFile)
	return nil
}
