package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/client"
	"github.com/data-validator/data-validator/internal/validator"
	"github.com/data-validator/data-validator/pkg/result"
)

var numericParameters = []string{"min", "max"}

type CreateCheckOptions struct {
	GlobalOptions
	OutputOptions

	DatasetID   string
	DatasetType string
	Column      string
	CheckType   string
	Parameters  map[string]string
	RunNow      bool
}

func DefaultCreateCheckOptions() *CreateCheckOptions {
	return &CreateCheckOptions{
		GlobalOptions: DefaultGlobalOptions(),
		DatasetType:   string(api.DatasetKindCSV),
		Parameters:    map[string]string{},
	}
}

func NewCmdCreateCheck() *cobra.Command {
	o := DefaultCreateCheckOptions()
	cmd := &cobra.Command{
		Use:   "check NAME",
		Short: "Create a validation check",
		Example: `create check "price range" --dataset csv_1234 --column price --type value_range -p min=0 -p max=100 --run
create check "no missing email" --dataset-type postgres --dataset 3 --column email --type missing_values`,
		Args: cobra.ExactArgs(1),
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

	for _, flag := range []string{"dataset", "column", "type"} {
		if err := cmd.MarkFlagRequired(flag); err != nil {
			panic(err)
		}
	}
	return cmd
}

func (o *CreateCheckOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	o.OutputOptions.Bind(fs)

	fs.StringVar(&o.DatasetID, "dataset", o.DatasetID, "Id of the CSV dataset or PostgreSQL connection to check")
	fs.StringVar(&o.DatasetType, "dataset-type", o.DatasetType, "Kind of the dataset. One of: (csv, postgres).")
	fs.StringVar(&o.Column, "column", o.Column, "Column the check applies to")
	fs.StringVarP(&o.CheckType, "type", "t", o.CheckType, "Check type, see the check-types command")
	fs.StringToStringVarP(&o.Parameters, "param", "p", o.Parameters, "Check parameter as key=value, repeatable")
	fs.BoolVar(&o.RunNow, "run", o.RunNow, "Run the check right away and wait for its result")
}

func (o *CreateCheckOptions) Complete(cmd *cobra.Command, args []string) error {
	return o.GlobalOptions.Complete(cmd, args)
}

func (o *CreateCheckOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if err := o.OutputOptions.Validate(); err != nil {
		return err
	}
	return validator.NewCheckValidator().ValidateNewCheck(o.newCheck(args[0], ""))
}

func (o *CreateCheckOptions) Run(ctx context.Context, args []string) error {
	cs, err := o.Clientset()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	datasetName, err := o.datasetName(ctx, cs)
	if err != nil {
		return err
	}
	check := o.newCheck(args[0], datasetName)

	if !o.RunNow {
		res := cs.Validation.CreateCheck(ctx, check)
		created, ok := res.Value()
		if !ok {
			return fmt.Errorf("creating check: %w", res.Err())
		}
		return o.print(o.stdout(), created, func(w *tabwriter.Writer) {
			printChecksTable(w, []api.ValidationCheck{created})
		})
	}

	svc, err := o.ValidationService(cs)
	if err != nil {
		return err
	}
	res := svc.CreateAndRun(ctx, check)
	run, ok := res.Value()
	if !ok {
		return fmt.Errorf("creating check: %w", res.Err())
	}
	return printCheckRun(o, run.Check, run.Result)
}

// datasetName resolves the display name of the dataset the check targets.
func (o *CreateCheckOptions) datasetName(ctx context.Context, cs *client.Clientset) (string, error) {
	if api.DatasetKind(o.DatasetType) == api.DatasetKindPostgres {
		res := cs.Datasets.GetPostgresConnection(ctx, o.DatasetID)
		conn, ok := res.Value()
		if !ok {
			return "", fmt.Errorf("reading connection/%s: %w", o.DatasetID, res.Err())
		}
		return conn.Name, nil
	}
	res := cs.Datasets.GetCSV(ctx, o.DatasetID)
	dataset, ok := res.Value()
	if !ok {
		return "", fmt.Errorf("reading dataset/%s: %w", o.DatasetID, res.Err())
	}
	return dataset.Name, nil
}

func (o *CreateCheckOptions) newCheck(name, datasetName string) api.NewValidationCheck {
	params := make(map[string]any, len(o.Parameters))
	for k, v := range o.Parameters {
		params[k] = parameterValue(k, v)
	}
	return api.NewValidationCheck{
		Name:        strings.TrimSpace(name),
		DatasetId:   o.DatasetID,
		DatasetName: datasetName,
		DatasetType: api.DatasetKind(o.DatasetType),
		Column:      o.Column,
		CheckType:   api.CheckType(o.CheckType),
		Parameters:  params,
	}
}

// parameterValue keeps bounds numeric and decodes json objects and arrays.
// Everything else is sent as typed on the command line.
func parameterValue(key, value string) any {
	if funk.Contains(numericParameters, key) {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		return value
	}
	if strings.HasPrefix(value, "{") || strings.HasPrefix(value, "[") {
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			return decoded
		}
	}
	return value
}

type checkRunOutput struct {
	Check  api.ValidationCheck   `json:"check"`
	Result *api.ValidationResult `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
}

// printCheckRun prints the check and the outcome of its run. A failed run is
// also returned as an error so the exit code reflects it.
func printCheckRun(o *CreateCheckOptions, check api.ValidationCheck, res result.Result[api.ValidationResult]) error {
	out := checkRunOutput{Check: check}
	r, ok := res.Value()
	if ok {
		out.Result = &r
	} else {
		out.Error = res.Message()
	}

	if err := o.print(o.stdout(), out, func(w *tabwriter.Writer) {
		printChecksTable(w, []api.ValidationCheck{check})
		if ok {
			fmt.Fprintln(w)
			printResultsTable(w, []api.ValidationResult{r})
		}
	}); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("running check/%s: %w", check.Id, res.Err())
	}
	return nil
}
