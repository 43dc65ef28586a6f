package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/thoas/go-funk"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/catalog"
)

var datasetKinds = []string{string(api.DatasetKindCSV), string(api.DatasetKindPostgres)}

type CheckTypesOptions struct {
	OutputOptions

	out io.Writer
}

type checkTypeOutput struct {
	Value       api.CheckType `json:"value"`
	Label       string        `json:"label"`
	Description string        `json:"description"`
	Parameters  []string      `json:"parameters,omitempty"`
}

func DefaultCheckTypesOptions() *CheckTypesOptions {
	return &CheckTypesOptions{}
}

func NewCmdCheckTypes() *cobra.Command {
	o := DefaultCheckTypesOptions()
	cmd := &cobra.Command{
		Use:          "check-types (csv | postgres)",
		Short:        "List the check types available for a dataset kind",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			o.out = cmd.OutOrStdout()
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *CheckTypesOptions) Validate(args []string) error {
	if !funk.Contains(datasetKinds, args[0]) {
		return fmt.Errorf("dataset kind must be one of %s", strings.Join(datasetKinds, ", "))
	}
	return o.OutputOptions.Validate()
}

func (o *CheckTypesOptions) Run(ctx context.Context, args []string) error {
	types := catalog.AvailableCheckTypes(api.DatasetKind(args[0]))
	out := make([]checkTypeOutput, 0, len(types))
	for _, t := range types {
		out = append(out, checkTypeOutput(t))
	}
	return o.print(o.out, out, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "TYPE\tLABEL\tPARAMETERS\tDESCRIPTION")
		for _, t := range out {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Value, t.Label, orDash(strings.Join(t.Parameters, ",")), t.Description)
		}
	})
}
