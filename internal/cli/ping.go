package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/data-validator/data-validator/internal/postgres"
)

const pgPasswordEnv = "PGPASSWORD"

type PingConnectionOptions struct {
	GlobalOptions
	OutputOptions

	Password string
	Timeout  time.Duration
}

type pingOutput struct {
	ConnectionID  string `json:"connectionId"`
	Name          string `json:"name"`
	ServerVersion string `json:"serverVersion"`
	Schema        string `json:"schema"`
	SchemaExists  bool   `json:"schemaExists"`
	LatencyMillis int64  `json:"latencyMillis"`
}

func DefaultPingConnectionOptions() *PingConnectionOptions {
	return &PingConnectionOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Timeout:       postgres.DefaultConnectTimeout,
	}
}

func NewCmdPingConnection() *cobra.Command {
	o := DefaultPingConnectionOptions()
	cmd := &cobra.Command{
		Use:   "ping-connection CONNECTION_ID",
		Short: "Connect to a registered PostgreSQL database from this machine",
		Long: `Connect to a registered PostgreSQL database from this machine.

The password is taken from --password, then PGPASSWORD, then the connection
itself when the API returns it.`,
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

func (o *PingConnectionOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	o.OutputOptions.Bind(fs)

	fs.StringVar(&o.Password, "password", o.Password, "Database password")
	fs.DurationVar(&o.Timeout, "timeout", o.Timeout, "Connect timeout")
}

func (o *PingConnectionOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	if o.Password == "" {
		o.Password = os.Getenv(pgPasswordEnv)
	}
	return nil
}

func (o *PingConnectionOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return o.OutputOptions.Validate()
}

func (o *PingConnectionOptions) Run(ctx context.Context, args []string) error {
	cs, err := o.Clientset()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	res := cs.Datasets.GetPostgresConnection(ctx, args[0])
	conn, ok := res.Value()
	if !ok {
		return fmt.Errorf("reading connection/%s: %w", args[0], res.Err())
	}

	report, err := postgres.Ping(ctx, conn, o.Password, o.Timeout)
	if err != nil {
		return fmt.Errorf("pinging connection/%s: %w", conn.Id, err)
	}

	out := pingOutput{
		ConnectionID:  conn.Id,
		Name:          conn.Name,
		ServerVersion: report.ServerVersion,
		Schema:        report.Schema,
		SchemaExists:  report.SchemaExists,
		LatencyMillis: report.Latency.Milliseconds(),
	}
	if err := o.print(o.stdout(), out, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "CONNECTION\tSERVER VERSION\tSCHEMA\tSCHEMA EXISTS\tLATENCY")
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", conn.Name, report.ServerVersion, report.Schema, report.SchemaExists, report.Latency.Round(time.Millisecond))
	}); err != nil {
		return err
	}
	if !report.SchemaExists {
		return fmt.Errorf("schema %q does not exist in %s", report.Schema, conn.Database)
	}
	return nil
}
