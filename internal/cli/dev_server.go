package cli

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/auth"
	"github.com/data-validator/data-validator/internal/config"
	"github.com/data-validator/data-validator/internal/fakeapi"
	"github.com/data-validator/data-validator/internal/store"
	"github.com/data-validator/data-validator/pkg/migrations"
)

const defaultDevServerAddress = "localhost:8000"

type DevServerOptions struct {
	Address       string
	RunDelay      time.Duration
	ResultIDInAck bool
	Connections   []string
	DB            string
	Auth          auth.Config

	connections []api.PostgresConnection
}

func DefaultDevServerOptions() *DevServerOptions {
	return &DevServerOptions{
		Address: defaultDevServerAddress,
	}
}

func NewCmdDevServer() *cobra.Command {
	o := DefaultDevServerOptions()
	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Serve a data-validator API for local development",
		Long: `Serve a data-validator API for local development.

Uploaded datasets, checks and results live in memory and are lost on exit
unless --db points at a sqlite file or a PostgreSQL database, which are
migrated on start. CSV checks are evaluated by the server; PostgreSQL checks
produce a failed result.

With --auth secret or --auth jwks every route but /health requires a bearer
token. Use dev-token to sign one for a secret.`,
		Example:      "dev-server --run-delay 2s --postgres 'postgres://app@db.local:5432/shop?schema=sales&name=shop'",
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

func (o *DevServerOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.Address, "address", o.Address, "Listen address")
	fs.DurationVar(&o.RunDelay, "run-delay", o.RunDelay, "Delay between a run request and its result")
	fs.BoolVar(&o.ResultIDInAck, "result-id-in-ack", o.ResultIDInAck, "Return the id of the upcoming result when a run starts")
	fs.StringArrayVar(&o.Connections, "postgres", o.Connections, "PostgreSQL connection to register, as a postgres:// URL. The name and schema query parameters are honored. Repeatable")
	fs.StringVar(&o.DB, "db", o.DB, "Persist resources in sqlite:<path> or a postgres:// database instead of memory")
	fs.StringVar(&o.Auth.Type, "auth", o.Auth.Type, "Authentication: none, secret or jwks. Defaults to DATA_VALIDATOR_AUTH_TYPE")
	fs.StringVar(&o.Auth.Secret, "auth-secret", o.Auth.Secret, "HS256 secret for --auth secret. Defaults to DATA_VALIDATOR_AUTH_SECRET")
	fs.StringVar(&o.Auth.JWKSURL, "jwks-url", o.Auth.JWKSURL, "JWK set URL for --auth jwks. Defaults to DATA_VALIDATOR_AUTH_JWKS_URL")
}

func (o *DevServerOptions) Complete(cmd *cobra.Command, args []string) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("db") {
		o.DB = cfg.Database.DSN
	}
	if o.Auth.Type == "" {
		o.Auth.Type = cfg.Auth.Type
	}
	if o.Auth.Secret == "" {
		o.Auth.Secret = cfg.Auth.Secret
	}
	if o.Auth.JWKSURL == "" {
		o.Auth.JWKSURL = cfg.Auth.JWKSURL
	}
	return nil
}

func (o *DevServerOptions) Validate(args []string) error {
	if o.RunDelay < 0 {
		return fmt.Errorf("run delay must not be negative")
	}
	o.connections = make([]api.PostgresConnection, 0, len(o.Connections))
	for i, raw := range o.Connections {
		conn, err := parseConnection(raw, strconv.Itoa(i+1))
		if err != nil {
			return err
		}
		o.connections = append(o.connections, conn)
	}
	return nil
}

func (o *DevServerOptions) Run(ctx context.Context, args []string) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	authenticator, err := auth.NewAuthenticator(ctx, o.Auth)
	if err != nil {
		return err
	}

	opts := []fakeapi.Option{
		fakeapi.WithAuthenticator(authenticator),
		fakeapi.WithRunDelay(o.RunDelay),
		fakeapi.WithConnections(o.connections...),
	}
	if o.ResultIDInAck {
		opts = append(opts, fakeapi.WithResultIDInAck())
	}
	if o.DB != "" {
		st, err := openStore(o.DB)
		if err != nil {
			return err
		}
		defer st.Close()
		opts = append(opts, fakeapi.WithStore(st))
	}
	server, err := fakeapi.New(opts...)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", o.Address)
	if err != nil {
		return fmt.Errorf("creating listener: %w", err)
	}
	return server.Run(ctx, listener)
}

func openStore(dsn string) (store.Store, error) {
	db, err := store.InitDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("initializing data store: %w", err)
	}
	if err := migrations.MigrateStore(db); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	zap.S().Named("dev_server").Infow("using persistent store", "dialect", db.Dialector.Name())
	return store.NewStore(db), nil
}

func parseConnection(raw, id string) (api.PostgresConnection, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return api.PostgresConnection{}, fmt.Errorf("invalid connection %q: %w", raw, err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return api.PostgresConnection{}, fmt.Errorf("invalid connection %q: scheme must be postgres", raw)
	}
	if u.Hostname() == "" {
		return api.PostgresConnection{}, fmt.Errorf("invalid connection %q: no hostname", raw)
	}

	conn := api.PostgresConnection{
		Id:        id,
		Host:      u.Hostname(),
		Port:      5432,
		Database:  strings.TrimPrefix(u.Path, "/"),
		Username:  u.User.Username(),
		Schema:    u.Query().Get("schema"),
		Name:      u.Query().Get("name"),
		CreatedAt: api.NewTimestamp(time.Now()),
	}
	if p := u.Port(); p != "" {
		if conn.Port, err = strconv.Atoi(p); err != nil {
			return api.PostgresConnection{}, fmt.Errorf("invalid connection %q: %w", raw, err)
		}
	}
	if conn.Name == "" {
		conn.Name = conn.Database
	}
	return conn, nil
}
