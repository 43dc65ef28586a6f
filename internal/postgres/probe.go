// Package postgres checks that a registered PostgreSQL connection is
// reachable from the machine running dvctl.
package postgres

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	api "github.com/data-validator/data-validator/api/v1alpha1"
)

const DefaultConnectTimeout = 5 * time.Second

// Report describes a successful probe.
type Report struct {
	ServerVersion string
	Schema        string
	SchemaExists  bool
	Latency       time.Duration
}

// ConnConfig builds a pgx config for conn. password overrides the one
// stored with the connection, which the API usually omits.
func ConnConfig(conn api.PostgresConnection, password string, timeout time.Duration) (*pgx.ConnConfig, error) {
	if password == "" {
		password = conn.Password
	}
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	port := conn.Port
	if port == 0 {
		port = 5432
	}
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port %d", conn.Port)
	}

	// A URL escapes special characters in credentials and database names.
	dsn := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(conn.Username, password),
		Host:   net.JoinHostPort(conn.Host, strconv.Itoa(port)),
		Path:   "/" + conn.Database,
		RawQuery: url.Values{
			"connect_timeout":  []string{strconv.Itoa(int(timeout.Seconds()))},
			"application_name": []string{"dvctl"},
		}.Encode(),
	}

	cfg, err := pgx.ParseConfig(dsn.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx config: %w", err)
	}
	cfg.ConnectTimeout = timeout
	return cfg, nil
}

// Ping connects to conn, reads the server version and checks that the
// configured schema exists.
func Ping(ctx context.Context, conn api.PostgresConnection, password string, timeout time.Duration) (*Report, error) {
	cfg, err := ConnConfig(conn, password, timeout)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	pgConn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := pgConn.Close(closeCtx); err != nil {
			zap.S().Named("postgres").Debugw("failed to close connection", "error", err)
		}
	}()

	if err := pgConn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	report := &Report{Schema: schemaOrDefault(conn.Schema)}
	if err := pgConn.QueryRow(ctx, "SHOW server_version").Scan(&report.ServerVersion); err != nil {
		return nil, fmt.Errorf("failed to read server version: %w", err)
	}
	err = pgConn.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)",
		report.Schema,
	).Scan(&report.SchemaExists)
	if err != nil {
		return nil, fmt.Errorf("failed to look up schema %q: %w", report.Schema, err)
	}
	report.Latency = time.Since(start)

	zap.S().Named("postgres").Debugw("connection probed",
		"connection_id", conn.Id,
		"server_version", report.ServerVersion,
		"latency", report.Latency,
	)
	return report, nil
}

func schemaOrDefault(schema string) string {
	if schema == "" {
		return "public"
	}
	return schema
}
