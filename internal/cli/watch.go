package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/data-validator/data-validator/internal/config"
	"github.com/data-validator/data-validator/internal/events"
	"github.com/data-validator/data-validator/internal/watcher"
)

type WatchOptions struct {
	GlobalOptions

	Interval       time.Duration
	MetricsAddress string
	EventsSink     string
}

func DefaultWatchOptions() *WatchOptions {
	return &WatchOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdWatch() *cobra.Command {
	o := DefaultWatchOptions()
	cmd := &cobra.Command{
		Use:   "watch CHECK_ID...",
		Short: "Run checks periodically and expose their status as Prometheus metrics",
		Long: `Run checks periodically and expose their status as Prometheus metrics.

The metrics are served on /metrics and the API reachability on /healthz.
Ticks are skipped while the API does not answer its health probe.

Status changes and run errors are emitted as CloudEvents: posted to
--events-sink when set, logged otherwise.`,
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

func (o *WatchOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.DurationVar(&o.Interval, "interval", o.Interval, "Time between two runs of the checks. Defaults to DATA_VALIDATOR_WATCH_INTERVAL")
	fs.StringVar(&o.MetricsAddress, "metrics-address", o.MetricsAddress, "Listen address of the metrics server. Defaults to DATA_VALIDATOR_METRICS_ADDRESS")
	fs.StringVar(&o.EventsSink, "events-sink", o.EventsSink, "URL receiving check events. Defaults to DATA_VALIDATOR_EVENTS_SINK")
}

func (o *WatchOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	if o.Interval == 0 {
		o.Interval = cfg.Watch.Interval
	}
	if o.MetricsAddress == "" {
		o.MetricsAddress = cfg.Watch.MetricsAddress
	}
	if o.EventsSink == "" {
		o.EventsSink = cfg.Watch.EventsSink
	}
	return nil
}

func (o *WatchOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	return nil
}

func (o *WatchOptions) Run(ctx context.Context, args []string) error {
	cs, err := o.Clientset()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}
	svc, err := o.ValidationService(cs)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	listener, err := net.Listen("tcp", o.MetricsAddress)
	if err != nil {
		return fmt.Errorf("creating metrics listener: %w", err)
	}

	var writer events.Writer = events.LogWriter{}
	if o.EventsSink != "" {
		if writer, err = events.NewHTTPWriter(o.EventsSink); err != nil {
			_ = listener.Close()
			return err
		}
	}
	producer := events.NewEventProducer(writer)
	defer producer.Close()

	w := watcher.New(svc, cs.Health, args, o.Interval, watcher.WithPublisher(producer))
	metricServer, err := watcher.NewMetricServer(w, listener)
	if err != nil {
		_ = listener.Close()
		return err
	}

	zap.S().Named("cli").Infof("watching %d checks every %s", len(args), o.Interval)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return metricServer.Run(ctx)
	})
	g.Go(func() error {
		return w.Run(ctx)
	})
	return g.Wait()
}
