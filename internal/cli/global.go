package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/data-validator/data-validator/internal/client"
	"github.com/data-validator/data-validator/internal/config"
	"github.com/data-validator/data-validator/internal/service"
)

type GlobalOptions struct {
	ServerUrl      string
	Token          string
	ConfigFilePath string

	out    io.Writer
	errOut io.Writer
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		ConfigFilePath: client.DefaultClientConfigPath(),
	}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ServerUrl, "server-url", "u", o.ServerUrl, "API base URL, including the /api prefix. Overrides the config file and DATA_VALIDATOR_API_URL")
	fs.StringVar(&o.Token, "token", o.Token, "Bearer token sent with every request")
	fs.StringVarP(&o.ConfigFilePath, "config", "c", o.ConfigFilePath, "Path to the client config file")
}

func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	o.out = cmd.OutOrStdout()
	o.errOut = cmd.ErrOrStderr()
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	return nil
}

// Clientset builds the API clients. The server comes from the flag, then the
// config file, then the environment.
func (o *GlobalOptions) Clientset() (*client.Clientset, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	svc := client.Service{Server: o.ServerUrl, Token: o.Token}
	if svc.Server == "" {
		fileCfg, err := o.readConfigFile()
		if err != nil {
			return nil, err
		}
		if fileCfg != nil {
			svc.Server = fileCfg.Service.Server
			svc.Timeout = fileCfg.Service.Timeout
			if svc.Token == "" {
				svc.Token = fileCfg.Service.Token
			}
		}
	}
	if svc.Server == "" {
		if svc.Server, err = cfg.APIBaseURL(); err != nil {
			return nil, err
		}
	}
	if svc.Token == "" {
		svc.Token = cfg.Service.Token
	}

	opts := []client.Option{client.WithNotifier(o.notify)}
	if cfg.IsDevelopment() && cfg.Service.DevDelay {
		opts = append(opts, client.WithDelayPolicy(client.NewRandomDelay(cfg.Service.DevDelayMin, cfg.Service.DevDelayMax)))
	}

	zap.S().Named("cli").Debugf("using server %s", svc.Server)
	return client.NewFromConfig(&client.Config{Service: svc}, cfg.Service.HTTPTimeout, opts...)
}

// ValidationService wraps the validation client with the configured poll
// bounds.
func (o *GlobalOptions) ValidationService(cs *client.Clientset) (*service.ValidationService, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	return service.NewValidationService(cs.Validation, service.PollOptions{
		Initial:     cfg.Poll.Initial,
		MaxInterval: cfg.Poll.MaxInterval,
		Timeout:     cfg.Poll.Timeout,
	}), nil
}

// readConfigFile returns nil when the default file does not exist. A missing
// file given explicitly is an error.
func (o *GlobalOptions) readConfigFile() (*client.Config, error) {
	if o.ConfigFilePath == "" {
		return nil, nil
	}
	cfg, err := client.ParseConfigFile(o.ConfigFilePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && o.ConfigFilePath == client.DefaultClientConfigPath() {
			return nil, nil
		}
		return nil, fmt.Errorf("loading %s: %w", o.ConfigFilePath, err)
	}
	return cfg, nil
}

func (o *GlobalOptions) notify(ctx context.Context, n client.Notification) {
	zap.S().Named("cli").Debugw("request failed", "method", n.Method, "path", n.Path, "request_id", n.RequestID)
	fmt.Fprintf(o.stderr(), "%s: %s (%s %s, request id %s)\n", n.Title, n.Message, n.Method, n.Path, n.RequestID)
}

func (o *GlobalOptions) stdout() io.Writer {
	if o.out == nil {
		return io.Discard
	}
	return o.out
}

func (o *GlobalOptions) stderr() io.Writer {
	if o.errOut == nil {
		return io.Discard
	}
	return o.errOut
}
