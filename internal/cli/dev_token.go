package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/data-validator/data-validator/internal/auth"
	"github.com/data-validator/data-validator/internal/config"
)

type DevTokenOptions struct {
	Secret  string
	Subject string
	TTL     time.Duration

	out io.Writer
}

func DefaultDevTokenOptions() *DevTokenOptions {
	return &DevTokenOptions{
		Subject: "dev",
		TTL:     24 * time.Hour,
	}
}

func NewCmdDevToken() *cobra.Command {
	o := DefaultDevTokenOptions()
	cmd := &cobra.Command{
		Use:          "dev-token",
		Short:        "Sign a bearer token accepted by dev-server --auth secret",
		Example:      "dvctl configure -u http://localhost:8000/api --token $(dvctl dev-token --auth-secret s3cr3t)",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run()
		},
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *DevTokenOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.Secret, "auth-secret", o.Secret, "HS256 secret. Defaults to DATA_VALIDATOR_AUTH_SECRET")
	fs.StringVar(&o.Subject, "subject", o.Subject, "Subject of the token")
	fs.DurationVar(&o.TTL, "ttl", o.TTL, "Validity of the token")
}

func (o *DevTokenOptions) Complete(cmd *cobra.Command, args []string) error {
	o.out = cmd.OutOrStdout()
	if o.Secret != "" {
		return nil
	}
	cfg, err := config.New()
	if err != nil {
		return err
	}
	o.Secret = cfg.Auth.Secret
	return nil
}

func (o *DevTokenOptions) Validate(args []string) error {
	if o.Secret == "" {
		return fmt.Errorf("a secret is required")
	}
	if o.Subject == "" {
		return fmt.Errorf("subject must not be empty")
	}
	if o.TTL <= 0 {
		return fmt.Errorf("ttl must be positive")
	}
	return nil
}

func (o *DevTokenOptions) Run() error {
	token, err := auth.SignToken([]byte(o.Secret), o.Subject, o.TTL)
	if err != nil {
		return fmt.Errorf("signing token: %w", err)
	}
	_, err = fmt.Fprintln(o.out, token)
	return err
}
