package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/config"
	"github.com/data-validator/data-validator/internal/upload"
)

type UploadOptions struct {
	GlobalOptions
	OutputOptions

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Insecure  bool
}

func DefaultUploadOptions() *UploadOptions {
	return &UploadOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdUpload() *cobra.Command {
	o := DefaultUploadOptions()
	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a CSV dataset",
		Long: `Upload a CSV dataset.

FILE is a local path, an http(s) URL or an s3://bucket/key object reference.`,
		Example:      "upload ./orders.csv\nupload s3://landing/orders.csv --s3-endpoint minio.local:9000",
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

func (o *UploadOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	o.OutputOptions.Bind(fs)

	fs.StringVar(&o.S3Endpoint, "s3-endpoint", o.S3Endpoint, "Object storage endpoint for s3:// sources. Defaults to DATA_VALIDATOR_S3_ENDPOINT")
	fs.StringVar(&o.S3AccessKey, "s3-access-key", o.S3AccessKey, "Object storage access key. Defaults to DATA_VALIDATOR_S3_ACCESS_KEY")
	fs.StringVar(&o.S3SecretKey, "s3-secret-key", o.S3SecretKey, "Object storage secret key. Defaults to DATA_VALIDATOR_S3_SECRET_KEY")
	fs.BoolVar(&o.S3Insecure, "s3-insecure", o.S3Insecure, "Talk to the object storage over plain http")
}

func (o *UploadOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	if o.S3Endpoint == "" {
		o.S3Endpoint = cfg.Storage.Endpoint
	}
	if o.S3AccessKey == "" {
		o.S3AccessKey = cfg.Storage.AccessKey
	}
	if o.S3SecretKey == "" {
		o.S3SecretKey = cfg.Storage.SecretKey
	}
	if !cmd.Flags().Changed("s3-insecure") {
		o.S3Insecure = !cfg.Storage.UseSSL
	}
	return nil
}

func (o *UploadOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	return o.OutputOptions.Validate()
}

func (o *UploadOptions) Run(ctx context.Context, args []string) error {
	cs, err := o.Clientset()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	src, err := upload.Parse(args[0],
		upload.WithEndpoint(o.S3Endpoint),
		upload.WithAccessKey(o.S3AccessKey),
		upload.WithSecretKey(o.S3SecretKey),
		upload.WithSSL(!o.S3Insecure),
	)
	if err != nil {
		return err
	}

	name, content, err := src.Open(ctx)
	if err != nil {
		return err
	}
	defer content.Close()

	zap.S().Named("cli").Debugf("uploading %s from %s source", name, src.Type())

	res := cs.Datasets.UploadCSV(ctx, name, content)
	dataset, ok := res.Value()
	if !ok {
		return fmt.Errorf("uploading %s: %w", name, res.Err())
	}

	return o.print(o.stdout(), dataset, func(w *tabwriter.Writer) {
		printDatasetsTable(w, []api.CsvDataset{dataset})
	})
}
