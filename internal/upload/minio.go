package upload

import (
	"context"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

type MinioOpts func(c *minioConfig)

type minioConfig struct {
	endpoint        string
	bucket          string
	object          string
	accessKey       string
	secretAccessKey string
	useSSL          bool
}

func newConfig(opts ...MinioOpts) *minioConfig {
	cfg := &minioConfig{
		useSSL: true,
	}

	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

type MinioSource struct {
	cfg    *minioConfig
	client *minio.Client
}

func NewMinioSource(opts ...MinioOpts) (*MinioSource, error) {
	cfg := newConfig(opts...)
	if cfg.endpoint == "" {
		return nil, errors.New("object storage endpoint is not configured")
	}

	minioClient, err := minio.New(cfg.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.accessKey, cfg.secretAccessKey, ""),
		Secure: cfg.useSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create object storage client")
	}

	return &MinioSource{cfg: cfg, client: minioClient}, nil
}

func (s *MinioSource) Open(ctx context.Context) (string, io.ReadCloser, error) {
	name := path.Base(s.cfg.object)
	if err := checkName(name); err != nil {
		return "", nil, err
	}

	object, err := s.client.GetObject(ctx, s.cfg.bucket, s.cfg.object, minio.GetObjectOptions{})
	if err != nil {
		return "", nil, errors.Wrapf(err, "failed to get s3://%s/%s", s.cfg.bucket, s.cfg.object)
	}
	// GetObject is lazy; Stat surfaces missing objects and bad credentials.
	if _, err := object.Stat(); err != nil {
		_ = object.Close()
		return "", nil, errors.Wrapf(err, "failed to stat s3://%s/%s", s.cfg.bucket, s.cfg.object)
	}

	return name, object, nil
}

func (s *MinioSource) Type() string {
	return "minio"
}

func WithEndpoint(endpoint string) MinioOpts {
	return func(c *minioConfig) {
		c.endpoint = endpoint
	}
}

func WithBucket(bucket string) MinioOpts {
	return func(c *minioConfig) {
		c.bucket = bucket
	}
}

func WithObject(object string) MinioOpts {
	return func(c *minioConfig) {
		c.object = object
	}
}

func WithAccessKey(accessKey string) MinioOpts {
	return func(c *minioConfig) {
		c.accessKey = accessKey
	}
}

func WithSecretKey(secretKey string) MinioOpts {
	return func(c *minioConfig) {
		c.secretAccessKey = secretKey
	}
}

func WithSSL(useSSL bool) MinioOpts {
	return func(c *minioConfig) {
		c.useSSL = useSSL
	}
}
