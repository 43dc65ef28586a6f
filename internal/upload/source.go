// Package upload opens the CSV files handed to `dvctl upload`: local paths,
// HTTP(S) URLs and objects in S3-compatible storage.
package upload

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

const csvExtension = ".csv"

// Source yields the name and content of one CSV file.
type Source interface {
	Open(ctx context.Context) (name string, content io.ReadCloser, err error)
	Type() string
}

type ErrNotCSV struct {
	error
}

func NewErrNotCSV(name string) *ErrNotCSV {
	return &ErrNotCSV{fmt.Errorf("%q is not a .csv file", name)}
}

func checkName(name string) error {
	if !strings.HasSuffix(strings.ToLower(name), csvExtension) {
		return NewErrNotCSV(name)
	}
	return nil
}

// Parse picks the source for ref: "s3://bucket/key" reads from object
// storage configured by opts, "http://" and "https://" are downloaded and
// anything else is a local path.
func Parse(ref string, opts ...MinioOpts) (Source, error) {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// no scheme, or a windows drive letter
		return NewFileSource(ref), nil
	}

	switch u.Scheme {
	case "s3":
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, errors.Errorf("invalid object reference %q: expected s3://bucket/key", ref)
		}
		return NewMinioSource(append(opts, WithBucket(u.Host), WithObject(key))...)
	case "http", "https":
		return NewHTTPSource(ref), nil
	case "file":
		return NewFileSource(u.Path), nil
	default:
		return nil, errors.Errorf("unsupported source scheme %q", u.Scheme)
	}
}
