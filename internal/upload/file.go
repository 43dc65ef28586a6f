package upload

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Open(ctx context.Context) (string, io.ReadCloser, error) {
	name := filepath.Base(f.path)
	if err := checkName(name); err != nil {
		return "", nil, err
	}
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	file, err := os.Open(f.path)
	if err != nil {
		return "", nil, errors.Wrapf(err, "failed to open %s", f.path)
	}
	return name, file, nil
}

func (f *FileSource) Type() string {
	return "file"
}
