package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"github.com/pkg/errors"
)

type HTTPSource struct {
	url    string
	client *http.Client
}

func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{url: url, client: http.DefaultClient}
}

// Open starts the download. The body is streamed to the caller.
func (h *HTTPSource) Open(ctx context.Context) (string, io.ReadCloser, error) {
	u, err := url.Parse(h.url)
	if err != nil {
		return "", nil, errors.Wrap(err, "invalid url")
	}
	name := path.Base(u.Path)
	if err := checkName(name); err != nil {
		return "", nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return "", nil, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", nil, errors.Wrapf(err, "failed to download %s", h.url)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return "", nil, fmt.Errorf("failed to download %q, status code: %d", h.url, resp.StatusCode)
	}
	return name, resp.Body, nil
}

func (h *HTTPSource) Type() string {
	return "http"
}
