package client

import (
	"context"
	"net/http"
	"net/url"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/pkg/result"
)

// ValidationClient manages checks and reads their results.
type ValidationClient struct {
	t *Transport
}

func NewValidationClient(t *Transport) *ValidationClient {
	return &ValidationClient{t: t}
}

func (c *ValidationClient) ListChecks(ctx context.Context) result.Result[[]api.ValidationCheck] {
	return Do[[]api.ValidationCheck](ctx, c.t, Request{Method: http.MethodGet, Path: "/validation/checks"})
}

// CreateCheck posts check; the server assigns id and createdAt.
func (c *ValidationClient) CreateCheck(ctx context.Context, check api.NewValidationCheck) result.Result[api.ValidationCheck] {
	return Do[api.ValidationCheck](ctx, c.t, Request{
		Method: http.MethodPost,
		Path:   "/validation/checks",
		JSON:   check,
	})
}

// StartRun triggers a run. The result is produced asynchronously and shows
// up in ListResults later.
func (c *ValidationClient) StartRun(ctx context.Context, checkID string) result.Result[api.RunAck] {
	return Do[api.RunAck](ctx, c.t, Request{
		Method: http.MethodPost,
		Path:   "/validation/run/" + url.PathEscape(checkID),
		Route:  "/validation/run/{checkId}",
	})
}

func (c *ValidationClient) ListResults(ctx context.Context) result.Result[[]api.ValidationResult] {
	return Do[[]api.ValidationResult](ctx, c.t, Request{Method: http.MethodGet, Path: "/validation/results"})
}
