package client

import (
	"context"
	"net/http"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/pkg/result"
)

// HealthClient probes API liveness.
type HealthClient struct {
	t *Transport
}

func NewHealthClient(t *Transport) *HealthClient {
	return &HealthClient{t: t}
}

func (c *HealthClient) Check(ctx context.Context) result.Result[api.HealthStatus] {
	return Do[api.HealthStatus](ctx, c.t, Request{Method: http.MethodGet, Path: "/health"})
}
