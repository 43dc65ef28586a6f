package events

import (
	"context"
	"fmt"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"go.uber.org/zap"
)

// LogWriter logs every event. It is used when no sink is configured.
type LogWriter struct{}

func (LogWriter) Write(_ context.Context, e cloudevents.Event) error {
	zap.S().Named("events").Infow("event", "type", e.Type(), "subject", e.Subject(), "data", string(e.Data()))
	return nil
}

func (LogWriter) Close(context.Context) error {
	return nil
}

// HTTPWriter posts events to a sink in binary content mode.
type HTTPWriter struct {
	client cloudevents.Client
	target string
}

func NewHTTPWriter(target string) (*HTTPWriter, error) {
	c, err := cloudevents.NewClientHTTP(cloudevents.WithTarget(target))
	if err != nil {
		return nil, fmt.Errorf("creating event client for %s: %w", target, err)
	}
	return &HTTPWriter{client: c, target: target}, nil
}

func (h *HTTPWriter) Write(ctx context.Context, e cloudevents.Event) error {
	if res := h.client.Send(ctx, e); !cloudevents.IsACK(res) {
		return fmt.Errorf("sending %s to %s: %w", e.Type(), h.target, res)
	}
	return nil
}

func (h *HTTPWriter) Close(context.Context) error {
	return nil
}
