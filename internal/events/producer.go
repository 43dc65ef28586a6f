// Package events publishes watcher notifications as CloudEvents.
package events

import (
	"context"
	"encoding/json"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultSource = "dvctl/watch"
	closeTimeout  = 5 * time.Second
)

// Writer is the interface to be implemented by the underlying writer.
type Writer interface {
	Write(ctx context.Context, e cloudevents.Event) error
	Close(ctx context.Context) error
}

type ProducerOption func(e *EventProducer)

// WithSource sets the source attribute of every event.
func WithSource(source string) ProducerOption {
	return func(e *EventProducer) {
		e.source = source
	}
}

// EventProducer buffers events so that Write never waits for the writer.
type EventProducer struct {
	buffer  *buffer
	wakeCh  chan struct{}
	doneCh  chan struct{}
	stopped chan struct{}
	writer  Writer
	source  string
}

func NewEventProducer(w Writer, opts ...ProducerOption) *EventProducer {
	ep := &EventProducer{
		buffer:  newBuffer(),
		wakeCh:  make(chan struct{}, 1),
		doneCh:  make(chan struct{}),
		stopped: make(chan struct{}),
		writer:  w,
		source:  defaultSource,
	}

	for _, o := range opts {
		o(ep)
	}

	go ep.run()
	return ep
}

// Publish queues v, encoded as JSON, as an event of the given kind about subject.
func (ep *EventProducer) Publish(_ context.Context, kind, subject string, v any) error {
	d, err := json.Marshal(v)
	if err != nil {
		return err
	}

	if ep.buffer.PushBack(&message{Kind: kind, Subject: subject, Data: d}) == 0 {
		select {
		case ep.wakeCh <- struct{}{}:
		default:
		}
	}
	return nil
}

// Close sends the pending events and closes the writer.
func (ep *EventProducer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	close(ep.doneCh)
	select {
	case <-ep.stopped:
	case <-ctx.Done():
	}

	if err := ep.writer.Close(ctx); err != nil {
		zap.S().Named("event_producer").Errorf("event producer closed with error: %s", err)
		return err
	}
	zap.S().Named("event_producer").Info("event producer closed")
	return nil
}

func (ep *EventProducer) run() {
	defer close(ep.stopped)
	for {
		msg := ep.buffer.Pop()
		if msg == nil {
			select {
			case <-ep.wakeCh:
				continue
			case <-ep.doneCh:
				if ep.buffer.Size() == 0 {
					return
				}
				continue
			}
		}
		ep.send(msg)
	}
}

func (ep *EventProducer) send(msg *message) {
	e := cloudevents.NewEvent()
	e.SetID(uuid.NewString())
	e.SetSource(ep.source)
	e.SetType(msg.Kind)
	e.SetSubject(msg.Subject)
	e.SetTime(time.Now())
	_ = e.SetData(cloudevents.ApplicationJSON, msg.Data)

	if err := ep.writer.Write(context.TODO(), e); err != nil {
		zap.S().Named("event_producer").Errorw("failed to send event", "error", err, "type", msg.Kind, "subject", msg.Subject)
	}
}
