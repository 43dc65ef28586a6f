// Package watcher runs a set of checks on a jittered interval and exposes
// their last outcome as Prometheus metrics.
package watcher

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/events"
	"github.com/data-validator/data-validator/pkg/result"
)

// Runner runs a check and waits for its result.
type Runner interface {
	Run(ctx context.Context, checkID string) result.Result[api.ValidationResult]
}

// HealthProber reports whether the API answers.
type HealthProber interface {
	Check(ctx context.Context) result.Result[api.HealthStatus]
}

// Publisher receives status changes and run errors.
type Publisher interface {
	Publish(ctx context.Context, kind, subject string, v any) error
}

type Option func(w *Watcher)

// WithPublisher publishes an event when a check changes status or fails to run.
func WithPublisher(p Publisher) Option {
	return func(w *Watcher) {
		w.publisher = p
	}
}

// State is what the watcher knows about one check.
type State struct {
	CheckID       string           `json:"checkId"`
	Status        api.ResultStatus `json:"status,omitempty"`
	ResultID      string           `json:"resultId,omitempty"`
	FailedRecords int              `json:"failedRecords"`
	LastError     string           `json:"lastError,omitempty"`
	LastRun       time.Time        `json:"lastRun"`
	Runs          int              `json:"runs"`
	Errors        int              `json:"errors"`
}

type Watcher struct {
	runner    Runner
	health    HealthProber
	checkIDs  []string
	interval  time.Duration
	jitter    jitterbug.Jitter
	publisher Publisher

	mu          sync.RWMutex
	states      map[string]*State
	apiHealthy  bool
	lastTick    time.Time
	skippedTick int
}

func New(runner Runner, health HealthProber, checkIDs []string, interval time.Duration, opts ...Option) *Watcher {
	w := &Watcher{
		runner:   runner,
		health:   health,
		checkIDs: slices.Clone(checkIDs),
		interval: interval,
		jitter:   &jitterbug.Norm{Stdev: 30 * time.Millisecond, Mean: 0},
		states:   make(map[string]*State, len(checkIDs)),
	}
	for _, id := range checkIDs {
		w.states[id] = &State{CheckID: id}
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run ticks once right away and then on every interval until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	zap.S().Named("watcher").Infow("starting watcher", "checks", len(w.checkIDs), "interval", w.interval)
	defer zap.S().Named("watcher").Info("watcher stopped")

	w.Tick(ctx)

	ticker := jitterbug.New(w.interval, w.jitter)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		w.Tick(ctx)
	}
}

// Tick runs every check once, sequentially. Nothing runs while the API
// health probe fails. It returns the number of checks run.
func (w *Watcher) Tick(ctx context.Context) int {
	logger := zap.S().Named("watcher")

	healthy := w.health.Check(ctx)
	w.mu.Lock()
	w.lastTick = time.Now()
	w.apiHealthy = healthy.IsOk()
	if !healthy.IsOk() {
		w.skippedTick++
	}
	w.mu.Unlock()
	if !healthy.IsOk() {
		logger.Warnw("api unreachable, skipping tick", "error", healthy.Message())
		return 0
	}

	ran := 0
	for _, id := range w.checkIDs {
		if ctx.Err() != nil {
			break
		}
		res := w.runner.Run(ctx, id)
		w.publish(ctx, w.record(id, res))
		ran++
	}
	logger.Debugw("tick completed", "checks", ran)
	return ran
}

type event struct {
	kind string
	id   string
	data any
}

// record updates the state of checkID and returns the event to publish, if any.
func (w *Watcher) record(checkID string, res result.Result[api.ValidationResult]) *event {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := w.states[checkID]
	s.Runs++
	s.LastRun = time.Now()

	r, ok := res.Value()
	if !ok {
		s.Errors++
		s.LastError = res.Message()
		zap.S().Named("watcher").Warnw("check run failed", "check_id", checkID, "error", res.Message())
		return &event{kind: events.CheckErrorKind, id: checkID, data: events.CheckErrorEvent{CheckID: checkID, Error: res.Message()}}
	}
	previous := s.Status
	s.Status = r.Status
	s.ResultID = r.Id
	s.FailedRecords = r.Metrics.FailedRecords
	s.LastError = ""
	if previous == r.Status {
		return nil
	}
	return &event{kind: events.CheckStatusKind, id: checkID, data: events.CheckStatusEvent{
		CheckID:        checkID,
		ResultID:       r.Id,
		PreviousStatus: previous,
		Status:         r.Status,
		FailedRecords:  r.Metrics.FailedRecords,
	}}
}

func (w *Watcher) publish(ctx context.Context, e *event) {
	if e == nil || w.publisher == nil {
		return
	}
	if err := w.publisher.Publish(ctx, e.kind, e.id, e.data); err != nil {
		zap.S().Named("watcher").Warnw("failed to publish event", "check_id", e.id, "kind", e.kind, "error", err)
	}
}

// States returns a copy of the per-check states in check order.
func (w *Watcher) States() []State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]State, 0, len(w.checkIDs))
	for _, id := range w.checkIDs {
		out = append(out, *w.states[id])
	}
	return out
}

// Healthy reports whether the last health probe succeeded.
func (w *Watcher) Healthy() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.apiHealthy
}
