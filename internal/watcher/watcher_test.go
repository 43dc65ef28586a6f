package watcher_test

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/events"
	"github.com/data-validator/data-validator/internal/watcher"
	"github.com/data-validator/data-validator/pkg/result"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]string
}

func (f *fakeRunner) Run(_ context.Context, checkID string) result.Result[api.ValidationResult] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, checkID)
	if msg, ok := f.fail[checkID]; ok {
		return result.Fail[api.ValidationResult](msg)
	}
	return result.Ok(api.ValidationResult{
		Id:      "r-" + checkID,
		CheckId: checkID,
		Status:  api.ResultStatusFailed,
		Metrics: api.ResultMetrics{FailedRecords: 7},
	})
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeHealth struct {
	mu   sync.Mutex
	down bool
}

func (f *fakeHealth) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *fakeHealth) Check(context.Context) result.Result[api.HealthStatus] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return result.Fail[api.HealthStatus]("connection refused")
	}
	return result.Ok(api.HealthStatus{Status: "healthy"})
}

type published struct {
	kind    string
	subject string
	data    any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (f *fakePublisher) Publish(_ context.Context, kind, subject string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{kind: kind, subject: subject, data: v})
	return nil
}

var _ = Describe("watcher", func() {
	var (
		runner *fakeRunner
		health *fakeHealth
		w      *watcher.Watcher
	)

	BeforeEach(func() {
		runner = &fakeRunner{fail: map[string]string{"c2": "Check not found"}}
		health = &fakeHealth{}
		w = watcher.New(runner, health, []string{"c1", "c2"}, time.Hour)
	})

	It("runs every check in order", func() {
		Expect(w.Tick(context.TODO())).To(Equal(2))
		Expect(runner.calls).To(Equal([]string{"c1", "c2"}))

		states := w.States()
		Expect(states).To(HaveLen(2))
		Expect(states[0].Status).To(Equal(api.ResultStatusFailed))
		Expect(states[0].FailedRecords).To(Equal(7))
		Expect(states[0].ResultID).To(Equal("r-c1"))
		Expect(states[1].Errors).To(Equal(1))
		Expect(states[1].LastError).To(Equal("Check not found"))
		Expect(w.Healthy()).To(BeTrue())
	})

	It("publishes status changes and run errors", func() {
		pub := &fakePublisher{}
		w = watcher.New(runner, health, []string{"c1", "c2"}, time.Hour, watcher.WithPublisher(pub))

		w.Tick(context.TODO())
		w.Tick(context.TODO())

		Expect(pub.events).To(HaveLen(3))
		Expect(pub.events[0].kind).To(Equal(events.CheckStatusKind))
		Expect(pub.events[0].subject).To(Equal("c1"))
		Expect(pub.events[0].data).To(Equal(events.CheckStatusEvent{
			CheckID:       "c1",
			ResultID:      "r-c1",
			Status:        api.ResultStatusFailed,
			FailedRecords: 7,
		}))
		Expect(pub.events[1].kind).To(Equal(events.CheckErrorKind))
		Expect(pub.events[2].kind).To(Equal(events.CheckErrorKind))
	})

	It("skips a tick while the api is unreachable", func() {
		health.setDown(true)
		Expect(w.Tick(context.TODO())).To(Equal(0))
		Expect(runner.callCount()).To(Equal(0))
		Expect(w.Healthy()).To(BeFalse())

		health.setDown(false)
		Expect(w.Tick(context.TODO())).To(Equal(2))
	})

	It("ticks right away and stops with the context", func() {
		ctx, cancel := context.WithCancel(context.TODO())
		done := make(chan error)
		go func() {
			done <- w.Run(ctx)
		}()

		Eventually(runner.callCount).Should(Equal(2))
		cancel()
		Eventually(done).Should(Receive(BeNil()))
	})

	Context("metric server", func() {
		It("serves the check states", func() {
			w.Tick(context.TODO())
			srv, err := watcher.NewMetricServer(w, nil)
			Expect(err).To(BeNil())

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var body struct {
				APIHealthy bool             `json:"apiHealthy"`
				Checks     []watcher.State `json:"checks"`
			}
			Expect(json.NewDecoder(rec.Body).Decode(&body)).To(Succeed())
			Expect(body.APIHealthy).To(BeTrue())
			Expect(body.Checks).To(HaveLen(2))
		})

		It("reports an unreachable api", func() {
			health.setDown(true)
			w.Tick(context.TODO())
			srv, err := watcher.NewMetricServer(w, nil)
			Expect(err).To(BeNil())

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
		})

		It("exposes prometheus metrics", func() {
			srv, err := watcher.NewMetricServer(w, nil)
			Expect(err).To(BeNil())

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			body, _ := io.ReadAll(rec.Body)
			Expect(string(body)).To(ContainSubstring("go_goroutines"))
		})

		It("shuts down with the context", func() {
			l, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).To(BeNil())
			srv, err := watcher.NewMetricServer(w, l)
			Expect(err).To(BeNil())

			ctx, cancel := context.WithCancel(context.TODO())
			done := make(chan error)
			go func() {
				done <- srv.Run(ctx)
			}()

			Eventually(func() error {
				resp, err := http.Get("http://" + l.Addr().String() + "/healthz")
				if err == nil {
					resp.Body.Close()
				}
				return err
			}).Should(Succeed())
			cancel()
			Eventually(done).Should(Receive(BeNil()))
		})
	})
})
