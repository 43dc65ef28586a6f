package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"

	"github.com/data-validator/data-validator/internal/client"
	"github.com/data-validator/data-validator/pkg/requestid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type countingDelay struct {
	calls atomic.Int32
}

func (d *countingDelay) Wait(ctx context.Context) error {
	d.calls.Add(1)
	return ctx.Err()
}

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []client.Notification
}

func (r *recordingNotifier) notify(_ context.Context, n client.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

func (r *recordingNotifier) all() []client.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]client.Notification(nil), r.notifications...)
}

type payload struct {
	Name string `json:"name"`
}

var _ = Describe("transport", func() {
	var (
		srv      *httptest.Server
		handler  http.HandlerFunc
		notifier *recordingNotifier
		delay    *countingDelay
		tr       *client.Transport
	)

	BeforeEach(func() {
		notifier = &recordingNotifier{}
		delay = &countingDelay{}
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
		tr = client.NewTransport(srv.URL+"/api",
			client.WithNotifier(notifier.notify),
			client.WithDelayPolicy(delay),
			client.WithToken("secret"),
		)
	})

	AfterEach(func() {
		srv.Close()
	})

	get := func() (payload, bool, string) {
		res := client.Do[payload](context.TODO(), tr, client.Request{Method: http.MethodGet, Path: "/thing"})
		v, ok := res.Value()
		return v, ok, res.Message()
	}

	Context("success", func() {
		It("unwraps the envelope data", func() {
			var got *http.Request
			handler = func(w http.ResponseWriter, r *http.Request) {
				got = r
				_, _ = w.Write([]byte(`{"success":true,"data":{"name":"orders"}}`))
			}

			v, ok, _ := get()
			Expect(ok).To(BeTrue())
			Expect(v.Name).To(Equal("orders"))
			Expect(got.URL.Path).To(Equal("/api/thing"))
			Expect(got.Header.Get("Content-Type")).To(Equal("application/json"))
			Expect(got.Header.Get("Accept")).To(Equal("application/json"))
			Expect(got.Header.Get("Authorization")).To(Equal("Bearer secret"))
			Expect(got.Header.Get(requestid.Header)).NotTo(BeEmpty())
			Expect(delay.calls.Load()).To(BeEquivalentTo(1))
		})

		It("keeps the request id from the context", func() {
			var header string
			handler = func(w http.ResponseWriter, r *http.Request) {
				header = r.Header.Get(requestid.Header)
				_, _ = w.Write([]byte(`{"success":true,"data":{}}`))
			}

			ctx := requestid.ToContext(context.TODO(), "req-1")
			res := client.Do[payload](ctx, tr, client.Request{Method: http.MethodGet, Path: "/thing"})
			Expect(res.IsOk()).To(BeTrue())
			Expect(header).To(Equal("req-1"))
		})

		It("lets caller headers win over defaults", func() {
			var contentType string
			handler = func(w http.ResponseWriter, r *http.Request) {
				contentType = r.Header.Get("Content-Type")
				_, _ = w.Write([]byte(`{"success":true}`))
			}

			res := client.Do[payload](context.TODO(), tr, client.Request{
				Method: http.MethodPost,
				Path:   "/thing",
				Header: http.Header{"content-type": []string{"text/plain"}},
			})
			Expect(res.IsOk()).To(BeTrue())
			Expect(contentType).To(Equal("text/plain"))
		})

		It("returns the zero payload when data is absent", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"success":true}`))
			}

			res := client.Do[[]payload](context.TODO(), tr, client.Request{Method: http.MethodGet, Path: "/thing"})
			v, ok := res.Value()
			Expect(ok).To(BeTrue())
			Expect(v).To(BeNil())
		})
	})

	Context("failure", func() {
		It("returns the envelope error", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"success":false,"error":"Check not found"}`))
			}

			_, ok, msg := get()
			Expect(ok).To(BeFalse())
			Expect(msg).To(Equal("Check not found"))
			Expect(notifier.all()).To(BeEmpty())
		})

		It("falls back when the envelope error is empty", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"success":false}`))
			}

			_, ok, msg := get()
			Expect(ok).To(BeFalse())
			Expect(msg).To(Equal("Request failed"))
		})

		DescribeTable("takes the message of a non-2xx body",
			func(status int, body string, expected string) {
				handler = func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(status)
					_, _ = w.Write([]byte(body))
				}

				_, ok, msg := get()
				Expect(ok).To(BeFalse())
				Expect(msg).To(Equal(expected))
				Expect(notifier.all()).To(BeEmpty())
			},
			Entry("error key", http.StatusBadRequest, `{"error":"bad column"}`, "bad column"),
			Entry("message key", http.StatusConflict, `{"message":"duplicate"}`, "duplicate"),
			Entry("detail key", http.StatusUnprocessableEntity, `{"detail":"invalid id"}`, "invalid id"),
			Entry("error wins over detail", http.StatusBadRequest, `{"detail":"d","error":"e"}`, "e"),
			Entry("empty error skipped", http.StatusBadRequest, `{"error":"","message":"m"}`, "m"),
			Entry("non json body", http.StatusInternalServerError, `oops`, "Internal Server Error"),
			Entry("json without known keys", http.StatusNotFound, `{"code":404}`, "Not Found"),
		)

		It("notifies once on a malformed body", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			}

			_, ok, msg := get()
			Expect(ok).To(BeFalse())
			Expect(msg).To(ContainSubstring("decoding response"))
			Expect(notifier.all()).To(HaveLen(1))
			Expect(notifier.all()[0].Title).To(Equal("Network Error"))
		})

		It("notifies once when the server is unreachable", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {}
			srv.Close()

			_, ok, msg := get()
			Expect(ok).To(BeFalse())
			Expect(msg).NotTo(BeEmpty())
			notifications := notifier.all()
			Expect(notifications).To(HaveLen(1))
			Expect(notifications[0].Message).To(Equal(msg))
			Expect(notifications[0].Path).To(Equal("/thing"))
			Expect(notifications[0].RequestID).NotTo(BeEmpty())
		})

		It("fails without sending when the context is cancelled", func() {
			var called atomic.Bool
			handler = func(w http.ResponseWriter, r *http.Request) {
				called.Store(true)
			}
			ctx, cancel := context.WithCancel(context.TODO())
			cancel()

			res := client.Do[payload](ctx, tr, client.Request{Method: http.MethodGet, Path: "/thing"})
			Expect(res.IsOk()).To(BeFalse())
			Expect(res.Message()).To(Equal(context.Canceled.Error()))
			Expect(called.Load()).To(BeFalse())
		})
	})
})
