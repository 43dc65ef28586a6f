package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/pkg/metrics"
	"github.com/data-validator/data-validator/pkg/requestid"
	"github.com/data-validator/data-validator/pkg/result"
)

const (
	defaultTimeout = 30 * time.Second

	networkErrorTitle  = "Network Error"
	requestFailedError = "Request failed"
)

// Transport sends requests relative to the API base URL and turns every
// outcome into a result.Result.
type Transport struct {
	baseURL    string
	httpClient *http.Client
	headers    http.Header
	token      string
	delay      DelayPolicy
	notify     Notifier
}

type Option func(t *Transport)

func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) {
		t.httpClient = c
	}
}

func WithDelayPolicy(p DelayPolicy) Option {
	return func(t *Transport) {
		if p == nil {
			p = NoDelay{}
		}
		t.delay = p
	}
}

func WithNotifier(n Notifier) Option {
	return func(t *Transport) {
		if n == nil {
			n = nopNotifier
		}
		t.notify = n
	}
}

func WithToken(token string) Option {
	return func(t *Transport) {
		t.token = token
	}
}

func WithHeader(key, value string) Option {
	return func(t *Transport) {
		t.headers.Set(key, value)
	}
}

func NewTransport(baseURL string, opts ...Option) *Transport {
	t := &Transport{
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: http.Header{
			"Content-Type": []string{"application/json"},
			"Accept":       []string{"application/json"},
		},
		delay:  NoDelay{},
		notify: nopNotifier,
	}
	for _, o := range opts {
		o(t)
	}
	if t.httpClient == nil {
		t.httpClient = newHTTPClient(defaultTimeout)
	}
	return t
}

// newHTTPClient returns a client with a cookie jar so session cookies set by
// the API are sent back on later calls.
func newHTTPClient(timeout time.Duration) *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{Timeout: timeout, Jar: jar}
}

func (t *Transport) BaseURL() string {
	return t.baseURL
}

// Request describes one API call. Path is relative to the base URL and must
// already be escaped. Route is the metrics label, Path when empty.
type Request struct {
	Method string
	Path   string
	Route  string
	Header http.Header
	Body   io.Reader
	// JSON is marshalled as the body when Body is nil.
	JSON any
}

func (r Request) route() string {
	if r.Route != "" {
		return r.Route
	}
	return r.Path
}

type exchange struct {
	statusCode int
	status     string
	body       []byte
}

func (e *exchange) ok() bool {
	return e.statusCode >= 200 && e.statusCode < 300
}

// Do performs req and decodes the response envelope payload into T.
func Do[T any](ctx context.Context, t *Transport, req Request) result.Result[T] {
	ctx, _ = requestid.Ensure(ctx)
	ex, err := t.exchange(ctx, req)
	if err != nil {
		return result.Fail[T](t.networkFailure(ctx, req, err))
	}
	if !ex.ok() {
		return result.Fail[T](errorMessage(ex))
	}
	return decodeEnvelope[T](ctx, t, req, ex.body)
}

func decodeEnvelope[T any](ctx context.Context, t *Transport, req Request, body []byte) result.Result[T] {
	var env api.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return result.Fail[T](t.networkFailure(ctx, req, fmt.Errorf("decoding response: %w", err)))
	}
	if !env.Success {
		if env.Error == "" {
			return result.Fail[T](requestFailedError)
		}
		return result.Fail[T](env.Error)
	}

	var payload T
	if env.HasData() {
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return result.Fail[T](t.networkFailure(ctx, req, fmt.Errorf("decoding response data: %w", err)))
		}
	}
	return result.Ok(payload)
}

// exchange sends req and reads the whole body. The returned error is only
// set when no HTTP response could be read.
func (t *Transport) exchange(ctx context.Context, req Request) (*exchange, error) {
	ctx, reqID := requestid.Ensure(ctx)

	if err := t.delay.Wait(ctx); err != nil {
		return nil, err
	}

	body := req.Body
	if body == nil && req.JSON != nil {
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, t.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range t.headers {
		httpReq.Header[k] = append([]string(nil), v...)
	}
	for k, v := range req.Header {
		httpReq.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), v...)
	}
	httpReq.Header.Set(requestid.Header, reqID)
	if t.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.token)
	}

	start := time.Now()
	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		metrics.ObserveClientRequest(req.Method, req.route(), metrics.NetworkErrorCode, time.Since(start).Seconds())
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	latency := time.Since(start)
	metrics.ObserveClientRequest(req.Method, req.route(), strconv.Itoa(resp.StatusCode), latency.Seconds())
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	zap.S().Named("client").Debugw("request completed",
		"request_id", reqID,
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"latency", latency,
	)

	return &exchange{statusCode: resp.StatusCode, status: resp.Status, body: data}, nil
}

// networkFailure notifies the user about err and returns the envelope
// message for it.
func (t *Transport) networkFailure(ctx context.Context, req Request, err error) string {
	msg := err.Error()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			msg = ctxErr.Error()
		}
	}

	zap.S().Named("client").Warnw("request failed", "method", req.Method, "path", req.Path, "error", msg)
	t.notify(ctx, Notification{
		Title:     networkErrorTitle,
		Message:   msg,
		Method:    req.Method,
		Path:      req.Path,
		RequestID: requestid.FromContext(ctx),
	})
	return msg
}

// errorMessage extracts the message of a non-2xx response: the first of
// "error", "message" or "detail" in a JSON body, else the status text.
func errorMessage(ex *exchange) string {
	var body map[string]any
	if err := json.Unmarshal(ex.body, &body); err == nil {
		for _, key := range []string{"error", "message", "detail"} {
			if s, ok := body[key].(string); ok && s != "" {
				return s
			}
		}
	}
	if text := http.StatusText(ex.statusCode); text != "" {
		return text
	}
	if ex.status != "" {
		return ex.status
	}
	return fmt.Sprintf("HTTP %d", ex.statusCode)
}
