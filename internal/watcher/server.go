package watcher

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/data-validator/data-validator/pkg/log"
	"github.com/data-validator/data-validator/pkg/metrics"
	"github.com/data-validator/data-validator/pkg/middleware"
)

const gracefulShutdownTimeout = 5 * time.Second

// MetricServer serves /metrics and /healthz for a watcher.
type MetricServer struct {
	httpServer *http.Server
	listener   net.Listener
}

type healthResponse struct {
	APIHealthy bool    `json:"apiHealthy"`
	Checks     []State `json:"checks"`
}

func NewMetricServer(w *Watcher, listener net.Listener) (*MetricServer, error) {
	metricMiddleware, err := metrics.NewMiddleware("watcher")
	if err != nil {
		return nil, err
	}
	if err := metricMiddleware.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(
		metricMiddleware.Handler,
		middleware.RequestID,
		log.Logger(zap.L(), "metrics_server"),
	)
	router.Handle("/metrics", metrics.Handler())
	router.Get("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		resp := healthResponse{APIHealthy: w.Healthy(), Checks: w.States()}
		if !resp.APIHealthy {
			render.Status(r, http.StatusServiceUnavailable)
		}
		render.JSON(rw, r, resp)
	})

	return &MetricServer{
		listener:   listener,
		httpServer: &http.Server{Handler: router},
	}, nil
}

func (m *MetricServer) Handler() http.Handler {
	return m.httpServer.Handler
}

func (m *MetricServer) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		m.httpServer.SetKeepAlivesEnabled(false)
		_ = m.httpServer.Shutdown(ctxTimeout)
		zap.S().Named("metrics_server").Info("metrics server terminated")
	}()

	zap.S().Named("metrics_server").Infof("serving metrics: %s", m.listener.Addr().String())
	if err := m.httpServer.Serve(m.listener); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
