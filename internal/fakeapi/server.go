// Package fakeapi serves the data-validator REST API on top of a store.Store,
// in memory by default. It backs the client tests and `dvctl dev-server`.
package fakeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"
	"go.uber.org/zap"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/auth"
	"github.com/data-validator/data-validator/internal/store"
	"github.com/data-validator/data-validator/internal/util"
	"github.com/data-validator/data-validator/internal/validator"
	"github.com/data-validator/data-validator/pkg/log"
	"github.com/data-validator/data-validator/pkg/middleware"
)

const (
	gracefulShutdownTimeout = 5 * time.Second

	// APIPrefix is stripped before routing so "/api/x" and "/x" both work.
	APIPrefix = "/api"
)

type Server struct {
	store       store.Store
	seed        []api.PostgresConnection
	validator   *validator.Validator
	auth        auth.Authenticator
	runDelay    time.Duration
	ackResultID bool
	now         func() time.Time

	mu      sync.Mutex
	pending map[*time.Timer]struct{}
	closed  bool

	router http.Handler
}

type Option func(s *Server)

// WithRunDelay delays the creation of a result after a run is triggered.
func WithRunDelay(d time.Duration) Option {
	return func(s *Server) {
		s.runDelay = d
	}
}

// WithResultIDInAck makes run acknowledgements carry the id of the result
// that will be created.
func WithResultIDInAck() Option {
	return func(s *Server) {
		s.ackResultID = true
	}
}

// WithConnections seeds the PostgreSQL connections. The API has no endpoint
// to register them. Connections already in the store are kept.
func WithConnections(conns ...api.PostgresConnection) Option {
	return func(s *Server) {
		s.seed = append(s.seed, conns...)
	}
}

// WithStore replaces the in-memory store. The caller owns s and closes it.
func WithStore(st store.Store) Option {
	return func(s *Server) {
		s.store = st
	}
}

// WithAuthenticator guards every route but /health.
func WithAuthenticator(a auth.Authenticator) Option {
	return func(s *Server) {
		s.auth = a
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

func New(opts ...Option) (*Server, error) {
	s := &Server{
		store:     store.NewMemoryStore(),
		validator: validator.NewCheckValidator(),
		auth:      auth.NewNoneAuthenticator(),
		now:       time.Now,
		pending:   make(map[*time.Timer]struct{}),
	}
	for _, o := range opts {
		o(s)
	}

	for _, c := range s.seed {
		err := s.store.Connection().Create(context.Background(), c)
		if err != nil && !errors.Is(err, store.ErrDuplicateKey) {
			return nil, fmt.Errorf("failed to seed connection %s: %w", c.Id, err)
		}
	}

	swagger, err := api.GetSwagger()
	if err != nil {
		return nil, fmt.Errorf("failed to load swagger spec: %w", err)
	}
	// Skip server name validation
	swagger.Servers = nil

	oapiOpts := oapimiddleware.Options{
		ErrorHandler: oapiErrorHandler,
	}

	router := chi.NewRouter()
	router.Use(
		cors.Handler(cors.Options{
			AllowedOrigins:   []string{"https://*", "http://*"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			ExposedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.RequestID,
		log.Logger(zap.L(), "fake_api"),
		chiMiddleware.Recoverer,
		util.StripPrefix(APIPrefix),
		oapimiddleware.OapiRequestValidatorWithOptions(swagger, &oapiOpts),
	)

	router.Get("/health", s.health)
	router.Group(func(router chi.Router) {
		router.Use(s.auth.Authenticator)
		router.Route("/datasets/csv", func(r chi.Router) {
			r.Get("/", s.listDatasets)
			r.Post("/upload", s.uploadDataset)
			r.Get("/{id}", s.getDataset)
			r.Post("/{id}/analyze", s.analyzeDataset)
		})
		router.Get("/postgres/connections", s.listConnections)
		router.Route("/validation", func(r chi.Router) {
			r.Get("/checks", s.listChecks)
			r.Post("/checks", s.createCheck)
			r.Post("/run/{checkId}", s.runCheck)
			r.Get("/results", s.listResults)
		})
	})

	s.router = router
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on listener until ctx is cancelled.
func (s *Server) Run(ctx context.Context, listener net.Listener) error {
	srv := http.Server{Handler: s}

	go func() {
		<-ctx.Done()
		zap.S().Named("fake_api").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		s.Close()
		zap.S().Named("fake_api").Info("fake api terminated")
	}()

	zap.S().Named("fake_api").Infof("Listening on %s...", listener.Addr().String())
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Close cancels the runs whose result has not been recorded yet.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for t := range s.pending {
		t.Stop()
	}
	clear(s.pending)
}

// schedule calls fn after the run delay unless the server is closed.
func (s *Server) schedule(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(s.runDelay, func() {
		s.mu.Lock()
		delete(s.pending, t)
		s.mu.Unlock()
		fn()
	})
	s.pending[t] = struct{}{}
}

func oapiErrorHandler(w http.ResponseWriter, message string, statusCode int) {
	writeDetail(w, statusCode, fmt.Sprintf("API Error: %s", message))
}

func writeStoreError(w http.ResponseWriter, err error) {
	zap.S().Named("fake_api").Errorw("store operation failed", "error", err)
	writeDetail(w, http.StatusInternalServerError, err.Error())
}

func writeDetail(w http.ResponseWriter, statusCode int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
