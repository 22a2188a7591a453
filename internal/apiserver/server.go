package apiserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"RedisVSCode-Webview/internal/connection"
	"RedisVSCode-Webview/internal/logger"
	"RedisVSCode-Webview/internal/metrics"
	"RedisVSCode-Webview/internal/redis"
)

// Options configures the keys API server
type Options struct {
	// Databases maps a database id to its Redis connection
	Databases   map[string]connection.ConnectionConfig
	CORSOrigins []string
	// MaxResults caps the keys visited by one scan request; 0 disables it
	MaxResults int64
	Metrics    *metrics.Metrics
	NewClient  func() redis.Client
}

// Server serves the keys endpoints of the browser API on top of Redis
type Server struct {
	router  *mux.Router
	cors    *cors.Cors
	opts    Options
	clients *clientCache
	memo    *scanMemo
}

func NewServer(opts Options) *Server {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s := &Server{
		router: mux.NewRouter(),
		cors: cors.New(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Accept", "Origin", "X-Requested-With"},
		}),
		opts:    opts,
		clients: newClientCache(opts.NewClient),
		memo:    newScanMemo(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	if s.opts.Metrics != nil {
		s.router.Use(s.metricsMiddleware)
		s.router.Handle("/metrics", s.opts.Metrics.Handler()).Methods(http.MethodGet)
	}
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	db := s.router.PathPrefix("/databases/{id}").Subrouter()
	db.HandleFunc("/keys", s.handleGetKeys).Methods(http.MethodPost)
	db.HandleFunc("/keys", s.handleDeleteKeys).Methods(http.MethodDelete)
	db.HandleFunc("/keys/get-metadata", s.handleGetKeysMetadata).Methods(http.MethodPost)
}

// Handler is the router wrapped with CORS
func (s *Server) Handler() http.Handler {
	return s.cors.Handler(s.router)
}

// Start serves on addr until ctx is done, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Keys API 服务启动：%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	logger.Infof("Keys API 服务已停止：%s", addr)
	return err
}

// Close drops every cached Redis connection
func (s *Server) Close() {
	s.clients.closeAll()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}

		s.opts.Metrics.ActiveRequests.Inc()
		defer s.opts.Metrics.ActiveRequests.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.opts.Metrics.ObserveHTTP(r.Method, path, rec.status, time.Since(started))
	})
}
