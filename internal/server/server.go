// Package server exposes the dashboard over HTTP: the HTML page, a JSON API
// mirroring the pipeline outputs, CSV download and chart images.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/patrickmn/go-cache"
	"github.com/rs/cors"

	"github.com/go-ports/poimap/internal/session"
)

const (
	readTimeout       = 15 * time.Second
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Server serves one Session.
type Server struct {
	sess    *session.Session
	charts  *cache.Cache
	handler http.Handler
}

// New builds the router for sess using sess.Config.Server and sess.Config.Dashboard.
func New(sess *session.Session) *Server {
	ttl := time.Duration(sess.Config.Dashboard.ChartCacheTTL)
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	s := &Server{
		sess:   sess,
		charts: cache.New(ttl, 2*ttl),
	}

	r := mux.NewRouter()
	r.Handle("/", methods{http.MethodGet: s.handlePage})

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Handle("/health", methods{http.MethodGet: s.handleHealth})
	api.Handle("/options", methods{http.MethodGet: s.handleOptions})
	api.Handle("/selection", methods{http.MethodGet: s.handleSelection})
	api.Handle("/selection/geojson", methods{http.MethodGet: s.handleGeoJSON})
	api.Handle("/export.csv", methods{http.MethodGet: s.handleExportCSV})
	api.Handle("/export", methods{http.MethodPost: s.handlePublish})
	api.Handle("/counts/{attr}", methods{http.MethodGet: s.handleCounts})
	api.Handle("/charts/{name:[a-z-]+}.{format:[a-z]+}", methods{http.MethodGet: s.handleChart})
	api.Handle("/refresh", methods{http.MethodPost: s.handleRefresh})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	c := cors.New(cors.Options{
		AllowedOrigins: sess.Config.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Origin"},
		ExposedHeaders: []string{"Content-Disposition", "Content-Length", "Content-Type"},
		MaxAge:         86400,
	})
	s.handler = c.Handler(recoveryMiddleware(loggingMiddleware(r)))
	return s
}

// methods dispatches one path on the request method. Every other method gets
// a JSON 405 with an Allow header.
type methods map[string]http.HandlerFunc

func (m methods) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h, ok := m[r.Method]; ok {
		h(w, r)
		return
	}
	allowed := make([]string, 0, len(m))
	for method := range m {
		allowed = append(allowed, method)
	}
	sort.Strings(allowed)
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.sess.Config.Server.Addr)
	if err != nil {
		return fmt.Errorf("server.Run: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    1 << 20,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("dashboard listening", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server.Serve: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down dashboard")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server.Serve shutdown: %w", err)
	}
	return nil
}
