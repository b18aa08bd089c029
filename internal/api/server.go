// Package api exposes the broker over HTTP: task submission, credential
// directory management, and device search.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/netgate-io/netgate/internal/broker/directory"
	"github.com/netgate-io/netgate/internal/broker/registry"
	"github.com/netgate-io/netgate/internal/serializer"
)

// Submitter forwards a serialized task to a channel and blocks for the reply.
type Submitter interface {
	Submit(channel, taskID string, payload []byte) ([]byte, error)
}

type Server struct {
	router     chi.Router
	dir        *directory.Directory
	reg        *registry.Registry
	dispatcher Submitter
}

func New(dir *directory.Directory, reg *registry.Registry, dispatcher Submitter) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		dir:        dir,
		reg:        reg,
		dispatcher: dispatcher,
	}

	s.router.Use(requestLogger)
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/sync/{category}", s.handleSync)
		r.Post("/sync/{category}", s.handleSync)

		r.Get("/credential", s.handleCredentialList)
		r.Get("/credential/{id}", s.handleCredentialGet)
		r.Post("/credential", s.handleCredentialUpsert)
		r.Put("/credential", s.handleCredentialUpsert)
		r.Delete("/credential", s.handleCredentialDeleteAll)
		r.Delete("/credential/{id}", s.handleCredentialDelete)

		r.Get("/credential_common", s.handleCommonGet)
		r.Put("/credential_common", s.handleCommonPut)

		r.Get("/device/{query}", s.handleDeviceSearch)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe runs the HTTP server until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, address, port string) error {
	srv := &http.Server{
		Addr:    net.JoinHostPort(address, port),
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http shutdown", "error", err)
		}
	}()

	slog.Info("http api listening", "address", srv.Addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requestLogger logs one line per request. X-Real-IP wins over the socket
// peer when a reverse proxy fronts the broker.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		caller := r.Header.Get("X-Real-IP")
		if caller == "" {
			caller, _, _ = net.SplitHostPort(r.RemoteAddr)
		}
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"caller", caller,
			"duration", time.Since(start),
		)
	})
}

// urlParam returns a path parameter with percent-escapes decoded; chi hands
// the raw segment through when the request path was escaped.
func urlParam(r *http.Request, key string) string {
	value := chi.URLParam(r, key)
	if decoded, err := url.PathUnescape(value); err == nil {
		return decoded
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := serializer.JSON.Marshal(body)
	if err != nil {
		slog.Error("marshaling response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// writeRaw relays a worker reply verbatim, trusting the worker to have
// produced valid JSON.
func writeRaw(w http.ResponseWriter, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"status":  "error",
		"message": message,
	})
}
