package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/MuhamedUsman/imgdrop/internal/domain"
	"github.com/rs/cors"
)

func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				w.Header().Set("Connection", "close")
				s.serverErrorResponse(w, r, domain.MsgInternal, fmt.Errorf("%v", err))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// statusRecorder remembers the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"latency", time.Since(start),
			"origin", r.Header.Get("Origin"),
			"remote", r.RemoteAddr,
		)
	})
}

// filterOrigin lets through requests without an Origin header and those whose
// origin exactly matches an allowed one, everything else is rejected.
func (s *Server) filterOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		slog.Debug("origin", "origin", origin)
		if origin != "" && !slices.Contains(s.cfg.Server.AllowedOrigins, origin) {
			slog.Warn("origin not allowed", "origin", origin, "path", r.URL.Path)
			s.corsRejectedResponse(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// newCORS sets the CORS response headers for origins that passed filterOrigin.
func newCORS(allowedOrigins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPut,
			http.MethodPatch,
			http.MethodPost,
			http.MethodDelete,
		},
		AllowedHeaders:       []string{"*"},
		OptionsSuccessStatus: http.StatusOK,
	})
}
