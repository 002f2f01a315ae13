package gateway

import (
	"context"
	"net/http"
	"time"
)

const requestTimeout = time.Minute

// RegisterMiddleware bounds the request context of every endpoint but the bridge one and logs
// served requests.
func (h *Handler) RegisterMiddleware(srv *Server) {
	srv.RegisterMiddleware(logRequest, boundRequest)
}

// boundRequest cancels the request context after requestTimeout. The bridge websocket lives as
// long as the shell stays connected and is left alone.
func boundRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == bridgeEndpoint {
			next.ServeHTTP(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// logRequest logs method, path, status and duration of served requests. The bridge endpoint is
// skipped as the websocket upgrade needs the unwrapped writer.
func logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == bridgeEndpoint {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debugw("served request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"took", time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
