package adminapi

import (
	"net/http"
	"time"
)

// recoverMiddleware logs and converts a panic in a handler into a 500
// instead of taking down the HTTP server, mirroring the teacher pack's
// reverse-proxy panic guard.
func (h *Handler) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				h.logger.Error("adminapi: recovered from panic", "recover", v, "path", r.URL.Path)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Info("adminapi: handled request",
			"method", r.Method, "path", r.URL.Path, "latency", time.Since(start))
	})
}
