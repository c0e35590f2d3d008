package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"artifact-chat/internal/usecase"
)

// NewRouter exposes the same routes as Handle over net/http for running the
// backend outside Lambda.
func NewRouter(h *Handler) *mux.Router {
	middleware := []mux.MiddlewareFunc{h.correlationMiddleware, corsMiddleware, h.loggingMiddleware}

	r := mux.NewRouter()
	r.Use(middleware...)

	r.HandleFunc("/", h.serveIndex).Methods(http.MethodGet)
	r.HandleFunc("/chat", h.serveChat).Methods(http.MethodPost)
	r.HandleFunc("/", servePreflight).Methods(http.MethodOptions)
	r.HandleFunc("/chat", servePreflight).Methods(http.MethodOptions)

	// mux only applies r.Use to matched routes.
	r.NotFoundHandler = wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeResult(w, jsonError(http.StatusNotFound, errorNotFound))
	}), middleware)
	r.MethodNotAllowedHandler = wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeResult(w, jsonError(http.StatusMethodNotAllowed, errorMethodNotAllowed))
	}), middleware)
	return r
}

// wrap applies middleware in the same order as Router.Use.
func wrap(next http.Handler, middleware []mux.MiddlewareFunc) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		next = middleware[i](next)
	}
	return next
}

func servePreflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) serveIndex(w http.ResponseWriter, _ *http.Request) {
	writeResult(w, h.index())
}

func (h *Handler) serveChat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeResult(w, jsonError(status, string(usecase.ErrorInvalidInput)))
		return
	}
	writeResult(w, h.handleChat(r.Context(), body, w.Header().Get(correlationHeader)))
}

func writeResult(w http.ResponseWriter, res result) {
	if res.contentType != "" {
		w.Header().Set("Content-Type", res.contentType)
	}
	w.WriteHeader(res.status)
	_, _ = w.Write(res.body)
}

// correlationMiddleware echoes or assigns X-Correlation-Id before the route runs.
func (h *Handler) correlationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := correlationID(map[string]string{correlationHeader: r.Header.Get(correlationHeader)})
		w.Header().Set(correlationHeader, id)
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range corsHeaders() {
			w.Header().Set(k, v)
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		h.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Str("correlation_id", w.Header().Get(correlationHeader)).
			Msg("request completed")
	})
}
