package amplitudetest

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Request is a request received by the fake.
type Request struct {
	ID         string
	Method     string
	Path       string
	Query      url.Values
	Header     http.Header
	Body       []byte
	ReceivedAt time.Time
}

// RecordMiddleware stores a copy of every request before it is handled.
func (h *Handler) RecordMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		h.mu.Lock()
		h.requests = append(h.requests, Request{
			ID:         uuid.NewString(),
			Method:     r.Method,
			Path:       r.URL.Path,
			Query:      r.URL.Query(),
			Header:     r.Header.Clone(),
			Body:       body,
			ReceivedAt: time.Now().UTC(),
		})
		h.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// FailureMiddleware answers with a failure queued by FailNext, if any.
func (h *Handler) FailureMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f, ok := h.nextFailure(r.URL.Path); ok {
			w.WriteHeader(f.status)
			w.Write([]byte(f.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// BasicAuthMiddleware checks the api key / secret key pair of dashboard requests.
func (h *Handler) BasicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || !h.validAPIKey(user) || (h.config.SecretKey != "" && pass != h.config.SecretKey) || pass == "" {
			w.Header().Set("WWW-Authenticate", `Basic realm="amplitude"`)
			respondError(w, http.StatusUnauthorized, "Invalid API key or secret key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs all requests
func (h *Handler) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Info("handled request")
	})
}

// RecoveryMiddleware recovers from panics
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				respondError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
