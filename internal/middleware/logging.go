package middleware

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// StatusRecorder captures the status code written by the wrapped handler.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

// NewStatusRecorder wraps w with a default status of 200.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
}

func (r *StatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs one line per request. It sits outside Authenticate, so
// handlers log the acting user themselves.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := NewStatusRecorder(w)

		next.ServeHTTP(rec, r)

		fields := log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.Status,
			"duration": time.Since(start).String(),
			"client":   remoteIP(r.RemoteAddr),
		}

		entry := log.WithFields(fields)
		switch {
		case rec.Status >= 500:
			entry.Error("Request failed")
		case rec.Status >= 400:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request handled")
		}
	})
}
