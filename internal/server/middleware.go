package server

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/visionctl/internal/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// instrument records every request in metrics and logs it at debug.
func instrument(next http.Handler, m *metrics.Metrics, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		d := time.Since(start)
		route := routeLabel(r.URL.Path)
		m.RecordHTTPRequest(r.Method, route, rec.status, d)
		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", d).
			Msg("request")
	})
}

// routeLabel collapses paths with names in them so metric labels stay bounded.
func routeLabel(path string) string {
	switch {
	case path == "/api/health", path == "/metrics", path == "/ws/gestures",
		path == "/api/gestures", path == "/api/train-gesture", path == "/api/combos",
		path == "/api/actions":
		return path
	case strings.HasPrefix(path, "/api/gestures/"):
		return "/api/gestures/{name}"
	case strings.HasPrefix(path, "/api/actions/"):
		return "/api/actions/{gesture}/trigger"
	case strings.HasPrefix(path, "/api/"):
		return "/api/other"
	default:
		return "static"
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
