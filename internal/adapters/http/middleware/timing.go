package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"ellarises/internal/adapters/http/perf"
)

// DefaultSlowRequestMs is the slow-request threshold when none is configured.
const DefaultSlowRequestMs = 250

// RequestIDHeader carries the request id back to the client.
const RequestIDHeader = "X-Request-ID"

const requestIDKey contextKey = "request_id"

// RequestID returns the id the timing middleware gave the request, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// statusWriter records the status code written through it.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// Timing tags each request with a uuid, logs its duration, and records it to
// collector when one is given. Requests at or above slowMs log at WARN, the
// rest at DEBUG. Static assets are not timed.
func Timing(collector *perf.Collector, slowMs int) func(http.Handler) http.Handler {
	if slowMs <= 0 {
		slowMs = DefaultSlowRequestMs
	}
	threshold := float64(slowMs)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/static/") {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			reqID := uuid.NewString()
			w.Header().Set(RequestIDHeader, reqID)
			r = r.WithContext(context.WithValue(r.Context(), requestIDKey, reqID))
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				durationMs := float64(time.Since(start).Microseconds()) / 1000.0
				route := RouteLabel(r.URL.Path)
				attrs := []any{
					"request_id", reqID,
					"method", r.Method,
					"route", route,
					"status", sw.status,
					"duration_ms", durationMs,
				}
				if durationMs >= threshold {
					slog.Warn("slow_request", attrs...)
				} else {
					slog.Debug("request", attrs...)
				}
				collector.Record(perf.Entry{
					Kind:       perf.KindRequest,
					Path:       r.Method + " " + route,
					StatusCode: sw.status,
					DurationMs: durationMs,
					Timestamp:  start,
				})
			}()

			next.ServeHTTP(sw, r)
		})
	}
}

// RouteLabel replaces numeric path segments with {id} so that
// /editPart/12 and /editPart/13 aggregate together.
func RouteLabel(path string) string {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		if s != "" && strings.Trim(s, "0123456789") == "" {
			segs[i] = "{id}"
		}
	}
	return strings.Join(segs, "/")
}
