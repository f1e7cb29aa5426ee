package api

import (
	"bufio"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicehooks_http_requests_total",
		Help: "HTTP requests by route group and status code",
	}, []string{"route", "code"})

	metricLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voicehooks_http_request_seconds",
		Help:    "HTTP request latency by route group",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE working through the middleware.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack is required for the websocket upgrade.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	return hj.Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// routeGroup collapses ids so the label set stays bounded.
func routeGroup(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/hooks/"):
		return "/api/hooks/{name}"
	case path == "/api/utterances/status":
		return path
	case strings.HasPrefix(path, "/api/utterances/"):
		return "/api/utterances/{id}"
	case strings.HasPrefix(path, "/api/"), path == "/healthz", path == "/metrics":
		return path
	}
	return "static"
}

func LogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := routeGroup(r.URL.Path)
		metricRequests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		metricLatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
		log.Printf("[http] %s %s %d %s", r.Method, r.URL.Path, rec.code, time.Since(start))
	})
}
