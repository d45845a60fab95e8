package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/greymass/workutils/libraries/logger"
	"github.com/greymass/workutils/services/blocktimeproxy/internal/metrics"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// Logging writes one "http" line per request and records request metrics.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		route := routeLabel(r.URL.Path)
		metrics.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())

		logger.Printf("http", "%s %s %s - %d - %dms - %d bytes [%s]",
			GetRealIP(r),
			r.Method,
			r.URL.Path,
			rw.statusCode,
			duration.Milliseconds(),
			rw.bytes,
			GetCorrelationID(r),
		)
	})
}

// routeLabel keeps metric cardinality bounded by dropping path parameters.
func routeLabel(path string) string {
	if strings.HasPrefix(path, "/solana_blocktime/") {
		return "/solana_blocktime/{height}"
	}
	switch path {
	case "/health", "/openapi.json", "/openapi.yaml", "/docs", "/":
		return path
	}
	return "other"
}
