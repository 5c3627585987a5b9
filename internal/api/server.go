// Package api exposes the monitor to presentation clients over HTTP: the
// latest evaluation result, the buffered window as CSV, the runtime tuning
// surface, and stored port configurations.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/orangelab/pulsemon/internal/db"
	"github.com/orangelab/pulsemon/internal/monitoring"
	"github.com/orangelab/pulsemon/internal/pulse"
	"github.com/orangelab/pulsemon/internal/serialmux"
)

// ANSI escape codes for request log colouring
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

type Server struct {
	monitor *pulse.Monitor
	db      *db.DB
	// portInfo describes the active transport for the status endpoint.
	portInfo string
	// listPorts is swappable for tests; defaults to serialmux.ListPorts.
	listPorts func() ([]string, error)
}

// NewServer creates an API server around the monitor pipeline. The database
// may be nil, in which case port configs are unavailable and tuning changes
// are not persisted.
func NewServer(monitor *pulse.Monitor, database *db.DB, portInfo string) *Server {
	return &Server{
		monitor:   monitor,
		db:        database,
		portInfo:  portInfo,
		listPorts: serialmux.ListPorts,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/result", s.showResult)
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/raw", s.showRawTail)
	mux.HandleFunc("/api/export", s.exportWindow)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/clear", s.clearWindow)
	mux.HandleFunc("/api/ports", s.handlePortConfigs)
	mux.HandleFunc("/api/ports/available", s.showAvailablePorts)
	return mux
}
