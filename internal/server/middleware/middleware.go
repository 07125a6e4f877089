// Package middleware provides HTTP middleware for request logging and per-request fault trapping.
package middleware

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/faultline/internal/foundation/errors"
	"git.home.luguber.info/inful/faultline/internal/logfields"
	"git.home.luguber.info/inful/faultline/internal/render"
	"git.home.luguber.info/inful/faultline/internal/scope"
	"git.home.luguber.info/inful/faultline/internal/trap"
)

// RequestIDHeader carries the request id in and out. An incoming value is
// reused for every fault of the request.
const RequestIDHeader = "X-Request-ID"

// Chain returns a middleware wrapper that applies logging and fault trapping around a handler.
func Chain(logger *slog.Logger, shared *scope.Shared, adapter *ferrors.HTTPErrorAdapter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return loggingMiddleware(logger, FaultTrap(shared, adapter, next))
	}
}

// loggingMiddleware logs method, path, status, duration, user agent, and remote addr.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start)
		logger.Info("HTTP request",
			logfields.Method(r.Method),
			logfields.Path(r.URL.Path),
			logfields.Status(wrapped.statusCode),
			slog.Duration("duration", duration),
			logfields.UserAgent(r.UserAgent()),
			logfields.RemoteAddr(r.RemoteAddr))
	})
}

// FaultTrap runs next inside a fresh fault scope. The response is buffered
// so a fatal fault can replace it; handlers raise recoverable faults with
// trap.Raise(r.Context(), ...).
func FaultTrap(shared *scope.Shared, adapter *ferrors.HTTPErrorAdapter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		probe := render.RequestProbe(r)
		sc, err := shared.New(scope.Options{
			Name:      "request",
			Out:       &body,
			Probe:     probe,
			Halter:    trap.PanicHalter{},
			RequestID: r.Header.Get(RequestIDHeader),
		})
		if err != nil {
			adapter.WriteErrorResponse(w, r, err)
			return
		}
		w.Header().Set(RequestIDHeader, sc.RequestID)
		sc.Buffers.Push()
		sc.Panel.AddMetric("request", func() any { return r.Method + " " + r.URL.Path })

		bw := &bufferedWriter{header: w.Header(), out: sc.Buffers, status: http.StatusOK}
		req := r.WithContext(sc.Context(r.Context()))

		halted := errors.Is(sc.Run(func() { next.ServeHTTP(bw, req) }), trap.ErrHalted)
		halted = errors.Is(sc.Close(), trap.ErrHalted) || halted

		status := bw.status
		if halted {
			status = http.StatusInternalServerError
			w.Header().Del("Content-Length")
			if probe.Interactive() {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
			} else {
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			}
		}
		if sc.ShowPanel() && probe.Interactive() && isHTML(w.Header()) {
			if err := sc.Panel.Render(sc.Buffers); err != nil {
				slog.Warn("Debug panel render failed", logfields.Error(err))
			}
		}
		if err := sc.Buffers.Flush(); err != nil {
			slog.Error("Response buffer flush failed", logfields.Error(err))
		}
		if !halted && bw.header.Get("Content-Length") != "" {
			w.Header().Set("Content-Length", strconv.Itoa(body.Len()))
		}
		w.WriteHeader(status)
		_, _ = w.Write(body.Bytes())
	})
}

func isHTML(h http.Header) bool {
	ct := h.Get("Content-Type")
	return ct == "" || strings.HasPrefix(ct, "text/html")
}

// bufferedWriter collects a handler's output in the scope's buffer stack.
type bufferedWriter struct {
	header      http.Header
	out         *render.BufferStack
	status      int
	wroteHeader bool
}

func (b *bufferedWriter) Header() http.Header { return b.header }

func (b *bufferedWriter) WriteHeader(code int) {
	if b.wroteHeader {
		return
	}
	b.status = code
	b.wroteHeader = true
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.wroteHeader = true
	return b.out.Write(p)
}

// responseWriter captures status codes for logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
