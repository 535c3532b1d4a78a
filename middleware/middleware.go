package middleware

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/nijaru/yt-search/errors"
	"github.com/nijaru/yt-search/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type contextKey string

const loggerKey contextKey = "logger"

const RequestIDHeader = "X-Request-ID"

// Chain wraps h so that the first middleware listed runs first.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}

// statusRecorder remembers what the handler sent so it can be logged.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
	sent    bool
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.sent {
		return
	}
	rec.status, rec.sent = code, true
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if !rec.sent {
		rec.WriteHeader(http.StatusOK)
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.written += int64(n)
	return n, err
}

// LoggingMiddleware tags each request with an ID, logs its outcome and
// turns handler panics into 500 responses. Search requests also carry their
// query in every log line.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		begin := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		fields := logrus.Fields{"request_id": id, "method": r.Method, "path": r.URL.Path, "client": r.RemoteAddr}
		if q := r.URL.Query().Get("q"); q != "" {
			fields["query"] = q
		}
		entry := logrus.WithFields(fields)
		r = r.WithContext(context.WithValue(r.Context(), loggerKey, entry))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if p := recover(); p != nil {
				err := apperrors.Internal("LoggingMiddleware", fmt.Errorf("%v", p), "panic recovered")
				entry.WithError(err).WithField("stack", string(debug.Stack())).Error("Panic in handler")
				if !rec.sent {
					utils.HandleError(rec, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}

			done := entry.WithFields(logrus.Fields{"status": rec.status, "took": time.Since(begin), "bytes": rec.written})
			switch {
			case rec.status >= http.StatusInternalServerError:
				done.Error("Request failed")
			case rec.status >= http.StatusBadRequest:
				done.Warn("Request rejected")
			default:
				done.Info("Request served")
			}
		}()

		next.ServeHTTP(rec, r)
	})
}

// GetLogger returns the request-scoped logger, or the standard logger
// outside of LoggingMiddleware.
func GetLogger(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(loggerKey).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// RateLimit rejects requests beyond limit per interval with 429.
func RateLimit(limit int, interval time.Duration) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Every(interval), limit)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				utils.HandleError(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Timeout bounds the request context.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
