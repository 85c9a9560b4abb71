package middleware

import (
	"context"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"submissionportal/pkg/ctxdata"
	"submissionportal/pkg/logging"
)

// NewLoggingMiddleware tags the request with a trace id, puts the logger in
// its context and logs one line per request through chi's RequestLogger.
func NewLoggingMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	requestLogger := chimw.RequestLogger(&zapLogFormatter{logger: logger})

	return func(next http.Handler) http.Handler {
		logged := requestLogger(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID, err := uuid.NewV7()
			if err != nil {
				traceID = uuid.New()
			}

			ctx := logging.ContextWithLogger(r.Context(), logger)
			ctx = ctxdata.WithTraceID(ctx, traceID.String())
			w.Header().Set("X-Trace-Id", traceID.String())

			logged.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type zapLogFormatter struct {
	logger *logging.Logger
}

func (f *zapLogFormatter) NewLogEntry(r *http.Request) chimw.LogEntry {
	return &zapLogEntry{
		logger: f.logger,
		ctx:    r.Context(),
		method: r.Method,
		path:   r.URL.Path,
	}
}

type zapLogEntry struct {
	logger *logging.Logger
	ctx    context.Context
	method string
	path   string
}

func (e *zapLogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	if status == 0 {
		status = http.StatusOK
	}
	e.logger.Info(e.ctx, "request completed",
		zap.String("method", e.method),
		zap.String("path", e.path),
		zap.Int("status", status),
		zap.Int("bytes", bytes),
		zap.Duration("duration", elapsed),
	)
}

func (e *zapLogEntry) Panic(v interface{}, stack []byte) {
	e.logger.Error(e.ctx, "panic while handling request",
		zap.Any("panic", v),
		zap.String("path", e.path),
		zap.ByteString("stack", stack),
	)
}
