package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"submissionportal/pkg/logging"
)

const pingTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHandler answers GET /health with 200 while the database answers pings
// and 503 otherwise.
func NewHandler(db Pinger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		status, code := "ok", http.StatusOK
		if err := db.Ping(ctx); err != nil {
			if logger, ok := logging.GetFromContext(r.Context()); ok {
				logger.Warn(r.Context(), "health check failed", zap.Error(err))
			}
			status, code = "unavailable", http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		resp, _ := json.Marshal(map[string]string{"status": status})
		w.Write(resp)
	})
}

// NewGRPCServer returns a gRPC server exposing grpc.health.v1.Health and the
// health server backing it.
func NewGRPCServer(logger *logging.Logger) (*grpc.Server, *health.Server) {
	server := grpc.NewServer(
		grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(
			logging.NewUnaryLoggingInterceptor(logger),
		)),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)
	return server, healthServer
}

// Watch pings db every interval and mirrors the result into the overall
// serving status until ctx is done.
func Watch(ctx context.Context, db Pinger, healthServer *health.Server, interval time.Duration) {
	update := func() {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := db.Ping(pingCtx); err != nil {
			healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
			return
		}
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	}

	update()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			healthServer.Shutdown()
			return
		case <-ticker.C:
			update()
		}
	}
}
