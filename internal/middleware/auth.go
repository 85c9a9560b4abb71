package middleware

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"submissionportal/internal/authorization"
	"submissionportal/internal/errdefs"
	"submissionportal/pkg/ctxdata"
	"submissionportal/pkg/logging"
)

type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

// NewAuthMiddleware rejects the request with 401 unless it carries a valid
// bearer token. Nothing downstream runs and no account lookup happens on
// rejection.
func NewAuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, err := authorization.ParseBearer(r.Header.Get("Authorization"))
			if err != nil {
				if logger, ok := logging.GetFromContext(ctx); ok {
					logger.Info(ctx, "no authorization header", zap.String("path", r.URL.Path))
				}
				writeErrorJSON(w, http.StatusUnauthorized, "authentication required")
				return
			}

			accountID, err := verifier.Verify(token)
			if err != nil {
				if logger, ok := logging.GetFromContext(ctx); ok {
					logger.Info(ctx, "token rejected", zap.String("path", r.URL.Path), zap.Error(err))
				}
				message := "invalid token"
				if errors.Is(err, errdefs.ErrExpiredToken) {
					message = "token expired"
				}
				writeErrorJSON(w, http.StatusUnauthorized, message)
				return
			}

			ctx = ctxdata.WithAccountID(ctx, accountID.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
