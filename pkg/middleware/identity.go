package middleware

import (
	"net/http"

	"cinema-reservation/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	customerIDHeader = "X-Customer-ID"
	roleHeader       = "X-Customer-Role"
)

// Identity reads the customer identity injected by the upstream gateway.
// Authentication itself happens there; this service only attributes requests.
func Identity(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			customerIDStr := r.Header.Get(customerIDHeader)
			if customerIDStr == "" {
				utils.ResponseUnauthorized(w, "Missing customer identity")
				return
			}

			customerID, err := uuid.Parse(customerIDStr)
			if err != nil {
				logger.Warn("Malformed customer identity header",
					zap.String("customer_id", customerIDStr),
					zap.String("path", r.URL.Path),
				)
				utils.ResponseUnauthorized(w, "Invalid customer identity")
				return
			}

			role := r.Header.Get(roleHeader)
			if role == "" {
				role = "customer"
			}

			ctx := utils.SetCustomerContext(r.Context(), customerID, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Admin requires the gateway-asserted role to be admin. Runs after Identity.
func Admin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			customerID, ok := utils.GetCustomerIDFromContext(r.Context())
			if !ok {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}

			role, _ := utils.GetRoleFromContext(r.Context())
			if role != "admin" {
				logger.Warn("Non-admin access attempt",
					zap.String("customer_id", customerID.String()),
					zap.String("path", r.URL.Path),
				)
				utils.ResponseForbidden(w, "Admin access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
