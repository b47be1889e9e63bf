package controllers

import (
	"net/http"

	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// HealthCheck returns a simple health status for monitoring.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// CSRFFailure answers requests rejected by the CSRF middleware, including
// uploads whose body exceeded the size limit before the token could be read.
func CSRFFailure(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Warn("csrf check failed",
			zap.String("path", r.URL.Path),
			zap.Error(csrf.FailureReason(r)),
		)
		http.Error(w, "Forbidden: the form has expired or is too large. Reload the page and try again.", http.StatusForbidden)
	}
}
