package http

import (
	"net/http"
	"time"

	"github.com/reeutil/reeutil/internal/auth/store"
	"github.com/reeutil/reeutil/pkg/authapi"
	"github.com/reeutil/reeutil/pkg/httpx"
	"github.com/reeutil/reeutil/pkg/slogx"
)

// LivezHandler is the liveness probe. It answers 200 whenever the process is
// serving requests.
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authapi.HealthResponse{
			Status:  "ok",
			Version: version,
			Uptime:  time.Since(startTime).String(),
			Time:    time.Now().UTC(),
		})
	}
}

// ReadyzHandler is the readiness probe. It additionally checks database
// connectivity and answers 503 while the store is unreachable.
func ReadyzHandler(startTime time.Time, version string, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			slogx.FromContext(r.Context()).Warn("readiness database check failed", "err", err)
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, statusCode, authapi.HealthResponse{
			Status:  status,
			Version: version,
			Uptime:  time.Since(startTime).String(),
			Time:    time.Now().UTC(),
		})
	}
}
