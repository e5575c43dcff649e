package observability

import (
	"context"
	"encoding/json"
	"net/http"
)

const (
	healthStatusOK          = "ok"
	healthStatusUnavailable = "unavailable"
)

// ReadyCheck reports whether a subsystem can serve requests.
type ReadyCheck func(ctx context.Context) error

// HealthHandler serves liveness at /healthz. It always answers 200.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		writeHealth(rw, http.StatusOK, healthStatusOK, "")
	})
}

// ReadyHandler serves readiness at /readyz. The first failing check turns
// the answer into 503 with the failure reason.
func ReadyHandler(checks ...ReadyCheck) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		for _, check := range checks {
			if err := check(hr.Context()); err != nil {
				writeHealth(rw, http.StatusServiceUnavailable, healthStatusUnavailable, err.Error())

				return
			}
		}

		writeHealth(rw, http.StatusOK, healthStatusOK, "")
	})
}

func writeHealth(rw http.ResponseWriter, code int, status, reason string) {
	body := map[string]string{"status": status}
	if reason != "" {
		body["reason"] = reason
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)

	_ = json.NewEncoder(rw).Encode(body)
}
