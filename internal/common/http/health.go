package http

import (
	"context"
	"net/http"
	"time"
)

// ReadinessCheck probes one dependency. Name is reported in the /ready body.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// ReadyHandler runs every check with a shared two second budget and answers
// 503 if any of them fails.
func ReadyHandler(checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[c.Name] = err.Error()
				continue
			}
			results[c.Name] = "ok"
		}

		body := map[string]interface{}{"status": "ready", "checks": results}
		if status != http.StatusOK {
			body["status"] = "not_ready"
		}
		WriteJSON(w, status, body)
	}
}
