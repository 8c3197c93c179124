package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Handler serves the health endpoint, returning per-component statuses.
func Handler(checker *Checker) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		results := checker.Check(ctx)

		status := http.StatusOK
		for _, result := range results {
			if result != "OK" {
				status = http.StatusServiceUnavailable
				break
			}
		}

		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(status)
		_ = json.NewEncoder(rw).Encode(results)
	}
}
