package api

import (
	"context"
	"net/http"
	"time"

	"github.com/solmint/relay/internal/query/provider"
)

// Pinger checks that a backing service is reachable.
type Pinger interface {
	Health(ctx context.Context) error
}

type componentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]componentHealth `json:"components"`
	Providers  []provider.HealthStatus    `json:"providers,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]componentHealth),
	}

	for name, pinger := range s.pingers {
		if pinger == nil {
			continue
		}
		if err := pinger.Health(ctx); err != nil {
			resp.Components[name] = componentHealth{Status: "unhealthy", Error: err.Error()}
			resp.Status = "degraded"
		} else {
			resp.Components[name] = componentHealth{Status: "healthy"}
		}
	}

	for _, p := range s.providers {
		if reporter, ok := p.(interface{ Health() provider.HealthStatus }); ok {
			resp.Providers = append(resp.Providers, reporter.Health())
		}
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
