package http

import (
	"net/http"

	pbotel "github.com/Strob0t/promptbox/internal/adapter/otel"
	"github.com/Strob0t/promptbox/internal/domain/fork"
	"github.com/Strob0t/promptbox/internal/domain/preset"
	"github.com/Strob0t/promptbox/internal/resilience"
	"github.com/Strob0t/promptbox/internal/service"
)

// ConnectionCounter reports live push connections for the health endpoint.
type ConnectionCounter interface {
	ConnectionCount() int
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Catalog  *service.CatalogService
	Forks    *service.ForkService
	Hub      ConnectionCounter
	Launcher string
	Breaker  *resilience.Breaker
	// BodyLimit caps JSON request bodies in bytes. Zero means 1 MB.
	BodyLimit int64
}

// ListAgents handles GET /api/agents. Agents are keyed by id.
func (h *Handlers) ListAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Catalog.Agents())
}

type reloadResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// ReloadAgents handles POST /api/agents/reload. On failure the previous
// catalog stays active.
func (h *Handlers) ReloadAgents(w http.ResponseWriter, r *http.Request) {
	ctx, span := pbotel.StartReloadSpan(r.Context(), "api")
	defer span.End()

	count, err := h.Catalog.Reload(ctx)
	if err != nil {
		span.RecordError(err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{Message: "Agents reloaded successfully", Count: count})
}

// ListPresets handles GET /api/presets.
func (h *Handlers) ListPresets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, preset.Defaults())
}

type healthResponse struct {
	Status      string `json:"status"`
	Agents      int    `json:"agents"`
	ActiveForks int    `json:"activeForks"`
	Connections int    `json:"connections"`
	Launcher    string `json:"launcher,omitempty"`
	Breaker     string `json:"breaker,omitempty"`
}

// Health handles GET /api/health. activeForks counts running forks.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:      "healthy",
		Agents:      h.Catalog.Count(),
		ActiveForks: h.Forks.CountByStatus(fork.StatusRunning),
		Launcher:    h.Launcher,
	}
	if h.Hub != nil {
		resp.Connections = h.Hub.ConnectionCount()
	}
	if h.Breaker != nil {
		resp.Breaker = string(h.Breaker.State())
	}
	writeJSON(w, http.StatusOK, resp)
}
