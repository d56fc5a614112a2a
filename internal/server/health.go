package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Run phases reported by the health endpoints.
const (
	PhaseStarting = "starting"
	PhaseSyncing  = "syncing"
	PhaseDone     = "done"
	PhaseFailed   = "failed"
)

// HealthChecker reports the progress of the current run.
type HealthChecker struct {
	ready     atomic.Bool
	startTime time.Time

	mu     sync.RWMutex
	phase  string
	window string
}

// NewHealthChecker creates a HealthChecker in the starting phase.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
		phase:     PhaseStarting,
	}
}

// SetPhase records the run phase. Syncing marks the run ready.
func (h *HealthChecker) SetPhase(phase string) {
	h.mu.Lock()
	h.phase = phase
	h.mu.Unlock()
	h.ready.Store(phase == PhaseSyncing || phase == PhaseDone)
}

// SetWindow records the window currently being mirrored.
func (h *HealthChecker) SetWindow(window string) {
	h.mu.Lock()
	h.window = window
	h.mu.Unlock()
}

// IsReady reports whether the run has started mirroring.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status string `json:"status"`
	Phase  string `json:"phase,omitempty"`
	Window string `json:"window,omitempty"`
	Uptime string `json:"uptime,omitempty"`
}

func (h *HealthChecker) snapshot() HealthResponse {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return HealthResponse{
		Phase:  h.phase,
		Window: h.window,
		Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
	}
}

// LivenessHandler answers /healthz while the process is alive.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := h.snapshot()
		resp.Status = "ok"
		writeJSON(w, http.StatusOK, resp)
	})
}

// ReadinessHandler answers /readyz with 503 until the run is mirroring.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := h.snapshot()
		if !h.ready.Load() {
			resp.Status = "not ready"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp.Status = "ok"
		writeJSON(w, http.StatusOK, resp)
	})
}

// RegisterHealthEndpoints registers health check endpoints on the given mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
