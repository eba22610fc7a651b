package server

import (
	"net/http"
	"sync/atomic"
	"time"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
)

// HealthChecker serves the liveness and readiness probes of the view
// server. Readiness flips on once the session manager has finished
// initializing; a signed-in session is not required.
type HealthChecker struct {
	sc    *ServerContext
	ready atomic.Bool
	start time.Time
}

// NewHealthChecker creates a HealthChecker that reports not ready until
// SetReady(true) is called.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	return &HealthChecker{sc: sc, start: time.Now()}
}

// SetReady flips the readiness probe.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports the current readiness state.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// RegisterHealthEndpoints mounts the probe routes on mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", h.handleLiveness)
	mux.HandleFunc("/readyz", h.handleReadiness)
	mux.HandleFunc("/healthz/detailed", h.handleDetailed)
}

// HealthResponse is the JSON body of /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse is the JSON body of /healthz/detailed.
type DetailedHealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Session string `json:"session"`
}

func (h *HealthChecker) shuttingDown() bool {
	return h.sc != nil && h.sc.IsShutdown()
}

// handleLiveness only confirms the process is up.
func (h *HealthChecker) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
}

func (h *HealthChecker) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	checks := map[string]string{
		"ready":    healthStatusOK,
		"shutdown": healthStatusOK,
	}
	ok := true
	if !h.ready.Load() {
		checks["ready"] = healthStatusNotReady
		ok = false
	}
	if h.shuttingDown() {
		checks["shutdown"] = healthStatusShuttingDown
		ok = false
	}

	response := HealthResponse{Status: healthStatusOK, Checks: checks}
	status := http.StatusOK
	if !ok {
		response.Status = healthStatusNotReady
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// handleDetailed adds uptime and the session state for debugging the
// daemon by hand.
func (h *HealthChecker) handleDetailed(w http.ResponseWriter, _ *http.Request) {
	response := DetailedHealthResponse{
		Status: healthStatusOK,
		Uptime: time.Since(h.start).Truncate(time.Second).String(),
	}
	if h.sc != nil && h.sc.Sessions() != nil {
		response.Session = h.sc.Sessions().State().String()
	}

	status := http.StatusOK
	switch {
	case !h.ready.Load():
		response.Status = healthStatusNotReady
		status = http.StatusServiceUnavailable
	case h.shuttingDown():
		response.Status = healthStatusShuttingDown
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}
