package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"redcodegreencode/internal/model"
	"redcodegreencode/internal/service"
)

// ExecuteHandler proxies code execution to the upstream service
type ExecuteHandler struct {
	executor *service.ExecutorService
}

// NewExecuteHandler creates a new execute handler
func NewExecuteHandler(executor *service.ExecutorService) *ExecuteHandler {
	return &ExecuteHandler{executor: executor}
}

// Execute handles POST /api/execute
func (h *ExecuteHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req model.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.executor.Execute(r.Context(), &req)
	if err != nil {
		// Upstream detail is swallowed on purpose.
		writeError(w, http.StatusInternalServerError, "Execution failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(result)
}

// HealthHandler reports service liveness
type HealthHandler struct {
	serviceName string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(serviceName string) *HealthHandler {
	return &HealthHandler{serviceName: serviceName}
}

// Health handles GET /api/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "UP",
		"service":   h.serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
