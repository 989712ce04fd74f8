package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/copyleftdev/OCTANE/internal/blend"
	"github.com/copyleftdev/OCTANE/internal/report"
)

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string            `json:"jsonrpc"`
		ID      interface{}       `json:"id"`
		Method  string            `json:"method"`
		Params  []json.RawMessage `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, -32700, "Parse error", nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" {
		s.respondWithError(w, -32600, "Invalid Request", nil)
		return
	}

	// Route to appropriate handler
	var result interface{}
	var err error

	switch request.Method {
	case "blend.optimize":
		result, err = s.rpcOptimize(request.Params)
	case "blend.status":
		result, err = s.rpcStatus(request.Params)
	case "blend.cancel":
		err = s.rpcCancel(request.Params)
	default:
		s.respondWithError(w, -32601, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondWithError(w, -32000, err.Error(), request.ID)
		return
	}

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// rpcOptimize handles the blend.optimize JSON-RPC method.
// Expected parameters: [{"generations": 100, "population_size": 100, ...}]
// Returns: {"run_id": "run_123", "status": "pending"}
func (s *Server) rpcOptimize(params []json.RawMessage) (interface{}, error) {
	var req optimizeRequest
	if len(params) > 0 {
		if err := json.Unmarshal(params[0], &req); err != nil {
			return nil, fmt.Errorf("invalid parameter format, expected object: %v", err)
		}
	}
	return s.startOptimization(req)
}

// rpcStatus handles the blend.status JSON-RPC method.
// Expected parameters: [{"run_id": "run_123"}]
func (s *Server) rpcStatus(params []json.RawMessage) (interface{}, error) {
	id, err := runIDParam(params)
	if err != nil {
		return nil, err
	}

	s.runsMu.RLock()
	defer s.runsMu.RUnlock()

	state, exists := s.runs[id]
	if !exists {
		return nil, fmt.Errorf("run not found")
	}
	return s.statusResponse(state), nil
}

// rpcCancel handles the blend.cancel JSON-RPC method.
// Expected parameters: [{"run_id": "run_123"}]
func (s *Server) rpcCancel(params []json.RawMessage) error {
	id, err := runIDParam(params)
	if err != nil {
		return err
	}
	return s.cancelRun(id)
}

func runIDParam(params []json.RawMessage) (string, error) {
	if len(params) == 0 {
		return "", fmt.Errorf("missing required parameters")
	}
	var p struct {
		RunID string `json:"run_id"`
	}
	if err := json.Unmarshal(params[0], &p); err != nil {
		return "", fmt.Errorf("invalid parameter format, expected object: %v", err)
	}
	if p.RunID == "" {
		return "", fmt.Errorf("run_id is required")
	}
	return p.RunID, nil
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Error("Request error", map[string]interface{}{
		"status":  code,
		"message": message,
	})

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// handleOptimize handles POST /api/v1/blends/optimize
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	result, err := s.startOptimization(req)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(result)
}

// handleStatus handles GET /api/v1/blends/{id}
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing run ID", http.StatusBadRequest)
		return
	}

	s.runsMu.RLock()
	state, exists := s.runs[id]
	var response map[string]interface{}
	if exists {
		response = s.statusResponse(state)
	}
	s.runsMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if !exists {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": "run not found",
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// handleCancel handles DELETE /api/v1/blends/{id}
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing run ID", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := s.cancelRun(id); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "cancellation requested",
	})
}

// handleReport handles GET /api/v1/blends/{id}/report. The report is only
// available once the run is completed.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.runsMu.RLock()
	state, exists := s.runs[id]
	s.runsMu.RUnlock()

	if !exists {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if state.Status != "completed" || state.Result == nil {
		http.Error(w, fmt.Sprintf("run is %s, report requires a completed run", state.Status), http.StatusConflict)
		return
	}

	rep, err := report.Build(state.Evaluator, state.Result.BestSolution)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := rep.Render(w, state.Evaluator.Spec()); err != nil {
		s.logger.Error("Failed to render report", map[string]interface{}{
			"run_id": id,
			"error":  err.Error(),
		})
	}
}

// handleTrajectoryCSV handles GET /api/v1/blends/{id}/trajectory.csv.
// The trajectory collected so far is exported even for a running job.
func (s *Server) handleTrajectoryCSV(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.runsMu.RLock()
	state, exists := s.runs[id]
	s.runsMu.RUnlock()

	if !exists {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	if err := report.WriteTrajectoryCSV(w, state.Optimizer.Trajectory()); err != nil {
		s.logger.Error("Failed to write trajectory", map[string]interface{}{
			"run_id": id,
			"error":  err.Error(),
		})
	}
}

// handleComponents handles GET /api/v1/components
func (s *Server) handleComponents(w http.ResponseWriter, r *http.Request) {
	table := blend.DefaultComponents()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(componentsPayload{
		Names:         table.Names,
		Cost:          table.Cost,
		Octane:        table.Octane,
		VaporPressure: table.VaporPressure,
		Benzene:       table.Benzene,
		Sulfur:        table.Sulfur,
	})
}

// handleQualitySpec handles GET /api/v1/quality-spec
func (s *Server) handleQualitySpec(w http.ResponseWriter, r *http.Request) {
	spec := blend.DefaultQualitySpec()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(specPayload{
		MinOctane:        spec.MinOctane,
		MaxVaporPressure: spec.MaxVaporPressure,
		MaxBenzene:       spec.MaxBenzene,
		MaxSulfur:        spec.MaxSulfur,
	})
}
