package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/OCTANE/internal/config"
	"github.com/copyleftdev/OCTANE/internal/logging"
)

// testConfig creates a test configuration with small GA defaults so runs
// finish quickly.
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{
		Environment: "test",
	}

	cfg.HTTP.Port = 8080
	cfg.HTTP.ReadTimeout = 30 * time.Second
	cfg.HTTP.WriteTimeout = 30 * time.Second
	cfg.HTTP.IdleTimeout = 120 * time.Second
	cfg.HTTP.ShutdownTimeout = 30 * time.Second

	cfg.Logging.Level = "error"
	cfg.Logging.Format = "json"
	cfg.Logging.Output = "stderr"

	cfg.Optimization.PopulationSize = 20
	cfg.Optimization.CrossoverRate = 0.7
	cfg.Optimization.MutationRate = 0.01
	cfg.Optimization.Generations = 10
	cfg.Optimization.TournamentSize = 3
	cfg.Optimization.Seed = 42
	cfg.Optimization.EvalWorkers = 1

	return cfg
}

// testLogger creates a test logger
func testLogger(t *testing.T) *logging.Logger {
	t.Helper()

	logger, err := logging.NewLogger(&logging.Config{
		Level:  "error",
		Format: "json",
		Output: "stderr",
	})
	require.NoError(t, err)
	return logger
}

func testRouter(t *testing.T) (*Server, chi.Router) {
	t.Helper()

	srv := NewServer(testConfig(t), testLogger(t))
	t.Cleanup(func() { _ = srv.Close() })
	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	return srv, r
}

func TestNewServer(t *testing.T) {
	srv := NewServer(testConfig(t), testLogger(t))
	assert.NotNil(t, srv, "Server should be created")
}

func TestRegisterRoutes(t *testing.T) {
	_, r := testRouter(t)

	tests := []struct {
		method      string
		path        string
		shouldExist bool
	}{
		{"POST", "/api/v1/blends/optimize", true},
		{"GET", "/api/v1/blends/123", true},
		{"DELETE", "/api/v1/blends/123", true},
		{"GET", "/api/v1/components", true},
		{"GET", "/api/v1/quality-spec", true},
		{"POST", "/rpc", true},
		{"GET", "/healthz", false}, // Not registered by server package
		{"GET", "/nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}"))
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			// A 404 with chi's default body means the route doesn't exist
			if tt.shouldExist && rr.Code == http.StatusNotFound &&
				strings.Contains(rr.Body.String(), "404 page not found") {
				t.Errorf("Route %s %s should exist but returned 404", tt.method, tt.path)
			}
		})
	}
}

func TestComponentsEndpoint(t *testing.T) {
	_, r := testRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/components", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var payload componentsPayload
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&payload))
	assert.Equal(t, []float64{2.50, 3.00, 1.80, 2.80}, payload.Cost)
	assert.Len(t, payload.Octane, 4)
}

func TestQualitySpecEndpoint(t *testing.T) {
	_, r := testRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/quality-spec", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var payload specPayload
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&payload))
	assert.Equal(t, 91.0, payload.MinOctane)
	assert.Equal(t, 50.0, payload.MaxSulfur)
}

// waitForStatus polls a run until it reaches a terminal state.
func waitForStatus(t *testing.T, r chi.Router, id string) map[string]interface{} {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		req := httptest.NewRequest("GET", "/api/v1/blends/"+id, nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var status map[string]interface{}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&status))

		switch status["status"] {
		case "completed", "failed", "cancelled":
			return status
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("run did not reach a terminal state in time")
	return nil
}

func TestOptimizeEndToEnd(t *testing.T) {
	_, r := testRouter(t)

	body := `{"population_size": 30, "generations": 20, "seed": 7}`
	req := httptest.NewRequest("POST", "/api/v1/blends/optimize", strings.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code)

	var accepted map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&accepted))
	id, ok := accepted["run_id"].(string)
	require.True(t, ok, "response should carry a run_id")

	status := waitForStatus(t, r, id)
	require.Equal(t, "completed", status["status"])

	best, ok := status["best_solution"].(map[string]interface{})
	require.True(t, ok, "completed run should carry a best solution")
	proportions, ok := best["proportions"].([]interface{})
	require.True(t, ok)
	assert.Len(t, proportions, 4)

	trajectory, ok := status["trajectory"].([]interface{})
	require.True(t, ok)
	assert.Len(t, trajectory, 20)

	// Report is available once completed.
	req = httptest.NewRequest("GET", "/api/v1/blends/"+id+"/report", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "OPTIMIZATION RESULTS")

	// Trajectory export carries one row per generation plus the header.
	req = httptest.NewRequest("GET", "/api/v1/blends/"+id+"/trajectory.csv", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	assert.Len(t, lines, 21)
}

func TestOptimizeRejectsBadConfig(t *testing.T) {
	_, r := testRouter(t)

	body := `{"crossover_rate": 1.5}`
	req := httptest.NewRequest("POST", "/api/v1/blends/optimize", strings.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStatusUnknownRun(t *testing.T) {
	_, r := testRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/blends/run_does_not_exist", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestJSONRPCOptimize(t *testing.T) {
	_, r := testRouter(t)

	body := `{"jsonrpc": "2.0", "id": 1, "method": "blend.optimize", "params": [{"generations": 5, "population_size": 10}]}`
	req := httptest.NewRequest("POST", "/rpc", strings.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	require.Nil(t, response["error"])

	result, ok := response["result"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "pending", result["status"])
	assert.NotEmpty(t, result["run_id"])
}

func TestJSONRPCMethodNotFound(t *testing.T) {
	_, r := testRouter(t)

	body := `{"jsonrpc": "2.0", "id": 1, "method": "blend.unknown"}`
	req := httptest.NewRequest("POST", "/rpc", strings.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))

	errObj, ok := response["error"].(map[string]interface{})
	require.True(t, ok, "response should contain error object")
	assert.Equal(t, float64(-32601), errObj["code"])
}

func TestCancelRun(t *testing.T) {
	_, r := testRouter(t)

	// A long run we can cancel mid-flight.
	body := `{"generations": 100000, "population_size": 50}`
	req := httptest.NewRequest("POST", "/api/v1/blends/optimize", strings.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusAccepted, rr.Code)

	var accepted map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&accepted))
	id := accepted["run_id"]

	req = httptest.NewRequest("DELETE", "/api/v1/blends/"+id, nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	status := waitForStatus(t, r, id)
	assert.Equal(t, "cancelled", status["status"])

	// A second cancel on a terminal run is rejected.
	req = httptest.NewRequest("DELETE", "/api/v1/blends/"+id, nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRespondWithError(t *testing.T) {
	srv := NewServer(testConfig(t), testLogger(t))

	rr := httptest.NewRecorder()
	srv.respondWithError(rr, -32600, "Invalid Request", "123")

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))

	errObj, ok := response["error"].(map[string]interface{})
	require.True(t, ok, "response should contain error object")
	assert.Equal(t, float64(-32600), errObj["code"])
	assert.Equal(t, "Invalid Request", errObj["message"])
	assert.Equal(t, "123", response["id"])
}
