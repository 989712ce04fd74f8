package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/copyleftdev/OCTANE/internal/blend"
	"github.com/copyleftdev/OCTANE/internal/config"
	"github.com/copyleftdev/OCTANE/internal/errors"
	"github.com/copyleftdev/OCTANE/internal/logging"
	"github.com/copyleftdev/OCTANE/internal/optimization"
	"github.com/copyleftdev/OCTANE/internal/optimization/genetic"
)

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// RunState represents the state of a blend optimization job.
// It tracks the progress, status, and results of an optimization run.
// The state is guarded by the server's run mutex.
type RunState struct {
	ID          string
	Status      string // "pending", "running", "completed", "failed", "cancelled"
	StartTime   time.Time
	EndTime     *time.Time
	Generations int
	Evaluator   *blend.Evaluator
	Optimizer   optimization.Optimizer
	Result      *optimization.Result
	Error       string
	CancelFunc  context.CancelFunc
	LastUpdated time.Time
}

// Server implements the HTTP and JSON-RPC server for the blend optimization
// service. It manages optimization runs and provides endpoints to start,
// monitor, report on, and cancel them.
type Server struct {
	cfg    *config.Config
	logger Logger

	runs   map[string]*RunState
	runsMu sync.RWMutex // Protects the runs map
}

// NewServer creates a new server instance with the given config and logger
// The logger parameter accepts any type that implements the Logger interface
func NewServer(cfg *config.Config, logger Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
		runs:   make(map[string]*RunState),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/blends/optimize", s.handleOptimize)
		r.Get("/blends/{id}", s.handleStatus)
		r.Delete("/blends/{id}", s.handleCancel)
		r.Get("/blends/{id}/report", s.handleReport)
		r.Get("/blends/{id}/trajectory.csv", s.handleTrajectoryCSV)
		r.Get("/components", s.handleComponents)
		r.Get("/quality-spec", s.handleQualitySpec)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// optimizeRequest is the payload accepted by the optimize endpoints. Absent
// fields fall back to the server's configured GA defaults; an absent
// component table or quality spec falls back to the reference fuel data.
type optimizeRequest struct {
	PopulationSize int     `json:"population_size,omitempty"`
	CrossoverRate  float64 `json:"crossover_rate,omitempty"`
	MutationRate   float64 `json:"mutation_rate,omitempty"`
	Generations    int     `json:"generations,omitempty"`
	TournamentSize int     `json:"tournament_size,omitempty"`
	Seed           int64   `json:"seed,omitempty"`
	EvalWorkers    int     `json:"eval_workers,omitempty"`

	Components *componentsPayload `json:"components,omitempty"`
	Spec       *specPayload       `json:"spec,omitempty"`
	Weights    *weightsPayload    `json:"weights,omitempty"`
}

type componentsPayload struct {
	Names         []string  `json:"names,omitempty"`
	Cost          []float64 `json:"cost"`
	Octane        []float64 `json:"octane"`
	VaporPressure []float64 `json:"vapor_pressure"`
	Benzene       []float64 `json:"benzene"`
	Sulfur        []float64 `json:"sulfur"`
}

type specPayload struct {
	MinOctane        float64 `json:"min_octane"`
	MaxVaporPressure float64 `json:"max_vapor_pressure"`
	MaxBenzene       float64 `json:"max_benzene"`
	MaxSulfur        float64 `json:"max_sulfur"`
}

type weightsPayload struct {
	OctaneDeficit float64 `json:"octane_deficit"`
	VaporExcess   float64 `json:"vapor_excess"`
	BenzeneExcess float64 `json:"benzene_excess"`
	SulfurExcess  float64 `json:"sulfur_excess"`
}

// startOptimization validates the request, creates the evaluator and
// optimizer, registers the run and launches it in a goroutine.
func (s *Server) startOptimization(req optimizeRequest) (map[string]interface{}, error) {
	table := blend.DefaultComponents()
	if req.Components != nil {
		table = &blend.ComponentTable{
			Names:         req.Components.Names,
			Cost:          req.Components.Cost,
			Octane:        req.Components.Octane,
			VaporPressure: req.Components.VaporPressure,
			Benzene:       req.Components.Benzene,
			Sulfur:        req.Components.Sulfur,
		}
	}

	spec := blend.DefaultQualitySpec()
	if req.Spec != nil {
		spec = blend.QualitySpec{
			MinOctane:        req.Spec.MinOctane,
			MaxVaporPressure: req.Spec.MaxVaporPressure,
			MaxBenzene:       req.Spec.MaxBenzene,
			MaxSulfur:        req.Spec.MaxSulfur,
		}
	}

	weights := blend.DefaultPenaltyWeights()
	if req.Weights != nil {
		weights = blend.PenaltyWeights{
			OctaneDeficit: req.Weights.OctaneDeficit,
			VaporExcess:   req.Weights.VaporExcess,
			BenzeneExcess: req.Weights.BenzeneExcess,
			SulfurExcess:  req.Weights.SulfurExcess,
		}
	}

	eval, err := blend.NewEvaluator(table, spec, weights)
	if err != nil {
		return nil, err
	}

	runCfg := s.cfg.RunConfig()
	runCfg.Dimensions = table.Components()
	runCfg.Objective = eval.Fitness
	if req.PopulationSize > 0 {
		runCfg.PopulationSize = req.PopulationSize
	}
	if req.CrossoverRate > 0 {
		runCfg.CrossoverRate = req.CrossoverRate
	}
	if req.MutationRate > 0 {
		runCfg.MutationRate = req.MutationRate
	}
	if req.Generations > 0 {
		runCfg.Generations = req.Generations
	}
	if req.TournamentSize > 0 {
		runCfg.TournamentSize = req.TournamentSize
	}
	if req.Seed != 0 {
		runCfg.Seed = req.Seed
	}
	if req.EvalWorkers > 0 {
		runCfg.EvalWorkers = req.EvalWorkers
	}

	id := fmt.Sprintf("run_%d", time.Now().UnixNano())

	engineLogger := logging.NewZapLogger(s.logger.WithFields(map[string]interface{}{
		"run_id": id,
	}))
	optimizer, err := genetic.New(runCfg, engineLogger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	state := &RunState{
		ID:          id,
		Status:      "pending",
		StartTime:   time.Now(),
		Generations: runCfg.Generations,
		Evaluator:   eval,
		Optimizer:   optimizer,
		CancelFunc:  cancel,
		LastUpdated: time.Now(),
	}

	s.runsMu.Lock()
	s.runs[id] = state
	s.runsMu.Unlock()

	runsStarted.Inc()
	go s.runOptimization(ctx, state, runCfg)

	return map[string]interface{}{
		"run_id": id,
		"status": "pending",
	}, nil
}

// runOptimization executes the optimization in a goroutine and records the
// terminal state.
func (s *Server) runOptimization(ctx context.Context, state *RunState, runCfg optimization.RunConfig) {
	s.runsMu.Lock()
	// A cancel may have landed before this goroutine was scheduled.
	if state.Status == "pending" {
		state.Status = "running"
		state.LastUpdated = time.Now()
	}
	s.runsMu.Unlock()

	result, err := state.Optimizer.Optimize(ctx, runCfg)

	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	switch {
	case err == nil:
		state.Status = "completed"
		state.Result = result
		bestFitness.Set(result.BestSolution.Fitness)
		s.logger.Info("Optimization completed", map[string]interface{}{
			"run_id":       state.ID,
			"best_fitness": result.BestSolution.Fitness,
			"generations":  result.Generations,
		})
	case ctx.Err() != nil:
		state.Status = "cancelled"
	default:
		state.Status = "failed"
		wrapped := errors.Wrap(err, "optimization run failed").WithComponent("server")
		state.Error = err.Error()
		s.logger.Error("Optimization failed", map[string]interface{}{
			"run_id": state.ID,
			"error":  wrapped.Error(),
		})
	}
	runsFinished.WithLabelValues(state.Status).Inc()
}

// statusResponse builds the status payload for a run. Caller must hold at
// least a read lock on runsMu.
func (s *Server) statusResponse(state *RunState) map[string]interface{} {
	response := map[string]interface{}{
		"run_id":      state.ID,
		"status":      state.Status,
		"start_time":  state.StartTime.Format(time.RFC3339),
		"last_update": state.LastUpdated.Format(time.RFC3339),
	}

	if state.EndTime != nil {
		response["end_time"] = state.EndTime.Format(time.RFC3339)
	}
	if state.Error != "" {
		response["error"] = state.Error
	}

	trajectory := state.Optimizer.Trajectory()
	if state.Generations > 0 {
		response["progress"] = float64(len(trajectory)) / float64(state.Generations)
	}
	if len(trajectory) > 0 {
		points := make([]map[string]interface{}, len(trajectory))
		for i, stat := range trajectory {
			points[i] = map[string]interface{}{
				"generation":   stat.Generation,
				"best_fitness": stat.BestFitness,
				"mean_fitness": stat.MeanFitness,
			}
		}
		response["trajectory"] = points
	}

	if best := state.Optimizer.BestSolution(); best != nil {
		response["best_solution"] = map[string]interface{}{
			"proportions": best.Proportions,
			"fitness":     best.Fitness,
		}
	}

	return response
}

// cancelRun transitions a run to cancelled if it is not already terminal.
func (s *Server) cancelRun(id string) error {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	state, exists := s.runs[id]
	if !exists {
		return fmt.Errorf("run not found")
	}

	switch state.Status {
	case "completed", "failed", "cancelled":
		return fmt.Errorf("cannot cancel run with status: %s", state.Status)
	}

	if state.CancelFunc != nil {
		state.CancelFunc()
	}

	state.Status = "cancelled"
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	s.logger.Info("Optimization cancelled", map[string]interface{}{
		"run_id": id,
	})

	return nil
}

// Close cleans up resources
func (s *Server) Close() error {
	// Cancel all running optimizations
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	for _, run := range s.runs {
		if run.CancelFunc != nil {
			run.CancelFunc()
		}
	}
	return nil
}
