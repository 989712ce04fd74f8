package genetic

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/OCTANE/internal/optimization"
)

// progressInterval is how many generations pass between progress log lines.
const progressInterval = 10

// GeneticOptimizer implements optimization.Optimizer with a generational
// genetic algorithm. Each generation is fully evaluated, the best candidate
// is carried over unchanged (elitism), and the remaining slots are filled by
// tournament selection, crossover and mutation.
type GeneticOptimizer struct {
	config optimization.RunConfig

	// Random number generator; all stochastic draws of a run go through it
	// in loop order, so a fixed seed reproduces the run exactly.
	rng *rand.Rand

	logger *zap.Logger

	mu           sync.RWMutex
	bestSolution *optimization.Solution
	trajectory   []optimization.GenerationStat

	// For cancellation
	cancel context.CancelFunc
}

// New creates a genetic optimizer for the given run configuration.
// Zero-valued hyperparameters take the package defaults; out-of-range values
// are rejected.
func New(config optimization.RunConfig, logger *zap.Logger) (*GeneticOptimizer, error) {
	applyDefaults(&config)
	if err := validate(config); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &GeneticOptimizer{
		config:     config,
		rng:        rand.New(rand.NewSource(seed)),
		logger:     logger,
		trajectory: make([]optimization.GenerationStat, 0, config.Generations),
	}, nil
}

func applyDefaults(config *optimization.RunConfig) {
	if config.PopulationSize == 0 {
		config.PopulationSize = optimization.DefaultPopulationSize
	}
	if config.CrossoverRate == 0 {
		config.CrossoverRate = optimization.DefaultCrossoverRate
	}
	if config.MutationRate == 0 {
		config.MutationRate = optimization.DefaultMutationRate
	}
	if config.Generations == 0 {
		config.Generations = optimization.DefaultGenerations
	}
	if config.TournamentSize == 0 {
		config.TournamentSize = optimization.DefaultTournamentSize
	}
	if config.EvalWorkers == 0 {
		config.EvalWorkers = 1
	}
}

func validate(config optimization.RunConfig) error {
	switch {
	case config.Dimensions < 1:
		return optimization.NewErrorf(optimization.KindInvalidConfiguration,
			"dimensions must be positive, got %d", config.Dimensions)
	case config.PopulationSize < 1:
		return optimization.NewErrorf(optimization.KindInvalidConfiguration,
			"population size must be positive, got %d", config.PopulationSize)
	case config.Generations < 1:
		return optimization.NewErrorf(optimization.KindInvalidConfiguration,
			"generation count must be positive, got %d", config.Generations)
	case config.CrossoverRate < 0 || config.CrossoverRate > 1:
		return optimization.NewErrorf(optimization.KindInvalidConfiguration,
			"crossover rate must be in [0,1], got %v", config.CrossoverRate)
	case config.MutationRate < 0 || config.MutationRate > 1:
		return optimization.NewErrorf(optimization.KindInvalidConfiguration,
			"mutation rate must be in [0,1], got %v", config.MutationRate)
	case config.TournamentSize < 1 || config.TournamentSize > config.PopulationSize:
		return optimization.NewErrorf(optimization.KindInvalidConfiguration,
			"tournament size must be in [1,%d], got %d",
			config.PopulationSize, config.TournamentSize)
	case config.EvalWorkers < 1:
		return optimization.NewErrorf(optimization.KindInvalidConfiguration,
			"evaluation worker count must be positive, got %d", config.EvalWorkers)
	}
	return nil
}

// Optimize runs the genetic algorithm for the configured number of
// generations and returns the best solution found together with the full
// per-generation trajectory.
func (g *GeneticOptimizer) Optimize(ctx context.Context, config optimization.RunConfig) (*optimization.Result, error) {
	// An objective passed at run time overrides the construction-time config.
	if config.Objective != nil {
		applyDefaults(&config)
		if err := validate(config); err != nil {
			return nil, err
		}
		g.config = config
	}
	if g.config.Objective == nil {
		return nil, optimization.NewError(optimization.KindInvalidConfiguration,
			"objective function is required")
	}

	ctx, g.cancel = context.WithCancel(ctx)
	defer g.cancel()

	pop := NewPopulation(g.config.PopulationSize, g.config.Dimensions, g.rng)

	for gen := 0; gen < g.config.Generations; gen++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		fitness, err := g.evaluate(ctx, pop)
		if err != nil {
			return nil, err
		}

		bestIdx := 0
		for i, f := range fitness {
			if f < fitness[bestIdx] {
				bestIdx = i
			}
		}
		g.record(gen, pop[bestIdx], fitness[bestIdx], stat.Mean(fitness, nil))

		if (gen+1)%progressInterval == 0 {
			g.logger.Info("generation completed",
				zap.Int("generation", gen+1),
				zap.Float64("best_fitness", fitness[bestIdx]),
			)
		}

		next := make(Population, 0, g.config.PopulationSize)
		// Elitism: the generation's best survives unchanged into exactly
		// one slot of the next population.
		next = append(next, pop[bestIdx].Clone())
		for len(next) < g.config.PopulationSize {
			parent1 := tournamentSelect(pop, fitness, g.config.TournamentSize, g.rng)
			parent2 := tournamentSelect(pop, fitness, g.config.TournamentSize, g.rng)
			child, err := crossover(parent1, parent2, g.config.CrossoverRate, g.rng)
			if err != nil {
				return nil, err
			}
			child, err = mutate(child, g.config.MutationRate, g.rng)
			if err != nil {
				return nil, err
			}
			next = append(next, child)
		}
		pop = next
	}

	return &optimization.Result{
		BestSolution: g.BestSolution(),
		Trajectory:   g.Trajectory(),
		Generations:  g.config.Generations,
	}, nil
}

// evaluate scores every candidate of the population. Evaluation is pure, so
// it may fan out across workers without affecting the run's determinism;
// results are written to fixed slots.
func (g *GeneticOptimizer) evaluate(ctx context.Context, pop Population) ([]float64, error) {
	fitness := make([]float64, len(pop))

	if g.config.EvalWorkers < 2 {
		for i, c := range pop {
			f, err := g.config.Objective(c)
			if err != nil {
				return nil, optimization.WrapError(err, "objective evaluation failed").
					WithComponent("genetic").WithOperation("evaluate")
			}
			fitness[i] = f
		}
		return fitness, nil
	}

	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(g.config.EvalWorkers)
	for i, c := range pop {
		i, c := i, c
		eg.Go(func() error {
			f, err := g.config.Objective(c)
			if err != nil {
				return optimization.WrapError(err, "objective evaluation failed").
					WithComponent("genetic").WithOperation("evaluate")
			}
			fitness[i] = f
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return fitness, nil
}

// record appends the generation's statistics to the trajectory and updates
// the all-time best when strictly improved. The best fitness never regresses.
func (g *GeneticOptimizer) record(gen int, best Candidate, bestFitness, meanFitness float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.trajectory = append(g.trajectory, optimization.GenerationStat{
		Generation:  gen,
		BestFitness: bestFitness,
		MeanFitness: meanFitness,
	})
	if g.bestSolution == nil || bestFitness < g.bestSolution.Fitness {
		g.bestSolution = &optimization.Solution{
			Proportions: append([]float64(nil), best...),
			Fitness:     bestFitness,
		}
	}
}

// BestSolution returns the best solution found so far.
func (g *GeneticOptimizer) BestSolution() *optimization.Solution {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.bestSolution == nil {
		return nil
	}
	sol := *g.bestSolution
	sol.Proportions = append([]float64(nil), g.bestSolution.Proportions...)
	return &sol
}

// Trajectory returns a copy of the per-generation statistics recorded so far.
func (g *GeneticOptimizer) Trajectory() []optimization.GenerationStat {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]optimization.GenerationStat(nil), g.trajectory...)
}

// Stop cancels a running optimization.
func (g *GeneticOptimizer) Stop() {
	if g.cancel != nil {
		g.cancel()
	}
}

var _ optimization.Optimizer = (*GeneticOptimizer)(nil)
