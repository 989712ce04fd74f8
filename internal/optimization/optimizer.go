package optimization

import (
	"context"
)

// Default hyperparameters used when the corresponding RunConfig field is
// left at its zero value.
const (
	DefaultPopulationSize = 100
	DefaultCrossoverRate  = 0.7
	DefaultMutationRate   = 0.01
	DefaultGenerations    = 100
	DefaultTournamentSize = 3
)

// Optimizer defines the interface for blend optimization algorithms
type Optimizer interface {
	// Optimize runs the search to completion
	Optimize(ctx context.Context, cfg RunConfig) (*Result, error)

	// BestSolution returns the best solution found so far
	BestSolution() *Solution

	// Trajectory returns the per-generation statistics recorded so far
	Trajectory() []GenerationStat

	// Stop cancels a running optimization
	Stop()
}

// ObjectiveFunc scores a proportion vector; lower is better.
type ObjectiveFunc func([]float64) (float64, error)

// RunConfig contains configuration for a single optimization run
type RunConfig struct {
	// Objective function to minimize
	Objective ObjectiveFunc

	// Dimensions is the number of blend components per candidate
	Dimensions int

	// PopulationSize is the number of candidates per generation
	PopulationSize int

	// CrossoverRate is the probability of recombining two parents
	CrossoverRate float64

	// MutationRate is the probability of perturbing one gene of an offspring
	MutationRate float64

	// Generations is the fixed number of generations to run
	Generations int

	// TournamentSize is the number of candidates drawn per selection tournament
	TournamentSize int

	// Seed for the random source; 0 means seed from the wall clock
	Seed int64

	// EvalWorkers bounds concurrent fitness evaluations within a generation.
	// Values below 2 keep evaluation sequential.
	EvalWorkers int
}

// Solution represents a candidate blend and its fitness
type Solution struct {
	Proportions []float64
	Fitness     float64
}

// GenerationStat records the outcome of a single generation
type GenerationStat struct {
	Generation  int
	BestFitness float64
	MeanFitness float64
}

// Result contains the outcome of a completed optimization run
type Result struct {
	// BestSolution is the best candidate observed across all generations
	BestSolution *Solution

	// Trajectory holds one entry per generation, in order
	Trajectory []GenerationStat

	// Generations is the number of generations actually executed
	Generations int
}
