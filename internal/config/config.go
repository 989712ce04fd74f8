package config

import (
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/copyleftdev/OCTANE/internal/optimization"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Optimization struct {
		PopulationSize int     `env:"GA_POPULATION_SIZE" envDefault:"100"`
		CrossoverRate  float64 `env:"GA_CROSSOVER_RATE" envDefault:"0.7"`
		MutationRate   float64 `env:"GA_MUTATION_RATE" envDefault:"0.01"`
		Generations    int     `env:"GA_GENERATIONS" envDefault:"100"`
		TournamentSize int     `env:"GA_TOURNAMENT_SIZE" envDefault:"3"`
		Seed           int64   `env:"GA_SEED" envDefault:"0"`
		EvalWorkers    int     `env:"GA_EVAL_WORKERS" envDefault:"1"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Set default logging level based on environment
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	if err := validateOptimization(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateOptimization rejects implausible GA defaults at startup rather
// than at the first optimization request.
func validateOptimization(cfg *Config) error {
	o := cfg.Optimization
	switch {
	case o.PopulationSize < 1:
		return optimization.NewErrorf(optimization.KindInvalidConfiguration,
			"GA_POPULATION_SIZE must be positive, got %d", o.PopulationSize)
	case o.Generations < 1:
		return optimization.NewErrorf(optimization.KindInvalidConfiguration,
			"GA_GENERATIONS must be positive, got %d", o.Generations)
	case o.CrossoverRate < 0 || o.CrossoverRate > 1:
		return optimization.NewErrorf(optimization.KindInvalidConfiguration,
			"GA_CROSSOVER_RATE must be in [0,1], got %v", o.CrossoverRate)
	case o.MutationRate < 0 || o.MutationRate > 1:
		return optimization.NewErrorf(optimization.KindInvalidConfiguration,
			"GA_MUTATION_RATE must be in [0,1], got %v", o.MutationRate)
	case o.TournamentSize < 1 || o.TournamentSize > o.PopulationSize:
		return optimization.NewErrorf(optimization.KindInvalidConfiguration,
			"GA_TOURNAMENT_SIZE must be in [1,%d], got %d", o.PopulationSize, o.TournamentSize)
	case o.EvalWorkers < 1:
		return optimization.NewErrorf(optimization.KindInvalidConfiguration,
			"GA_EVAL_WORKERS must be positive, got %d", o.EvalWorkers)
	}
	return nil
}

// RunConfig translates the configured GA defaults into a run configuration.
func (c *Config) RunConfig() optimization.RunConfig {
	return optimization.RunConfig{
		PopulationSize: c.Optimization.PopulationSize,
		CrossoverRate:  c.Optimization.CrossoverRate,
		MutationRate:   c.Optimization.MutationRate,
		Generations:    c.Optimization.Generations,
		TournamentSize: c.Optimization.TournamentSize,
		Seed:           c.Optimization.Seed,
		EvalWorkers:    c.Optimization.EvalWorkers,
	}
}
