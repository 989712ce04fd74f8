package genetic

import (
	"math"
	"math/rand"
	"testing"

	"github.com/copyleftdev/OCTANE/internal/optimization"
)

const sumTolerance = 1e-9

func assertValidCandidate(t *testing.T, c Candidate, n int) {
	t.Helper()

	if len(c) != n {
		t.Fatalf("expected %d components, got %d", n, len(c))
	}
	sum := 0.0
	for i, v := range c {
		if v < 0 {
			t.Fatalf("component %d is negative: %v", i, v)
		}
		sum += v
	}
	if math.Abs(sum-1.0) > sumTolerance {
		t.Fatalf("components sum to %v, want 1.0", sum)
	}
}

func TestRandomCandidate(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		assertValidCandidate(t, RandomCandidate(4, rng), 4)
	}
}

func TestNewPopulation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	pop := NewPopulation(50, 4, rng)
	if len(pop) != 50 {
		t.Fatalf("expected 50 candidates, got %d", len(pop))
	}
	for _, c := range pop {
		assertValidCandidate(t, c, 4)
	}
}

func TestNormalizeDegenerate(t *testing.T) {
	c := Candidate{0, 0, 0, 0}
	err := c.normalize()
	if !optimization.IsKind(err, optimization.KindDegenerateRenormalization) {
		t.Fatalf("expected degenerate renormalization error, got %v", err)
	}
}

func TestTournamentSelect(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pop := NewPopulation(8, 4, rng)
	fitness := []float64{5, 3, 8, 1, 9, 4, 6, 2}

	// With far more draws than candidates the minimizer is sampled with
	// near certainty, so the tournament must return it.
	selected := tournamentSelect(pop, fitness, 256, rng)
	for i, v := range selected {
		if v != pop[3][i] {
			t.Fatalf("expected the fitness minimizer to win, got candidate %v", selected)
		}
	}

	// The winner is a copy, not an alias into the population.
	selected[0] += 1
	assertValidCandidate(t, pop[3], 4)
}

func TestCrossover(t *testing.T) {
	parent1 := Candidate{0.5, 0.5, 0, 0}
	parent2 := Candidate{0, 0, 0.5, 0.5}

	t.Run("rate zero returns parent1 copy", func(t *testing.T) {
		rng := rand.New(rand.NewSource(3))
		for i := 0; i < 100; i++ {
			child, err := crossover(parent1, parent2, 0, rng)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for j := range child {
				if child[j] != parent1[j] {
					t.Fatalf("expected a copy of parent1, got %v", child)
				}
			}
		}
	})

	t.Run("rate one recombines within the parents' support", func(t *testing.T) {
		rng := rand.New(rand.NewSource(3))
		for i := 0; i < 1000; i++ {
			child, err := crossover(parent1, parent2, 1, rng)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertValidCandidate(t, child, 4)
			for j := range child {
				if child[j] != 0 && parent1[j] == 0 && parent2[j] == 0 {
					t.Fatalf("child has support outside both parents at %d: %v", j, child)
				}
			}
		}
	})

	t.Run("child is independent of parents", func(t *testing.T) {
		rng := rand.New(rand.NewSource(3))
		child, err := crossover(parent1, parent2, 0, rng)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		child[0] = 99
		if parent1[0] == 99 {
			t.Fatal("crossover aliased parent1's storage")
		}
	})
}

func TestMutate(t *testing.T) {
	base := Candidate{0.25, 0.25, 0.25, 0.25}

	t.Run("rate zero leaves the candidate unchanged", func(t *testing.T) {
		rng := rand.New(rand.NewSource(5))
		out, err := mutate(base, 0, rng)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i := range out {
			if out[i] != base[i] {
				t.Fatalf("expected unchanged candidate, got %v", out)
			}
		}
	})

	t.Run("rate one keeps the invariant", func(t *testing.T) {
		rng := rand.New(rand.NewSource(5))
		for i := 0; i < 1000; i++ {
			out, err := mutate(base, 1, rng)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertValidCandidate(t, out, 4)
		}
	})

	t.Run("input candidate is not modified", func(t *testing.T) {
		rng := rand.New(rand.NewSource(5))
		for i := 0; i < 100; i++ {
			if _, err := mutate(base, 1, rng); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		for i := range base {
			if base[i] != 0.25 {
				t.Fatalf("mutate modified its input: %v", base)
			}
		}
	})

	t.Run("perturbs at most one gene", func(t *testing.T) {
		rng := rand.New(rand.NewSource(5))
		for i := 0; i < 200; i++ {
			out, err := mutate(base, 1, rng)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			// One gene moves, then renormalization rescales all of them by a
			// common factor; so the ratios between untouched genes stay 1.
			distinct := map[float64]int{}
			for _, v := range out {
				distinct[v]++
			}
			// At least three of the four equal-valued genes remain equal.
			maxCount := 0
			for _, c := range distinct {
				if c > maxCount {
					maxCount = c
				}
			}
			if maxCount < 3 {
				t.Fatalf("more than one gene perturbed: %v", out)
			}
		}
	})
}
