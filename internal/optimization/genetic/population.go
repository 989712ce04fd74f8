// Package genetic implements a genetic-algorithm optimizer over normalized
// proportion vectors, with tournament selection, uniform-mask crossover,
// single-gene Gaussian mutation and one-slot elitism.
package genetic

import (
	"math"
	"math/rand"

	"github.com/copyleftdev/OCTANE/internal/optimization"
)

// mutationSigma is the standard deviation of the Gaussian perturbation
// applied to a single gene during mutation.
const mutationSigma = 0.1

// Candidate is a proportion vector. Its components are non-negative and sum
// to one whenever the candidate is observed outside an operator.
type Candidate []float64

// Clone returns an independent copy of the candidate.
func (c Candidate) Clone() Candidate {
	out := make(Candidate, len(c))
	copy(out, c)
	return out
}

// normalize scales the candidate in place so its components sum to one.
// A zero sum cannot be renormalized and reports a degenerate state.
func (c Candidate) normalize() error {
	sum := 0.0
	for _, v := range c {
		sum += v
	}
	if sum == 0 || math.IsNaN(sum) {
		return optimization.NewError(optimization.KindDegenerateRenormalization,
			"candidate components sum to zero").
			WithComponent("genetic").WithOperation("normalize")
	}
	for i := range c {
		c[i] /= sum
	}
	return nil
}

// RandomCandidate draws n independent uniform values in [0,1) and normalizes
// them, so the sum-to-one invariant holds by construction.
func RandomCandidate(n int, rng *rand.Rand) Candidate {
	c := make(Candidate, n)
	for i := range c {
		c[i] = rng.Float64()
	}
	// An all-zero draw has probability zero under a continuous uniform.
	_ = c.normalize()
	return c
}

// Population is the ordered set of candidates of one generation.
type Population []Candidate

// NewPopulation creates size independent random candidates of n components.
func NewPopulation(size, n int, rng *rand.Rand) Population {
	pop := make(Population, size)
	for i := range pop {
		pop[i] = RandomCandidate(n, rng)
	}
	return pop
}

// tournamentSelect draws k indices uniformly with replacement and returns a
// copy of the fittest candidate among them. Ties keep the first occurrence
// of the minimum.
func tournamentSelect(pop Population, fitness []float64, k int, rng *rand.Rand) Candidate {
	bestIdx := rng.Intn(len(pop))
	for i := 1; i < k; i++ {
		idx := rng.Intn(len(pop))
		if fitness[idx] < fitness[bestIdx] {
			bestIdx = idx
		}
	}
	return pop[bestIdx].Clone()
}

// crossover recombines two parents with probability rate: each position of
// the child independently takes parent1's or parent2's value, and the child
// is renormalized. Otherwise it returns an unchanged copy of parent1.
func crossover(parent1, parent2 Candidate, rate float64, rng *rand.Rand) (Candidate, error) {
	if rng.Float64() >= rate {
		return parent1.Clone(), nil
	}
	child := make(Candidate, len(parent1))
	for i := range child {
		if rng.Float64() < 0.5 {
			child[i] = parent1[i]
		} else {
			child[i] = parent2[i]
		}
	}
	if err := child.normalize(); err != nil {
		return nil, err
	}
	return child, nil
}

// mutate perturbs one uniformly chosen gene with Gaussian noise with
// probability rate, takes absolute values and renormalizes. Exactly one gene
// is perturbed per mutation event. The input candidate is never modified.
func mutate(c Candidate, rate float64, rng *rand.Rand) (Candidate, error) {
	if rng.Float64() >= rate {
		return c, nil
	}
	out := c.Clone()
	idx := rng.Intn(len(out))
	out[idx] += rng.NormFloat64() * mutationSigma
	for i := range out {
		out[i] = math.Abs(out[i])
	}
	if err := out.normalize(); err != nil {
		return nil, err
	}
	return out, nil
}
