// Package blend holds the fuel component data, quality specification and
// the evaluator that scores candidate blends against them.
package blend

import (
	"github.com/copyleftdev/OCTANE/internal/optimization"
)

// ComponentTable holds the per-component cost and quality columns. Columns
// are parallel slices indexed consistently with candidate proportion vectors.
// The table is immutable for the lifetime of a run.
type ComponentTable struct {
	// Names labels the components for reporting.
	Names []string
	// Cost is the component cost in currency per volume unit.
	Cost []float64
	// Octane is the research octane number of each component.
	Octane []float64
	// VaporPressure is the Reid vapor pressure in kPa.
	VaporPressure []float64
	// Benzene is the benzene content in % v/v.
	Benzene []float64
	// Sulfur is the sulfur content in ppm.
	Sulfur []float64
}

// Components returns the number of blend components in the table.
func (t *ComponentTable) Components() int {
	return len(t.Cost)
}

// Validate checks that the table is non-empty and its columns are parallel.
func (t *ComponentTable) Validate() error {
	n := len(t.Cost)
	if n == 0 {
		return optimization.NewError(optimization.KindInvalidConfiguration,
			"component table is empty").WithComponent("blend")
	}
	if len(t.Octane) != n || len(t.VaporPressure) != n || len(t.Benzene) != n || len(t.Sulfur) != n {
		return optimization.NewErrorf(optimization.KindInvalidConfiguration,
			"component table columns are not parallel (cost has %d entries)", n).
			WithComponent("blend")
	}
	if t.Names != nil && len(t.Names) != n {
		return optimization.NewErrorf(optimization.KindInvalidConfiguration,
			"component table has %d names for %d components", len(t.Names), n).
			WithComponent("blend")
	}
	return nil
}

// QualitySpec holds the blend quality thresholds. Octane is a minimum
// constraint; the remaining three are maximums.
type QualitySpec struct {
	MinOctane        float64
	MaxVaporPressure float64
	MaxBenzene       float64
	MaxSulfur        float64
}

// PenaltyWeights maps each constraint to the multiplier applied to its
// violation magnitude.
type PenaltyWeights struct {
	OctaneDeficit float64
	VaporExcess   float64
	BenzeneExcess float64
	SulfurExcess  float64
}

// DefaultComponents returns the reference four-component gasoline table.
func DefaultComponents() *ComponentTable {
	return &ComponentTable{
		Names:         []string{"C1", "C2", "C3", "C4"},
		Cost:          []float64{2.50, 3.00, 1.80, 2.80},
		Octane:        []float64{95, 88, 85, 92},
		VaporPressure: []float64{65, 55, 58, 64},
		Benzene:       []float64{2.5, 1.5, 1.2, 2.0},
		Sulfur:        []float64{60, 40, 35, 55},
	}
}

// DefaultQualitySpec returns the reference blend specification.
func DefaultQualitySpec() QualitySpec {
	return QualitySpec{
		MinOctane:        91,
		MaxVaporPressure: 62,
		MaxBenzene:       2.0,
		MaxSulfur:        50,
	}
}

// DefaultPenaltyWeights returns the reference constraint weighting. Any
// violation outweighs the cost differences between feasible blends.
func DefaultPenaltyWeights() PenaltyWeights {
	return PenaltyWeights{
		OctaneDeficit: 100,
		VaporExcess:   50,
		BenzeneExcess: 200,
		SulfurExcess:  150,
	}
}
