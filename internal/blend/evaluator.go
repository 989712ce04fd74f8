package blend

import (
	"gonum.org/v1/gonum/floats"

	"github.com/copyleftdev/OCTANE/internal/optimization"
)

// Properties holds the blended quality attributes of a candidate.
type Properties struct {
	Octane        float64
	VaporPressure float64
	Benzene       float64
	Sulfur        float64
}

// Evaluator scores candidate blends against a component table and a quality
// specification. It is stateless apart from the immutable inputs and safe
// for concurrent use.
type Evaluator struct {
	table   *ComponentTable
	spec    QualitySpec
	weights PenaltyWeights
}

// NewEvaluator creates an evaluator over the given table, spec and weights.
func NewEvaluator(table *ComponentTable, spec QualitySpec, weights PenaltyWeights) (*Evaluator, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{
		table:   table,
		spec:    spec,
		weights: weights,
	}, nil
}

// Table returns the component table the evaluator scores against.
func (e *Evaluator) Table() *ComponentTable {
	return e.table
}

// Spec returns the quality specification the evaluator scores against.
func (e *Evaluator) Spec() QualitySpec {
	return e.spec
}

// checkCandidate rejects proportion vectors whose length does not match the
// component table or whose components sum to a non-positive value. Operators
// upstream maintain the sum-to-one invariant.
func (e *Evaluator) checkCandidate(proportions []float64) error {
	if len(proportions) != e.table.Components() {
		return optimization.NewErrorf(optimization.KindInvalidCandidate,
			"candidate has %d proportions, component table has %d",
			len(proportions), e.table.Components()).
			WithComponent("blend").WithOperation("evaluate")
	}
	sum := 0.0
	for _, v := range proportions {
		sum += v
	}
	if sum <= 0 {
		return optimization.NewErrorf(optimization.KindInvalidCandidate,
			"candidate proportions sum to %v", sum).
			WithComponent("blend").WithOperation("evaluate")
	}
	return nil
}

// Properties computes the blended quality attributes of a candidate as the
// dot product of its proportions with each component column.
func (e *Evaluator) Properties(proportions []float64) (Properties, error) {
	if err := e.checkCandidate(proportions); err != nil {
		return Properties{}, err
	}
	return Properties{
		Octane:        floats.Dot(proportions, e.table.Octane),
		VaporPressure: floats.Dot(proportions, e.table.VaporPressure),
		Benzene:       floats.Dot(proportions, e.table.Benzene),
		Sulfur:        floats.Dot(proportions, e.table.Sulfur),
	}, nil
}

// Cost computes the blended cost of a candidate.
func (e *Evaluator) Cost(proportions []float64) (float64, error) {
	if err := e.checkCandidate(proportions); err != nil {
		return 0, err
	}
	return floats.Dot(proportions, e.table.Cost), nil
}

// Penalty computes the weighted sum of constraint violations. Each violated
// constraint contributes its weight times the violation magnitude; multiple
// violations compound additively. Feasible candidates score zero.
func (e *Evaluator) Penalty(proportions []float64) (float64, error) {
	props, err := e.Properties(proportions)
	if err != nil {
		return 0, err
	}
	penalty := 0.0
	if props.Octane < e.spec.MinOctane {
		penalty += e.weights.OctaneDeficit * (e.spec.MinOctane - props.Octane)
	}
	if props.VaporPressure > e.spec.MaxVaporPressure {
		penalty += e.weights.VaporExcess * (props.VaporPressure - e.spec.MaxVaporPressure)
	}
	if props.Benzene > e.spec.MaxBenzene {
		penalty += e.weights.BenzeneExcess * (props.Benzene - e.spec.MaxBenzene)
	}
	if props.Sulfur > e.spec.MaxSulfur {
		penalty += e.weights.SulfurExcess * (props.Sulfur - e.spec.MaxSulfur)
	}
	return penalty, nil
}

// Fitness is the objective minimized by the search: blended cost plus the
// constraint penalty.
func (e *Evaluator) Fitness(proportions []float64) (float64, error) {
	cost, err := e.Cost(proportions)
	if err != nil {
		return 0, err
	}
	penalty, err := e.Penalty(proportions)
	if err != nil {
		return 0, err
	}
	return cost + penalty, nil
}

// Compliance reports whether each constraint is satisfied by the given
// blended properties.
type Compliance struct {
	Octane        bool
	VaporPressure bool
	Benzene       bool
	Sulfur        bool
}

// Satisfied reports whether all four constraints hold.
func (c Compliance) Satisfied() bool {
	return c.Octane && c.VaporPressure && c.Benzene && c.Sulfur
}

// Check evaluates the quality constraints for the given blended properties.
func (e *Evaluator) Check(props Properties) Compliance {
	return Compliance{
		Octane:        props.Octane >= e.spec.MinOctane,
		VaporPressure: props.VaporPressure <= e.spec.MaxVaporPressure,
		Benzene:       props.Benzene <= e.spec.MaxBenzene,
		Sulfur:        props.Sulfur <= e.spec.MaxSulfur,
	}
}
