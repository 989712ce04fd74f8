package blend

import (
	"math"
	"testing"

	"github.com/copyleftdev/OCTANE/internal/optimization"
)

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	eval, err := NewEvaluator(DefaultComponents(), DefaultQualitySpec(), DefaultPenaltyWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return eval
}

func TestProperties(t *testing.T) {
	eval := newTestEvaluator(t)

	tests := []struct {
		name        string
		proportions []float64
		expected    Properties
	}{
		{
			name:        "equal blend",
			proportions: []float64{0.25, 0.25, 0.25, 0.25},
			expected: Properties{
				Octane:        90,
				VaporPressure: 60.5,
				Benzene:       1.8,
				Sulfur:        47.5,
			},
		},
		{
			name:        "pure first component",
			proportions: []float64{1, 0, 0, 0},
			expected: Properties{
				Octane:        95,
				VaporPressure: 65,
				Benzene:       2.5,
				Sulfur:        60,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			props, err := eval.Properties(tt.proportions)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(props.Octane-tt.expected.Octane) > 1e-12 {
				t.Errorf("octane: expected %v, got %v", tt.expected.Octane, props.Octane)
			}
			if math.Abs(props.VaporPressure-tt.expected.VaporPressure) > 1e-12 {
				t.Errorf("vapor pressure: expected %v, got %v", tt.expected.VaporPressure, props.VaporPressure)
			}
			if math.Abs(props.Benzene-tt.expected.Benzene) > 1e-12 {
				t.Errorf("benzene: expected %v, got %v", tt.expected.Benzene, props.Benzene)
			}
			if math.Abs(props.Sulfur-tt.expected.Sulfur) > 1e-12 {
				t.Errorf("sulfur: expected %v, got %v", tt.expected.Sulfur, props.Sulfur)
			}
		})
	}
}

func TestCost(t *testing.T) {
	eval := newTestEvaluator(t)

	cost, err := eval.Cost([]float64{0.25, 0.25, 0.25, 0.25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(cost-2.525) > 1e-12 {
		t.Errorf("expected 2.525, got %v", cost)
	}
}

func TestPenalty(t *testing.T) {
	eval := newTestEvaluator(t)

	tests := []struct {
		name        string
		proportions []float64
		expected    float64
	}{
		{
			// octane 91.1, vapor 61.25, benzene 1.975, sulfur 49.75
			name:        "feasible blend has zero penalty",
			proportions: []float64{0.55, 0.2, 0.25, 0},
			expected:    0,
		},
		{
			// octane deficit of 1 at weight 100
			name:        "equal blend misses octane",
			proportions: []float64{0.25, 0.25, 0.25, 0.25},
			expected:    100,
		},
		{
			// vapor +3*50, benzene +0.5*200, sulfur +10*150; octane satisfied
			name:        "multiple violations compound additively",
			proportions: []float64{1, 0, 0, 0},
			expected:    150 + 100 + 1500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			penalty, err := eval.Penalty(tt.proportions)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(penalty-tt.expected) > 1e-9 {
				t.Errorf("expected penalty %v, got %v", tt.expected, penalty)
			}
		})
	}
}

func TestPenaltyMonotoneInViolation(t *testing.T) {
	// Two components differing only in octane, everything else feasible and
	// constant, so the octane deficit is the only moving part.
	table := &ComponentTable{
		Cost:          []float64{2.0, 2.0},
		Octane:        []float64{95, 80},
		VaporPressure: []float64{60, 60},
		Benzene:       []float64{1.0, 1.0},
		Sulfur:        []float64{40, 40},
	}
	eval, err := NewEvaluator(table, DefaultQualitySpec(), DefaultPenaltyWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prev := -1.0
	for _, share := range []float64{0, 0.2, 0.4, 0.6, 0.8, 1.0} {
		penalty, err := eval.Penalty([]float64{1 - share, share})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if penalty < prev {
			t.Fatalf("penalty decreased from %v to %v as the octane deficit grew", prev, penalty)
		}
		prev = penalty
	}
}

func TestFitness(t *testing.T) {
	eval := newTestEvaluator(t)

	fitness, err := eval.Fitness([]float64{0.25, 0.25, 0.25, 0.25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(fitness-102.525) > 1e-9 {
		t.Errorf("expected 102.525, got %v", fitness)
	}
}

func TestInvalidCandidate(t *testing.T) {
	eval := newTestEvaluator(t)

	for _, proportions := range [][]float64{
		nil,
		{0.5, 0.5},
		{0.2, 0.2, 0.2, 0.2, 0.2},
		{0, 0, 0, 0},
		{0.5, 0.5, -0.5, -0.5},
	} {
		if _, err := eval.Fitness(proportions); !optimization.IsKind(err, optimization.KindInvalidCandidate) {
			t.Errorf("%v: expected invalid candidate error, got %v", proportions, err)
		}
	}
}

func TestComponentTableValidate(t *testing.T) {
	tests := []struct {
		name    string
		table   *ComponentTable
		wantErr bool
	}{
		{
			name:    "default table",
			table:   DefaultComponents(),
			wantErr: false,
		},
		{
			name:    "empty table",
			table:   &ComponentTable{},
			wantErr: true,
		},
		{
			name: "ragged columns",
			table: &ComponentTable{
				Cost:          []float64{1, 2},
				Octane:        []float64{90},
				VaporPressure: []float64{60, 60},
				Benzene:       []float64{1, 1},
				Sulfur:        []float64{40, 40},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if tt.wantErr && !optimization.IsKind(err, optimization.KindInvalidConfiguration) {
				t.Fatalf("expected invalid configuration error, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
