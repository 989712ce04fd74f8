// Package report renders optimization results for human consumption.
// It is purely presentational: the core values are consumed verbatim and all
// rounding happens here.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/copyleftdev/OCTANE/internal/blend"
	"github.com/copyleftdev/OCTANE/internal/optimization"
)

// ComponentShare describes one component's contribution to the blend.
type ComponentShare struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
	CostShare  float64 `json:"cost_share"`
}

// Report is the compliance summary for a solved blend.
type Report struct {
	Shares     []ComponentShare `json:"shares"`
	TotalCost  float64          `json:"total_cost"`
	Penalty    float64          `json:"penalty"`
	Fitness    float64          `json:"fitness"`
	Properties blend.Properties `json:"properties"`
	Compliance blend.Compliance `json:"compliance"`
}

// Build computes the compliance report for a solution against the
// evaluator's component table and specification.
func Build(eval *blend.Evaluator, sol *optimization.Solution) (*Report, error) {
	props, err := eval.Properties(sol.Proportions)
	if err != nil {
		return nil, err
	}
	cost, err := eval.Cost(sol.Proportions)
	if err != nil {
		return nil, err
	}
	penalty, err := eval.Penalty(sol.Proportions)
	if err != nil {
		return nil, err
	}

	table := eval.Table()
	shares := make([]ComponentShare, table.Components())
	for i := range shares {
		name := fmt.Sprintf("C%d", i+1)
		if table.Names != nil {
			name = table.Names[i]
		}
		shares[i] = ComponentShare{
			Name:       name,
			Percentage: sol.Proportions[i] * 100,
			CostShare:  sol.Proportions[i] * table.Cost[i],
		}
	}

	return &Report{
		Shares:     shares,
		TotalCost:  cost,
		Penalty:    penalty,
		Fitness:    sol.Fitness,
		Properties: props,
		Compliance: eval.Check(props),
	}, nil
}

func mark(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

// Render writes the report as a human-readable text block.
func (r *Report) Render(w io.Writer, spec blend.QualitySpec) error {
	var b strings.Builder
	rule := strings.Repeat("=", 70)

	b.WriteString(rule + "\n")
	b.WriteString("OPTIMIZATION RESULTS\n")
	b.WriteString(rule + "\n\n")

	b.WriteString("Optimal blend composition:\n")
	for _, s := range r.Shares {
		fmt.Fprintf(&b, "  %-4s %6.2f%%  (cost share %.4f/L)\n", s.Name+":", s.Percentage, s.CostShare)
	}
	fmt.Fprintf(&b, "\nTotal blend cost: %.4f/L\n", r.TotalCost)

	b.WriteString("\nBlend properties:\n")
	fmt.Fprintf(&b, "  Octane:         %7.2f RON  (min %.2f)  %s\n",
		r.Properties.Octane, spec.MinOctane, mark(r.Compliance.Octane))
	fmt.Fprintf(&b, "  Vapor pressure: %7.2f kPa  (max %.2f)  %s\n",
		r.Properties.VaporPressure, spec.MaxVaporPressure, mark(r.Compliance.VaporPressure))
	fmt.Fprintf(&b, "  Benzene:        %7.2f %%v/v (max %.2f)  %s\n",
		r.Properties.Benzene, spec.MaxBenzene, mark(r.Compliance.Benzene))
	fmt.Fprintf(&b, "  Sulfur:         %7.2f ppm  (max %.2f)  %s\n",
		r.Properties.Sulfur, spec.MaxSulfur, mark(r.Compliance.Sulfur))

	if r.Compliance.Satisfied() {
		b.WriteString("\nAll specifications satisfied.\n")
	} else {
		b.WriteString("\nSome specifications are not satisfied.\n")
	}
	b.WriteString(rule + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteTrajectoryCSV exports the per-generation trajectory as CSV with a
// header row, for external plotting of the convergence curve.
func WriteTrajectoryCSV(w io.Writer, trajectory []optimization.GenerationStat) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"generation", "best_fitness", "mean_fitness"}); err != nil {
		return err
	}
	for _, s := range trajectory {
		rec := []string{
			strconv.Itoa(s.Generation),
			strconv.FormatFloat(s.BestFitness, 'g', -1, 64),
			strconv.FormatFloat(s.MeanFitness, 'g', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
