package vafile

import (
	"fmt"

	"github.com/therealutkarshpriyadarshi/vafile/internal/marks"
)

// CostEstimateInput is what a planner would supply to cost_estimate.
type CostEstimateInput struct {
	Limit          int
	Offset         int
	TableRows      int64
	IndexRows      int64
	UserDisabled   bool
}

// CostEstimate is the planner-facing output from section 6. Disabled is the
// "sentinel" the spec describes: set whenever the scan would be a poor plan
// choice (no limit, an offset, an oversized limit, or an explicit disable).
type CostEstimate struct {
	StartupCost float64
	TotalCost   float64
	Selectivity float64
	Correlation float64
	Disabled    bool
}

// perTupleCost approximates the cost of evaluating one tuple's bound during
// a scan; not calibrated against any real planner, simply monotone in the
// inputs cost_estimate is supposed to react to.
const perTupleCost = 0.01

// CostEstimate implements the planner-facing estimate from section 6.
// Equifrequent marks are preferred by roughly 1%, matching the spec's note
// that equifrequent partitioning tends to produce tighter bounds on skewed
// data and so is worth a small preference in plan choice.
func (idx *Index) CostEstimate(in CostEstimateInput) CostEstimate {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	disabled := in.UserDisabled ||
		in.Limit <= 0 ||
		in.Offset > 0 ||
		(in.Limit > 500 && in.TableRows > 0 && float64(in.Limit) > 0.1*float64(in.TableRows))

	tableRows := in.TableRows
	if tableRows == 0 {
		tableRows = idx.reltuples
	}

	startup := perTupleCost * float64(idx.dim)
	total := startup + perTupleCost*float64(tableRows)
	if idx.strategy == marks.EquiFrequent {
		total *= 0.99
	}

	selectivity := 1.0
	if tableRows > 0 && in.Limit > 0 {
		selectivity = float64(in.Limit) / float64(tableRows)
		if selectivity > 1 {
			selectivity = 1
		}
	}

	return CostEstimate{
		StartupCost: startup,
		TotalCost:   total,
		Selectivity: selectivity,
		Correlation: 0,
		Disabled:    disabled,
	}
}

// CanReturn is always false: this index never supports index-only scans,
// per the explicit non-goal.
func (idx *Index) CanReturn() bool { return false }

// BuildEmpty implements section 6's buildempty() hook: a VA-File index only
// ever gets built against a sampled batch of rows (see Build), so it has
// nothing sensible to do for an unlogged relation's empty initial fork and
// always fails.
func (idx *Index) BuildEmpty() error {
	return fmt.Errorf("buildempty is not supported: unlogged VA-File relations are not supported")
}

// Options recognized by this index, section 6.
type Options struct {
	VAMarks marks.Strategy
}
