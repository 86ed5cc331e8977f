package features

import "github.com/nimb-ou/peer-review-system/internal/models"

// normEpsilon guards min-max denominators against zero-variance columns.
const normEpsilon = 1e-8

// compositeWeight pairs a contributing feature with its fixed weight.
type compositeWeight struct {
	Column string
	Weight float64
}

// CompositeWeights is the fixed blend behind the composite behavioral score.
// Each contribution is min-max normalized across the current table before
// weighting, and the blended sum is min-max rescaled into [1,5]. The score is
// therefore relative to the population the table was built from: retraining
// on a different population shifts the distribution. That is intentional and
// must not be replaced with an absolute scale.
var CompositeWeights = []compositeWeight{
	{Column: models.ColAvgScore, Weight: 0.30},
	{Column: models.ColPctCollaborative, Weight: 0.25},
	{Column: models.ColPctWithdrawn, Weight: -0.15},
	{Column: models.ColPctBlocking, Weight: -0.20},
	{Column: VolatilityColumn(7), Weight: -0.10},
}

// AttachCompositeScore computes the composite score for every row and stores
// it under the composite_score column. Empty tables are a no-op; a constant
// column normalizes to 0 through the epsilon guard rather than erroring.
func AttachCompositeScore(table *models.FeatureTable) {
	if table == nil || table.Empty() {
		return
	}

	blended := make([]float64, len(table.Rows))
	for _, cw := range CompositeWeights {
		col := table.Column(cw.Column)
		lo, hi := minMax(col)
		for i, v := range col {
			blended[i] += cw.Weight * (v - lo) / (hi - lo + normEpsilon)
		}
	}

	lo, hi := minMax(blended)
	for i, row := range table.Rows {
		row.Values[models.ColCompositeScore] = 1 + 4*(blended[i]-lo)/(hi-lo+normEpsilon)
	}
	if !hasColumn(table.Columns, models.ColCompositeScore) {
		table.Columns = append(table.Columns, models.ColCompositeScore)
	}
}

func minMax(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func hasColumn(cols []string, name string) bool {
	for _, c := range cols {
		if c == name {
			return true
		}
	}
	return false
}
