package models

import "time"

// Canonical feature column names. Rolling and trend columns are generated from
// these bases by the feature engineer.
const (
	ColReviewCount        = "review_count"
	ColAvgScore           = "avg_score"
	ColAvgDescriptorScore = "avg_descriptor_score"
	ColScoreStd           = "score_std"
	ColPctCollaborative   = "pct_collaborative"
	ColPctNeutral         = "pct_neutral"
	ColPctWithdrawn       = "pct_withdrawn"
	ColPctBlocking        = "pct_blocking"
	ColCommentRatio       = "comment_ratio"
	ColHasComments        = "has_comments"
	ColCompositeScore     = "composite_score"
)

// FeatureRow is one (employee, day) slice of the feature table. Values holds
// every numeric feature keyed by column name; identity fields stay outside the
// vector so they can never leak into a model.
type FeatureRow struct {
	EmployeeID string             `json:"employee_id"`
	Date       time.Time          `json:"date"`
	Values     map[string]float64 `json:"values"`
}

// Value returns the named feature, or 0 when the column is absent.
func (r FeatureRow) Value(col string) float64 {
	return r.Values[col]
}

// Vector projects the row onto an ordered column schema. Missing columns read
// as 0 and the count of misses is returned so callers can log schema drift.
func (r FeatureRow) Vector(schema []string) ([]float64, int) {
	vec := make([]float64, len(schema))
	missing := 0
	for i, col := range schema {
		v, ok := r.Values[col]
		if !ok {
			missing++
			continue
		}
		vec[i] = v
	}
	return vec, missing
}

// FeatureTable is the engineered feature matrix, ordered by (employee, date)
// ascending. Columns records the canonical column order shared by all rows.
type FeatureTable struct {
	Columns []string     `json:"columns"`
	Rows    []FeatureRow `json:"rows"`
}

// Empty reports whether the table carries no rows.
func (t FeatureTable) Empty() bool { return len(t.Rows) == 0 }

// DateRange returns the earliest and latest row dates. Zero times when empty.
func (t FeatureTable) DateRange() (time.Time, time.Time) {
	if t.Empty() {
		return time.Time{}, time.Time{}
	}
	min, max := t.Rows[0].Date, t.Rows[0].Date
	for _, row := range t.Rows[1:] {
		if row.Date.Before(min) {
			min = row.Date
		}
		if row.Date.After(max) {
			max = row.Date
		}
	}
	return min, max
}

// Column collects one column across all rows, absent values reading as 0.
func (t FeatureTable) Column(col string) []float64 {
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row.Value(col)
	}
	return out
}
