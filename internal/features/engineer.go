// Package features turns raw review events into the engineered feature table
// consumed by the scoring models.
package features

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/nimb-ou/peer-review-system/internal/models"
)

// Rolling window sizes in days, and the subset used for trend deltas.
var (
	rollingWindows = []int{3, 7, 14}
	trendWindows   = []int{7, 14}
)

// Engineer aggregates events into per-(employee, day) feature rows and
// derives rolling statistics along each employee's timeline.
type Engineer struct{}

// NewEngineer constructs a feature engineer.
func NewEngineer() *Engineer {
	return &Engineer{}
}

// BuildTable converts an unordered batch of events into the feature table.
// An empty input yields an empty table; an event violating the upstream
// contract (unknown descriptor, score outside [1,5]) is a validation error.
func (e *Engineer) BuildTable(events []models.ReviewEvent) (models.FeatureTable, error) {
	table := models.FeatureTable{Columns: ColumnOrder()}
	if len(events) == 0 {
		return table, nil
	}

	type groupKey struct {
		employee string
		date     time.Time
	}
	groups := make(map[groupKey][]models.ReviewEvent)
	for _, ev := range events {
		if err := ev.Validate(); err != nil {
			return models.FeatureTable{}, fmt.Errorf("invalid review event: %w", err)
		}
		key := groupKey{employee: ev.RevieweeID, date: models.Day(ev.Date)}
		groups[key] = append(groups[key], ev)
	}

	rows := make([]models.FeatureRow, 0, len(groups))
	for key, group := range groups {
		rows = append(rows, dailyRow(key.employee, key.date, group))
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].EmployeeID != rows[j].EmployeeID {
			return rows[i].EmployeeID < rows[j].EmployeeID
		}
		return rows[i].Date.Before(rows[j].Date)
	})

	addRollingFeatures(rows)
	for _, row := range rows {
		sanitize(row.Values)
	}

	table.Rows = rows
	return table, nil
}

// dailyRow aggregates all inbound events for one employee on one day.
func dailyRow(employee string, date time.Time, group []models.ReviewEvent) models.FeatureRow {
	n := float64(len(group))
	values := make(map[string]float64, len(ColumnOrder()))

	scoreSum := 0.0
	descriptorSum := 0.0
	commented := 0.0
	for _, ev := range group {
		scoreSum += float64(ev.Score)
		descriptorSum += ev.Descriptor.Weight()
		if len(ev.Comment) > 0 {
			commented++
		}
	}
	mean := scoreSum / n

	// Sample standard deviation, zero for a single review.
	std := 0.0
	if len(group) > 1 {
		ss := 0.0
		for _, ev := range group {
			d := float64(ev.Score) - mean
			ss += d * d
		}
		std = math.Sqrt(ss / (n - 1))
	}

	values[models.ColReviewCount] = n
	values[models.ColAvgScore] = mean
	values[models.ColAvgDescriptorScore] = descriptorSum / n
	values[models.ColScoreStd] = std

	for _, d := range models.Descriptors {
		count := 0.0
		for _, ev := range group {
			if ev.Descriptor == d {
				count++
			}
		}
		values[descriptorColumn(d)] = count / n
	}

	for s := 1; s <= 5; s++ {
		count := 0.0
		for _, ev := range group {
			if ev.Score == s {
				count++
			}
		}
		values[scoreColumn(s)] = count / n
	}

	values[models.ColCommentRatio] = commented / n
	if commented > 0 {
		values[models.ColHasComments] = 1
	} else {
		values[models.ColHasComments] = 0
	}

	return models.FeatureRow{EmployeeID: employee, Date: date, Values: values}
}

// addRollingFeatures computes trailing window statistics and trend deltas per
// employee. Rows must already be sorted by (employee, date); the walk along
// one employee's timeline is order dependent and must stay sequential.
func addRollingFeatures(rows []models.FeatureRow) {
	start := 0
	for start < len(rows) {
		end := start
		for end < len(rows) && rows[end].EmployeeID == rows[start].EmployeeID {
			end++
		}
		employeeRolling(rows[start:end])
		start = end
	}
}

func employeeRolling(rows []models.FeatureRow) {
	scores := make([]float64, len(rows))
	collab := make([]float64, len(rows))
	withdrawn := make([]float64, len(rows))
	for i, row := range rows {
		scores[i] = row.Value(models.ColAvgScore)
		collab[i] = row.Value(models.ColPctCollaborative)
		withdrawn[i] = row.Value(models.ColPctWithdrawn)
	}

	rollingScore := make(map[int][]float64, len(rollingWindows))
	rollingCollab := make(map[int][]float64, len(rollingWindows))
	for _, w := range rollingWindows {
		scoreMeans := rollingMean(scores, w)
		collabMeans := rollingMean(collab, w)
		withdrawnMeans := rollingMean(withdrawn, w)
		volatility := rollingStd(scores, w)
		rollingScore[w] = scoreMeans
		rollingCollab[w] = collabMeans
		for i := range rows {
			rows[i].Values[rollingColumn(models.ColAvgScore, w)] = scoreMeans[i]
			rows[i].Values[rollingColumn(models.ColPctCollaborative, w)] = collabMeans[i]
			rows[i].Values[rollingColumn(models.ColPctWithdrawn, w)] = withdrawnMeans[i]
			rows[i].Values[volatilityColumn(w)] = volatility[i]
		}
	}

	for _, w := range trendWindows {
		scoreMeans := rollingScore[w]
		collabMeans := rollingCollab[w]
		for i := range rows {
			scoreTrend := 0.0
			collabTrend := 0.0
			if i >= w {
				scoreTrend = scoreMeans[i] - scoreMeans[i-w]
				collabTrend = collabMeans[i] - collabMeans[i-w]
			}
			rows[i].Values[trendColumn("score", w)] = scoreTrend
			rows[i].Values[trendColumn("collab", w)] = collabTrend
		}
	}
}

// rollingMean computes a trailing mean with minimum period 1: the first row
// of a history yields its own value, never an undefined one.
func rollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		sum := 0.0
		for j := lo; j <= i; j++ {
			sum += values[j]
		}
		out[i] = sum / float64(i-lo+1)
	}
	return out
}

// rollingStd computes a trailing sample standard deviation, resolving the
// single-sample case to 0 so no NaN reaches downstream models.
func rollingStd(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		n := float64(i - lo + 1)
		if n < 2 {
			out[i] = 0
			continue
		}
		mean := 0.0
		for j := lo; j <= i; j++ {
			mean += values[j]
		}
		mean /= n
		ss := 0.0
		for j := lo; j <= i; j++ {
			d := values[j] - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / (n - 1))
	}
	return out
}

func sanitize(values map[string]float64) {
	for col, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			values[col] = 0
		}
	}
}

// ColumnOrder returns the canonical feature column order, base aggregates
// first, then rolling statistics, then trend deltas.
func ColumnOrder() []string {
	cols := []string{
		models.ColReviewCount,
		models.ColAvgScore,
		models.ColAvgDescriptorScore,
		models.ColScoreStd,
	}
	for _, d := range models.Descriptors {
		cols = append(cols, descriptorColumn(d))
	}
	for s := 1; s <= 5; s++ {
		cols = append(cols, scoreColumn(s))
	}
	cols = append(cols, models.ColCommentRatio, models.ColHasComments)
	for _, w := range rollingWindows {
		cols = append(cols,
			rollingColumn(models.ColAvgScore, w),
			rollingColumn(models.ColPctCollaborative, w),
			rollingColumn(models.ColPctWithdrawn, w),
			volatilityColumn(w),
		)
	}
	for _, w := range trendWindows {
		cols = append(cols, trendColumn("score", w), trendColumn("collab", w))
	}
	return cols
}

func descriptorColumn(d models.Descriptor) string {
	switch d {
	case models.DescriptorCollaborative:
		return models.ColPctCollaborative
	case models.DescriptorNeutral:
		return models.ColPctNeutral
	case models.DescriptorWithdrawn:
		return models.ColPctWithdrawn
	default:
		return models.ColPctBlocking
	}
}

func scoreColumn(s int) string { return fmt.Sprintf("pct_score_%d", s) }

func rollingColumn(base string, window int) string {
	return fmt.Sprintf("%s_rolling_%dd", base, window)
}

func volatilityColumn(window int) string {
	return fmt.Sprintf("score_volatility_%dd", window)
}

func trendColumn(base string, window int) string {
	return fmt.Sprintf("%s_trend_%dd", base, window)
}

// ScoreTrendColumn names the N-day score trend delta feature.
func ScoreTrendColumn(window int) string { return trendColumn("score", window) }

// VolatilityColumn names the N-day score volatility feature.
func VolatilityColumn(window int) string { return volatilityColumn(window) }
