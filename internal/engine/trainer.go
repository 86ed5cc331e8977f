// Package engine orchestrates the two operational modes of the scoring
// pipeline: batch training over an event snapshot and per-employee insight
// assembly against the active model set.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nimb-ou/peer-review-system/internal/features"
	"github.com/nimb-ou/peer-review-system/internal/ml"
	"github.com/nimb-ou/peer-review-system/internal/models"
	"github.com/nimb-ou/peer-review-system/internal/utils"
)

// TrainerConfig tunes the training protocol. Zero values fall back to the
// defaults the pipeline was calibrated with.
type TrainerConfig struct {
	HoldoutDays   int
	Trees         int
	MaxDepth      int
	Clusters      int
	Contamination float64
	Seed          int64
}

// DefaultTrainerConfig returns the calibrated defaults: 14-day temporal
// holdout, 100-tree ensembles, 4 behavior archetypes, 10% contamination.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		HoldoutDays:   14,
		Trees:         100,
		MaxDepth:      10,
		Clusters:      4,
		Contamination: 0.1,
		Seed:          42,
	}
}

func (c TrainerConfig) withDefaults() TrainerConfig {
	def := DefaultTrainerConfig()
	if c.HoldoutDays <= 0 {
		c.HoldoutDays = def.HoldoutDays
	}
	if c.Trees <= 0 {
		c.Trees = def.Trees
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = def.MaxDepth
	}
	if c.Clusters <= 0 {
		c.Clusters = def.Clusters
	}
	if c.Contamination <= 0 {
		c.Contamination = def.Contamination
	}
	return c
}

// Trainer fits a complete model set from a snapshot of review events.
type Trainer struct {
	logger   *slog.Logger
	engineer *features.Engineer
	cfg      TrainerConfig
}

// NewTrainer constructs a trainer.
func NewTrainer(logger *slog.Logger, cfg TrainerConfig) *Trainer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trainer{
		logger:   logger,
		engineer: features.NewEngineer(),
		cfg:      cfg.withDefaults(),
	}
}

// Train engineers the feature table, splits it temporally, fits the three
// models, and returns a complete model set with its holdout report. Training
// refuses snapshots yielding fewer than two feature rows. A returned error
// means no model set exists: the caller must not publish anything.
func (t *Trainer) Train(ctx context.Context, name string, events []models.ReviewEvent) (*ml.ModelSet, models.TrainingReport, error) {
	const op = "engine.train"

	table, err := t.engineer.BuildTable(events)
	if err != nil {
		return nil, models.TrainingReport{}, utils.NewAppError(op, "feature engineering failed", err)
	}
	if len(table.Rows) < 2 {
		return nil, models.TrainingReport{}, utils.NewAppError(op,
			fmt.Sprintf("%d feature rows", len(table.Rows)), utils.ErrInsufficientData)
	}
	features.AttachCompositeScore(&table)

	// The recorded schema excludes identity, date, and the training target.
	schema := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		if col == models.ColCompositeScore {
			continue
		}
		schema = append(schema, col)
	}

	X := make([][]float64, len(table.Rows))
	y := make([]float64, len(table.Rows))
	for i, row := range table.Rows {
		X[i], _ = row.Vector(schema)
		y[i] = row.Value(models.ColCompositeScore)
	}

	// Temporal split: the last HoldoutDays of the table's range are held out.
	// Histories shorter than the holdout window train on everything and
	// report undefined metrics instead of erroring.
	_, maxDate := table.DateRange()
	cutoff := maxDate.AddDate(0, 0, -t.cfg.HoldoutDays)
	trainIdx := make([]int, 0, len(table.Rows))
	testIdx := make([]int, 0)
	for i, row := range table.Rows {
		if row.Date.After(cutoff) {
			testIdx = append(testIdx, i)
		} else {
			trainIdx = append(trainIdx, i)
		}
	}
	if len(trainIdx) == 0 {
		trainIdx = allIndices(len(table.Rows))
		testIdx = nil
	}

	regressor := ml.NewForestRegressor(t.cfg.Trees, t.cfg.MaxDepth, t.cfg.Seed)
	if err := regressor.Fit(gather(X, trainIdx), gatherTargets(y, trainIdx)); err != nil {
		return nil, models.TrainingReport{}, utils.NewAppError(op, "regressor fit failed", err)
	}
	metrics := holdoutMetrics(regressor, X, y, testIdx)

	if err := ctx.Err(); err != nil {
		return nil, models.TrainingReport{}, utils.NewAppError(op, "training cancelled", err)
	}

	// Detector and clusterer fit on the entire table, each with its own
	// standardizer so the pair always travels together.
	detectorScaler, err := ml.FitScaler(X)
	if err != nil {
		return nil, models.TrainingReport{}, utils.NewAppError(op, "detector scaler fit failed", err)
	}
	detector := ml.NewIsolationForest(t.cfg.Trees, t.cfg.Contamination, t.cfg.Seed)
	if err := detector.Fit(detectorScaler.TransformAll(X)); err != nil {
		return nil, models.TrainingReport{}, utils.NewAppError(op, "detector fit failed", err)
	}

	clusterScaler, err := ml.FitScaler(X)
	if err != nil {
		return nil, models.TrainingReport{}, utils.NewAppError(op, "cluster scaler fit failed", err)
	}
	clusterer := ml.NewKMeans(t.cfg.Clusters, t.cfg.Seed)
	if err := clusterer.Fit(clusterScaler.TransformAll(X)); err != nil {
		return nil, models.TrainingReport{}, utils.NewAppError(op, "clusterer fit failed", err)
	}

	set := &ml.ModelSet{
		Name:           name,
		Version:        uuid.NewString(),
		CreatedAt:      time.Now().UTC(),
		Schema:         schema,
		Regressor:      regressor,
		Detector:       detector,
		DetectorScaler: detectorScaler,
		Clusterer:      clusterer,
		ClusterScaler:  clusterScaler,
	}
	set.Archetypes = ProfileArchetypes(table, set)

	report := models.TrainingReport{
		Name:       name,
		Version:    set.Version,
		TrainedAt:  set.CreatedAt,
		EventCount: len(events),
		RowCount:   len(table.Rows),
		TrainRows:  len(trainIdx),
		Metrics:    metrics,
		Archetypes: set.Archetypes,
	}

	t.logger.Info("training completed",
		slog.String("name", name),
		slog.String("version", set.Version),
		slog.Int("rows", report.RowCount),
		slog.Int("train_rows", report.TrainRows),
		slog.Int("holdout_rows", metrics.HoldoutRows),
		slog.Bool("metrics_defined", metrics.Defined),
	)

	return set, report, nil
}

// holdoutMetrics evaluates the regressor against held-out composite scores.
// An empty holdout reports Defined=false rather than fabricated zeros.
func holdoutMetrics(regressor *ml.ForestRegressor, X [][]float64, y []float64, testIdx []int) models.HoldoutMetrics {
	if len(testIdx) == 0 {
		return models.HoldoutMetrics{}
	}

	sse := 0.0
	mean := 0.0
	for _, i := range testIdx {
		mean += y[i]
	}
	mean /= float64(len(testIdx))

	sst := 0.0
	for _, i := range testIdx {
		pred := regressor.Predict(X[i])
		d := y[i] - pred
		sse += d * d
		dm := y[i] - mean
		sst += dm * dm
	}

	metrics := models.HoldoutMetrics{
		Defined:     true,
		MSE:         sse / float64(len(testIdx)),
		HoldoutRows: len(testIdx),
	}
	if sst > 0 {
		metrics.ExplainedVariance = 1 - sse/sst
	}
	return metrics
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func gather(X [][]float64, indices []int) [][]float64 {
	out := make([][]float64, len(indices))
	for i, idx := range indices {
		out[i] = X[idx]
	}
	return out
}

func gatherTargets(y []float64, indices []int) []float64 {
	out := make([]float64, len(indices))
	for i, idx := range indices {
		out[i] = y[idx]
	}
	return out
}
