package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nimb-ou/peer-review-system/internal/features"
	"github.com/nimb-ou/peer-review-system/internal/ml"
	"github.com/nimb-ou/peer-review-system/internal/models"
	"github.com/nimb-ou/peer-review-system/internal/repo"
	"github.com/nimb-ou/peer-review-system/internal/utils"
)

// DefaultLookbackDays is the insight window used when the caller does not ask
// for a specific one.
const DefaultLookbackDays = 14

// EventSource supplies review events from the external review record store.
type EventSource interface {
	FetchEvents(ctx context.Context, q repo.EventQuery) ([]models.ReviewEvent, error)
}

// ModelProvider resolves the active model set for a name. A nil set with a
// nil error means no version has been published yet; the assembler then
// degrades to directly aggregated fields.
type ModelProvider interface {
	Active(ctx context.Context, name string) (*ml.ModelSet, error)
}

// Assembler builds point-in-time insights for single employees.
type Assembler struct {
	logger    *slog.Logger
	source    EventSource
	provider  ModelProvider
	modelName string
	engineer  *features.Engineer
	now       func() time.Time
}

// NewAssembler constructs an insight assembler. provider may be nil when the
// deployment runs without trained models.
func NewAssembler(logger *slog.Logger, source EventSource, provider ModelProvider, modelName string) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		logger:    logger,
		source:    source,
		provider:  provider,
		modelName: modelName,
		engineer:  features.NewEngineer(),
		now:       time.Now,
	}
}

// EmployeeInsight fetches the employee's recent events, re-runs the feature
// pipeline on that slice, and merges model predictions into the most recent
// row. An empty window returns ErrNoData; a missing model set degrades to the
// aggregated fields with the ML-derived ones left absent.
func (a *Assembler) EmployeeInsight(ctx context.Context, employeeID string, days int) (models.EmployeeInsight, error) {
	const op = "engine.insight"

	if days <= 0 {
		days = DefaultLookbackDays
	}
	end := models.Day(a.now())
	start := end.AddDate(0, 0, -days)

	events, err := a.source.FetchEvents(ctx, repo.EventQuery{
		Start:      start,
		End:        end,
		RevieweeID: employeeID,
	})
	if err != nil {
		return models.EmployeeInsight{}, utils.NewAppError(op, "event fetch failed", err)
	}
	if len(events) == 0 {
		return models.EmployeeInsight{}, utils.NewAppError(op, "employee "+employeeID, utils.ErrNoData)
	}

	table, err := a.engineer.BuildTable(events)
	if err != nil {
		return models.EmployeeInsight{}, utils.NewAppError(op, "feature engineering failed", err)
	}
	features.AttachCompositeScore(&table)

	latest := table.Rows[len(table.Rows)-1]
	totalReviews := 0.0
	for _, row := range table.Rows {
		totalReviews += row.Value(models.ColReviewCount)
	}

	insight := models.EmployeeInsight{
		EmployeeID:       employeeID,
		WindowStart:      start,
		WindowEnd:        end,
		AvgScore:         latest.Value(models.ColAvgScore),
		CompositeScore:   latest.Value(models.ColCompositeScore),
		PctCollaborative: latest.Value(models.ColPctCollaborative),
		PctNeutral:       latest.Value(models.ColPctNeutral),
		PctWithdrawn:     latest.Value(models.ColPctWithdrawn),
		PctBlocking:      latest.Value(models.ColPctBlocking),
		ScoreTrend7d:     latest.Value(features.ScoreTrendColumn(7)),
		TotalReviews:     int(totalReviews),
	}

	set := a.activeModelSet(ctx)
	if set == nil {
		return insight, nil
	}

	prediction, missing := set.Apply(latest)
	if missing > 0 {
		// Recoverable, but worth surfacing as a data-quality signal.
		a.logger.Warn("schema drift during inference",
			slog.String("model", set.Name),
			slog.String("version", set.Version),
			slog.Int("missing_columns", missing),
			slog.Any("error", utils.ErrSchemaMismatch),
		)
	}

	insight.PredictedScore = &prediction.Score
	insight.AnomalyScore = &prediction.AnomalyScore
	insight.IsAnomaly = &prediction.IsAnomaly
	insight.BehaviorCluster = &prediction.Cluster
	insight.ModelVersion = set.Version
	return insight, nil
}

func (a *Assembler) activeModelSet(ctx context.Context) *ml.ModelSet {
	if a.provider == nil {
		return nil
	}
	set, err := a.provider.Active(ctx, a.modelName)
	if err != nil {
		a.logger.Warn("model set unavailable, serving aggregates only", slog.Any("error", err))
		return nil
	}
	if set == nil {
		return nil
	}
	if err := set.Validate(); err != nil {
		a.logger.Warn("model set rejected", slog.Any("error", err))
		return nil
	}
	return set
}

// IsNoData reports whether err represents a legitimately empty window.
func IsNoData(err error) bool {
	return errors.Is(err, utils.ErrNoData)
}
