package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nimb-ou/peer-review-system/internal/engine"
	"github.com/nimb-ou/peer-review-system/internal/metrics"
	"github.com/nimb-ou/peer-review-system/internal/ml"
	"github.com/nimb-ou/peer-review-system/internal/models"
	"github.com/nimb-ou/peer-review-system/internal/repo"
	"github.com/nimb-ou/peer-review-system/internal/utils"
)

// ModelRegistry defines the persistence operations the service needs: atomic
// versioned publish and active-set lookup.
type ModelRegistry interface {
	Save(ctx context.Context, set *ml.ModelSet) error
	Active(ctx context.Context, name string) (*ml.ModelSet, error)
}

// InsightService fronts the training and inference paths of the pipeline.
type InsightService struct {
	logger    *slog.Logger
	source    engine.EventSource
	trainer   *engine.Trainer
	assembler *engine.Assembler
	registry  ModelRegistry
	modelName string
	latencies *utils.LatencyTracker
}

// NewInsightService constructs the service facade.
func NewInsightService(
	logger *slog.Logger,
	source engine.EventSource,
	trainer *engine.Trainer,
	assembler *engine.Assembler,
	registry ModelRegistry,
	modelName string,
) *InsightService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InsightService{
		logger:    logger,
		source:    source,
		trainer:   trainer,
		assembler: assembler,
		registry:  registry,
		modelName: modelName,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Train pulls the event snapshot, runs the full training protocol, and
// publishes the resulting model set. Inference keeps serving the previously
// active version until the publish transaction commits; a failed run
// publishes nothing.
func (s *InsightService) Train(ctx context.Context, req models.TrainingRequest) (models.TrainingReport, error) {
	const op = "services.train"

	name := req.Name
	if name == "" {
		name = s.modelName
	}

	start := time.Now()
	events, err := s.source.FetchEvents(ctx, repo.EventQuery{Start: req.Start, End: req.End})
	if err != nil {
		metrics.ObserveTraining(time.Since(start), metrics.OutcomeError)
		return models.TrainingReport{}, utils.NewAppError(op, "event snapshot fetch failed", err)
	}

	set, report, err := s.trainer.Train(ctx, name, events)
	if err != nil {
		metrics.ObserveTraining(time.Since(start), metrics.OutcomeError)
		s.logger.Error("training failed", slog.String("name", name), slog.Any("error", err))
		return models.TrainingReport{}, err
	}

	if err := s.registry.Save(ctx, set); err != nil {
		metrics.ObserveTraining(time.Since(start), metrics.OutcomeError)
		s.logger.Error("model publish failed", slog.String("name", name), slog.Any("error", err))
		return models.TrainingReport{}, utils.NewAppError(op, "model publish failed", err)
	}

	metrics.ObserveTraining(time.Since(start), metrics.OutcomeSuccess)
	return report, nil
}

// Insight assembles a point-in-time insight for one employee.
func (s *InsightService) Insight(ctx context.Context, employeeID string, days int) (models.EmployeeInsight, error) {
	start := time.Now()
	insight, err := s.assembler.EmployeeInsight(ctx, employeeID, days)
	duration := time.Since(start)

	switch {
	case err == nil:
		metrics.ObserveInsight(duration, metrics.OutcomeSuccess)
	case errors.Is(err, utils.ErrNoData):
		metrics.ObserveInsight(duration, metrics.OutcomeNoData)
		return models.EmployeeInsight{}, err
	default:
		metrics.ObserveInsight(duration, metrics.OutcomeError)
		s.logger.Error("insight assembly failed", slog.String("employee", employeeID), slog.Any("error", err))
		return models.EmployeeInsight{}, err
	}

	s.latencies.Observe(duration)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		p95 := s.latencies.Percentile(95)
		s.logger.Info("insight latency", slog.Duration("p95", p95), slog.Int("samples", count))
	}
	return insight, nil
}

// Archetypes returns the cluster profiles captured by the active model set.
// Absence of a trained set is reported as ErrNoData.
func (s *InsightService) Archetypes(ctx context.Context) ([]models.ArchetypeProfile, error) {
	const op = "services.archetypes"

	set, err := s.registry.Active(ctx, s.modelName)
	if err != nil {
		return nil, utils.NewAppError(op, "registry lookup failed", err)
	}
	if set == nil {
		return nil, utils.NewAppError(op, "no published model set", utils.ErrNoData)
	}
	return set.Archetypes, nil
}

// LatencyP95 returns the current p95 insight latency.
func (s *InsightService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}
