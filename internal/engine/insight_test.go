package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nimb-ou/peer-review-system/internal/ml"
	"github.com/nimb-ou/peer-review-system/internal/models"
	"github.com/nimb-ou/peer-review-system/internal/repo"
)

type fakeSource struct {
	events []models.ReviewEvent
	err    error
	lastQ  repo.EventQuery
}

func (f *fakeSource) FetchEvents(_ context.Context, q repo.EventQuery) ([]models.ReviewEvent, error) {
	f.lastQ = q
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.ReviewEvent, 0, len(f.events))
	for _, ev := range f.events {
		if q.RevieweeID != "" && ev.RevieweeID != q.RevieweeID {
			continue
		}
		if ev.Date.Before(q.Start) || ev.Date.After(q.End) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

type fakeProvider struct {
	set *ml.ModelSet
	err error
}

func (f *fakeProvider) Active(context.Context, string) (*ml.ModelSet, error) {
	return f.set, f.err
}

// fixedNow pins the assembler clock to the day after the seeded history.
func fixedNow(a *Assembler, offset int) {
	a.now = func() time.Time { return testDay(offset) }
}

func TestEmployeeInsightNoData(t *testing.T) {
	a := NewAssembler(nil, &fakeSource{}, nil, "behavioral")
	fixedNow(a, 30)

	_, err := a.EmployeeInsight(context.Background(), "ghost", 14)
	if !IsNoData(err) {
		t.Fatalf("expected no-data error, got %v", err)
	}
}

func TestEmployeeInsightFetchError(t *testing.T) {
	a := NewAssembler(nil, &fakeSource{err: errors.New("store offline")}, nil, "behavioral")
	fixedNow(a, 30)

	_, err := a.EmployeeInsight(context.Background(), "e1", 14)
	if err == nil {
		t.Fatal("expected error from failing source")
	}
	if IsNoData(err) {
		t.Fatal("transport failure must not masquerade as no-data")
	}
}

func TestEmployeeInsightWithoutModel(t *testing.T) {
	src := &fakeSource{events: stableHistory([]string{"e1", "e2"}, 20)}
	a := NewAssembler(nil, src, nil, "behavioral")
	fixedNow(a, 20)

	insight, err := a.EmployeeInsight(context.Background(), "e1", 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if insight.EmployeeID != "e1" {
		t.Fatalf("employee id %q", insight.EmployeeID)
	}
	if got := insight.WindowEnd.Sub(insight.WindowStart); got != 14*24*time.Hour {
		t.Fatalf("window span %v, want 14 days", got)
	}
	if src.lastQ.RevieweeID != "e1" {
		t.Fatal("source queried without reviewee filter")
	}
	// One event per day inside a 14-day window ending the day after the
	// history: days 6..19 inclusive.
	if insight.TotalReviews != 14 {
		t.Fatalf("total reviews %d, want 14", insight.TotalReviews)
	}
	if insight.AvgScore < 4 || insight.AvgScore > 5 {
		t.Fatalf("avg score %v outside seeded range", insight.AvgScore)
	}
	if insight.CompositeScore < 1 || insight.CompositeScore > 5 {
		t.Fatalf("composite score %v outside [1,5]", insight.CompositeScore)
	}

	// No model: the ML-derived fields stay absent, not zeroed.
	if insight.PredictedScore != nil || insight.AnomalyScore != nil ||
		insight.IsAnomaly != nil || insight.BehaviorCluster != nil {
		t.Fatal("model fields populated without an active model")
	}
	if insight.ModelVersion != "" {
		t.Fatalf("model version %q without an active model", insight.ModelVersion)
	}
}

func TestEmployeeInsightWithModel(t *testing.T) {
	events := stableHistory([]string{"e1", "e2", "e3"}, 30)

	trainer := fastTrainer(t)
	set, _, err := trainer.Train(context.Background(), "behavioral", events)
	if err != nil {
		t.Fatalf("training failed: %v", err)
	}

	a := NewAssembler(nil, &fakeSource{events: events}, &fakeProvider{set: set}, "behavioral")
	fixedNow(a, 30)

	insight, err := a.EmployeeInsight(context.Background(), "e2", 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if insight.PredictedScore == nil || insight.AnomalyScore == nil ||
		insight.IsAnomaly == nil || insight.BehaviorCluster == nil {
		t.Fatal("model fields missing with an active model")
	}
	if *insight.BehaviorCluster < 0 || *insight.BehaviorCluster >= 4 {
		t.Fatalf("cluster id %d outside [0,4)", *insight.BehaviorCluster)
	}
	if insight.ModelVersion != set.Version {
		t.Fatalf("model version %q, want %q", insight.ModelVersion, set.Version)
	}
}

func TestEmployeeInsightDegradesOnProviderError(t *testing.T) {
	src := &fakeSource{events: stableHistory([]string{"e1"}, 20)}
	a := NewAssembler(nil, src, &fakeProvider{err: errors.New("registry down")}, "behavioral")
	fixedNow(a, 20)

	insight, err := a.EmployeeInsight(context.Background(), "e1", 14)
	if err != nil {
		t.Fatalf("provider failure must degrade, not error: %v", err)
	}
	if insight.PredictedScore != nil {
		t.Fatal("model fields populated despite provider failure")
	}
}

func TestEmployeeInsightDegradesOnInvalidModel(t *testing.T) {
	src := &fakeSource{events: stableHistory([]string{"e1"}, 20)}
	broken := &ml.ModelSet{Name: "behavioral", Version: "v0"}
	a := NewAssembler(nil, src, &fakeProvider{set: broken}, "behavioral")
	fixedNow(a, 20)

	insight, err := a.EmployeeInsight(context.Background(), "e1", 14)
	if err != nil {
		t.Fatalf("invalid model must degrade, not error: %v", err)
	}
	if insight.ModelVersion != "" {
		t.Fatal("invalid model version leaked into the insight")
	}
}

func TestEmployeeInsightDefaultWindow(t *testing.T) {
	src := &fakeSource{events: stableHistory([]string{"e1"}, 20)}
	a := NewAssembler(nil, src, nil, "behavioral")
	fixedNow(a, 20)

	insight, err := a.EmployeeInsight(context.Background(), "e1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := insight.WindowEnd.Sub(insight.WindowStart); got != DefaultLookbackDays*24*time.Hour {
		t.Fatalf("default window span %v, want %d days", got, DefaultLookbackDays)
	}
}
