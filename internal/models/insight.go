package models

import "time"

// EmployeeInsight is the point-in-time behavioral summary served to
// dashboards and the narrative layer. Pointer fields are nil when no trained
// model set was available; consumers must render them as unknown, not zero.
type EmployeeInsight struct {
	EmployeeID       string    `json:"employee_id"`
	WindowStart      time.Time `json:"window_start"`
	WindowEnd        time.Time `json:"window_end"`
	AvgScore         float64   `json:"avg_score"`
	CompositeScore   float64   `json:"composite_score"`
	PctCollaborative float64   `json:"pct_collaborative"`
	PctNeutral       float64   `json:"pct_neutral"`
	PctWithdrawn     float64   `json:"pct_withdrawn"`
	PctBlocking      float64   `json:"pct_blocking"`
	ScoreTrend7d     float64   `json:"score_trend_7d"`
	TotalReviews     int       `json:"total_reviews"`

	PredictedScore  *float64 `json:"predicted_score,omitempty"`
	AnomalyScore    *float64 `json:"anomaly_score,omitempty"`
	IsAnomaly       *bool    `json:"is_anomaly,omitempty"`
	BehaviorCluster *int     `json:"behavior_cluster,omitempty"`

	ModelVersion string `json:"model_version,omitempty"`
}

// TrainingRequest bounds the event snapshot used for a training run.
type TrainingRequest struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
}

// HoldoutMetrics reports regressor error on the temporal holdout partition.
// Defined is false when the holdout was empty or degenerate.
type HoldoutMetrics struct {
	Defined           bool    `json:"defined"`
	MSE               float64 `json:"mse"`
	ExplainedVariance float64 `json:"explained_variance"`
	HoldoutRows       int     `json:"holdout_rows"`
}

// TrainingReport summarises a completed training run.
type TrainingReport struct {
	Name       string             `json:"name"`
	Version    string             `json:"version"`
	TrainedAt  time.Time          `json:"trained_at"`
	EventCount int                `json:"event_count"`
	RowCount   int                `json:"row_count"`
	TrainRows  int                `json:"train_rows"`
	Metrics    HoldoutMetrics     `json:"metrics"`
	Archetypes []ArchetypeProfile `json:"archetypes,omitempty"`
}

// ArchetypeProfile describes one behavior cluster over the fitted population.
// Cluster ids carry no semantic label; interpretation is a manual step.
type ArchetypeProfile struct {
	Cluster      int                `json:"cluster"`
	Rows         int                `json:"rows"`
	Share        float64            `json:"share"`
	FeatureMeans map[string]float64 `json:"feature_means"`
}
