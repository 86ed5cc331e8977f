package ml

import (
	"fmt"
	"time"

	"github.com/nimb-ou/peer-review-system/internal/models"
)

// ModelSet bundles the three fitted models, their normalizers, and the exact
// feature schema captured at training time. A set is built wholesale by the
// trainer, published atomically by the registry, and read immutably by the
// insight assembler; it is never partially updated.
type ModelSet struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Schema    []string  `json:"schema"`

	Regressor      *ForestRegressor `json:"regressor"`
	Detector       *IsolationForest `json:"detector"`
	DetectorScaler *Scaler          `json:"detector_scaler"`
	Clusterer      *KMeans          `json:"clusterer"`
	ClusterScaler  *Scaler          `json:"cluster_scaler"`

	Archetypes []models.ArchetypeProfile `json:"archetypes,omitempty"`
}

// Validate checks that the set is complete enough to serve inference.
func (m *ModelSet) Validate() error {
	if m == nil {
		return fmt.Errorf("model set is nil")
	}
	if len(m.Schema) == 0 {
		return fmt.Errorf("model set %q has no feature schema", m.Name)
	}
	if m.Regressor == nil || m.Detector == nil || m.Clusterer == nil {
		return fmt.Errorf("model set %q is missing a model slot", m.Name)
	}
	if m.DetectorScaler == nil || m.ClusterScaler == nil {
		return fmt.Errorf("model set %q is missing a fitted scaler", m.Name)
	}
	return nil
}

// Prediction carries the three model outputs for one feature row.
type Prediction struct {
	Score        float64
	AnomalyScore float64
	IsAnomaly    bool
	Cluster      int
}

// Apply projects a feature row onto the recorded schema and runs all three
// models. Missing schema columns read as 0 and their count is returned so the
// caller can log the mismatch; extra row columns are ignored.
func (m *ModelSet) Apply(row models.FeatureRow) (Prediction, int) {
	vec, missing := row.Vector(m.Schema)

	detectorVec := m.DetectorScaler.Transform(vec)
	clusterVec := m.ClusterScaler.Transform(vec)

	return Prediction{
		Score:        m.Regressor.Predict(vec),
		AnomalyScore: m.Detector.DecisionScore(detectorVec),
		IsAnomaly:    m.Detector.IsAnomaly(detectorVec),
		Cluster:      m.Clusterer.Assign(clusterVec),
	}, missing
}
