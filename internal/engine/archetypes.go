package engine

import (
	"sort"

	"github.com/nimb-ou/peer-review-system/internal/ml"
	"github.com/nimb-ou/peer-review-system/internal/models"
)

// profileColumns are the features summarized per archetype. Kept small so the
// profile reads as a behavioral sketch, not a schema dump.
var profileColumns = []string{
	models.ColAvgScore,
	models.ColPctCollaborative,
	models.ColPctWithdrawn,
	models.ColPctBlocking,
	models.ColReviewCount,
	models.ColCompositeScore,
}

// ProfileArchetypes assigns every table row to its cluster and aggregates
// population share and feature means per cluster. Ids stay opaque; naming the
// archetypes is a manual step for whoever reads the profiles.
func ProfileArchetypes(table models.FeatureTable, set *ml.ModelSet) []models.ArchetypeProfile {
	if table.Empty() || set == nil || set.Clusterer == nil || set.ClusterScaler == nil {
		return nil
	}

	type aggregate struct {
		rows int
		sums map[string]float64
	}
	byCluster := make(map[int]*aggregate)

	for _, row := range table.Rows {
		vec, _ := row.Vector(set.Schema)
		cluster := set.Clusterer.Assign(set.ClusterScaler.Transform(vec))
		agg := byCluster[cluster]
		if agg == nil {
			agg = &aggregate{sums: make(map[string]float64, len(profileColumns))}
			byCluster[cluster] = agg
		}
		agg.rows++
		for _, col := range profileColumns {
			agg.sums[col] += row.Value(col)
		}
	}

	profiles := make([]models.ArchetypeProfile, 0, len(byCluster))
	total := float64(len(table.Rows))
	for cluster, agg := range byCluster {
		means := make(map[string]float64, len(profileColumns))
		for col, sum := range agg.sums {
			means[col] = sum / float64(agg.rows)
		}
		profiles = append(profiles, models.ArchetypeProfile{
			Cluster:      cluster,
			Rows:         agg.rows,
			Share:        float64(agg.rows) / total,
			FeatureMeans: means,
		})
	}

	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Cluster < profiles[j].Cluster })
	return profiles
}
