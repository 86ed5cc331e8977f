package features

import (
	"testing"

	"github.com/nimb-ou/peer-review-system/internal/models"
)

func TestCompositeScoreStaysInRange(t *testing.T) {
	events := []models.ReviewEvent{
		event("r1", "e1", 0, models.DescriptorCollaborative, 5, "great"),
		event("r1", "e1", 1, models.DescriptorCollaborative, 4, ""),
		event("r1", "e2", 0, models.DescriptorBlocking, 1, ""),
		event("r1", "e2", 1, models.DescriptorWithdrawn, 2, ""),
		event("r1", "e3", 0, models.DescriptorNeutral, 3, ""),
	}

	table, err := NewEngineer().BuildTable(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	AttachCompositeScore(&table)

	if !hasColumn(table.Columns, models.ColCompositeScore) {
		t.Fatal("composite column missing from schema")
	}
	for _, row := range table.Rows {
		score := row.Value(models.ColCompositeScore)
		if score < 1 || score > 5 {
			t.Fatalf("composite score %v outside [1,5]", score)
		}
	}
}

func TestCompositeScoreOrdersBehavior(t *testing.T) {
	// A consistently collaborative high scorer must land above a consistently
	// blocking low scorer.
	events := []models.ReviewEvent{
		event("r1", "good", 0, models.DescriptorCollaborative, 5, ""),
		event("r1", "good", 1, models.DescriptorCollaborative, 5, ""),
		event("r1", "bad", 0, models.DescriptorBlocking, 1, ""),
		event("r1", "bad", 1, models.DescriptorBlocking, 1, ""),
	}

	table, err := NewEngineer().BuildTable(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	AttachCompositeScore(&table)

	var good, bad float64
	for _, row := range table.Rows {
		switch row.EmployeeID {
		case "good":
			good = row.Value(models.ColCompositeScore)
		case "bad":
			bad = row.Value(models.ColCompositeScore)
		}
	}
	if good <= bad {
		t.Fatalf("composite ordering inverted: good=%v bad=%v", good, bad)
	}
}

func TestCompositeScoreDegenerateTable(t *testing.T) {
	// Identical rows: every contribution is zero-variance, the epsilon guard
	// must keep the result finite and the scores equal.
	events := []models.ReviewEvent{
		event("r1", "e1", 0, models.DescriptorNeutral, 3, ""),
		event("r1", "e2", 0, models.DescriptorNeutral, 3, ""),
	}

	table, err := NewEngineer().BuildTable(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	AttachCompositeScore(&table)

	first := table.Rows[0].Value(models.ColCompositeScore)
	for _, row := range table.Rows {
		v := row.Value(models.ColCompositeScore)
		if v != first {
			t.Fatalf("degenerate table scores differ: %v vs %v", v, first)
		}
		if v < 1 || v > 5 {
			t.Fatalf("degenerate score %v outside [1,5]", v)
		}
	}
}

func TestCompositeScoreEmptyTable(t *testing.T) {
	table := models.FeatureTable{Columns: ColumnOrder()}
	AttachCompositeScore(&table)
	if len(table.Rows) != 0 {
		t.Fatal("empty table must stay empty")
	}
	AttachCompositeScore(nil)
}
