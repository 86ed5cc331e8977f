package models

import (
	"testing"
	"time"
)

func TestDescriptorWeights(t *testing.T) {
	want := map[Descriptor]float64{
		DescriptorCollaborative: 4,
		DescriptorNeutral:       3,
		DescriptorWithdrawn:     2,
		DescriptorBlocking:      1,
	}
	for d, w := range want {
		if got := d.Weight(); got != w {
			t.Fatalf("%s weight %v, want %v", d, got, w)
		}
		if !d.Valid() {
			t.Fatalf("%s not valid", d)
		}
	}
	if Descriptor("enthusiastic").Valid() {
		t.Fatal("unknown descriptor accepted")
	}
}

func TestReviewEventValidate(t *testing.T) {
	valid := ReviewEvent{
		ReviewerID: "r1",
		RevieweeID: "e1",
		Date:       time.Now(),
		Descriptor: DescriptorNeutral,
		Score:      3,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}

	cases := map[string]func(ReviewEvent) ReviewEvent{
		"missing reviewer":   func(e ReviewEvent) ReviewEvent { e.ReviewerID = ""; return e },
		"missing reviewee":   func(e ReviewEvent) ReviewEvent { e.RevieweeID = ""; return e },
		"unknown descriptor": func(e ReviewEvent) ReviewEvent { e.Descriptor = "great"; return e },
		"score too low":      func(e ReviewEvent) ReviewEvent { e.Score = 0; return e },
		"score too high":     func(e ReviewEvent) ReviewEvent { e.Score = 6; return e },
	}
	for name, mutate := range cases {
		if err := mutate(valid).Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestDayTruncation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	ts := time.Date(2025, 3, 10, 2, 30, 0, 0, loc)

	got := Day(ts)
	want := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Day(%v)=%v, want %v", ts, got, want)
	}
	if got.Location() != time.UTC {
		t.Fatal("Day must normalize to UTC")
	}
}

func TestFeatureRowVector(t *testing.T) {
	row := FeatureRow{Values: map[string]float64{"a": 1.5, "b": 2.5}}

	vec, missing := row.Vector([]string{"a", "b", "c"})
	if missing != 1 {
		t.Fatalf("missing=%d, want 1", missing)
	}
	if vec[0] != 1.5 || vec[1] != 2.5 || vec[2] != 0 {
		t.Fatalf("vector %v", vec)
	}
}

func TestFeatureTableDateRange(t *testing.T) {
	d1 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	table := FeatureTable{Rows: []FeatureRow{
		{EmployeeID: "e1", Date: d2},
		{EmployeeID: "e2", Date: d1},
	}}

	min, max := table.DateRange()
	if !min.Equal(d1) || !max.Equal(d2) {
		t.Fatalf("range [%v, %v], want [%v, %v]", min, max, d1, d2)
	}
}
