package models

import (
	"fmt"
	"time"
)

// Descriptor is the categorical behavioral tag attached to a review event.
type Descriptor string

const (
	DescriptorCollaborative Descriptor = "collaborative"
	DescriptorNeutral       Descriptor = "neutral"
	DescriptorWithdrawn     Descriptor = "withdrawn"
	DescriptorBlocking      Descriptor = "blocking"
)

// Descriptors lists the fixed tag vocabulary in weight order.
var Descriptors = []Descriptor{
	DescriptorCollaborative,
	DescriptorNeutral,
	DescriptorWithdrawn,
	DescriptorBlocking,
}

// Valid reports whether the descriptor belongs to the fixed vocabulary.
func (d Descriptor) Valid() bool {
	switch d {
	case DescriptorCollaborative, DescriptorNeutral, DescriptorWithdrawn, DescriptorBlocking:
		return true
	}
	return false
}

// Weight maps a descriptor onto its numeric behavioral weight.
func (d Descriptor) Weight() float64 {
	switch d {
	case DescriptorCollaborative:
		return 4.0
	case DescriptorNeutral:
		return 3.0
	case DescriptorWithdrawn:
		return 2.0
	case DescriptorBlocking:
		return 1.0
	}
	return 0
}

// ReviewEvent is one daily feedback act from a reviewer about a reviewee.
// At most one event exists per (reviewer, reviewee, date); the store replaces
// on conflict.
type ReviewEvent struct {
	ReviewerID string     `json:"reviewer_id"`
	RevieweeID string     `json:"reviewee_id"`
	Date       time.Time  `json:"date"`
	Descriptor Descriptor `json:"descriptor"`
	Score      int        `json:"score"`
	Comment    string     `json:"comment,omitempty"`
}

// Validate checks the upstream contract: a known descriptor and a score in [1,5].
func (e ReviewEvent) Validate() error {
	if e.ReviewerID == "" || e.RevieweeID == "" {
		return fmt.Errorf("review event missing reviewer or reviewee id")
	}
	if !e.Descriptor.Valid() {
		return fmt.Errorf("unknown descriptor %q", e.Descriptor)
	}
	if e.Score < 1 || e.Score > 5 {
		return fmt.Errorf("score %d outside [1,5]", e.Score)
	}
	return nil
}

// Day truncates a timestamp to its UTC calendar day.
func Day(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
