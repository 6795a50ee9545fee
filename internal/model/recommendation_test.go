package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from RecommendationStatus
		to   RecommendationStatus
		want bool
	}{
		{StatusPending, StatusReviewed, true},
		{StatusPending, StatusSent, true},
		{StatusPending, StatusDismissed, true},
		{StatusReviewed, StatusReviewed, true},
		{StatusReviewed, StatusSent, true},
		{StatusReviewed, StatusDismissed, true},
		{StatusSent, StatusReviewed, false},
		{StatusSent, StatusDismissed, false},
		{StatusDismissed, StatusSent, false},
		{StatusDismissed, StatusReviewed, false},
		{StatusPending, StatusPending, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransition(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}
