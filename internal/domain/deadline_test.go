package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeadlineHours(t *testing.T) {
	tests := []struct {
		name          string
		stage         int
		supportedBank bool
		want          time.Duration
	}{
		{name: "stage 1", stage: 1, want: 48 * time.Hour},
		{name: "stage 2", stage: 2, want: 72 * time.Hour},
		{name: "stage 3", stage: 3, want: 120 * time.Hour},
		{name: "stage 4", stage: 4, want: 72 * time.Hour},
		{name: "stage 5 regular bank", stage: 5, want: 120 * time.Hour},
		{name: "stage 5 supported bank gets the extension", stage: 5, supportedBank: true, want: 240 * time.Hour},
		{name: "supported bank does not change early stages", stage: 3, supportedBank: true, want: 120 * time.Hour},
		{name: "stage 0 has no deadline", stage: 0, want: 0},
		{name: "stage 6 has no deadline", stage: 6, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeadlineHours(tt.stage, tt.supportedBank))
		})
	}
}
