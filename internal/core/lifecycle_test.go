package core

import (
	"testing"

	"github.com/JonMunkholm/invoicebatch/internal/domain"
)

func TestDecideState(t *testing.T) {
	tests := []struct {
		name      string
		findings  int
		records   int
		threshold float64
		want      domain.BatchState
	}{
		{"no findings", 0, 100, 0.10, domain.StateCompleted},
		{"no findings no records", 0, 0, 0.10, domain.StateCompleted},
		{"under threshold", 3, 100, 0.10, domain.StateCompletedWithWarnings},
		{"exactly at threshold", 10, 100, 0.10, domain.StateCompletedWithWarnings},
		{"rounding at threshold", 3, 30, 0.10, domain.StateCompletedWithWarnings},
		{"over threshold", 11, 100, 0.10, domain.StateError},
		{"single record single finding", 1, 1, 0.10, domain.StateError},
		{"findings without records", 1, 0, 0.10, domain.StateError},
		{"custom threshold", 20, 100, 0.25, domain.StateCompletedWithWarnings},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecideState(tt.findings, tt.records, tt.threshold); got != tt.want {
				t.Errorf("DecideState(%d, %d, %v) = %s, want %s",
					tt.findings, tt.records, tt.threshold, got, tt.want)
			}
		})
	}
}
