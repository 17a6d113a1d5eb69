package forecast

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dvloznov/finance-insights/internal/stats"
)

func TestExtrapolate(t *testing.T) {
	tests := []struct {
		name   string
		series []float64
		steps  int
		want   []float64
	}{
		{"perfect line", []float64{1, 2, 3, 4}, 1, []float64{5}},
		{"several steps", []float64{10, 8, 6}, 3, []float64{4, 2, 0}},
		{"flat", []float64{3, 3, 3}, 2, []float64{3, 3}},
		{"single point", []float64{7}, 2, []float64{}},
		{"empty", nil, 2, []float64{}},
		{"zero steps", []float64{1, 2}, 0, []float64{}},
		{"negative steps", []float64{1, 2}, -1, []float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extrapolate(tt.series, tt.steps)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Extrapolate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtrapolateClampsSteps(t *testing.T) {
	got := Extrapolate([]float64{1, 2}, 2_000_000_000)
	if len(got) != MaxSteps {
		t.Fatalf("len = %d, want %d", len(got), MaxSteps)
	}
	if got[MaxSteps-1] != float64(MaxSteps+2) {
		t.Errorf("last = %v, want %d", got[MaxSteps-1], MaxSteps+2)
	}
}

func TestFitRSquared(t *testing.T) {
	line, ok := Fit([]float64{1, 2, 3, 4})
	if !ok {
		t.Fatal("expected fit")
	}
	if line.Slope != 1 || line.Intercept != 1 || line.RSquared != 1 {
		t.Errorf("unexpected line: %+v", line)
	}

	noisy, ok := Fit([]float64{1, 3, 2, 4})
	if !ok {
		t.Fatal("expected fit")
	}
	if noisy.RSquared <= 0 || noisy.RSquared >= 1 || math.IsNaN(noisy.RSquared) {
		t.Errorf("expected 0 < R² < 1, got %v", noisy.RSquared)
	}
}

func TestProjectLabelsMonths(t *testing.T) {
	series := []stats.MonthValue{
		{Month: "2024-11", Value: 100},
		{Month: "2024-12", Value: 200},
	}

	got := Project(series, 2)
	want := []stats.MonthValue{
		{Month: "2025-01", Value: 300},
		{Month: "2025-02", Value: 400},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Project() mismatch (-want +got):\n%s", diff)
	}

	if got := Project(series[:1], 2); len(got) != 0 {
		t.Errorf("expected empty projection, got %v", got)
	}
}
