package stats_test

import (
	"math"
	"testing"

	"github.com/sunsplit/sunsplit/internal/experiment"
	"github.com/sunsplit/sunsplit/internal/stats"
)

func TestPValue_ClearDifference(t *testing.T) {
	// 10% vs 5% conversion over 1000 impressions each
	p, ok := stats.PValue(100, 1000, 50, 1000)

	if !ok {
		t.Fatal("expected p-value to be computable")
	}
	if p >= 0.05 {
		t.Errorf("expected p < 0.05 for a clear difference, got %f", p)
	}
}

func TestPValue_EqualRates(t *testing.T) {
	p, ok := stats.PValue(50, 1000, 50, 1000)

	if !ok {
		t.Fatal("expected p-value to be computable")
	}
	if p < 0.99 {
		t.Errorf("expected p near 1 for equal rates, got %f", p)
	}
}

func TestPValue_NotYetSignificant(t *testing.T) {
	// 4.1% vs 3.2% over 1000 impressions each: a +28% relative lift that
	// is still not significant at 95% (z ≈ 1.07).
	p, ok := stats.PValue(41, 1000, 32, 1000)

	if !ok {
		t.Fatal("expected p-value to be computable")
	}
	if p < 0.05 {
		t.Errorf("expected p >= 0.05 for this sample, got %f", p)
	}
	if p > 0.5 {
		t.Errorf("p-value %f implausibly large for a real difference", p)
	}
}

func TestPValue_NoData(t *testing.T) {
	p, ok := stats.PValue(0, 0, 0, 0)

	if ok {
		t.Error("expected p-value marked not computable with no data")
	}
	if p != 1 {
		t.Errorf("expected p = 1 with no data, got %f", p)
	}
}

func TestPValue_OneSideEmpty(t *testing.T) {
	p, ok := stats.PValue(10, 100, 0, 0)

	if ok {
		t.Error("expected p-value marked not computable with one empty sample")
	}
	if p != 1 {
		t.Errorf("expected p = 1, got %f", p)
	}
}

func TestImprovement(t *testing.T) {
	got, ok := stats.Improvement(0.028, 0.035)
	if !ok {
		t.Fatal("expected improvement to be computable")
	}
	if math.Abs(got-25) > 0.001 {
		t.Errorf("Improvement(0.028, 0.035) = %f, want 25", got)
	}

	got, ok = stats.Improvement(0, 0.035)
	if ok {
		t.Error("expected improvement not computable with a zero control rate")
	}
	if got != 0 {
		t.Errorf("expected 0 sentinel, got %f", got)
	}
}

func twoVariantExperiment(controlConv, controlImp, candConv, candImp int64) *experiment.Experiment {
	return &experiment.Experiment{
		ID:              "exp-1",
		Name:            "hero",
		Status:          experiment.StatusRunning,
		ConfidenceLevel: 95,
		Variants: []*experiment.Variant{
			{ID: "v-control", Name: "Control", IsControl: true, TrafficWeight: 50, Impressions: controlImp, Conversions: controlConv},
			{ID: "v-a", Name: "Variant A", TrafficWeight: 50, Impressions: candImp, Conversions: candConv},
		},
	}
}

func TestAnalyze_LeaderAndComparison(t *testing.T) {
	exp := twoVariantExperiment(50, 1000, 100, 1000)

	a := stats.Analyze(exp)

	if len(a.Variants) != 2 {
		t.Fatalf("expected 2 variant results, got %d", len(a.Variants))
	}
	if a.Leader == nil || a.Leader.VariantID != "v-a" {
		t.Fatalf("expected v-a to lead, got %+v", a.Leader)
	}
	if !a.Leader.IsWinner {
		t.Error("leader should be flagged as winner")
	}
	if a.Variants[0].PValue != 1 {
		t.Errorf("control p-value should stay 1, got %f", a.Variants[0].PValue)
	}
	if a.Variants[1].PValue >= 0.05 {
		t.Errorf("candidate p-value %f should be significant", a.Variants[1].PValue)
	}
	if !a.Comparison.Significant {
		t.Error("expected a significant comparison")
	}
	if math.Abs(a.Comparison.ImprovementPct-100) > 0.001 {
		t.Errorf("expected +100%% improvement, got %f", a.Comparison.ImprovementPct)
	}
}

func TestAnalyze_NotYetSignificant(t *testing.T) {
	exp := twoVariantExperiment(32, 1000, 41, 1000)

	a := stats.Analyze(exp)

	if a.Leader == nil || a.Leader.VariantID != "v-a" {
		t.Fatal("expected v-a to lead")
	}
	if a.Comparison.Significant {
		t.Errorf("expected no significance at p = %f", a.Comparison.PValue)
	}
	if a.Comparison.PValue < 0.05 {
		t.Errorf("expected p >= 0.05, got %f", a.Comparison.PValue)
	}
}

func TestAnalyze_ControlLeading(t *testing.T) {
	exp := twoVariantExperiment(100, 1000, 30, 1000)

	a := stats.Analyze(exp)

	if a.Leader == nil || a.Leader.VariantID != "v-control" {
		t.Fatal("expected the control to lead")
	}
	if a.Comparison.ImprovementPct != 0 {
		t.Errorf("control improvement over itself should be 0, got %f", a.Comparison.ImprovementPct)
	}
	// The verdict comes from testing the control against the challenger.
	if !a.Comparison.Significant {
		t.Errorf("expected a decisive control win to be significant, p = %f", a.Comparison.PValue)
	}
}

func TestAnalyze_ZeroControlRate(t *testing.T) {
	exp := twoVariantExperiment(0, 1000, 10, 1000)

	a := stats.Analyze(exp)

	if a.Comparison.Computable {
		t.Error("expected improvement marked not computable with a zero control rate")
	}
	if a.Comparison.ImprovementPct != 0 {
		t.Errorf("expected 0 sentinel instead of a non-finite value, got %f", a.Comparison.ImprovementPct)
	}
	if math.IsNaN(a.Comparison.PValue) || math.IsInf(a.Comparison.PValue, 0) {
		t.Errorf("p-value went non-finite: %f", a.Comparison.PValue)
	}
}

func TestAnalyze_NoCounts(t *testing.T) {
	exp := twoVariantExperiment(0, 0, 0, 0)

	a := stats.Analyze(exp)

	if len(a.Variants) != 2 {
		t.Fatalf("expected 2 variant results, got %d", len(a.Variants))
	}
	for i, v := range a.Variants {
		if v.Rate != 0 || v.CILower != 0 || v.CIUpper != 0 {
			t.Errorf("variant %d: expected zeroed stats, got %+v", i, v)
		}
	}
	if a.Comparison.Significant {
		t.Error("no data must never be significant")
	}
}
