package stats_test

import (
	"strings"
	"testing"

	"github.com/sunsplit/sunsplit/internal/stats"
)

func analysisWith(leaderImpressions int64, c stats.Comparison) *stats.Analysis {
	leader := stats.VariantResult{
		VariantID:   "v-a",
		Name:        "Variant A",
		Impressions: leaderImpressions,
		IsWinner:    true,
	}
	return &stats.Analysis{
		Variants:   []stats.VariantResult{leader},
		Leader:     &leader,
		Comparison: c,
	}
}

func TestRecommend_NotSignificant(t *testing.T) {
	a := analysisWith(5000, stats.Comparison{PValue: 0.3, Computable: true, ImprovementPct: 15})

	recs := stats.Recommend(a, 1000)

	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d: %v", len(recs), recs)
	}
	if !strings.Contains(recs[0], "Extend the run") {
		t.Errorf("expected an extend-the-run recommendation, got %q", recs[0])
	}
}

func TestRecommend_StrongLift(t *testing.T) {
	a := analysisWith(5000, stats.Comparison{PValue: 0.01, Significant: true, Computable: true, ImprovementPct: 28})

	recs := stats.Recommend(a, 1000)

	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d: %v", len(recs), recs)
	}
	if !strings.Contains(recs[0], "Roll it out to all traffic now") {
		t.Errorf("expected an immediate rollout recommendation, got %q", recs[0])
	}
}

func TestRecommend_ModerateLift(t *testing.T) {
	a := analysisWith(5000, stats.Comparison{PValue: 0.01, Significant: true, Computable: true, ImprovementPct: 5})

	recs := stats.Recommend(a, 1000)

	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d: %v", len(recs), recs)
	}
	if !strings.Contains(recs[0], "monitoring") {
		t.Errorf("expected a rollout-with-monitoring recommendation, got %q", recs[0])
	}
}

func TestRecommend_ControlWon(t *testing.T) {
	a := analysisWith(5000, stats.Comparison{PValue: 0.01, Significant: true, Computable: true, ImprovementPct: 0})

	recs := stats.Recommend(a, 1000)

	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d: %v", len(recs), recs)
	}
	if !strings.Contains(recs[0], "Re-examine the hypothesis") {
		t.Errorf("expected a re-examine recommendation, got %q", recs[0])
	}
}

func TestRecommend_NotComputable(t *testing.T) {
	a := analysisWith(5000, stats.Comparison{PValue: 0.01, Significant: true, Computable: false})

	recs := stats.Recommend(a, 1000)

	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d: %v", len(recs), recs)
	}
	if !strings.Contains(recs[0], "converts where the control does not") {
		t.Errorf("expected the zero-control-rate recommendation, got %q", recs[0])
	}
}

func TestRecommend_SmallSampleStacks(t *testing.T) {
	a := analysisWith(100, stats.Comparison{PValue: 0.01, Significant: true, Computable: true, ImprovementPct: 28})

	recs := stats.Recommend(a, 1000)

	if len(recs) != 2 {
		t.Fatalf("expected the caution to stack on the rollout notice, got %d: %v", len(recs), recs)
	}
	if !strings.Contains(recs[1], "caution") {
		t.Errorf("expected a small-sample caution last, got %q", recs[1])
	}
}

func TestRecommend_NoLeader(t *testing.T) {
	recs := stats.Recommend(&stats.Analysis{}, 1000)

	if recs != nil {
		t.Errorf("expected no recommendations without a leader, got %v", recs)
	}
}
