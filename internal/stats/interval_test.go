package stats_test

import (
	"math"
	"testing"

	"github.com/sunsplit/sunsplit/internal/stats"
)

func TestWaldInterval_ContainsRate(t *testing.T) {
	// 32 conversions out of 1000 impressions (3.2% rate) at 95% confidence
	lower, upper := stats.WaldInterval(32, 1000, 95)

	rate := 0.032
	if lower >= rate || upper <= rate {
		t.Errorf("interval [%f, %f] does not contain rate %f", lower, upper, rate)
	}
	if lower < 0 || upper > 1 {
		t.Errorf("interval [%f, %f] out of bounds", lower, upper)
	}

	// Expected: approximately [0.021, 0.043]
	if lower < 0.019 || lower > 0.023 {
		t.Errorf("lower bound %f not in expected range [0.019, 0.023]", lower)
	}
	if upper < 0.041 || upper > 0.045 {
		t.Errorf("upper bound %f not in expected range [0.041, 0.045]", upper)
	}
}

func TestWaldInterval_ZeroImpressions(t *testing.T) {
	lower, upper := stats.WaldInterval(0, 0, 95)

	if lower != 0 || upper != 0 {
		t.Errorf("expected (0, 0) for zero impressions, got (%f, %f)", lower, upper)
	}
}

func TestWaldInterval_ZeroConversions(t *testing.T) {
	lower, upper := stats.WaldInterval(0, 100, 95)

	if lower != 0 {
		t.Errorf("expected lower bound clamped to 0, got %f", lower)
	}
	if upper != 0 {
		t.Errorf("expected upper bound 0 for a zero rate, got %f", upper)
	}
}

func TestWaldInterval_AllConversions(t *testing.T) {
	lower, upper := stats.WaldInterval(100, 100, 95)

	if upper != 1 {
		t.Errorf("expected upper bound clamped to 1, got %f", upper)
	}
	if lower > 1 {
		t.Errorf("lower bound %f above 1", lower)
	}
}

func TestWaldInterval_WiderAtHigherConfidence(t *testing.T) {
	lower95, upper95 := stats.WaldInterval(50, 1000, 95)
	lower99, upper99 := stats.WaldInterval(50, 1000, 99)

	if upper99-lower99 <= upper95-lower95 {
		t.Errorf("99%% interval [%f, %f] not wider than 95%% interval [%f, %f]",
			lower99, upper99, lower95, upper95)
	}
}

func TestZScore(t *testing.T) {
	tests := []struct {
		confidenceLevel int
		expected        float64
	}{
		{90, 1.645},
		{95, 1.96},
		{99, 2.576},
		{85, 1.96}, // unsupported levels fall back to 95%
		{0, 1.96},
	}

	for _, tt := range tests {
		z := stats.ZScore(tt.confidenceLevel)
		if math.Abs(z-tt.expected) > 0.001 {
			t.Errorf("ZScore(%d) = %f, want %f", tt.confidenceLevel, z, tt.expected)
		}
	}
}
