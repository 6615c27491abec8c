package experiment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an experiment. Completed and cancelled
// are terminal: an experiment is never mutated once it reaches either.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Type tags what kind of page element the experiment targets. The engine
// treats it as opaque; it only matters for routing on the site side.
type Type string

const (
	TypePopup       Type = "popup"
	TypeBanner      Type = "banner"
	TypeLandingPage Type = "landing-page"
)

// MetricType is the fixed vocabulary of metric definitions.
type MetricType string

const (
	MetricConversionRate    MetricType = "conversion-rate"
	MetricClickThroughRate  MetricType = "click-through-rate"
	MetricBounceRate        MetricType = "bounce-rate"
	MetricTimeOnPage        MetricType = "time-on-page"
	MetricRevenuePerVisitor MetricType = "revenue-per-visitor"
)

var validMetricTypes = map[MetricType]bool{
	MetricConversionRate:    true,
	MetricClickThroughRate:  true,
	MetricBounceRate:        true,
	MetricTimeOnPage:        true,
	MetricRevenuePerVisitor: true,
}

// ValidConfidence reports whether level is one of the supported confidence
// levels (90, 95, 99).
func ValidConfidence(level int) bool {
	return level == 90 || level == 95 || level == 99
}

// Metric describes what an experiment measures. At most one primary metric
// is meaningful per experiment; this is informational, not enforced.
type Metric struct {
	Name      string     `json:"name"`
	Type      MetricType `json:"type"`
	IsPrimary bool       `json:"is_primary"`
}

// Variant is one treatment within an experiment, including the control.
// Impressions and Conversions are cumulative and never decrease within a run.
type Variant struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	IsControl     bool    `json:"is_control"`
	TrafficWeight float64 `json:"traffic_weight"`
	Impressions   int64   `json:"impressions"`
	Conversions   int64   `json:"conversions"`
}

// ConversionRate returns conversions / impressions, or 0 with no impressions.
func (v *Variant) ConversionRate() float64 {
	if v.Impressions == 0 {
		return 0
	}
	return float64(v.Conversions) / float64(v.Impressions)
}

// Clone returns an independent copy.
func (v *Variant) Clone() *Variant {
	c := *v
	return &c
}

// Experiment is a single A/B test with its variants and decision policy.
type Experiment struct {
	ID                      string     `json:"id"`
	Name                    string     `json:"name"`
	Description             string     `json:"description,omitempty"`
	Type                    Type       `json:"type"`
	Status                  Status     `json:"status"`
	ConfidenceLevel         int        `json:"confidence_level"`
	MinimumDetectableEffect float64    `json:"minimum_detectable_effect,omitempty"`
	AutoStop                bool       `json:"auto_stop"`
	StartDate               *time.Time `json:"start_date,omitempty"`
	EndDate                 *time.Time `json:"end_date,omitempty"`
	Variants                []*Variant `json:"variants"`
	Metrics                 []Metric   `json:"metrics,omitempty"`
	WinnerVariantID         string     `json:"winner_variant_id,omitempty"`
	// StatisticalSignificance is the confidence level at which significance
	// was established when the experiment completed, 0 if it never was.
	StatisticalSignificance int       `json:"statistical_significance,omitempty"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// Control returns the control variant, or nil if the experiment has none.
func (e *Experiment) Control() *Variant {
	for _, v := range e.Variants {
		if v.IsControl {
			return v
		}
	}
	return nil
}

// Variant returns the variant with the given id, or nil.
func (e *Experiment) Variant(id string) *Variant {
	for _, v := range e.Variants {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// TotalImpressions sums impressions across all variants.
func (e *Experiment) TotalImpressions() int64 {
	var n int64
	for _, v := range e.Variants {
		n += v.Impressions
	}
	return n
}

// TotalConversions sums conversions across all variants.
func (e *Experiment) TotalConversions() int64 {
	var n int64
	for _, v := range e.Variants {
		n += v.Conversions
	}
	return n
}

// Clone returns a deep copy safe to hand to callers while the engine keeps
// mutating its own instance.
func (e *Experiment) Clone() *Experiment {
	c := *e
	if e.StartDate != nil {
		t := *e.StartDate
		c.StartDate = &t
	}
	if e.EndDate != nil {
		t := *e.EndDate
		c.EndDate = &t
	}
	c.Variants = make([]*Variant, len(e.Variants))
	for i, v := range e.Variants {
		c.Variants[i] = v.Clone()
	}
	c.Metrics = append([]Metric(nil), e.Metrics...)
	return &c
}

// VariantDefinition is the input shape for one variant at creation time.
type VariantDefinition struct {
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	IsControl     bool    `json:"is_control"`
	TrafficWeight float64 `json:"traffic_weight"`
}

// Definition is the input for creating an experiment.
type Definition struct {
	Name                    string              `json:"name"`
	Description             string              `json:"description,omitempty"`
	Type                    Type                `json:"type,omitempty"`
	ConfidenceLevel         int                 `json:"confidence_level,omitempty"`
	MinimumDetectableEffect float64             `json:"minimum_detectable_effect,omitempty"`
	AutoStop                *bool               `json:"auto_stop,omitempty"`
	Variants                []VariantDefinition `json:"variants"`
	Metrics                 []Metric            `json:"metrics,omitempty"`
}

// Validate checks the definition against the creation invariants: a name,
// exactly one control variant, weights inside [0, 100], a whitelisted
// confidence level and known metric types. Weight sums other than 100 are
// allowed; the allocator's fallback covers the unassigned tail.
func (d Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("experiment name is required: %w", ErrValidation)
	}
	if len(d.Variants) == 0 {
		return fmt.Errorf("at least one variant is required: %w", ErrValidation)
	}
	controls := 0
	for _, v := range d.Variants {
		if v.Name == "" {
			return fmt.Errorf("variant name is required: %w", ErrValidation)
		}
		if v.IsControl {
			controls++
		}
		if v.TrafficWeight < 0 || v.TrafficWeight > 100 {
			return fmt.Errorf("variant %q traffic weight %.1f outside [0, 100]: %w", v.Name, v.TrafficWeight, ErrValidation)
		}
	}
	if controls != 1 {
		return fmt.Errorf("exactly one control variant required, got %d: %w", controls, ErrValidation)
	}
	if d.ConfidenceLevel != 0 && !ValidConfidence(d.ConfidenceLevel) {
		return fmt.Errorf("unsupported confidence level %d (want 90, 95 or 99): %w", d.ConfidenceLevel, ErrValidation)
	}
	for _, m := range d.Metrics {
		if !validMetricTypes[m.Type] {
			return fmt.Errorf("unknown metric type %q: %w", m.Type, ErrValidation)
		}
	}
	return nil
}

// New builds a draft experiment from a definition. autoStopDefault applies
// when the definition leaves the auto-stop policy unset.
func New(def Definition, autoStopDefault bool) (*Experiment, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	confidence := def.ConfidenceLevel
	if confidence == 0 {
		confidence = 95
	}
	autoStop := autoStopDefault
	if def.AutoStop != nil {
		autoStop = *def.AutoStop
	}
	expType := def.Type
	if expType == "" {
		expType = TypeLandingPage
	}

	now := time.Now()
	exp := &Experiment{
		ID:                      uuid.NewString(),
		Name:                    def.Name,
		Description:             def.Description,
		Type:                    expType,
		Status:                  StatusDraft,
		ConfidenceLevel:         confidence,
		MinimumDetectableEffect: def.MinimumDetectableEffect,
		AutoStop:                autoStop,
		Metrics:                 append([]Metric(nil), def.Metrics...),
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	for _, vd := range def.Variants {
		exp.Variants = append(exp.Variants, &Variant{
			ID:            uuid.NewString(),
			Name:          vd.Name,
			Description:   vd.Description,
			IsControl:     vd.IsControl,
			TrafficWeight: vd.TrafficWeight,
		})
	}
	return exp, nil
}
