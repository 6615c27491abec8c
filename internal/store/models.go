package store

import (
	"fmt"

	"github.com/sunsplit/sunsplit/internal/experiment"
)

// The dashboard rows this engine replaced carried capitalized status and
// type strings. That casing is a persistence-layer compatibility concern,
// so the translation lives here at the adapter boundary; the core only ever
// sees the closed Status enum.
var statusToRecord = map[experiment.Status]string{
	experiment.StatusDraft:     "Draft",
	experiment.StatusRunning:   "Running",
	experiment.StatusPaused:    "Paused",
	experiment.StatusCompleted: "Completed",
	experiment.StatusCancelled: "Cancelled",
}

var statusFromRecord = map[string]experiment.Status{
	"Draft":     experiment.StatusDraft,
	"Running":   experiment.StatusRunning,
	"Paused":    experiment.StatusPaused,
	"Completed": experiment.StatusCompleted,
	"Cancelled": experiment.StatusCancelled,
}

func encodeStatus(s experiment.Status) (string, error) {
	rec, ok := statusToRecord[s]
	if !ok {
		return "", fmt.Errorf("unknown experiment status %q", s)
	}
	return rec, nil
}

func decodeStatus(rec string) (experiment.Status, error) {
	s, ok := statusFromRecord[rec]
	if !ok {
		return "", fmt.Errorf("unknown stored status %q", rec)
	}
	return s, nil
}

// variantRecord is the JSON shape variants take inside the experiments row.
type variantRecord struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	IsControl     bool    `json:"is_control"`
	TrafficWeight float64 `json:"traffic_weight"`
	Impressions   int64   `json:"impressions"`
	Conversions   int64   `json:"conversions"`
}

type metricRecord struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	IsPrimary bool   `json:"is_primary"`
}

func toVariantRecords(variants []*experiment.Variant) []variantRecord {
	recs := make([]variantRecord, len(variants))
	for i, v := range variants {
		recs[i] = variantRecord{
			ID:            v.ID,
			Name:          v.Name,
			Description:   v.Description,
			IsControl:     v.IsControl,
			TrafficWeight: v.TrafficWeight,
			Impressions:   v.Impressions,
			Conversions:   v.Conversions,
		}
	}
	return recs
}

func fromVariantRecords(recs []variantRecord) []*experiment.Variant {
	variants := make([]*experiment.Variant, len(recs))
	for i, r := range recs {
		variants[i] = &experiment.Variant{
			ID:            r.ID,
			Name:          r.Name,
			Description:   r.Description,
			IsControl:     r.IsControl,
			TrafficWeight: r.TrafficWeight,
			Impressions:   r.Impressions,
			Conversions:   r.Conversions,
		}
	}
	return variants
}

func toMetricRecords(metrics []experiment.Metric) []metricRecord {
	recs := make([]metricRecord, len(metrics))
	for i, m := range metrics {
		recs[i] = metricRecord{Name: m.Name, Type: string(m.Type), IsPrimary: m.IsPrimary}
	}
	return recs
}

func fromMetricRecords(recs []metricRecord) []experiment.Metric {
	metrics := make([]experiment.Metric, len(recs))
	for i, r := range recs {
		metrics[i] = experiment.Metric{Name: r.Name, Type: experiment.MetricType(r.Type), IsPrimary: r.IsPrimary}
	}
	return metrics
}
