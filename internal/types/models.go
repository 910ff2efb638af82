package types

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidRecord marks a record whose metrics break the input contract
// (negative, NaN or infinite values). The whole batch is rejected.
var ErrInvalidRecord = errors.New("invalid record")

// Totals are the additive metrics shared by query rows and phrase aggregates.
type Totals struct {
	Impressions     float64 `json:"impressions"`
	Clicks          float64 `json:"clicks"`
	Cost            float64 `json:"cost"`
	Conversions     float64 `json:"conversions"`
	ConversionValue float64 `json:"conversion_value"`
}

// Add returns the element-wise sum of t and o.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		Impressions:     t.Impressions + o.Impressions,
		Clicks:          t.Clicks + o.Clicks,
		Cost:            t.Cost + o.Cost,
		Conversions:     t.Conversions + o.Conversions,
		ConversionValue: t.ConversionValue + o.ConversionValue,
	}
}

// Validate reports the first metric that is negative or not finite.
func (t Totals) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"impressions", t.Impressions},
		{"clicks", t.Clicks},
		{"cost", t.Cost},
		{"conversions", t.Conversions},
		{"conversion_value", t.ConversionValue},
	}
	for _, f := range fields {
		if err := checkMetric(f.name, f.v); err != nil {
			return err
		}
	}
	return nil
}

// QueryRecord is one search-term row of a performance export.
type QueryRecord struct {
	Text string `json:"text"`
	Totals
}

// AdRecord is one ad row. CTR is zero until kpi.DeriveAds attaches it.
type AdRecord struct {
	Campaign    string  `json:"campaign"`
	AdGroup     string  `json:"ad_group"`
	Headline    string  `json:"headline"`
	Description string  `json:"description,omitempty"`
	Impressions float64 `json:"impressions"`
	Clicks      float64 `json:"clicks"`
	CTR         float64 `json:"ctr"`
}

// Validate checks the ad metrics.
func (a AdRecord) Validate() error {
	if err := checkMetric("impressions", a.Impressions); err != nil {
		return err
	}
	return checkMetric("clicks", a.Clicks)
}

// ValidateQueries rejects the batch on the first bad record.
func ValidateQueries(records []QueryRecord) error {
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("query record %d (%q): %w", i, r.Text, err)
		}
	}
	return nil
}

// ValidateAds rejects the batch on the first bad ad.
func ValidateAds(ads []AdRecord) error {
	for i, a := range ads {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("ad record %d (%q): %w", i, a.AdGroup, err)
		}
	}
	return nil
}

func checkMetric(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s is not finite", ErrInvalidRecord, name)
	}
	if v < 0 {
		return fmt.Errorf("%w: %s is negative (%g)", ErrInvalidRecord, name, v)
	}
	return nil
}
