package actionable

import (
	"sort"

	"ad-insights-go/internal/bucket"
	"ad-insights-go/internal/types"
)

// AdThresholds select ads with plenty of reach but a weak click-through rate.
type AdThresholds struct {
	MinImpressions float64 `yaml:"min_impressions" json:"min_impressions"`
	MaxCTR         float64 `yaml:"max_ctr" json:"max_ctr"`
}

// GoldNuggetThresholds select phrases that convert cheaply.
type GoldNuggetThresholds struct {
	MinConversions float64 `yaml:"min_conversions" json:"min_conversions"`
	MaxCPA         float64 `yaml:"max_cpa" json:"max_cpa"`
}

// MismatchThresholds select phrases that are shown a lot but rarely clicked.
type MismatchThresholds struct {
	MinImpressions float64 `yaml:"min_impressions" json:"min_impressions"`
	MaxCTR         float64 `yaml:"max_ctr" json:"max_ctr"`
}

type Thresholds struct {
	Ads         AdThresholds         `yaml:"underperforming_ads" json:"underperforming_ads"`
	GoldNuggets GoldNuggetThresholds `yaml:"gold_nuggets" json:"gold_nuggets"`
	Mismatches  MismatchThresholds   `yaml:"mismatches" json:"mismatches"`
}

func DefaultAdThresholds() AdThresholds {
	return AdThresholds{MinImpressions: 10000, MaxCTR: 0.04}
}

func DefaultGoldNuggetThresholds() GoldNuggetThresholds {
	return GoldNuggetThresholds{MinConversions: 5, MaxCPA: 50.0}
}

func DefaultMismatchThresholds() MismatchThresholds {
	return MismatchThresholds{MinImpressions: 5000, MaxCTR: 0.05}
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Ads:         DefaultAdThresholds(),
		GoldNuggets: DefaultGoldNuggetThresholds(),
		Mismatches:  DefaultMismatchThresholds(),
	}
}

// phraseOrders are the n-gram orders phrase classification looks at.
// Unigrams are too generic and longer phrases too sparse for ad copy.
var phraseOrders = []int{2, 3}

// UnderperformingAds keeps ads with impressions > MinImpressions and
// ctr < MaxCTR, in input order. ads must already carry CTR.
func UnderperformingAds(ads []types.AdRecord, th AdThresholds) []types.AdRecord {
	out := []types.AdRecord{}
	for _, a := range ads {
		if a.Impressions > th.MinImpressions && a.CTR < th.MaxCTR {
			out = append(out, a)
		}
	}
	return out
}

// GoldNuggets keeps 2- and 3-grams with enough conversions at a positive CPA
// no higher than MaxCPA, best ROAS first.
func GoldNuggets(b bucket.Buckets, th GoldNuggetThresholds) []types.PhraseAggregate {
	out := []types.PhraseAggregate{}
	for _, p := range b.Union(phraseOrders...) {
		if p.Conversions >= th.MinConversions && p.CPA <= th.MaxCPA && p.CPA > 0 {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ROAS > out[j].ROAS })
	return out
}

// Mismatches keeps 2- and 3-grams with impressions >= MinImpressions and
// ctr < MaxCTR, most impressions first.
func Mismatches(b bucket.Buckets, th MismatchThresholds) []types.PhraseAggregate {
	out := []types.PhraseAggregate{}
	for _, p := range b.Union(phraseOrders...) {
		if p.Impressions >= th.MinImpressions && p.CTR < th.MaxCTR {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Impressions > out[j].Impressions })
	return out
}

// Classify runs the three rules independently.
func Classify(ads []types.AdRecord, b bucket.Buckets, th Thresholds) types.ClassificationResult {
	return types.ClassificationResult{
		UnderperformingAds: UnderperformingAds(ads, th.Ads),
		GoldNuggets:        GoldNuggets(b, th.GoldNuggets),
		Mismatches:         Mismatches(b, th.Mismatches),
	}
}
