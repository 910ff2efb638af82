package kpi

import (
	"math"

	"ad-insights-go/internal/types"
)

// floor1 keeps every ratio defined: a zero denominator divides by one, so
// "no activity" reads as a 0 rate.
func floor1(v float64) float64 {
	if v > 0 {
		return v
	}
	return 1
}

// Derive computes the ratio metrics from accumulated sums.
func Derive(t types.Totals) types.Rates {
	return types.Rates{
		CTR:            t.Clicks / floor1(t.Impressions),
		ConversionRate: t.Conversions / floor1(t.Clicks),
		CPA:            t.Cost / floor1(t.Conversions),
		ROAS:           t.ConversionValue / floor1(t.Cost),
	}
}

// CTR is the click-through rate with the same denominator floor.
func CTR(clicks, impressions float64) float64 {
	return clicks / floor1(impressions)
}

// Fault describes an entity whose derivation produced a non-finite value.
// The entity keeps zero rates and the rest of the batch is unaffected.
type Fault struct {
	Phrase string `json:"phrase"`
	Length int    `json:"length"`
}

// DerivePhrases returns copies of aggs with rates filled in. It must run after
// all accumulation for the set is complete.
func DerivePhrases(aggs []types.PhraseAggregate) ([]types.PhraseAggregate, []Fault) {
	out := make([]types.PhraseAggregate, len(aggs))
	var faults []Fault
	for i, p := range aggs {
		out[i] = p
		rates := Derive(p.Totals)
		if !finite(rates) {
			faults = append(faults, Fault{Phrase: p.Phrase, Length: p.Length})
			out[i].Rates = types.Rates{}
			continue
		}
		out[i].Rates = rates
	}
	return out, faults
}

// DeriveAds returns copies of ads with CTR attached.
func DeriveAds(ads []types.AdRecord) []types.AdRecord {
	out := make([]types.AdRecord, len(ads))
	for i, a := range ads {
		out[i] = a
		out[i].CTR = CTR(a.Clicks, a.Impressions)
	}
	return out
}

func finite(r types.Rates) bool {
	for _, v := range []float64{r.CTR, r.ConversionRate, r.CPA, r.ROAS} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
