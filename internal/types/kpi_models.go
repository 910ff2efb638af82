// internal/types/kpi_models.go
package types

// --------------------------------------------
// Derived ratios
// --------------------------------------------
type Rates struct {
	CTR            float64 `json:"ctr"`
	ConversionRate float64 `json:"conversion_rate"`
	CPA            float64 `json:"cpa"`
	ROAS           float64 `json:"roas"`
}

// --------------------------------------------
// Aggregation identity: a phrase is scoped per n-gram order
// --------------------------------------------
type PhraseKey struct {
	Phrase string `json:"phrase"`
	Length int    `json:"length"`
}

// --------------------------------------------
// One entry per distinct (phrase, length)
// --------------------------------------------
type PhraseAggregate struct {
	Phrase  string `json:"phrase"`
	Length  int    `json:"length"`
	Queries int    `json:"queries"` // distinct source rows containing the phrase
	Totals
	Rates
}

func (p PhraseAggregate) Key() PhraseKey {
	return PhraseKey{Phrase: p.Phrase, Length: p.Length}
}

// --------------------------------------------
// Output of one classification run
// --------------------------------------------
type ClassificationResult struct {
	UnderperformingAds []AdRecord        `json:"underperforming_ads"`
	GoldNuggets        []PhraseAggregate `json:"gold_nuggets"`
	Mismatches         []PhraseAggregate `json:"mismatches"`
}

// Empty reports whether no category produced a signal.
func (c ClassificationResult) Empty() bool {
	return len(c.UnderperformingAds) == 0 && len(c.GoldNuggets) == 0 && len(c.Mismatches) == 0
}
