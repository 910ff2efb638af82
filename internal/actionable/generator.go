package actionable

import (
	"fmt"

	"ad-insights-go/internal/types"
)

type ActionCard struct {
	Category string `json:"category"`
	Insight  string `json:"insight"`
	Action   string `json:"action"`
	Impact   string `json:"impact"`
}

const (
	CategoryUnderperforming = "underperforming_ads"
	CategoryGoldNuggets     = "gold_nuggets"
	CategoryMismatches      = "mismatches"
)

// Cards turns a classification into one card per category with a signal,
// naming the leading entry. No signal at all yields a single monitor card.
func Cards(res types.ClassificationResult) []ActionCard {
	var cards []ActionCard
	if n := len(res.UnderperformingAds); n > 0 {
		worst := res.UnderperformingAds[0]
		for _, a := range res.UnderperformingAds[1:] {
			if a.CTR < worst.CTR {
				worst = a
			}
		}
		cards = append(cards, ActionCard{
			Category: CategoryUnderperforming,
			Insight:  fmt.Sprintf("%d ad(s) below CTR target; weakest is %q in %q (%.2f%%)", n, worst.Headline, worst.AdGroup, worst.CTR*100),
			Action:   "Rewrite headlines around high-impression search phrases",
			Impact:   "Lift CTR on ads that already have reach",
		})
	}
	if n := len(res.GoldNuggets); n > 0 {
		top := res.GoldNuggets[0]
		cards = append(cards, ActionCard{
			Category: CategoryGoldNuggets,
			Insight:  fmt.Sprintf("%d converting phrase(s); best is %q (ROAS %.2f, CPA %.2f)", n, top.Phrase, top.ROAS, top.CPA),
			Action:   "Promote these phrases into descriptions and exact-match keywords",
			Impact:   "More conversions at a proven cost per acquisition",
		})
	}
	if n := len(res.Mismatches); n > 0 {
		top := res.Mismatches[0]
		cards = append(cards, ActionCard{
			Category: CategoryMismatches,
			Insight:  fmt.Sprintf("%d high-visibility phrase(s) with low CTR; largest is %q (%.0f impressions, CTR %.2f%%)", n, top.Phrase, top.Impressions, top.CTR*100),
			Action:   "Add as negatives or write ad copy that answers the query",
			Impact:   "Less wasted impressions and better ad relevance",
		})
	}
	if len(cards) == 0 {
		cards = append(cards, ActionCard{
			Insight: "No optimization signal detected",
			Action:  "Monitor and collect more data",
			Impact:  "Low immediate intervention",
		})
	}
	return cards
}
