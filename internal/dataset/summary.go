package dataset

import (
	"ad-insights-go/internal/kpi"
	"ad-insights-go/internal/types"
)

type DatasetSummary struct {
	QueryRows      int          `json:"query_rows"`
	AdRows         int          `json:"ad_rows"`
	Totals         types.Totals `json:"totals"`
	Rates          types.Rates  `json:"rates"`
	AdImpressions  float64      `json:"ad_impressions"`
	AdClicks       float64      `json:"ad_clicks"`
	AdCTR          float64      `json:"ad_ctr"`
	CampaignCount  int          `json:"campaign_count"`
	AdGroupCount   int          `json:"ad_group_count"`
	EmptyQueryRows int          `json:"empty_query_rows"`
}

// Summarize produces account-level totals for a loaded dataset.
func Summarize(queries []types.QueryRecord, ads []types.AdRecord) DatasetSummary {
	ds := DatasetSummary{QueryRows: len(queries), AdRows: len(ads)}
	for _, q := range queries {
		ds.Totals = ds.Totals.Add(q.Totals)
		if q.Text == "" {
			ds.EmptyQueryRows++
		}
	}
	ds.Rates = kpi.Derive(ds.Totals)

	campaigns := map[string]struct{}{}
	groups := map[string]struct{}{}
	for _, a := range ads {
		ds.AdImpressions += a.Impressions
		ds.AdClicks += a.Clicks
		campaigns[a.Campaign] = struct{}{}
		groups[a.Campaign+"\x00"+a.AdGroup] = struct{}{}
	}
	ds.AdCTR = kpi.CTR(ds.AdClicks, ds.AdImpressions)
	ds.CampaignCount = len(campaigns)
	ds.AdGroupCount = len(groups)
	return ds
}
