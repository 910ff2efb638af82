package bucket

import (
	"fmt"
	"sort"
	"strings"

	"ad-insights-go/internal/types"
)

// SortKey selects the metric a bucket is ranked by.
type SortKey string

const (
	ByCost            SortKey = "cost"
	ByImpressions     SortKey = "impressions"
	ByClicks          SortKey = "clicks"
	ByConversions     SortKey = "conversions"
	ByConversionValue SortKey = "conversion_value"
	ByCTR             SortKey = "ctr"
	ByConversionRate  SortKey = "conversion_rate"
	ByCPA             SortKey = "cpa"
	ByROAS            SortKey = "roas"
)

var extractors = map[SortKey]func(types.PhraseAggregate) float64{
	ByCost:            func(p types.PhraseAggregate) float64 { return p.Cost },
	ByImpressions:     func(p types.PhraseAggregate) float64 { return p.Impressions },
	ByClicks:          func(p types.PhraseAggregate) float64 { return p.Clicks },
	ByConversions:     func(p types.PhraseAggregate) float64 { return p.Conversions },
	ByConversionValue: func(p types.PhraseAggregate) float64 { return p.ConversionValue },
	ByCTR:             func(p types.PhraseAggregate) float64 { return p.CTR },
	ByConversionRate:  func(p types.PhraseAggregate) float64 { return p.ConversionRate },
	ByCPA:             func(p types.PhraseAggregate) float64 { return p.CPA },
	ByROAS:            func(p types.PhraseAggregate) float64 { return p.ROAS },
}

// ParseSortKey accepts a key name case-insensitively. Empty means cost.
func ParseSortKey(s string) (SortKey, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ByCost, nil
	}
	k := SortKey(s)
	if _, ok := extractors[k]; !ok {
		return "", fmt.Errorf("unknown sort key %q", s)
	}
	return k, nil
}

// Rank returns a copy of aggs sorted descending by key. Ties keep their
// input order. An unknown key falls back to cost.
func Rank(aggs []types.PhraseAggregate, key SortKey) []types.PhraseAggregate {
	val, ok := extractors[key]
	if !ok {
		val = extractors[ByCost]
	}
	out := make([]types.PhraseAggregate, len(aggs))
	copy(out, aggs)
	sort.SliceStable(out, func(i, j int) bool { return val(out[i]) > val(out[j]) })
	return out
}

// Buckets holds one ranked slice per n-gram order.
type Buckets struct {
	orders []int
	byLen  map[int][]types.PhraseAggregate
}

// Partition splits aggs by length for each order in [minN, maxN] and ranks
// each partition by cost. Aggregates outside the range are dropped.
func Partition(aggs []types.PhraseAggregate, minN, maxN int) Buckets {
	b := Buckets{byLen: make(map[int][]types.PhraseAggregate)}
	for n := minN; n <= maxN; n++ {
		b.orders = append(b.orders, n)
		b.byLen[n] = []types.PhraseAggregate{}
	}
	for _, p := range aggs {
		if part, ok := b.byLen[p.Length]; ok {
			b.byLen[p.Length] = append(part, p)
		}
	}
	for _, n := range b.orders {
		b.byLen[n] = Rank(b.byLen[n], ByCost)
	}
	return b
}

// Orders lists the requested orders ascending.
func (b Buckets) Orders() []int {
	out := make([]int, len(b.orders))
	copy(out, b.orders)
	return out
}

// Order returns the partition for n, empty when n was not requested.
func (b Buckets) Order(n int) []types.PhraseAggregate {
	part := b.byLen[n]
	out := make([]types.PhraseAggregate, len(part))
	copy(out, part)
	return out
}

// Union concatenates the partitions for the given orders in argument order.
func (b Buckets) Union(orders ...int) []types.PhraseAggregate {
	var out []types.PhraseAggregate
	for _, n := range orders {
		out = append(out, b.byLen[n]...)
	}
	return out
}

// Len is the total number of aggregates across all partitions.
func (b Buckets) Len() int {
	total := 0
	for _, part := range b.byLen {
		total += len(part)
	}
	return total
}

// Named keys each partition like "2-grams" for JSON output.
func (b Buckets) Named() map[string][]types.PhraseAggregate {
	out := make(map[string][]types.PhraseAggregate, len(b.orders))
	for _, n := range b.orders {
		out[fmt.Sprintf("%d-grams", n)] = b.Order(n)
	}
	return out
}
