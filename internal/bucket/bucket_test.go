package bucket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ad-insights-go/internal/types"
)

func agg(phrase string, n int, cost, impr float64) types.PhraseAggregate {
	return types.PhraseAggregate{
		Phrase: phrase,
		Length: n,
		Totals: types.Totals{Cost: cost, Impressions: impr},
	}
}

func phrases(aggs []types.PhraseAggregate) []string {
	out := make([]string, 0, len(aggs))
	for _, p := range aggs {
		out = append(out, p.Phrase)
	}
	return out
}

func TestPartition(t *testing.T) {
	in := []types.PhraseAggregate{
		agg("shoes", 1, 50, 0),
		agg("red shoes", 2, 10, 0),
		agg("running shoes", 2, 90, 0),
		agg("best running shoes", 3, 20, 0),
		agg("buy best running shoes", 4, 99, 0),
	}
	b := Partition(in, 2, 3)

	assert.Equal(t, []int{2, 3}, b.Orders())
	assert.Equal(t, []string{"running shoes", "red shoes"}, phrases(b.Order(2)))
	assert.Equal(t, []string{"best running shoes"}, phrases(b.Order(3)))
	assert.Empty(t, b.Order(1))
	assert.Empty(t, b.Order(4))
	assert.Equal(t, 3, b.Len())

	for _, n := range b.Orders() {
		for _, p := range b.Order(n) {
			assert.Equal(t, n, p.Length)
		}
	}
}

func TestPartitionEmptyOrdersPresent(t *testing.T) {
	b := Partition(nil, 1, 3)
	named := b.Named()
	require.Len(t, named, 3)
	for _, k := range []string{"1-grams", "2-grams", "3-grams"} {
		part, ok := named[k]
		assert.True(t, ok, k)
		assert.NotNil(t, part)
		assert.Empty(t, part)
	}
}

func TestPartitionStableTies(t *testing.T) {
	in := []types.PhraseAggregate{
		agg("a b", 2, 10, 0),
		agg("c d", 2, 10, 0),
		agg("e f", 2, 30, 0),
		agg("g h", 2, 10, 0),
	}
	b := Partition(in, 2, 2)
	assert.Equal(t, []string{"e f", "a b", "c d", "g h"}, phrases(b.Order(2)))
}

func TestOrderReturnsCopy(t *testing.T) {
	b := Partition([]types.PhraseAggregate{agg("a b", 2, 1, 0)}, 2, 2)
	part := b.Order(2)
	part[0].Phrase = "changed"
	assert.Equal(t, "a b", b.Order(2)[0].Phrase)
}

func TestUnion(t *testing.T) {
	in := []types.PhraseAggregate{
		agg("x y z", 3, 100, 0),
		agg("a b", 2, 5, 0),
		agg("c d", 2, 50, 0),
	}
	b := Partition(in, 1, 3)
	assert.Equal(t, []string{"c d", "a b", "x y z"}, phrases(b.Union(2, 3)))
	assert.Equal(t, []string{"x y z", "c d", "a b"}, phrases(b.Union(3, 2)))
	assert.Empty(t, b.Union(1))
}

func TestRank(t *testing.T) {
	in := []types.PhraseAggregate{
		agg("a", 1, 1, 300),
		agg("b", 1, 3, 100),
		agg("c", 1, 2, 200),
	}
	assert.Equal(t, []string{"a", "c", "b"}, phrases(Rank(in, ByImpressions)))
	assert.Equal(t, []string{"b", "c", "a"}, phrases(Rank(in, ByCost)))
	assert.Equal(t, []string{"b", "c", "a"}, phrases(Rank(in, SortKey("bogus"))))

	// input order untouched
	assert.Equal(t, []string{"a", "b", "c"}, phrases(in))
}

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		in      string
		want    SortKey
		wantErr bool
	}{
		{"", ByCost, false},
		{"ROAS", ByROAS, false},
		{" ctr ", ByCTR, false},
		{"conversion_value", ByConversionValue, false},
		{"profit", "", true},
	}
	for _, tt := range tests {
		got, err := ParseSortKey(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
