package aggregator

import (
	"github.com/RoaringBitmap/roaring"

	"ad-insights-go/internal/ngram"
	"ad-insights-go/internal/tokenizer"
	"ad-insights-go/internal/types"
)

// Tokenizer is satisfied by *tokenizer.Tokenizer.
type Tokenizer interface {
	Tokenize(text string) []string
}

type entry struct {
	totals types.Totals
	rows   *roaring.Bitmap
}

// Accumulator builds running sums per (phrase, length). Rates are left at
// zero; derivation happens once accumulation is complete.
type Accumulator struct {
	minN, maxN int
	tok        Tokenizer
	entries    map[types.PhraseKey]*entry
	order      []types.PhraseKey
	rows       uint32
}

// NewAccumulator covers the inclusive order range [minN, maxN]. A nil
// tokenizer uses the default one.
func NewAccumulator(minN, maxN int, tok Tokenizer) *Accumulator {
	if tok == nil {
		tok = tokenizer.New(tokenizer.Options{})
	}
	return &Accumulator{
		minN:    minN,
		maxN:    maxN,
		tok:     tok,
		entries: make(map[types.PhraseKey]*entry),
	}
}

// Add expands one record into its n-grams and adds its metrics to each.
// A phrase occurring twice in the same record is counted twice.
func (a *Accumulator) Add(rec types.QueryRecord) {
	row := a.rows
	a.rows++
	if a.minN < 1 || a.maxN < a.minN {
		return
	}
	tokens := a.tok.Tokenize(rec.Text)
	for n := a.minN; n <= a.maxN; n++ {
		for _, phrase := range ngram.Generate(tokens, n) {
			e := a.get(types.PhraseKey{Phrase: phrase, Length: n})
			e.totals = e.totals.Add(rec.Totals)
			e.rows.Add(row)
		}
	}
}

func (a *Accumulator) get(k types.PhraseKey) *entry {
	e, ok := a.entries[k]
	if !ok {
		e = &entry{rows: roaring.NewBitmap()}
		a.entries[k] = e
		a.order = append(a.order, k)
	}
	return e
}

// Merge folds other into a. Row ids from other are shifted past a's rows so
// distinct-row counts stay exact.
func (a *Accumulator) Merge(other *Accumulator) {
	if other == nil {
		return
	}
	offset := a.rows
	for _, k := range other.order {
		src := other.entries[k]
		dst := a.get(k)
		dst.totals = dst.totals.Add(src.totals)
		it := src.rows.Iterator()
		for it.HasNext() {
			dst.rows.Add(it.Next() + offset)
		}
	}
	a.rows += other.rows
}

// Len is the number of distinct (phrase, length) keys.
func (a *Accumulator) Len() int { return len(a.order) }

// Result returns one aggregate per key in first-seen order.
func (a *Accumulator) Result() []types.PhraseAggregate {
	out := make([]types.PhraseAggregate, 0, len(a.order))
	for _, k := range a.order {
		e := a.entries[k]
		out = append(out, types.PhraseAggregate{
			Phrase:  k.Phrase,
			Length:  k.Length,
			Queries: int(e.rows.GetCardinality()),
			Totals:  e.totals,
		})
	}
	return out
}

// Aggregate builds phrase sums for every order in [minN, maxN]. No records or
// no phrases yields an empty slice.
func Aggregate(records []types.QueryRecord, minN, maxN int, tok Tokenizer) []types.PhraseAggregate {
	acc := NewAccumulator(minN, maxN, tok)
	for _, rec := range records {
		acc.Add(rec)
	}
	return acc.Result()
}

// Merge adds two aggregate sets key by key. Keys keep first-seen order, a's
// keys first. Rates are not carried; derive again after merging.
func Merge(a, b []types.PhraseAggregate) []types.PhraseAggregate {
	idx := make(map[types.PhraseKey]int, len(a)+len(b))
	out := make([]types.PhraseAggregate, 0, len(a)+len(b))
	for _, set := range [][]types.PhraseAggregate{a, b} {
		for _, p := range set {
			k := p.Key()
			if i, ok := idx[k]; ok {
				out[i].Totals = out[i].Totals.Add(p.Totals)
				out[i].Queries += p.Queries
				continue
			}
			idx[k] = len(out)
			out = append(out, types.PhraseAggregate{
				Phrase:  p.Phrase,
				Length:  p.Length,
				Queries: p.Queries,
				Totals:  p.Totals,
			})
		}
	}
	return out
}
