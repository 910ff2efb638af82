package ngram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tokens := []string{"best", "running", "shoes", "men"}

	tests := []struct {
		n    int
		want []string
	}{
		{1, []string{"best", "running", "shoes", "men"}},
		{2, []string{"best running", "running shoes", "shoes men"}},
		{3, []string{"best running shoes", "running shoes men"}},
		{4, []string{"best running shoes men"}},
		{5, []string{}},
		{0, []string{}},
		{-1, []string{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Generate(tokens, tt.n), "n=%d", tt.n)
	}
}

func TestGenerateCount(t *testing.T) {
	tokens := []string{"a", "b", "c", "d", "e", "f"}
	for n := 1; n <= len(tokens); n++ {
		assert.Len(t, Generate(tokens, n), len(tokens)-n+1)
	}
}

func TestGenerateEmpty(t *testing.T) {
	assert.Empty(t, Generate(nil, 2))
	assert.NotNil(t, Generate(nil, 2))
}

func TestGenerateKeepsRepeats(t *testing.T) {
	got := Generate([]string{"shoes", "shoes", "shoes"}, 2)
	assert.Equal(t, []string{"shoes shoes", "shoes shoes"}, got)
}
