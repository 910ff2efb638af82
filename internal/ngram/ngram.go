package ngram

import "strings"

// Generate slides a window of n tokens over tokens and joins each window
// with a single space. Fewer than n tokens yields no n-grams.
func Generate(tokens []string, n int) []string {
	if n <= 0 || len(tokens) < n {
		return []string{}
	}
	out := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		out = append(out, strings.Join(tokens[i:i+n], " "))
	}
	return out
}
