package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ad-insights-go/internal/dataset"
	"ad-insights-go/internal/logger"
	"ad-insights-go/internal/pipeline"
	"ad-insights-go/internal/suggest"
	"ad-insights-go/internal/telemetry"
	"ad-insights-go/internal/types"
)

func testInput() pipeline.Input {
	return pipeline.Input{
		Queries: []types.QueryRecord{
			{Text: "running shoes men", Totals: types.Totals{Impressions: 10000, Clicks: 40, Cost: 80, Conversions: 2, ConversionValue: 100}},
			{Text: "red running shoes", Totals: types.Totals{Impressions: 4000, Clicks: 20, Cost: 30, Conversions: 1, ConversionValue: 50}},
			{Text: "trail shoes sale", Totals: types.Totals{Impressions: 800, Clicks: 60, Cost: 40, Conversions: 8, ConversionValue: 400}},
		},
		Ads: []types.AdRecord{
			{Campaign: "Shoes", AdGroup: "Running", Headline: "Fast Shoes", Impressions: 12000, Clicks: 300},
		},
	}
}

func setupRouter(t *testing.T, gen *suggest.Generator) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	log := logger.Discard()
	runner := pipeline.NewRunner(log, telemetry.New(reg))
	opts := pipeline.DefaultOptions()

	in := testInput()
	rep, err := runner.Run(context.Background(), in, opts)
	require.NoError(t, err)

	return NewRouter(Deps{
		Log:       log,
		Runner:    runner,
		Options:   opts,
		Report:    rep,
		Summary:   dataset.Summarize(in.Queries, in.Ads),
		Generator: gen,
		Gatherer:  reg,
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := do(t, setupRouter(t, nil), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSummary(t *testing.T) {
	rec := do(t, setupRouter(t, nil), http.MethodGet, "/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var ds dataset.DatasetSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ds))
	assert.Equal(t, 3, ds.QueryRows)
	assert.Equal(t, 1, ds.AdRows)
}

func TestReport(t *testing.T) {
	rec := do(t, setupRouter(t, nil), http.MethodGet, "/report", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		RunID  string                             `json:"run_id"`
		NGrams map[string][]types.PhraseAggregate `json:"ngrams"`
		Result types.ClassificationResult         `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.RunID)
	assert.Contains(t, body.NGrams, "2-grams")
	assert.Len(t, body.Result.UnderperformingAds, 1)
}

func TestPhrases(t *testing.T) {
	h := setupRouter(t, nil)

	rec := do(t, h, http.MethodGet, "/phrases/2?sort=impressions&limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Order   int                     `json:"order"`
		Sort    string                  `json:"sort"`
		Phrases []types.PhraseAggregate `json:"phrases"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Order)
	assert.Equal(t, "impressions", body.Sort)
	require.Len(t, body.Phrases, 2)
	assert.Equal(t, "running shoes", body.Phrases[0].Phrase)
	assert.Equal(t, "shoes men", body.Phrases[1].Phrase)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/phrases/x", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/phrases/2?sort=profit", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/phrases/2?limit=-1", "").Code)
}

func TestAnalyze(t *testing.T) {
	h := setupRouter(t, nil)
	payload, err := json.Marshal(map[string]any{
		"queries":   testInput().Queries,
		"ads":       testInput().Ads,
		"min_ngram": 1,
		"max_ngram": 2,
	})
	require.NoError(t, err)

	rec := do(t, h, http.MethodPost, "/analyze", string(payload))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		MinN   int                                `json:"min_ngram"`
		MaxN   int                                `json:"max_ngram"`
		NGrams map[string][]types.PhraseAggregate `json:"ngrams"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.MinN)
	assert.Equal(t, 2, body.MaxN)
	assert.Contains(t, body.NGrams, "1-grams")
	assert.NotContains(t, body.NGrams, "3-grams")
}

type analyzeResult struct {
	MinN   int                        `json:"min_ngram"`
	MaxN   int                        `json:"max_ngram"`
	Result types.ClassificationResult `json:"result"`
}

func postAnalyze(t *testing.T, h http.Handler, body map[string]any) analyzeResult {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	rec := do(t, h, http.MethodPost, "/analyze", string(payload))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out analyzeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAnalyzePartialThresholdsKeepDefaults(t *testing.T) {
	h := setupRouter(t, nil)
	queries := []types.QueryRecord{
		{Text: "shoes repair", Totals: types.Totals{Impressions: 9000, Clicks: 10}},
		{Text: "trail shoes", Totals: types.Totals{Impressions: 100, Clicks: 10, Cost: 240, Conversions: 6}},
	}
	ads := []types.AdRecord{{Campaign: "Shoes", AdGroup: "Running", Headline: "Fast Shoes", Impressions: 12000, Clicks: 300}}

	// defaults: CPA 40 is under the 50 ceiling
	base := postAnalyze(t, h, map[string]any{"queries": queries, "ads": ads})
	require.Len(t, base.Result.GoldNuggets, 1)

	got := postAnalyze(t, h, map[string]any{
		"queries":    queries,
		"ads":        ads,
		"thresholds": map[string]any{"gold_nuggets": map[string]any{"max_cpa": 30}},
	})
	assert.Empty(t, got.Result.GoldNuggets)
	require.Len(t, got.Result.UnderperformingAds, 1)
	assert.Equal(t, "Running", got.Result.UnderperformingAds[0].AdGroup)
	require.Len(t, got.Result.Mismatches, 1)
	assert.Equal(t, "shoes repair", got.Result.Mismatches[0].Phrase)

	// min_conversions was not sent and stays at 5
	got = postAnalyze(t, h, map[string]any{
		"queries":    []types.QueryRecord{{Text: "trail shoes", Totals: types.Totals{Impressions: 100, Clicks: 10, Cost: 40, Conversions: 4}}},
		"thresholds": map[string]any{"gold_nuggets": map[string]any{"max_cpa": 30}},
	})
	assert.Empty(t, got.Result.GoldNuggets)
}

func TestAnalyzeSingleBoundWidensRange(t *testing.T) {
	h := setupRouter(t, nil)
	in := testInput()

	got := postAnalyze(t, h, map[string]any{"queries": in.Queries, "min_ngram": 4})
	assert.Equal(t, 4, got.MinN)
	assert.Equal(t, 4, got.MaxN)

	got = postAnalyze(t, h, map[string]any{"queries": in.Queries, "max_ngram": 1})
	assert.Equal(t, 1, got.MinN)
	assert.Equal(t, 1, got.MaxN)

	got = postAnalyze(t, h, map[string]any{"queries": in.Queries, "min_ngram": 3})
	assert.Equal(t, 3, got.MinN)
	assert.Equal(t, 3, got.MaxN)
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	h := setupRouter(t, nil)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/analyze", `{"unknown":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/analyze", `not json`).Code)

	rec := do(t, h, http.MethodPost, "/analyze", `{"queries":[{"text":"shoes","clicks":-1}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid record")

	rec = do(t, h, http.MethodPost, "/analyze", `{"min_ngram":3,"max_ngram":2}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSuggestions(t *testing.T) {
	rec := do(t, setupRouter(t, nil), http.MethodPost, "/suggestions", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h := setupRouter(t, suggest.New(suggest.Config{Mock: true}, nil, nil, nil))
	rec = do(t, h, http.MethodPost, "/suggestions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		RunID       string            `json:"run_id"`
		Suggestions []suggest.Outcome `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Suggestions, 1)
	assert.Empty(t, body.Suggestions[0].Error)
	assert.Len(t, body.Suggestions[0].Suggestion.Variations, 3)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, setupRouter(t, nil), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "adinsights_analysis_runs_total")
}
