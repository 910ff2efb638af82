package suggest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"ad-insights-go/internal/logger"
	"ad-insights-go/internal/telemetry"
	"ad-insights-go/internal/types"
)

var (
	ErrNoMismatches  = errors.New("no mismatched phrases to build suggestions from")
	ErrNotConfigured = errors.New("llm gateway not configured")
)

// TopN is how many phrases of each category go into a prompt.
const TopN = 5

const (
	maxHeadlineLen    = 30
	maxDescriptionLen = 90
)

type Config struct {
	GatewayURL   string        `yaml:"gateway_url"`
	APIKey       string        `yaml:"-"`
	Model        string        `yaml:"model"`
	Mock         bool          `yaml:"mock"`
	HTTPTimeout  time.Duration `yaml:"http_timeout"`
	MaxRetryTime time.Duration `yaml:"max_retry_time"`
	Temperature  float64       `yaml:"temperature"`
}

// Cache stores raw generation results keyed by prompt hash.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
}

type Request struct {
	Ad          types.AdRecord `json:"ad"`
	GoldNuggets []string       `json:"gold_nuggets"`
	Mismatches  []string       `json:"mismatches"`
}

// NewRequest keeps the top phrases of each ranked category.
func NewRequest(ad types.AdRecord, gold, mismatches []types.PhraseAggregate) Request {
	return Request{Ad: ad, GoldNuggets: topPhrases(gold), Mismatches: topPhrases(mismatches)}
}

func topPhrases(aggs []types.PhraseAggregate) []string {
	out := []string{}
	for i := 0; i < len(aggs) && i < TopN; i++ {
		out = append(out, aggs[i].Phrase)
	}
	return out
}

type Variation struct {
	Headlines    []string `json:"headlines"`
	Descriptions []string `json:"descriptions"`
}

type Suggestion struct {
	AdGroup    string      `json:"ad_group"`
	Headline   string      `json:"headline"`
	Variations []Variation `json:"ad_variations"`
	Warnings   []string    `json:"warnings,omitempty"`
	Cached     bool        `json:"cached"`
}

type Generator struct {
	cfg     Config
	client  *http.Client
	cache   Cache
	log     *logger.Logger
	metrics *telemetry.Metrics
}

// New accepts a nil cache, logger or metrics.
func New(cfg Config, cache Cache, log *logger.Logger, metrics *telemetry.Metrics) *Generator {
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 25 * time.Second
	}
	if cfg.MaxRetryTime <= 0 {
		cfg.MaxRetryTime = 45 * time.Second
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Generator{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		cache:   cache,
		log:     log,
		metrics: metrics,
	}
}

// Generate asks the gateway for three ad variations. Errors stay local to the
// request; nothing here reads or writes aggregates.
func (g *Generator) Generate(ctx context.Context, req Request) (Suggestion, error) {
	log := g.log.Component("suggest").WithField("ad_group", req.Ad.AdGroup)
	out := Suggestion{AdGroup: req.Ad.AdGroup, Headline: req.Ad.Headline}

	if len(req.Mismatches) == 0 {
		g.metrics.ObserveSuggestion("skipped")
		return out, ErrNoMismatches
	}

	prompt := BuildPrompt(req)

	if g.cfg.Mock {
		log.Info("mock LLM mode ON - returning deterministic variations")
		out.Variations = mockVariations(req)
		out.Warnings = checkLimits(out.Variations)
		g.metrics.ObserveSuggestion("ok")
		return out, nil
	}
	if g.cfg.GatewayURL == "" || g.cfg.APIKey == "" {
		g.metrics.ObserveSuggestion("error")
		return out, ErrNotConfigured
	}

	key := cacheKey(g.cfg.Model, prompt)
	if g.cache != nil {
		raw, ok, err := g.cache.Get(ctx, key)
		if err != nil {
			log.WithError(err).Warn("suggestion cache read failed")
		} else if ok {
			var vars []Variation
			if err := json.Unmarshal(raw, &vars); err == nil {
				out.Variations = vars
				out.Warnings = checkLimits(vars)
				out.Cached = true
				g.metrics.ObserveSuggestion("cached")
				return out, nil
			}
		}
	}

	vars, err := g.call(ctx, prompt, log)
	if err != nil {
		g.metrics.ObserveSuggestion("error")
		return out, err
	}
	out.Variations = vars
	out.Warnings = checkLimits(vars)

	if g.cache != nil {
		if raw, err := json.Marshal(vars); err == nil {
			if err := g.cache.Set(ctx, key, raw); err != nil {
				log.WithError(err).Warn("suggestion cache write failed")
			}
		}
	}
	g.metrics.ObserveSuggestion("ok")
	log.WithField("variations", len(vars)).Info("suggestions generated")
	return out, nil
}

func (g *Generator) call(ctx context.Context, prompt string, log *logrus.Entry) ([]Variation, error) {
	reqBody := map[string]any{
		"model": g.cfg.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature":     g.cfg.Temperature,
		"response_format": map[string]string{"type": "json_object"},
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode llm request: %w", err)
	}
	log.WithField("payload_len", len(data)).Debug("LLM request payload")

	var parsed struct {
		Variations []Variation `json:"ad_variations"`
	}
	var lastErr error

	// LLM call with retry/backoff
	op := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, g.cfg.HTTPTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, g.cfg.GatewayURL, bytes.NewReader(data))
		if err != nil {
			lastErr = err
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := g.client.Do(req)
		if err != nil {
			lastErr = err
			log.WithError(err).Warn("llm request failed")
			return err
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		log.WithField("http_status", resp.StatusCode).Debug("llm raw:\n" + string(body))

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("llm server error: status %d", resp.StatusCode)
			return lastErr
		}
		if resp.StatusCode >= 400 {
			// Permanent: don't retry on client errors
			lastErr = fmt.Errorf("llm client error: status %d: %s", resp.StatusCode, truncate(string(body), 200))
			return backoff.Permanent(lastErr)
		}

		// Try choices[0].message.content (OpenAI-like)
		if inner := extractContentFromChoices(body); inner != "" {
			if err := json.Unmarshal([]byte(inner), &parsed); err == nil {
				lastErr = nil
				return nil
			}
			log.Warn("unmarshal from choices content failed")
		}

		// Fallback: find first balanced JSON in response body
		if fallback := extractJSON(string(body)); fallback != "" {
			if err := json.Unmarshal([]byte(fallback), &parsed); err == nil {
				lastErr = nil
				return nil
			}
		}

		lastErr = fmt.Errorf("no JSON found in LLM output")
		return lastErr
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = g.cfg.MaxRetryTime

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return nil, fmt.Errorf("llm generate failed: %w", lastErr)
	}
	if len(parsed.Variations) == 0 {
		return nil, fmt.Errorf("llm generate failed: empty ad_variations")
	}
	return parsed.Variations, nil
}

// Outcome is the per-ad result of GenerateAll.
type Outcome struct {
	Suggestion Suggestion `json:"suggestion"`
	Error      string     `json:"error,omitempty"`
}

// GenerateAll produces suggestions for every underperforming ad. One ad's
// failure is recorded in its outcome and does not stop the others.
func (g *Generator) GenerateAll(ctx context.Context, res types.ClassificationResult) []Outcome {
	out := make([]Outcome, 0, len(res.UnderperformingAds))
	for _, ad := range res.UnderperformingAds {
		s, err := g.Generate(ctx, NewRequest(ad, res.GoldNuggets, res.Mismatches))
		o := Outcome{Suggestion: s}
		if err != nil {
			o.Error = err.Error()
		}
		out = append(out, o)
	}
	return out
}

// Format renders a suggestion as indented display lines.
func Format(s Suggestion) []string {
	var lines []string
	for i, v := range s.Variations {
		lines = append(lines, fmt.Sprintf("  Suggestion Set %d:", i+1))
		for j, h := range v.Headlines {
			lines = append(lines, fmt.Sprintf("    H%d: %s", j+1, h))
		}
		for k, d := range v.Descriptions {
			lines = append(lines, fmt.Sprintf("    D%d: %s", k+1, d))
		}
	}
	return lines
}

func checkLimits(vars []Variation) []string {
	var warnings []string
	for i, v := range vars {
		for _, h := range v.Headlines {
			if n := len([]rune(h)); n > maxHeadlineLen {
				warnings = append(warnings, fmt.Sprintf("set %d: headline %q is %d chars (max %d)", i+1, h, n, maxHeadlineLen))
			}
		}
		for _, d := range v.Descriptions {
			if n := len([]rune(d)); n > maxDescriptionLen {
				warnings = append(warnings, fmt.Sprintf("set %d: description %q is %d chars (max %d)", i+1, d, n, maxDescriptionLen))
			}
		}
	}
	return warnings
}

func mockVariations(req Request) []Variation {
	gold := "proven results"
	if len(req.GoldNuggets) > 0 {
		gold = req.GoldNuggets[0]
	}
	vars := make([]Variation, 0, 3)
	for i := 0; i < 3; i++ {
		phrase := req.Mismatches[i%len(req.Mismatches)]
		vars = append(vars, Variation{
			Headlines: []string{
				truncate(titleCase(phrase), maxHeadlineLen),
				truncate("Shop "+titleCase(phrase), maxHeadlineLen),
				truncate(req.Ad.AdGroup, maxHeadlineLen),
			},
			Descriptions: []string{
				truncate("Customers love our "+gold+". Order today.", maxDescriptionLen),
				truncate("Find "+phrase+" with fast delivery and easy returns.", maxDescriptionLen),
			},
		})
	}
	return vars
}

func cacheKey(model, prompt string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + prompt))
	return "suggest:" + hex.EncodeToString(sum[:])
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
