// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ad-insights-go/internal/actionable"
	"ad-insights-go/internal/aggregator"
	"ad-insights-go/internal/bucket"
	"ad-insights-go/internal/kpi"
	"ad-insights-go/internal/logger"
	"ad-insights-go/internal/telemetry"
	"ad-insights-go/internal/tokenizer"
	"ad-insights-go/internal/types"
)

// Input is the record set of one run.
type Input struct {
	Queries []types.QueryRecord `json:"queries"`
	Ads     []types.AdRecord    `json:"ads"`
}

type Options struct {
	MinN       int
	MaxN       int
	Thresholds actionable.Thresholds
	Tokenizer  tokenizer.Options
}

func DefaultOptions() Options {
	return Options{
		MinN:       2,
		MaxN:       3,
		Thresholds: actionable.DefaultThresholds(),
	}
}

// Stats summarise a run for logs and the response.
type Stats struct {
	QueryRecords   int         `json:"query_records"`
	AdRecords      int         `json:"ad_records"`
	Phrases        int         `json:"phrases"`
	PhrasesByOrder map[int]int `json:"phrases_by_order"`
	DeriveFaults   []kpi.Fault `json:"derive_faults,omitempty"`
}

// Report is the complete output of one run. Nothing in it is shared with a
// later run.
type Report struct {
	RunID      string                             `json:"run_id"`
	MinN       int                                `json:"min_ngram"`
	MaxN       int                                `json:"max_ngram"`
	Buckets    bucket.Buckets                     `json:"-"`
	NGrams     map[string][]types.PhraseAggregate `json:"ngrams"`
	Ads        []types.AdRecord                   `json:"ads"`
	Result     types.ClassificationResult         `json:"result"`
	Cards      []actionable.ActionCard            `json:"action_cards"`
	Stats      Stats                              `json:"stats"`
	DurationMs int64                              `json:"duration_ms"`
}

// Runner executes runs with shared logging and metrics.
type Runner struct {
	log     *logger.Logger
	metrics *telemetry.Metrics
}

// NewRunner accepts nil metrics.
func NewRunner(log *logger.Logger, metrics *telemetry.Metrics) *Runner {
	if log == nil {
		log = logger.Discard()
	}
	return &Runner{log: log, metrics: metrics}
}

// Run validates the input, aggregates phrases, derives rates, buckets them
// and classifies. Empty input produces an empty report, not an error.
func (r *Runner) Run(ctx context.Context, in Input, opts Options) (Report, error) {
	start := time.Now()
	runID := uuid.New().String()
	log := r.log.WithRun(runID).WithField("component", "pipeline")

	rep, err := r.run(ctx, in, opts, log)
	if err != nil {
		r.metrics.ObserveFailure()
		log.WithError(err).Warn("analysis run rejected")
		return Report{}, err
	}
	rep.RunID = runID
	elapsed := time.Since(start)
	rep.DurationMs = elapsed.Milliseconds()

	r.metrics.ObserveRun(telemetry.RunStats{
		PhrasesByOrder:     rep.Stats.PhrasesByOrder,
		UnderperformingAds: len(rep.Result.UnderperformingAds),
		GoldNuggets:        len(rep.Result.GoldNuggets),
		Mismatches:         len(rep.Result.Mismatches),
		Duration:           elapsed,
	})
	log.WithFields(logrus.Fields{
		"phrases":             rep.Stats.Phrases,
		"underperforming_ads": len(rep.Result.UnderperformingAds),
		"gold_nuggets":        len(rep.Result.GoldNuggets),
		"mismatches":          len(rep.Result.Mismatches),
		"duration_ms":         rep.DurationMs,
	}).Info("analysis run complete")
	return rep, nil
}

func (r *Runner) run(ctx context.Context, in Input, opts Options, log *logrus.Entry) (Report, error) {
	if opts.MinN < 1 || opts.MaxN < opts.MinN {
		return Report{}, fmt.Errorf("invalid n-gram range [%d, %d]", opts.MinN, opts.MaxN)
	}
	if err := types.ValidateQueries(in.Queries); err != nil {
		return Report{}, err
	}
	if err := types.ValidateAds(in.Ads); err != nil {
		return Report{}, err
	}

	tok := tokenizer.New(opts.Tokenizer)
	sums := aggregator.Aggregate(in.Queries, opts.MinN, opts.MaxN, tok)
	log.WithField("phrases", len(sums)).Debug("aggregation done")
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	phrases, faults := kpi.DerivePhrases(sums)
	for _, f := range faults {
		log.WithField("phrase", f.Phrase).WithField("length", f.Length).Warn("non-finite rate, zeroed")
	}
	ads := kpi.DeriveAds(in.Ads)

	buckets := bucket.Partition(phrases, opts.MinN, opts.MaxN)
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	res := actionable.Classify(ads, buckets, opts.Thresholds)

	byOrder := make(map[int]int, opts.MaxN-opts.MinN+1)
	for _, n := range buckets.Orders() {
		byOrder[n] = len(buckets.Order(n))
	}
	return Report{
		MinN:    opts.MinN,
		MaxN:    opts.MaxN,
		Buckets: buckets,
		NGrams:  buckets.Named(),
		Ads:     ads,
		Result:  res,
		Cards:   actionable.Cards(res),
		Stats: Stats{
			QueryRecords:   len(in.Queries),
			AdRecords:      len(in.Ads),
			Phrases:        buckets.Len(),
			PhrasesByOrder: byOrder,
			DeriveFaults:   faults,
		},
	}, nil
}

// Run is a convenience wrapper without metrics.
func Run(ctx context.Context, in Input, opts Options) (Report, error) {
	return NewRunner(nil, nil).Run(ctx, in, opts)
}
