package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ad-insights-go/internal/actionable"
	"ad-insights-go/internal/bucket"
	"ad-insights-go/internal/dataset"
	"ad-insights-go/internal/logger"
	"ad-insights-go/internal/pipeline"
	"ad-insights-go/internal/suggest"
	"ad-insights-go/internal/types"
)

// Deps are the collaborators the handlers need. Report and Summary describe
// the dataset loaded at startup; Generator may be nil.
type Deps struct {
	Log            *logger.Logger
	Runner         *pipeline.Runner
	Options        pipeline.Options
	Report         pipeline.Report
	Summary        dataset.DatasetSummary
	Generator      *suggest.Generator
	Gatherer       prometheus.Gatherer
	SuggestTimeout time.Duration
}

type server struct {
	Deps
}

// analyzeRequest is the body of POST /analyze. Unset fields take the
// server's defaults; Thresholds is pre-filled so a partial object only
// overrides the keys it names.
type analyzeRequest struct {
	Queries    []types.QueryRecord   `json:"queries"`
	Ads        []types.AdRecord      `json:"ads"`
	MinN       int                   `json:"min_ngram"`
	MaxN       int                   `json:"max_ngram"`
	Thresholds actionable.Thresholds `json:"thresholds"`
}

func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	if d.SuggestTimeout <= 0 {
		d.SuggestTimeout = 90 * time.Second
	}
	s := &server{Deps: d}

	mux := chi.NewRouter()
	mux.Use(s.requestLog)

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); w.Write([]byte("ok")) })
	mux.Get("/summary", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, http.StatusOK, s.Summary) })
	mux.Get("/report", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, http.StatusOK, s.Report) })
	mux.Get("/phrases/{n}", s.phrases)
	mux.Post("/analyze", s.analyze)
	mux.Post("/suggestions", s.suggestions)
	if d.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

func (s *server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-ID") == "" {
			r.Header.Set("X-Request-ID", uuid.New().String())
		}
		w.Header().Set("X-Request-ID", r.Header.Get("X-Request-ID"))
		start := time.Now()
		next.ServeHTTP(w, r)
		s.Log.WithRequest(r).WithField("duration_ms", time.Since(start).Milliseconds()).Info("http")
	})
}

// phrases serves GET /phrases/{n}?sort=roas&limit=20 from the startup report.
func (s *server) phrases(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 1 {
		http.Error(w, "n must be a positive integer", http.StatusBadRequest)
		return
	}
	key, err := bucket.ParseSortKey(r.URL.Query().Get("sort"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
	}
	rows := bucket.Rank(s.Report.Buckets.Order(n), key)
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": n, "sort": key, "phrases": rows})
}

func (s *server) analyze(w http.ResponseWriter, r *http.Request) {
	req := analyzeRequest{Thresholds: s.Options.Thresholds}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 32<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "bad request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	opts := s.Options
	opts.Thresholds = req.Thresholds
	if req.MinN > 0 {
		opts.MinN = req.MinN
	}
	if req.MaxN > 0 {
		opts.MaxN = req.MaxN
	}
	// a lone bound drags the server default along; two explicit bounds are
	// taken as given
	switch {
	case req.MinN > 0 && req.MaxN == 0 && opts.MaxN < opts.MinN:
		opts.MaxN = opts.MinN
	case req.MaxN > 0 && req.MinN == 0 && opts.MinN > opts.MaxN:
		opts.MinN = opts.MaxN
	}
	rep, err := s.Runner.Run(r.Context(), pipeline.Input{Queries: req.Queries, Ads: req.Ads}, opts)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// suggestions generates copy for every underperforming ad of the startup
// report. Per-ad failures are reported inline.
func (s *server) suggestions(w http.ResponseWriter, r *http.Request) {
	if s.Generator == nil {
		http.Error(w, "suggestions disabled", http.StatusServiceUnavailable)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.SuggestTimeout)
	defer cancel()
	out := s.Generator.GenerateAll(ctx, s.Report.Result)
	writeJSON(w, http.StatusOK, map[string]any{"run_id": s.Report.RunID, "suggestions": out})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
