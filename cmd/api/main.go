package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"ad-insights-go/internal/cache"
	"ad-insights-go/internal/config"
	"ad-insights-go/internal/dataset"
	"ad-insights-go/internal/httpapi"
	"ad-insights-go/internal/logger"
	"ad-insights-go/internal/pipeline"
	"ad-insights-go/internal/suggest"
	"ad-insights-go/internal/telemetry"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.New().WithError(err).Fatal("failed to load config")
	}

	log := logger.NewWithOptions(logger.Options{Environment: cfg.Environment, Level: cfg.LogLevel})
	log.WithField("service", "ad-insights-go").Info("starting service")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.New(reg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// load dataset into memory and analyze it once
	log.WithField("queries_path", cfg.Dataset.QueriesPath).WithField("ads_path", cfg.Dataset.AdsPath).Info("loading dataset")
	queries, ads, err := dataset.NewLoader(log).LoadAll(ctx, cfg.Dataset.QueriesPath, cfg.Dataset.AdsPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load dataset")
	}
	summary := dataset.Summarize(queries, ads)
	log.Component("dataset").WithFields(logrus.Fields{
		"query_rows": summary.QueryRows,
		"ad_rows":    summary.AdRows,
		"cost":       summary.Totals.Cost,
		"campaigns":  summary.CampaignCount,
	}).Info("dataset summarization complete")

	opts := pipeline.Options{
		MinN:       cfg.NGram.Min,
		MaxN:       cfg.NGram.Max,
		Thresholds: cfg.Thresholds,
		Tokenizer:  cfg.Tokenizer,
	}
	runner := pipeline.NewRunner(log, metrics)
	report, err := runner.Run(ctx, pipeline.Input{Queries: queries, Ads: ads}, opts)
	if err != nil {
		log.WithError(err).Fatal("startup analysis failed")
	}

	var sc suggest.Cache
	if cfg.Redis.Addr != "" {
		rc, err := cache.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, suggestions will not be cached")
		} else {
			defer rc.Close()
			sc = rc
		}
	}
	gen := suggest.New(cfg.LLM, sc, log, metrics)

	handler := httpapi.NewRouter(httpapi.Deps{
		Log:            log,
		Runner:         runner,
		Options:        opts,
		Report:         report,
		Summary:        summary,
		Generator:      gen,
		Gatherer:       reg,
		SuggestTimeout: cfg.Server.SuggestTimeout,
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}
