package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"ad-insights-go/internal/config"
	"ad-insights-go/internal/dataset"
	"ad-insights-go/internal/logger"
	"ad-insights-go/internal/pipeline"
	"ad-insights-go/internal/suggest"
	"ad-insights-go/internal/types"
)

const previewRows = 5

func main() {
	queriesPath := flag.String("queries", "", "Search-terms export (.csv or .xlsx)")
	adsPath := flag.String("ads", "", "Ads export (.csv or .xlsx)")
	minN := flag.Int("min", 0, "Smallest n-gram order (default from config)")
	maxN := flag.Int("max", 0, "Largest n-gram order (default from config)")
	withSuggest := flag.Bool("suggest", false, "Generate ad copy for underperforming ads")
	configPath := flag.String("config", "", "Path to config YAML (overrides CONFIG_PATH)")
	flag.Parse()

	if *configPath != "" {
		os.Setenv("CONFIG_PATH", *configPath)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.New().WithError(err).Fatal("load config")
	}
	log := logger.NewWithOptions(logger.Options{Environment: cfg.Environment, Level: cfg.LogLevel, Output: os.Stderr})

	if *queriesPath != "" {
		cfg.Dataset.QueriesPath = *queriesPath
	}
	if *adsPath != "" {
		cfg.Dataset.AdsPath = *adsPath
	}
	opts := pipeline.Options{
		MinN:       cfg.NGram.Min,
		MaxN:       cfg.NGram.Max,
		Thresholds: cfg.Thresholds,
		Tokenizer:  cfg.Tokenizer,
	}
	if *minN > 0 {
		opts.MinN = *minN
	}
	if *maxN > 0 {
		opts.MaxN = *maxN
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	fmt.Println("\n--- 1. Loading Data ---")
	queries, ads, err := dataset.NewLoader(log).LoadAll(ctx, cfg.Dataset.QueriesPath, cfg.Dataset.AdsPath)
	if err != nil {
		log.WithError(err).Fatal("analysis halted due to data loading errors")
	}

	fmt.Println("\n--- 2. Running N-Gram Analysis on Search Terms ---")
	rep, err := pipeline.NewRunner(log, nil).Run(ctx, pipeline.Input{Queries: queries, Ads: ads}, opts)
	if err != nil {
		log.WithError(err).Fatal("analysis failed")
	}
	for _, n := range rep.Buckets.Orders() {
		fmt.Printf("%d-grams: %d phrases\n", n, len(rep.Buckets.Order(n)))
	}

	fmt.Println("\n--- 3. Identifying Optimization Opportunities ---")
	printResult(os.Stdout, rep.Result)

	if *withSuggest {
		fmt.Println("\n--- 4. Generating Ad Copy Suggestions ---")
		printSuggestions(ctx, os.Stdout, suggest.New(cfg.LLM, nil, log, nil), rep.Result)
	}
	fmt.Println("\n--- Analysis Complete ---")
}

func printResult(w io.Writer, res types.ClassificationResult) {
	if len(res.UnderperformingAds) > 0 {
		fmt.Fprintln(w, "\nUnderperforming Ad(s) Identified:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "Campaign\tAd group\tHeadline 1\tCTR")
		for _, a := range res.UnderperformingAds {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\n", a.Campaign, a.AdGroup, a.Headline, a.CTR)
		}
		tw.Flush()
	}
	if len(res.GoldNuggets) > 0 {
		fmt.Fprintln(w, "\nTop 'Gold Nugget' N-Grams Found (High Conversion, Low CPA):")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "N-Gram\tConversions\tCPA\tROAS")
		for i, p := range res.GoldNuggets {
			if i == previewRows {
				break
			}
			fmt.Fprintf(tw, "%s\t%.0f\t%.2f\t%.2f\n", p.Phrase, p.Conversions, p.CPA, p.ROAS)
		}
		tw.Flush()
	}
	if len(res.Mismatches) > 0 {
		fmt.Fprintln(w, "\n'Mismatched' N-Grams Found (High Impressions, Low CTR):")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "N-Gram\tImpressions\tCTR")
		for i, p := range res.Mismatches {
			if i == previewRows {
				break
			}
			fmt.Fprintf(tw, "%s\t%.0f\t%.4f\n", p.Phrase, p.Impressions, p.CTR)
		}
		tw.Flush()
	}
	if res.Empty() {
		fmt.Fprintln(w, "No optimization opportunities found.")
	}
}

func printSuggestions(ctx context.Context, w io.Writer, gen *suggest.Generator, res types.ClassificationResult) {
	if len(res.UnderperformingAds) == 0 {
		fmt.Fprintln(w, "No underperforming ads to generate suggestions for.")
		return
	}
	for _, ad := range res.UnderperformingAds {
		fmt.Fprintf(w, "\nProcessing Ad Group: '%s'\n", ad.AdGroup)
		s, err := gen.Generate(ctx, suggest.NewRequest(ad, res.GoldNuggets, res.Mismatches))
		switch {
		case errors.Is(err, suggest.ErrNoMismatches):
			fmt.Fprintln(w, "No 'Mismatched' n-grams found to generate suggestions from.")
			continue
		case err != nil:
			fmt.Fprintf(w, "Suggestion generation failed: %v\n", err)
			continue
		}
		for _, line := range suggest.Format(s) {
			fmt.Fprintln(w, line)
		}
		for _, warn := range s.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warn)
		}
	}
}
