package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/finance-insights/internal/analysis"
	"github.com/dvloznov/finance-insights/internal/backend"
	"github.com/dvloznov/finance-insights/internal/config"
	"github.com/dvloznov/finance-insights/internal/gcsuploader"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/notionsync"
)

func main() {
	log := logger.New()

	configPath := flag.String("config", "", "Config file (default: FINSIGHT_CONFIG or ./finsight.yaml)")
	startDateStr := flag.String("start-date", "", "Start date in YYYY-MM-DD format (default: worker.lookback_months back)")
	endDateStr := flag.String("end-date", "", "Last day to analyze, YYYY-MM-DD, inclusive (default: today)")
	notionToken := flag.String("notion-token", "", "Notion API token (default: notion.token)")
	notionDBID := flag.String("notion-db-id", "", "Notion database ID (default: notion.database_id)")
	latest := flag.Bool("latest", false, "Publish the last stored run instead of running a new analysis")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	var cfg config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if *notionToken == "" {
		*notionToken = cfg.Notion.Token
	}
	if *notionDBID == "" {
		*notionDBID = cfg.Notion.DatabaseID
	}
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token or notion.token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id or notion.database_id is required")
	}

	now := time.Now()
	startDate, endDate := analysis.DefaultWindow(now, cfg.Worker.LookbackMonths)
	if *startDateStr != "" {
		if startDate, err = time.Parse("2006-01-02", *startDateStr); err != nil {
			log.Fatal().Err(err).Str("start_date", *startDateStr).Msg("Error: invalid start-date format, expected YYYY-MM-DD")
		}
	}
	if *endDateStr != "" {
		day, err := time.Parse("2006-01-02", *endDateStr)
		if err != nil {
			log.Fatal().Err(err).Str("end_date", *endDateStr).Msg("Error: invalid end-date format, expected YYYY-MM-DD")
		}
		endDate = day.AddDate(0, 0, 1)
	}
	if !startDate.Before(endDate) {
		log.Fatal().
			Time("start_date", startDate).
			Time("end_date", endDate).
			Msg("Error: end-date must not be before start-date")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	be, err := backend.Open(ctx, cfg.Store, gcsuploader.NewGCSStorageService())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage backend")
	}
	defer be.Close()

	var report *analysis.Report
	if *latest {
		if be.Results == nil {
			log.Fatal().Str("backend", be.Name).Msg("Error: --latest needs a backend that stores runs")
		}
		run, out, err := be.Results.LatestResult(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load latest result")
		}
		report = analysis.ReportFromResult(run, out)
	} else {
		report, err = be.NewAnalyzer(cfg.Rules).Run(ctx, analysis.Request{
			Trigger: analysis.TriggerCLI,
			Start:   startDate,
			End:     endDate,
			Now:     now,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Analysis failed")
		}
	}

	log.Info().
		Str("run_id", report.RunID).
		Int("insights", len(report.Insights)).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	notionClient := notionsync.NewNotionClient(*notionToken)
	stats, err := notionsync.PublishInsights(ctx, notionClient, *notionDBID, report, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Notion sync failed")
	}

	prefix := ""
	if *dryRun {
		prefix = "[DRY RUN] "
	}
	fmt.Printf("%sCreated %d, updated %d, archived %d, failed %d\n",
		prefix, stats.Created, stats.Updated, stats.Deleted, stats.Failed)
}
