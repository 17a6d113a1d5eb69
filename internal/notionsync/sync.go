package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/finance-insights/internal/analysis"
	"github.com/dvloznov/finance-insights/internal/logger"
)

const (
	// BatchSize defines the number of insights to process in a single batch
	BatchSize = 100
)

// SyncStats counts what a publish did, or would do in a dry run.
type SyncStats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// PublishInsights mirrors the report's insights into a Notion database.
// Pages are matched on the "Insight ID" property, so a re-run updates the
// pages of insights that still hold and archives the rest. Pages with no
// Insight ID are treated as stale. Individual page failures are logged and
// counted; only a failed database query aborts the sync.
func PublishInsights(ctx context.Context, notionClient NotionService, notionDBID string, report *analysis.Report, dryRun bool) (SyncStats, error) {
	log := logger.FromContext(ctx)
	var stats SyncStats

	if report == nil {
		return stats, fmt.Errorf("PublishInsights: nil report")
	}

	log.Info().
		Str("run_id", report.RunID).
		Int("insight_count", len(report.Insights)).
		Bool("dry_run", dryRun).
		Msg("Starting insight sync to Notion")

	valid := make(map[string]bool, len(report.Insights))
	for _, ins := range report.Insights {
		valid[ins.ID] = true
	}

	notionPages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return stats, fmt.Errorf("PublishInsights: %w", err)
	}

	log.Info().Int("notion_page_count", len(notionPages)).Msg("Retrieved existing Notion pages")

	// First page per insight ID wins; later duplicates are stale.
	existing := make(map[string]string)
	var stale []notionapi.Page
	for _, page := range notionPages {
		id := extractInsightID(page)
		if id == "" || !valid[id] {
			stale = append(stale, page)
			continue
		}
		if _, dup := existing[id]; dup {
			stale = append(stale, page)
			continue
		}
		existing[id] = string(page.ID)
	}

	for _, page := range stale {
		id := extractInsightID(page)
		if dryRun {
			log.Info().
				Str("insight_id", id).
				Str("page_id", string(page.ID)).
				Msg("[DRY RUN] Would delete stale Notion page")
			stats.Deleted++
			continue
		}
		if err := notionClient.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().
				Err(err).
				Str("insight_id", id).
				Str("page_id", string(page.ID)).
				Msg("Failed to delete stale Notion page")
			stats.Failed++
			continue
		}
		stats.Deleted++
	}

	for i := 0; i < len(report.Insights); i += BatchSize {
		end := i + BatchSize
		if end > len(report.Insights) {
			end = len(report.Insights)
		}
		batch := report.Insights[i:end]
		log.Debug().
			Int("batch_start", i).
			Int("batch_end", end).
			Msg("Processing batch")

		for _, ins := range batch {
			pageID, found := existing[ins.ID]

			if dryRun {
				if found {
					log.Info().
						Str("insight_id", ins.ID).
						Str("page_id", pageID).
						Msg("[DRY RUN] Would update existing Notion page")
					stats.Updated++
				} else {
					log.Info().
						Str("insight_id", ins.ID).
						Str("title", ins.Title).
						Msg("[DRY RUN] Would create new Notion page")
					stats.Created++
				}
				continue
			}

			props := InsightToNotionProperties(ins, report.RunID, report.GeneratedAt)

			if found {
				if _, err := notionClient.UpdatePage(ctx, pageID, props); err != nil {
					log.Warn().
						Err(err).
						Str("insight_id", ins.ID).
						Str("page_id", pageID).
						Msg("Failed to update Notion page")
					stats.Failed++
					continue
				}
				stats.Updated++
				continue
			}

			page, err := notionClient.CreatePage(ctx, notionDBID, props)
			if err != nil {
				log.Warn().
					Err(err).
					Str("insight_id", ins.ID).
					Msg("Failed to create Notion page")
				stats.Failed++
				continue
			}
			log.Debug().
				Str("insight_id", ins.ID).
				Str("page_id", string(page.ID)).
				Msg("Created Notion page")
			stats.Created++
		}
	}

	log.Info().
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Int("deleted", stats.Deleted).
		Int("failed", stats.Failed).
		Msg("Insight sync completed")

	return stats, nil
}

// queryAllNotionPages queries all pages from a Notion database and returns them.
// Handles pagination automatically.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
