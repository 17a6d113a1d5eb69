package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/finance-insights/internal/insights"
)

// Property names of the insights database. "Insight ID" holds the stable
// fingerprint and is the sync key.
const (
	PropTitle       = "Title"
	PropInsightID   = "Insight ID"
	PropType        = "Type"
	PropPriority    = "Priority"
	PropDescription = "Description"
	PropSubject     = "Subject"
	PropRunID       = "Run ID"
	PropGenerated   = "Generated"
	PropAmount      = "Amount"
)

// Notion rejects rich text objects longer than this.
const maxRichTextLen = 2000

func richText(s string) []notionapi.RichText {
	if len(s) > maxRichTextLen {
		s = s[:maxRichTextLen]
	}
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: s},
		},
	}
}

// InsightToNotionProperties converts an insight to the properties of one
// page in the insights database.
func InsightToNotionProperties(ins insights.Insight, runID string, generatedAt time.Time) notionapi.Properties {
	props := notionapi.Properties{
		PropTitle: notionapi.TitleProperty{
			Title: richText(ins.Title),
		},
		PropInsightID: notionapi.RichTextProperty{
			RichText: richText(ins.ID),
		},
		PropType: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(ins.Type)},
		},
		PropPriority: notionapi.SelectProperty{
			Select: notionapi.Option{Name: ins.Priority.String()},
		},
		PropDescription: notionapi.RichTextProperty{
			RichText: richText(ins.Description),
		},
	}

	if ins.Subject != "" {
		props[PropSubject] = notionapi.RichTextProperty{
			RichText: richText(ins.Subject),
		}
	}

	if runID != "" {
		props[PropRunID] = notionapi.RichTextProperty{
			RichText: richText(runID),
		}
	}

	if !generatedAt.IsZero() {
		d := notionapi.Date(generatedAt.UTC())
		props[PropGenerated] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &d},
		}
	}

	// Headline figure for charts in Notion: the last data point.
	if n := len(ins.DataPoints); n > 0 {
		props[PropAmount] = notionapi.NumberProperty{
			Number: ins.DataPoints[n-1].Value,
		}
	}

	return props
}

// extractInsightID reads the sync key from a queried page.
// Returns empty string if not found.
func extractInsightID(page notionapi.Page) string {
	if prop, ok := page.Properties[PropInsightID]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(rt.RichText) > 0 {
				return rt.RichText[0].PlainText
			}
		}
	}
	return ""
}
