package notionsync

import (
	"strings"
	"testing"
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/finance-insights/internal/insights"
)

func TestInsightToNotionProperties(t *testing.T) {
	generated := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	ins := insights.Insight{
		ID:          "abc",
		Type:        insights.TypeCreditUtilization,
		Priority:    insights.PriorityCritical,
		Title:       "Credit card nearly maxed",
		Description: strings.Repeat("x", 2500),
		Subject:     "acct-1",
		DataPoints: []insights.DataPoint{
			{Label: "balance", Value: 900},
			{Label: "utilization", Value: 0.9},
		},
	}

	props := InsightToNotionProperties(ins, "run-1", generated)

	if got := props[PropInsightID].(notionapi.RichTextProperty).RichText[0].Text.Content; got != "abc" {
		t.Errorf("Insight ID = %q", got)
	}
	if got := props[PropPriority].(notionapi.SelectProperty).Select.Name; got != "critical" {
		t.Errorf("Priority = %q", got)
	}
	if got := props[PropType].(notionapi.SelectProperty).Select.Name; got != "credit_utilization" {
		t.Errorf("Type = %q", got)
	}
	if got := len(props[PropDescription].(notionapi.RichTextProperty).RichText[0].Text.Content); got != maxRichTextLen {
		t.Errorf("Description length = %d, want %d", got, maxRichTextLen)
	}
	if got := props[PropAmount].(notionapi.NumberProperty).Number; got != 0.9 {
		t.Errorf("Amount = %v, want last data point", got)
	}
	date := props[PropGenerated].(notionapi.DateProperty).Date.Start
	if !time.Time(*date).Equal(generated) {
		t.Errorf("Generated = %v", time.Time(*date))
	}
}

func TestInsightToNotionPropertiesOptional(t *testing.T) {
	props := InsightToNotionProperties(insights.Insight{ID: "abc", Title: "t", Priority: insights.PriorityLow}, "", time.Time{})

	for _, name := range []string{PropSubject, PropRunID, PropGenerated, PropAmount} {
		if _, ok := props[name]; ok {
			t.Errorf("property %q set for empty value", name)
		}
	}
}

func TestExtractInsightID(t *testing.T) {
	tests := []struct {
		name string
		page notionapi.Page
		want string
	}{
		{"present", page("p", "abc"), "abc"},
		{"missing", page("p", ""), ""},
		{"wrong type", notionapi.Page{Properties: notionapi.Properties{
			PropInsightID: &notionapi.TitleProperty{Title: []notionapi.RichText{{PlainText: "abc"}}},
		}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractInsightID(tt.page); got != tt.want {
				t.Errorf("extractInsightID() = %q, want %q", got, tt.want)
			}
		})
	}
}
