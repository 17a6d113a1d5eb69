package narrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/dvloznov/finance-insights/internal/analysis"
	"github.com/dvloznov/finance-insights/internal/insights"
	"github.com/dvloznov/finance-insights/internal/stats"
)

type mockGenerator struct {
	text string
	err  error

	calls    int
	model    string
	contents []*genai.Content
}

func (m *mockGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.calls++
	m.model = model
	m.contents = contents
	if m.err != nil {
		return nil, m.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: m.text}}}},
		},
	}, nil
}

func testReport() *analysis.Report {
	return &analysis.Report{
		RunID: "run-1",
		Window: analysis.Window{
			Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		Insights: []insights.Insight{
			{Type: insights.TypeBudgetAlert, Priority: insights.PriorityCritical, Title: "Groceries budget exceeded", Description: "Spent 420.00 of 400.00."},
		},
		CashFlow: []stats.MonthValue{{Month: "2024-03", Value: -120.5}},
	}
}

func TestSummarize(t *testing.T) {
	gen := &mockGenerator{text: "  You went over your groceries budget.\n"}
	n := NewWithGenerator(gen, "")

	got, err := n.Summarize(context.Background(), testReport())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "You went over your groceries budget." {
		t.Errorf("summary = %q", got)
	}
	if gen.model != DefaultModelName {
		t.Errorf("model = %q, want %q", gen.model, DefaultModelName)
	}
	prompt := gen.contents[0].Parts[0].Text
	if !strings.Contains(prompt, "[critical] budget_alert, Groceries budget exceeded") {
		t.Errorf("prompt missing insight line:\n%s", prompt)
	}
}

func TestSummarizeNoInsights(t *testing.T) {
	gen := &mockGenerator{}
	report := testReport()
	report.Insights = nil

	got, err := NewWithGenerator(gen, "m").Summarize(context.Background(), report)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != NoInsightsSummary {
		t.Errorf("summary = %q", got)
	}
	if gen.calls != 0 {
		t.Errorf("model called %d times for empty report", gen.calls)
	}
}

func TestSummarizeErrors(t *testing.T) {
	tests := []struct {
		name string
		gen  *mockGenerator
		want error
	}{
		{"model error", &mockGenerator{err: errors.New("quota exceeded")}, nil},
		{"blank answer", &mockGenerator{text: "   "}, ErrEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWithGenerator(tt.gen, "m").Summarize(context.Background(), testReport())
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(testReport())

	for _, want := range []string{
		"Analysis window: 2024-01-01 to 2024-03-31",
		"- 2024-03: -120.50",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "Projected") {
		t.Errorf("prompt has forecast section without forecast:\n%s", prompt)
	}
}
