// Package narrator asks Gemini for a short plain-language summary of an
// analysis report. The insight set stays the source of truth; the summary
// only restates it.
package narrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/finance-insights/internal/analysis"
	"github.com/dvloznov/finance-insights/internal/logger"
)

// DefaultModelName is used when Config.Model is empty.
const DefaultModelName = "gemini-2.5-flash"

// NoInsightsSummary is returned without a model call for an empty report.
const NoInsightsSummary = "No insights for this period. Spending, budgets and accounts look normal."

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("empty response from model")

// Generator is the slice of the genai client the narrator needs.
// *genai.Models satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config selects the Vertex AI project and model.
type Config struct {
	Model     string
	ProjectID string
	Location  string
}

type Narrator struct {
	gen   Generator
	model string
}

// New creates a Vertex AI backed narrator. Credentials come from the
// environment, as for the other Google clients.
func New(ctx context.Context, cfg Config) (*Narrator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend:     genai.BackendVertexAI,
		Project:     cfg.ProjectID,
		Location:    cfg.Location,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("New: create genai client: %w", err)
	}
	return NewWithGenerator(client.Models, cfg.Model), nil
}

func NewWithGenerator(gen Generator, model string) *Narrator {
	if model == "" {
		model = DefaultModelName
	}
	return &Narrator{gen: gen, model: model}
}

// Summarize returns a few sentences describing the report's insights,
// most important first.
func (n *Narrator) Summarize(ctx context.Context, report *analysis.Report) (string, error) {
	if report == nil {
		return "", fmt.Errorf("Summarize: nil report")
	}
	if len(report.Insights) == 0 {
		return NoInsightsSummary, nil
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("model", n.model).
		Str("run_id", report.RunID).
		Int("insight_count", len(report.Insights)).
		Msg("Requesting report summary")

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: BuildPrompt(report)}},
		},
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.2),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
	}

	resp, err := n.gen.GenerateContent(ctx, n.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("Summarize: generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("Summarize: %w", ErrEmptyResponse)
	}
	return text, nil
}

const systemPrompt = "You are a personal finance assistant. " +
	"Summarize the findings you are given in at most five short sentences of plain text. " +
	"Lead with the highest priority items. Do not invent numbers that are not in the findings. " +
	"Do not use Markdown."

// BuildPrompt renders the report as the user turn sent to the model.
func BuildPrompt(report *analysis.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analysis window: %s to %s\n\n",
		report.Window.Start.Format("2006-01-02"),
		report.Window.End.AddDate(0, 0, -1).Format("2006-01-02"))

	b.WriteString("Findings (priority, type, title: description):\n")
	for _, ins := range report.Insights {
		fmt.Fprintf(&b, "- [%s] %s, %s: %s\n", ins.Priority, ins.Type, ins.Title, ins.Description)
	}

	if len(report.CashFlow) > 0 {
		b.WriteString("\nMonthly net cash flow:\n")
		for _, mv := range report.CashFlow {
			fmt.Fprintf(&b, "- %s: %.2f\n", mv.Month, mv.Value)
		}
	}
	if len(report.Forecast) > 0 {
		b.WriteString("\nProjected net cash flow:\n")
		for _, mv := range report.Forecast {
			fmt.Fprintf(&b, "- %s: %.2f\n", mv.Month, mv.Value)
		}
	}

	return b.String()
}
