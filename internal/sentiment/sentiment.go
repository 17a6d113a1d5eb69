// Package sentiment scores free text with fixed keyword lists.
package sentiment

import (
	"strings"
	"time"

	"github.com/dvloznov/finance-insights/internal/domain"
)

// Label buckets a score.
type Label string

const (
	LabelPositive Label = "positive"
	LabelNegative Label = "negative"
	LabelNeutral  Label = "neutral"
)

const (
	scale     = 5.0
	threshold = 0.2
)

var (
	positiveWords = []string{"good", "great", "excellent", "happy", "love", "amazing", "wonderful", "fantastic", "awesome"}
	negativeWords = []string{"bad", "terrible", "awful", "sad", "hate", "horrible", "angry", "poor", "worst"}
)

// Result is the derived (label, score) pair. Score is in [-1, 1].
type Result struct {
	Label Label   `json:"label"`
	Score float64 `json:"score"`
}

// Analyze scores text. Matching is substring containment on the lower-cased
// text and each keyword counts at most once.
func Analyze(text string) Result {
	lower := strings.ToLower(text)
	pos := hits(lower, positiveWords)
	neg := hits(lower, negativeWords)

	score := float64(pos-neg) / scale
	if score > 1 {
		score = 1
	} else if score < -1 {
		score = -1
	}
	return Result{Label: LabelFor(score), Score: score}
}

// LabelFor maps a score to its label.
func LabelFor(score float64) Label {
	switch {
	case score > threshold:
		return LabelPositive
	case score < -threshold:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

func hits(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}

// Annotate recomputes the entry's sentiment from its current text and
// overwrites the stored fields.
func Annotate(e *domain.Entry, now time.Time) {
	r := Analyze(e.Text())
	e.SentimentLabel = string(r.Label)
	e.SentimentScore = r.Score
	e.UpdatedAt = now
}
