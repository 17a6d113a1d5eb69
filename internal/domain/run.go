package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a requested run or record does not exist.
var ErrNotFound = errors.New("not found")

// RunStatus is the lifecycle state of an analysis run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCESS"
	RunStatusFailed    RunStatus = "FAILED"
)

// AnalysisRun records one evaluation of the insight engine over a window.
type AnalysisRun struct {
	RunID        string     `json:"run_id"`
	Trigger      string     `json:"trigger"`
	WindowStart  time.Time  `json:"window_start"`
	WindowEnd    time.Time  `json:"window_end"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Status       RunStatus  `json:"status"`
	InsightCount int        `json:"insight_count"`
	SkipCount    int        `json:"skip_count"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Rules        []string   `json:"rules,omitempty"`
}
