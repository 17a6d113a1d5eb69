package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log := New()
	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected logger to be enabled")
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Str("run_id", "r-1").Msg("analysis started")

	output := buf.String()
	if !strings.Contains(output, "analysis started") {
		t.Errorf("Expected output to contain message, got: %s", output)
	}
	if !strings.Contains(output, `"run_id":"r-1"`) {
		t.Errorf("Expected JSON field run_id, got: %s", output)
	}
}

func TestNewWithLevel(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel zerolog.Level
		wantErr   bool
	}{
		{"defaults", "", "", zerolog.InfoLevel, false},
		{"debug json", "debug", "json", zerolog.DebugLevel, false},
		{"upper case", "WARN", "console", zerolog.WarnLevel, false},
		{"bad level", "loud", "", zerolog.Disabled, true},
		{"bad format", "info", "xml", zerolog.Disabled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := NewWithLevel(tt.level, tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewWithLevel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && log.GetLevel() != tt.wantLevel {
				t.Errorf("level = %v, want %v", log.GetLevel(), tt.wantLevel)
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	log := FromContext(ctx)
	log.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())

	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected default logger to be enabled")
	}
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithFields(NewWithWriter(buf), map[string]interface{}{
		"job_id":  "job-42",
		"trigger": "schedule",
	})

	log.Info().Msg("job picked up")

	output := buf.String()
	for _, want := range []string{`"job_id":"job-42"`, `"trigger":"schedule"`} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %s, got: %s", want, output)
		}
	}
}
