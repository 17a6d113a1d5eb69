package gcsuploader

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ReportObjectName lays reports out by month so a bucket listing reads
// chronologically: reports/2024/05/<run id>.json.
func ReportObjectName(runID string, generatedAt time.Time) string {
	return fmt.Sprintf("reports/%s/%s.json", generatedAt.UTC().Format("2006/01"), runID)
}

// ExportReport marshals report as indented JSON and uploads it to bucket.
func ExportReport(ctx context.Context, svc StorageService, bucket, runID string, generatedAt time.Time, report any) (string, error) {
	if bucket == "" {
		return "", fmt.Errorf("ExportReport: bucket is required")
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("ExportReport: marshal report: %w", err)
	}
	uri, err := svc.UploadBytes(ctx, bucket, ReportObjectName(runID, generatedAt), "application/json", data)
	if err != nil {
		return "", fmt.Errorf("ExportReport: upload: %w", err)
	}
	return uri, nil
}
