package gcsuploader

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type mockStorage struct {
	bucket      string
	object      string
	contentType string
	data        []byte
	err         error
}

func (m *mockStorage) UploadBytes(ctx context.Context, bucketName, objectName, contentType string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.bucket, m.object, m.contentType, m.data = bucketName, objectName, contentType, data
	return "gs://" + bucketName + "/" + objectName, nil
}

func (m *mockStorage) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return m.data, m.err
}

func TestExportReport(t *testing.T) {
	svc := &mockStorage{}
	at := time.Date(2024, 5, 3, 10, 0, 0, 0, time.UTC)

	uri, err := ExportReport(context.Background(), svc, "reports-bucket", "run-1", at, map[string]int{"insights": 2})
	if err != nil {
		t.Fatalf("ExportReport() error = %v", err)
	}

	if uri != "gs://reports-bucket/reports/2024/05/run-1.json" {
		t.Errorf("uri = %q", uri)
	}
	if svc.contentType != "application/json" {
		t.Errorf("content type = %q", svc.contentType)
	}
	if !strings.Contains(string(svc.data), `"insights": 2`) {
		t.Errorf("unexpected payload: %s", svc.data)
	}
}

func TestExportReportErrors(t *testing.T) {
	if _, err := ExportReport(context.Background(), &mockStorage{}, "", "run-1", time.Now(), nil); err == nil {
		t.Error("expected error for empty bucket")
	}

	svc := &mockStorage{err: errors.New("permission denied")}
	if _, err := ExportReport(context.Background(), svc, "b", "run-1", time.Now(), nil); err == nil {
		t.Error("expected upload error to propagate")
	}
}

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://bucket/data/2024.yaml", "bucket", "data/2024.yaml", false},
		{"gs://bucket", "", "", true},
		{"gs://bucket/", "", "", true},
		{"s3://bucket/file", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGCSURI() error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("ParseGCSURI() = %q, %q", bucket, object)
			}
		})
	}
}
