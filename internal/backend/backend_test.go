package backend

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/finance-insights/internal/analysis"
	"github.com/dvloznov/finance-insights/internal/config"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/insights"
)

type mockStorage struct {
	fetched  string
	data     []byte
	uploaded map[string][]byte
}

func (m *mockStorage) UploadBytes(ctx context.Context, bucketName, objectName, contentType string, data []byte) (string, error) {
	if m.uploaded == nil {
		m.uploaded = make(map[string][]byte)
	}
	m.uploaded[bucketName+"/"+objectName] = data
	return "gs://" + bucketName + "/" + objectName, nil
}

func (m *mockStorage) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	m.fetched = gcsURI
	if m.data == nil {
		return nil, errors.New("object not found")
	}
	return m.data, nil
}

const sampleDataset = `
accounts:
  - id: checking-1
    name: Everyday
    type: checking
    balance: "100.00"
transactions:
  - id: t1
    date: 2024-03-02
    title: Coffee Shop
    amount: "-4.50"
    category_id: food
`

func TestOpenFile(t *testing.T) {
	storage := &mockStorage{data: []byte(sampleDataset)}
	b, err := Open(context.Background(), config.StoreConfig{
		Backend:     config.BackendFile,
		DatasetFile: "gs://bucket/data.yaml",
	}, storage)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()

	if storage.fetched != "gs://bucket/data.yaml" {
		t.Errorf("fetched %q", storage.fetched)
	}
	if b.Results != nil || b.Entries != nil || b.Sink() != nil {
		t.Error("file backend should not persist")
	}

	txns, err := b.Source.ListTransactions(context.Background(),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txns) != 1 {
		t.Errorf("got %d transactions, want 1", len(txns))
	}
}

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	b, err := Open(ctx, config.StoreConfig{
		Backend:    config.BackendSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()

	if b.Results == nil || b.Entries == nil || b.SQLite == nil {
		t.Fatal("sqlite backend should expose results and entries")
	}

	report, err := b.NewAnalyzer(insights.DefaultConfig()).Run(ctx, analysis.Request{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Now:   time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	run, _, err := b.Results.LatestResult(ctx)
	if err != nil {
		t.Fatalf("LatestResult: %v", err)
	}
	if run.RunID != report.RunID || run.Status != domain.RunStatusSucceeded {
		t.Errorf("latest run = %+v, want succeeded %s", run, report.RunID)
	}
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Backend: "postgres"}, nil)
	if err == nil || !strings.Contains(err.Error(), "postgres") {
		t.Fatalf("err = %v, want unknown backend", err)
	}
}

func TestNewReportExporter(t *testing.T) {
	if NewReportExporter(&mockStorage{}, "") != nil {
		t.Error("exporter without bucket should be nil")
	}

	storage := &mockStorage{}
	export := NewReportExporter(storage, "reports-bucket")
	uri, err := export(context.Background(), &analysis.Report{
		RunID:       "run-1",
		GeneratedAt: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if uri != "gs://reports-bucket/reports/2024/05/run-1.json" {
		t.Errorf("uri = %q", uri)
	}
	if !strings.Contains(string(storage.uploaded["reports-bucket/reports/2024/05/run-1.json"]), `"run_id": "run-1"`) {
		t.Error("uploaded report missing run id")
	}
}
