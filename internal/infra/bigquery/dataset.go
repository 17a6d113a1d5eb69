package bigquery

import "fmt"

// Table names inside the finance dataset.
const (
	transactionsTable = "transactions"
	accountsTable     = "accounts"
	budgetsTable      = "budgets"
	analysisRunsTable = "analysis_runs"
	insightsTable     = "insights"
	insightSkipsTable = "insight_skips"
)

// Dataset locates the warehouse tables.
type Dataset struct {
	ProjectID string
	DatasetID string
}

// table returns the backtick-quoted fully qualified table name.
func (d Dataset) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", d.ProjectID, d.DatasetID, name)
}
