// Package config loads runtime settings from defaults, an optional YAML file,
// a .env file and FINSIGHT_* environment variables, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/dvloznov/finance-insights/internal/analysis"
	"github.com/dvloznov/finance-insights/internal/insights"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendBigQuery = "bigquery"
)

// Config holds application configuration.
type Config struct {
	Server ServerConfig    `mapstructure:"server"`
	Log    LogConfig       `mapstructure:"log"`
	Store  StoreConfig     `mapstructure:"store"`
	GCS    GCSConfig       `mapstructure:"gcs"`
	Notion NotionConfig    `mapstructure:"notion"`
	Gemini GeminiConfig    `mapstructure:"gemini"`
	Worker WorkerConfig    `mapstructure:"worker"`
	Rules  insights.Config `mapstructure:"rules"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StoreConfig selects where transactions come from and where runs are kept.
type StoreConfig struct {
	Backend     string `mapstructure:"backend"`
	DatasetFile string `mapstructure:"dataset_file"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	ProjectID   string `mapstructure:"project_id"`
	DatasetID   string `mapstructure:"dataset_id"`
}

type GCSConfig struct {
	ReportBucket string `mapstructure:"report_bucket"`
}

type NotionConfig struct {
	Token      string `mapstructure:"token"`
	DatabaseID string `mapstructure:"database_id"`
}

type GeminiConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Model     string `mapstructure:"model"`
	ProjectID string `mapstructure:"project_id"`
	Location  string `mapstructure:"location"`
}

// WorkerConfig drives the background analysis scheduler and job queue.
type WorkerConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	LookbackMonths int           `mapstructure:"lookback_months"`
	QueueSize      int           `mapstructure:"queue_size"`
	Workers        int           `mapstructure:"workers"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

// Load reads configuration. The config file is FINSIGHT_CONFIG when set,
// otherwise finsight.yaml in the working directory if present.
func Load() (Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()
	return load(viper.New(), os.Getenv("FINSIGHT_CONFIG"))
}

// LoadFile reads configuration from an explicit file path.
func LoadFile(path string) (Config, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, cfgPath string) (Config, error) {
	setDefaults(v)

	v.SetConfigType("yaml")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("finsight")
	}

	v.SetEnvPrefix("FINSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("Load: read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("Load: unmarshal config: %w", err)
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("store.backend", BackendSQLite)
	v.SetDefault("store.dataset_file", "")
	v.SetDefault("store.sqlite_path", "finsight.db")
	v.SetDefault("store.project_id", "")
	v.SetDefault("store.dataset_id", "finance")

	v.SetDefault("gcs.report_bucket", "")
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.database_id", "")

	v.SetDefault("gemini.enabled", false)
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.project_id", "")
	v.SetDefault("gemini.location", "us-central1")

	v.SetDefault("worker.interval", 24*time.Hour)
	v.SetDefault("worker.lookback_months", 6)
	v.SetDefault("worker.queue_size", 100)
	v.SetDefault("worker.workers", 5)
	v.SetDefault("worker.max_retries", 3)

	// every threshold gets a default so env overrides like
	// FINSIGHT_RULES_OUTLIER_STD_DEVS resolve through AutomaticEnv
	r := insights.DefaultConfig()
	v.SetDefault("rules.outlier_min_points", r.OutlierMinPoints)
	v.SetDefault("rules.outlier_std_devs", r.OutlierStdDevs)
	v.SetDefault("rules.outlier_high_std_devs", r.OutlierHighStdDevs)
	v.SetDefault("rules.budget_pace_factor", r.BudgetPaceFactor)
	v.SetDefault("rules.budget_at_risk_ratio", r.BudgetAtRiskRatio)
	v.SetDefault("rules.budget_under_factor", r.BudgetUnderFactor)
	v.SetDefault("rules.budget_under_min_elapsed", r.BudgetUnderMinElapsed)
	v.SetDefault("rules.duplicate_window", r.DuplicateWindow)
	v.SetDefault("rules.recurring_min_occurrences", r.RecurringMinOccurrences)
	v.SetDefault("rules.recurring_tolerance", r.RecurringTolerance)
	v.SetDefault("rules.recurring_weekly.min", r.RecurringWeekly.Min)
	v.SetDefault("rules.recurring_weekly.max", r.RecurringWeekly.Max)
	v.SetDefault("rules.recurring_monthly.min", r.RecurringMonthly.Min)
	v.SetDefault("rules.recurring_monthly.max", r.RecurringMonthly.Max)
	v.SetDefault("rules.recurring_yearly.min", r.RecurringYearly.Min)
	v.SetDefault("rules.recurring_yearly.max", r.RecurringYearly.Max)
	v.SetDefault("rules.idle_cash_multiplier", r.IdleCashMultiplier)
	v.SetDefault("rules.idle_cash_lookback_months", r.IdleCashLookbackMonths)
	v.SetDefault("rules.credit_high_utilization", r.CreditHighUtilization)
	v.SetDefault("rules.credit_critical_utilization", r.CreditCriticalUtilization)
	v.SetDefault("rules.trend_min_months", r.TrendMinMonths)
	v.SetDefault("rules.trend_slope_threshold", r.TrendSlopeThreshold)
	v.SetDefault("rules.forecast_min_months", r.ForecastMinMonths)
	v.SetDefault("rules.forecast_horizon", r.ForecastHorizon)
	v.SetDefault("rules.recommendation_min_months", r.RecommendationMinMonths)
	v.SetDefault("rules.recommendation_headroom", r.RecommendationHeadroom)
	v.SetDefault("rules.recommendation_low_factor", r.RecommendationLowFactor)
}

// Validate checks that the selected backend and enabled integrations have
// the keys they need.
func (c Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case BackendFile:
		if c.Store.DatasetFile == "" {
			errs = append(errs, errors.New("store.dataset_file is required for the file backend"))
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite backend"))
		}
	case BackendBigQuery:
		if c.Store.ProjectID == "" {
			errs = append(errs, errors.New("store.project_id is required for the bigquery backend"))
		}
		if c.Store.DatasetID == "" {
			errs = append(errs, errors.New("store.dataset_id is required for the bigquery backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is not one of file, sqlite, bigquery", c.Store.Backend))
	}

	if c.Gemini.Enabled && c.Gemini.ProjectID == "" && c.Store.ProjectID == "" {
		errs = append(errs, errors.New("gemini.project_id is required when gemini is enabled"))
	}
	if c.Worker.Interval <= 0 {
		errs = append(errs, errors.New("worker.interval must be positive"))
	}
	if c.Worker.LookbackMonths < 1 || c.Worker.LookbackMonths > analysis.MaxLookbackMonths {
		errs = append(errs, fmt.Errorf("worker.lookback_months must be between 1 and %d", analysis.MaxLookbackMonths))
	}
	if c.Worker.Workers < 1 || c.Worker.QueueSize < 1 {
		errs = append(errs, errors.New("worker.workers and worker.queue_size must be positive"))
	}
	if err := c.Rules.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("rules: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("Validate: %w", errors.Join(errs...))
	}
	return nil
}

// GeminiProject falls back to the storage project when no separate Vertex
// project is configured.
func (c Config) GeminiProject() string {
	if c.Gemini.ProjectID != "" {
		return c.Gemini.ProjectID
	}
	return c.Store.ProjectID
}
