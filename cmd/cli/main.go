package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-insights/internal/analysis"
	"github.com/dvloznov/finance-insights/internal/backend"
	"github.com/dvloznov/finance-insights/internal/config"
	"github.com/dvloznov/finance-insights/internal/dataset"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/forecast"
	"github.com/dvloznov/finance-insights/internal/gcsuploader"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/narrator"
	"github.com/dvloznov/finance-insights/internal/sentiment"
	"github.com/dvloznov/finance-insights/internal/store/sqlite"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "analyze":
		runAnalyze(log)
	case "latest":
		runLatest(log)
	case "forecast":
		runForecast(log)
	case "sentiment":
		runSentiment(log)
	case "import":
		runImport(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Finance Insights CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  analyze    Run the insight rules over a date window")
	fmt.Println("  latest     Show the insights of the last stored run")
	fmt.Println("  forecast   Show monthly net cash flow and its projection")
	fmt.Println("  sentiment  Score a piece of text")
	fmt.Println("  import     Load a dataset file into the sqlite store")
	fmt.Println("  help       Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// commonFlags are shared by the commands that open a backend.
type commonFlags struct {
	config *string
	file   *string
	start  *string
	end    *string
	months *int
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		config: fs.String("config", "", "Config file (default: FINSIGHT_CONFIG or ./finsight.yaml)"),
		file:   fs.String("file", "", "Analyze a dataset file (local or gs://) instead of the configured store"),
		start:  fs.String("start", "", "First day of the window, YYYY-MM-DD"),
		end:    fs.String("end", "", "Last day of the window (inclusive), YYYY-MM-DD"),
		months: fs.Int("months", 0, "Whole months before the current one when -start is empty (default: worker.lookback_months)"),
	}
}

// setup loads config, builds the configured logger and opens the backend.
func setup(log zerolog.Logger, flags commonFlags) (context.Context, config.Config, *backend.Backend) {
	cfg, err := loadConfig(*flags.config, *flags.file)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfgLog, err := logger.NewWithLevel(cfg.Log.Level, cfg.Log.Format); err == nil {
		log = cfgLog
	}
	ctx := logger.WithContext(context.Background(), log)

	be, err := backend.Open(ctx, cfg.Store, gcsuploader.NewGCSStorageService())
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("Failed to open storage backend")
	}
	return ctx, cfg, be
}

func loadConfig(path, datasetFile string) (config.Config, error) {
	var cfg config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cfg, err
	}
	if datasetFile != "" {
		cfg.Store.Backend = config.BackendFile
		cfg.Store.DatasetFile = datasetFile
	}
	return cfg, cfg.Validate()
}

// parseWindow resolves the -start/-end/-months flags into a half-open window.
func parseWindow(start, end string, months int, now time.Time) (time.Time, time.Time, error) {
	if months < 1 || months > analysis.MaxLookbackMonths {
		return time.Time{}, time.Time{}, fmt.Errorf("-months must be between 1 and %d", analysis.MaxLookbackMonths)
	}
	defStart, defEnd := analysis.DefaultWindow(now, months)

	s, e := defStart, defEnd
	if start != "" {
		t, err := time.Parse("2006-01-02", start)
		if err != nil {
			return s, e, fmt.Errorf("invalid -start %q: expected YYYY-MM-DD", start)
		}
		s = t
	}
	if end != "" {
		t, err := time.Parse("2006-01-02", end)
		if err != nil {
			return s, e, fmt.Errorf("invalid -end %q: expected YYYY-MM-DD", end)
		}
		e = t.AddDate(0, 0, 1)
	}
	if !s.Before(e) {
		return s, e, fmt.Errorf("-start must not be after -end")
	}
	return s, e, nil
}

func lookback(flagMonths int, cfg config.Config) int {
	if flagMonths > 0 {
		return flagMonths
	}
	return cfg.Worker.LookbackMonths
}

func runAnalyze(log zerolog.Logger) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	flags := addCommonFlags(fs)
	asJSON := fs.Bool("json", false, "Print the full report as JSON")
	export := fs.Bool("export", false, "Upload the report to gcs.report_bucket")
	summarize := fs.Bool("summarize", false, "Ask Gemini for a plain-language summary")
	fs.Parse(os.Args[2:])

	ctx, cfg, be := setup(log, flags)
	defer be.Close()
	log = logger.FromContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	now := time.Now()
	start, end, err := parseWindow(*flags.start, *flags.end, lookback(*flags.months, cfg), now)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid window")
	}

	report, err := be.NewAnalyzer(cfg.Rules).Run(ctx, analysis.Request{
		Trigger: analysis.TriggerCLI,
		Start:   start,
		End:     end,
		Now:     now,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Analysis failed")
	}

	if *export {
		exporter := backend.NewReportExporter(gcsuploader.NewGCSStorageService(), cfg.GCS.ReportBucket)
		if exporter == nil {
			log.Fatal().Msg("Error: -export needs gcs.report_bucket")
		}
		uri, err := exporter(ctx, report)
		if err != nil {
			log.Fatal().Err(err).Msg("Export failed")
		}
		log.Info().Str("uri", uri).Msg("Report exported")
	}

	var summary string
	if *summarize {
		n, err := narrator.New(ctx, narrator.Config{
			Model:     cfg.Gemini.Model,
			ProjectID: cfg.GeminiProject(),
			Location:  cfg.Gemini.Location,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create narrator")
		}
		if summary, err = n.Summarize(ctx, report); err != nil {
			log.Fatal().Err(err).Msg("Summary failed")
		}
	}

	if *asJSON {
		out := struct {
			*analysis.Report
			Summary string `json:"summary,omitempty"`
		}{report, summary}
		if err := writeJSON(os.Stdout, out); err != nil {
			log.Fatal().Err(err).Msg("Failed to write report")
		}
		return
	}

	printReport(os.Stdout, report)
	if summary != "" {
		fmt.Printf("\n=== Summary ===\n%s\n", summary)
	}
}

func runLatest(log zerolog.Logger) {
	fs := flag.NewFlagSet("latest", flag.ExitOnError)
	flags := addCommonFlags(fs)
	asJSON := fs.Bool("json", false, "Print the report as JSON")
	fs.Parse(os.Args[2:])

	ctx, _, be := setup(log, flags)
	defer be.Close()
	log = logger.FromContext(ctx)

	if be.Results == nil {
		log.Fatal().Str("backend", be.Name).Msg("Backend does not store analysis runs")
	}

	run, out, err := be.Results.LatestResult(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		fmt.Println("No successful analysis runs yet.")
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load latest result")
	}

	report := analysis.ReportFromResult(run, out)
	if *asJSON {
		if err := writeJSON(os.Stdout, report); err != nil {
			log.Fatal().Err(err).Msg("Failed to write report")
		}
		return
	}
	printReport(os.Stdout, report)
}

func runForecast(log zerolog.Logger) {
	fs := flag.NewFlagSet("forecast", flag.ExitOnError)
	flags := addCommonFlags(fs)
	horizon := fs.Int("horizon", 0, "Months to project (default: rules.forecast_horizon)")
	asJSON := fs.Bool("json", false, "Print the forecast as JSON")
	fs.Parse(os.Args[2:])

	ctx, cfg, be := setup(log, flags)
	defer be.Close()
	log = logger.FromContext(ctx)

	start, end, err := parseWindow(*flags.start, *flags.end, lookback(*flags.months, cfg), time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid window")
	}
	if *horizon <= 0 {
		*horizon = cfg.Rules.ForecastHorizon
	}
	if *horizon > forecast.MaxSteps {
		log.Fatal().Int("horizon", *horizon).Msgf("-horizon must be at most %d", forecast.MaxSteps)
	}

	fc, err := be.NewAnalyzer(cfg.Rules).Forecast(ctx, start, end, *horizon)
	if err != nil {
		log.Fatal().Err(err).Msg("Forecast failed")
	}

	if *asJSON {
		if err := writeJSON(os.Stdout, fc); err != nil {
			log.Fatal().Err(err).Msg("Failed to write forecast")
		}
		return
	}

	fmt.Println("\n=== Net cash flow ===")
	for _, mv := range fc.History {
		fmt.Printf("  %s  %12.2f\n", mv.Month, mv.Value)
	}
	fmt.Println("\n=== Projection ===")
	if len(fc.Projection) == 0 {
		fmt.Println("  Not enough history to project.")
	}
	for _, mv := range fc.Projection {
		fmt.Printf("  %s  %12.2f\n", mv.Month, mv.Value)
	}
	fmt.Println()
}

func runSentiment(log zerolog.Logger) {
	fs := flag.NewFlagSet("sentiment", flag.ExitOnError)
	text := fs.String("text", "", "Text to score (default: remaining arguments, or stdin)")
	fs.Parse(os.Args[2:])

	input := *text
	if input == "" {
		input = strings.Join(fs.Args(), " ")
	}
	if input == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read stdin")
		}
		input = string(data)
	}

	res := sentiment.Analyze(input)
	fmt.Printf("%s %.2f\n", res.Label, res.Score)
}

func runImport(log zerolog.Logger) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file (default: FINSIGHT_CONFIG or ./finsight.yaml)")
	file := fs.String("file", "", "Dataset file to import (local or gs://)")
	dbPath := fs.String("db", "", "SQLite database (default: store.sqlite_path)")
	fs.Parse(os.Args[2:])

	if *file == "" {
		log.Fatal().Msg("Usage: cli import -file PATH [-db PATH]")
	}

	cfg, err := loadConfig(*configPath, "")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *dbPath == "" {
		*dbPath = cfg.Store.SQLitePath
	}

	ctx := logger.WithContext(context.Background(), log)

	ds, err := dataset.LoadURI(ctx, gcsuploader.NewGCSStorageService(), *file)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load dataset")
	}

	store, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open sqlite store")
	}
	defer store.Close()

	counts, err := store.ImportDataset(ctx, ds)
	if err != nil {
		log.Fatal().Err(err).Msg("Import failed")
	}

	fmt.Printf("Imported %d accounts, %d budgets, %d transactions, %d entries into %s\n",
		counts.Accounts, counts.Budgets, counts.Transactions, counts.Entries, *dbPath)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(w io.Writer, report *analysis.Report) {
	fmt.Fprintf(w, "\n=== Insights %s to %s ===\n",
		report.Window.Start.Format("2006-01-02"),
		report.Window.End.AddDate(0, 0, -1).Format("2006-01-02"))
	fmt.Fprintf(w, "Run: %s\n", report.RunID)

	if len(report.Insights) == 0 {
		fmt.Fprintln(w, "\nNo insights.")
	}
	for i, ins := range report.Insights {
		fmt.Fprintf(w, "\n%d. [%s] %s\n", i+1, strings.ToUpper(ins.Priority.String()), ins.Title)
		fmt.Fprintf(w, "   %s\n", ins.Description)
	}

	if len(report.Skipped) > 0 {
		fmt.Fprintf(w, "\n=== Skipped (%d) ===\n", len(report.Skipped))
		for _, sk := range report.Skipped {
			fmt.Fprintf(w, "  %s %s: %s\n", sk.Rule, sk.Subject, sk.Reason)
		}
	}
	fmt.Fprintln(w)
}
