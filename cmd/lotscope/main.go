// Package main is the entry point for the lotscope application.
package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/jwulff/lotscope-go/internal/analysis"
	"github.com/jwulff/lotscope-go/internal/catalog"
	"github.com/jwulff/lotscope-go/internal/config"
	"github.com/jwulff/lotscope-go/internal/domain"
	"github.com/jwulff/lotscope-go/internal/logging"
	"github.com/jwulff/lotscope-go/internal/metrics"
	"github.com/jwulff/lotscope-go/internal/render"
	"github.com/jwulff/lotscope-go/internal/sensordata"
	"github.com/jwulff/lotscope-go/internal/server"
	"github.com/jwulff/lotscope-go/internal/storage"
	"github.com/jwulff/lotscope-go/internal/storage/sqlite"
)

func main() {
	if len(os.Args) < 2 {
		showUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "dates":
		err = listDates(ctx, cfg, logger)
	case "show":
		if len(os.Args) < 3 {
			fmt.Println("Error: date required")
			fmt.Println("Usage: lotscope show <YYYY-MM-DD>")
			os.Exit(1)
		}
		err = showDate(ctx, cfg, logger, os.Args[2])
	case "discards":
		err = listDiscards(ctx, cfg, logger)
	case "import":
		err = importData(ctx, cfg, logger)
	case "serve":
		err = serve(ctx, cfg, logger)
	case "export":
		if len(os.Args) < 4 {
			fmt.Println("Error: date and output directory required")
			fmt.Println("Usage: lotscope export <YYYY-MM-DD> <dir>")
			os.Exit(1)
		}
		err = exportDate(ctx, cfg, logger, os.Args[2], os.Args[3])
	default:
		showUsage()
		return
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println("Lotscope - Sensor Data Viewer")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  lotscope dates                - List dates with sensor data")
	fmt.Println("  lotscope show <date>          - Show error processes and readings for a date")
	fmt.Println("  lotscope discards             - List sensor files skipped while loading")
	fmt.Println("  lotscope import               - Load CSV files into the SQLite snapshot")
	fmt.Println("  lotscope serve                - Serve the dashboard and JSON API")
	fmt.Println("  lotscope export <date> <dir>  - Write charts, dashboard and workbook for a date")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  LOTSCOPE_CONFIG               - YAML config file (optional)")
	fmt.Println("  LOTSCOPE_DATA_BASE_DIR        - Directory holding the CSV files")
	fmt.Println("  LOTSCOPE_DATA_SOURCE          - csv (default) or sqlite")
	fmt.Println("  LOTSCOPE_STORAGE_PATH         - SQLite snapshot path")
	fmt.Println("  LOTSCOPE_SERVER_ADDR          - Listen address for serve")
}

// loadCatalog reads the catalog from the configured source.
func loadCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*catalog.Catalog, error) {
	var (
		cat *catalog.Catalog
		err error
	)
	switch cfg.Data.Source {
	case config.SourceSQLite:
		cat, err = loadFromStore(ctx, cfg, logger)
	default:
		cat, err = catalog.Open(cfg.ErrorLotPath(), cfg.SensorDir(), logger,
			sensordata.WithRequiredColumns(cfg.Data.RequiredColumns...))
		if err == nil && m != nil {
			m.RecordScan(len(cat.ListAvailableDates()), cat.Discards())
		}
	}
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.RecordCatalog(len(cat.ErrorLots()), len(cat.ListAvailableDates()))
	}
	return cat, nil
}

func loadFromStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*catalog.Catalog, error) {
	store, err := sqlite.NewFileStore(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	cat, imp, err := catalog.FromStore(ctx, store)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, fmt.Errorf("no import found in %s; run lotscope import first", cfg.Storage.Path)
		}
		return nil, err
	}
	logger.Debug("loaded snapshot",
		slog.String("import_id", imp.ID),
		slog.Time("finished_at", imp.FinishedAt),
	)
	return cat, nil
}

func listDates(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	cat, err := loadCatalog(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	dates := cat.ListAvailableDates()
	if len(dates) == 0 {
		fmt.Println("No sensor data available.")
		return nil
	}
	for _, d := range dates {
		fmt.Println(d)
	}
	return nil
}

func showDate(ctx context.Context, cfg *config.Config, logger *slog.Logger, raw string) error {
	date, err := domain.ParseISODate(raw)
	if err != nil {
		return err
	}
	cat, err := loadCatalog(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	tt, ok, err := cat.Tagged(date)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("no data for this date")
		return nil
	}

	fmt.Printf("%s data\n", date)
	fmt.Println()
	fmt.Println(render.ErrorSubtitle(tt.ErrorProcesses.Sorted()))
	fmt.Println()

	total := tt.Table.Len()
	for _, c := range analysis.TagCounts(tt.Tags) {
		fmt.Printf("  %-7s %s %d/%d\n", c.Tag, proportionBar(c.Count, total), c.Count, total)
	}

	errRows := tt.Filter(domain.TagError)
	if errRows.Len() > 0 {
		fmt.Println()
		printTable(errRows)
	}
	return nil
}

// proportionBar draws count/total as a 20 cell bar.
func proportionBar(count, total int) string {
	filled := 0
	if total > 0 {
		filled = count * 20 / total
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", 20-filled)
}

func printTable(t *domain.Table) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(t.Columns, "\t"))
	for _, row := range t.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}

func listDiscards(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	cat, err := loadCatalog(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	discards := cat.Discards()
	if len(discards) == 0 {
		fmt.Println("No files were skipped.")
		return nil
	}
	fmt.Printf("Skipped %d file(s):\n", len(discards))
	for _, d := range discards {
		fmt.Printf("  %s\n    %s\n", d.Path, d.Reason)
	}
	return nil
}

func importData(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	cat, err := catalog.Open(cfg.ErrorLotPath(), cfg.SensorDir(), logger,
		sensordata.WithRequiredColumns(cfg.Data.RequiredColumns...))
	if err != nil {
		return err
	}

	store, err := sqlite.NewFileStore(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	imp := storage.NewImport(cfg.ErrorLotPath(), cfg.SensorDir())
	if err := cat.SaveTo(ctx, store, imp); err != nil {
		return err
	}
	logger.Info("import complete",
		slog.String("import_id", imp.ID),
		slog.String("path", cfg.Storage.Path),
	)
	fmt.Printf("Imported %d error lot record(s), %d date(s), %d skipped file(s)\n",
		imp.LotCount, imp.TableCount, imp.DiscardCount)
	fmt.Printf("Import ID: %s\n", imp.ID)
	return nil
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	m := metrics.New()
	cat, err := loadCatalog(ctx, cfg, logger, m)
	if err != nil {
		return err
	}
	fmt.Printf("Serving %d date(s) on %s\n", len(cat.ListAvailableDates()), cfg.Server.Addr)
	fmt.Println("Press Ctrl+C to stop")

	srv := server.New(cat, server.Options{
		Logger:     logger,
		Metrics:    m,
		AssetsHost: cfg.Server.AssetsHost,
	})
	return srv.Run(ctx, cfg.Server)
}

func exportDate(ctx context.Context, cfg *config.Config, logger *slog.Logger, raw, dir string) error {
	date, err := domain.ParseISODate(raw)
	if err != nil {
		return err
	}
	cat, err := loadCatalog(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	paths, err := export(cat, date, dir, cfg.Server.AssetsHost)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Printf("Wrote %s\n", p)
	}
	return nil
}

// export writes the PNG charts, the dashboard page and the workbook for date
// into dir and returns the written paths.
func export(cat *catalog.Catalog, date domain.Date, dir, assetsHost string) ([]string, error) {
	tt, ok, err := cat.Tagged(date)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no data for this date: %s", date)
	}
	summary, err := analysis.Summarize(tt)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	paths, err := render.ExportPNGs(dir, summary)
	if err != nil {
		return paths, err
	}

	var page bytes.Buffer
	if err := render.RenderDashboard(&page, render.DashboardData{Summary: summary, AssetsHost: assetsHost}); err != nil {
		return paths, err
	}
	htmlPath := filepath.Join(dir, "dashboard.html")
	if err := os.WriteFile(htmlPath, page.Bytes(), 0o644); err != nil {
		return paths, err
	}
	paths = append(paths, htmlPath)

	var book bytes.Buffer
	if err := render.WriteWorkbook(&book, tt); err != nil {
		return paths, err
	}
	xlsxPath := filepath.Join(dir, date.String()+".xlsx")
	if err := os.WriteFile(xlsxPath, book.Bytes(), 0o644); err != nil {
		return paths, err
	}
	return append(paths, xlsxPath), nil
}
