package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmfreitas/invoice-extractor/internal/app"
	"github.com/dmfreitas/invoice-extractor/internal/common"
	"github.com/dmfreitas/invoice-extractor/internal/ingest"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir     = flag.String("dir", "", "directory to process invoices from (required)")
		xlsxOut = flag.String("xlsx", "", "write an XLSX export of stored invoices to this path")
		csvOut  = flag.String("csv", "", "write a CSV export of stored invoices to this path")
		fromStr = flag.String("from", "", "export filter: from date YYYY-MM-DD")
		toStr   = flag.String("to", "", "export filter: to date YYYY-MM-DD")
		noSave  = flag.Bool("no-save", false, "extract without persisting")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: -dir is required\n")
		os.Exit(1)
	}

	var from, to *time.Time
	if *fromStr != "" {
		parsed, err := time.Parse("2006-01-02", *fromStr)
		if err != nil {
			printError("Error: invalid -from date format, use YYYY-MM-DD: %v\n", err)
			os.Exit(1)
		}
		from = &parsed
	}
	if *toStr != "" {
		parsed, err := time.Parse("2006-01-02", *toStr)
		if err != nil {
			printError("Error: invalid -to date format, use YYYY-MM-DD: %v\n", err)
			os.Exit(1)
		}
		to = &parsed
	}

	_ = godotenv.Load() // ignore error if .env doesn't exist

	cfg, err := common.LoadConfig()
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}

	logger := app.NewLogger(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.InitDependencies(ctx, cfg, logger, app.Options{Persist: !*noSave})
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	files, stats, err := ingest.CollectFiles(*dir, nil, true)
	if err != nil {
		logger.Error("failed to scan directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	logger.Info("directory scanned",
		"dir", *dir, "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)

	var processed, failures, needsReview, unsaved int
	for _, path := range files {
		if ctx.Err() != nil {
			logger.Warn("interrupted, stopping batch", "remaining", len(files)-processed-failures)
			break
		}
		out, err := deps.Processor.Process(ctx, path)
		if err != nil {
			logger.Error("failed to process document", "path", path, "error", err)
			failures++
			continue
		}
		processed++
		if out.Invoice.NeedsReview {
			needsReview++
		}
		if out.SaveErr != nil {
			unsaved++
		}
	}

	logger.Info("batch processing complete",
		"files_matched", len(files), "processed", processed, "failures", failures,
		"needs_review", needsReview, "unsaved", unsaved)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files matched: %d\n", len(files))
	fmt.Printf("- Processed: %d\n", processed)
	fmt.Printf("- Failures: %d\n", failures)
	fmt.Printf("- Needs review: %d\n", needsReview)
	if unsaved > 0 {
		fmt.Printf("- Extracted but not saved: %d\n", unsaved)
	}

	exportFiles(ctx, deps, logger, *xlsxOut, *csvOut, from, to)

	if failures > 0 && processed == 0 {
		os.Exit(1)
	}
}

func exportFiles(ctx context.Context, deps *app.Dependencies, logger *slog.Logger, xlsxOut, csvOut string, from, to *time.Time) {
	if xlsxOut == "" && csvOut == "" {
		return
	}
	if deps.Exporter == nil {
		logger.Warn("export requested but no database is configured; skipping")
		return
	}

	if xlsxOut != "" {
		data, err := deps.Exporter.ExportXLSX(ctx, from, to)
		if err != nil {
			logger.Error("failed to export XLSX", "error", err)
		} else if err := os.WriteFile(xlsxOut, data, 0o644); err != nil {
			logger.Error("failed to write XLSX file", "path", xlsxOut, "error", err)
		} else {
			fmt.Printf("- XLSX export: %s\n", xlsxOut)
		}
	}

	if csvOut != "" {
		data, err := deps.Exporter.ExportCSV(ctx, from, to)
		if err != nil {
			logger.Error("failed to export CSV", "error", err)
		} else if err := os.WriteFile(csvOut, data, 0o644); err != nil {
			logger.Error("failed to write CSV file", "path", csvOut, "error", err)
		} else {
			fmt.Printf("- CSV export: %s\n", csvOut)
		}
	}
}
