// invoice-text dumps the extracted text layer of one document without
// calling the LLM. Useful for debugging extraction quality.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dmfreitas/invoice-extractor/internal/common"
	"github.com/dmfreitas/invoice-extractor/internal/document"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "invoice-text <path>")
		os.Exit(2)
	}
	path := os.Args[1]

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("loading config", "error", err)
		os.Exit(1)
	}

	loader := document.NewLoader(document.Config{
		Pdftotext:    cfg.Extract.PdftotextBin,
		Pdftoppm:     cfg.Extract.PdftoppmBin,
		Tesseract:    cfg.Extract.TesseractBin,
		DPI:          int(cfg.Extract.RenderDPI),
		MinTextChars: cfg.Extract.MinTextChars,
	}, logger)

	doc, err := loader.Load(path)
	if err != nil {
		logger.Error("load failed", "path", path, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res, err := loader.ExtractText(ctx, doc)
	if err != nil {
		logger.Error("text extraction failed", "path", path, "error", err)
		os.Exit(1)
	}

	logger.Info("text extracted",
		"path", path,
		"format", doc.Format,
		"sha256", doc.SHA256,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"elapsed_ms", res.Duration.Milliseconds(),
		"warnings", res.Warnings)

	fmt.Print(res.Text)
}
