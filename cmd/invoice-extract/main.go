package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dmfreitas/invoice-extractor/internal/app"
	"github.com/dmfreitas/invoice-extractor/internal/common"
	"github.com/dmfreitas/invoice-extractor/internal/picker"
	"github.com/dmfreitas/invoice-extractor/internal/render"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		file     = flag.String("file", "", "invoice document to extract (pdf/png/jpg)")
		noSave   = flag.Bool("no-save", false, "skip persisting the extracted invoice")
		jsonOnly = flag.Bool("json-only", false, "print only the JSON representation")
	)
	flag.Parse()

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

	// Logs go to stderr so the rendered record stays clean on stdout.
	logger := app.NewLogger(os.Stderr, cfg.LogLevel)

	path := *file
	if path == "" && flag.NArg() > 0 {
		path = flag.Arg(0)
	}
	if path == "" {
		if !render.IsTerminal(os.Stdout) {
			printError("Error: no input file; pass -file <path> or a positional path\n")
			os.Exit(2)
		}
		picked, err := picker.Pick(".", []string{".pdf", ".jpg", ".jpeg", ".png"})
		if err != nil {
			if errors.Is(err, picker.ErrAborted) {
				printError("no file selected\n")
			} else {
				printError("Error: %v\n", err)
			}
			os.Exit(2)
		}
		path = picked
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.InitDependencies(ctx, cfg, logger, app.Options{Persist: !*noSave})
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	fmt.Printf("Loading PDF from: %s\n", path)

	outcome, err := deps.Processor.Process(ctx, path)
	if err != nil {
		printError("Error: extraction failed: %v\n", err)
		os.Exit(1)
	}

	r := render.New(render.IsTerminal(os.Stdout))

	fmt.Println(r.Header("Invoice Data (JSON)"))
	jsonOut, err := r.InvoiceJSON(outcome.Fields)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(jsonOut)

	if !*jsonOnly {
		fmt.Println(r.Header("Invoice Data (Object)"))
		fmt.Println(r.InvoiceObject(outcome.Invoice))
	}

	if *noSave {
		return
	}

	// Save failures are reported but never change the exit code.
	fmt.Println(r.Header("Saving to database"))
	switch {
	case outcome.Saved:
		fmt.Printf("invoice %s saved (id %s)\n", outcome.Invoice.InvoiceNumber, outcome.Invoice.ID)
	case outcome.SaveErr != nil:
		fmt.Printf("failed to save invoice: %v\n", outcome.SaveErr)
	default:
		fmt.Println("database unavailable; invoice not saved")
	}
}
