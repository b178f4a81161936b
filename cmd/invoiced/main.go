package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/dmfreitas/invoice-extractor/internal/app"
	"github.com/dmfreitas/invoice-extractor/internal/async"
	"github.com/dmfreitas/invoice-extractor/internal/common"
	"github.com/dmfreitas/invoice-extractor/internal/ingest"
	"github.com/dmfreitas/invoice-extractor/internal/server"
)

func main() {
	var (
		addr    = flag.String("addr", "", "listen address (overrides HTTP_ADDR)")
		db      = flag.String("db", "", "database URL (overrides DATABASE_URL)")
		watch   = flag.String("watch", "", "comma-separated directories to watch for new documents")
		workers = flag.Int("workers", 0, "queue workers (overrides QUEUE_WORKERS)")
	)
	flag.Parse()

	_ = godotenv.Load() // ignore error if .env doesn't exist

	cfg, err := common.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}
	if *db != "" {
		cfg.Database.URL = *db
	}
	if *workers > 0 {
		cfg.Ingest.Workers = int32(*workers)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	logger := app.NewLogger(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.InitDependencies(ctx, cfg, logger, app.Options{Persist: true})
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	var queue *async.ProcessorQueue
	if *watch != "" {
		queue = async.NewProcessorQueue(deps.Processor, logger,
			async.WithWorkers(int(cfg.Ingest.Workers)),
			async.WithQueueSize(int(cfg.Ingest.QueueSize)),
			async.WithProcessTimeout(cfg.Ingest.ProcessTimeout),
		)

		roots := splitRoots(*watch)
		events, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       roots,
			InitialScan: true,
			Debounce:    cfg.Ingest.WatchDebounce,
		})
		if err != nil {
			logger.Error("failed to start watcher", "roots", roots, "error", err)
			os.Exit(1)
		}

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case path, ok := <-events:
					if !ok {
						return
					}
					_ = queue.Enqueue(ctx, async.Job{
						Path:        path,
						SubmittedAt: time.Now(),
						TraceID:     uuid.NewString(),
					})
				case werr, ok := <-watchErrs:
					if !ok {
						return
					}
					logger.Warn("watcher error", "error", werr)
				}
			}
		}()
		logger.Info("watching for documents", "roots", roots)
	}

	srv := server.New(server.Config{
		Addr:           cfg.HTTP.Addr,
		MaxUploadMB:    int(cfg.HTTP.MaxUploadMB),
		UploadDir:      cfg.HTTP.UploadDir,
		MetricsEnabled: cfg.HTTP.MetricsEnabled,
	}, logger, deps.Processor, deps.Invoices, deps.Jobs, deps.Exporter, deps.DB)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	if queue != nil {
		drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		queue.Shutdown(drainCtx)
		cancel()
	}
	fmt.Println("stopped.")
}

func splitRoots(s string) []string {
	var roots []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			roots = append(roots, p)
		}
	}
	return roots
}
