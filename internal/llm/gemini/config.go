package gemini

import (
	"context"
	"log/slog"
	"os"
	"time"

	"google.golang.org/genai"
)

// Config for the Gemini client. The SDK handles transport details; we only
// carry the knobs the extraction flow needs.
type Config struct {
	APIKey         string        // if empty, falls back to env GEMINI_API_KEY
	Model          string        // e.g., "gemini-2.5-flash"
	Temperature    float32       // 0..2
	Timeout        time.Duration // per-request deadline
	Lenient        bool          // sanitize-and-revalidate on schema misses
	MaxPromptChars int           // document text budget in the user prompt
}

type Client struct {
	cfg    Config
	client *genai.Client
	logger *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, client: gc, logger: logger}, nil
}
