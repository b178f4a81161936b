package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	HTTP     HTTPConfig     `yaml:"http"`
	Extract  ExtractConfig  `yaml:"extract"`
	LLM      LLMConfig      `yaml:"llm"`
	Ingest   IngestConfig   `yaml:"ingest"`
	LogLevel string         `yaml:"log_level"`
}

// DatabaseConfig holds database-related configuration. URL decides the
// driver: postgres:// and postgresql:// open Postgres, anything else is
// treated as a SQLite path (":memory:" works).
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// HTTPConfig holds the HTTP server configuration
type HTTPConfig struct {
	Addr           string `yaml:"addr"`
	MaxUploadMB    int32  `yaml:"max_upload_mb"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
	UploadDir      string `yaml:"upload_dir"`
}

// ExtractConfig holds document text-extraction configuration
type ExtractConfig struct {
	PdftotextBin string `yaml:"pdftotext_bin"`
	PdftoppmBin  string `yaml:"pdftoppm_bin"`
	TesseractBin string `yaml:"tesseract_bin"`
	RenderDPI    int32  `yaml:"render_dpi"`
	MinTextChars int    `yaml:"min_text_chars"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider       string        `yaml:"provider"`
	Model          string        `yaml:"model"`
	APIKey         string        `yaml:"-"`
	BaseURL        string        `yaml:"base_url"`
	GeminiAPIKey   string        `yaml:"-"`
	Temperature    float32       `yaml:"temperature"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	Lenient        bool          `yaml:"lenient"`
	VisionFallback bool          `yaml:"vision_fallback"`
	MaxPromptChars int           `yaml:"max_prompt_chars"`
}

// IngestConfig holds watch-mode and queue configuration
type IngestConfig struct {
	WatchDebounce  time.Duration `yaml:"watch_debounce"`
	Workers        int32         `yaml:"workers"`
	QueueSize      int32         `yaml:"queue_size"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`
}

// LoadConfig loads configuration from defaults, then an optional YAML file
// named by INVOICE_CONFIG, then environment variables, in that order.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("INVOICE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("reading config file %s", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("parsing config file %s", path), err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			URL: "invoices.db",
		},
		HTTP: HTTPConfig{
			Addr:           ":8080",
			MaxUploadMB:    25,
			MetricsEnabled: true,
			UploadDir:      "./uploads",
		},
		Extract: ExtractConfig{
			PdftotextBin: "pdftotext",
			PdftoppmBin:  "pdftoppm",
			TesseractBin: "tesseract",
			RenderDPI:    200,
			MinTextChars: 120,
		},
		LLM: LLMConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			BaseURL:        "https://api.openai.com/v1",
			Temperature:    0.0,
			Timeout:        60 * time.Second,
			MaxRetries:     3,
			Lenient:        true,
			VisionFallback: true,
			MaxPromptChars: 6000,
		},
		Ingest: IngestConfig{
			WatchDebounce:  2 * time.Second,
			Workers:        2,
			QueueSize:      64,
			ProcessTimeout: 120 * time.Second,
		},
		LogLevel: "info",
	}
}

// applyEnv overrides config values from environment variables. Every field
// falls back to its current value when the variable is unset.
func (c *Config) applyEnv() {
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)

	c.HTTP.Addr = getEnv("HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.MaxUploadMB = getEnvAsInt32("MAX_UPLOAD_MB", c.HTTP.MaxUploadMB)
	c.HTTP.MetricsEnabled = getEnvAsBool("METRICS_ENABLED", c.HTTP.MetricsEnabled)
	c.HTTP.UploadDir = getEnv("UPLOAD_DIR", c.HTTP.UploadDir)

	c.Extract.PdftotextBin = getEnv("PDFTOTEXT_BIN", c.Extract.PdftotextBin)
	c.Extract.PdftoppmBin = getEnv("PDFTOPPM_BIN", c.Extract.PdftoppmBin)
	c.Extract.TesseractBin = getEnv("TESSERACT_BIN", c.Extract.TesseractBin)
	c.Extract.RenderDPI = getEnvAsInt32("RENDER_DPI", c.Extract.RenderDPI)
	c.Extract.MinTextChars = getEnvAsInt("LLM_MIN_TEXT_CHARS", c.Extract.MinTextChars)

	c.LLM.Provider = getEnv("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = getEnv("MODEL_NAME", c.LLM.Model)
	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.LLM.GeminiAPIKey)
	c.LLM.Temperature = getEnvAsFloat32("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout)
	c.LLM.MaxRetries = getEnvAsInt("LLM_MAX_RETRIES", c.LLM.MaxRetries)
	c.LLM.Lenient = getEnvAsBool("LLM_LENIENT", c.LLM.Lenient)
	c.LLM.VisionFallback = getEnvAsBool("LLM_VISION_FALLBACK", c.LLM.VisionFallback)
	c.LLM.MaxPromptChars = getEnvAsInt("LLM_MAX_PROMPT_CHARS", c.LLM.MaxPromptChars)

	c.Ingest.WatchDebounce = getEnvAsDuration("WATCH_DEBOUNCE", c.Ingest.WatchDebounce)
	c.Ingest.Workers = getEnvAsInt32("QUEUE_WORKERS", c.Ingest.Workers)
	c.Ingest.QueueSize = getEnvAsInt32("QUEUE_SIZE", c.Ingest.QueueSize)
	c.Ingest.ProcessTimeout = getEnvAsDuration("PROCESS_TIMEOUT", c.Ingest.ProcessTimeout)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai":
		if c.LLM.APIKey == "" {
			return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
		}
	case "gemini":
		if c.LLM.GeminiAPIKey == "" {
			return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown LLM provider %q", c.LLM.Provider), ErrInvalidInput)
	}
	if c.LLM.Model == "" {
		return NewAppError("CONFIG_ERROR", "MODEL_NAME is required", ErrInvalidInput)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return NewAppError("CONFIG_ERROR", "LLM_TEMPERATURE must be between 0 and 2", ErrInvalidInput)
	}
	if c.LLM.MaxRetries < 0 {
		return NewAppError("CONFIG_ERROR", "LLM_MAX_RETRIES must not be negative", ErrInvalidInput)
	}
	if c.Ingest.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "QUEUE_WORKERS must be positive", ErrInvalidInput)
	}
	if c.HTTP.MaxUploadMB <= 0 {
		return NewAppError("CONFIG_ERROR", "MAX_UPLOAD_MB must be positive", ErrInvalidInput)
	}
	return nil
}
