package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dmfreitas/invoice-extractor/constants"
	"github.com/dmfreitas/invoice-extractor/internal/common"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for page renders, default 200

	// MinTextChars is the threshold below which the native PDF pass is
	// considered empty and the pdftotext fallback runs.
	MinTextChars int
}

// Document describes a loaded source file before any extraction.
type Document struct {
	Path   string
	Ext    string // normalized, no dot
	Format string // "PDF" | "IMAGE"
	Bytes  int64
	SHA256 string
}

// Result is the outcome of a text-extraction pass.
type Result struct {
	Text     string
	Pages    int
	Method   string // "pdf-native" | "pdf-text" | "image-ocr"
	Duration time.Duration
	Warnings []string
}

type Loader struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewLoader(cfg Config, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = 120
	}
	return &Loader{cfg: cfg, runner: execRunner{}, logger: logger}
}

// Load stats the file, gates on extension, and fingerprints the content.
func (l *Loader) Load(path string) (Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Document{}, common.NewAppError("FILE_ERROR", fmt.Sprintf("cannot access %s", path), err)
	}
	if info.IsDir() {
		return Document{}, common.NewAppError("FILE_ERROR", fmt.Sprintf("%s is a directory", path), common.ErrInvalidInput)
	}
	if info.Size() == 0 {
		return Document{}, common.NewAppError("FILE_ERROR", fmt.Sprintf("%s is empty", path), common.ErrInvalidInput)
	}

	ext := constants.NormalizeExt(filepath.Ext(path))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return Document{}, common.NewAppError("FILE_ERROR", fmt.Sprintf("unsupported extension %q", ext), common.ErrInvalidInput)
	}

	sum, err := hashFile(path)
	if err != nil {
		return Document{}, common.NewAppError("FILE_ERROR", fmt.Sprintf("hashing %s", path), err)
	}

	return Document{
		Path:   path,
		Ext:    ext,
		Format: constants.FileTypeForExt(ext),
		Bytes:  info.Size(),
		SHA256: sum,
	}, nil
}

// ExtractText picks a strategy based on the document format.
func (l *Loader) ExtractText(ctx context.Context, doc Document) (Result, error) {
	start := time.Now()
	l.logger.Debug("starting text extraction", "path", doc.Path, "format", doc.Format)

	var res Result
	var err error
	switch doc.Format {
	case "PDF":
		res, err = l.extractPDF(ctx, doc.Path)
	case "IMAGE":
		res, err = l.extractImage(ctx, doc.Path)
	default:
		return Result{}, common.NewAppError("FILE_ERROR", fmt.Sprintf("unsupported format %q", doc.Format), common.ErrInvalidInput)
	}
	res.Duration = time.Since(start)
	return res, err
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
