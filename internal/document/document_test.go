package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmfreitas/invoice-extractor/internal/common"
)

// runnerFunc adapts a function to the Runner interface so tests can fake
// pdftotext/tesseract/pdftoppm without the binaries installed.
type runnerFunc func(ctx context.Context, name string, args ...string) ([]byte, []byte, error)

func (f runnerFunc) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	return f(ctx, name, args...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader(Config{}, discardLogger())

	t.Run("loads a pdf", func(t *testing.T) {
		content := "%PDF-1.4 stub"
		path := writeFile(t, dir, "invoice.pdf", content)

		doc, err := l.Load(path)
		require.NoError(t, err)
		assert.Equal(t, path, doc.Path)
		assert.Equal(t, "pdf", doc.Ext)
		assert.Equal(t, "PDF", doc.Format)
		assert.Equal(t, int64(len(content)), doc.Bytes)

		sum := sha256.Sum256([]byte(content))
		assert.Equal(t, hex.EncodeToString(sum[:]), doc.SHA256)
	})

	t.Run("normalizes uppercase extensions", func(t *testing.T) {
		path := writeFile(t, dir, "INVOICE.PDF", "%PDF-1.4 stub")
		doc, err := l.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "pdf", doc.Ext)
		assert.Equal(t, "PDF", doc.Format)
	})

	t.Run("classifies images", func(t *testing.T) {
		path := writeFile(t, dir, "scan.jpg", "not really a jpeg")
		doc, err := l.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "IMAGE", doc.Format)
	})

	t.Run("rejects a missing file", func(t *testing.T) {
		_, err := l.Load(filepath.Join(dir, "nope.pdf"))
		require.Error(t, err)
		assert.Equal(t, "FILE_ERROR", common.ErrorCode(err))
		assert.Contains(t, err.Error(), "cannot access")
	})

	t.Run("rejects a directory", func(t *testing.T) {
		_, err := l.Load(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is a directory")
	})

	t.Run("rejects an empty file", func(t *testing.T) {
		path := writeFile(t, dir, "empty.pdf", "")
		_, err := l.Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is empty")
	})

	t.Run("rejects unsupported extensions", func(t *testing.T) {
		path := writeFile(t, dir, "notes.txt", "hello")
		_, err := l.Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unsupported extension "txt"`)
	})
}

func TestExtractTextPDFFallback(t *testing.T) {
	dir := t.TempDir()
	// Not a parsable PDF, so the native pass fails and pdftotext runs.
	path := writeFile(t, dir, "scan.pdf", "scanner wrote something that is not a pdf")

	t.Run("falls back to pdftotext", func(t *testing.T) {
		var gotName string
		var gotArgs []string
		l := NewLoader(Config{}, discardLogger())
		l.runner = runnerFunc(func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
			gotName = name
			gotArgs = args
			return []byte("ACME CORP\nInvoice INV-1\fpage two here"), nil, nil
		})

		res, err := l.ExtractText(context.Background(), Document{Path: path, Format: "PDF"})
		require.NoError(t, err)

		assert.Equal(t, "pdf-text", res.Method)
		assert.Equal(t, 2, res.Pages)
		assert.Contains(t, res.Text, "ACME CORP")
		require.NotEmpty(t, res.Warnings)
		assert.Contains(t, res.Warnings[0], "native pdf parse")

		assert.Equal(t, "pdftotext", gotName)
		require.NotEmpty(t, gotArgs)
		assert.Equal(t, "-layout", gotArgs[0])
		assert.Equal(t, "-", gotArgs[len(gotArgs)-1])
	})

	t.Run("reports failure when both passes fail", func(t *testing.T) {
		l := NewLoader(Config{}, discardLogger())
		l.runner = runnerFunc(func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
			return nil, []byte("Syntax Error: Couldn't read xref table"), os.ErrNotExist
		})

		res, err := l.ExtractText(context.Background(), Document{Path: path, Format: "PDF"})
		require.Error(t, err)
		assert.Equal(t, "pdf-text", res.Method)
		assert.NotEmpty(t, res.Warnings)
	})

	t.Run("honors the configured binary", func(t *testing.T) {
		var gotName string
		l := NewLoader(Config{Pdftotext: "/opt/poppler/bin/pdftotext"}, discardLogger())
		l.runner = runnerFunc(func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
			gotName = name
			return []byte("text"), nil, nil
		})

		_, err := l.ExtractText(context.Background(), Document{Path: path, Format: "PDF"})
		require.NoError(t, err)
		assert.Equal(t, "/opt/poppler/bin/pdftotext", gotName)
	})
}

func TestExtractTextImageOCR(t *testing.T) {
	dir := t.TempDir()
	// Junk bytes: the enhancement pass fails and OCR runs on the original.
	path := writeFile(t, dir, "photo.jpg", "not a jpeg")

	t.Run("runs tesseract and strips line noise", func(t *testing.T) {
		var gotName string
		var gotArgs []string
		l := NewLoader(Config{}, discardLogger())
		l.runner = runnerFunc(func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
			gotName = name
			gotArgs = args
			return []byte("INVOICE\n______\nTotal: 42.00\n"), nil, nil
		})

		res, err := l.ExtractText(context.Background(), Document{Path: path, Format: "IMAGE"})
		require.NoError(t, err)

		assert.Equal(t, "image-ocr", res.Method)
		assert.Equal(t, 1, res.Pages)
		assert.Contains(t, res.Text, "INVOICE")
		assert.Contains(t, res.Text, "Total: 42.00")
		assert.NotContains(t, res.Text, "______")
		require.NotEmpty(t, res.Warnings)
		assert.Contains(t, res.Warnings[0], "image enhancement")

		assert.Equal(t, "tesseract", gotName)
		assert.Equal(t, []string{path, "stdout", "-l", "eng"}, gotArgs)
	})

	t.Run("propagates OCR failure", func(t *testing.T) {
		l := NewLoader(Config{}, discardLogger())
		l.runner = runnerFunc(func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
			return nil, []byte("Error in pixReadStream"), os.ErrInvalid
		})

		_, err := l.ExtractText(context.Background(), Document{Path: path, Format: "IMAGE"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tesseract")
	})
}

func TestExtractTextUnknownFormat(t *testing.T) {
	l := NewLoader(Config{}, discardLogger())
	_, err := l.ExtractText(context.Background(), Document{Path: "x", Format: "DOCX"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}
