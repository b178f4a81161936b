package processor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dmfreitas/invoice-extractor/constants"
	"github.com/dmfreitas/invoice-extractor/internal/document"
	"github.com/dmfreitas/invoice-extractor/internal/entity"
	"github.com/dmfreitas/invoice-extractor/internal/llm"
	"github.com/dmfreitas/invoice-extractor/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testDB opens a throwaway in-memory store. One connection only, so every
// query sees the same memory database.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repository.Open(context.Background(), repository.Config{
		URL:          ":memory:",
		MaxOpenConns: 1,
	}, discardLogger())
	require.NoError(t, err)
	return db
}

type stubExtractor struct {
	fields llm.InvoiceFields
	raw    []byte
	err    error
	gotReq llm.ExtractRequest
}

func (s *stubExtractor) ExtractFields(ctx context.Context, req llm.ExtractRequest) (llm.InvoiceFields, []byte, error) {
	s.gotReq = req
	return s.fields, s.raw, s.err
}

type failingInvoices struct{}

func (failingInvoices) Upsert(ctx context.Context, inv *entity.Invoice) (*entity.Invoice, error) {
	return nil, errors.New("disk full")
}
func (failingInvoices) GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	return nil, errors.New("disk full")
}
func (failingInvoices) List(ctx context.Context, f repository.ListFilter) ([]*entity.Invoice, error) {
	return nil, errors.New("disk full")
}
func (failingInvoices) Count(ctx context.Context) (int64, error) {
	return 0, errors.New("disk full")
}

func fieldsFixture() llm.InvoiceFields {
	return llm.InvoiceFields{
		Vendor:          "Acme Corp",
		VendorAddress:   "1 Factory Rd",
		InvoiceNumber:   "INV-1001",
		InvoiceDate:     "2024-05-06",
		TotalDue:        "108.25",
		Currency:        "USD",
		Customer:        "Jane Smith",
		CustomerAddress: "9 Elm St",
		BillingAddress:  "9 Elm St",
		Items: []llm.LineItemFields{
			{Description: "Widget", Quantity: "2", UnitPrice: "50", SubTotal: "100", TaxRate: "8.25", TotalPrice: "108.25"},
		},
	}
}

func docFixture() (document.Document, document.Result) {
	doc := document.Document{
		Path:   "/inbox/acme.pdf",
		Ext:    "pdf",
		Format: "PDF",
		Bytes:  4096,
		SHA256: strings.Repeat("ab", 32),
	}
	res := document.Result{
		Text:   strings.Repeat("invoice text ", 20),
		Pages:  2,
		Method: "pdf-native",
	}
	return doc, res
}

func TestExtractStageRun(t *testing.T) {
	ctx := context.Background()

	t.Run("extracts without persistence", func(t *testing.T) {
		stub := &stubExtractor{fields: fieldsFixture(), raw: []byte(`{"vendor":"Acme Corp"}`)}
		stage := NewExtractStage(discardLogger(), Config{Model: "gpt-4o-mini"}, stub, nil, nil, nil)

		doc, res := docFixture()
		out, err := stage.Run(ctx, doc, res, uuid.Nil)
		require.NoError(t, err)

		assert.Equal(t, "INV-1001", out.Invoice.InvoiceNumber)
		assert.Equal(t, doc.Path, out.Invoice.SourcePath)
		assert.Equal(t, doc.SHA256, out.Invoice.SourceSHA256)
		assert.Equal(t, doc.Bytes, out.Invoice.SourceBytes)
		assert.Equal(t, 2, out.Invoice.PageCount)
		assert.Equal(t, "gpt-4o-mini", out.Invoice.ModelName)
		assert.False(t, out.Invoice.NeedsReview)
		assert.False(t, out.Saved)
		assert.NoError(t, out.SaveErr)

		assert.Equal(t, "acme.pdf", stub.gotReq.FilenameHint)
		assert.Equal(t, "USD", stub.gotReq.DefaultCurrency)
		assert.Empty(t, stub.gotReq.ImageDataURL)
	})

	t.Run("flags arithmetic that does not add up", func(t *testing.T) {
		f := fieldsFixture()
		f.TotalDue = "999.99"
		stub := &stubExtractor{fields: f, raw: []byte(`{}`)}
		stage := NewExtractStage(discardLogger(), Config{Model: "gpt-4o-mini"}, stub, nil, nil, nil)

		doc, res := docFixture()
		out, err := stage.Run(ctx, doc, res, uuid.Nil)
		require.NoError(t, err)
		assert.True(t, out.Invoice.NeedsReview)
		assert.Contains(t, out.Invoice.ReviewReasons, "total_due")
	})

	t.Run("extractor errors propagate", func(t *testing.T) {
		stub := &stubExtractor{err: errors.New("model overloaded")}
		stage := NewExtractStage(discardLogger(), Config{}, stub, nil, nil, nil)

		doc, res := docFixture()
		_, err := stage.Run(ctx, doc, res, uuid.Nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "llm extract")
	})

	t.Run("unparsable fields fail conversion", func(t *testing.T) {
		f := fieldsFixture()
		f.InvoiceDate = "May 6th"
		stub := &stubExtractor{fields: f}
		stage := NewExtractStage(discardLogger(), Config{}, stub, nil, nil, nil)

		doc, res := docFixture()
		_, err := stage.Run(ctx, doc, res, uuid.Nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "convert fields")
	})

	t.Run("persists and links the job", func(t *testing.T) {
		db := testDB(t)
		invoices := repository.NewInvoiceRepository(db, discardLogger())
		jobs := repository.NewExtractJobRepository(db, discardLogger())

		doc, res := docFixture()
		job, err := jobs.Start(ctx, doc.Path, doc.Format)
		require.NoError(t, err)

		stub := &stubExtractor{fields: fieldsFixture(), raw: []byte(`{"vendor":"Acme Corp"}`)}
		stage := NewExtractStage(discardLogger(), Config{Model: "gpt-4o-mini", Persist: true}, stub, nil, invoices, jobs)

		out, err := stage.Run(ctx, doc, res, job.ID)
		require.NoError(t, err)
		assert.True(t, out.Saved)
		assert.NoError(t, out.SaveErr)
		require.NotEqual(t, uuid.Nil, out.Invoice.ID)

		stored, err := invoices.GetByID(ctx, out.Invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, "Acme Corp", stored.Vendor)
		require.Len(t, stored.Items, 1)
		assert.Equal(t, "Widget", stored.Items[0].Description)

		recent, err := jobs.ListRecent(ctx, 5)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, constants.JobStatusDone, recent[0].Status)
		require.NotNil(t, recent[0].InvoiceID)
		assert.Equal(t, out.Invoice.ID, *recent[0].InvoiceID)
		require.NotNil(t, recent[0].ModelName)
		assert.Equal(t, "gpt-4o-mini", *recent[0].ModelName)
		assert.NotNil(t, recent[0].FinishedAt)
	})

	t.Run("save failure rides on the outcome", func(t *testing.T) {
		stub := &stubExtractor{fields: fieldsFixture()}
		stage := NewExtractStage(discardLogger(), Config{Persist: true}, stub, nil, failingInvoices{}, nil)

		doc, res := docFixture()
		out, err := stage.Run(ctx, doc, res, uuid.Nil)
		require.NoError(t, err)
		assert.False(t, out.Saved)
		require.Error(t, out.SaveErr)
		assert.Contains(t, out.SaveErr.Error(), "disk full")
	})

	t.Run("extractor failure marks the job failed", func(t *testing.T) {
		db := testDB(t)
		jobs := repository.NewExtractJobRepository(db, discardLogger())

		doc, res := docFixture()
		job, err := jobs.Start(ctx, doc.Path, doc.Format)
		require.NoError(t, err)

		stub := &stubExtractor{err: errors.New("model overloaded")}
		stage := NewExtractStage(discardLogger(), Config{}, stub, nil, nil, jobs)

		_, err = stage.Run(ctx, doc, res, job.ID)
		require.Error(t, err)

		recent, err := jobs.ListRecent(ctx, 5)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, constants.JobStatusFailed, recent[0].Status)
		require.NotNil(t, recent[0].ErrorMessage)
		assert.Contains(t, *recent[0].ErrorMessage, "model overloaded")
	})
}

func TestExtractStageVisionFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("attaches the photo for thin image text", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "receipt.jpg")
		require.NoError(t, os.WriteFile(path, []byte("jpeg bytes"), 0o644))

		stub := &stubExtractor{fields: fieldsFixture()}
		stage := NewExtractStage(discardLogger(), Config{VisionFallback: true, MinTextChars: 120}, stub, nil, nil, nil)

		doc := document.Document{Path: path, Format: "IMAGE", SHA256: "x", Bytes: 10}
		res := document.Result{Text: "thin", Pages: 1}
		_, err := stage.Run(ctx, doc, res, uuid.Nil)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(stub.gotReq.ImageDataURL, "data:image/jpeg;base64,"))
	})

	t.Run("continues without an image when the render fails", func(t *testing.T) {
		loader := document.NewLoader(document.Config{Pdftoppm: "/nonexistent/pdftoppm"}, discardLogger())
		stub := &stubExtractor{fields: fieldsFixture()}
		stage := NewExtractStage(discardLogger(), Config{VisionFallback: true, MinTextChars: 120}, stub, loader, nil, nil)

		doc, res := docFixture()
		res.Text = "thin"
		out, err := stage.Run(ctx, doc, res, uuid.Nil)
		require.NoError(t, err)
		assert.NotNil(t, out.Invoice)
		assert.Empty(t, stub.gotReq.ImageDataURL)
	})

	t.Run("rich text needs no image", func(t *testing.T) {
		stub := &stubExtractor{fields: fieldsFixture()}
		stage := NewExtractStage(discardLogger(), Config{VisionFallback: true, MinTextChars: 120}, stub, nil, nil, nil)

		doc, res := docFixture()
		_, err := stage.Run(ctx, doc, res, uuid.Nil)
		require.NoError(t, err)
		assert.Empty(t, stub.gotReq.ImageDataURL)
	})
}
