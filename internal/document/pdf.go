package document

import (
	"context"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF tries the native parser first and falls back to pdftotext when
// the document yields too little text (scanned PDFs, exotic encodings).
func (l *Loader) extractPDF(ctx context.Context, path string) (Result, error) {
	res, nativeErr := l.pdfNative(path)
	if nativeErr == nil && len(strings.TrimSpace(res.Text)) >= l.cfg.MinTextChars {
		return res, nil
	}

	var warnings []string
	if nativeErr != nil {
		warnings = append(warnings, "native pdf parse: "+nativeErr.Error())
	} else {
		warnings = append(warnings, "native pdf parse yielded too little text")
	}

	fallback, err := l.pdfToText(ctx, path)
	if err != nil {
		// Report whichever pass got further.
		if nativeErr == nil && res.Text != "" {
			res.Warnings = append(res.Warnings, "pdftotext: "+err.Error())
			return res, nil
		}
		fallback.Warnings = append(warnings, fallback.Warnings...)
		return fallback, err
	}
	fallback.Warnings = append(warnings, fallback.Warnings...)
	return fallback, nil
}

func (l *Loader) pdfNative(path string) (Result, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	totalPages := reader.NumPage()
	var b strings.Builder

	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract.
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n")
		}
		b.WriteString(text)
	}

	return Result{
		Text:   Normalize(b.String()),
		Pages:  totalPages,
		Method: "pdf-native",
	}, nil
}

func (l *Loader) pdfToText(ctx context.Context, path string) (Result, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := l.runner.Run(ctx, l.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return Result{Method: "pdf-text", Warnings: []string{string(errb)}}, err
	}
	text := string(out)
	// A form-feed \f is used as page separator by default
	pages := 1 + strings.Count(text, "\f")
	return Result{
		Text:   Normalize(text),
		Pages:  pages,
		Method: "pdf-text",
	}, nil
}
