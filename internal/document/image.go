package document

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// extractImage runs OCR over an image invoice after an enhancement pass.
func (l *Loader) extractImage(ctx context.Context, path string) (Result, error) {
	enhanced, cleanup, err := l.enhanceForOCR(path)
	var warnings []string
	if err != nil {
		// OCR the original when enhancement fails; tesseract may still cope.
		warnings = append(warnings, "image enhancement: "+err.Error())
		enhanced = path
	}
	if cleanup != nil {
		defer cleanup()
	}

	text, warns, err := l.tesseractOCR(ctx, enhanced)
	warnings = append(warnings, warns...)
	if err != nil {
		return Result{Method: "image-ocr", Warnings: warnings}, err
	}

	return Result{
		Text:     Normalize(text),
		Pages:    1,
		Method:   "image-ocr",
		Warnings: warnings,
	}, nil
}

// enhanceForOCR applies the grayscale/contrast/sharpen chain that makes
// photographed documents legible to tesseract.
func (l *Loader) enhanceForOCR(path string) (string, func(), error) {
	src, err := imaging.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("opening image: %w", err)
	}

	img := enhance(src)

	tmpDir, err := os.MkdirTemp("", "inv-img-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	out := filepath.Join(tmpDir, "enhanced.png")
	if err := imaging.Save(img, out); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("saving enhanced image: %w", err)
	}
	return out, cleanup, nil
}

func enhance(src image.Image) image.Image {
	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.5)
	img = imaging.AdjustBrightness(img, 10)
	img = imaging.AdjustGamma(img, 1.2)
	return img
}

func (l *Loader) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	args := []string{path, "stdout", "-l", l.cfg.TesseractLang}

	// tesseract <file> stdout -l <lang>
	out, errb, err := l.runner.Run(ctx, l.cfg.Tesseract, args...)
	if err != nil {
		return "", []string{string(errb)}, fmt.Errorf("tesseract: %w", err)
	}

	// minor cleanup of obvious line noise
	txt := reBoxNoise.ReplaceAllString(string(out), "")
	return txt, nil, nil
}
