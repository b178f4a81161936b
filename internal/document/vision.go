package document

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
)

// MaxVisionMB caps the size of images attached to vision requests.
const MaxVisionMB = 8

// RenderPage rasterizes one PDF page to an enhanced PNG, for vision models
// when the text layer gives the LLM too little to work with.
func (l *Loader) RenderPage(ctx context.Context, path string, pageNum int) ([]byte, error) {
	if pageNum <= 0 {
		pageNum = 1
	}

	tmpDir, err := os.MkdirTemp("", "inv-pp-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -f N -l N -png <in.pdf> <tmp/page>
	page := fmt.Sprintf("%d", pageNum)
	_, errb, err := l.runner.Run(ctx, l.cfg.Pdftoppm,
		"-r", fmt.Sprintf("%d", l.cfg.DPI), "-f", page, "-l", page, "-png", path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w (%s)", err, truncate(string(errb), 512))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no images")
	}

	img, err := imaging.Open(matches[0])
	if err != nil {
		return nil, fmt.Errorf("opening rendered page: %w", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, enhance(img), imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding rendered page: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL wraps raw image bytes as a base64 data URL.
func DataURL(b []byte, mimeType string) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(b)
}

// ReadAsDataURL loads an image file as a data URL, with a size gate so
// oversized photos never reach the API.
func ReadAsDataURL(path string) (string, string, error) {
	if st, err := os.Stat(path); err != nil {
		return "", "", err
	} else if st.Size() > int64(MaxVisionMB)*1024*1024 {
		return "", "", fmt.Errorf("image exceeds %dMB vision limit", MaxVisionMB)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	mt := mime.TypeByExtension("." + ext)
	if mt == "" {
		// fallbacks
		switch ext {
		case "jpg", "jpeg":
			mt = "image/jpeg"
		case "png":
			mt = "image/png"
		default:
			mt = "application/octet-stream"
		}
	}
	return DataURL(b, mt), mt, nil
}
