package ingest

import (
	"path/filepath"
	"strings"

	"github.com/dmfreitas/invoice-extractor/constants"
)

// AllowedExt checks whether a file extension is in the default allowed set.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks whether a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}
