package imaging

import (
	"path/filepath"
	"strings"
)

// ReplaceExt swaps the extension of path for ext (without the dot).
func ReplaceExt(path, ext string) string {
	old := filepath.Ext(path)
	return strings.TrimSuffix(path, old) + "." + ext
}

// ApplySuffix inserts suffix between the filename stem and its extension.
func ApplySuffix(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}
