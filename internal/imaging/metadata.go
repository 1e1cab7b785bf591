package imaging

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/myadbox/thumbnailer/internal/model"
)

// IdentifyFormat is the -format template passed to the inspection tool.
// First line is the feature tuple, the rest is the embedded tag dump.
const IdentifyFormat = "%[width],%[height],%[colorspace],%[size],%m,\n%[EXIF:*]"

// tagMarker namespaces the tag lines we keep from the inspection dump.
const tagMarker = "exif:"

// ErrMetadataParse reports inspection output that cannot be decomposed
// into at least width, height and format.
var ErrMetadataParse = errors.New("malformed identify output")

// ParseMetadata builds an ImageMetadata record from raw inspection output.
// The first line is a comma-separated tuple width,height[,colorspace]
// [,byteSize],format; the trailing comma in IdentifyFormat produces an
// empty last field which is dropped. Subsequent lines are read as
// "exif:Key=value" tags until the first line without the marker; values
// that are not integers are dropped silently.
//
// When the tuple carries no parseable byte size the file at path is
// stat'ed instead; a stat failure leaves the size at zero rather than
// failing the parse.
func ParseMetadata(raw []byte, path string) (*model.ImageMetadata, error) {
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	fields := splitFeatures(lines[0])
	if len(fields) < 3 {
		return nil, fmt.Errorf("%w: feature tuple %q", ErrMetadataParse, lines[0])
	}

	width, werr := strconv.Atoi(fields[0])
	height, herr := strconv.Atoi(fields[1])
	if werr != nil || herr != nil || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %q x %q", ErrMetadataParse, fields[0], fields[1])
	}

	meta := &model.ImageMetadata{
		Width:       width,
		Height:      height,
		Format:      fields[len(fields)-1],
		Orientation: model.OrientationOf(width, height),
		Print:       model.PrintSizeOf(width, height),
	}

	// Middle fields are colorspace and/or byte size; either may be absent
	// depending on the inspection template in use.
	for _, f := range fields[2 : len(fields)-1] {
		if n, ok := parseByteSize(f); ok {
			meta.ByteSize = n
		} else if meta.ColorSpace == "" {
			meta.ColorSpace = f
		}
	}
	if meta.ByteSize == 0 && path != "" {
		if info, err := os.Stat(path); err == nil {
			meta.ByteSize = info.Size()
		}
	}

	meta.Tags = parseTags(lines[1:])
	return meta, nil
}

func splitFeatures(line string) []string {
	parts := strings.Split(line, ",")
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		fields = append(fields, strings.TrimSpace(p))
	}
	for len(fields) > 0 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	return fields
}

// parseByteSize reads the inspection tool's size field, which reports
// bytes with a trailing unit letter (e.g. "467496B").
func parseByteSize(s string) (int64, bool) {
	s = strings.TrimSuffix(s, "B")
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// parseTags reads the contiguous tag block from the top of the dump.
func parseTags(lines []string) map[string]int {
	tags := make(map[string]int)
	for _, line := range lines {
		if !strings.Contains(line, tagMarker) {
			break
		}
		rest := line[strings.Index(line, ":")+1:]
		key, value, ok := strings.Cut(rest, "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			continue
		}
		tags[strings.TrimSpace(key)] = n
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}
