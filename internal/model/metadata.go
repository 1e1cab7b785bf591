package model

import "math"

// Orientation of a source image. Square images count as portrait so that
// resize math always has exactly two branches.
type Orientation string

const (
	OrientationLandscape Orientation = "landscape"
	OrientationPortrait  Orientation = "portrait"
)

// OrientationOf classifies a pixel geometry. Landscape only when width is
// strictly greater than height.
func OrientationOf(width, height int) Orientation {
	if width > height {
		return OrientationLandscape
	}
	return OrientationPortrait
}

// PrintSize is the physical print size in millimeters at 300 DPI.
type PrintSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PrintSizeOf converts pixel dimensions to millimeters at 300 DPI,
// rounded to two decimal places.
func PrintSizeOf(width, height int) PrintSize {
	return PrintSize{
		Width:  roundTwo(float64(width) / 300 * 25.4),
		Height: roundTwo(float64(height) / 300 * 25.4),
	}
}

func roundTwo(v float64) float64 {
	return math.Round(v*100) / 100
}

// ImageMetadata describes one source file as reported by the inspection
// tool. Immutable once built; orientation and print size are derived from
// the pixel dimensions and never set independently.
type ImageMetadata struct {
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	ColorSpace  string         `json:"colorspace,omitempty"`
	ByteSize    int64          `json:"fileSize"`
	Format      string         `json:"format"`
	Orientation Orientation    `json:"orientation"`
	Print       PrintSize      `json:"print"`
	Tags        map[string]int `json:"exif,omitempty"`
}

// MatchingDimension returns the axis that drives resize and watermark
// sizing: width for landscape sources, height for portrait.
func (m *ImageMetadata) MatchingDimension() int {
	if m.Orientation == OrientationLandscape {
		return m.Width
	}
	return m.Height
}
