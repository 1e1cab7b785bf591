package imaging

import (
	"fmt"
	"strings"

	"github.com/myadbox/thumbnailer/internal/model"
)

// ConvertOptions carries the deployment-specific assets referenced by
// synthesized arguments.
type ConvertOptions struct {
	// ColorProfile is the path of the sRGB ICC profile applied to CMYK
	// sources before any other step.
	ColorProfile string
	// WatermarkText is the literal overlay composited when a profile
	// requests a watermark.
	WatermarkText string
	// WatermarkFont optionally points at a font file for the overlay.
	WatermarkFont string
}

// ConvertArgs synthesizes the ordered parameter list for one conversion.
// The precedence is fixed: CMYK color-profile conversion, universal
// defaults plus format-specific options (formatOpts, as resolved by the
// catalog), byte-budget hint, clamped orientation-driven resize, watermark
// overlay, then the input and output paths. Each stage appends, never
// replaces.
//
// The function is pure: identical inputs yield an identical sequence. It
// never fails; a nil profile or unknown format simply contributes nothing.
func ConvertArgs(meta *model.ImageMetadata, profile *Profile, formatOpts []string, opts ConvertOptions, inputPath, outputPath string) []string {
	args := make([]string, 0, len(formatOpts)+20)

	// Downstream viewers assume RGB, so CMYK sources are converted
	// before any resize or format step.
	if meta.ColorSpace == "CMYK" {
		args = append(args, "-profile", opts.ColorProfile)
	}

	args = append(args, formatOpts...)

	if profile != nil {
		if profile.ByteBudget > 0 {
			args = append(args, "-define", fmt.Sprintf("png:extent=%dkb", profile.ByteBudget))
		}

		ref := meta.MatchingDimension()
		if profile.MaxDimension > 0 {
			if profile.MaxDimension < ref {
				ref = profile.MaxDimension
			}
			// The free axis is left to the tool so aspect ratio is
			// preserved from the unconstrained dimension.
			if meta.Orientation == model.OrientationLandscape {
				args = append(args, "-resize", fmt.Sprintf("%dx", ref))
			} else {
				args = append(args, "-resize", fmt.Sprintf("x%d", ref))
			}
		}

		if profile.Watermark {
			args = append(args, "-fill", "rgba(255,255,255,0.7)")
			if opts.WatermarkFont != "" {
				args = append(args, "-font", opts.WatermarkFont)
			}
			args = append(args,
				"-pointsize", formatPointSize(ref),
				"-gravity", "center",
				"-annotate", "-40x-40+0+0",
				opts.WatermarkText,
			)
		}
	}

	in := inputPath
	if strings.HasSuffix(inputPath, ".pdf") {
		// Multi-page sources are never rasterized past page one.
		in += "[0]"
	}
	return append(args, in, outputPath)
}

func formatPointSize(ref int) string {
	return fmt.Sprintf("%g", float64(ref)/5)
}
