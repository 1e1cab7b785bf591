package client

import (
	"context"
	"log"
	"strings"

	"github.com/myadbox/thumbnailer/internal/config"
	"github.com/myadbox/thumbnailer/internal/imaging"
)

// ImageConverter is what the asset pipeline needs from the conversion
// tool: structural inspection and argument-driven conversion.
type ImageConverter interface {
	Identify(ctx context.Context, path string) ([]byte, error)
	Convert(ctx context.Context, args []string) error
}

// MagickClient drives the ImageMagick identify/convert binaries through
// a ProcessRunner.
type MagickClient struct {
	identifyBin string
	convertBin  string
	runner      ProcessRunner
}

// NewMagickClient creates a converter using the configured binaries
func NewMagickClient(cfg *config.ImagingConfig, runner ProcessRunner) *MagickClient {
	if runner == nil {
		runner = &ExecRunner{}
	}
	return &MagickClient{
		identifyBin: cfg.IdentifyBin,
		convertBin:  cfg.ConvertBin,
		runner:      runner,
	}
}

// Identify runs the structural inspection and returns its raw output
func (m *MagickClient) Identify(ctx context.Context, path string) ([]byte, error) {
	return m.runner.Run(ctx, m.identifyBin, "-format", imaging.IdentifyFormat, path)
}

// Convert runs one conversion with a synthesized argument list
func (m *MagickClient) Convert(ctx context.Context, args []string) error {
	log.Printf("Executing %s %s", m.convertBin, strings.Join(args, " "))
	_, err := m.runner.Run(ctx, m.convertBin, args...)
	return err
}
