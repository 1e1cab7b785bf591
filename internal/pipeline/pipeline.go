package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"

	"github.com/myadbox/thumbnailer/internal/client"
	"github.com/myadbox/thumbnailer/internal/config"
	"github.com/myadbox/thumbnailer/internal/imaging"
	"github.com/myadbox/thumbnailer/internal/model"
)

// Stage errors fatal to the whole asset. Anything after the base preview
// exists is scoped to a single profile and surfaces as an omission
// instead.
var (
	ErrFetch       = errors.New("source fetch failed")
	ErrInspect     = errors.New("source inspection failed")
	ErrBaseConvert = errors.New("base preview conversion failed")
)

const derivedContentType = "image/png"

// Pipeline runs one asset end to end: fetch, inspect, derive the base
// preview, fan out over the requested profiles, and publish the result.
// A Pipeline is stateless and safe for concurrent assets; each run gets
// its own working directory under tempDir.
type Pipeline struct {
	store     client.ObjectStore
	queue     client.QueuePublisher
	converter client.ImageConverter
	catalog   *imaging.Catalog
	opts      imaging.ConvertOptions
	tempDir   string
}

// New wires a pipeline from its collaborators
func New(store client.ObjectStore, queue client.QueuePublisher, converter client.ImageConverter, catalog *imaging.Catalog, cfg *config.ImagingConfig) *Pipeline {
	return &Pipeline{
		store:     store,
		queue:     queue,
		converter: converter,
		catalog:   catalog,
		opts: imaging.ConvertOptions{
			ColorProfile:  cfg.ColorProfile,
			WatermarkText: cfg.WatermarkText,
			WatermarkFont: cfg.WatermarkFont,
		},
		tempDir: cfg.TempDir,
	}
}

// Process derives every requested profile for one asset. Per-profile
// failures are logged and omitted from the result; only the fetch,
// inspect and base stages abort the asset. The returned result has been
// published to the job's destination queue when one is set. A publish
// failure is logged but not returned, since the uploads are already
// durable by then.
func (p *Pipeline) Process(ctx context.Context, jobID string, job *model.PreviewJobPayload) (*model.PreviewResult, error) {
	workDir, err := p.makeWorkDir()
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(workDir)

	// Fetching
	srcPath := filepath.Join(workDir, filepath.Base(job.Key))
	data, err := p.store.Download(ctx, job.Bucket, job.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if err := os.WriteFile(srcPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	// Inspecting
	raw, err := p.converter.Identify(ctx, srcPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInspect, err)
	}
	meta, err := imaging.ParseMetadata(raw, srcPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInspect, err)
	}
	log.Printf("Inspected %s: %dx%d %s %s", job.Key, meta.Width, meta.Height, meta.Format, meta.Orientation)

	// DerivingBase: normalize the source once; every profile derives
	// from this file, never from the raw original.
	basePath := imaging.ReplaceExt(srcPath, "png")
	baseArgs := imaging.ConvertArgs(meta, nil, p.catalog.FormatOptions(meta.Format), p.opts, srcPath, basePath)
	if err := p.converter.Convert(ctx, baseArgs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBaseConvert, err)
	}

	result := &model.PreviewResult{
		Brand:    job.Brand,
		AssetID:  job.AssetID,
		JobID:    jobID,
		Metadata: meta,
		Previews: make(map[string]string, len(job.Profiles)),
	}

	// DerivingProfile: resize math always uses the original metadata,
	// not a re-inspection of the base, so rounding never compounds.
	for _, name := range job.Profiles {
		key, err := p.deriveProfile(ctx, job, meta, basePath, name)
		if err != nil {
			log.Printf("Omitting profile %s for %s: %v", name, job.Key, err)
			result.Omitted = append(result.Omitted, name)
			continue
		}
		result.Previews[name] = key
	}

	// Notifying
	if job.Queue != "" {
		if err := p.queue.Publish(ctx, job.Queue, result); err != nil {
			log.Printf("Failed to publish result for %s to %s: %v", job.Key, job.Queue, err)
		}
	}
	return result, nil
}

// deriveProfile converts and uploads one variant, returning its storage
// key. An unknown profile name is reported the same way as a conversion
// or upload failure; the caller records the omission either way.
func (p *Pipeline) deriveProfile(ctx context.Context, job *model.PreviewJobPayload, meta *model.ImageMetadata, basePath, name string) (string, error) {
	profile, ok := p.catalog.Resolve(name)
	if !ok {
		return "", fmt.Errorf("profile not in catalog")
	}

	outPath := imaging.ApplySuffix(basePath, profile.Suffix)
	args := imaging.ConvertArgs(meta, &profile, p.catalog.FormatOptions(meta.Format), p.opts, basePath, outPath)
	if err := p.converter.Convert(ctx, args); err != nil {
		return "", err
	}

	derived, err := os.ReadFile(outPath)
	if err != nil {
		return "", err
	}

	// Derived variants live next to the source object: same directory,
	// derived basename.
	uploadKey := path.Join(path.Dir(job.Key), filepath.Base(outPath))
	return p.store.Upload(ctx, job.Bucket, uploadKey, bytes.NewReader(derived), derivedContentType)
}

func (p *Pipeline) makeWorkDir() (string, error) {
	if err := os.MkdirAll(p.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create temp root: %w", err)
	}
	dir, err := os.MkdirTemp(p.tempDir, "asset-*")
	if err != nil {
		return "", fmt.Errorf("failed to create working directory: %w", err)
	}
	return dir, nil
}

// CleanTempRoot clears stale working files from a previous or crashed
// run. Safe to call unconditionally at startup; a missing directory is
// created.
func CleanTempRoot(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(dir, 0o755)
		}
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			log.Printf("Failed to remove stale %s: %v", entry.Name(), err)
		}
	}
	return nil
}
