package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/myadbox/thumbnailer/internal/client"
	"github.com/myadbox/thumbnailer/internal/config"
	"github.com/myadbox/thumbnailer/internal/imaging"
	"github.com/myadbox/thumbnailer/internal/model"
)

const identifyLandscape = "1600,835,sRGB,467496B,JPEG,\nexif:Orientation=1\n"

type fakeStore struct {
	objects     map[string][]byte
	uploads     map[string][]byte
	downloadErr error
	failUploads string // substring of keys whose upload fails
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects: map[string][]byte{},
		uploads: map[string][]byte{},
	}
}

func (s *fakeStore) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	if s.downloadErr != nil {
		return nil, s.downloadErr
	}
	data, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("no such object %s/%s", bucket, key)
	}
	return data, nil
}

func (s *fakeStore) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) (string, error) {
	if s.failUploads != "" && strings.Contains(key, s.failUploads) {
		return "", errors.New("upload refused")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.uploads[key] = data
	return key, nil
}

type fakeQueue struct {
	destinations []string
	payloads     []interface{}
	err          error
}

func (q *fakeQueue) Publish(ctx context.Context, queueURL string, payload interface{}) error {
	if q.err != nil {
		return q.err
	}
	q.destinations = append(q.destinations, queueURL)
	q.payloads = append(q.payloads, payload)
	return nil
}

// fakeConverter scripts identify output and materializes convert output
// files, failing conversions whose output path matches failConverts.
type fakeConverter struct {
	identifyOut  []byte
	identifyErr  error
	failConverts string
	convertCalls [][]string
}

func (c *fakeConverter) Identify(ctx context.Context, path string) ([]byte, error) {
	if c.identifyErr != nil {
		return nil, c.identifyErr
	}
	return c.identifyOut, nil
}

func (c *fakeConverter) Convert(ctx context.Context, args []string) error {
	c.convertCalls = append(c.convertCalls, append([]string(nil), args...))
	outPath := args[len(args)-1]
	if c.failConverts != "" && strings.Contains(outPath, c.failConverts) {
		return errors.New("convert exited with 1")
	}
	return os.WriteFile(outPath, []byte("derived"), 0o644)
}

func testJob(profiles ...string) *model.PreviewJobPayload {
	return &model.PreviewJobPayload{
		Bucket:   "assets",
		Key:      "acme/uploads/banner.tif",
		Profiles: profiles,
		Queue:    "https://sqs.test/return-queue",
		Brand:    "acme",
		AssetID:  "750",
	}
}

func newTestPipeline(t *testing.T, store *fakeStore, queue *fakeQueue, conv *fakeConverter) *Pipeline {
	t.Helper()
	cfg := &config.ImagingConfig{
		TempDir:       t.TempDir(),
		ColorProfile:  "/opt/colorprofiles/sRGB2014.icc",
		WatermarkText: "myadbox",
	}
	return New(store, queue, conv, imaging.DefaultCatalog(), cfg)
}

func TestProcess_DerivesAllProfiles(t *testing.T) {
	store := newFakeStore()
	store.objects["assets/acme/uploads/banner.tif"] = []byte("tif bytes")
	queue := &fakeQueue{}
	conv := &fakeConverter{identifyOut: []byte(identifyLandscape)}

	p := newTestPipeline(t, store, queue, conv)
	result, err := p.Process(context.Background(), "job-1", testJob("smallThumb", "originalPreview"))
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if result.Previews["smallThumb"] != "acme/uploads/banner-st.png" {
		t.Errorf("smallThumb key = %q", result.Previews["smallThumb"])
	}
	if result.Previews["originalPreview"] != "acme/uploads/banner-op.png" {
		t.Errorf("originalPreview key = %q", result.Previews["originalPreview"])
	}
	if result.Metadata.Orientation != model.OrientationLandscape {
		t.Errorf("orientation = %q, want landscape", result.Metadata.Orientation)
	}
	if len(store.uploads) != 2 {
		t.Errorf("uploads = %d, want 2", len(store.uploads))
	}

	// base pass + two profile passes
	if len(conv.convertCalls) != 3 {
		t.Fatalf("convert calls = %d, want 3", len(conv.convertCalls))
	}
	base := conv.convertCalls[0]
	if !strings.HasSuffix(base[len(base)-1], "banner.png") {
		t.Errorf("base output = %q, want normalized banner.png", base[len(base)-1])
	}
	small := conv.convertCalls[1]
	if !containsPair(small, "-resize", "300x") {
		t.Errorf("smallThumb args = %v, want width-bound resize at 300", small)
	}
	if !strings.HasSuffix(small[len(small)-2], "banner.png") {
		t.Errorf("profile input = %q, must be the base file", small[len(small)-2])
	}
	full := conv.convertCalls[2]
	for _, a := range full {
		if a == "-resize" {
			t.Errorf("originalPreview must not resize, args = %v", full)
		}
	}

	if len(queue.destinations) != 1 || queue.destinations[0] != "https://sqs.test/return-queue" {
		t.Errorf("publish destinations = %v", queue.destinations)
	}
}

func TestProcess_ResultPayloadShape(t *testing.T) {
	store := newFakeStore()
	store.objects["assets/acme/uploads/banner.tif"] = []byte("tif bytes")
	queue := &fakeQueue{}
	conv := &fakeConverter{identifyOut: []byte(identifyLandscape)}

	p := newTestPipeline(t, store, queue, conv)
	result, err := p.Process(context.Background(), "job-2", testJob("smallThumb"))
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if payload["brand"] != "acme" || payload["assetId"] != "750" || payload["jobId"] != "job-2" {
		t.Errorf("pass-through identifiers wrong: %v", payload)
	}
	if payload["smallThumb"] != "acme/uploads/banner-st.png" {
		t.Errorf("smallThumb = %v", payload["smallThumb"])
	}
	if _, ok := payload["metadata"]; !ok {
		t.Error("metadata missing from payload")
	}
	if _, ok := payload["largeThumb"]; ok {
		t.Error("unrequested profile must be absent, not null")
	}
}

func TestProcess_UnknownProfileIsSkipped(t *testing.T) {
	store := newFakeStore()
	store.objects["assets/acme/uploads/banner.tif"] = []byte("tif bytes")
	queue := &fakeQueue{}
	conv := &fakeConverter{identifyOut: []byte(identifyLandscape)}

	p := newTestPipeline(t, store, queue, conv)
	result, err := p.Process(context.Background(), "job-3", testJob("bogus", "smallThumb"))
	if err != nil {
		t.Fatalf("unknown profile must not fail the asset: %v", err)
	}

	if _, ok := result.Previews["bogus"]; ok {
		t.Error("bogus profile produced a key")
	}
	if _, ok := result.Previews["smallThumb"]; !ok {
		t.Error("sibling profile was not derived")
	}
	if len(result.Omitted) != 1 || result.Omitted[0] != "bogus" {
		t.Errorf("omitted = %v, want [bogus]", result.Omitted)
	}
}

func TestProcess_ProfileConversionFailureIsOmitted(t *testing.T) {
	store := newFakeStore()
	store.objects["assets/acme/uploads/banner.tif"] = []byte("tif bytes")
	queue := &fakeQueue{}
	conv := &fakeConverter{identifyOut: []byte(identifyLandscape), failConverts: "-lt"}

	p := newTestPipeline(t, store, queue, conv)
	result, err := p.Process(context.Background(), "job-4", testJob("largeThumb", "smallThumb"))
	if err != nil {
		t.Fatalf("profile failure must not fail the asset: %v", err)
	}

	if _, ok := result.Previews["largeThumb"]; ok {
		t.Error("failed profile produced a key")
	}
	if result.Previews["smallThumb"] == "" {
		t.Error("later profile was not derived after a sibling failed")
	}
	if len(queue.destinations) != 1 {
		t.Error("result must still be published after a per-profile failure")
	}
}

func TestProcess_UploadFailureIsOmitted(t *testing.T) {
	store := newFakeStore()
	store.objects["assets/acme/uploads/banner.tif"] = []byte("tif bytes")
	store.failUploads = "-sp"
	queue := &fakeQueue{}
	conv := &fakeConverter{identifyOut: []byte(identifyLandscape)}

	p := newTestPipeline(t, store, queue, conv)
	result, err := p.Process(context.Background(), "job-5", testJob("smallPreview", "smallThumb"))
	if err != nil {
		t.Fatalf("upload failure must not fail the asset: %v", err)
	}
	if _, ok := result.Previews["smallPreview"]; ok {
		t.Error("profile with failed upload produced a key")
	}
	if result.Previews["smallThumb"] == "" {
		t.Error("sibling profile missing")
	}
}

func TestProcess_FetchFailureIsFatal(t *testing.T) {
	store := newFakeStore()
	store.downloadErr = errors.New("no such bucket")
	queue := &fakeQueue{}
	conv := &fakeConverter{identifyOut: []byte(identifyLandscape)}

	p := newTestPipeline(t, store, queue, conv)
	_, err := p.Process(context.Background(), "job-6", testJob("smallThumb"))
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("error = %v, want ErrFetch", err)
	}
	if len(conv.convertCalls) != 0 {
		t.Error("conversion ran after a failed fetch")
	}
	if len(store.uploads) != 0 || len(queue.destinations) != 0 {
		t.Error("uploads or publishes happened after a failed fetch")
	}
}

func TestProcess_MalformedInspectionIsFatal(t *testing.T) {
	store := newFakeStore()
	store.objects["assets/acme/uploads/banner.tif"] = []byte("tif bytes")
	queue := &fakeQueue{}
	conv := &fakeConverter{identifyOut: []byte("identify: garbage")}

	p := newTestPipeline(t, store, queue, conv)
	_, err := p.Process(context.Background(), "job-7", testJob("smallThumb"))
	if !errors.Is(err, ErrInspect) {
		t.Fatalf("error = %v, want ErrInspect", err)
	}
	if !errors.Is(err, imaging.ErrMetadataParse) {
		t.Errorf("error = %v, want wrapped ErrMetadataParse", err)
	}
	if len(queue.destinations) != 0 {
		t.Error("publish happened after failed inspection")
	}
}

func TestProcess_BaseConversionFailureIsFatal(t *testing.T) {
	store := newFakeStore()
	store.objects["assets/acme/uploads/banner.tif"] = []byte("tif bytes")
	queue := &fakeQueue{}
	conv := &fakeConverter{identifyOut: []byte(identifyLandscape), failConverts: "banner.png"}

	p := newTestPipeline(t, store, queue, conv)
	_, err := p.Process(context.Background(), "job-8", testJob("smallThumb"))
	if !errors.Is(err, ErrBaseConvert) {
		t.Fatalf("error = %v, want ErrBaseConvert", err)
	}
	if len(store.uploads) != 0 {
		t.Error("uploads happened after failed base derivation")
	}
}

func TestProcess_PublishFailureIsNotFatal(t *testing.T) {
	store := newFakeStore()
	store.objects["assets/acme/uploads/banner.tif"] = []byte("tif bytes")
	queue := &fakeQueue{err: errors.New("queue unreachable")}
	conv := &fakeConverter{identifyOut: []byte(identifyLandscape)}

	p := newTestPipeline(t, store, queue, conv)
	result, err := p.Process(context.Background(), "job-9", testJob("smallThumb"))
	if err != nil {
		t.Fatalf("publish failure must not fail the asset: %v", err)
	}
	if result.Previews["smallThumb"] == "" {
		t.Error("derived key missing from result")
	}
}

func TestProcess_CleansWorkingDirectory(t *testing.T) {
	store := newFakeStore()
	store.objects["assets/acme/uploads/banner.tif"] = []byte("tif bytes")
	queue := &fakeQueue{}
	conv := &fakeConverter{identifyOut: []byte(identifyLandscape)}

	tempRoot := t.TempDir()
	cfg := &config.ImagingConfig{TempDir: tempRoot, WatermarkText: "myadbox"}
	p := New(store, queue, conv, imaging.DefaultCatalog(), cfg)

	if _, err := p.Process(context.Background(), "job-10", testJob("smallThumb")); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	entries, err := os.ReadDir(tempRoot)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("working files left behind: %v", entries)
	}
}

func TestCleanTempRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(root+"/stale.png", []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(root+"/asset-123", 0o755); err != nil {
		t.Fatal(err)
	}

	if err := CleanTempRoot(root); err != nil {
		t.Fatalf("clean failed: %v", err)
	}
	entries, _ := os.ReadDir(root)
	if len(entries) != 0 {
		t.Errorf("stale entries remain: %v", entries)
	}

	// Idempotent, and creates a missing root.
	if err := CleanTempRoot(root); err != nil {
		t.Fatalf("second clean failed: %v", err)
	}
	if err := CleanTempRoot(root + "/missing"); err != nil {
		t.Fatalf("clean of missing dir failed: %v", err)
	}
}

var _ client.ObjectStore = (*fakeStore)(nil)
var _ client.QueuePublisher = (*fakeQueue)(nil)
var _ client.ImageConverter = (*fakeConverter)(nil)

func containsPair(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}
