package download

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/radar-archive/internal/config"
	"github.com/i474232898/radar-archive/internal/radar"
	"github.com/i474232898/radar-archive/internal/registry"
)

const ktlxDir = "s3://noaa-nexrad-level2/1991/06/05/KTLX"

type fakeBucket struct {
	mu        sync.Mutex
	objects   map[string][]byte
	sizeDelta int64
	failing   map[string]bool
	downloads int
}

func (f *fakeBucket) Protocol() radar.Protocol { return radar.ProtocolS3 }

func (f *fakeBucket) List(_ context.Context, dir string) ([]string, error) {
	var out []string
	for url := range f.objects {
		if strings.HasPrefix(url, dir+"/") {
			out = append(out, url)
		}
	}
	return out, nil
}

func (f *fakeBucket) Size(_ context.Context, remote string) (int64, error) {
	b, ok := f.objects[remote]
	if !ok {
		return 0, errors.New("not found")
	}
	return int64(len(b)) + f.sizeDelta, nil
}

func (f *fakeBucket) Download(_ context.Context, remote, local string) (int64, error) {
	f.mu.Lock()
	f.downloads++
	f.mu.Unlock()
	if f.failing[remote] {
		return 0, errors.New("connection reset")
	}
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return 0, err
	}
	b := f.objects[remote]
	return int64(len(b)), os.WriteFile(local, b, 0o644)
}

type countingObserver struct {
	mu     sync.Mutex
	ok     int
	failed int
}

func (o *countingObserver) FileDownloaded(_ string, _ radar.Protocol, _ int64, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.failed++
	} else {
		o.ok++
	}
}

func newBucket() *fakeBucket {
	return &fakeBucket{
		objects: map[string][]byte{
			ktlxDir + "/KTLX19910605_161500.gz": []byte("early"),
			ktlxDir + "/KTLX19910605_162126.gz": []byte("first-volume"),
			ktlxDir + "/KTLX19910605_162630.gz": []byte("second-volume"),
			ktlxDir + "/KTLX19910605_163500.gz": []byte("late"),
		},
		failing: map[string]bool{},
	}
}

func newManager(t *testing.T, bucket *fakeBucket, settings config.Settings, obs Observer) *Manager {
	t.Helper()
	reg, err := registry.Default("")
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	svc, err := radar.NewService(reg, []radar.Filesystem{bucket}, radar.ServiceConfig{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewManager(svc, reg, []radar.Downloader{bucket}, settings, 2, obs)
}

func window(t *testing.T, start, end string) (time.Time, time.Time) {
	t.Helper()
	s, err := radar.ParseTime(start)
	if err != nil {
		t.Fatal(err)
	}
	e, err := radar.ParseTime(end)
	if err != nil {
		t.Fatal(err)
	}
	return s, e
}

func TestDefineLocalFilepath(t *testing.T) {
	reg, err := registry.Default("")
	if err != nil {
		t.Fatal(err)
	}
	n, _ := reg.Network("NEXRAD")
	g, err := radar.NewGrammar(n.Name, n.FilenamePatterns)
	if err != nil {
		t.Fatal(err)
	}
	base := filepath.Join(t.TempDir(), "RADAR")

	got, err := DefineLocalFilepath(n, g, "KTLX", base, "KTLX19910605_162126.gz")
	if err != nil {
		t.Fatalf("DefineLocalFilepath: %v", err)
	}
	want := filepath.Join(base, "NEXRAD", "1991", "06", "05", "16", "KTLX", "KTLX19910605_162126.gz")
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}

	n.Directories = nil
	if got, _ = DefineLocalFilepath(n, g, "KTLX", base, "KTLX19910605_162126.gz"); got != want {
		t.Fatalf("fallback layout: got %s, want %s", got, want)
	}

	if _, err := DefineLocalFilepath(n, g, "KTLX", base, "README.md"); !errors.Is(err, radar.ErrNoPatternMatch) {
		t.Fatalf("expected ErrNoPatternMatch, got %v", err)
	}
}

func TestDownloadFiles(t *testing.T) {
	bucket := newBucket()
	obs := &countingObserver{}
	base := t.TempDir()
	m := newManager(t, bucket, config.Settings{BaseDir: base}, obs)
	start, end := window(t, "1991-06-05T16:20:00", "1991-06-05T16:22:00")

	report, err := m.DownloadFiles(context.Background(), "NEXRAD", "KTLX", start, end, Options{CheckDataIntegrity: true})
	if err != nil {
		t.Fatalf("DownloadFiles: %v", err)
	}
	if report.ID == "" || report.Found != 1 || report.Downloaded != 1 || len(report.Failures) != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.Filepaths) != 1 || !strings.HasSuffix(report.Filepaths[0], "KTLX19910605_162126.gz") {
		t.Fatalf("Filepaths = %v", report.Filepaths)
	}
	b, err := os.ReadFile(report.Filepaths[0])
	if err != nil || string(b) != "first-volume" {
		t.Fatalf("local file content %q, %v", b, err)
	}
	if obs.ok != 1 {
		t.Fatalf("observer ok = %d", obs.ok)
	}

	// Existing files are skipped unless forced.
	report, err = m.DownloadFiles(context.Background(), "NEXRAD", "KTLX", start, end, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Skipped != 1 || report.Downloaded != 0 || bucket.downloads != 1 || len(report.Filepaths) != 1 {
		t.Fatalf("expected skip, got %+v (downloads=%d)", report, bucket.downloads)
	}
	report, err = m.DownloadFiles(context.Background(), "NEXRAD", "KTLX", start, end, Options{ForceDownload: true})
	if err != nil {
		t.Fatal(err)
	}
	if report.Downloaded != 1 || bucket.downloads != 2 {
		t.Fatalf("expected forced download, got %+v", report)
	}
}

func TestDownloadFilesReportsFailures(t *testing.T) {
	bucket := newBucket()
	bucket.failing[ktlxDir+"/KTLX19910605_162630.gz"] = true
	obs := &countingObserver{}
	m := newManager(t, bucket, config.Settings{}, obs)
	start, end := window(t, "1991-06-05T16:20:00", "1991-06-05T16:30:00")

	report, err := m.DownloadFiles(context.Background(), "NEXRAD", "KTLX", start, end, Options{BaseDir: t.TempDir(), NThreads: 4})
	if err != nil {
		t.Fatalf("DownloadFiles: %v", err)
	}
	if report.Found != 2 || report.Downloaded != 1 || len(report.Failures) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Failures[0].Remote != ktlxDir+"/KTLX19910605_162630.gz" {
		t.Fatalf("failure = %+v", report.Failures[0])
	}
	if len(report.Filepaths) != 1 || obs.failed != 1 || obs.ok != 1 {
		t.Fatalf("filepaths=%v observer=%+v", report.Filepaths, obs)
	}
}

func TestDownloadFilesIntegrityCheck(t *testing.T) {
	bucket := newBucket()
	bucket.sizeDelta = 3
	m := newManager(t, bucket, config.Settings{BaseDir: t.TempDir()}, nil)
	start, end := window(t, "1991-06-05T16:20:00", "1991-06-05T16:22:00")

	report, err := m.DownloadFiles(context.Background(), "NEXRAD", "KTLX", start, end, Options{CheckDataIntegrity: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Failures) != 1 || !strings.Contains(report.Failures[0].Error, ErrIntegrity.Error()) {
		t.Fatalf("expected integrity failure, got %+v", report.Failures)
	}
	if len(report.Filepaths) != 0 {
		t.Fatalf("corrupted file kept: %v", report.Filepaths)
	}
	if exists(report.Failures[0].Local) {
		t.Fatal("corrupted file not removed")
	}
}

func TestDownloadFilesArguments(t *testing.T) {
	bucket := newBucket()
	m := newManager(t, bucket, config.Settings{}, nil)
	start, end := window(t, "1991-06-05T16:20:00", "1991-06-05T16:22:00")
	ctx := context.Background()

	if _, err := m.DownloadFiles(ctx, "NEXRAD", "KTLX", start, end, Options{BaseDir: t.TempDir(), Protocol: "local"}); !errors.Is(err, radar.ErrInvalidValue) {
		t.Fatalf("local protocol: expected ErrInvalidValue, got %v", err)
	}
	if _, err := m.DownloadFiles(ctx, "NEXRAD", "KTLX", start, end, Options{BaseDir: t.TempDir(), Protocol: "gcs"}); !errors.Is(err, radar.ErrNotImplemented) {
		t.Fatalf("gcs without downloader: expected ErrNotImplemented, got %v", err)
	}
	if _, err := m.DownloadFiles(ctx, "NEXRAD", "KTLX", start, end, Options{}); !errors.Is(err, radar.ErrInvalidValue) {
		t.Fatalf("missing base dir: expected ErrInvalidValue, got %v", err)
	}
	if _, err := m.DownloadFiles(ctx, "NEXRAD", "KTLX", end, start, Options{BaseDir: t.TempDir()}); !errors.Is(err, radar.ErrInvalidValue) {
		t.Fatalf("reversed window: expected ErrInvalidValue, got %v", err)
	}

	// KTLX has no files on the next day.
	start, end = window(t, "1991-06-06T00:00:00", "1991-06-06T01:00:00")
	report, err := m.DownloadFiles(ctx, "NEXRAD", "KTLX", start, end, Options{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if report.Found != 0 || len(report.Filepaths) != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
}
