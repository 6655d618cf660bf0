package backends

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/i474232898/radar-archive/internal/radar"
)

func TestLocalFSList(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"KABR20230101_000142_V06", "KABR20230101_000600_V06"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	fs := NewLocalFS()
	got, err := fs.List(context.Background(), dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{
		filepath.Join(dir, "KABR20230101_000142_V06"),
		filepath.Join(dir, "KABR20230101_000600_V06"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("List = %v, want %v", got, want)
	}

	got, err = fs.List(context.Background(), filepath.Join(dir, "missing"))
	if err != nil || len(got) != 0 {
		t.Fatalf("missing directory: got %v, %v", got, err)
	}
}

func TestLocalFSDownload(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.gz")
	if err := os.WriteFile(src, []byte("radar"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "a", "b", "dst.gz")

	fs := NewLocalFS()
	n, err := fs.Download(context.Background(), src, dst)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if n != 5 {
		t.Fatalf("copied %d bytes, want 5", n)
	}
	size, err := fs.Size(context.Background(), dst)
	if err != nil || size != 5 {
		t.Fatalf("Size = %d, %v", size, err)
	}

	if _, err := fs.Download(context.Background(), filepath.Join(dir, "nope"), dst); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err       error
		code      string
		retryable bool
	}{
		{errors.New("The specified key does not exist."), CodeObjectNotFound, false},
		{errors.New("Access Denied"), CodePermissionDenied, false},
		{errors.New("dial tcp: lookup nowhere: no such host"), CodeEndpointUnreachable, true},
		{errors.New("context deadline exceeded"), CodeTimeout, true},
		{errors.New("something odd"), CodeBackend, false},
	}
	for _, tt := range tests {
		var e *Error
		if !errors.As(classifyError(tt.err), &e) {
			t.Fatalf("classifyError(%v) is not *Error", tt.err)
		}
		if e.Code != tt.code || e.Retryable != tt.retryable {
			t.Errorf("classifyError(%v) = %s/%v, want %s/%v", tt.err, e.Code, e.Retryable, tt.code, tt.retryable)
		}
	}
	if classifyError(nil) != nil {
		t.Fatal("classifyError(nil) must be nil")
	}
}

func TestDoWithResilienceRetries(t *testing.T) {
	cfg := BackoffConfig{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
	cb := newCircuitBreaker("test-retry")

	calls := 0
	got, err := doWithResilience(context.Background(), cfg, cb, func() (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, wrapError(CodeTimeout, true, errors.New("timeout"))
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Fatalf("got %v after %d calls", got, calls)
	}
}

func TestDoWithResilienceStopsOnPermanentError(t *testing.T) {
	cfg := BackoffConfig{MaxRetries: 5, InitialInterval: time.Millisecond}
	cb := newCircuitBreaker("test-permanent")

	calls := 0
	_, err := doWithResilience(context.Background(), cfg, cb, func() (interface{}, error) {
		calls++
		return nil, wrapError(CodeObjectNotFound, false, errors.New("no such key"))
	})
	if !IsNotFound(err) || calls != 1 {
		t.Fatalf("err = %v after %d calls", err, calls)
	}

	if _, err := doWithResilience(context.Background(), BackoffConfig{}, cb, nil); !errors.Is(err, errInvalidConfig) {
		t.Fatalf("expected invalid config error, got %v", err)
	}
}

func TestBucketSplitURL(t *testing.T) {
	s3, err := NewS3(BucketConfig{})
	if err != nil {
		t.Fatal(err)
	}
	bucket, key, err := s3.SplitURL("s3://noaa-nexrad-level2/2023/07/01/KABR")
	if err != nil || bucket != "noaa-nexrad-level2" || key != "2023/07/01/KABR" {
		t.Fatalf("SplitURL = %q %q %v", bucket, key, err)
	}
	if _, _, err := s3.SplitURL("gs://bucket/key"); err == nil {
		t.Fatal("expected error for foreign scheme")
	}

	gcs, err := NewGCS(BucketConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if gcs.Protocol() != radar.ProtocolGCS {
		t.Fatalf("protocol = %s", gcs.Protocol())
	}
	if _, _, err := gcs.SplitURL("gs://"); err == nil {
		t.Fatal("expected error for missing bucket")
	}
}

// fakeS3 answers ListObjectsV2 requests for a single bucket.
func fakeS3(t *testing.T, bucket string, objects map[string][]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		if !strings.HasPrefix(r.URL.Path, "/"+bucket) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchBucket</Code><Message>The specified bucket does not exist</Message></Error>`)
			return
		}
		prefix := r.URL.Query().Get("prefix")
		var b strings.Builder
		fmt.Fprintf(&b, `<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/"><Name>%s</Name><Prefix>%s</Prefix><MaxKeys>1000</MaxKeys><IsTruncated>false</IsTruncated>`, bucket, prefix)
		for _, name := range objects[prefix] {
			if strings.HasSuffix(name, "/") {
				fmt.Fprintf(&b, `<CommonPrefixes><Prefix>%s%s</Prefix></CommonPrefixes>`, prefix, name)
				continue
			}
			fmt.Fprintf(&b, `<Contents><Key>%s%s</Key><Size>4</Size></Contents>`, prefix, name)
		}
		b.WriteString(`</ListBucketResult>`)
		fmt.Fprint(w, b.String())
	}))
}

func TestBucketFSList(t *testing.T) {
	srv := fakeS3(t, "noaa-nexrad-level2", map[string][]string{
		"2023/07/01/KABR/": {"KABR20230701_120342_V06", "KABR20230701_120342_V06_MDM", "extra/"},
	})
	defer srv.Close()

	fs, err := NewS3(BucketConfig{
		Endpoint: strings.TrimPrefix(srv.URL, "http://"),
		Insecure: true,
		Region:   "us-east-1",
		Backoff:  BackoffConfig{MaxRetries: 0, InitialInterval: time.Millisecond},
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := fs.List(context.Background(), "s3://noaa-nexrad-level2/2023/07/01/KABR")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{
		"s3://noaa-nexrad-level2/2023/07/01/KABR/KABR20230701_120342_V06",
		"s3://noaa-nexrad-level2/2023/07/01/KABR/KABR20230701_120342_V06_MDM",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("List = %v, want %v", got, want)
	}

	got, err = fs.List(context.Background(), "s3://noaa-nexrad-level2/1990/01/01/KABR")
	if err != nil || len(got) != 0 {
		t.Fatalf("empty prefix: %v, %v", got, err)
	}
}
