package download

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/radar-archive/internal/config"
	"github.com/i474232898/radar-archive/internal/radar"
)

// LocalLayout is the archive layout used when a network defines no file
// directory template.
const LocalLayout = "{base_dir}/{network}/{time:%Y}/{time:%m}/{time:%d}/{time:%H}/{radar}"

// ErrIntegrity marks a local file whose size differs from the remote object.
var ErrIntegrity = errors.New("local file size does not match remote object")

// Searcher resolves the remote filepaths of a request.
type Searcher interface {
	FindFilesDaily(ctx context.Context, req radar.SearchRequest) ([]string, error)
	Grammar(network string) (*radar.Grammar, error)
}

// Observer receives one call per attempted file.
type Observer interface {
	FileDownloaded(network string, protocol radar.Protocol, bytes int64, err error)
}

type nopObserver struct{}

func (nopObserver) FileDownloaded(string, radar.Protocol, int64, error) {}

// Options tune a DownloadFiles call.
type Options struct {
	// Protocol is s3 or gcs. Empty means s3.
	Protocol string
	// BaseDir overrides the configured archive root.
	BaseDir            string
	NThreads           int
	ForceDownload      bool
	CheckDataIntegrity bool
	Progress           bool
	Verbose            bool
}

// Failure describes a file that could not be fetched or verified.
type Failure struct {
	Remote string `json:"remote"`
	Local  string `json:"local"`
	Error  string `json:"error"`
}

// Report summarizes one DownloadFiles call.
type Report struct {
	ID         string    `json:"id"`
	Network    string    `json:"network"`
	Radar      string    `json:"radar"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Found      int       `json:"found"`
	Downloaded int       `json:"downloaded"`
	Skipped    int       `json:"skipped"`
	Bytes      int64     `json:"bytes"`
	// Filepaths lists the local files present once the call returns.
	Filepaths []string  `json:"filepaths"`
	Failures  []Failure `json:"failures,omitempty"`
}

// Manager downloads radar archives from cloud buckets into a local tree.
type Manager struct {
	searcher    Searcher
	catalog     radar.Catalog
	downloaders map[radar.Protocol]radar.Downloader
	settings    config.Settings
	nThreads    int
	observer    Observer
}

// NewManager creates a Manager. nThreads is the default worker count.
func NewManager(searcher Searcher, catalog radar.Catalog, downloaders []radar.Downloader, settings config.Settings, nThreads int, observer Observer) *Manager {
	if observer == nil {
		observer = nopObserver{}
	}
	if nThreads <= 0 {
		nThreads = 4
	}
	m := &Manager{
		searcher:    searcher,
		catalog:     catalog,
		downloaders: make(map[radar.Protocol]radar.Downloader, len(downloaders)),
		settings:    settings,
		nThreads:    nThreads,
		observer:    observer,
	}
	for _, d := range downloaders {
		m.downloaders[d.Protocol()] = d
	}
	return m
}

// DefineLocalFilepath returns where filename is stored in the local archive
// rooted at baseDir.
func DefineLocalFilepath(n radar.Network, g *radar.Grammar, radarName, baseDir, filename string) (string, error) {
	info, err := g.ParseFilename(filename, false)
	if err != nil {
		return "", err
	}
	layout, ok := n.Directories[radar.ProtocolFile]
	if !ok {
		layout = LocalLayout
	}
	dir := radar.RenderDirectory(layout, radar.DirectoryValues{
		Radar:   radarName,
		Network: n.Name,
		BaseDir: baseDir,
		Time:    info.StartTime,
	})
	return filepath.Join(filepath.FromSlash(dir), filename), nil
}

type job struct {
	remote string
	local  string
	fetch  bool
}

// DownloadFiles fetches every file of radar overlapping [start, end] into
// the local archive. Individual file failures are reported, not returned.
func (m *Manager) DownloadFiles(ctx context.Context, network, radarName string, start, end time.Time, opts Options) (Report, error) {
	report := Report{ID: uuid.NewString(), Network: network, Radar: radarName, Filepaths: []string{}}

	protocolName := opts.Protocol
	if protocolName == "" {
		protocolName = string(radar.ProtocolS3)
	}
	protocol, err := radar.CheckDownloadProtocol(protocolName)
	if err != nil {
		return report, err
	}
	downloader, ok := m.downloaders[protocol]
	if !ok {
		return report, fmt.Errorf("%w: no %s downloader configured", radar.ErrNotImplemented, protocol)
	}
	baseDir, err := m.settings.ResolveBaseDir(opts.BaseDir)
	if err != nil {
		return report, err
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return report, fmt.Errorf("create base directory: %w", err)
	}
	if baseDir, err = radar.CheckBaseDir(baseDir); err != nil {
		return report, err
	}
	start, end, err = radar.CheckStartEndTime(start, end)
	if err != nil {
		return report, err
	}
	report.Start, report.End = start, end

	n, err := m.catalog.Network(network)
	if err != nil {
		return report, err
	}
	grammar, err := m.searcher.Grammar(network)
	if err != nil {
		return report, err
	}

	remotes, err := m.searcher.FindFilesDaily(ctx, radar.SearchRequest{
		Network:  network,
		Radar:    radarName,
		Start:    &start,
		End:      &end,
		Protocol: protocol,
		Verbose:  opts.Verbose,
	})
	if err != nil {
		return report, err
	}
	report.Found = len(remotes)
	if len(remotes) == 0 {
		if opts.Verbose {
			log.Printf("INFO: no %s files available for %s/%s between %s and %s", protocol, network, radarName, start, end)
		}
		return report, nil
	}

	jobs := make([]job, 0, len(remotes))
	for _, remote := range remotes {
		local, err := DefineLocalFilepath(n, grammar, radarName, baseDir, filepath.Base(remote))
		if err != nil {
			return report, err
		}
		fetch := opts.ForceDownload || !exists(local)
		if !fetch {
			report.Skipped++
		}
		jobs = append(jobs, job{remote: remote, local: local, fetch: fetch})
	}
	if opts.Verbose && report.Skipped > 0 {
		log.Printf("INFO: %d of %d files already present in %s", report.Skipped, len(jobs), baseDir)
	}

	limit := opts.NThreads
	if limit <= 0 {
		limit = m.nThreads
	}

	var (
		mu     sync.Mutex
		done   int
		failed = make(map[string]bool)
	)
	fail := func(j job, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed[j.local] = true
		report.Failures = append(report.Failures, Failure{Remote: j.remote, Local: j.local, Error: err.Error()})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, j := range jobs {
		if !j.fetch && !opts.CheckDataIntegrity {
			continue
		}
		j := j
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if j.fetch {
				written, err := downloader.Download(gctx, j.remote, j.local)
				m.observer.FileDownloaded(network, protocol, written, err)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					log.Printf("ERROR: download %s: %v", j.remote, err)
					fail(j, err)
					return nil
				}
				mu.Lock()
				report.Downloaded++
				report.Bytes += written
				done++
				if opts.Progress {
					log.Printf("INFO: [%s] downloaded %d/%d %s", report.ID[:8], done, len(jobs)-report.Skipped, filepath.Base(j.local))
				}
				mu.Unlock()
			}
			if opts.CheckDataIntegrity {
				if err := verify(gctx, downloader, j); err != nil {
					log.Printf("WARN: %s: %v", j.local, err)
					os.Remove(j.local)
					fail(j, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	for _, j := range jobs {
		if !failed[j.local] {
			report.Filepaths = append(report.Filepaths, j.local)
		}
	}
	sort.Slice(report.Failures, func(a, b int) bool { return report.Failures[a].Remote < report.Failures[b].Remote })

	if opts.Verbose {
		log.Printf("INFO: %s/%s: %d found, %d downloaded, %d skipped, %d failed",
			network, radarName, report.Found, report.Downloaded, report.Skipped, len(report.Failures))
	}
	return report, nil
}

func verify(ctx context.Context, d radar.Downloader, j job) error {
	remoteSize, err := d.Size(ctx, j.remote)
	if err != nil {
		return fmt.Errorf("stat %s: %w", j.remote, err)
	}
	st, err := os.Stat(j.local)
	if err != nil {
		return err
	}
	if st.Size() != remoteSize {
		return fmt.Errorf("%w: %d bytes, expected %d", ErrIntegrity, st.Size(), remoteSize)
	}
	return nil
}

func exists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
