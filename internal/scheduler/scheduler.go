package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/i474232898/radar-archive/internal/config"
	"github.com/i474232898/radar-archive/internal/download"
	"github.com/i474232898/radar-archive/internal/radar"
	"github.com/i474232898/radar-archive/internal/store"
)

// Downloader fetches a time window of one radar into the local archive.
type Downloader interface {
	DownloadFiles(ctx context.Context, network, radarName string, start, end time.Time, opts download.Options) (download.Report, error)
}

// Ledger records the outcome of every sync run.
type Ledger interface {
	SaveRecord(rec store.SyncRecord)
}

// Options configure the periodic sync.
type Options struct {
	Interval time.Duration
	Window   time.Duration
	Protocol string
	NThreads int
	// Timeout bounds a single target run.
	Timeout time.Duration
}

// Scheduler periodically downloads the most recent window for configured radars.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	downloader Downloader
	ledger     Ledger
	targets    []config.SyncTarget
	opts       Options
	now        func() time.Time
}

// New creates a new Scheduler.
func New(targets []config.SyncTarget, opts Options, downloader Downloader, ledger Ledger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	if opts.Window <= 0 {
		opts.Window = time.Hour
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	return &Scheduler{
		scheduler:  s,
		downloader: downloader,
		ledger:     ledger,
		targets:    targets,
		opts:       opts,
		now:        radar.CurrentUTCTime,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.targets) == 0 {
		log.Println("scheduler: no sync targets configured; nothing to schedule")
		return nil
	}

	minutes := int(s.opts.Interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce syncs every target concurrently and waits for completion.
func (s *Scheduler) RunOnce(ctx context.Context) {
	log.Println("scheduler: running radar sync job")

	end := s.now()
	start := end.Add(-s.opts.Window)

	var wg sync.WaitGroup
	for _, target := range s.targets {
		target := target
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
			defer cancel()

			rec := s.syncTarget(ctx, target, start, end)
			s.ledger.SaveRecord(rec)
			if !rec.OK() {
				log.Printf("scheduler: sync failed for %s: %v", target.Key(), rec.Errors)
			}
		}()
	}
	wg.Wait()
	log.Println("scheduler: completed radar sync job")
}

func (s *Scheduler) syncTarget(ctx context.Context, target config.SyncTarget, start, end time.Time) store.SyncRecord {
	rec := store.SyncRecord{
		RunID:       uuid.NewString(),
		Network:     target.Network,
		Radar:       target.Radar,
		Protocol:    s.opts.Protocol,
		WindowStart: start,
		WindowEnd:   end,
		StartedAt:   time.Now().UTC(),
	}
	report, err := s.downloader.DownloadFiles(ctx, target.Network, target.Radar, start, end, download.Options{
		Protocol: s.opts.Protocol,
		NThreads: s.opts.NThreads,
	})
	rec.FinishedAt = time.Now().UTC()
	if report.ID != "" {
		rec.RunID = report.ID
	}
	rec.FilesFound = report.Found
	rec.FilesDownloaded = report.Downloaded
	rec.FilesSkipped = report.Skipped
	if err != nil {
		rec.Errors = append(rec.Errors, err.Error())
	}
	for _, f := range report.Failures {
		rec.Errors = append(rec.Errors, f.Remote+": "+f.Error)
	}
	return rec
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
