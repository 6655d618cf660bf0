package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/radar-archive/internal/radar"
)

// Collector bundles the Prometheus metrics of searches, directory listings
// and downloads. It implements radar.Observer and download.Observer.
type Collector struct {
	gatherer prometheus.Gatherer

	Searches        *prometheus.CounterVec
	SearchDurations *prometheus.HistogramVec
	SearchFiles     *prometheus.CounterVec
	Listings        *prometheus.CounterVec
	ListedEntries   *prometheus.CounterVec
	Downloads       *prometheus.CounterVec
	DownloadBytes   *prometheus.CounterVec
}

// New registers the collectors against reg, defaulting to the global
// Prometheus registry when nil.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	c := &Collector{gatherer: gatherer}

	var err error
	if c.Searches, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_searches_total",
		Help: "Total number of file searches, labeled by network, protocol and result.",
	}, []string{"network", "protocol", "result"}), "radar_searches_total"); err != nil {
		return nil, err
	}
	if c.SearchDurations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "radar_search_duration_seconds",
		Help:    "File search latency in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"network", "protocol"}), "radar_search_duration_seconds"); err != nil {
		return nil, err
	}
	if c.SearchFiles, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_search_files_total",
		Help: "Total number of files returned by searches.",
	}, []string{"network"}), "radar_search_files_total"); err != nil {
		return nil, err
	}
	if c.Listings, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_directory_listings_total",
		Help: "Total number of directory listings, labeled by protocol and result.",
	}, []string{"protocol", "result"}), "radar_directory_listings_total"); err != nil {
		return nil, err
	}
	if c.ListedEntries, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_listed_entries_total",
		Help: "Total number of entries returned by directory listings.",
	}, []string{"protocol"}), "radar_listed_entries_total"); err != nil {
		return nil, err
	}
	if c.Downloads, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_downloads_total",
		Help: "Total number of file downloads, labeled by network, protocol and result.",
	}, []string{"network", "protocol", "result"}), "radar_downloads_total"); err != nil {
		return nil, err
	}
	if c.DownloadBytes, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_download_bytes_total",
		Help: "Total number of bytes written by downloads.",
	}, []string{"network", "protocol"}), "radar_download_bytes_total"); err != nil {
		return nil, err
	}
	return c, nil
}

// SearchCompleted records one FindFiles call.
func (c *Collector) SearchCompleted(network string, protocol radar.Protocol, files int, elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	p := protocolLabel(protocol)
	c.Searches.WithLabelValues(network, p, result(err)).Inc()
	c.SearchDurations.WithLabelValues(network, p).Observe(elapsed.Seconds())
	if err == nil {
		c.SearchFiles.WithLabelValues(network).Add(float64(files))
	}
}

// DirectoryListed records one directory listing.
func (c *Collector) DirectoryListed(protocol radar.Protocol, entries int, err error) {
	if c == nil {
		return
	}
	p := protocolLabel(protocol)
	c.Listings.WithLabelValues(p, result(err)).Inc()
	c.ListedEntries.WithLabelValues(p).Add(float64(entries))
}

// FileDownloaded records one download attempt.
func (c *Collector) FileDownloaded(network string, protocol radar.Protocol, bytes int64, err error) {
	if c == nil {
		return
	}
	p := protocolLabel(protocol)
	c.Downloads.WithLabelValues(network, p, result(err)).Inc()
	if err == nil && bytes > 0 {
		c.DownloadBytes.WithLabelValues(network, p).Add(float64(bytes))
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func protocolLabel(p radar.Protocol) string {
	if p == "" {
		return string(radar.ProtocolFile)
	}
	return string(p)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return c, nil
}
