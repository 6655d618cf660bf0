package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/i474232898/radar-archive/internal/config"
	"github.com/i474232898/radar-archive/internal/download"
	"github.com/i474232898/radar-archive/internal/metrics"
	"github.com/i474232898/radar-archive/internal/radar"
	"github.com/i474232898/radar-archive/internal/radar/backends"
	"github.com/i474232898/radar-archive/internal/registry"
)

// Components are the long-lived services shared by the server and the CLI.
type Components struct {
	Registry  *registry.Registry
	Search    *radar.Service
	Downloads *download.Manager
	Metrics   *metrics.Collector
}

// Build loads the network registry and wires backends, search and downloads.
// Metrics are registered against reg, the global registry when nil.
func Build(cfg *config.AppConfig, reg prometheus.Registerer) (*Components, error) {
	networks, err := registry.Default(cfg.NetworksDir)
	if err != nil {
		return nil, err
	}

	collector, err := metrics.New(reg)
	if err != nil {
		return nil, err
	}

	// Shared transport for outbound bucket calls.
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ResponseHeaderTimeout: cfg.HTTPTimeout,
		MaxIdleConnsPerHost:   cfg.NThreads,
	}

	s3, err := backends.NewS3(backends.BucketConfig{
		BucketRegions: networks.BucketRegions(radar.ProtocolS3),
		Region:        "us-east-1",
		Transport:     transport,
	})
	if err != nil {
		return nil, err
	}
	gcs, err := backends.NewGCS(backends.BucketConfig{
		BucketRegions: networks.BucketRegions(radar.ProtocolGCS),
		Transport:     transport,
	})
	if err != nil {
		return nil, err
	}
	local := backends.NewLocalFS()

	search, err := radar.NewService(networks, []radar.Filesystem{local, s3, gcs}, radar.ServiceConfig{
		DefaultBaseDir: cfg.Settings.BaseDir,
		Observer:       collector,
	})
	if err != nil {
		return nil, err
	}

	downloads := download.NewManager(search, networks, []radar.Downloader{s3, gcs}, cfg.Settings, cfg.NThreads, collector)

	return &Components{
		Registry:  networks,
		Search:    search,
		Downloads: downloads,
		Metrics:   collector,
	}, nil
}
