package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// SyncTarget is one radar kept up to date by the scheduler.
type SyncTarget struct {
	Network string
	Radar   string
}

// Key returns "NETWORK/RADAR".
func (t SyncTarget) Key() string {
	return t.Network + "/" + t.Radar
}

type AppConfig struct {
	Port        string
	HTTPTimeout time.Duration

	// SyncInterval controls how often the latest window is fetched for
	// each target.
	SyncInterval time.Duration
	SyncWindow   time.Duration
	SyncProtocol string
	SyncTargets  []SyncTarget

	// Download workers per request.
	NThreads int

	// Sync ledger retention.
	StoreMaxHistory int           // max number of records per radar (0 = unlimited)
	StoreMaxAge     time.Duration // max age of records (0 = unlimited)

	GeocoderAPIKey string

	// NetworksDir holds extra network/radar YAML overlaid on the embedded ones.
	NetworksDir string

	SettingsPath string
	Settings     Settings
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.GeocoderAPIKey = os.Getenv("GOOGLE_GEOCODER_API_KEY")
	cfg.NetworksDir = os.Getenv("RADAR_NETWORKS_DIR")
	cfg.SyncProtocol = getenvDefault("SYNC_PROTOCOL", "s3")
	cfg.NThreads = getenvInt("N_THREADS", 4)
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 96) // roughly 24h at 15-minute intervals

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.SyncInterval, err = getenvDuration("SYNC_INTERVAL", "15m"); err != nil {
		return nil, err
	}
	if cfg.SyncWindow, err = getenvDuration("SYNC_WINDOW", "1h"); err != nil {
		return nil, err
	}
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	if cfg.SyncTargets, err = ParseSyncTargets(os.Getenv("SYNC_TARGETS")); err != nil {
		return nil, err
	}

	cfg.SettingsPath = SettingsPath()
	if cfg.Settings, err = LoadSettings(cfg.SettingsPath); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseSyncTargets parses "NEXRAD/KABR,FMI/fiika".
func ParseSyncTargets(s string) ([]SyncTarget, error) {
	var targets []SyncTarget
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		network, radar, ok := strings.Cut(item, "/")
		if !ok || network == "" || radar == "" {
			return nil, fmt.Errorf("invalid SYNC_TARGETS entry %q: expected NETWORK/RADAR", item)
		}
		targets = append(targets, SyncTarget{Network: network, Radar: radar})
	}
	return targets, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
