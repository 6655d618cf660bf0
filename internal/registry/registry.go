package registry

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/i474232898/radar-archive/internal/radar"
)

//go:embed data
var embedded embed.FS

// BucketSettings describes the object store serving a network's bucket.
type BucketSettings struct {
	Endpoint string `yaml:"endpoint" json:"endpoint,omitempty"`
	Region   string `yaml:"region" json:"region,omitempty"`
}

type networkFile struct {
	Name             string            `yaml:"name"`
	Description      string            `yaml:"description"`
	FileTimeCoverage string            `yaml:"file_time_coverage"`
	FilenamePatterns []string          `yaml:"filename_patterns"`
	Directories      map[string]string `yaml:"directories"`
	S3               *BucketSettings   `yaml:"s3"`
	GCS              *BucketSettings   `yaml:"gcs"`
	Readers          map[string]string `yaml:"readers"`
}

type radarFile struct {
	StartTime string  `yaml:"start_time"`
	EndTime   string  `yaml:"end_time"`
	Longitude float64 `yaml:"longitude"`
	Latitude  float64 `yaml:"latitude"`
}

// NetworkInfo is the full configuration of one network.
type NetworkInfo struct {
	radar.Network
	Description string                            `json:"description,omitempty"`
	Buckets     map[radar.Protocol]BucketSettings `json:"buckets,omitempty"`
}

// Registry is the immutable lookup table of networks and radars.
type Registry struct {
	networks map[string]NetworkInfo
	radars   map[string]map[string]radar.Radar
}

// Default loads the embedded network definitions, overlaid with the YAML
// files found in overlayDir when it is not empty.
func Default(overlayDir string) (*Registry, error) {
	root, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	sources := []fs.FS{root}
	if strings.TrimSpace(overlayDir) != "" {
		sources = append(sources, os.DirFS(overlayDir))
	}
	return Load(sources...)
}

// Load reads "networks/<NAME>.yaml" and "radars/<NAME>/<RADAR>.yaml" from
// every source; later sources override earlier ones.
func Load(sources ...fs.FS) (*Registry, error) {
	r := &Registry{
		networks: make(map[string]NetworkInfo),
		radars:   make(map[string]map[string]radar.Radar),
	}
	for _, src := range sources {
		if err := r.loadNetworks(src); err != nil {
			return nil, err
		}
		if err := r.loadRadars(src); err != nil {
			return nil, err
		}
	}
	for name := range r.radars {
		if _, ok := r.networks[name]; !ok {
			return nil, fmt.Errorf("%w: radars defined for undefined network %s", radar.ErrInvalidValue, name)
		}
	}
	return r, nil
}

func (r *Registry) loadNetworks(src fs.FS) error {
	entries, err := fs.ReadDir(src, "networks")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, ent := range entries {
		if ent.IsDir() || !isYAML(ent.Name()) {
			continue
		}
		p := path.Join("networks", ent.Name())
		b, err := fs.ReadFile(src, p)
		if err != nil {
			return err
		}
		info, err := parseNetwork(b, strings.TrimSuffix(ent.Name(), path.Ext(ent.Name())))
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		r.networks[info.Name] = info
	}
	return nil
}

func (r *Registry) loadRadars(src fs.FS) error {
	nets, err := fs.ReadDir(src, "radars")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, net := range nets {
		if !net.IsDir() {
			continue
		}
		dir := path.Join("radars", net.Name())
		entries, err := fs.ReadDir(src, dir)
		if err != nil {
			return err
		}
		for _, ent := range entries {
			if ent.IsDir() || !isYAML(ent.Name()) {
				continue
			}
			p := path.Join(dir, ent.Name())
			b, err := fs.ReadFile(src, p)
			if err != nil {
				return err
			}
			name := strings.TrimSuffix(ent.Name(), path.Ext(ent.Name()))
			rd, err := parseRadar(b, net.Name(), name)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			if r.radars[net.Name()] == nil {
				r.radars[net.Name()] = make(map[string]radar.Radar)
			}
			r.radars[net.Name()][name] = rd
		}
	}
	return nil
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

func parseNetwork(b []byte, fallbackName string) (NetworkInfo, error) {
	var raw networkFile
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return NetworkInfo{}, err
	}
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		name = fallbackName
	}

	coverage := radar.DefaultFileTimeCoverage
	if raw.FileTimeCoverage != "" {
		d, err := time.ParseDuration(raw.FileTimeCoverage)
		if err != nil || d <= 0 {
			return NetworkInfo{}, fmt.Errorf("%w: file_time_coverage %q", radar.ErrInvalidValue, raw.FileTimeCoverage)
		}
		coverage = d
	}

	dirs := make(map[radar.Protocol]string, len(raw.Directories))
	for k, tmpl := range raw.Directories {
		p, err := radar.CheckProtocol(k)
		if err != nil || p == "" {
			return NetworkInfo{}, fmt.Errorf("%w: directories key %q", radar.ErrInvalidValue, k)
		}
		if _, err := radar.DirectoryGranularity(tmpl); err != nil {
			return NetworkInfo{}, err
		}
		dirs[p] = tmpl
	}

	// Patterns are validated here so a bad file fails at startup.
	if _, err := radar.NewGrammar(name, raw.FilenamePatterns); err != nil {
		return NetworkInfo{}, err
	}

	buckets := make(map[radar.Protocol]BucketSettings)
	if raw.S3 != nil {
		buckets[radar.ProtocolS3] = *raw.S3
	}
	if raw.GCS != nil {
		buckets[radar.ProtocolGCS] = *raw.GCS
	}

	return NetworkInfo{
		Network: radar.Network{
			Name:             name,
			FilenamePatterns: raw.FilenamePatterns,
			Directories:      dirs,
			FileTimeCoverage: coverage,
			Readers:          raw.Readers,
		},
		Description: raw.Description,
		Buckets:     buckets,
	}, nil
}

func parseRadar(b []byte, network, name string) (radar.Radar, error) {
	var raw radarFile
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return radar.Radar{}, err
	}
	start, err := radar.ParseTime(raw.StartTime)
	if err != nil {
		return radar.Radar{}, fmt.Errorf("start_time: %w", err)
	}
	rd := radar.Radar{
		Network:   network,
		Name:      name,
		StartTime: start,
		Longitude: raw.Longitude,
		Latitude:  raw.Latitude,
	}
	if strings.TrimSpace(raw.EndTime) != "" {
		end, err := radar.ParseTime(raw.EndTime)
		if err != nil {
			return radar.Radar{}, fmt.Errorf("end_time: %w", err)
		}
		rd.EndTime = &end
	}
	return rd, nil
}

// Network returns the definition of a network.
func (r *Registry) Network(name string) (radar.Network, error) {
	info, err := r.NetworkInfo(name)
	if err != nil {
		return radar.Network{}, err
	}
	return info.Network, nil
}

// NetworkInfo returns the definition of a network including bucket and
// reader settings.
func (r *Registry) NetworkInfo(name string) (NetworkInfo, error) {
	info, ok := r.networks[name]
	if !ok {
		return NetworkInfo{}, fmt.Errorf("%w: %q; available networks are %v", radar.ErrUnknownNetwork, name, r.AvailableNetworks())
	}
	return info, nil
}

// Networks returns every network sorted by name.
func (r *Registry) Networks() []radar.Network {
	out := make([]radar.Network, 0, len(r.networks))
	for _, name := range r.AvailableNetworks() {
		out = append(out, r.networks[name].Network)
	}
	return out
}

// Radar returns the definition of one radar.
func (r *Registry) Radar(network, name string) (radar.Radar, error) {
	if _, err := r.NetworkInfo(network); err != nil {
		return radar.Radar{}, err
	}
	rd, ok := r.radars[network][name]
	if !ok {
		return radar.Radar{}, fmt.Errorf("%w: %q is not a %s radar", radar.ErrUnknownRadar, name, network)
	}
	return rd, nil
}

// AvailableNetworks returns the sorted network names.
func (r *Registry) AvailableNetworks() []string {
	names := make([]string, 0, len(r.networks))
	for name := range r.networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AvailableRadars returns the sorted radar names of network (every network
// when empty) operating during the optional window.
func (r *Registry) AvailableRadars(network string, start, end *time.Time) ([]string, error) {
	networks := r.AvailableNetworks()
	if network != "" {
		if _, err := r.NetworkInfo(network); err != nil {
			return nil, err
		}
		networks = []string{network}
	}
	seen := make(map[string]bool)
	var names []string
	for _, n := range networks {
		for name, rd := range r.radars[n] {
			if seen[name] || !rd.AvailableBetween(start, end) {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// CheckNetwork returns the canonical network name, matching case-insensitively.
func (r *Registry) CheckNetwork(name string) (string, error) {
	if _, ok := r.networks[name]; ok {
		return name, nil
	}
	for n := range r.networks {
		if strings.EqualFold(n, name) {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: %q; available networks are %v", radar.ErrUnknownNetwork, name, r.AvailableNetworks())
}

// CheckRadar verifies that radar belongs to network.
func (r *Registry) CheckRadar(network, name string) (string, error) {
	network, err := r.CheckNetwork(network)
	if err != nil {
		return "", err
	}
	if _, ok := r.radars[network][name]; !ok {
		names, _ := r.AvailableRadars(network, nil, nil)
		return "", fmt.Errorf("%w: %q; available %s radars are %v", radar.ErrUnknownRadar, name, network, names)
	}
	return name, nil
}

// RadarTimeCoverage returns the operational interval of a radar; a radar
// still operating ends at the current time.
func (r *Registry) RadarTimeCoverage(network, name string) (time.Time, time.Time, error) {
	rd, err := r.Radar(network, name)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, end := rd.Coverage()
	return start, end, nil
}

// RadarLocation returns the longitude and latitude of a radar.
func (r *Registry) RadarLocation(network, name string) (float64, float64, error) {
	rd, err := r.Radar(network, name)
	if err != nil {
		return 0, 0, err
	}
	return rd.Longitude, rd.Latitude, nil
}

// IsRadarAvailable reports whether the radar operated during the window.
// Without a window it is always available.
func (r *Registry) IsRadarAvailable(network, name string, start, end *time.Time) (bool, error) {
	rd, err := r.Radar(network, name)
	if err != nil {
		return false, err
	}
	return rd.AvailableBetween(start, end), nil
}

// FilenamePatterns returns the filename templates of network.
func (r *Registry) FilenamePatterns(network string) ([]string, error) {
	n, err := r.Network(network)
	if err != nil {
		return nil, err
	}
	return n.FilenamePatterns, nil
}

// DirectoryPattern returns the directory template of network for protocol.
func (r *Registry) DirectoryPattern(network string, protocol radar.Protocol) (string, error) {
	n, err := r.Network(network)
	if err != nil {
		return "", err
	}
	tmpl, ok := n.Directories[protocol]
	if !ok {
		return "", fmt.Errorf("%w: network %s has no %s directory layout", radar.ErrNotImplemented, network, protocol)
	}
	return tmpl, nil
}

// BucketRegions maps every bucket reachable over protocol to its region.
func (r *Registry) BucketRegions(protocol radar.Protocol) map[string]string {
	prefix, err := radar.BucketPrefix(protocol)
	if err != nil || prefix == "" {
		return nil
	}
	out := make(map[string]string)
	for _, info := range r.networks {
		tmpl, ok := info.Directories[protocol]
		if !ok || !strings.HasPrefix(tmpl, prefix) {
			continue
		}
		bucket, _, _ := strings.Cut(strings.TrimPrefix(tmpl, prefix), "/")
		if s, ok := info.Buckets[protocol]; ok && s.Region != "" {
			out[bucket] = s.Region
		}
	}
	return out
}
