package radar

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// SearchRequest describes one find-files query.
type SearchRequest struct {
	Network string
	Radar   string
	Start   *time.Time
	End     *time.Time

	// Protocol selects the backend. Empty means the local archive.
	Protocol Protocol

	// BaseDir overrides the local archive root. It cannot be combined with a
	// remote protocol.
	BaseDir string

	// IgnoreErrors skips files whose name matches no pattern instead of
	// failing the whole search.
	IgnoreErrors bool
	Verbose      bool
}

// ServiceConfig holds the optional collaborators of a Service.
type ServiceConfig struct {
	// DefaultBaseDir is used for local searches without an explicit BaseDir.
	DefaultBaseDir string
	Observer       Observer
}

// Service orchestrates directory planning, listing, parsing and filtering.
type Service struct {
	catalog     Catalog
	filesystems map[Protocol]Filesystem
	grammars    map[string]*Grammar
	baseDir     string
	observer    Observer
}

// NewService compiles the filename grammar of every catalog network and
// indexes the filesystems by protocol.
func NewService(catalog Catalog, filesystems []Filesystem, cfg ServiceConfig) (*Service, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: nil catalog", ErrInvalidArgument)
	}
	s := &Service{
		catalog:     catalog,
		filesystems: make(map[Protocol]Filesystem, len(filesystems)),
		grammars:    make(map[string]*Grammar),
		baseDir:     cfg.DefaultBaseDir,
		observer:    cfg.Observer,
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	for _, fs := range filesystems {
		s.filesystems[fs.Protocol()] = fs
	}
	for _, n := range catalog.Networks() {
		g, err := NewGrammar(n.Name, n.FilenamePatterns)
		if err != nil {
			return nil, err
		}
		s.grammars[n.Name] = g
	}
	return s, nil
}

// Grammar returns the compiled filename grammar of network.
func (s *Service) Grammar(network string) (*Grammar, error) {
	g, ok := s.grammars[network]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, network)
	}
	return g, nil
}

// FindFiles returns the filepaths of radar files overlapping the request
// window, deduplicated and sorted by start time.
func (s *Service) FindFiles(ctx context.Context, req SearchRequest) ([]string, error) {
	begin := time.Now()
	files, err := s.findFiles(ctx, req)
	s.observer.SearchCompleted(req.Network, req.Protocol, len(files), time.Since(begin), err)
	return files, err
}

func (s *Service) findFiles(ctx context.Context, req SearchRequest) ([]string, error) {
	plan, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	if !plan.radar.AvailableBetween(&plan.start, &plan.end) {
		if req.Verbose {
			log.Printf("INFO: radar %s is not available between %s and %s", plan.radar.Key(), plan.start, plan.end)
		}
		return []string{}, nil
	}

	dirs, err := DirectoryPaths(plan.template, DirectoryValues{
		Radar:   req.Radar,
		Network: req.Network,
		BaseDir: plan.baseDir,
	}, plan.start, plan.end)
	if err != nil {
		return nil, err
	}
	if req.Verbose {
		log.Printf("INFO: searching %d %s directories for %s", len(dirs), plan.protocol, plan.radar.Key())
	}

	candidates, err := s.list(ctx, plan.fs, dirs, req.Verbose)
	if err != nil {
		return nil, err
	}

	filter := TimeFilter{Start: &plan.start, End: &plan.end, Fallback: plan.network.Coverage()}
	matches, err := FilterFilepaths(plan.grammar, candidates, filter, req.IgnoreErrors, req.Verbose)
	if err != nil {
		return nil, err
	}
	if req.Verbose {
		log.Printf("INFO: found %d files for %s between %s and %s", len(matches), plan.radar.Key(), plan.start, plan.end)
	}
	return matches, nil
}

// FindFilesDaily splits the window into calendar-day blocks, searches every
// block and merges the results.
func (s *Service) FindFilesDaily(ctx context.Context, req SearchRequest) ([]string, error) {
	if req.Start == nil || req.End == nil {
		return nil, fmt.Errorf("%w: start and end times are required", ErrInvalidArgument)
	}
	start, end, err := CheckStartEndTime(*req.Start, *req.End)
	if err != nil {
		return nil, err
	}
	grammar, err := s.Grammar(req.Network)
	if err != nil {
		return nil, err
	}

	now := CurrentUTCTime()
	seen := make(map[string]bool)
	var merged []string
	for _, block := range DailyBlocks(start, end) {
		if block.Start.After(now) {
			break
		}
		blockReq := req
		blockReq.Start, blockReq.End = &block.Start, &block.End
		files, err := s.FindFiles(ctx, blockReq)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if !seen[f] {
				seen[f] = true
				merged = append(merged, f)
			}
		}
	}
	return sortByStartTime(grammar, merged, req.IgnoreErrors)
}

// InfoFromFilepath parses one filepath with the grammar of network.
func (s *Service) InfoFromFilepath(network, filepath string, ignoreErrors bool) (Info, error) {
	g, err := s.Grammar(network)
	if err != nil {
		return Info{}, err
	}
	return g.ParseFilepath(filepath, ignoreErrors)
}

// InfoFromFilepaths parses every filepath; with ignoreErrors unmatched names
// map to an empty Info.
func (s *Service) InfoFromFilepaths(network string, filepaths []string, ignoreErrors bool) (map[string]Info, error) {
	g, err := s.Grammar(network)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Info, len(filepaths))
	for _, fp := range filepaths {
		info, err := g.ParseFilepath(fp, ignoreErrors)
		if err != nil {
			return nil, err
		}
		out[fp] = info
	}
	return out, nil
}

// GroupFilepaths partitions filepaths by the given keys.
func (s *Service) GroupFilepaths(network string, filepaths []string, groups ...string) (Grouping, error) {
	g, err := s.Grammar(network)
	if err != nil {
		return Grouping{}, err
	}
	return g.Group(filepaths, groups...)
}

// DirectoryPaths exposes the directories a search would list.
func (s *Service) DirectoryPaths(req SearchRequest) ([]string, error) {
	plan, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	return DirectoryPaths(plan.template, DirectoryValues{
		Radar:   req.Radar,
		Network: req.Network,
		BaseDir: plan.baseDir,
	}, plan.start, plan.end)
}

type searchPlan struct {
	network  Network
	radar    Radar
	grammar  *Grammar
	protocol Protocol
	template string
	baseDir  string
	fs       Filesystem
	start    time.Time
	end      time.Time
}

func (s *Service) prepare(req SearchRequest) (searchPlan, error) {
	var plan searchPlan
	if strings.TrimSpace(req.Network) == "" || strings.TrimSpace(req.Radar) == "" {
		return plan, fmt.Errorf("%w: network and radar are required", ErrInvalidArgument)
	}
	if req.Start == nil || req.End == nil {
		return plan, fmt.Errorf("%w: start and end times are required", ErrInvalidArgument)
	}
	protocol := req.Protocol
	if protocol == "" {
		protocol = ProtocolFile
	}
	if req.BaseDir != "" && protocol.IsRemote() {
		return plan, fmt.Errorf("%w: base_dir cannot be specified with the %s protocol", ErrInvalidValue, protocol)
	}

	start, end, err := CheckStartEndTime(*req.Start, *req.End)
	if err != nil {
		return plan, err
	}
	network, err := s.catalog.Network(req.Network)
	if err != nil {
		return plan, err
	}
	radar, err := s.catalog.Radar(req.Network, req.Radar)
	if err != nil {
		return plan, err
	}
	grammar, err := s.Grammar(req.Network)
	if err != nil {
		return plan, err
	}
	template, ok := network.Directories[protocol]
	if !ok {
		return plan, fmt.Errorf("%w: network %s has no %s directory layout", ErrNotImplemented, network.Name, protocol)
	}
	fs, ok := s.filesystems[protocol]
	if !ok {
		return plan, fmt.Errorf("%w: no %s filesystem configured", ErrNotImplemented, protocol)
	}

	var baseDir string
	if protocol == ProtocolFile {
		baseDir = req.BaseDir
		if baseDir == "" {
			baseDir = s.baseDir
		}
		if baseDir, err = CheckBaseDir(baseDir); err != nil {
			return plan, err
		}
	}

	return searchPlan{
		network:  network,
		radar:    radar,
		grammar:  grammar,
		protocol: protocol,
		template: template,
		baseDir:  baseDir,
		fs:       fs,
		start:    start,
		end:      end,
	}, nil
}

func (s *Service) list(ctx context.Context, fs Filesystem, dirs []string, verbose bool) ([]string, error) {
	var out []string
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := fs.List(ctx, dir)
		s.observer.DirectoryListed(fs.Protocol(), len(entries), err)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", dir, err)
		}
		if verbose {
			log.Printf("DEBUG: %s: %d entries", dir, len(entries))
		}
		out = append(out, entries...)
	}
	return out, nil
}

// FilterFilepaths parses every filepath, keeps those accepted by filter,
// drops duplicates and sorts the result by start time. Unparsable names fail
// the call unless ignoreErrors is set.
func FilterFilepaths(g *Grammar, filepaths []string, filter TimeFilter, ignoreErrors, verbose bool) ([]string, error) {
	type entry struct {
		path  string
		start time.Time
	}
	seen := make(map[string]bool, len(filepaths))
	entries := make([]entry, 0, len(filepaths))
	for _, fp := range filepaths {
		if seen[fp] {
			continue
		}
		seen[fp] = true

		info, err := g.ParseFilepath(fp, ignoreErrors)
		if err != nil {
			return nil, err
		}
		if info.IsZero() {
			if verbose {
				log.Printf("WARN: skipping unrecognized file %s", fp)
			}
			continue
		}
		if !filter.Accept(info) {
			continue
		}
		entries = append(entries, entry{path: fp, start: info.StartTime})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].start.Equal(entries[j].start) {
			return entries[i].path < entries[j].path
		}
		return entries[i].start.Before(entries[j].start)
	})
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.path
	}
	return out, nil
}

func sortByStartTime(g *Grammar, filepaths []string, ignoreErrors bool) ([]string, error) {
	return FilterFilepaths(g, filepaths, TimeFilter{}, ignoreErrors, false)
}
