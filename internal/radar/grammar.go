package radar

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// Vocabulary of keys a filename pattern may capture.
const (
	KeyStartTime        = "start_time"
	KeyEndTime          = "end_time"
	KeyRadarAcronym     = "radar_acronym"
	KeyVolumeIdentifier = "volume_identifier"
	KeyVersion          = "version"
	KeyExtension        = "extension"
)

// FileKeys are the string attributes of a parsed filename.
var FileKeys = []string{KeyRadarAcronym, KeyVolumeIdentifier, KeyVersion, KeyExtension}

var infoKeys = map[string]bool{
	KeyStartTime:        true,
	KeyEndTime:          true,
	KeyRadarAcronym:     true,
	KeyVolumeIdentifier: true,
	KeyVersion:          true,
	KeyExtension:        true,
}

var placeholderRe = regexp.MustCompile(`\{([a-z_]+)(?::([^{}]*))?\}`)

// Pattern is one compiled filename template such as
// "{radar_acronym:4s}{start_time:%Y%m%d_%H%M%S}_V{version:2d}".
//
// Placeholder specs: "" or "s" any text (shortest match), "Ns" exactly N
// characters, "d" digits, "Nd" exactly N digits, "w" letters and digits,
// and strftime formats (%Y %y %m %d %j %H %M %S) for the time keys.
type Pattern struct {
	template string
	re       *regexp.Regexp
	times    map[string]*timeLayout
}

// CompilePattern validates and compiles a filename template.
func CompilePattern(template string) (*Pattern, error) {
	p := &Pattern{template: template, times: map[string]*timeLayout{}}
	seen := map[string]bool{}

	var expr strings.Builder
	expr.WriteString("^")
	last := 0
	for _, loc := range placeholderRe.FindAllStringSubmatchIndex(template, -1) {
		expr.WriteString(regexp.QuoteMeta(template[last:loc[0]]))
		last = loc[1]

		name := template[loc[2]:loc[3]]
		verb := ""
		if loc[4] >= 0 {
			verb = template[loc[4]:loc[5]]
		}
		if !infoKeys[name] {
			return nil, fmt.Errorf("%w: pattern %q uses unknown key %q", ErrInvalidValue, template, name)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: pattern %q repeats key %q", ErrInvalidValue, template, name)
		}
		seen[name] = true

		frag, err := p.fragment(name, verb)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", template, err)
		}
		expr.WriteString("(?P<" + name + ">" + frag + ")")
	}
	expr.WriteString(regexp.QuoteMeta(template[last:]))
	expr.WriteString("$")

	if !seen[KeyStartTime] {
		return nil, fmt.Errorf("%w: pattern %q has no %s", ErrInvalidValue, template, KeyStartTime)
	}
	re, err := regexp.Compile(expr.String())
	if err != nil {
		return nil, fmt.Errorf("%w: pattern %q: %v", ErrInvalidValue, template, err)
	}
	p.re = re
	return p, nil
}

func (p *Pattern) fragment(name, verb string) (string, error) {
	if strings.Contains(verb, "%") {
		if name != KeyStartTime && name != KeyEndTime {
			return "", fmt.Errorf("%w: time format on non-time key %q", ErrInvalidValue, name)
		}
		layout, err := compileTimeLayout(verb)
		if err != nil {
			return "", err
		}
		p.times[name] = layout
		return layout.fragment, nil
	}
	if name == KeyStartTime || name == KeyEndTime {
		return "", fmt.Errorf("%w: key %q requires a time format", ErrInvalidValue, name)
	}
	switch {
	case verb == "" || verb == "s":
		return `.+?`, nil
	case verb == "d":
		return `\d+`, nil
	case verb == "w":
		return `[A-Za-z0-9]+`, nil
	}
	width, err := strconv.Atoi(verb[:len(verb)-1])
	if err != nil || width <= 0 {
		return "", fmt.Errorf("%w: bad placeholder verb %q", ErrInvalidValue, verb)
	}
	switch verb[len(verb)-1] {
	case 's':
		return fmt.Sprintf(`.{%d}`, width), nil
	case 'd':
		return fmt.Sprintf(`\d{%d}`, width), nil
	}
	return "", fmt.Errorf("%w: bad placeholder verb %q", ErrInvalidValue, verb)
}

// String returns the source template.
func (p *Pattern) String() string { return p.template }

// Match parses filename; ok is false when the structure does not match.
func (p *Pattern) Match(filename string) (Info, bool) {
	m := p.re.FindStringSubmatch(filename)
	if m == nil {
		return Info{}, false
	}
	var info Info
	for i, name := range p.re.SubexpNames() {
		if name == "" {
			continue
		}
		value := m[i]
		switch name {
		case KeyStartTime:
			t, err := p.times[name].parse(value)
			if err != nil {
				return Info{}, false
			}
			info.StartTime = t
		case KeyEndTime:
			t, err := p.times[name].parse(value)
			if err != nil {
				return Info{}, false
			}
			info.EndTime = &t
		case KeyRadarAcronym:
			info.RadarAcronym = value
		case KeyVolumeIdentifier:
			info.VolumeIdentifier = value
		case KeyVersion:
			info.Version = normalizeVersion(value)
		case KeyExtension:
			info.Extension = value
		}
	}
	return info, true
}

// normalizeVersion strips format markers and leading zeros: "V06" -> "6".
func normalizeVersion(s string) string {
	s = strings.TrimLeft(s, "Vv_.")
	n, err := strconv.Atoi(s)
	if err != nil {
		return ""
	}
	return strconv.Itoa(n)
}

// Grammar is the ordered pattern list of one network.
type Grammar struct {
	network  string
	patterns []*Pattern
}

// NewGrammar compiles the filename patterns of a network.
func NewGrammar(network string, templates []string) (*Grammar, error) {
	if len(templates) == 0 {
		return nil, fmt.Errorf("%w: network %q has no filename patterns", ErrInvalidValue, network)
	}
	g := &Grammar{network: network}
	for _, tmpl := range templates {
		p, err := CompilePattern(tmpl)
		if err != nil {
			return nil, fmt.Errorf("network %s: %w", network, err)
		}
		g.patterns = append(g.patterns, p)
	}
	return g, nil
}

// ParseFilename extracts the attributes of a bare filename. When no pattern
// matches, it returns ErrNoPatternMatch unless ignoreErrors is set, in which
// case the empty Info is returned.
func (g *Grammar) ParseFilename(filename string, ignoreErrors bool) (Info, error) {
	if filename == "" {
		return Info{}, fmt.Errorf("%w: empty filename", ErrInvalidArgument)
	}
	for _, p := range g.patterns {
		if info, ok := p.Match(filename); ok {
			return info, nil
		}
	}
	if ignoreErrors {
		return Info{}, nil
	}
	return Info{}, fmt.Errorf("%w: %q (network %s)", ErrNoPatternMatch, filename, g.network)
}

// ParseFilepath parses the last element of a local path or bucket URL.
func (g *Grammar) ParseFilepath(filepath string, ignoreErrors bool) (Info, error) {
	if filepath == "" {
		return Info{}, fmt.Errorf("%w: empty filepath", ErrInvalidArgument)
	}
	return g.ParseFilename(baseName(filepath), ignoreErrors)
}

// baseName handles both "/" and "\" separated paths as well as URLs.
func baseName(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	return path.Base(p)
}
