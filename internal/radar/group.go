package radar

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CheckGroups validates group keys against FileKeys and TimeKeys.
func CheckGroups(groups []string) ([]string, error) {
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: no group keys", ErrInvalidArgument)
	}
	var invalid []string
	for _, g := range groups {
		if !isGroupKey(g) {
			invalid = append(invalid, g)
		}
	}
	if len(invalid) > 0 {
		valid := append(append([]string{}, FileKeys...), TimeKeys...)
		return nil, fmt.Errorf("%w: invalid group keys %v; valid keys are %v", ErrInvalidValue, invalid, valid)
	}
	return groups, nil
}

func isGroupKey(k string) bool {
	if timeKeySet[k] {
		return true
	}
	for _, f := range FileKeys {
		if f == k {
			return true
		}
	}
	return false
}

// Extract projects key out of every filepath, preserving order.
func (g *Grammar) Extract(key string, filepaths ...string) ([]any, error) {
	out := make([]any, 0, len(filepaths))
	for _, fp := range filepaths {
		info, err := g.ParseFilepath(fp, false)
		if err != nil {
			return nil, err
		}
		v, err := info.Get(key)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// StartTimes returns the start time of every filepath.
func (g *Grammar) StartTimes(filepaths ...string) ([]time.Time, error) {
	out := make([]time.Time, 0, len(filepaths))
	for _, fp := range filepaths {
		info, err := g.ParseFilepath(fp, false)
		if err != nil {
			return nil, err
		}
		out = append(out, info.StartTime)
	}
	return out, nil
}

// EndTimes returns the end time of every filepath; nil entries are unknown.
func (g *Grammar) EndTimes(filepaths ...string) ([]*time.Time, error) {
	out := make([]*time.Time, 0, len(filepaths))
	for _, fp := range filepaths {
		info, err := g.ParseFilepath(fp, false)
		if err != nil {
			return nil, err
		}
		out = append(out, info.EndTime)
	}
	return out, nil
}

// StartEndTimes returns the start and end time of every filepath.
func (g *Grammar) StartEndTimes(filepaths ...string) ([]time.Time, []*time.Time, error) {
	starts := make([]time.Time, 0, len(filepaths))
	ends := make([]*time.Time, 0, len(filepaths))
	for _, fp := range filepaths {
		info, err := g.ParseFilepath(fp, false)
		if err != nil {
			return nil, nil, err
		}
		starts = append(starts, info.StartTime)
		ends = append(ends, info.EndTime)
	}
	return starts, ends, nil
}

// Versions returns the numeric version of every filepath; ok[i] is false
// when the filename carries none.
func (g *Grammar) Versions(filepaths ...string) (versions []int, ok []bool, err error) {
	for _, fp := range filepaths {
		info, err := g.ParseFilepath(fp, false)
		if err != nil {
			return nil, nil, err
		}
		v, has := info.VersionNumber()
		versions = append(versions, v)
		ok = append(ok, has)
	}
	return versions, ok, nil
}

// Grouping is the result of Group. Without group keys it carries the input
// sequence unchanged in Files and encodes to JSON as that list; otherwise it
// encodes as the Groups mapping.
type Grouping struct {
	Keys   []string
	Groups map[string][]string
	Files  []string
}

// Ungrouped reports whether no group keys were requested.
func (g Grouping) Ungrouped() bool {
	return len(g.Keys) == 0
}

func (g Grouping) MarshalJSON() ([]byte, error) {
	if g.Ungrouped() {
		if g.Files == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(g.Files)
	}
	return json.Marshal(g.Groups)
}

// Group partitions filepaths by one or more keys joined with "/", e.g.
// "KABR/2010/1" for radar_acronym, year, month. Without keys the input is
// passed through unparsed.
func (g *Grammar) Group(filepaths []string, groups ...string) (Grouping, error) {
	if len(groups) == 0 {
		return Grouping{Files: filepaths}, nil
	}
	if _, err := CheckGroups(groups); err != nil {
		return Grouping{}, err
	}
	out := make(map[string][]string)
	labels := make([]string, len(groups))
	for _, fp := range filepaths {
		info, err := g.ParseFilepath(fp, false)
		if err != nil {
			return Grouping{}, err
		}
		for i, key := range groups {
			if labels[i], err = info.Label(key); err != nil {
				return Grouping{}, err
			}
		}
		k := strings.Join(labels, "/")
		out[k] = append(out[k], fp)
	}
	return Grouping{Keys: groups, Groups: out}, nil
}
