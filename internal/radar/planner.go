package radar

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Granularity is the finest time unit encoded in a directory layout.
type Granularity string

const (
	GranularityMinute     Granularity = "min"
	GranularityHour       Granularity = "h"
	GranularityDay        Granularity = "D"
	GranularityMonthStart Granularity = "MS"
	GranularityYear       Granularity = "Y"
)

var directiveRe = regexp.MustCompile(`%([A-Za-z])`)

// directiveRank orders strftime directives from finest to coarsest.
var directiveRank = map[byte]int{
	'M': 0,
	'H': 1,
	'd': 2, 'j': 2,
	'm': 3,
	'Y': 4, 'y': 4,
}

var rankGranularity = []Granularity{
	GranularityMinute,
	GranularityHour,
	GranularityDay,
	GranularityMonthStart,
	GranularityYear,
}

// DirectoryGranularity inspects every {time:...} placeholder of a directory
// template, including multi-directive ones such as {time:%Y%m%d}, and returns
// the shortest time unit they encode. Seconds are not supported.
func DirectoryGranularity(template string) (Granularity, error) {
	finest := len(rankGranularity)
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		if m[1] != "time" {
			continue
		}
		for _, d := range directiveRe.FindAllStringSubmatch(m[2], -1) {
			c := d[1][0]
			if c == 'S' {
				return "", fmt.Errorf("%w: second granularity in %q", ErrNotImplemented, template)
			}
			if r, ok := directiveRank[c]; ok && r < finest {
				finest = r
			}
		}
	}
	if finest == len(rankGranularity) {
		return "", fmt.Errorf("%w: no supported time component in %q", ErrNotImplemented, template)
	}
	return rankGranularity[finest], nil
}

// Timesteps returns the timestamps of the directories to list for [start, end].
// The start is shifted back by one unit so files stored under the previous
// bucket are found, then every bucket boundary up to end is enumerated.
// A boundary equal to end is included.
func Timesteps(start, end time.Time, g Granularity) ([]time.Time, error) {
	start, end = start.UTC(), end.UTC()
	var (
		first, last time.Time
		next        func(time.Time) time.Time
	)
	switch g {
	case GranularityMinute:
		first = start.Add(-time.Minute).Truncate(time.Minute)
		last = end.Truncate(time.Minute)
		next = func(t time.Time) time.Time { return t.Add(time.Minute) }
	case GranularityHour:
		first = start.Add(-time.Hour).Truncate(time.Hour)
		last = end.Truncate(time.Hour)
		next = func(t time.Time) time.Time { return t.Add(time.Hour) }
	case GranularityDay:
		first = StartOfDay(start.AddDate(0, 0, -1))
		last = StartOfDay(end)
		next = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	case GranularityMonthStart:
		first = monthStart(start).AddDate(0, -1, 0)
		last = monthStart(end)
		next = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
	case GranularityYear:
		first = yearEnd(start.Year() - 1)
		last = yearEnd(end.Year())
		next = func(t time.Time) time.Time { return yearEnd(t.Year() + 1) }
	default:
		return nil, fmt.Errorf("%w: granularity %q", ErrNotImplemented, g)
	}

	var steps []time.Time
	for t := first; !t.After(last); t = next(t) {
		steps = append(steps, t)
	}
	return steps, nil
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func yearEnd(year int) time.Time {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}

// StartOfDay returns midnight of t's day.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the next midnight after t's day start.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1)
}

// TimeBlock is a half-open [Start, End) interval.
type TimeBlock struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DailyBlocks splits [start, end) into calendar-day blocks. Intervals
// shorter than 24h are returned as a single block, even across midnight.
func DailyBlocks(start, end time.Time) []TimeBlock {
	if end.Sub(start) < 24*time.Hour {
		return []TimeBlock{{Start: start, End: end}}
	}
	var blocks []TimeBlock
	cur := start
	for cur.Before(end) {
		next := EndOfDay(cur)
		if next.After(end) {
			next = end
		}
		blocks = append(blocks, TimeBlock{Start: cur, End: next})
		cur = next
	}
	return blocks
}

// DirectoryValues are substituted into a directory template.
type DirectoryValues struct {
	Radar   string
	Network string
	BaseDir string
	Time    time.Time
}

// RenderDirectory substitutes {radar}, {radar:s}, {network}, {base_dir} and
// every {time:<strftime>} placeholder.
func RenderDirectory(template string, v DirectoryValues) string {
	out := strings.NewReplacer(
		"{radar:s}", v.Radar,
		"{radar}", v.Radar,
		"{network}", v.Network,
		"{base_dir}", strings.TrimRight(v.BaseDir, `/\`),
	).Replace(template)

	var b strings.Builder
	for {
		i := strings.Index(out, "{time:")
		if i < 0 {
			b.WriteString(out)
			break
		}
		j := strings.Index(out[i:], "}")
		if j < 0 {
			b.WriteString(out)
			break
		}
		b.WriteString(out[:i])
		b.WriteString(strftime(v.Time, out[i+len("{time:"):i+j]))
		out = out[i+j+1:]
	}
	return b.String()
}

// DirectoryPaths renders the template at every planned timestep and
// removes duplicates while keeping the first-seen order.
func DirectoryPaths(template string, v DirectoryValues, start, end time.Time) ([]string, error) {
	g, err := DirectoryGranularity(template)
	if err != nil {
		return nil, err
	}
	steps, err := Timesteps(start, end, g)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(steps))
	paths := make([]string, 0, len(steps))
	for _, t := range steps {
		v.Time = t
		p := RenderDirectory(template, v)
		if seen[p] {
			continue
		}
		seen[p] = true
		paths = append(paths, p)
	}
	return paths, nil
}
