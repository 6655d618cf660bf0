package radar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// timeDirective is one strftime-style directive supported in templates.
type timeDirective struct {
	width  int
	format func(t time.Time) string
}

var timeDirectives = map[byte]timeDirective{
	'Y': {4, func(t time.Time) string { return fmt.Sprintf("%04d", t.Year()) }},
	'y': {2, func(t time.Time) string { return fmt.Sprintf("%02d", t.Year()%100) }},
	'm': {2, func(t time.Time) string { return fmt.Sprintf("%02d", int(t.Month())) }},
	'd': {2, func(t time.Time) string { return fmt.Sprintf("%02d", t.Day()) }},
	'j': {3, func(t time.Time) string { return fmt.Sprintf("%03d", t.YearDay()) }},
	'H': {2, func(t time.Time) string { return fmt.Sprintf("%02d", t.Hour()) }},
	'M': {2, func(t time.Time) string { return fmt.Sprintf("%02d", t.Minute()) }},
	'S': {2, func(t time.Time) string { return fmt.Sprintf("%02d", t.Second()) }},
}

// strftime renders t with the directives above. Unknown directives are
// kept verbatim.
func strftime(t time.Time, format string) string {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 == len(format) {
			b.WriteByte(c)
			continue
		}
		i++
		if format[i] == '%' {
			b.WriteByte('%')
			continue
		}
		if d, ok := timeDirectives[format[i]]; ok {
			b.WriteString(d.format(t))
			continue
		}
		b.WriteByte('%')
		b.WriteByte(format[i])
	}
	return b.String()
}

// timeLayout parses text produced by a strftime format back into a time.
type timeLayout struct {
	format     string
	fragment   string // regexp fragment without groups
	re         *regexp.Regexp
	directives []byte
}

func compileTimeLayout(format string) (*timeLayout, error) {
	var frag, groups strings.Builder
	var directives []byte
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			frag.WriteString(regexp.QuoteMeta(string(c)))
			groups.WriteString(regexp.QuoteMeta(string(c)))
			continue
		}
		if i+1 == len(format) {
			return nil, fmt.Errorf("%w: dangling %% in time format %q", ErrInvalidValue, format)
		}
		i++
		if format[i] == '%' {
			frag.WriteString("%")
			groups.WriteString("%")
			continue
		}
		d, ok := timeDirectives[format[i]]
		if !ok {
			return nil, fmt.Errorf("%w: unsupported time directive %%%c in %q", ErrInvalidValue, format[i], format)
		}
		digits := fmt.Sprintf(`\d{%d}`, d.width)
		frag.WriteString(digits)
		groups.WriteString("(" + digits + ")")
		directives = append(directives, format[i])
	}
	if len(directives) == 0 {
		return nil, fmt.Errorf("%w: time format %q has no directives", ErrInvalidValue, format)
	}
	re, err := regexp.Compile("^" + groups.String() + "$")
	if err != nil {
		return nil, err
	}
	return &timeLayout{format: format, fragment: frag.String(), re: re, directives: directives}, nil
}

// parse converts text into a UTC time with seconds precision.
func (l *timeLayout) parse(text string) (time.Time, error) {
	m := l.re.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %q does not match time format %q", ErrInvalidValue, text, l.format)
	}
	year, month, day, yday := 1900, 1, 1, 0
	hour, minute, second := 0, 0, 0
	for i, d := range l.directives {
		v, err := strconv.Atoi(m[i+1])
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidValue, text, err)
		}
		switch d {
		case 'Y':
			year = v
		case 'y':
			if v < 69 {
				year = 2000 + v
			} else {
				year = 1900 + v
			}
		case 'm':
			month = v
		case 'd':
			day = v
		case 'j':
			yday = v
		case 'H':
			hour = v
		case 'M':
			minute = v
		case 'S':
			second = v
		}
	}
	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, fmt.Errorf("%w: %q is out of range for %q", ErrInvalidValue, text, l.format)
	}
	if yday > 0 {
		if yday > 366 {
			return time.Time{}, fmt.Errorf("%w: day of year %d out of range", ErrInvalidValue, yday)
		}
		t := time.Date(year, 1, 1, hour, minute, second, 0, time.UTC).AddDate(0, 0, yday-1)
		return t, nil
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: %q is not a valid date", ErrInvalidValue, text)
	}
	return t, nil
}
