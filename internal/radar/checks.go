package radar

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var timeTextLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseTime parses "YYYY-MM-DD[THH:MM[:SS]]" text (a space separator and a
// trailing "Z" are accepted) into a UTC time with seconds precision.
func ParseTime(text string) (time.Time, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimSuffix(s, "Z")
	for _, layout := range timeTextLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: time %q must be in YYYY-MM-DD[THH:MM:SS] format", ErrInvalidValue, text)
}

// CheckTime normalizes an in-memory time. Any location other than UTC fails,
// even one with a zero offset such as Europe/London in winter. Sub-second
// precision is truncated.
func CheckTime(t time.Time) (time.Time, error) {
	if t.IsZero() {
		return time.Time{}, fmt.Errorf("%w: zero time", ErrInvalidArgument)
	}
	if t.Location() != time.UTC {
		return time.Time{}, fmt.Errorf("%w: time zone %s is not UTC", ErrInvalidValue, t.Location())
	}
	return t.Truncate(time.Second), nil
}

// CheckDate returns midnight (UTC) of t's calendar day.
func CheckDate(t time.Time) (time.Time, error) {
	t, err := CheckTime(t)
	if err != nil {
		return time.Time{}, err
	}
	return StartOfDay(t), nil
}

// CurrentUTCTime returns now, truncated to seconds.
func CurrentUTCTime() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// CheckStartEndTime validates a query window: start must not follow end and
// must not lie in the future. An end time in the future is allowed.
func CheckStartEndTime(start, end time.Time) (time.Time, time.Time, error) {
	start, err := CheckTime(start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err = CheckTime(end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start time %s is after end time %s", ErrInvalidValue, start, end)
	}
	if start.After(CurrentUTCTime()) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start time %s is in the future", ErrInvalidValue, start)
	}
	return start, end, nil
}

// CheckProtocol maps user input to a Protocol. "local" is an alias of
// "file"; an empty string means no protocol.
func CheckProtocol(protocol string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "":
		return "", nil
	case "s3":
		return ProtocolS3, nil
	case "gcs", "gs":
		return ProtocolGCS, nil
	case "local", "file":
		return ProtocolFile, nil
	}
	return "", fmt.Errorf("%w: protocol %q; valid protocols are s3, gcs, local, file", ErrInvalidValue, protocol)
}

// CheckDownloadProtocol accepts only cloud protocols.
func CheckDownloadProtocol(protocol string) (Protocol, error) {
	p, err := CheckProtocol(protocol)
	if err != nil || !p.IsRemote() {
		return "", fmt.Errorf("%w: download protocol %q; please specify either 'gcs' or 's3'", ErrInvalidValue, protocol)
	}
	return p, nil
}

// BucketPrefix returns the URL scheme prefix used by protocol.
func BucketPrefix(p Protocol) (string, error) {
	switch p {
	case ProtocolS3:
		return "s3://", nil
	case ProtocolGCS:
		return "gs://", nil
	case ProtocolFile:
		return "", nil
	}
	return "", fmt.Errorf("%w: protocol %q", ErrNotImplemented, p)
}

// CheckBaseDir verifies that dir exists and is a directory and strips any
// trailing separator.
func CheckBaseDir(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("%w: base directory must be a non-empty path", ErrInvalidArgument)
	}
	clean := filepath.Clean(dir)
	info, err := os.Stat(clean)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: base directory %s does not exist", ErrInvalidValue, clean)
		}
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: base directory %s is not a directory", ErrInvalidValue, clean)
	}
	return clean, nil
}
