package radar

import (
	"fmt"
	"strconv"
	"time"
)

// Info is the structured content of one archive filename.
type Info struct {
	StartTime        time.Time  `json:"start_time"`
	EndTime          *time.Time `json:"end_time"` // nil: unknown from the filename
	RadarAcronym     string     `json:"radar_acronym"`
	VolumeIdentifier string     `json:"volume_identifier"`
	Version          string     `json:"version"`
	Extension        string     `json:"extension"`
}

// IsZero reports whether the info is the empty result returned when
// parse errors are ignored.
func (i Info) IsZero() bool {
	return i.StartTime.IsZero() && i.EndTime == nil && i.RadarAcronym == "" &&
		i.VolumeIdentifier == "" && i.Version == "" && i.Extension == ""
}

// VersionNumber returns the numeric format version, if any.
func (i Info) VersionNumber() (int, bool) {
	if i.Version == "" {
		return 0, false
	}
	n, err := strconv.Atoi(i.Version)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Coverage returns the effective [start, end) of the file. When the name
// carries no end time, fallback is added to the start time.
func (i Info) Coverage(fallback time.Duration) (time.Time, time.Time) {
	if i.EndTime != nil {
		return i.StartTime, *i.EndTime
	}
	return i.StartTime, i.StartTime.Add(fallback)
}

// Get returns the value stored under key: time.Time for start_time,
// *time.Time for end_time, string for the file keys and the derived label
// for any of TimeKeys. Keys outside that vocabulary are invalid, even on the
// empty Info; valid keys are missing from the empty Info.
func (i Info) Get(key string) (any, error) {
	if !infoKeys[key] && !timeKeySet[key] {
		return nil, fmt.Errorf("%w: key %q is not a file or time key", ErrInvalidValue, key)
	}
	if i.IsZero() {
		return nil, fmt.Errorf("%w: %q (empty info)", ErrKeyNotFound, key)
	}
	switch key {
	case KeyStartTime:
		return i.StartTime, nil
	case KeyEndTime:
		return i.EndTime, nil
	case KeyRadarAcronym:
		return i.RadarAcronym, nil
	case KeyVolumeIdentifier:
		return i.VolumeIdentifier, nil
	case KeyVersion:
		return i.Version, nil
	case KeyExtension:
		return i.Extension, nil
	}
	return TimeComponent(i.StartTime, key)
}

// Label renders key as a group label.
func (i Info) Label(key string) (string, error) {
	v, err := i.Get(key)
	if err != nil {
		return "", err
	}
	switch v := v.(type) {
	case string:
		return v, nil
	case time.Time:
		return v.Format(time.DateTime), nil
	case *time.Time:
		if v == nil {
			return "", nil
		}
		return v.Format(time.DateTime), nil
	}
	return fmt.Sprint(v), nil
}
