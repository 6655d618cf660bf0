package radar

import "time"

// Protocol identifies the backend a directory listing is issued against.
type Protocol string

const (
	ProtocolS3   Protocol = "s3"
	ProtocolGCS  Protocol = "gcs"
	ProtocolFile Protocol = "file"
)

// IsRemote reports whether the protocol addresses a cloud bucket.
func (p Protocol) IsRemote() bool {
	return p == ProtocolS3 || p == ProtocolGCS
}

// DefaultFileTimeCoverage is used as file duration when neither the filename
// nor the network definition provides one.
const DefaultFileTimeCoverage = 15 * time.Minute

// Network is the immutable, data-driven description of a radar network.
// Adding a network only requires a new Network value: patterns plus
// directory templates.
type Network struct {
	Name string `json:"name"`

	// FilenamePatterns are tried in order; the first match wins.
	FilenamePatterns []string `json:"filename_patterns"`

	// Directories maps a protocol to its directory template, e.g.
	// "s3://noaa-nexrad-level2/{time:%Y}/{time:%m}/{time:%d}/{radar:s}".
	Directories map[Protocol]string `json:"directories"`

	// FileTimeCoverage is the fallback duration of a file whose name
	// carries no end time.
	FileTimeCoverage time.Duration `json:"file_time_coverage"`

	// Readers names the format readers able to open the network's files.
	Readers map[string]string `json:"readers,omitempty"`
}

// Coverage returns the configured fallback file duration.
func (n Network) Coverage() time.Duration {
	if n.FileTimeCoverage <= 0 {
		return DefaultFileTimeCoverage
	}
	return n.FileTimeCoverage
}

// Radar is one station of a network.
type Radar struct {
	Network   string     `json:"network"`
	Name      string     `json:"radar"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"` // nil while operational
	Longitude float64    `json:"longitude"`
	Latitude  float64    `json:"latitude"`
}

// Key returns a canonical "NETWORK/RADAR" key.
func (r Radar) Key() string {
	return r.Network + "/" + r.Name
}
