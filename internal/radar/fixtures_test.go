package radar

import (
	"context"
	"fmt"
	"sort"
	"time"
)

var testNetworks = map[string]Network{
	"NEXRAD": {
		Name: "NEXRAD",
		FilenamePatterns: []string{
			"{radar_acronym:4s}{start_time:%Y%m%d_%H%M%S}_V{version:2d}.{extension}",
			"{radar_acronym:4s}{start_time:%Y%m%d_%H%M%S}_V{version:2d}",
			"{radar_acronym:4s}{start_time:%Y%m%d_%H%M%S}.{extension}",
			"{radar_acronym:4s}{start_time:%Y%m%d_%H%M%S}_V{version:2d}_{volume_identifier:w}",
			"{radar_acronym:4s}{start_time:%Y%m%d_%H%M%S}_{volume_identifier:w}",
		},
		Directories: map[Protocol]string{
			ProtocolS3:   "s3://noaa-nexrad-level2/{time:%Y}/{time:%m}/{time:%d}/{radar:s}",
			ProtocolFile: "{base_dir}/{network}/{time:%Y}/{time:%m}/{time:%d}/{time:%H}/{radar:s}",
		},
		FileTimeCoverage: 5 * time.Minute,
	},
	"FMI": {
		Name: "FMI",
		FilenamePatterns: []string{
			"{start_time:%Y%m%d%H%M}_{radar_acronym:s}_{volume_identifier:s}.{extension}",
		},
		Directories: map[Protocol]string{
			ProtocolS3: "s3://fmi-opendata-radar-volume-hdf5/{time:%Y}/{time:%m}/{time:%d}/{radar}",
		},
	},
	"IDEAM": {
		Name: "IDEAM",
		FilenamePatterns: []string{
			"{radar_acronym:s}-{start_time:%Y%m%d-%H%M%S}-PPIVol-{volume_identifier:s}.{extension}",
			"{radar_acronym:3s}{start_time:%y%m%d%H%M%S}.RAW{volume_identifier:s}",
		},
		Directories: map[Protocol]string{
			ProtocolS3: "s3://s3-radaresideam/l2_data/{time:%Y}/{time:%m}/{time:%d}/{radar}",
		},
	},
}

type fakeCatalog struct {
	radars map[string]Radar
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{radars: map[string]Radar{
		"NEXRAD/KABR": {Network: "NEXRAD", Name: "KABR", StartTime: mustTime("1996-06-06"), Longitude: -98.413333, Latitude: 45.455833},
		"NEXRAD/KFSX": {Network: "NEXRAD", Name: "KFSX", StartTime: mustTime("1996-01-01")},
		"NEXRAD/KOLD": {Network: "NEXRAD", Name: "KOLD", StartTime: mustTime("1995-01-01"), EndTime: timePtr(mustTime("2000-01-01"))},
		"FMI/fiika":   {Network: "FMI", Name: "fiika", StartTime: mustTime("2018-01-01")},
	}}
}

func (c *fakeCatalog) Network(name string) (Network, error) {
	n, ok := testNetworks[name]
	if !ok {
		return Network{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
	return n, nil
}

func (c *fakeCatalog) Radar(network, radar string) (Radar, error) {
	r, ok := c.radars[network+"/"+radar]
	if !ok {
		return Radar{}, fmt.Errorf("%w: %s/%s", ErrUnknownRadar, network, radar)
	}
	return r, nil
}

func (c *fakeCatalog) Networks() []Network {
	out := make([]Network, 0, len(testNetworks))
	for _, n := range testNetworks {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// fakeFS serves listings from a map of directory -> filenames.
type fakeFS struct {
	protocol Protocol
	dirs     map[string][]string
	listed   []string
	err      error
}

func (f *fakeFS) Protocol() Protocol { return f.protocol }

func (f *fakeFS) List(_ context.Context, dir string) ([]string, error) {
	f.listed = append(f.listed, dir)
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for _, name := range f.dirs[dir] {
		out = append(out, dir+"/"+name)
	}
	return out, nil
}

func mustTime(s string) time.Time {
	t, err := ParseTime(s)
	if err != nil {
		panic(err)
	}
	return t
}

func timePtr(t time.Time) *time.Time { return &t }
