package radar

import (
	"errors"
	"testing"
	"time"
)

func mustGrammar(t *testing.T, network string) *Grammar {
	t.Helper()
	n := testNetworks[network]
	g, err := NewGrammar(n.Name, n.FilenamePatterns)
	if err != nil {
		t.Fatalf("NewGrammar(%s): %v", network, err)
	}
	return g
}

func TestParseFilenameSamples(t *testing.T) {
	tests := []struct {
		network  string
		filename string
		want     Info
	}{
		{"FMI", "202101010100_fiika_PVOL.h5", Info{
			StartTime: time.Date(2021, 1, 1, 1, 0, 0, 0, time.UTC), RadarAcronym: "fiika", VolumeIdentifier: "PVOL", Extension: "h5",
		}},
		{"NEXRAD", "KFSX19960701_044028.gz", Info{
			StartTime: time.Date(1996, 7, 1, 4, 40, 28, 0, time.UTC), RadarAcronym: "KFSX", Extension: "gz",
		}},
		{"NEXRAD", "KABR20100101_000618_V03.gz", Info{
			StartTime: time.Date(2010, 1, 1, 0, 6, 18, 0, time.UTC), RadarAcronym: "KABR", Extension: "gz", Version: "3",
		}},
		{"NEXRAD", "KABR20100101_000618_V06", Info{
			StartTime: time.Date(2010, 1, 1, 0, 6, 18, 0, time.UTC), RadarAcronym: "KABR", Version: "6",
		}},
		{"NEXRAD", "KABR20230701_120342_V06_MDM", Info{
			StartTime: time.Date(2023, 7, 1, 12, 3, 42, 0, time.UTC), RadarAcronym: "KABR", VolumeIdentifier: "MDM", Version: "6",
		}},
		{"NEXRAD", "KABR20230701_120342_MDM", Info{
			StartTime: time.Date(2023, 7, 1, 12, 3, 42, 0, time.UTC), RadarAcronym: "KABR", VolumeIdentifier: "MDM",
		}},
		{"IDEAM", "9100SAN-20240202-105624-PPIVol-0d1c.nc", Info{
			StartTime: time.Date(2024, 2, 2, 10, 56, 24, 0, time.UTC), RadarAcronym: "9100SAN", VolumeIdentifier: "0d1c", Extension: "nc",
		}},
		{"IDEAM", "BAR240201135316.RAWMUAK", Info{
			StartTime: time.Date(2024, 2, 1, 13, 53, 16, 0, time.UTC), RadarAcronym: "BAR", VolumeIdentifier: "MUAK",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.network+"/"+tt.filename, func(t *testing.T) {
			g := mustGrammar(t, tt.network)
			got, err := g.ParseFilename(tt.filename, false)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.StartTime.Equal(tt.want.StartTime) {
				t.Errorf("start_time = %s, want %s", got.StartTime, tt.want.StartTime)
			}
			if got.EndTime != nil {
				t.Errorf("end_time = %v, want nil", got.EndTime)
			}
			if got.RadarAcronym != tt.want.RadarAcronym || got.VolumeIdentifier != tt.want.VolumeIdentifier ||
				got.Version != tt.want.Version || got.Extension != tt.want.Extension {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseFilenameInvalid(t *testing.T) {
	g := mustGrammar(t, "NEXRAD")

	_, err := g.ParseFilename("invalid_filename", false)
	if !errors.Is(err, ErrNoPatternMatch) || !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected no-match value error, got %v", err)
	}

	info, err := g.ParseFilename("invalid_filename", true)
	if err != nil {
		t.Fatalf("unexpected error with ignoreErrors: %v", err)
	}
	if !info.IsZero() {
		t.Fatalf("expected empty info, got %+v", info)
	}

	if _, err := g.ParseFilepath("", false); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for empty path, got %v", err)
	}
}

func TestParseFilepathUsesBaseName(t *testing.T) {
	g := mustGrammar(t, "NEXRAD")
	for _, p := range []string{
		"s3://noaa-nexrad-level2/2010/01/01/KABR/KABR20100101_000618_V06",
		"/data/NEXRAD/2010/01/01/00/KABR/KABR20100101_000618_V06",
		`C:\data\KABR\KABR20100101_000618_V06`,
	} {
		info, err := g.ParseFilepath(p, false)
		if err != nil {
			t.Fatalf("ParseFilepath(%q): %v", p, err)
		}
		if info.RadarAcronym != "KABR" || info.Version != "6" {
			t.Errorf("ParseFilepath(%q) = %+v", p, info)
		}
	}
}

func TestCompilePatternErrors(t *testing.T) {
	bad := []string{
		"{radar_acronym:4s}",                          // no start_time
		"{foo}{start_time:%Y%m%d}",                    // unknown key
		"{start_time:%Y}{start_time:%m}",              // repeated key
		"{radar_acronym:%Y}{start_time:%Y%m%d}",       // time format on a string key
		"{start_time:s}",                              // time key without format
		"{radar_acronym:xs}{start_time:%Y%m%d%H%M%S}", // bad width
		"{start_time:%Q}",                             // unsupported directive
	}
	for _, tmpl := range bad {
		if _, err := CompilePattern(tmpl); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("CompilePattern(%q) err = %v, want ErrInvalidValue", tmpl, err)
		}
	}
}

func TestPatternRejectsImpossibleDates(t *testing.T) {
	p, err := CompilePattern("{radar_acronym:4s}{start_time:%Y%m%d_%H%M%S}")
	if err != nil {
		t.Fatalf("CompilePattern: %v", err)
	}
	if _, ok := p.Match("KABR20230230_000000"); ok {
		t.Fatal("expected February 30th to be rejected")
	}
	if _, ok := p.Match("KABR20230101_250000"); ok {
		t.Fatal("expected hour 25 to be rejected")
	}
}

func TestPatternEndTime(t *testing.T) {
	p, err := CompilePattern("{radar_acronym:s}_{start_time:%Y%m%d%H%M}_{end_time:%Y%m%d%H%M}.{extension}")
	if err != nil {
		t.Fatalf("CompilePattern: %v", err)
	}
	info, ok := p.Match("XYZ_202301010000_202301010005.h5")
	if !ok {
		t.Fatal("expected match")
	}
	if info.EndTime == nil || !info.EndTime.Equal(time.Date(2023, 1, 1, 0, 5, 0, 0, time.UTC)) {
		t.Fatalf("end_time = %v", info.EndTime)
	}
	start, end := info.Coverage(time.Hour)
	if end.Sub(start) != 5*time.Minute {
		t.Fatalf("coverage = %s", end.Sub(start))
	}
}

func TestRoundTrip(t *testing.T) {
	g := mustGrammar(t, "NEXRAD")
	ts := time.Date(2022, 12, 20, 16, 2, 43, 0, time.UTC)
	name := "KLIX" + strftime(ts, "%Y%m%d_%H%M%S") + "_MDM"

	info, err := g.ParseFilename(name, false)
	if err != nil {
		t.Fatalf("ParseFilename(%q): %v", name, err)
	}
	if info.RadarAcronym != "KLIX" || !info.StartTime.Equal(ts) || info.VolumeIdentifier != "MDM" {
		t.Fatalf("round trip mismatch: %+v", info)
	}
}

func TestVersions(t *testing.T) {
	g := mustGrammar(t, "NEXRAD")
	versions, ok, err := g.Versions("KFSX19960701_044028.gz", "KABR20100101_000618_V03.gz", "KABR20100101_000618_V06")
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	wantOK := []bool{false, true, true}
	wantV := []int{0, 3, 6}
	for i := range wantOK {
		if ok[i] != wantOK[i] || versions[i] != wantV[i] {
			t.Errorf("entry %d: version=%d ok=%v, want %d %v", i, versions[i], ok[i], wantV[i], wantOK[i])
		}
	}
}

func TestStartEndTimes(t *testing.T) {
	g := mustGrammar(t, "FMI")
	starts, err := g.StartTimes("202101010100_fiika_PVOL.h5")
	if err != nil {
		t.Fatalf("StartTimes: %v", err)
	}
	if len(starts) != 1 || !starts[0].Equal(time.Date(2021, 1, 1, 1, 0, 0, 0, time.UTC)) {
		t.Fatalf("StartTimes = %v", starts)
	}
	ends, err := g.EndTimes("202101010100_fiika_PVOL.h5")
	if err != nil {
		t.Fatalf("EndTimes: %v", err)
	}
	if len(ends) != 1 || ends[0] != nil {
		t.Fatalf("EndTimes = %v, want [nil]", ends)
	}
}

func TestExtract(t *testing.T) {
	g := mustGrammar(t, "FMI")
	values, err := g.Extract(KeyRadarAcronym, "202101010100_fiika_PVOL.h5", "202101010105_fivan_PVOL.h5")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(values) != 2 || values[0] != "fiika" || values[1] != "fivan" {
		t.Fatalf("Extract = %v", values)
	}

	years, err := g.Extract("year", "202101010100_fiika_PVOL.h5")
	if err != nil {
		t.Fatalf("Extract year: %v", err)
	}
	if len(years) != 1 || years[0] != "2021" {
		t.Fatalf("Extract year = %v", years)
	}

	if _, err := g.Extract("bogus", "202101010100_fiika_PVOL.h5"); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
}
