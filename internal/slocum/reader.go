// Package slocum turns merged Slocum glider ASCII files into profile tables with
// standardised column names.
package slocum

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/chrissnell/gliderprofile/internal/gbdr"
	"github.com/chrissnell/gliderprofile/internal/profile"
)

// Pressure sensors in order of preference, all reported in bar.
var pressureSensors = []string{"sci_water_pressure", "m_water_pressure", "m_pressure"}

var renames = map[string]string{
	"m_pitch":                 "pitch",
	"m_roll":                  "roll",
	"m_heading":               "heading",
	"m_altitude":              "altitude",
	"m_water_vx":              "u",
	"m_water_vy":              "v",
	"sci_water_temp":          "temperature",
	"sci_water_cond":          "conductivity",
	"sci_bbfl2s_chlor_scaled": "chlorophyll",
	"sci_bbfl2s_cdom_scaled":  "cdom",
	"sci_bbfl2s_bb_scaled":    "backscatter",
	"sci_oxy3835_oxygen":      "dissolved_oxygen",
}

// Sensors consumed into derived columns rather than copied through.
var consumed = map[string]bool{
	"m_present_time":     true,
	"sci_m_present_time": true,
	"m_gps_lat":          true,
	"m_gps_lon":          true,
	"sci_water_pressure": true,
	"m_water_pressure":   true,
	"m_pressure":         true,
}

// Dataset is one decoded segment file.
type Dataset struct {
	Info     FileInfo
	Mode     Mode
	Metadata map[string]string
	Table    *profile.Table
	// Skipped counts data lines dropped for lacking a timestamp.
	Skipped int
}

// ReadFile opens and decodes a segment file. Filenames that do not follow the
// segment naming convention are accepted; the mode then comes from the header.
func ReadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, _ := ParseFilename(path)
	ds, err := Read(f, info)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ds, nil
}

// Read decodes a merged ASCII stream into a Dataset.
func Read(r io.Reader, info FileInfo) (*Dataset, error) {
	rd, err := gbdr.NewReader(r)
	if err != nil {
		return nil, err
	}

	ext := rd.Metadata()["filename_extension"]
	if ext == "" {
		ext = info.Extension
	}
	mode, err := ModeForExtension(ext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", profile.ErrMalformedInput, err)
	}

	readings, err := gbdr.ReadAll(rd)
	if err != nil {
		return nil, err
	}

	n := len(readings)
	column := func(name string) ([]float64, bool) {
		out := make([]float64, n)
		found := false
		for i, r := range readings {
			v, ok := r.Fields[name]
			if !ok {
				out[i] = math.NaN()
				continue
			}
			out[i] = v
			found = true
		}
		return out, found
	}

	t := make([]float64, n)
	for i, r := range readings {
		t[i] = r.Timestamp
	}

	lat, _ := column("m_gps_lat")
	lon, _ := column("m_gps_lon")
	for i := range lat {
		if !validLatitude(lat[i]) || !validLongitude(lon[i]) {
			lat[i], lon[i] = math.NaN(), math.NaN()
		}
	}
	latInterp, lonInterp := InterpolateGPS(t, lat, lon)

	pressure, havePressure := pressureColumn(column)
	var z []float64
	if havePressure {
		z = make([]float64, n)
		for i := range z {
			z[i] = DepthFromPressure(pressure[i], latInterp[i])
		}
	} else {
		z, _ = column("m_depth")
	}

	tbl, err := profile.NewTable(t, z)
	if err != nil {
		return nil, err
	}

	add := func(name, units string, values []float64) error {
		if err := tbl.AddColumn(name, units, values); err != nil {
			return fmt.Errorf("adding column %s: %w", name, err)
		}
		return nil
	}
	if err := add("lat", "degrees_north", lat); err != nil {
		return nil, err
	}
	if err := add("lon", "degrees_east", lon); err != nil {
		return nil, err
	}
	if err := add("lat_interp", "degrees_north", latInterp); err != nil {
		return nil, err
	}
	if err := add("lon_interp", "degrees_east", lonInterp); err != nil {
		return nil, err
	}
	if havePressure {
		if err := add("pressure", "dbar", pressure); err != nil {
			return nil, err
		}
	}

	for _, s := range rd.Sensors() {
		if consumed[s.Name] {
			continue
		}
		values, _ := column(s.Name)
		name := s.Name
		if renamed, ok := renames[s.Name]; ok {
			name = renamed
		}
		if _, exists := tbl.Column(name); exists {
			continue
		}
		if err := add(name, s.Units, values); err != nil {
			return nil, err
		}
	}

	return &Dataset{
		Info:     info,
		Mode:     mode,
		Metadata: rd.Metadata(),
		Table:    tbl,
		Skipped:  rd.Skipped(),
	}, nil
}

// pressureColumn returns the preferred pressure sensor converted from bar to dbar.
func pressureColumn(column func(string) ([]float64, bool)) ([]float64, bool) {
	for _, name := range pressureSensors {
		values, ok := column(name)
		if !ok {
			continue
		}
		for i := range values {
			values[i] *= 10
		}
		return values, true
	}
	return nil, false
}
