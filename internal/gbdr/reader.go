// Package gbdr reads the ASCII output of the Slocum dbd2asc converter and merges
// flight and science streams into one time-ordered stream.
package gbdr

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/chrissnell/gliderprofile/internal/profile"
)

// ErrMalformedInput is shared with the profile package so callers can test for it
// regardless of which stage rejected the file.
var ErrMalformedInput = profile.ErrMalformedInput

// Timestamp sensors, in order of preference.
var timestampSensors = []string{"m_present_time", "sci_m_present_time"}

// Reading is one decoded telemetry line.
type Reading struct {
	Timestamp float64            `json:"timestamp"`
	Fields    map[string]float64 `json:"fields"`
}

// RowReader yields readings in file order and returns io.EOF when exhausted.
type RowReader interface {
	Next() (Reading, error)
}

// Sensor is one column of an ASCII stream.
type Sensor struct {
	Name  string
	Units string
}

// Reader parses one dbd2asc ASCII stream: optional "key: value" metadata lines, a
// header line naming the sensors, a units line, a bytes-per-sensor line and then
// whitespace separated values.
type Reader struct {
	scanner  *bufio.Scanner
	line     int
	metadata map[string]string
	sensors  []Sensor
	units    map[string]string
	skipped  int
}

// NewReader consumes the header of an ASCII stream and returns a Reader positioned
// at the first data line.
func NewReader(r io.Reader) (*Reader, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	rd := &Reader{
		scanner:  sc,
		metadata: make(map[string]string),
		units:    make(map[string]string),
	}

	var names []string
	for rd.scan() {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if isHeader(text) {
			names = strings.Fields(text)
			break
		}
		if key, value, ok := strings.Cut(text, ":"); ok {
			rd.metadata[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if names == nil {
		return nil, fmt.Errorf("%w: no sensor header line containing m_present_time", ErrMalformedInput)
	}

	if !rd.scan() {
		return nil, fmt.Errorf("%w: missing units line after header", ErrMalformedInput)
	}
	units := strings.Fields(sc.Text())
	if len(units) != len(names) {
		return nil, fmt.Errorf("%w: %d sensors but %d units", ErrMalformedInput, len(names), len(units))
	}
	for i, name := range names {
		rd.sensors = append(rd.sensors, Sensor{Name: name, Units: units[i]})
		rd.units[name] = units[i]
	}

	// Bytes-per-sensor line.
	if !rd.scan() {
		return nil, fmt.Errorf("%w: missing bytes line after units", ErrMalformedInput)
	}
	return rd, nil
}

func isHeader(line string) bool {
	for _, f := range strings.Fields(line) {
		for _, s := range timestampSensors {
			if f == s {
				return true
			}
		}
	}
	return false
}

func (rd *Reader) scan() bool {
	if rd.scanner.Scan() {
		rd.line++
		return true
	}
	return false
}

// Metadata returns the "key: value" pairs found before the sensor header.
func (rd *Reader) Metadata() map[string]string {
	return rd.metadata
}

// Sensors returns the stream's columns in file order.
func (rd *Reader) Sensors() []Sensor {
	return rd.sensors
}

// Units returns the units of a sensor.
func (rd *Reader) Units(name string) string {
	return rd.units[name]
}

// Skipped returns how many data lines had no usable timestamp.
func (rd *Reader) Skipped() int {
	return rd.skipped
}

// Next returns the next data line. NaN values are omitted from Fields, and lat/lon
// sensors are converted from NMEA ddmm.mmm to decimal degrees.
func (rd *Reader) Next() (Reading, error) {
	for rd.scan() {
		text := strings.TrimSpace(rd.scanner.Text())
		if text == "" {
			continue
		}
		values := strings.Fields(text)
		if len(values) != len(rd.sensors) {
			return Reading{}, fmt.Errorf("%w: line %d has %d values, want %d",
				ErrMalformedInput, rd.line, len(values), len(rd.sensors))
		}

		reading := Reading{Timestamp: math.NaN(), Fields: make(map[string]float64, len(values))}
		for i, raw := range values {
			if raw == "NaN" || raw == "nan" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return Reading{}, fmt.Errorf("%w: line %d sensor %s: %v",
					ErrMalformedInput, rd.line, rd.sensors[i].Name, err)
			}
			if math.IsNaN(v) {
				continue
			}
			switch rd.sensors[i].Units {
			case "lat", "lon":
				v = DecimalDegrees(v)
			}
			reading.Fields[rd.sensors[i].Name] = v
		}

		for _, s := range timestampSensors {
			if ts, ok := reading.Fields[s]; ok {
				reading.Timestamp = ts
				break
			}
		}
		if math.IsNaN(reading.Timestamp) {
			rd.skipped++
			continue
		}
		return reading, nil
	}
	if err := rd.scanner.Err(); err != nil {
		return Reading{}, fmt.Errorf("reading line %d: %w", rd.line, err)
	}
	return Reading{}, io.EOF
}

// DecimalDegrees converts an NMEA ddmm.mmm (or dddmm.mmm) coordinate to decimal degrees.
func DecimalDegrees(nmea float64) float64 {
	degrees := math.Trunc(nmea / 100)
	minutes := nmea - degrees*100
	return degrees + minutes/60
}
