package slocum

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Mode distinguishes data sent over Iridium during a mission from the full-resolution
// files recovered afterwards.
type Mode string

const (
	ModeRealtime Mode = "rt"
	ModeDelayed  Mode = "delayed"
)

// ModeForExtension maps a Slocum file extension to its data mode.
func ModeForExtension(ext string) (Mode, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "sbd", "tbd", "mbd", "nbd":
		return ModeRealtime, nil
	case "dbd", "ebd":
		return ModeDelayed, nil
	default:
		return "", fmt.Errorf("unknown slocum file extension %q", ext)
	}
}

var filenameRE = regexp.MustCompile(`^([\w\-]+)-(\d+)-(\d+)-(\d+)-(\d+)(?:\.(\w+))?$`)

// FileInfo is what a Slocum segment filename encodes:
// <glider>-<year>-<day>-<mission>-<segment>.<ext>
type FileInfo struct {
	Glider    string `json:"glider"`
	Year      int    `json:"year"`
	Day       int    `json:"day"`
	Mission   int    `json:"mission"`
	Segment   int    `json:"segment"`
	Extension string `json:"extension"`
}

// ParseFilename extracts glider, mission and segment numbers from a segment filename.
// The extension is required.
func ParseFilename(path string) (FileInfo, error) {
	info, err := ParseSegmentName(filepath.Base(path))
	if err != nil {
		return FileInfo{}, err
	}
	if info.Extension == "" {
		return FileInfo{}, fmt.Errorf("%q has no file extension", filepath.Base(path))
	}
	return info, nil
}

// ParseSegmentName parses <glider>-<year>-<day>-<mission>-<segment> with an optional
// extension, the form dbd2asc writes to the full_filename header.
func ParseSegmentName(name string) (FileInfo, error) {
	m := filenameRE.FindStringSubmatch(name)
	if m == nil {
		return FileInfo{}, fmt.Errorf("%q is not a <glider>-<year>-<day>-<mission>-<segment> name", name)
	}

	nums := make([]int, 4)
	for i := range nums {
		n, err := strconv.Atoi(m[i+2])
		if err != nil {
			return FileInfo{}, fmt.Errorf("parsing %q: %w", name, err)
		}
		nums[i] = n
	}

	return FileInfo{
		Glider:    m[1],
		Year:      nums[0],
		Day:       nums[1],
		Mission:   nums[2],
		Segment:   nums[3],
		Extension: m[6],
	}, nil
}
