package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/chrissnell/gliderprofile/internal/profile"
)

// Meta identifies where a set of profiles came from.
type Meta struct {
	RunID  string `json:"run_id"`
	Source string `json:"source"`
	Glider string `json:"glider"`
	Mode   string `json:"mode"`
}

// Column is one sensor channel of a profile.
type Column struct {
	Units  string `json:"units,omitempty"`
	Values Series `json:"values"`
}

// Summary mirrors profile.Summary with missing values encoded as null.
type Summary struct {
	ID        int    `json:"id"`
	Rows      int    `json:"rows"`
	StartTime Float  `json:"start_time"`
	EndTime   Float  `json:"end_time"`
	MinDepth  Float  `json:"min_depth"`
	MaxDepth  Float  `json:"max_depth"`
	MeanDepth Float  `json:"mean_depth"`
	Direction string `json:"direction"`
}

// Document is the exported form of one profile.
type Document struct {
	Meta
	Profile Summary           `json:"profile"`
	Time    Series            `json:"time"`
	Depth   Series            `json:"depth"`
	Columns map[string]Column `json:"columns,omitempty"`
}

// NewDocument copies the rows of the profile described by s out of tbl.
func NewDocument(meta Meta, tbl *profile.Table, s profile.Summary) Document {
	lo, hi := s.StartRow, s.EndRow+1
	doc := Document{
		Meta: meta,
		Profile: Summary{
			ID:        s.ID,
			Rows:      s.Rows,
			StartTime: Float(s.StartTime),
			EndTime:   Float(s.EndTime),
			MinDepth:  Float(s.MinDepth),
			MaxDepth:  Float(s.MaxDepth),
			MeanDepth: Float(s.MeanDepth),
			Direction: s.Direction.String(),
		},
		Time:    append(Series(nil), tbl.T[lo:hi]...),
		Depth:   append(Series(nil), tbl.Z[lo:hi]...),
		Columns: make(map[string]Column, len(tbl.Columns())),
	}
	for _, name := range tbl.Columns() {
		values, _ := tbl.Column(name)
		doc.Columns[name] = Column{
			Units:  tbl.Units(name),
			Values: append(Series(nil), values[lo:hi]...),
		}
	}
	return doc
}

// Filename names a profile document <glider>_<YYYYmmddTHHMMSS>Z_<mode> after the
// profile's start time.
func Filename(meta Meta, s profile.Summary) string {
	glider := meta.Glider
	if glider == "" {
		glider = "glider"
	}
	mode := meta.Mode
	if mode == "" {
		mode = "rt"
	}
	if math.IsNaN(s.StartTime) {
		return fmt.Sprintf("%s_profile%d_%s", glider, s.ID, mode)
	}
	sec, frac := math.Modf(s.StartTime)
	ts := time.Unix(int64(sec), int64(frac*1e9)).UTC()
	return fmt.Sprintf("%s_%sZ_%s", glider, ts.Format("20060102T150405"), mode)
}

// Writer writes one document per profile into a directory.
type Writer struct {
	dir       string
	formatter *Formatter
	logger    *zap.SugaredLogger
}

// NewWriter creates dir if needed.
func NewWriter(dir string, format Format, logger *zap.SugaredLogger) (*Writer, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Writer{dir: dir, formatter: NewFormatter(format), logger: logger}, nil
}

// WriteProfiles writes every summarised profile of tbl and returns the paths written,
// in profile order. Profiles starting in the same second get the profile id appended.
func (w *Writer) WriteProfiles(meta Meta, tbl *profile.Table, summaries []profile.Summary) ([]string, error) {
	paths := make([]string, 0, len(summaries))
	used := make(map[string]bool, len(summaries))

	for _, s := range summaries {
		name := Filename(meta, s)
		if used[name] {
			name = fmt.Sprintf("%s_%d", name, s.ID)
		}
		used[name] = true

		path := filepath.Join(w.dir, name+w.formatter.Extension())
		if err := w.write(path, NewDocument(meta, tbl, s)); err != nil {
			return paths, err
		}
		w.logger.Debugf("wrote profile %d (%d rows) to %s", s.ID, s.Rows, path)
		paths = append(paths, path)
	}
	return paths, nil
}

func (w *Writer) write(path string, doc Document) error {
	f, err := os.CreateTemp(w.dir, ".profile-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	tmp := f.Name()

	if err := w.formatter.Encode(f, doc); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", path, err)
	}
	return nil
}
