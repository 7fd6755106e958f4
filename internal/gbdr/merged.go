package gbdr

import (
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrNonMonotonic is returned when a source stream's timestamps run backwards.
var ErrNonMonotonic = fmt.Errorf("%w: timestamps not monotonic", ErrMalformedInput)

// DefaultTolerance is the largest flight/science clock difference, in seconds, that
// is still treated as the same instant.
const DefaultTolerance = 1.0

// source is one side of the merge with a one-reading lookahead.
type source struct {
	name    string
	reader  RowReader
	head    Reading
	ok      bool
	last    float64
	started bool
}

func (s *source) advance() error {
	r, err := s.reader.Next()
	if errors.Is(err, io.EOF) {
		s.ok = false
		return nil
	}
	if err != nil {
		s.ok = false
		return fmt.Errorf("%s stream: %w", s.name, err)
	}
	if s.started && r.Timestamp < s.last {
		s.ok = false
		return fmt.Errorf("%s stream: %w (%.3f after %.3f)", s.name, ErrNonMonotonic, r.Timestamp, s.last)
	}
	s.head, s.ok, s.last, s.started = r, true, r.Timestamp, true
	return nil
}

// MergedReader interleaves a flight and a science stream by timestamp.
//
// Readings within Tolerance seconds of each other are emitted as one record holding
// the union of both field sets; on a shared field name the science value wins. The
// merged record carries the earlier of the two timestamps, so output timestamps
// never decrease as long as each input is itself in order.
type MergedReader struct {
	flight  source
	science source
	tol     float64
	primed  bool
	merged  int
}

// NewMergedReader merges flight and science. A non-positive tolerance uses DefaultTolerance.
func NewMergedReader(flight, science RowReader, tolerance float64) *MergedReader {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &MergedReader{
		flight:  source{name: "flight", reader: flight},
		science: source{name: "science", reader: science},
		tol:     tolerance,
	}
}

// Merged returns how many output records combined a flight and a science reading.
func (m *MergedReader) Merged() int {
	return m.merged
}

// Next returns the next record in time order, or io.EOF once both streams are drained.
func (m *MergedReader) Next() (Reading, error) {
	if !m.primed {
		m.primed = true
		if err := m.flight.advance(); err != nil {
			return Reading{}, err
		}
		if err := m.science.advance(); err != nil {
			return Reading{}, err
		}
	}

	f, s := &m.flight, &m.science
	switch {
	case !f.ok && !s.ok:
		return Reading{}, io.EOF
	case !s.ok:
		return m.emit(f)
	case !f.ok:
		return m.emit(s)
	}

	if math.Abs(f.head.Timestamp-s.head.Timestamp) <= m.tol {
		out := Reading{
			Timestamp: math.Min(f.head.Timestamp, s.head.Timestamp),
			Fields:    make(map[string]float64, len(f.head.Fields)+len(s.head.Fields)),
		}
		for k, v := range f.head.Fields {
			out.Fields[k] = v
		}
		for k, v := range s.head.Fields {
			out.Fields[k] = v
		}
		m.merged++
		if err := f.advance(); err != nil {
			return Reading{}, err
		}
		if err := s.advance(); err != nil {
			return Reading{}, err
		}
		return out, nil
	}

	if f.head.Timestamp < s.head.Timestamp {
		return m.emit(f)
	}
	return m.emit(s)
}

func (m *MergedReader) emit(src *source) (Reading, error) {
	out := src.head
	if err := src.advance(); err != nil {
		return Reading{}, err
	}
	return out, nil
}

// ReadAll drains a RowReader.
func ReadAll(r RowReader) ([]Reading, error) {
	var out []Reading
	for {
		reading, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, reading)
	}
}
