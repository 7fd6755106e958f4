// Package export writes segmented profiles as JSON or MessagePack documents.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

// Format selects the document encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgPack Format = "msgpack"
)

// ParseFormat maps a configuration or flag value to a Format. JSON is the default.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "json":
		return FormatJSON, nil
	case "msgpack":
		return FormatMsgPack, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// Formatter handles encoding documents in JSON or MessagePack format
type Formatter struct {
	format Format
}

// NewFormatter creates a formatter for the given format
func NewFormatter(format Format) *Formatter {
	return &Formatter{format: format}
}

// Format returns the encoding this formatter writes.
func (f *Formatter) Format() Format {
	return f.format
}

// Extension is the file extension for documents written by this formatter.
func (f *Formatter) Extension() string {
	if f.format == FormatMsgPack {
		return ".msgpack"
	}
	return ".json"
}

// Encode writes data to w.
func (f *Formatter) Encode(w io.Writer, data any) error {
	if f.format == FormatMsgPack {
		return f.writeMsgPack(w, data)
	}
	return f.writeJSON(w, data)
}

func (f *Formatter) writeJSON(w io.Writer, data any) error {
	return json.NewEncoder(w).Encode(data)
}

func (f *Formatter) writeMsgPack(w io.Writer, data any) error {
	encoder := msgpack.NewEncoder(w)
	encoder.SetCustomStructTag("json") // Use json tags for MessagePack
	return encoder.Encode(data)
}

// Float is a value that encodes missing data (NaN, infinities and the netCDF fill
// value) as JSON null.
type Float float64

func (v Float) valid() bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0) && math.Abs(f) < 1e30
}

func (v Float) MarshalJSON() ([]byte, error) {
	if !v.valid() {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, float64(v), 'g', -1, 64), nil
}

// Series is a column of values with the same missing-data encoding as Float.
type Series []float64

func (s Series) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	buf := make([]byte, 0, 2+len(s)*8)
	buf = append(buf, '[')
	for i, v := range s {
		if i > 0 {
			buf = append(buf, ',')
		}
		if !Float(v).valid() {
			buf = append(buf, "null"...)
			continue
		}
		buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
	}
	return append(buf, ']'), nil
}
