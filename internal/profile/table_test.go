package profile

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewTable(t *testing.T) {
	tests := []struct {
		name    string
		t       []float64
		z       []float64
		wantErr error
	}{
		{"valid", []float64{0, 1, 1, 2}, []float64{1, 2, 3, 4}, nil},
		{"missing timestamps tolerated", []float64{0, math.NaN(), 2}, []float64{1, 2, 3}, nil},
		{"length mismatch", []float64{0, 1}, []float64{1}, ErrMalformedInput},
		{"time runs backwards", []float64{0, 2, 1}, []float64{1, 2, 3}, ErrMalformedInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := NewTable(tt.t, tt.z)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if Unassigned(tbl.Profile) != tbl.Len() {
				t.Errorf("expected every row unassigned")
			}
		})
	}
}

func TestTableColumns(t *testing.T) {
	tbl, err := NewTable([]float64{0, 1, 2}, []float64{5, 6, 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tbl.AddColumn("temperature", "degC", []float64{10, 11, 12}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tbl.AddColumn("short", "", []float64{1}); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("expected ErrMalformedInput for misaligned column, got %v", err)
	}
	tbl.Profile[2] = 4

	sub := tbl.Subset([]int{0, 2})
	temp, ok := sub.Column("temperature")
	if !ok {
		t.Fatal("expected temperature column in subset")
	}
	if diff := cmp.Diff([]float64{10, 12}, temp); diff != "" {
		t.Errorf("column mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{NoProfile, 4}, sub.Profile); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}
	if sub.Units("temperature") != "degC" {
		t.Errorf("expected units to carry over, got %q", sub.Units("temperature"))
	}
	if diff := cmp.Diff([]string{"temperature"}, sub.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}
