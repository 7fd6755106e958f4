package filter

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/chrissnell/gliderprofile/internal/profile"
)

func exampleTable(t *testing.T) *profile.Table {
	t.Helper()
	depths := []float64{0, 2, 4, 6, 4, 2, 0, 2, 4, 6, 8, 6, 4, 2, 0}
	times := make([]float64, len(depths))
	for i := range times {
		times[i] = float64(i)
	}
	tbl, err := profile.NewTable(times, depths)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	np := profile.NoProfile
	copy(tbl.Profile, []int{np, 0, 0, 0, 1, 1, 1, 2, 2, 2, 2, 2, 2, 2, np})
	return tbl
}

func tableWithIDs(t *testing.T, ids []int) *profile.Table {
	t.Helper()
	times := make([]float64, len(ids))
	depths := make([]float64, len(ids))
	for i := range ids {
		times[i] = float64(i)
		depths[i] = float64(2 + 3*i)
	}
	tbl, err := profile.NewTable(times, depths)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	copy(tbl.Profile, ids)
	return tbl
}

func TestPipelineExampleSeries(t *testing.T) {
	tests := []struct {
		name     string
		params   Params
		kept     int
		rows     int
		removed  map[Reason]int
		unassign int
	}{
		{
			name:     "loose thresholds keep all three",
			params:   Params{MinDepth: 1, MinPoints: 3, MinSeconds: 2, MinDistance: 1},
			kept:     3,
			rows:     13,
			removed:  map[Reason]int{ReasonDepth: 0, ReasonPoints: 0, ReasonTime: 0, ReasonDistance: 0},
			unassign: 2,
		},
		{
			name:     "distance above 8 removes everything",
			params:   Params{MinDepth: 1, MinPoints: 3, MinSeconds: 2, MinDistance: 9},
			kept:     0,
			rows:     0,
			removed:  map[Reason]int{ReasonDepth: 0, ReasonPoints: 0, ReasonTime: 0, ReasonDistance: 3},
			unassign: 2,
		},
		{
			name:     "depth deeper than any data",
			params:   Params{MinDepth: 10000, MinPoints: 3, MinSeconds: 2, MinDistance: 1},
			kept:     0,
			rows:     0,
			removed:  map[Reason]int{ReasonDepth: 3, ReasonPoints: 0, ReasonTime: 0, ReasonDistance: 0},
			unassign: 2,
		},
		{
			name:     "time span of 3s drops the short legs",
			params:   Params{MinDepth: 1, MinPoints: 3, MinSeconds: 3, MinDistance: 1},
			kept:     1,
			rows:     7,
			removed:  map[Reason]int{ReasonDepth: 0, ReasonPoints: 0, ReasonTime: 2, ReasonDistance: 0},
			unassign: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := exampleTable(t)
			out, stats := New(tt.params, nil).Apply(tbl)

			if stats.Kept != tt.kept {
				t.Errorf("expected %d profiles kept, got %d", tt.kept, stats.Kept)
			}
			if out.Len() != tt.rows {
				t.Errorf("expected %d rows, got %d", tt.rows, out.Len())
			}
			if diff := cmp.Diff(tt.removed, stats.Removed); diff != "" {
				t.Errorf("removed counts mismatch (-want +got):\n%s", diff)
			}
			if stats.Unassigned != tt.unassign {
				t.Errorf("expected %d unassigned rows, got %d", tt.unassign, stats.Unassigned)
			}
			if err := profile.ValidateProfiles(out.Profile); err != nil {
				t.Errorf("output ids invalid: %v", err)
			}
			if got := profile.Renumber(append([]int(nil), out.Profile...), 0); got != tt.kept {
				t.Errorf("expected ids dense over %d profiles, got %d", tt.kept, got)
			}
			if tbl.Len() != 15 {
				t.Errorf("input table modified: %d rows", tbl.Len())
			}
		})
	}
}

func TestPipelineThresholdMonotonic(t *testing.T) {
	previous := -1
	for d := 0.0; d <= 10; d += 0.5 {
		params := DefaultParams()
		params.MinSeconds = 2
		params.MinDistance = d
		_, stats := New(params, nil).Apply(exampleTable(t))
		if previous >= 0 && stats.Kept > previous {
			t.Errorf("min distance %.1f kept %d profiles, more than %d at a lower threshold", d, stats.Kept, previous)
		}
		previous = stats.Kept
	}
}

func TestPipelineMergePolicy(t *testing.T) {
	tests := []struct {
		name     string
		ids      []int
		expected []int
		merged   int
	}{
		{
			name:     "short profile folds into previous",
			ids:      []int{0, 0, 0, 1, 2, 2, 2},
			expected: []int{0, 0, 0, 0, 1, 1, 1},
			merged:   1,
		},
		{
			name:     "leading short profile folds into next",
			ids:      []int{0, 1, 1, 1},
			expected: []int{0, 0, 0, 0},
			merged:   1,
		},
		{
			name:     "trailing short profile folds into last good one",
			ids:      []int{0, 0, 0, 1, 1, 1, 2},
			expected: []int{0, 0, 0, 1, 1, 1, 1},
			merged:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline(PolicyMerge, nil, Points(3))
			out, stats := p.Apply(tableWithIDs(t, tt.ids))
			if diff := cmp.Diff(tt.expected, out.Profile); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
			if stats.Merged != tt.merged {
				t.Errorf("expected %d merged, got %d", tt.merged, stats.Merged)
			}
			if out.Len() != len(tt.ids) {
				t.Errorf("merge policy lost rows: %d of %d", out.Len(), len(tt.ids))
			}
		})
	}
}

func TestPipelineMergeWithNoSurvivor(t *testing.T) {
	out, stats := NewPipeline(PolicyMerge, nil, Points(5)).Apply(tableWithIDs(t, []int{0, 0, 1, 1, 2}))

	if out.Len() != 0 {
		t.Errorf("expected every row dropped, got %d", out.Len())
	}
	if stats.Merged != 0 || stats.Removed[ReasonPoints] != 3 || stats.Kept != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestPipelineFillDepth(t *testing.T) {
	times := []float64{0, 1, 2, 3, 4}
	depths := []float64{0.2, 0.4, profile.FillValue, 0.5, 0.3}

	tests := []struct {
		name   string
		filter Filter
		reason Reason
	}{
		{"depth", Depth(1), ReasonDepth},
		{"distance", Distance(1), ReasonDistance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := profile.NewTable(append([]float64(nil), times...), append([]float64(nil), depths...))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			copy(tbl.Profile, []int{0, 0, 0, 0, 0})

			if tt.filter.Keep(tbl.T, tbl.Z) {
				t.Errorf("surface-only profile with a fill sample passed the %s filter", tt.name)
			}
			out, stats := NewPipeline(PolicyDrop, nil, tt.filter).Apply(tbl)
			if out.Len() != 0 || stats.Removed[tt.reason] != 1 {
				t.Errorf("expected the profile removed, got %d rows, %+v", out.Len(), stats)
			}
		})
	}

	tbl, err := profile.NewTable(append([]float64(nil), times...), append([]float64(nil), depths...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	copy(tbl.Profile, []int{0, 0, 0, 0, 0})
	if _, stats := New(DefaultParams(), nil).Apply(tbl); stats.Kept != 0 {
		t.Errorf("default pipeline kept %d surface-only profiles", stats.Kept)
	}
}

func TestPipelineDropPolicyRenumbersEachStep(t *testing.T) {
	ids := []int{0, 0, 0, 1, 2, 2, 2}
	out, stats := NewPipeline(PolicyDrop, nil, Points(3)).Apply(tableWithIDs(t, ids))

	if diff := cmp.Diff([]int{0, 0, 0, 1, 1, 1}, out.Profile); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{0, 1, 2, 4, 5, 6}, out.T); diff != "" {
		t.Errorf("kept rows mismatch (-want +got):\n%s", diff)
	}
	if stats.Total != 1 || stats.Removed[ReasonPoints] != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestParsePolicy(t *testing.T) {
	for input, expected := range map[string]Policy{"": PolicyDrop, "drop": PolicyDrop, "merge": PolicyMerge} {
		got, err := ParsePolicy(input)
		if err != nil || got != expected {
			t.Errorf("ParsePolicy(%q) = %v, %v; want %v", input, got, err, expected)
		}
	}
	if _, err := ParsePolicy("squash"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
