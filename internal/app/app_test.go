package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chrissnell/gliderprofile/internal/ledger"
	"github.com/chrissnell/gliderprofile/internal/profile"
	"github.com/chrissnell/gliderprofile/internal/slocum"
	"github.com/chrissnell/gliderprofile/pkg/config"
)

// yoFile renders a dive/climb series as a dbd2asc file with only vehicle depth.
func yoFile(legs int, maxDepth float64) string {
	var b strings.Builder
	b.WriteString("dbd_label: DBD_ASC(dinkum_binary_data_ascii)file\n")
	b.WriteString("filename_extension: sbd\n")
	b.WriteString("m_present_time m_depth\ntimestamp m\n8 4\n")

	t, z, down := 1700000000.0, 1.0, true
	for legs > 0 {
		fmt.Fprintf(&b, "%.1f %.2f\n", t, z)
		t += 2
		if down {
			z += 0.4
		} else {
			z -= 0.4
		}
		if z >= maxDepth {
			z, down = maxDepth, false
			legs--
		} else if z <= 1 {
			z, down = 1, true
			legs--
		}
	}
	return b.String()
}

func testConfig(t *testing.T) *config.ConfigData {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Ledger.Path = filepath.Join(dir, "ledger.db")
	cfg.Workers = 2
	return cfg
}

func writeInputs(t *testing.T, files map[string]string) []string {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"ru29-2023-318-0-1.dat", "ru29-2023-318-0-2.dat", "ru29-2023-318-0-3.dat"} {
		content, ok := files[name]
		if !ok {
			continue
		}
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		paths = append(paths, path)
	}
	return paths
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)
	paths := writeInputs(t, map[string]string{
		"ru29-2023-318-0-1.dat": yoFile(6, 60),
		"ru29-2023-318-0-2.dat": "filename_extension: sbd\nm_present_time m_depth\ntimestamp m\n8 4\n1700000000 5\n",
		"ru29-2023-318-0-3.dat": "filename_extension: sbd\nm_present_time m_depth\ntimestamp m\n8 4\n1700000000 deep\n",
	})

	a, err := New(cfg, nil)
	require.NoError(t, err)

	report, err := a.Run(context.Background(), paths)
	require.NoError(t, err)
	require.Equal(t, ledger.RunCompleted, report.Status)
	require.Len(t, report.Files, 3)

	require.Equal(t, ledger.FileOK, report.Files[0].Status)
	require.Equal(t, 6, report.Files[0].Profiles)
	require.Equal(t, ledger.FileEmpty, report.Files[1].Status)
	require.Equal(t, ledger.FileFailed, report.Files[2].Status)
	require.Error(t, report.Files[2].Err)
	require.Equal(t, 1, report.Processed)
	require.Equal(t, 1, report.Empty)
	require.Equal(t, 1, report.Failed)
	require.Equal(t, 6, report.Profiles)

	written, err := filepath.Glob(filepath.Join(cfg.Output.Dir, "ru29_*Z_rt.json"))
	require.NoError(t, err)
	require.Len(t, written, 6)

	led, err := ledger.Open(cfg.Ledger.Path, nil)
	require.NoError(t, err)
	defer led.Close()

	ctx := context.Background()
	run, err := led.GetRun(ctx, report.RunID)
	require.NoError(t, err)
	require.Equal(t, ledger.RunCompleted, run.Status)
	require.Equal(t, 3, run.Files)

	files, err := led.GetFiles(ctx, report.RunID)
	require.NoError(t, err)
	require.Len(t, files, 3)

	byPath := make(map[string]ledger.File)
	for _, f := range files {
		byPath[filepath.Base(f.Path)] = f
	}
	ok := byPath["ru29-2023-318-0-1.dat"]
	require.Equal(t, ledger.FileOK, ok.Status)
	require.Equal(t, "ru29", ok.Glider)
	require.Equal(t, 6, ok.Kept)

	profiles, err := led.GetProfiles(ctx, ok.ID)
	require.NoError(t, err)
	require.Len(t, profiles, 6)
	require.Equal(t, 1, profiles[0].ProfileID, "ids start at the configured base")
	require.Equal(t, "descending", profiles[0].Direction)

	require.Equal(t, ledger.FileFailed, byPath["ru29-2023-318-0-3.dat"].Status)
	require.NotEmpty(t, byPath["ru29-2023-318-0-3.dat"].Error)
}

func TestRunCancelled(t *testing.T) {
	cfg := testConfig(t)
	paths := writeInputs(t, map[string]string{"ru29-2023-318-0-1.dat": yoFile(2, 20)})

	a, err := New(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := a.Run(ctx, paths)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, ledger.RunCancelled, report.Status)
	require.Empty(t, report.Files)
}

func TestRunWithoutLedger(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ledger.Path = ""
	paths := writeInputs(t, map[string]string{"ru29-2023-318-0-1.dat": yoFile(2, 20)})

	a, err := New(cfg, nil)
	require.NoError(t, err)

	report, err := a.Run(context.Background(), paths)
	require.NoError(t, err)
	require.Equal(t, 2, report.Profiles)
}

func TestRunUnsyncedClockFailsOneFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ledger.Path = ""
	paths := writeInputs(t, map[string]string{
		"ru29-2023-318-0-1.dat": yoFile(2, 20),
		"ru29-2023-318-0-2.dat": "filename_extension: sbd\nm_present_time m_depth\ntimestamp m\n8 4\n1 5\n1700000000 10\n1700000010 20\n",
	})

	a, err := New(cfg, nil)
	require.NoError(t, err)

	report, err := a.Run(context.Background(), paths)
	require.NoError(t, err)
	require.Equal(t, ledger.RunCompleted, report.Status)
	require.Equal(t, 1, report.Processed)
	require.Equal(t, 1, report.Failed)
	require.Equal(t, ledger.FileFailed, report.Files[1].Status)
	require.ErrorIs(t, report.Files[1].Err, profile.ErrMalformedInput)
}

func TestAssignParamsGridLimit(t *testing.T) {
	seg := config.DefaultConfig().Segmentation
	params, err := AssignParams(seg)
	require.NoError(t, err)
	require.Equal(t, profile.DefaultMaxGridPoints, params.MaxGridPoints)

	seg.MaxGridPoints = 1000
	params, err = AssignParams(seg)
	require.NoError(t, err)
	require.Equal(t, 1000, params.MaxGridPoints)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Filters.Policy = "keep"
	_, err := New(cfg, nil)
	require.Error(t, err)
}

func TestGliderName(t *testing.T) {
	tests := []struct {
		name     string
		ds       *slocum.Dataset
		expected string
	}{
		{
			name:     "from filename",
			ds:       &slocum.Dataset{Info: slocum.FileInfo{Glider: "ru29"}},
			expected: "ru29",
		},
		{
			name:     "from full_filename header",
			ds:       &slocum.Dataset{Metadata: map[string]string{"full_filename": "usf-bass-2014-061-1-0"}},
			expected: "usf-bass",
		},
		{
			name:     "unparseable header",
			ds:       &slocum.Dataset{Metadata: map[string]string{"full_filename": "01230000"}},
			expected: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, gliderName(tt.ds))
		})
	}
}
