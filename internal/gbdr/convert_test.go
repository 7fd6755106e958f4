package gbdr

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func fakeDBD2ASC(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in for dbd2asc needs a POSIX shell")
	}
	script := filepath.Join(t.TempDir(), "dbd2asc")
	if err := os.WriteFile(script, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("writing fake converter: %v", err)
	}
	return script
}

func TestConverter(t *testing.T) {
	// Prints the file named by the last argument.
	bin := fakeDBD2ASC(t, "for last; do :; done\ncat \"$last\"\n")

	dir := t.TempDir()
	flightPath := filepath.Join(dir, "unit_123-2024-100-0-1.sbd")
	sciencePath := filepath.Join(dir, "unit_123-2024-100-0-1.tbd")
	if err := os.WriteFile(flightPath, []byte(flightASCII), 0o644); err != nil {
		t.Fatal(err)
	}
	science := "sci_m_present_time sci_water_temp\ntimestamp degC\n8 4\n1500000000.9 12.5\n"
	if err := os.WriteFile(sciencePath, []byte(science), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewConverter(bin, dir, nil)
	m, err := c.MergePair(context.Background(), flightPath, sciencePath, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := ReadAll(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 merged records, got %d", len(out))
	}
	if out[0].Fields["sci_water_temp"] != 12.5 || out[0].Fields["m_depth"] != 10.5 {
		t.Errorf("expected flight and science fields merged, got %v", out[0].Fields)
	}
}

func TestConverterFailure(t *testing.T) {
	bin := fakeDBD2ASC(t, "echo 'cannot open cache' >&2\nexit 3\n")

	c := NewConverter(bin, "", nil)
	if _, err := c.Convert(context.Background(), "missing.sbd"); err == nil {
		t.Error("expected error from failing converter")
	}
}
