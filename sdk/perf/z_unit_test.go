package perf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseMode(t *testing.T) {
	for _, s := range []string{"", "cpu", "heap", "allocs"} {
		if _, err := ParseMode(s); err != nil {
			t.Errorf("%q should parse: %v", s, err)
		}
	}
	if _, err := ParseMode("trace"); err == nil {
		t.Error("trace should be rejected")
	}
}

func TestRunWritesProfile(t *testing.T) {
	for _, m := range []Mode{ModeCPU, ModeHeap, ModeAllocs} {
		dir := t.TempDir()
		ran := false
		if err := Run(func() error { ran = true; return nil }, m, dir); err != nil {
			t.Fatalf("%s: %v", m, err)
		}
		if !ran {
			t.Fatalf("%s: exe not called", m)
		}
		if _, err := os.Stat(filepath.Join(dir, string(m)+".pprof")); err != nil {
			t.Fatalf("%s: profile missing: %v", m, err)
		}
	}
}

func TestRunPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	dir := t.TempDir()
	if err := Run(func() error { return boom }, ModeHeap, dir); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "heap.pprof")); !os.IsNotExist(err) {
		t.Fatal("no profile should be written when exe fails")
	}
}
