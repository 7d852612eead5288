package crash

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeState struct {
	summary string
	png     []byte
	err     error
}

func (f *fakeState) Summary() string               { return f.summary }
func (f *fakeState) EmergencyPNG() ([]byte, error) { return f.png, f.err }

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	t.Setenv(EnvDir, "")
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "Go T-Shirt Designer Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
	if strings.Contains(s, "Design:") {
		t.Fatalf("no design line expected without state: %s", s)
	}
}

func TestWriteReportUsesCrashDirAndSummary(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	t.Setenv(EnvDir, dir)

	path, err := writeReport(&fakeState{summary: "400x500 objects=2"}, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("expected report under %s, got %s", dir, path)
	}
	b, _ := os.ReadFile(path)
	if !strings.Contains(string(b), "Design: 400x500 objects=2") {
		t.Fatalf("summary missing: %s", b)
	}
}

func TestWriteEmergencyPNG(t *testing.T) {
	dir := t.TempDir()
	report := filepath.Join(dir, "crash-1.log")
	path, err := writeEmergencyPNG(&fakeState{png: []byte("png")}, report)
	if err != nil {
		t.Fatalf("writeEmergencyPNG: %v", err)
	}
	if path != filepath.Join(dir, "crash-1.png") {
		t.Fatalf("unexpected path %s", path)
	}
	if _, err := writeEmergencyPNG(&fakeState{err: errors.New("closed")}, report); err == nil {
		t.Fatalf("expected error from state")
	}
}

func TestTrackUntrack(t *testing.T) {
	a := &fakeState{summary: "a"}
	untrack := Track(a)
	if current(nil) != State(a) {
		t.Fatalf("expected tracked state")
	}
	b := &fakeState{summary: "b"}
	if current(b) != State(b) {
		t.Fatalf("explicit state should win")
	}
	untrack()
	if current(nil) != nil {
		t.Fatalf("expected no tracked state")
	}
}
