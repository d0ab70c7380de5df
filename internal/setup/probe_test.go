package setup

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
}

func TestProbeReturnsErrorStatusWhenErrorFilePresent(t *testing.T) {
	dir := t.TempDir()
	errFile := filepath.Join(dir, "error.log")
	writeFile(t, errFile, "gpu driver missing")

	p := New(filepath.Join(dir, "no.pid"), filepath.Join(dir, "no.log"), errFile, "cuda")
	got := p.Probe()

	want := Status{AIReady: false, Device: "cuda", SetupRunning: false, SetupStatus: "error", SetupError: "gpu driver missing"}
	if got != want {
		t.Errorf("Probe() = %+v, want %+v", got, want)
	}
}

func TestProbeReportsNotStartedWithNoFiles(t *testing.T) {
	dir := t.TempDir()
	p := New(filepath.Join(dir, "no.pid"), filepath.Join(dir, "no.log"), filepath.Join(dir, "no.err"), "cpu")

	got := p.Probe()
	want := Status{AIReady: false, Device: "cpu", SetupRunning: false, SetupStatus: "not_started"}
	if got != want {
		t.Errorf("Probe() = %+v, want %+v", got, want)
	}
}

func TestProbeReportsRunningWhileLiveAndNotYetReady(t *testing.T) {
	dir := t.TempDir()
	pidFile := filepath.Join(dir, "setup.pid")
	logFile := filepath.Join(dir, "setup.log")
	writeFile(t, pidFile, strconv.Itoa(os.Getpid()))
	writeFile(t, logFile, "downloading models...")

	p := New(pidFile, logFile, filepath.Join(dir, "no.err"), "cpu")
	got := p.Probe()
	want := Status{AIReady: false, Device: "cpu", SetupRunning: true, SetupStatus: "running"}
	if got != want {
		t.Errorf("Probe() = %+v, want %+v", got, want)
	}
}

func TestProbeReportsReadyWhenLogContainsReadyMarker(t *testing.T) {
	dir := t.TempDir()
	pidFile := filepath.Join(dir, "setup.pid")
	logFile := filepath.Join(dir, "setup.log")
	writeFile(t, pidFile, strconv.Itoa(os.Getpid()))
	writeFile(t, logFile, "... setup complete")

	p := New(pidFile, logFile, filepath.Join(dir, "no.err"), "cpu")
	got := p.Probe()
	want := Status{AIReady: true, Device: "cpu", SetupRunning: false, SetupStatus: "ready"}
	if got != want {
		t.Errorf("Probe() = %+v, want %+v", got, want)
	}
}

func TestProbeReportsUnknownForAStalePIDFile(t *testing.T) {
	dir := t.TempDir()
	pidFile := filepath.Join(dir, "setup.pid")
	logFile := filepath.Join(dir, "setup.log")
	// PID 999999 is extremely unlikely to be a live process.
	writeFile(t, pidFile, "999999")
	writeFile(t, logFile, "downloading models...")

	p := New(pidFile, logFile, filepath.Join(dir, "no.err"), "cpu")
	got := p.Probe()
	want := Status{AIReady: false, Device: "cpu", SetupRunning: false, SetupStatus: "unknown"}
	if got != want {
		t.Errorf("Probe() = %+v, want %+v", got, want)
	}
}
