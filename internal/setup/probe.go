// Package setup answers GET /status by reading the pid/log/error
// files the environment-bootstrap collaborator drops on disk (§6's
// "Persisted state layout" note: the scheduler only reads them, it
// never writes them). Grounded on the teacher's envutil-style plain
// os.ReadFile probes; no library in the example pack does PID-file
// reading, so this is intentionally minimal stdlib usage, noted in
// DESIGN.md.
package setup

import (
	"os"
	"strconv"
	"strings"
	"syscall"
)

// Status mirrors the GET /status response body.
type Status struct {
	AIReady      bool   `json:"aiReady"`
	Device       string `json:"device"`
	SetupRunning bool   `json:"setupRunning"`
	SetupStatus  string `json:"setupStatus"`
	SetupError   string `json:"setupError,omitempty"`
}

// Prober reads the bootstrap script's state files.
type Prober struct {
	PIDFile   string
	LogFile   string
	ErrorFile string
	Device    string
}

func New(pidFile, logFile, errorFile, device string) *Prober {
	return &Prober{PIDFile: pidFile, LogFile: logFile, ErrorFile: errorFile, Device: device}
}

// Probe reports current setup status. An error file means "error".
// Otherwise a log containing "setup complete" or "ready" means the
// worker environment is ready for job creation, whether or not the
// pid is still live; a live pid without that marker means "running".
func (p *Prober) Probe() Status {
	errText := readTrimmed(p.ErrorFile)
	if errText != "" {
		return Status{AIReady: false, Device: p.Device, SetupRunning: false, SetupStatus: "error", SetupError: errText}
	}

	pid, running := p.runningPID()
	logTail := readTrimmed(p.LogFile)
	ready := strings.Contains(logTail, "setup complete") || strings.Contains(logTail, "ready")

	switch {
	case running && !ready:
		return Status{AIReady: false, Device: p.Device, SetupRunning: true, SetupStatus: "running"}
	case ready:
		return Status{AIReady: true, Device: p.Device, SetupRunning: false, SetupStatus: "ready"}
	case pid == 0:
		return Status{AIReady: false, Device: p.Device, SetupRunning: false, SetupStatus: "not_started"}
	default:
		return Status{AIReady: false, Device: p.Device, SetupRunning: false, SetupStatus: "unknown"}
	}
}

func (p *Prober) runningPID() (int, bool) {
	raw := readTrimmed(p.PIDFile)
	if raw == "" {
		return 0, false
	}
	pid, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return pid, false
	}
	// On Unix, FindProcess always succeeds; signal 0 probes liveness
	// without affecting the process.
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return pid, false
	}
	return pid, true
}

func readTrimmed(path string) string {
	if path == "" {
		return ""
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
