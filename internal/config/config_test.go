package config

import (
	"testing"
	"time"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"PORT", "UPLOADS_DIR", "RESULTS_DIR", "MASKS_DIR", "WORKER_INTERPRETER",
		"MAX_CONCURRENT_JOBS", "HEARTBEAT_TIMEOUT_SECONDS", "CLEANUP_INTERVAL_HOURS",
		"CLEANUP_MAX_AGE_HOURS", "ONLINE_RESTORE_API_KEY", "LOG_MODE",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearConfigEnv(t)
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.MaxConcurrentJobs != 2 {
		t.Errorf("MaxConcurrentJobs = %d, want 2", cfg.MaxConcurrentJobs)
	}
	if cfg.HeartbeatTimeout != 10*time.Second {
		t.Errorf("HeartbeatTimeout = %v, want 10s", cfg.HeartbeatTimeout)
	}
	if cfg.CleanupInterval != 2*time.Hour || cfg.CleanupMaxAge != 2*time.Hour {
		t.Errorf("cleanup interval/maxAge = %v/%v, want 2h/2h", cfg.CleanupInterval, cfg.CleanupMaxAge)
	}
}

func TestLoadClampsMaxConcurrentJobsToAtLeastOne(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("MAX_CONCURRENT_JOBS", "0")
	if got := Load().MaxConcurrentJobs; got != 1 {
		t.Errorf("MaxConcurrentJobs = %d, want clamped to 1", got)
	}

	t.Setenv("MAX_CONCURRENT_JOBS", "-5")
	if got := Load().MaxConcurrentJobs; got != 1 {
		t.Errorf("MaxConcurrentJobs = %d, want clamped to 1", got)
	}
}

func TestLoadReadsOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_CONCURRENT_JOBS", "5")
	t.Setenv("WORKER_INTERPRETER", "/usr/bin/python3")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.MaxConcurrentJobs != 5 {
		t.Errorf("MaxConcurrentJobs = %d, want 5", cfg.MaxConcurrentJobs)
	}
	if cfg.WorkerInterpreter != "/usr/bin/python3" {
		t.Errorf("WorkerInterpreter = %q, want /usr/bin/python3", cfg.WorkerInterpreter)
	}
}
