// Package config loads the environment-variable driven configuration
// named in §4.7/§6, following the teacher's utils.GetEnv/envutil.Int
// pattern (here, envutil's typed helpers) rather than a struct-tag
// binding library: the variable set is small and fixed, so a binding
// library would add a dependency without replacing meaningful code.
package config

import (
	"time"

	"github.com/restoreq/restoreq/internal/pkg/envutil"
)

type Config struct {
	Port string

	UploadsDir string
	ResultsDir string
	MasksDir   string

	WorkerInterpreter string

	MaxConcurrentJobs int

	HeartbeatTimeout time.Duration

	CleanupInterval time.Duration
	CleanupMaxAge   time.Duration

	OnlineRestoreAPIKey string

	LogMode string
}

// Load reads every process environment variable named in §6, applying
// the defaults spec.md calls out explicitly (heartbeat 10s, cleanup
// interval 2h, cleanup max age 2h) and clamping MaxConcurrentJobs to
// at least 1 per §4.4.8.
func Load() Config {
	cfg := Config{
		Port:                envutil.String("PORT", "8080"),
		UploadsDir:          envutil.String("UPLOADS_DIR", "./data/uploads"),
		ResultsDir:          envutil.String("RESULTS_DIR", "./data/results"),
		MasksDir:            envutil.String("MASKS_DIR", "./data/uploads"),
		WorkerInterpreter:   envutil.String("WORKER_INTERPRETER", "python3"),
		MaxConcurrentJobs:   envutil.Int("MAX_CONCURRENT_JOBS", 2),
		HeartbeatTimeout:    envutil.Duration("HEARTBEAT_TIMEOUT_SECONDS", 10*time.Second, time.Second),
		CleanupInterval:     envutil.Duration("CLEANUP_INTERVAL_HOURS", 2*time.Hour, time.Hour),
		CleanupMaxAge:       envutil.Duration("CLEANUP_MAX_AGE_HOURS", 2*time.Hour, time.Hour),
		OnlineRestoreAPIKey: envutil.String("ONLINE_RESTORE_API_KEY", ""),
		LogMode:             envutil.String("LOG_MODE", "development"),
	}
	if cfg.MaxConcurrentJobs < 1 {
		cfg.MaxConcurrentJobs = 1
	}
	return cfg
}
