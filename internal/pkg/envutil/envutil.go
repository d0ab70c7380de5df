// Package envutil reads process environment variables with typed
// fallbacks, the same shape as the teacher's utils.GetEnv/GetEnvAsInt
// helpers, generalized so it can run before a *logger.Logger exists.
package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func String(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func Int(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func Bool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Duration reads an integer env var expressed in the given unit (e.g.
// time.Hour) and returns it as a time.Duration, matching the teacher's
// "*_SECONDS"/"*_HOURS" naming convention for time-valued env vars.
func Duration(name string, def time.Duration, unit time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(i) * unit
}

// NonEmpty reports whether the named env var is set to a non-blank value.
// Used by stage definitions whose requiresApiKey gates visibility.
func NonEmpty(name string) bool {
	return strings.TrimSpace(os.Getenv(name)) != ""
}
