// Package cleanup periodically evicts aged artifacts and purges
// dangling job/photo records, per §4.6. Grounded on the teacher's
// rollback/eviction sweeps (internal/modules/learning/rollback), which
// walk a collection, stat/check each member, and tolerate per-item
// errors; generalized here from database rows to filesystem entries,
// and from one directory to a concurrent walk of uploads and results
// using golang.org/x/sync/errgroup, the same fan-out primitive the
// teacher reaches for whenever a sweep covers more than one
// independent source.
package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/restoreq/restoreq/internal/pkg/logger"
)

// PhotoPurger and JobPurger are the narrow collaborators the sweeper
// needs after the filesystem pass.
type PhotoPurger interface {
	PurgeMissing(exists func(path string) bool, absPath func(storedFilename string) string) int
}

type JobPurger interface {
	PurgeDanglingResults(exists func(path string) bool, pathForURL func(url string) (string, bool)) int
}

type Sweeper struct {
	uploadsDir string
	resultsDir string
	maxAge     time.Duration
	interval   time.Duration

	pathForURL func(url string) (string, bool)
	photos     PhotoPurger
	jobs       JobPurger
	log        *logger.Logger
}

func New(
	uploadsDir, resultsDir string,
	maxAge, interval time.Duration,
	pathForURL func(url string) (string, bool),
	photos PhotoPurger,
	jobs JobPurger,
	log *logger.Logger,
) *Sweeper {
	return &Sweeper{
		uploadsDir: uploadsDir,
		resultsDir: resultsDir,
		maxAge:     maxAge,
		interval:   interval,
		pathForURL: pathForURL,
		photos:     photos,
		jobs:       jobs,
		log:        log.With("component", "CleanupSweeper"),
	}
}

// Run ticks on the configured interval until ctx is cancelled.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sw.SweepOnce()
		}
	}
}

// SweepOnce runs one full pass: aged-file eviction in both
// directories concurrently, then dangling-record purges. It never
// returns an error — every per-file problem is skipped (read-dir and
// remove failures are logged; a failed stat is skipped silently), as
// §7 requires ("filesystem errors in cleanup are swallowed per-file").
func (sw *Sweeper) SweepOnce() {
	var g errgroup.Group
	var uploadsSwept, resultsSwept int
	g.Go(func() error {
		uploadsSwept = sw.sweepDir(sw.uploadsDir)
		return nil
	})
	g.Go(func() error {
		resultsSwept = sw.sweepDir(sw.resultsDir)
		return nil
	})
	_ = g.Wait()

	exists := func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}
	photosPurged := sw.photos.PurgeMissing(exists, func(storedFilename string) string {
		return filepath.Join(sw.uploadsDir, storedFilename)
	})
	jobsPurged := sw.jobs.PurgeDanglingResults(exists, sw.pathForURL)

	if uploadsSwept+resultsSwept+photosPurged+jobsPurged > 0 {
		sw.log.Info("cleanup sweep complete",
			"filesDeleted", uploadsSwept+resultsSwept,
			"photosPurged", photosPurged,
			"jobsPurged", jobsPurged,
		)
	}
}

func (sw *Sweeper) sweepDir(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		sw.log.Warn("cleanup: read dir failed", "dir", dir, "error", err)
		return 0
	}

	deleted := 0
	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() || isMarkerFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= sw.maxAge {
			continue
		}
		if err := os.Remove(path); err != nil {
			sw.log.Warn("cleanup: remove failed", "path", path, "error", err)
			continue
		}
		deleted++
	}
	return deleted
}

func isMarkerFile(name string) bool {
	return name == ".gitkeep" || name == ".gitignore"
}
