// Package artifact owns the content-addressed filesystem namespace
// for uploads, stage outputs and paint masks. It is the leaf
// dependency of the system (§2): everything else allocates paths and
// URLs through it. Reading stored files and removing aged files
// (the photo handlers, the cleanup sweeper) use the paths directly.
package artifact

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/restoreq/restoreq/internal/pkg/logger"
)

// Store allocates opaque paths under uploads/results (masks are
// stored under uploads) and maps
// them back and forth to the URL prefixes the HTTP edge serves
// (/uploads/*, /results/*).
type Store interface {
	UploadsDir() string
	ResultsDir() string

	// NewUpload content-addresses an uploaded file's bytes into a
	// fresh name under the uploads directory and writes it there.
	// Returns the absolute path and the opaque stored filename.
	NewUpload(content []byte, ext string) (path string, storedFilename string, err error)

	// StageOutputPath computes the destination for one stage's
	// output: results/<sanitized(photoName)>_<prefix>_<jobShort>.png.
	StageOutputPath(photoName, prefix, jobID string) string

	// NewMask writes already-decoded PNG bytes as given under uploads
	// as mask_<8hex>.png, where the hex digest is content-derived.
	NewMask(pngBytes []byte) (path string, err error)

	// URLFor maps an absolute path under uploads/ or results/ to its
	// public URL. Returns "" if the path is outside both directories.
	URLFor(absPath string) string

	// PathForURL is URLFor's inverse, used by rewind to recompute
	// currentInputPath from a stepResult's output URL.
	PathForURL(url string) (string, bool)

	Delete(path string) error
	Exists(path string) bool
}

type localStore struct {
	uploadsDir string
	resultsDir string
	masksDir   string
	log        *logger.Logger
}

// New creates the three artifact directories if missing, matching
// §4.1's "created on start if missing".
func New(uploadsDir, resultsDir, masksDir string, log *logger.Logger) (Store, error) {
	for _, dir := range []string{uploadsDir, resultsDir, masksDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("artifact: create dir %q: %w", dir, err)
		}
	}
	return &localStore{
		uploadsDir: uploadsDir,
		resultsDir: resultsDir,
		masksDir:   masksDir,
		log:        log.With("component", "ArtifactStore"),
	}, nil
}

func (s *localStore) UploadsDir() string { return s.uploadsDir }
func (s *localStore) ResultsDir() string { return s.resultsDir }

func (s *localStore) NewUpload(content []byte, ext string) (string, string, error) {
	digest := blake2b.Sum256(content)
	stored := hex.EncodeToString(digest[:8]) + "_" + uuid.New().String()[:8] + ext
	path := filepath.Join(s.uploadsDir, stored)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", "", fmt.Errorf("artifact: write upload: %w", err)
	}
	return path, stored, nil
}

func (s *localStore) StageOutputPath(photoName, prefix, jobID string) string {
	name := fmt.Sprintf("%s_%s_%s.png", sanitizeName(photoName), sanitizeName(prefix), jobShort(jobID))
	return filepath.Join(s.resultsDir, name)
}

func (s *localStore) NewMask(pngBytes []byte) (string, error) {
	digest := blake2b.Sum256(pngBytes)
	name := "mask_" + hex.EncodeToString(digest[:4]) + ".png"
	path := filepath.Join(s.uploadsDir, name)
	if err := os.WriteFile(path, pngBytes, 0o644); err != nil {
		return "", fmt.Errorf("artifact: write mask: %w", err)
	}
	return path, nil
}

func (s *localStore) URLFor(absPath string) string {
	if rel, ok := relUnder(s.uploadsDir, absPath); ok {
		return "/uploads/" + rel
	}
	if rel, ok := relUnder(s.resultsDir, absPath); ok {
		return "/results/" + rel
	}
	return ""
}

func (s *localStore) PathForURL(url string) (string, bool) {
	switch {
	case strings.HasPrefix(url, "/uploads/"):
		return filepath.Join(s.uploadsDir, strings.TrimPrefix(url, "/uploads/")), true
	case strings.HasPrefix(url, "/results/"):
		return filepath.Join(s.resultsDir, strings.TrimPrefix(url, "/results/")), true
	default:
		return "", false
	}
}

func (s *localStore) Delete(path string) error {
	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *localStore) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func relUnder(dir, absPath string) (string, bool) {
	rel, err := filepath.Rel(dir, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return rel, true
}
