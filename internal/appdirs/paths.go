package appdirs

import (
	"path/filepath"
	"strings"
)

const (
	WorkRootName = "work"
	BlobRootName = "blobs"
	dbFileName   = "clipforge.db"
)

// WorkDirFor is the scratch directory for one job's downloads and renders.
func WorkDirFor(paths Paths, jobID string) string {
	return filepath.Join(normalizeDir(paths.CacheDir, "cache"), WorkRootName, jobID)
}

// BlobRootFor is the root of the local blob store.
func BlobRootFor(paths Paths) string {
	return filepath.Join(normalizeDir(paths.DataDir, "data"), BlobRootName)
}

func DBPathFor(paths Paths) string {
	return filepath.Join(normalizeDir(paths.DataDir, "data"), dbFileName)
}

func ResolveDBPath() (string, error) {
	paths, err := Resolve()
	if err != nil {
		return "", err
	}
	return DBPathFor(paths), nil
}

func normalizeDir(dir, fallback string) string {
	if strings.TrimSpace(dir) == "" {
		return fallback
	}
	return dir
}
