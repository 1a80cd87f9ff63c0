package service

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"clipforge/internal/appdirs"
)

var appDirsResolver = appdirs.Resolve

func resolveBlobRoot() (string, error) {
	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}
	return appdirs.BlobRootFor(dirs), nil
}

// workDir creates the scratch dir for one job.
func (s *Service) workDir(jobID string) (string, error) {
	if strings.TrimSpace(jobID) == "" {
		return "", fmt.Errorf("job id is empty")
	}

	var dir string
	if root := strings.TrimSpace(s.opts.WorkRoot); root != "" {
		dir = filepath.Join(root, jobID)
	} else {
		dirs, err := appDirsResolver()
		if err != nil {
			return "", err
		}
		dir = appdirs.WorkDirFor(dirs, jobID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	return dir, nil
}

func mediaExt(key string) string {
	ext := strings.ToLower(path.Ext(key))
	if ext == "" {
		return ".mp4"
	}
	return ext
}

func sourceKey(videoID, ext string) string {
	return fmt.Sprintf("videos/%s/source%s", videoID, ext)
}

// clipOutputKey is unique per render so a re-render never overwrites an
// object a reader may still be fetching.
func clipOutputKey(clipID string) string {
	return fmt.Sprintf("clips/%s/%s.mp4", clipID, uuid.NewString())
}
