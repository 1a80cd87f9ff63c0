// Package blob stores source videos and rendered clips by key.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "clipforge/pkg/errors"
)

// ErrNotFound is returned by Download for a missing key.
var ErrNotFound = errors.New("blob not found")

// Store is the object storage contract. Keys are slash separated.
type Store interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// LocalStore keeps objects as files under Root.
type LocalStore struct {
	Root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBlobError, "create blob root", err)
	}
	return &LocalStore{Root: root}, nil
}

func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + strings.TrimPrefix(key, "/"))
	if clean == "/" {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.Root, filepath.FromSlash(clean)), nil
}

func (s *LocalStore) Upload(_ context.Context, key string, r io.Reader, _ string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return apperrors.Wrap(apperrors.CodeBlobError, "create blob dir", err)
	}
	tmp := p + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeBlobError, "create blob", err)
	}
	if _, err = io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return apperrors.Wrap(apperrors.CodeBlobError, "write blob", err)
	}
	if err = f.Close(); err != nil {
		os.Remove(tmp)
		return apperrors.Wrap(apperrors.CodeBlobError, "close blob", err)
	}
	return os.Rename(tmp, p)
}

func (s *LocalStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBlobError, "open blob", err)
	}
	return f, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err = os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperrors.Wrap(apperrors.CodeBlobError, "delete blob", err)
	}
	return nil
}

func (s *LocalStore) Exists(_ context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// DownloadToFile copies an object to a local path, creating parent dirs.
func DownloadToFile(ctx context.Context, s Store, key, dst string) error {
	rc, err := s.Download(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err = os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "create work dir", err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "create local file", err)
	}
	if _, err = io.Copy(f, rc); err != nil {
		f.Close()
		return apperrors.Wrap(apperrors.CodeFileWriteError, "copy blob to file", err)
	}
	return f.Close()
}

// UploadFile stores a local file under key.
func UploadFile(ctx context.Context, s Store, key, src, contentType string) error {
	f, err := os.Open(src)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeFileNotFound, "open local file", err)
	}
	defer f.Close()
	return s.Upload(ctx, key, f, contentType)
}
