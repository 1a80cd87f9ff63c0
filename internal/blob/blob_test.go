package blob

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Upload(ctx, "videos/v1/source.mp4", strings.NewReader("bytes"), "video/mp4"))

	ok, err := s.Exists(ctx, "videos/v1/source.mp4")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := s.Download(ctx, "videos/v1/source.mp4")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "bytes", string(data))

	require.NoError(t, s.Delete(ctx, "videos/v1/source.mp4"))
	require.NoError(t, s.Delete(ctx, "videos/v1/source.mp4"))
	ok, err = s.Exists(ctx, "videos/v1/source.mp4")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStoreMissingKey(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	_, err = s.Download(context.Background(), "pending/nope.mp4")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocalStoreKeysStayUnderRoot(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStore(root)
	require.NoError(t, err)

	require.NoError(t, s.Upload(context.Background(), "../../escape.txt", strings.NewReader("x"), "text/plain"))
	_, err = os.Stat(filepath.Join(root, "escape.txt"))
	assert.NoError(t, err)

	assert.Error(t, s.Upload(context.Background(), "/", strings.NewReader("x"), ""))
}

func TestDownloadAndUploadFile(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Upload(ctx, "a/b.bin", strings.NewReader("payload"), ""))

	dst := filepath.Join(t.TempDir(), "work", "b.bin")
	require.NoError(t, DownloadToFile(ctx, s, "a/b.bin", dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	require.NoError(t, UploadFile(ctx, s, "c/d.bin", dst, ""))
	ok, _ := s.Exists(ctx, "c/d.bin")
	assert.True(t, ok)
}
