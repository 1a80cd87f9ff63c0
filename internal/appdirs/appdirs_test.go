package appdirs

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func TestResolveLayouts(t *testing.T) {
	home := filepath.Join("/", "srv", "clipforge")
	cacheRoot := filepath.Join("/", "home", "alice", ".cache")

	testCases := []struct {
		name          string
		homeEnv       string
		userCacheDir  string
		userCacheErr  error
		want          Paths
		wantCacheCall bool
	}{
		{
			name:    "pinned layout when home env is set",
			homeEnv: home,
			want: Paths{
				Pinned:     true,
				ConfigDir:  filepath.Join(home, "config"),
				ConfigFile: filepath.Join(home, "config", "config.toml"),
				LogDir:     filepath.Join(home, "logs"),
				DataDir:    filepath.Join(home, "data"),
				CacheDir:   filepath.Join(home, "cache"),
			},
		},
		{
			name:         "default layout uses user cache dir",
			userCacheDir: cacheRoot,
			want: Paths{
				ConfigDir:  "config",
				ConfigFile: filepath.Join("config", "config.toml"),
				LogDir:     ".",
				DataDir:    "data",
				CacheDir:   filepath.Join(cacheRoot, "clipforge"),
			},
			wantCacheCall: true,
		},
		{
			name:         "default layout falls back to relative cache",
			userCacheErr: errors.New("no home"),
			want: Paths{
				ConfigDir:  "config",
				ConfigFile: filepath.Join("config", "config.toml"),
				LogDir:     ".",
				DataDir:    "data",
				CacheDir:   "cache",
			},
			wantCacheCall: true,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cacheCalled := false

			got, err := resolve(resolveDeps{
				getenv: func(key string) string {
					if key == HomeEnv {
						return tc.homeEnv
					}
					return ""
				},
				userCacheDir: func() (string, error) {
					cacheCalled = true
					return tc.userCacheDir, tc.userCacheErr
				},
			})
			if err != nil {
				t.Fatalf("resolve() returned unexpected error: %v", err)
			}

			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("resolve() = %+v, want %+v", got, tc.want)
			}
			if cacheCalled != tc.wantCacheCall {
				t.Fatalf("userCacheDir() called = %t, want %t", cacheCalled, tc.wantCacheCall)
			}
		})
	}
}

func TestDerivedPaths(t *testing.T) {
	paths := Paths{DataDir: filepath.Join("x", "data"), CacheDir: filepath.Join("x", "cache")}

	if got, want := DBPathFor(paths), filepath.Join("x", "data", "clipforge.db"); got != want {
		t.Fatalf("DBPathFor() = %q, want %q", got, want)
	}
	if got, want := BlobRootFor(paths), filepath.Join("x", "data", "blobs"); got != want {
		t.Fatalf("BlobRootFor() = %q, want %q", got, want)
	}
	if got, want := WorkDirFor(paths, "job-1"), filepath.Join("x", "cache", "work", "job-1"); got != want {
		t.Fatalf("WorkDirFor() = %q, want %q", got, want)
	}
	if got, want := WorkDirFor(Paths{}, "job-1"), filepath.Join("cache", "work", "job-1"); got != want {
		t.Fatalf("WorkDirFor() with empty paths = %q, want %q", got, want)
	}
}
