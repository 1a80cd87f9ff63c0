package appdirs

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// HomeEnv pins every runtime directory under a single root.
	HomeEnv = "CLIPFORGE_HOME"

	appName        = "clipforge"
	configFileName = "config.toml"
)

type Paths struct {
	Pinned     bool
	ConfigDir  string
	ConfigFile string
	LogDir     string
	DataDir    string
	CacheDir   string
}

type resolveDeps struct {
	getenv       func(string) string
	userCacheDir func() (string, error)
}

func Resolve() (Paths, error) {
	return resolve(resolveDeps{
		getenv:       os.Getenv,
		userCacheDir: os.UserCacheDir,
	})
}

func resolve(rawDeps resolveDeps) (Paths, error) {
	deps := withDefaults(rawDeps)
	if home := strings.TrimSpace(deps.getenv(HomeEnv)); home != "" {
		return pinnedPaths(home), nil
	}
	return defaultPaths(deps)
}

func withDefaults(deps resolveDeps) resolveDeps {
	if deps.getenv == nil {
		deps.getenv = os.Getenv
	}
	if deps.userCacheDir == nil {
		deps.userCacheDir = os.UserCacheDir
	}
	return deps
}

func pinnedPaths(home string) Paths {
	configDir := filepath.Join(home, "config")
	return Paths{
		Pinned:     true,
		ConfigDir:  configDir,
		ConfigFile: filepath.Join(configDir, configFileName),
		LogDir:     filepath.Join(home, "logs"),
		DataDir:    filepath.Join(home, "data"),
		CacheDir:   filepath.Join(home, "cache"),
	}
}

func defaultPaths(deps resolveDeps) (Paths, error) {
	configDir := "config"
	paths := Paths{
		ConfigDir:  configDir,
		ConfigFile: filepath.Join(configDir, configFileName),
		LogDir:     ".",
		DataDir:    "data",
		CacheDir:   "cache",
	}

	cacheRoot, err := deps.userCacheDir()
	if err != nil || strings.TrimSpace(cacheRoot) == "" {
		// relative layout next to the binary is still usable
		return paths, nil
	}
	paths.CacheDir = filepath.Join(cacheRoot, appName)
	return paths, nil
}
