package config

import (
	"clipforge/internal/appdirs"
	"os"
	"path/filepath"
	"testing"
)

func setupHomeTestEnv(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv(appdirs.HomeEnv, home)

	old := resolveConfigPath
	resolveConfigPath = defaultResolveConfigPath
	t.Cleanup(func() { resolveConfigPath = old })
	return home
}

func TestSaveConfigUnderHome(t *testing.T) {
	home := setupHomeTestEnv(t)

	Conf = Config{}
	if err := SaveConfig(); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	p, err := ResolveConfigPath()
	if err != nil {
		t.Fatalf("ResolveConfigPath: %v", err)
	}
	if want := filepath.Join(home, "config", "config.toml"); p != want {
		t.Fatalf("ResolveConfigPath() = %q, want %q", p, want)
	}
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("expected config file at %s: %v", p, err)
	}
}

func TestLoadOrCreateConfigGeneratesDefaultWhenMissing(t *testing.T) {
	setupHomeTestEnv(t)

	Conf = Config{}
	created, err := LoadOrCreateConfig()
	if err != nil {
		t.Fatalf("LoadOrCreateConfig: %v", err)
	}
	if !created {
		t.Fatal("expected created=true when config file is missing")
	}

	if Conf.App.MaxClips != 10 {
		t.Errorf("expected default MaxClips=10, got %d", Conf.App.MaxClips)
	}
	if Conf.Queue.MaxRetry != 3 {
		t.Errorf("expected default Queue.MaxRetry=3, got %d", Conf.Queue.MaxRetry)
	}
	if Conf.Clipper.MinSegmentSec != 15 || Conf.Clipper.MaxSegmentSec != 60 {
		t.Errorf("unexpected segment band %v..%v", Conf.Clipper.MinSegmentSec, Conf.Clipper.MaxSegmentSec)
	}
	if Conf.Storage.PendingPrefix != "pending/" {
		t.Errorf("expected pending prefix %q, got %q", "pending/", Conf.Storage.PendingPrefix)
	}
}

func TestLoadOrCreateConfigLoadsExisting(t *testing.T) {
	setupHomeTestEnv(t)

	Conf = defaultConfig()
	Conf.Server = Server{Host: "0.0.0.0", Port: 9999}
	Conf.Clipper.MaxGapSec = 3.5
	if err := SaveConfig(); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	Conf = Config{}
	created, err := LoadOrCreateConfig()
	if err != nil {
		t.Fatalf("LoadOrCreateConfig: %v", err)
	}
	if created {
		t.Fatal("expected created=false when config file exists")
	}
	if Conf.Server.Host != "0.0.0.0" || Conf.Server.Port != 9999 {
		t.Errorf("unexpected server %+v", Conf.Server)
	}
	if Conf.Clipper.MaxGapSec != 3.5 {
		t.Errorf("expected MaxGapSec=3.5, got %v", Conf.Clipper.MaxGapSec)
	}
}

func TestLoadOrCreateConfigAppliesEnv(t *testing.T) {
	setupHomeTestEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CLIPFORGE_REDIS_ADDR", "redis:6380")
	t.Setenv("ENABLE_FFMPEG_CAPTIONS", "1")

	if _, err := LoadOrCreateConfig(); err != nil {
		t.Fatalf("LoadOrCreateConfig: %v", err)
	}
	if Conf.LLM.APIKey != "sk-test" {
		t.Errorf("LLM.APIKey = %q, want sk-test", Conf.LLM.APIKey)
	}
	if Conf.Redis.Addr != "redis:6380" {
		t.Errorf("Redis.Addr = %q, want redis:6380", Conf.Redis.Addr)
	}
	if !Conf.Render.EnableCaptions {
		t.Error("expected captions enabled from env")
	}
}
