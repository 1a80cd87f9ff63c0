package deps

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/config"
	apperrors "clipforge/pkg/errors"
)

func notFoundErr(command string) error {
	return &exec.Error{Name: command, Err: exec.ErrNotFound}
}

func TestPathResolverResolvePrefersStoragePath(t *testing.T) {
	binPath := filepath.Join(t.TempDir(), "ffmpeg-custom")
	if err := os.WriteFile(binPath, []byte("ffmpeg"), 0o755); err != nil {
		t.Fatalf("os.WriteFile() failed: %v", err)
	}

	resolver := NewPathResolver()
	resolver.LookPath = func(file string) (string, error) {
		return "", notFoundErr(file)
	}

	state := resolver.Resolve(DependencySpec{
		Name:        "ffmpeg",
		Command:     "ffmpeg",
		StoragePath: binPath,
	})

	if state.Status != DependencyStatusOK {
		t.Fatalf("state.Status = %q, want %q", state.Status, DependencyStatusOK)
	}
	if state.Source != DependencySourceStorage {
		t.Fatalf("state.Source = %q, want %q", state.Source, DependencySourceStorage)
	}
	if state.ResolvedPath != binPath {
		t.Fatalf("state.ResolvedPath = %q, want %q", state.ResolvedPath, binPath)
	}
}

func TestPathResolverResolveFallsBackToLookPath(t *testing.T) {
	resolver := NewPathResolver()
	resolver.LookPath = func(file string) (string, error) {
		if file != "ffmpeg" {
			t.Fatalf("LookPath() received %q, want %q", file, "ffmpeg")
		}
		return "/mock/bin/ffmpeg", nil
	}

	state := resolver.Resolve(DependencySpec{Name: "ffmpeg", Command: "ffmpeg"})

	if state.Status != DependencyStatusOK {
		t.Fatalf("state.Status = %q, want %q", state.Status, DependencyStatusOK)
	}
	if state.Source != DependencySourceLookPath {
		t.Fatalf("state.Source = %q, want %q", state.Source, DependencySourceLookPath)
	}
	if state.ResolvedPath != "/mock/bin/ffmpeg" {
		t.Fatalf("state.ResolvedPath = %q, want %q", state.ResolvedPath, "/mock/bin/ffmpeg")
	}
}

func TestPathResolverResolveReportsMissingWhenNotFound(t *testing.T) {
	resolver := NewPathResolver()
	resolver.LookPath = func(file string) (string, error) {
		return "", notFoundErr(file)
	}

	state := resolver.Resolve(DependencySpec{Name: "ffmpeg", Command: "ffmpeg"})

	if state.Status != DependencyStatusMissing {
		t.Fatalf("state.Status = %q, want %q", state.Status, DependencyStatusMissing)
	}
	if state.Source != DependencySourceLookPath {
		t.Fatalf("state.Source = %q, want %q", state.Source, DependencySourceLookPath)
	}
	if state.ResolvedPath != "" {
		t.Fatalf("state.ResolvedPath = %q, want empty", state.ResolvedPath)
	}
	if state.Error == "" {
		t.Fatalf("state.Error should not be empty")
	}
}

func TestPathResolverResolveConfiguredMissingReturnsMissing(t *testing.T) {
	missingPath := filepath.Join(t.TempDir(), "missing-ffmpeg")

	resolver := NewPathResolver()
	resolver.LookPath = func(file string) (string, error) {
		return "", notFoundErr(file)
	}

	state := resolver.Resolve(DependencySpec{
		Name:        "ffmpeg",
		Command:     "ffmpeg",
		StoragePath: missingPath,
	})

	if state.Status != DependencyStatusMissing {
		t.Fatalf("state.Status = %q, want %q", state.Status, DependencyStatusMissing)
	}
	if state.Source != DependencySourceStorage {
		t.Fatalf("state.Source = %q, want %q", state.Source, DependencySourceStorage)
	}
	if state.ResolvedPath != missingPath {
		t.Fatalf("state.ResolvedPath = %q, want %q", state.ResolvedPath, missingPath)
	}
	if state.Error == "" {
		t.Fatalf("state.Error should not be empty")
	}
}

func TestPathResolverResolveConfiguredStatFailureReturnsError(t *testing.T) {
	resolver := NewPathResolver()
	resolver.LookPath = func(file string) (string, error) {
		return "", notFoundErr(file)
	}
	resolver.AbsPath = func(path string) (string, error) {
		return "/mock/configured/path", nil
	}
	resolver.Stat = func(name string) (os.FileInfo, error) {
		if name != "/mock/configured/path" {
			t.Fatalf("Stat() received %q, want %q", name, "/mock/configured/path")
		}
		return nil, errors.New("permission denied")
	}

	state := resolver.Resolve(DependencySpec{
		Name:        "ffmpeg",
		Command:     "ffmpeg",
		StoragePath: "ignored",
	})

	if state.Status != DependencyStatusError {
		t.Fatalf("state.Status = %q, want %q", state.Status, DependencyStatusError)
	}
	if state.Source != DependencySourceStorage {
		t.Fatalf("state.Source = %q, want %q", state.Source, DependencySourceStorage)
	}
	if state.ResolvedPath != "/mock/configured/path" {
		t.Fatalf("state.ResolvedPath = %q, want %q", state.ResolvedPath, "/mock/configured/path")
	}
	if !strings.Contains(state.Error, "permission denied") {
		t.Fatalf("state.Error = %q, want to contain %q", state.Error, "permission denied")
	}
}

func TestBuildDependencyInventoryUsesConfiguredPaths(t *testing.T) {
	specs := BuildDependencyInventory(config.Render{FfmpegPath: "/opt/ff/ffmpeg"})

	ffmpegSpec, ok := findDependencySpec(specs, "ffmpeg")
	if !ok {
		t.Fatalf("ffmpeg spec not found")
	}
	if ffmpegSpec.StoragePath != "/opt/ff/ffmpeg" {
		t.Fatalf("ffmpegSpec.StoragePath = %q, want %q", ffmpegSpec.StoragePath, "/opt/ff/ffmpeg")
	}
	ffprobeSpec, ok := findDependencySpec(specs, "ffprobe")
	if !ok {
		t.Fatalf("ffprobe spec not found")
	}
	if ffprobeSpec.Tier != DependencyTierMust {
		t.Fatalf("ffprobeSpec.Tier = %q, want %q", ffprobeSpec.Tier, DependencyTierMust)
	}
}

func TestBuildDependencyInventoryAddsConfiguredFont(t *testing.T) {
	if _, ok := findDependencySpec(BuildDependencyInventory(config.Render{}), "font"); ok {
		t.Fatalf("font spec present without a configured font")
	}

	fontSpec, ok := findDependencySpec(BuildDependencyInventory(config.Render{FontFile: "/fonts/Inter.ttf"}), "font")
	if !ok {
		t.Fatalf("font spec not found")
	}
	if fontSpec.Tier != DependencyTierShould {
		t.Fatalf("fontSpec.Tier = %q, want %q", fontSpec.Tier, DependencyTierShould)
	}
	if fontSpec.StoragePath != "/fonts/Inter.ttf" {
		t.Fatalf("fontSpec.StoragePath = %q, want %q", fontSpec.StoragePath, "/fonts/Inter.ttf")
	}
}

type stubProber struct {
	ffmpegPath string
	drawtext   bool
}

func (p *stubProber) HasFilter(_ context.Context, name string) bool {
	return name == "drawtext" && p.drawtext
}

func TestCheckProbesDrawtextWithResolvedBinary(t *testing.T) {
	resolver := NewPathResolver()
	resolver.LookPath = func(file string) (string, error) {
		return "/usr/bin/" + file, nil
	}

	var prober *stubProber
	report, err := check(context.Background(), BuildDependencyInventory(config.Render{}), resolver, func(ffmpegPath, _ string) FilterProber {
		prober = &stubProber{ffmpegPath: ffmpegPath}
		return prober
	})
	if err != nil {
		t.Fatalf("check() failed: %v", err)
	}
	if prober.ffmpegPath != "/usr/bin/ffmpeg" {
		t.Fatalf("prober.ffmpegPath = %q, want %q", prober.ffmpegPath, "/usr/bin/ffmpeg")
	}
	if report.Drawtext {
		t.Fatalf("report.Drawtext = true, want false")
	}
	if !strings.Contains(report.String(), "drawtext filter: unavailable") {
		t.Fatalf("report.String() = %q, want drawtext warning", report.String())
	}
}

func TestCheckFailsWhenRequiredBinaryMissing(t *testing.T) {
	resolver := NewPathResolver()
	resolver.LookPath = func(file string) (string, error) {
		if file == "ffprobe" {
			return "", notFoundErr(file)
		}
		return "/usr/bin/" + file, nil
	}

	called := false
	_, err := check(context.Background(), BuildDependencyInventory(config.Render{}), resolver, func(string, string) FilterProber {
		called = true
		return &stubProber{}
	})
	if err == nil {
		t.Fatalf("check() succeeded, want error")
	}
	if !apperrors.Is(err, apperrors.CodeFileNotFound) {
		t.Fatalf("check() error = %v, want CodeFileNotFound", err)
	}
	if !strings.Contains(err.Error(), "ffprobe") {
		t.Fatalf("check() error = %q, want to mention ffprobe", err.Error())
	}
	if called {
		t.Fatalf("prober should not be built when binaries are missing")
	}
}

func TestFormatDependencyReport(t *testing.T) {
	out := FormatDependencyReport([]DependencyState{{
		DependencySpec: DependencySpec{Name: "ffmpeg", Tier: DependencyTierMust, Hint: "install it"},
		Status:         DependencyStatusMissing,
		Source:         DependencySourceLookPath,
		Error:          "not found",
	}})
	for _, want := range []string{"ffmpeg [MUST]: missing", "path=unknown", "source=lookpath", "error: not found", "hint: install it"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report %q missing %q", out, want)
		}
	}
}

func findDependencySpec(specs []DependencySpec, id string) (DependencySpec, bool) {
	for _, spec := range specs {
		if spec.ID == id {
			return spec, true
		}
	}
	return DependencySpec{}, false
}

func TestCheckToleratesMissingFont(t *testing.T) {
	resolver := NewPathResolver()
	resolver.LookPath = func(file string) (string, error) {
		if file == "ffmpeg" || file == "ffprobe" {
			return "/usr/bin/" + file, nil
		}
		return "", notFoundErr(file)
	}
	resolver.Stat = func(string) (os.FileInfo, error) {
		return nil, os.ErrNotExist
	}

	report, err := check(context.Background(), BuildDependencyInventory(config.Render{FontFile: "/fonts/missing.ttf"}), resolver, func(string, string) FilterProber {
		return &stubProber{drawtext: true}
	})
	if err != nil {
		t.Fatalf("check() failed: %v", err)
	}
	if report.FontFile != "" {
		t.Fatalf("report.FontFile = %q, want empty", report.FontFile)
	}
	if !report.Drawtext {
		t.Fatalf("report.Drawtext = false, want true")
	}
	if !strings.Contains(report.String(), "caption font [SHOULD]: missing") {
		t.Fatalf("report.String() = %q, want the font listed as missing", report.String())
	}
}
