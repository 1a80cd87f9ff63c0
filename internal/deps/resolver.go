// Package deps resolves the external binaries the worker needs.
package deps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"clipforge/config"
	"clipforge/log"
	apperrors "clipforge/pkg/errors"
	"clipforge/pkg/ffmpeg"
)

type DependencyTier string

// A missing must-have stops the worker; a missing should-have only degrades
// the output.
const (
	DependencyTierMust   DependencyTier = "must"
	DependencyTierShould DependencyTier = "should"
)

type DependencyStatus string

const (
	DependencyStatusOK      DependencyStatus = "ok"
	DependencyStatusMissing DependencyStatus = "missing"
	DependencyStatusError   DependencyStatus = "error"
)

type DependencySource string

const (
	DependencySourceStorage  DependencySource = "storage"
	DependencySourceLookPath DependencySource = "lookpath"
)

type DependencySpec struct {
	ID          string
	Name        string
	Command     string
	Tier        DependencyTier
	StoragePath string
	Hint        string
}

type DependencyState struct {
	DependencySpec
	ResolvedPath string
	Status       DependencyStatus
	Source       DependencySource
	Error        string
}

type PathResolver struct {
	LookPath func(file string) (string, error)
	AbsPath  func(path string) (string, error)
	Stat     func(name string) (os.FileInfo, error)
}

func NewPathResolver() PathResolver {
	return PathResolver{
		LookPath: exec.LookPath,
		AbsPath:  filepath.Abs,
		Stat:     os.Stat,
	}
}

func (r PathResolver) Resolve(spec DependencySpec) DependencyState {
	state := DependencyState{DependencySpec: spec}
	configured := strings.TrimSpace(spec.StoragePath)

	if configured != "" {
		state.Source = DependencySourceStorage
		resolvedPath, err := r.resolveConfiguredPath(configured)
		if err == nil {
			state.Status = DependencyStatusOK
			state.ResolvedPath = resolvedPath
			return state
		}

		if absPath, absErr := r.AbsPath(configured); absErr == nil {
			state.ResolvedPath = absPath
		} else {
			state.ResolvedPath = configured
		}
		state.Error = err.Error()
		if isMissingPathError(err) {
			state.Status = DependencyStatusMissing
		} else {
			state.Status = DependencyStatusError
		}
		return state
	}

	state.Source = DependencySourceLookPath
	resolvedPath, err := r.LookPath(spec.Command)
	if err == nil {
		state.Status = DependencyStatusOK
		state.ResolvedPath = resolvedPath
		return state
	}

	state.Error = err.Error()
	if isMissingPathError(err) {
		state.Status = DependencyStatusMissing
		return state
	}
	state.Status = DependencyStatusError
	return state
}

func (r PathResolver) resolveConfiguredPath(configuredPath string) (string, error) {
	if resolvedPath, err := r.LookPath(configuredPath); err == nil {
		return resolvedPath, nil
	}

	absPath, err := r.AbsPath(configuredPath)
	if err != nil {
		return "", err
	}
	if _, err = r.Stat(absPath); err != nil {
		return "", err
	}
	return absPath, nil
}

func ResolveDependencyStates(specs []DependencySpec, resolver PathResolver) []DependencyState {
	resolved := make([]DependencyState, 0, len(specs))
	for _, spec := range specs {
		resolved = append(resolved, resolver.Resolve(spec))
	}
	return resolved
}

// BuildDependencyInventory lists the binaries the worker shells out to.
// Configured paths win over PATH lookup.
func BuildDependencyInventory(c config.Render) []DependencySpec {
	specs := []DependencySpec{
		{
			ID:          "ffmpeg",
			Name:        "ffmpeg",
			Command:     "ffmpeg",
			Tier:        DependencyTierMust,
			StoragePath: c.FfmpegPath,
			Hint:        "Required for audio extraction and clip rendering.",
		},
		{
			ID:          "ffprobe",
			Name:        "ffprobe",
			Command:     "ffprobe",
			Tier:        DependencyTierMust,
			StoragePath: c.FfprobePath,
			Hint:        "Required for upload validation and duration clamping.",
		},
	}
	if font := strings.TrimSpace(c.FontFile); font != "" {
		specs = append(specs, DependencySpec{
			ID:          "font",
			Name:        "caption font",
			Tier:        DependencyTierShould,
			StoragePath: font,
			Hint:        "Captions and watermark use ffmpeg's default font while this file is missing.",
		})
	}
	return specs
}

// FilterProber reports whether the resolved ffmpeg build has a filter.
type FilterProber interface {
	HasFilter(ctx context.Context, name string) bool
}

// Report is the outcome of Check.
type Report struct {
	States []DependencyState
	// Drawtext is false when captions and watermarks will be skipped.
	Drawtext bool
	// FontFile is the resolved caption font, empty when none is usable.
	FontFile string
}

func (r Report) String() string {
	out := FormatDependencyReport(r.States)
	if !r.Drawtext {
		out += "\n- drawtext filter: unavailable | captions and watermark are skipped"
	}
	return out
}

// Check resolves ffmpeg and ffprobe and probes the drawtext capability. It
// fails when a must-have binary cannot be resolved.
func Check(ctx context.Context, c config.Render) (Report, error) {
	return check(ctx, BuildDependencyInventory(c), NewPathResolver(), func(ffmpegPath, ffprobePath string) FilterProber {
		return ffmpeg.New(ffmpegPath, ffprobePath)
	})
}

func check(ctx context.Context, specs []DependencySpec, resolver PathResolver, newProber func(ffmpegPath, ffprobePath string) FilterProber) (Report, error) {
	report := Report{States: ResolveDependencyStates(specs, resolver)}

	var missing []string
	resolved := map[string]string{}
	for _, state := range report.States {
		if state.Status == DependencyStatusOK {
			resolved[state.ID] = state.ResolvedPath
			continue
		}
		if state.Tier == DependencyTierMust {
			missing = append(missing, state.Name)
			continue
		}
		log.GetLogger().Warn("[Deps] dependency unavailable, continuing",
			zap.String("name", state.Name),
			zap.String("status", string(state.Status)),
			zap.String("hint", state.Hint))
	}
	if len(missing) > 0 {
		return report, apperrors.WrapWithDetail(apperrors.CodeFileNotFound,
			"missing required binaries: "+strings.Join(missing, ", "), report.String(), nil)
	}

	report.FontFile = resolved["font"]
	report.Drawtext = newProber(resolved["ffmpeg"], resolved["ffprobe"]).HasFilter(ctx, "drawtext")
	log.GetLogger().Info("[Deps] dependency check passed",
		zap.String("ffmpeg", resolved["ffmpeg"]),
		zap.String("ffprobe", resolved["ffprobe"]),
		zap.Bool("drawtext", report.Drawtext))
	return report, nil
}

func FormatDependencyReport(states []DependencyState) string {
	if len(states) == 0 {
		return "No dependencies to diagnose."
	}

	var builder strings.Builder
	builder.WriteString("Dependency status")

	for _, state := range states {
		resolvedPath := strings.TrimSpace(state.ResolvedPath)
		if resolvedPath == "" {
			resolvedPath = "unknown"
		}

		source := strings.TrimSpace(string(state.Source))
		if source == "" {
			source = "n/a"
		}

		builder.WriteString("\n")
		builder.WriteString(fmt.Sprintf("- %s [%s]: %s | path=%s | source=%s", state.Name, strings.ToUpper(string(state.Tier)), state.Status, resolvedPath, source))
		if state.Error != "" {
			builder.WriteString("\n")
			builder.WriteString("  error: ")
			builder.WriteString(state.Error)
		}
		if state.Hint != "" {
			builder.WriteString("\n")
			builder.WriteString("  hint: ")
			builder.WriteString(state.Hint)
		}
	}

	return builder.String()
}

func isMissingPathError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, exec.ErrNotFound) {
		return true
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		if errors.Is(pathErr.Err, os.ErrNotExist) {
			return true
		}
	}

	var execErr *exec.Error
	if errors.As(err, &execErr) {
		if errors.Is(execErr.Err, exec.ErrNotFound) {
			return true
		}
	}

	message := strings.ToLower(err.Error())
	return strings.Contains(message, "not found") || strings.Contains(message, "cannot find")
}
