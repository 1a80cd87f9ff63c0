package ffmpeg

import (
	"fmt"

	apperrors "clipforge/pkg/errors"
)

type Limits struct {
	MinDuration   float64
	MaxDuration   float64
	MinResolution int
	RequireAudio  bool
}

func DefaultLimits() Limits {
	return Limits{
		MinDuration:   1,
		MaxDuration:   3600,
		MinResolution: 480,
		RequireAudio:  true,
	}
}

// Validate checks probed media against upload limits. Every violation is a
// content error.
func Validate(info MediaInfo, l Limits) error {
	if info.Duration < l.MinDuration {
		return apperrors.New(apperrors.CodeUnsupportedMedia, fmt.Sprintf("video too short: %.1fs (minimum %.0fs)", info.Duration, l.MinDuration))
	}
	if l.MaxDuration > 0 && info.Duration > l.MaxDuration {
		return apperrors.New(apperrors.CodeUnsupportedMedia, fmt.Sprintf("video too long: %.0fs (maximum %.0fs)", info.Duration, l.MaxDuration))
	}
	if l.MinResolution > 0 && (info.Width < l.MinResolution || info.Height < l.MinResolution) {
		return apperrors.New(apperrors.CodeUnsupportedMedia, fmt.Sprintf("resolution too low: %dx%d", info.Width, info.Height))
	}
	if l.RequireAudio && !info.HasAudio {
		return apperrors.ErrNoAudio
	}
	return nil
}
