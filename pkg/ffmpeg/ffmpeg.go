// Package ffmpeg wraps the ffmpeg and ffprobe binaries used for probing,
// audio extraction and clip encoding.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	apperrors "clipforge/pkg/errors"
)

const stderrTail = 2000

type MediaInfo struct {
	Duration float64
	Width    int
	Height   int
	FPS      float64
	Bitrate  int64
	Codec    string
	HasAudio bool
}

// runner abstracts process execution for testability.
type runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

type Client struct {
	ffmpeg  string
	ffprobe string
	runner  runner
}

func New(ffmpegPath, ffprobePath string) *Client {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Client{ffmpeg: ffmpegPath, ffprobe: ffprobePath, runner: execRunner{}}
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

// Probe reads container and stream metadata. A file ffprobe cannot parse is
// reported as unsupported media.
func (c *Client) Probe(ctx context.Context, path string) (MediaInfo, error) {
	stdout, stderr, err := c.runner.Run(ctx, c.ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return MediaInfo{}, apperrors.WrapWithDetail(apperrors.CodeUnsupportedMedia, "ffprobe could not read media", tail(stderr), err)
		}
		return MediaInfo{}, fmt.Errorf("ffprobe: %w", err)
	}

	var out probeOutput
	if err = json.Unmarshal([]byte(stdout), &out); err != nil {
		return MediaInfo{}, apperrors.Wrap(apperrors.CodeUnsupportedMedia, "ffprobe output unreadable", err)
	}

	info := MediaInfo{}
	info.Duration, _ = strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64)
	info.Bitrate, _ = strconv.ParseInt(strings.TrimSpace(out.Format.BitRate), 10, 64)
	videoSeen := false
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if videoSeen {
				continue
			}
			videoSeen = true
			info.Width = s.Width
			info.Height = s.Height
			info.Codec = s.CodecName
			info.FPS = parseFrameRate(s.RFrameRate)
		case "audio":
			info.HasAudio = true
		}
	}
	return info, nil
}

// Run executes ffmpeg with args, overwriting outputs. Failures carry the
// tail of stderr.
func (c *Client) Run(ctx context.Context, args ...string) error {
	full := append([]string{"-hide_banner", "-y"}, args...)
	_, stderr, err := c.runner.Run(ctx, c.ffmpeg, full...)
	if err != nil {
		return fmt.Errorf("ffmpeg: %w\n%s", err, tail(stderr))
	}
	return nil
}

// ExtractAudio re-encodes the audio track to mono 16 kHz PCM WAV.
func (c *Client) ExtractAudio(ctx context.Context, in, out string) error {
	if err := c.Run(ctx,
		"-i", in,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		out,
	); err != nil {
		return apperrors.Wrap(apperrors.CodeAudioExtract, "extract audio", err)
	}
	return nil
}

// HasFilter reports whether this ffmpeg build ships the named filter.
func (c *Client) HasFilter(ctx context.Context, name string) bool {
	stdout, _, err := c.runner.Run(ctx, c.ffmpeg, "-hide_banner", "-filters")
	if err != nil {
		return false
	}
	for _, line := range strings.Split(stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == name {
			return true
		}
	}
	return false
}

func parseFrameRate(r string) float64 {
	num, den, ok := strings.Cut(r, "/")
	if !ok {
		v, _ := strconv.ParseFloat(r, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= stderrTail {
		return s
	}
	return s[len(s)-stderrTail:]
}

// FormatSeconds renders seconds the way ffmpeg time options expect.
func FormatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
