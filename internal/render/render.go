// Package render cuts, crops and overlays a single clip with ffmpeg.
package render

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"clipforge/config"
	"clipforge/internal/types"
	"clipforge/log"
	apperrors "clipforge/pkg/errors"
	"clipforge/pkg/ffmpeg"
)

const (
	minClipSec       = 1.0
	captionChunk     = 4
	drawtextFilter   = "drawtext"
	defaultWatermark = "clipforge"
)

// Encoder is the subset of the ffmpeg client the renderer drives.
type Encoder interface {
	Probe(ctx context.Context, path string) (ffmpeg.MediaInfo, error)
	Run(ctx context.Context, args ...string) error
	HasFilter(ctx context.Context, name string) bool
}

type Options struct {
	EnableCaptions bool
	CaptionStyle   string
	WatermarkText  string
	FontFile       string
}

func OptionsFromConfig(c config.Render) Options {
	return Options{
		EnableCaptions: c.EnableCaptions,
		CaptionStyle:   c.CaptionStyle,
		WatermarkText:  c.WatermarkText,
		FontFile:       c.FontFile,
	}
}

type Request struct {
	SourcePath  string
	OutputPath  string
	Start       float64
	End         float64
	AspectRatio types.AspectRatio
	Words       []types.Word
	Watermark   bool
}

// Result is the range that was actually encoded.
type Result struct {
	Start float64
	End   float64
}

type Renderer struct {
	enc  Encoder
	opts Options

	drawtextOnce sync.Once
	drawtext     bool
}

func New(enc Encoder, opts Options) *Renderer {
	if opts.WatermarkText == "" {
		opts.WatermarkText = defaultWatermark
	}
	return &Renderer{enc: enc, opts: opts}
}

func (r *Renderer) hasDrawtext(ctx context.Context) bool {
	r.drawtextOnce.Do(func() {
		r.drawtext = r.enc.HasFilter(ctx, drawtextFilter)
	})
	return r.drawtext
}

// Render encodes req.Start..req.End of the source into req.OutputPath. The
// range is clamped to the probed duration first. Overlays that cannot be
// drawn are skipped rather than failing the render.
func (r *Renderer) Render(ctx context.Context, req Request) (Result, error) {
	info, err := r.enc.Probe(ctx, req.SourcePath)
	if err != nil {
		return Result{}, err
	}
	start, end := ClampRange(req.Start, req.End, info.Duration)
	if start != req.Start || end != req.End {
		log.GetLogger().Info("[Render] clamped clip range",
			zap.Float64("requestedStart", req.Start), zap.Float64("requestedEnd", req.End),
			zap.Float64("start", start), zap.Float64("end", end), zap.Float64("duration", info.Duration))
	}

	filters := []string{CropFilter(req.AspectRatio)}

	wantCaptions := r.opts.EnableCaptions && len(req.Words) > 0
	if (wantCaptions || req.Watermark) && !r.hasDrawtext(ctx) {
		log.GetLogger().Warn("[Render] ffmpeg has no drawtext filter, skipping overlays",
			zap.Bool("captions", wantCaptions), zap.Bool("watermark", req.Watermark))
		wantCaptions = false
		req.Watermark = false
	}
	if wantCaptions {
		filters = append(filters, CaptionFilters(req.Words, start, CaptionStyle(r.opts.CaptionStyle, r.opts.FontFile))...)
	}
	if req.Watermark {
		filters = append(filters, WatermarkFilter(r.opts.WatermarkText, r.opts.FontFile))
	}

	args := []string{
		"-ss", ffmpeg.FormatSeconds(start),
		"-i", req.SourcePath,
		"-t", ffmpeg.FormatSeconds(end - start),
		"-vf", strings.Join(filters, ","),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		req.OutputPath,
	}
	if err = r.enc.Run(ctx, args...); err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeRenderFailed, "render clip", err)
	}
	return Result{Start: start, End: end}, nil
}

// ClampRange keeps [start, end] inside [0, duration] and at least one second
// long. A duration of 0 means unknown: only the lower bound and the minimum
// length apply.
func ClampRange(start, end, duration float64) (float64, float64) {
	start = max(start, 0)
	if duration > 0 {
		end = min(end, duration)
		start = min(start, max(duration-minClipSec, 0))
	}
	if end-start < minClipSec {
		end = start + minClipSec
		if duration > 0 {
			end = min(end, duration)
		}
	}
	return start, end
}

// CropFilter centre-crops to the aspect ratio and scales to its delivery size.
func CropFilter(a types.AspectRatio) string {
	switch a {
	case types.AspectRatioSquare:
		return `crop=min(iw\,ih):min(iw\,ih),scale=1080:1080`
	case types.AspectRatioLandscape:
		return "crop=iw:iw*9/16,scale=1920:1080"
	default:
		return "crop=ih*9/16:ih:(iw-ow)/2:0,scale=1080:1920"
	}
}

// CaptionStyle returns the drawtext style options for default, bold or
// modern captions. Unknown names fall back to default.
func CaptionStyle(name, fontFile string) string {
	opts := []string{"x=(w-text_w)/2", "y=h-th-100", "bordercolor=black"}
	switch name {
	case "bold":
		opts = append(opts, "fontsize=70", "fontcolor=yellow", "borderw=4")
	case "modern":
		opts = append(opts, "fontsize=65", "fontcolor=white", "borderw=3", "box=1", "boxcolor=black@0.5", "boxborderw=10")
	default:
		opts = append(opts, "fontsize=60", "fontcolor=white", "borderw=3")
	}
	if fontFile != "" {
		opts = append(opts, "fontfile="+escapeFilterValue(fontFile))
	}
	return strings.Join(opts, ":")
}

// CaptionFilters shows the words four at a time, timed relative to the clip
// start.
func CaptionFilters(words []types.Word, clipStart float64, style string) []string {
	var filters []string
	for i := 0; i < len(words); i += captionChunk {
		chunk := words[i:min(i+captionChunk, len(words))]
		texts := make([]string, len(chunk))
		for j, w := range chunk {
			texts[j] = w.Text
		}
		from := max(chunk[0].Start-clipStart, 0)
		to := max(chunk[len(chunk)-1].End-clipStart, from)
		filters = append(filters, fmt.Sprintf("drawtext=text='%s':%s:enable='between(t,%s,%s)'",
			escapeText(strings.Join(texts, " ")), style, ffmpeg.FormatSeconds(from), ffmpeg.FormatSeconds(to)))
	}
	return filters
}

// WatermarkFilter draws semi-transparent text in the bottom-right corner.
func WatermarkFilter(text, fontFile string) string {
	f := fmt.Sprintf("drawtext=text='%s':x=w-tw-24:y=h-th-16:fontsize=22:fontcolor=white@0.6:bordercolor=black@0.4:borderw=1", escapeText(text))
	if fontFile != "" {
		f += ":fontfile=" + escapeFilterValue(fontFile)
	}
	return f
}

var textEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`, `%`, `\%`, `,`, `\,`)

func escapeText(s string) string { return textEscaper.Replace(s) }

var valueEscaper = strings.NewReplacer(`\`, `\\`, `:`, `\:`, `,`, `\,`)

func escapeFilterValue(s string) string { return valueEscaper.Replace(s) }
