package render

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipforge/internal/types"
	apperrors "clipforge/pkg/errors"
	"clipforge/pkg/ffmpeg"
)

type fakeEncoder struct {
	info     ffmpeg.MediaInfo
	probeErr error
	runErr   error
	drawtext bool

	args         []string
	filterChecks int
}

func (f *fakeEncoder) Probe(context.Context, string) (ffmpeg.MediaInfo, error) {
	return f.info, f.probeErr
}

func (f *fakeEncoder) Run(_ context.Context, args ...string) error {
	f.args = args
	return f.runErr
}

func (f *fakeEncoder) HasFilter(context.Context, string) bool {
	f.filterChecks++
	return f.drawtext
}

func (f *fakeEncoder) arg(name string) string {
	for i, a := range f.args {
		if a == name && i+1 < len(f.args) {
			return f.args[i+1]
		}
	}
	return ""
}

func TestRenderClampsToSourceDuration(t *testing.T) {
	enc := &fakeEncoder{info: ffmpeg.MediaInfo{Duration: 30}}

	res, err := New(enc, Options{}).Render(context.Background(), Request{
		SourcePath: "in.mp4", OutputPath: "out.mp4", Start: -5, End: 1000, AspectRatio: types.AspectRatioVertical,
	})

	require.NoError(t, err)
	assert.Equal(t, Result{Start: 0, End: 30}, res)
	assert.Equal(t, "0.000", enc.arg("-ss"))
	assert.Equal(t, "30.000", enc.arg("-t"))
	assert.Equal(t, "crop=ih*9/16:ih:(iw-ow)/2:0,scale=1080:1920", enc.arg("-vf"))
	assert.Equal(t, "libx264", enc.arg("-c:v"))
	assert.Equal(t, "+faststart", enc.arg("-movflags"))
	assert.Equal(t, "out.mp4", enc.args[len(enc.args)-1])
}

func TestClampRange(t *testing.T) {
	testCases := []struct {
		name                 string
		start, end, duration float64
		wantStart, wantEnd   float64
	}{
		{"inside", 5, 20, 30, 5, 20},
		{"both out of range", -5, 1000, 30, 0, 30},
		{"too short is widened", 10, 10.2, 30, 10, 11},
		{"start past the end", 40, 50, 30, 29, 30},
		{"reversed", 20, 5, 30, 20, 21},
		{"unknown duration", -3, 0.5, 0, 0, 1},
		{"unknown duration keeps end", 12, 90, 0, 12, 90},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, e := ClampRange(tc.start, tc.end, tc.duration)
			assert.InDelta(t, tc.wantStart, s, 1e-9)
			assert.InDelta(t, tc.wantEnd, e, 1e-9)
		})
	}
}

func TestClampRangeStaysInBounds(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	for i := 0; i < 2000; i++ {
		duration := 1 + r.Float64()*600
		start := r.Float64()*800 - 100
		end := r.Float64()*800 - 100

		s, e := ClampRange(start, end, duration)

		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, e, duration)
		assert.GreaterOrEqual(t, e-s, minClipSec-1e-9)
	}
}

func TestCropFilter(t *testing.T) {
	assert.Equal(t, `crop=min(iw\,ih):min(iw\,ih),scale=1080:1080`, CropFilter(types.AspectRatioSquare))
	assert.Equal(t, "crop=iw:iw*9/16,scale=1920:1080", CropFilter(types.AspectRatioLandscape))
	assert.Equal(t, "crop=ih*9/16:ih:(iw-ow)/2:0,scale=1080:1920", CropFilter(""))
}

func TestCaptionFiltersChunkWords(t *testing.T) {
	words := []types.Word{
		{Text: "one", Start: 10, End: 10.5}, {Text: "two", Start: 10.5, End: 11},
		{Text: "three", Start: 11, End: 11.5}, {Text: "four", Start: 11.5, End: 12},
		{Text: "it's", Start: 12, End: 12.5},
	}

	filters := CaptionFilters(words, 10, "fontsize=60")

	require.Len(t, filters, 2)
	assert.Equal(t, "drawtext=text='one two three four':fontsize=60:enable='between(t,0.000,2.000)'", filters[0])
	assert.Equal(t, `drawtext=text='it\'s':fontsize=60:enable='between(t,2.000,2.500)'`, filters[1])
}

func TestCaptionStyle(t *testing.T) {
	assert.Contains(t, CaptionStyle("bold", ""), "fontcolor=yellow")
	assert.Contains(t, CaptionStyle("modern", ""), "box=1")
	assert.Contains(t, CaptionStyle("nope", ""), "fontsize=60")
	assert.Contains(t, CaptionStyle("", `C:\Fonts\a.ttf`), `fontfile=C\:\\Fonts\\a.ttf`)
}

func TestRenderOverlaysWhenDrawtextAvailable(t *testing.T) {
	enc := &fakeEncoder{info: ffmpeg.MediaInfo{Duration: 60}, drawtext: true}
	r := New(enc, Options{EnableCaptions: true, CaptionStyle: "modern", WatermarkText: "demo: 100%"})
	req := Request{
		SourcePath: "in.mp4", OutputPath: "out.mp4", Start: 10, End: 20, AspectRatio: types.AspectRatioSquare,
		Words: []types.Word{{Text: "hello", Start: 10, End: 11}}, Watermark: true,
	}

	_, err := r.Render(context.Background(), req)
	require.NoError(t, err)
	_, err = r.Render(context.Background(), req)
	require.NoError(t, err)

	vf := enc.arg("-vf")
	assert.True(t, strings.HasPrefix(vf, "crop=min"))
	assert.Contains(t, vf, "drawtext=text='hello'")
	assert.Contains(t, vf, `drawtext=text='demo\: 100\%'`)
	assert.Equal(t, 1, enc.filterChecks)
}

func TestRenderSkipsOverlaysWithoutDrawtext(t *testing.T) {
	enc := &fakeEncoder{info: ffmpeg.MediaInfo{Duration: 60}}
	r := New(enc, Options{EnableCaptions: true})

	_, err := r.Render(context.Background(), Request{
		Start: 0, End: 10, Words: []types.Word{{Text: "hi", Start: 0, End: 1}}, Watermark: true,
	})

	require.NoError(t, err)
	assert.NotContains(t, enc.arg("-vf"), "drawtext")
}

func TestRenderCaptionsDisabledSkipsCapabilityCheck(t *testing.T) {
	enc := &fakeEncoder{info: ffmpeg.MediaInfo{Duration: 60}, drawtext: true}

	_, err := New(enc, Options{}).Render(context.Background(), Request{
		Start: 0, End: 10, Words: []types.Word{{Text: "hi", Start: 0, End: 1}},
	})

	require.NoError(t, err)
	assert.NotContains(t, enc.arg("-vf"), "drawtext")
	assert.Zero(t, enc.filterChecks)
}

func TestRenderErrors(t *testing.T) {
	probeErr := apperrors.New(apperrors.CodeUnsupportedMedia, "ffprobe could not read media")
	_, err := New(&fakeEncoder{probeErr: probeErr}, Options{}).Render(context.Background(), Request{End: 10})
	assert.True(t, errors.Is(err, probeErr))

	_, err = New(&fakeEncoder{info: ffmpeg.MediaInfo{Duration: 60}, runErr: errors.New("exit status 1")}, Options{}).
		Render(context.Background(), Request{End: 10})
	assert.True(t, apperrors.Is(err, apperrors.CodeRenderFailed))
}
