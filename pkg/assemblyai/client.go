// Package assemblyai transcribes local media files with the AssemblyAI v2
// REST API.
package assemblyai

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"clipforge/internal/types"
	"clipforge/log"
	apperrors "clipforge/pkg/errors"
)

const (
	defaultBaseURL      = "https://api.assemblyai.com"
	defaultPollInterval = 10 * time.Second
	defaultTimeout      = 15 * time.Minute

	statusCompleted = "completed"
	statusError     = "error"
)

// noAudioMarker is how the provider reports a container without a usable
// audio stream.
const noAudioMarker = "does not appear to contain audio"

type Options struct {
	BaseURL      string
	APIKey       string
	PollInterval time.Duration
	Timeout      time.Duration
}

type Client struct {
	http         *resty.Client
	pollInterval time.Duration
	timeout      time.Duration
}

func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetHeader("authorization", opts.APIKey).
			SetTimeout(5 * time.Minute),
		pollInterval: opts.PollInterval,
		timeout:      opts.Timeout,
	}
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptRequest struct {
	AudioURL      string `json:"audio_url"`
	SpeakerLabels bool   `json:"speaker_labels"`
	Punctuate     bool   `json:"punctuate"`
	FormatText    bool   `json:"format_text"`
}

type transcriptWord struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    *string `json:"speaker"`
}

type transcriptResponse struct {
	ID     string           `json:"id"`
	Status string           `json:"status"`
	Text   string           `json:"text"`
	Error  string           `json:"error"`
	Words  []transcriptWord `json:"words"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Transcribe uploads the file, starts a transcript and polls it until the
// provider finishes or the timeout passes. Word times come back in seconds.
func (c *Client) Transcribe(ctx context.Context, mediaPath string) ([]types.Word, error) {
	uploadURL, err := c.upload(ctx, mediaPath)
	if err != nil {
		return nil, err
	}
	id, err := c.start(ctx, uploadURL)
	if err != nil {
		return nil, err
	}
	log.GetLogger().Info("[AssemblyAI] transcript started", zap.String("id", id), zap.String("file", mediaPath))
	return c.wait(ctx, id)
}

func (c *Client) upload(ctx context.Context, mediaPath string) (string, error) {
	f, err := os.Open(mediaPath)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeFileNotFound, "open media", err)
	}
	defer f.Close()

	var out uploadResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(f).
		SetResult(&out).
		SetError(&errorResponse{}).
		Post("/v2/upload")
	if err = checkResponse("upload media", resp, err); err != nil {
		return "", err
	}
	if out.UploadURL == "" {
		return "", apperrors.New(apperrors.CodeTranscribeFailed, "upload returned no url")
	}
	return out.UploadURL, nil
}

func (c *Client) start(ctx context.Context, audioURL string) (string, error) {
	var out transcriptResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(transcriptRequest{AudioURL: audioURL, SpeakerLabels: true, Punctuate: true, FormatText: true}).
		SetResult(&out).
		SetError(&errorResponse{}).
		Post("/v2/transcript")
	if err = checkResponse("start transcript", resp, err); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", apperrors.New(apperrors.CodeTranscribeFailed, "start transcript returned no id")
	}
	return out.ID, nil
}

func (c *Client) get(ctx context.Context, id string) (transcriptResponse, error) {
	var out transcriptResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&out).
		SetError(&errorResponse{}).
		Get("/v2/transcript/{id}")
	return out, checkResponse("get transcript", resp, err)
}

func (c *Client) wait(ctx context.Context, id string) ([]types.Word, error) {
	deadline := time.Now().Add(c.timeout)
	for {
		res, err := c.get(ctx, id)
		if err != nil {
			return nil, err
		}
		switch res.Status {
		case statusCompleted:
			return convertWords(res.Words), nil
		case statusError:
			return nil, transcriptError(res.Error)
		}

		if time.Now().After(deadline) {
			return nil, apperrors.New(apperrors.CodeTranscribeTimeout, fmt.Sprintf("transcript %s not ready after %s", id, c.timeout))
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

func convertWords(in []transcriptWord) []types.Word {
	words := make([]types.Word, 0, len(in))
	for _, w := range in {
		word := types.Word{
			Text:       w.Text,
			Start:      w.Start / 1000,
			End:        w.End / 1000,
			Confidence: w.Confidence,
		}
		if w.Speaker != nil {
			word.Speaker = *w.Speaker
		}
		words = append(words, word)
	}
	return words
}

func transcriptError(msg string) error {
	if msg == "" {
		msg = "transcription failed"
	}
	if strings.Contains(strings.ToLower(msg), noAudioMarker) {
		return apperrors.Wrap(apperrors.CodeNoAudio, msg, apperrors.ErrNoAudio)
	}
	return apperrors.New(apperrors.CodeTranscribeFailed, msg)
}

func checkResponse(op string, resp *resty.Response, err error) error {
	if err != nil {
		return apperrors.Wrap(apperrors.CodeTranscribeFailed, op, err)
	}
	if !resp.IsError() {
		return nil
	}
	msg := strings.TrimSpace(resp.String())
	if e, ok := resp.Error().(*errorResponse); ok && e.Error != "" {
		msg = e.Error
	}
	switch resp.StatusCode() {
	case http.StatusTooManyRequests:
		return apperrors.New(apperrors.CodeRateLimited, fmt.Sprintf("%s: rate limited: %s", op, msg))
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.New(apperrors.CodeUnauthorized, fmt.Sprintf("%s: unauthorized: %s", op, msg))
	}
	if strings.Contains(strings.ToLower(msg), noAudioMarker) {
		return apperrors.Wrap(apperrors.CodeNoAudio, op+": "+msg, apperrors.ErrNoAudio)
	}
	return apperrors.New(apperrors.CodeTranscribeFailed, fmt.Sprintf("%s: status %d: %s", op, resp.StatusCode(), msg))
}
