package aliyun

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aliyun/alibaba-cloud-sdk-go/sdk"
	"github.com/aliyun/alibaba-cloud-sdk-go/sdk/requests"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"clipforge/internal/types"
	"clipforge/log"
	apperrors "clipforge/pkg/errors"
)

const (
	fileTransProduct = "nls-filetrans"
	fileTransVersion = "2018-08-17"

	statusSuccess         = "SUCCESS"
	statusNoValidFragment = "SUCCESS_WITH_NO_VALID_FRAGMENT"
	statusRunning         = "RUNNING"
	statusQueueing        = "QUEUEING"

	defaultPollInterval = 10 * time.Second
	defaultTimeout      = 15 * time.Minute
	linkExpiry          = time.Hour
	stagingPrefix       = "asr-staging/"
)

// requestDoer sends one CommonRequest and returns the HTTP status and body.
type requestDoer func(req *requests.CommonRequest) (int, string, error)

// objectLinker stages a local file somewhere the ASR service can fetch it.
type objectLinker interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}

type FileTransOptions struct {
	AccessKeyID     string
	AccessKeySecret string
	AppKey          string
	Region          string
	PollInterval    time.Duration
	Timeout         time.Duration
}

// FileTransClient transcribes through the NLS file transcription API. The
// media is staged in OSS and passed to the service as a presigned link.
type FileTransClient struct {
	do           requestDoer
	linker       objectLinker
	appKey       string
	domain       string
	pollInterval time.Duration
	timeout      time.Duration
}

func NewFileTransClient(opts FileTransOptions, linker objectLinker) (*FileTransClient, error) {
	if opts.Region == "" {
		opts.Region = "cn-shanghai"
	}
	client, err := sdk.NewClientWithAccessKey(opts.Region, opts.AccessKeyID, opts.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("create nls client: %w", err)
	}
	do := func(req *requests.CommonRequest) (int, string, error) {
		resp, err := client.ProcessCommonRequest(req)
		if err != nil {
			return 0, "", err
		}
		return resp.GetHttpStatus(), resp.GetHttpContentString(), nil
	}
	return newFileTransClient(opts, linker, do), nil
}

func newFileTransClient(opts FileTransOptions, linker objectLinker, do requestDoer) *FileTransClient {
	if opts.Region == "" {
		opts.Region = "cn-shanghai"
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &FileTransClient{
		do:           do,
		linker:       linker,
		appKey:       opts.AppKey,
		domain:       fmt.Sprintf("filetrans.%s.aliyuncs.com", opts.Region),
		pollInterval: opts.PollInterval,
		timeout:      opts.Timeout,
	}
}

type fileTransTask struct {
	AppKey      string `json:"appkey"`
	FileLink    string `json:"file_link"`
	Version     string `json:"version"`
	EnableWords bool   `json:"enable_words"`
}

type taskResponse struct {
	TaskID     string     `json:"TaskId"`
	StatusText string     `json:"StatusText"`
	StatusCode int        `json:"StatusCode"`
	Result     taskResult `json:"Result"`
}

type taskResult struct {
	Sentences []resultSentence `json:"Sentences"`
	Words     []resultWord     `json:"Words"`
}

type resultSentence struct {
	Text      string `json:"Text"`
	BeginTime int64  `json:"BeginTime"`
	EndTime   int64  `json:"EndTime"`
	ChannelID int    `json:"ChannelId"`
}

type resultWord struct {
	Word      string `json:"Word"`
	BeginTime int64  `json:"BeginTime"`
	EndTime   int64  `json:"EndTime"`
	ChannelID int    `json:"ChannelId"`
}

func (c *FileTransClient) Transcribe(ctx context.Context, mediaPath string) ([]types.Word, error) {
	link, cleanup, err := c.stage(ctx, mediaPath)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	taskID, err := c.submit(link)
	if err != nil {
		return nil, err
	}
	log.GetLogger().Info("[Aliyun] file transcription submitted", zap.String("taskId", taskID))
	return c.wait(ctx, taskID)
}

func (c *FileTransClient) stage(ctx context.Context, mediaPath string) (string, func(), error) {
	f, err := os.Open(mediaPath)
	if err != nil {
		return "", nil, apperrors.Wrap(apperrors.CodeFileNotFound, "open media", err)
	}
	defer f.Close()

	key := stagingPrefix + uuid.NewString() + filepath.Ext(mediaPath)
	if err = c.linker.Upload(ctx, key, f, "application/octet-stream"); err != nil {
		return "", nil, err
	}
	cleanup := func() {
		if err := c.linker.Delete(context.Background(), key); err != nil {
			log.GetLogger().Warn("[Aliyun] failed to delete staged media", zap.String("key", key), zap.Error(err))
		}
	}
	link, err := c.linker.PresignGet(ctx, key, linkExpiry)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	return link, cleanup, nil
}

func (c *FileTransClient) newRequest(apiName, method string) *requests.CommonRequest {
	req := requests.NewCommonRequest()
	req.Domain = c.domain
	req.Version = fileTransVersion
	req.Product = fileTransProduct
	req.ApiName = apiName
	req.Method = method
	return req
}

func (c *FileTransClient) submit(link string) (string, error) {
	task, err := json.Marshal(fileTransTask{AppKey: c.appKey, FileLink: link, Version: "4.0", EnableWords: true})
	if err != nil {
		return "", err
	}
	req := c.newRequest("SubmitTask", "POST")
	req.FormParams["Task"] = string(task)

	res, err := c.call("submit task", req)
	if err != nil {
		return "", err
	}
	if res.StatusText != statusSuccess || res.TaskID == "" {
		return "", apperrors.New(apperrors.CodeTranscribeFailed, "submit task: "+res.StatusText)
	}
	return res.TaskID, nil
}

func (c *FileTransClient) wait(ctx context.Context, taskID string) ([]types.Word, error) {
	deadline := time.Now().Add(c.timeout)
	for {
		req := c.newRequest("GetTaskResult", "GET")
		req.QueryParams["TaskId"] = taskID
		res, err := c.call("get task result", req)
		if err != nil {
			return nil, err
		}

		switch res.StatusText {
		case statusSuccess:
			return convertResult(res.Result), nil
		case statusNoValidFragment:
			return nil, apperrors.Wrap(apperrors.CodeNoAudio, "no valid speech fragment", apperrors.ErrNoAudio)
		case statusRunning, statusQueueing:
		default:
			return nil, apperrors.New(apperrors.CodeTranscribeFailed, "file transcription failed: "+res.StatusText)
		}

		if time.Now().After(deadline) {
			return nil, apperrors.New(apperrors.CodeTranscribeTimeout, fmt.Sprintf("task %s not ready after %s", taskID, c.timeout))
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *FileTransClient) call(op string, req *requests.CommonRequest) (taskResponse, error) {
	var res taskResponse
	status, body, err := c.do(req)
	if err != nil {
		return res, apperrors.Wrap(apperrors.CodeTranscribeFailed, op, err)
	}
	if status == http.StatusTooManyRequests {
		return res, apperrors.New(apperrors.CodeRateLimited, op+": rate limited")
	}
	if status != http.StatusOK {
		return res, apperrors.New(apperrors.CodeTranscribeFailed, fmt.Sprintf("%s: status %d: %s", op, status, body))
	}
	if err = json.Unmarshal([]byte(body), &res); err != nil {
		return res, apperrors.Wrap(apperrors.CodeTranscribeFailed, op+": decode response", err)
	}
	return res, nil
}

// convertResult turns the service's millisecond timings into words. Word
// entries carry no punctuation, so each sentence's closing mark is moved onto
// its last word. Results without word entries fall back to spreading each
// sentence's tokens evenly over its span.
func convertResult(r taskResult) []types.Word {
	var words []types.Word
	for _, s := range r.Sentences {
		inside := wordsWithin(r.Words, s)
		if len(inside) == 0 {
			words = append(words, spreadSentence(s)...)
			continue
		}
		for _, w := range inside {
			words = append(words, types.Word{
				Text:       w.Word,
				Start:      msToSec(w.BeginTime),
				End:        msToSec(w.EndTime),
				Confidence: 1,
				Speaker:    speaker(s.ChannelID),
			})
		}
		if mark, ok := closingMark(s.Text); ok && !types.EndsSentence(words[len(words)-1].Text) {
			words[len(words)-1].Text += mark
		}
	}
	return words
}

func wordsWithin(all []resultWord, s resultSentence) []resultWord {
	var out []resultWord
	for _, w := range all {
		if w.ChannelID == s.ChannelID && w.BeginTime >= s.BeginTime && w.EndTime <= s.EndTime {
			out = append(out, w)
		}
	}
	return out
}

func spreadSentence(s resultSentence) []types.Word {
	tokens := strings.Fields(s.Text)
	if len(tokens) == 0 {
		return nil
	}
	start, end := msToSec(s.BeginTime), msToSec(s.EndTime)
	step := (end - start) / float64(len(tokens))
	out := make([]types.Word, len(tokens))
	for i, tok := range tokens {
		out[i] = types.Word{
			Text:       tok,
			Start:      start + float64(i)*step,
			End:        start + float64(i+1)*step,
			Confidence: 1,
			Speaker:    speaker(s.ChannelID),
		}
	}
	out[len(out)-1].End = end
	return out
}

func closingMark(text string) (string, bool) {
	t := strings.TrimSpace(text)
	if !types.EndsSentence(t) {
		return "", false
	}
	r := []rune(t)
	return string(r[len(r)-1]), true
}

func speaker(channel int) string {
	return strconv.Itoa(channel)
}

func msToSec(ms int64) float64 {
	return float64(ms) / 1000
}
