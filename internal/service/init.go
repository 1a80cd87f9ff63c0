package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"clipforge/config"
	"clipforge/internal/blob"
	"clipforge/internal/clipper"
	"clipforge/internal/render"
	"clipforge/internal/storage"
	"clipforge/internal/types"
	"clipforge/log"
	"clipforge/pkg/aliyun"
	"clipforge/pkg/assemblyai"
	"clipforge/pkg/ffmpeg"
	"clipforge/pkg/openai"
)

// Media is the part of the encoder the orchestrator uses directly.
type Media interface {
	Probe(ctx context.Context, path string) (ffmpeg.MediaInfo, error)
	ExtractAudio(ctx context.Context, in, out string) error
}

type Renderer interface {
	Render(ctx context.Context, req render.Request) (render.Result, error)
}

type Options struct {
	PendingPrefix string
	AspectRatio   types.AspectRatio
	Watermark     bool
	MaxRetry      int
	MaxClips      int
	Limits        ffmpeg.Limits
	// WorkRoot holds per-job scratch dirs; empty resolves to the cache dir.
	WorkRoot string
}

func DefaultOptions() Options {
	return Options{
		PendingPrefix: "pending/",
		AspectRatio:   types.AspectRatioVertical,
		MaxRetry:      3,
		MaxClips:      10,
		Limits:        ffmpeg.DefaultLimits(),
	}
}

// Service is the job orchestrator. It owns every write to Video, Clip and
// Job status.
type Service struct {
	Repo        *storage.Repository
	Store       blob.Store
	Transcriber types.Transcriber
	Pipeline    *clipper.Pipeline
	Media       Media
	Renderer    Renderer
	Queue       types.Enqueuer

	opts Options
}

func New(s Service, opts Options) *Service {
	d := DefaultOptions()
	if opts.PendingPrefix == "" {
		opts.PendingPrefix = d.PendingPrefix
	}
	if opts.AspectRatio == "" {
		opts.AspectRatio = d.AspectRatio
	}
	if opts.MaxRetry <= 0 {
		opts.MaxRetry = d.MaxRetry
	}
	if opts.MaxClips <= 0 {
		opts.MaxClips = d.MaxClips
	}
	if opts.Limits == (ffmpeg.Limits{}) {
		opts.Limits = d.Limits
	}
	s.opts = opts
	return &s
}

// NewFromConfig wires the providers selected in config.Conf. The queue is
// passed in because the worker and the API share it.
func NewFromConfig(repo *storage.Repository, q types.Enqueuer) (*Service, error) {
	conf := config.Conf

	store, oss, err := newStore(conf.Storage)
	if err != nil {
		return nil, err
	}

	var transcriber types.Transcriber
	pollInterval := time.Duration(conf.Transcribe.PollIntervalSec) * time.Second
	timeout := time.Duration(conf.Transcribe.TimeoutMin) * time.Minute
	switch conf.Transcribe.Provider {
	case "assemblyai":
		transcriber = assemblyai.NewClient(assemblyai.Options{
			BaseURL:      conf.Transcribe.AssemblyAI.BaseURL,
			APIKey:       conf.Transcribe.AssemblyAI.APIKey,
			PollInterval: pollInterval,
			Timeout:      timeout,
		})
	case "aliyun":
		if oss == nil {
			return nil, fmt.Errorf("aliyun transcription needs the oss storage provider")
		}
		a := conf.Transcribe.Aliyun
		transcriber, err = aliyun.NewFileTransClient(aliyun.FileTransOptions{
			AccessKeyID:     a.AccessKeyID,
			AccessKeySecret: a.AccessKeySecret,
			AppKey:          a.AppKey,
			Region:          a.Region,
			PollInterval:    pollInterval,
			Timeout:         timeout,
		}, oss)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown transcribe provider %q", conf.Transcribe.Provider)
	}
	log.GetLogger().Info("[Service] transcription provider selected", zap.String("provider", conf.Transcribe.Provider))

	llm := openai.NewClient(openai.Options{
		BaseURL: conf.LLM.BaseURL,
		APIKey:  conf.LLM.APIKey,
		Model:   conf.LLM.Model,
		Proxy:   conf.LLM.Proxy,
		Timeout: time.Duration(conf.LLM.TimeoutSec) * time.Second,
	})
	media := ffmpeg.New(conf.Render.FfmpegPath, conf.Render.FfprobePath)

	return New(Service{
		Repo:        repo,
		Store:       store,
		Transcriber: transcriber,
		Pipeline:    clipper.NewPipeline(llm, clipper.OptionsFromConfig(conf.Clipper, conf.App.MaxClips)),
		Media:       media,
		Renderer:    render.New(media, render.OptionsFromConfig(conf.Render)),
		Queue:       q,
	}, Options{
		PendingPrefix: conf.Storage.PendingPrefix,
		AspectRatio:   types.ParseAspectRatio(conf.App.AspectRatio),
		Watermark:     conf.Render.Watermark,
		MaxRetry:      conf.Queue.MaxRetry,
		MaxClips:      conf.App.MaxClips,
		WorkRoot:      conf.App.WorkDir,
	}), nil
}

// newStore returns the configured blob store, plus the OSS store itself when
// that is the provider.
func newStore(c config.Storage) (blob.Store, *aliyun.OSSStore, error) {
	switch c.Provider {
	case "oss":
		oss := aliyun.NewOSSStore(aliyun.OSSOptions{
			Region:          c.OSS.Region,
			Endpoint:        c.OSS.Endpoint,
			Bucket:          c.OSS.Bucket,
			AccessKeyID:     c.OSS.AccessKeyID,
			AccessKeySecret: c.OSS.AccessKeySecret,
		})
		return oss, oss, nil
	case "local", "":
		root := strings.TrimSpace(c.LocalRoot)
		if root == "" {
			var err error
			if root, err = resolveBlobRoot(); err != nil {
				return nil, nil, err
			}
		}
		store, err := blob.NewLocalStore(root)
		return store, nil, err
	default:
		return nil, nil, fmt.Errorf("unknown storage provider %q", c.Provider)
	}
}
