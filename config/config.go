package config

import (
	"bytes"
	"clipforge/internal/appdirs"
	"clipforge/log"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

type App struct {
	MaxClips    int    `toml:"max_clips"`
	AspectRatio string `toml:"aspect_ratio"`
	WorkDir     string `toml:"work_dir"`
	// LogLevel applies to console output; the log file always records debug.
	LogLevel string `toml:"log_level"`
}

type Server struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type Queue struct {
	// Backend is "asynq" (Redis) or "memory" (single process).
	Backend                string `toml:"backend"`
	Concurrency            int    `toml:"concurrency"`
	MaxRetry               int    `toml:"max_retry"`
	RetryBaseDelaySec      int    `toml:"retry_base_delay_sec"`
	TranscribeTimeoutMin   int    `toml:"transcribe_timeout_min"`
	GenerateClipTimeoutMin int    `toml:"generate_clip_timeout_min"`
}

type Database struct {
	Path string `toml:"path"`
}

type OSS struct {
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	Bucket          string `toml:"bucket"`
	AccessKeyID     string `toml:"access_key_id"`
	AccessKeySecret string `toml:"access_key_secret"`
}

type Storage struct {
	// Provider is "local" or "oss".
	Provider      string `toml:"provider"`
	LocalRoot     string `toml:"local_root"`
	PendingPrefix string `toml:"pending_prefix"`
	OSS           OSS    `toml:"oss"`
}

type AssemblyAI struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

type AliyunASR struct {
	AccessKeyID     string `toml:"access_key_id"`
	AccessKeySecret string `toml:"access_key_secret"`
	AppKey          string `toml:"app_key"`
	Region          string `toml:"region"`
}

type Transcribe struct {
	// Provider is "assemblyai" or "aliyun".
	Provider        string     `toml:"provider"`
	PollIntervalSec int        `toml:"poll_interval_sec"`
	TimeoutMin      int        `toml:"timeout_min"`
	AssemblyAI      AssemblyAI `toml:"assemblyai"`
	Aliyun          AliyunASR  `toml:"aliyun"`
}

type LLM struct {
	BaseURL    string `toml:"base_url"`
	APIKey     string `toml:"api_key"`
	Model      string `toml:"model"`
	TimeoutSec int    `toml:"timeout_sec"`
	Proxy      string `toml:"proxy"`
}

type Clipper struct {
	MinSegmentSec          float64 `toml:"min_segment_sec"`
	MaxSegmentSec          float64 `toml:"max_segment_sec"`
	MaxGapSec              float64 `toml:"max_gap_sec"`
	MaxSentencesPerSegment int     `toml:"max_sentences_per_segment"`
	MinCandidateSec        float64 `toml:"min_candidate_sec"`
	MaxCandidateSec        float64 `toml:"max_candidate_sec"`
	MaxSentencesPerRun     int     `toml:"max_sentences_per_run"`
	MaxCandidates          int     `toml:"max_candidates"`
	MinHookPayoffScore     float64 `toml:"min_hook_payoff_score"`
	EnableBeats            bool    `toml:"enable_beats"`
	EnableRefine           bool    `toml:"enable_refine"`
}

type Render struct {
	FfmpegPath     string `toml:"ffmpeg_path"`
	FfprobePath    string `toml:"ffprobe_path"`
	EnableCaptions bool   `toml:"enable_captions"`
	CaptionStyle   string `toml:"caption_style"`
	Watermark      bool   `toml:"watermark"`
	WatermarkText  string `toml:"watermark_text"`
	FontFile       string `toml:"font_file"`
}

type Config struct {
	App        App        `toml:"app"`
	Server     Server     `toml:"server"`
	Redis      Redis      `toml:"redis"`
	Queue      Queue      `toml:"queue"`
	Database   Database   `toml:"database"`
	Storage    Storage    `toml:"storage"`
	Transcribe Transcribe `toml:"transcribe"`
	LLM        LLM        `toml:"llm"`
	Clipper    Clipper    `toml:"clipper"`
	Render     Render     `toml:"render"`
}

var Conf = defaultConfig()

var resolveConfigPath = defaultResolveConfigPath

func defaultConfig() Config {
	return Config{
		App: App{
			MaxClips:    10,
			AspectRatio: "VERTICAL",
			LogLevel:    "info",
		},
		Server: Server{
			Host: "127.0.0.1",
			Port: 8888,
		},
		Redis: Redis{
			Addr: "localhost:6379",
		},
		Queue: Queue{
			Backend:                "asynq",
			Concurrency:            3,
			MaxRetry:               3,
			RetryBaseDelaySec:      10,
			TranscribeTimeoutMin:   30,
			GenerateClipTimeoutMin: 15,
		},
		Storage: Storage{
			Provider:      "local",
			PendingPrefix: "pending/",
		},
		Transcribe: Transcribe{
			Provider:        "assemblyai",
			PollIntervalSec: 10,
			TimeoutMin:      15,
			AssemblyAI: AssemblyAI{
				BaseURL: "https://api.assemblyai.com",
			},
			Aliyun: AliyunASR{
				Region: "cn-shanghai",
			},
		},
		LLM: LLM{
			BaseURL:    "https://api.openai.com/v1",
			Model:      "gpt-4o-mini",
			TimeoutSec: 120,
		},
		Clipper: Clipper{
			MinSegmentSec:          15,
			MaxSegmentSec:          60,
			MaxGapSec:              2,
			MaxSentencesPerSegment: 4,
			MinCandidateSec:        25,
			MaxCandidateSec:        70,
			MaxSentencesPerRun:     6,
			MaxCandidates:          200,
			MinHookPayoffScore:     6,
			EnableBeats:            true,
			EnableRefine:           true,
		},
		Render: Render{
			FfmpegPath:    "ffmpeg",
			FfprobePath:   "ffprobe",
			CaptionStyle:  "default",
			WatermarkText: "clipforge",
		},
	}
}

func defaultResolveConfigPath() (string, error) {
	dirs, err := appdirs.Resolve()
	if err != nil {
		return "", err
	}
	return dirs.ConfigFile, nil
}

func ResolveConfigPath() (string, error) {
	return resolveConfigPath()
}

// LoadOrCreateConfig reads the config file into Conf, writing the defaults
// first when the file does not exist. created reports the latter.
func LoadOrCreateConfig() (created bool, err error) {
	path, err := resolveConfigPath()
	if err != nil {
		return false, fmt.Errorf("resolve config path: %w", err)
	}

	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		Conf = defaultConfig()
		if err = SaveConfig(); err != nil {
			return false, err
		}
		log.GetLogger().Info("Config file created with defaults", zap.String("path", path))
		applyEnv(&Conf)
		return true, nil
	}

	loaded := defaultConfig()
	if _, err = toml.DecodeFile(path, &loaded); err != nil {
		return false, fmt.Errorf("decode config %s: %w", path, err)
	}
	Conf = loaded
	applyEnv(&Conf)
	log.GetLogger().Info("Config loaded", zap.String("path", path))
	return false, nil
}

// SaveConfig writes Conf to the resolved config path.
func SaveConfig() error {
	path, err := resolveConfigPath()
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var buf bytes.Buffer
	if err = toml.NewEncoder(&buf).Encode(Conf); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// CheckConfig validates the settings the worker cannot start without.
func CheckConfig() error {
	switch Conf.Queue.Backend {
	case "asynq":
		if strings.TrimSpace(Conf.Redis.Addr) == "" {
			return errors.New("redis.addr is required for the asynq queue backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown queue.backend %q", Conf.Queue.Backend)
	}

	switch Conf.Storage.Provider {
	case "local":
	case "oss":
		if Conf.Storage.OSS.Bucket == "" || Conf.Storage.OSS.Region == "" {
			return errors.New("storage.oss.bucket and storage.oss.region are required")
		}
	default:
		return fmt.Errorf("unknown storage.provider %q", Conf.Storage.Provider)
	}

	switch Conf.Transcribe.Provider {
	case "assemblyai":
		if Conf.Transcribe.AssemblyAI.APIKey == "" {
			return errors.New("transcribe.assemblyai.api_key is required")
		}
	case "aliyun":
		a := Conf.Transcribe.Aliyun
		if a.AccessKeyID == "" || a.AccessKeySecret == "" || a.AppKey == "" {
			return errors.New("transcribe.aliyun access_key_id, access_key_secret and app_key are required")
		}
		if Conf.Storage.Provider != "oss" {
			return errors.New("transcribe.provider aliyun needs storage.provider oss for file links")
		}
	default:
		return fmt.Errorf("unknown transcribe.provider %q", Conf.Transcribe.Provider)
	}

	if Conf.LLM.APIKey == "" {
		return errors.New("llm.api_key is required")
	}
	if Conf.App.MaxClips <= 0 {
		return errors.New("app.max_clips must be positive")
	}
	if Conf.Clipper.MinSegmentSec > Conf.Clipper.MaxSegmentSec {
		return errors.New("clipper.min_segment_sec must not exceed clipper.max_segment_sec")
	}
	return nil
}

// applyEnv lets secrets and endpoints come from the environment instead of
// the config file.
func applyEnv(c *Config) {
	setString(&c.App.LogLevel, "CLIPFORGE_LOG_LEVEL")
	setString(&c.Redis.Addr, "CLIPFORGE_REDIS_ADDR")
	setString(&c.Redis.Password, "CLIPFORGE_REDIS_PASSWORD")
	setInt(&c.Redis.DB, "CLIPFORGE_REDIS_DB")
	setString(&c.Queue.Backend, "CLIPFORGE_QUEUE_BACKEND")
	setString(&c.Database.Path, "CLIPFORGE_DB_PATH")
	setString(&c.LLM.APIKey, "OPENAI_API_KEY")
	setString(&c.LLM.BaseURL, "OPENAI_BASE_URL")
	setString(&c.Transcribe.AssemblyAI.APIKey, "ASSEMBLYAI_API_KEY")
	setString(&c.Transcribe.Aliyun.AccessKeyID, "ALIYUN_ACCESS_KEY_ID")
	setString(&c.Transcribe.Aliyun.AccessKeySecret, "ALIYUN_ACCESS_KEY_SECRET")
	setString(&c.Storage.OSS.AccessKeyID, "ALIYUN_ACCESS_KEY_ID")
	setString(&c.Storage.OSS.AccessKeySecret, "ALIYUN_ACCESS_KEY_SECRET")
	if v := strings.TrimSpace(os.Getenv("ENABLE_FFMPEG_CAPTIONS")); v != "" {
		c.Render.EnableCaptions = v == "1" || strings.EqualFold(v, "true")
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
