package types

import "time"

type AspectRatio string

const (
	AspectRatioVertical  AspectRatio = "VERTICAL"
	AspectRatioSquare    AspectRatio = "SQUARE"
	AspectRatioLandscape AspectRatio = "LANDSCAPE"
)

// Ratio is the encoder-facing w:h form.
func (a AspectRatio) Ratio() string {
	switch a {
	case AspectRatioSquare:
		return "1:1"
	case AspectRatioLandscape:
		return "16:9"
	default:
		return "9:16"
	}
}

// ParseAspectRatio accepts either the enum name or the w:h form; anything
// else is vertical.
func ParseAspectRatio(s string) AspectRatio {
	switch s {
	case string(AspectRatioSquare), "1:1":
		return AspectRatioSquare
	case string(AspectRatioLandscape), "16:9":
		return AspectRatioLandscape
	default:
		return AspectRatioVertical
	}
}

type Video struct {
	ID            string      `gorm:"primaryKey;size:36" json:"id"`
	Title         string      `json:"title"`
	DurationSec   float64     `json:"durationSec"`
	StorageKey    string      `json:"storageKey"`
	Transcript    *Transcript `gorm:"serializer:json" json:"transcript,omitempty"`
	Status        VideoStatus `gorm:"size:16;index" json:"status"`
	OwnerID       *string     `gorm:"size:64;index" json:"ownerId,omitempty"`
	Error         *string     `json:"error,omitempty"`
	TranscribedAt *time.Time  `json:"transcribedAt,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

func (Video) TableName() string { return "videos" }

type Clip struct {
	ID               string      `gorm:"primaryKey;size:36" json:"id"`
	VideoID          string      `gorm:"size:36;index" json:"videoId"`
	Title            string      `json:"title"`
	StartTime        float64     `json:"startTime"`
	EndTime          float64     `json:"endTime"`
	Duration         float64     `json:"duration"`
	Confidence       float64     `json:"confidence"`
	Keywords         []string    `gorm:"serializer:json" json:"keywords"`
	Reason           string      `json:"reason"`
	AspectRatio      AspectRatio `gorm:"size:16" json:"aspectRatio"`
	Status           ClipStatus  `gorm:"size:16;index" json:"status"`
	OutputStorageKey *string     `json:"outputStorageKey,omitempty"`
	Error            *string     `json:"error,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

func (Clip) TableName() string { return "clips" }

type JobType string

const (
	JobTypeTranscribe   JobType = "TRANSCRIBE"
	JobTypeGenerateClip JobType = "GENERATE_CLIP"
)

// Job mirrors one queue entry; ID is the queue's task id.
type Job struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Type        JobType    `gorm:"size:16" json:"type"`
	Status      JobStatus  `gorm:"size:16;index" json:"status"`
	VideoID     *string    `gorm:"size:36;index" json:"videoId,omitempty"`
	ClipID      *string    `gorm:"size:36;index" json:"clipId,omitempty"`
	Progress    int        `json:"progress"`
	Error       *string    `json:"error,omitempty"`
	MaxRetries  int        `json:"maxRetries"`
	Attempts    int        `json:"attempts"`
	Priority    int        `json:"priority"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (Job) TableName() string { return "jobs" }
