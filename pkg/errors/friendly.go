package errors

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// FriendlyError is the user-facing rendering of a raw job error.
type FriendlyError struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Action  string `json:"action"`
}

type friendlyPattern struct {
	re     *regexp.Regexp
	result FriendlyError
}

const excerptLimit = 120

// Order matters: the first matching category wins.
var friendlyPatterns = []friendlyPattern{
	{
		re: regexp.MustCompile(`(?i)does not appear to contain audio|no audio|no speech|empty audio|no valid fragment`),
		result: FriendlyError{
			Title:   "No audio detected",
			Message: "This video has no detectable speech or audio. Transcription needs spoken content to generate clips.",
			Action:  "Upload a video with clear speech, or check that the audio track isn't muted.",
		},
	},
	{
		re: regexp.MustCompile(`(?i)assemblyai|assembly ai|filetrans|transcription.*(?:failed|error)`),
		result: FriendlyError{
			Title:   "Transcription service error",
			Message: "We couldn't process your video with the transcription service.",
			Action:  "Try again in a few minutes. If it keeps failing, contact support.",
		},
	},
	{
		re: regexp.MustCompile(`(?i)rate limit|429|too many requests|quota`),
		result: FriendlyError{
			Title:   "Too many requests",
			Message: "The service is receiving a lot of traffic right now.",
			Action:  "Wait a few minutes and try again.",
		},
	},
	{
		re: regexp.MustCompile(`(?i)unauthorized|401|invalid.*api.*key|authentication`),
		result: FriendlyError{
			Title:   "Service configuration error",
			Message: "An upstream service isn't configured correctly.",
			Action:  "Please contact support.",
		},
	},
	{
		re: regexp.MustCompile(`(?i)\boss\b|storage|download|file not found|no such key|nosuchkey|access denied|no such file`),
		result: FriendlyError{
			Title:   "Couldn't access your video",
			Message: "We couldn't read the video file from storage.",
			Action:  "Try deleting this video and uploading it again.",
		},
	},
	{
		re: regexp.MustCompile(`(?i)ffmpeg|ffprobe|invalid data|codec|format.*not supported|unsupported format|unsupported or corrupted`),
		result: FriendlyError{
			Title:   "Video format issue",
			Message: "This video file may be corrupted or in an unsupported format.",
			Action:  "Re-export your video as MP4 and upload again.",
		},
	},
	{
		re: regexp.MustCompile(`(?i)redis|asynq|econnreset|econnrefused|connection.*refused|connection reset`),
		result: FriendlyError{
			Title:   "Service temporarily unavailable",
			Message: "The processing queue isn't responding.",
			Action:  "Try again in a few minutes.",
		},
	},
	{
		re: regexp.MustCompile(`(?i)gorm|sqlite|database|connection.*timeout`),
		result: FriendlyError{
			Title:   "Database error",
			Message: "We couldn't save or load your video data.",
			Action:  "Try again in a few minutes. If it persists, contact support.",
		},
	},
	{
		re: regexp.MustCompile(`(?i)video.*not found`),
		result: FriendlyError{
			Title:   "Video not found",
			Message: "This video may have been deleted or moved.",
			Action:  "Go back to your videos and try uploading again.",
		},
	},
	{
		re: regexp.MustCompile(`(?i)timeout|timed out|deadline exceeded`),
		result: FriendlyError{
			Title:   "Processing took too long",
			Message: "The video took longer than expected to process.",
			Action:  "Try again. For very long videos, consider splitting them first.",
		},
	},
}

// Friendly maps a raw error message onto an actionable message for users.
func Friendly(raw string) FriendlyError {
	msg := strings.TrimSpace(raw)
	if msg == "" {
		return FriendlyError{
			Title:   "Processing failed",
			Message: "Something went wrong while processing your video.",
			Action:  "Try deleting this video and uploading it again. If the problem continues, contact support.",
		}
	}

	for _, p := range friendlyPatterns {
		if p.re.MatchString(msg) {
			return p.result
		}
	}

	return FriendlyError{
		Title:   "Processing failed",
		Message: "We ran into an issue while processing your video.",
		Action:  `Try uploading again. If it keeps failing, contact support and mention: "` + excerpt(msg) + `"`,
	}
}

func excerpt(msg string) string {
	if utf8.RuneCountInString(msg) <= excerptLimit {
		return msg
	}
	return string([]rune(msg)[:excerptLimit]) + "…"
}
