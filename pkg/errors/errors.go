// Package errors provides structured error handling for the application.
// It defines AppError type with error codes for consistent API responses,
// and marks which failures the job queue must not retry.
package errors

import (
	"errors"
	"fmt"
)

// Error codes organized by category
const (
	// General errors (1000-1099)
	CodeSuccess       = 0
	CodeUnknown       = 1000
	CodeInvalidParams = 1001
	CodeNotFound      = 1002
	CodeUnauthorized  = 1003
	CodeInvalidState  = 1004

	// Media errors (1100-1199)
	CodeVideoNotFound     = 1100
	CodeClipNotFound      = 1101
	CodeNoAudio           = 1102
	CodeUnsupportedMedia  = 1103
	CodeAudioExtract      = 1104
	CodeRenderFailed      = 1105
	CodeUploadNotFinished = 1106

	// Transcription errors (1200-1299)
	CodeTranscribeFailed  = 1200
	CodeTranscribeTimeout = 1201
	CodeRateLimited       = 1202

	// Reasoning errors (1300-1399)
	CodeLLMFailed        = 1300
	CodeLLMTimeout       = 1301
	CodeLLMUnparseable   = 1302
	CodeLLMQuotaExceeded = 1303

	// Storage errors (1500-1599)
	CodeDBError        = 1500
	CodeFileNotFound   = 1501
	CodeFileWriteError = 1502
	CodeBlobError      = 1503

	// Clip generation errors (1600-1699)
	CodeNoSegments      = 1600
	CodeNoTranscript    = 1601
	CodeClipPersistence = 1602

	// Queue and job errors (1700-1799)
	CodeEnqueueFailed     = 1700
	CodeJobNotFound       = 1701
	CodeInvalidTransition = 1702
)

// AppError represents a structured application error
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code int, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithDetail wraps an error with additional detail
func WrapWithDetail(code int, message string, detail string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Detail:  detail,
		Cause:   cause,
	}
}

// Is checks if the target error is an AppError with the specified code
func Is(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts error code from error, returns CodeUnknown if not AppError
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetMessage extracts message from error
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as a content error that retrying cannot fix.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// permanentCodes are content errors: the same input fails the same way.
var permanentCodes = map[int]bool{
	CodeInvalidParams:     true,
	CodeInvalidState:      true,
	CodeVideoNotFound:     true,
	CodeClipNotFound:      true,
	CodeNoAudio:           true,
	CodeUnsupportedMedia:  true,
	CodeJobNotFound:       true,
	CodeInvalidTransition: true,
	CodeNoTranscript:      true,
}

// IsPermanent reports whether err must not be retried by the queue.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	var pe *permanentError
	if errors.As(err, &pe) {
		return true
	}
	var appErr *AppError
	for e := err; errors.As(e, &appErr); e = appErr.Cause {
		if permanentCodes[appErr.Code] {
			return true
		}
		if appErr.Cause == nil {
			break
		}
	}
	return false
}

// Predefined common errors
var (
	ErrInvalidParams = New(CodeInvalidParams, "Invalid parameters")
	ErrNotFound      = New(CodeNotFound, "Resource not found")
	ErrUnauthorized  = New(CodeUnauthorized, "Unauthorized")

	// Media
	ErrVideoNotFound    = New(CodeVideoNotFound, "Video not found")
	ErrClipNotFound     = New(CodeClipNotFound, "Clip not found")
	ErrNoAudio          = New(CodeNoAudio, "Video has no audio track")
	ErrUnsupportedMedia = New(CodeUnsupportedMedia, "Unsupported or corrupted media")
	ErrAudioExtract     = New(CodeAudioExtract, "Audio extraction failed")

	// Transcription
	ErrTranscribeFailed  = New(CodeTranscribeFailed, "Transcription failed")
	ErrTranscribeTimeout = New(CodeTranscribeTimeout, "Transcription timeout")
	ErrRateLimited       = New(CodeRateLimited, "Rate limited")

	// Reasoning
	ErrLLMUnparseable = New(CodeLLMUnparseable, "Model reply contained no usable JSON")

	// Storage
	ErrDBError      = New(CodeDBError, "Database error")
	ErrFileNotFound = New(CodeFileNotFound, "File not found")

	// Clip generation
	ErrNoSegments   = New(CodeNoSegments, "No suitable segments found in transcript")
	ErrNoTranscript = New(CodeNoTranscript, "Transcript has no word timings")

	// Jobs
	ErrJobNotFound       = New(CodeJobNotFound, "Job not found")
	ErrInvalidTransition = New(CodeInvalidTransition, "Invalid status transition")
)
