// Package mocks provides mock implementations of core interfaces for testing.
package mocks

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/stretchr/testify/mock"

	"clipforge/internal/types"
)

// MockTranscriber is a mock implementation of types.Transcriber
type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) Transcribe(ctx context.Context, mediaPath string) ([]types.Word, error) {
	args := m.Called(ctx, mediaPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Word), args.Error(1)
}

// MockChatCompleter is a mock implementation of types.ChatCompleter
type MockChatCompleter struct {
	mock.Mock
}

func (m *MockChatCompleter) ChatCompletion(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt, temperature)
	return args.String(0), args.Error(1)
}

// PromptContaining matches a user prompt by substring.
func PromptContaining(s string) interface{} {
	return mock.MatchedBy(func(prompt string) bool { return strings.Contains(prompt, s) })
}

// MockStore is a mock implementation of blob.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	args := m.Called(ctx, key, r, contentType)
	return args.Error(0)
}

func (m *MockStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	switch v := args.Get(0).(type) {
	case string:
		return io.NopCloser(bytes.NewBufferString(v)), args.Error(1)
	default:
		return v.(io.ReadCloser), args.Error(1)
	}
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStore) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// MockEnqueuer is a mock implementation of types.Enqueuer
type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) Enqueue(ctx context.Context, payload types.JobPayload, opts types.EnqueueOptions) error {
	args := m.Called(ctx, payload, opts)
	return args.Error(0)
}
