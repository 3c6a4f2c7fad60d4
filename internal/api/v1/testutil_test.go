package v1_test

import (
	"context"

	"github.com/gosuda/parley/internal/chat"
	"github.com/gosuda/parley/internal/domain"
)

// ---------------------------------------------------------------------------
// Mock ChatService
// ---------------------------------------------------------------------------

type mockChatService struct {
	handleMessageFunc func(ctx context.Context, userName, message string) (*chat.Result, error)
	historyFunc       func(ctx context.Context, userName string) ([]domain.TranscriptEntry, error)
	deleteHistoryFunc func(ctx context.Context, userName string) (int, error)
}

func (m *mockChatService) HandleMessage(ctx context.Context, userName, message string) (*chat.Result, error) {
	return m.handleMessageFunc(ctx, userName, message)
}

func (m *mockChatService) History(ctx context.Context, userName string) ([]domain.TranscriptEntry, error) {
	return m.historyFunc(ctx, userName)
}

func (m *mockChatService) DeleteHistory(ctx context.Context, userName string) (int, error) {
	return m.deleteHistoryFunc(ctx, userName)
}
