package v1

import (
	"context"

	"github.com/gosuda/parley/internal/chat"
	"github.com/gosuda/parley/internal/domain"
)

// ChatService abstracts the session lifecycle controller for handler
// testing. *chat.Service satisfies this interface.
type ChatService interface {
	HandleMessage(ctx context.Context, userName, message string) (*chat.Result, error)
	History(ctx context.Context, userName string) ([]domain.TranscriptEntry, error)
	DeleteHistory(ctx context.Context, userName string) (int, error)
}
