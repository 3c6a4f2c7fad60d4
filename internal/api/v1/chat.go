package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/parley/internal/domain"
)

// MessageView is one transcript entry as returned to clients.
type MessageView struct {
	Speaker string    `json:"speaker" doc:"Who said it: the user name or the agent name"`
	Message string    `json:"message" doc:"Message text"`
	At      time.Time `json:"at" doc:"When the entry was appended"`
}

func toMessageViews(entries []domain.TranscriptEntry) []MessageView {
	views := make([]MessageView, len(entries))
	for i, e := range entries {
		views[i] = MessageView{Speaker: e.Speaker, Message: e.Text, At: e.At}
	}
	return views
}

type ChatInput struct {
	Body struct {
		UserName string `json:"user_name,omitempty" maxLength:"120" doc:"User identity; defaults to 'User' when omitted"`
		Message  string `json:"message,omitempty" doc:"Message text; ignored on first contact and on resumption"`
	}
}

type ChatOutput struct {
	Body struct {
		Response   string        `json:"response" doc:"The agent's reply for this turn"`
		Messages   []MessageView `json:"messages" doc:"Full transcript snapshot after this turn"`
		EndChat    bool          `json:"end_chat,omitempty" doc:"True when this turn concluded the session"`
		UserExists bool          `json:"user_exists" doc:"False on first contact for this user name"`
	}
}

// RegisterChatRoutes mounts the message-handling endpoint.
func RegisterChatRoutes(api huma.API, svc ChatService) {
	huma.Register(api, huma.Operation{
		OperationID: "post-chat",
		Method:      http.MethodPost,
		Path:        "/chat",
		Summary:     "Send a message to the agent",
		Tags:        []string{"Chat"},
	}, func(ctx context.Context, input *ChatInput) (*ChatOutput, error) {
		res, err := svc.HandleMessage(ctx, input.Body.UserName, input.Body.Message)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrEmptyMessage):
				return nil, huma.Error400BadRequest("message cannot be empty")
			case errors.Is(err, domain.ErrPersistenceFailed):
				return nil, huma.Error500InternalServerError("failed to save the conversation")
			default:
				return nil, huma.Error500InternalServerError("failed to handle message")
			}
		}

		out := &ChatOutput{}
		out.Body.Response = res.Reply
		out.Body.Messages = toMessageViews(res.Transcript)
		out.Body.EndChat = res.EndChat
		out.Body.UserExists = res.UserExisted

		return out, nil
	})
}
