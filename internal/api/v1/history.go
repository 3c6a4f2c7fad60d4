package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/parley/internal/domain"
)

type GetHistoryInput struct {
	UserName string `path:"userName" maxLength:"120" doc:"User name, matched case-insensitively"`
}

type GetHistoryOutput struct {
	Body []MessageView
}

type DeleteHistoryInput struct {
	UserName string `path:"userName" maxLength:"120" doc:"User name, matched case-insensitively"`
}

type DeleteHistoryOutput struct {
	Body struct {
		Deleted int `json:"deleted" doc:"Number of sessions removed"`
	}
}

// RegisterHistoryRoutes mounts transcript retrieval.
func RegisterHistoryRoutes(api huma.API, svc ChatService) {
	huma.Register(api, huma.Operation{
		OperationID: "get-history",
		Method:      http.MethodGet,
		Path:        "/history/{userName}",
		Summary:     "Get the full chat history for a user",
		Tags:        []string{"History"},
	}, func(ctx context.Context, input *GetHistoryInput) (*GetHistoryOutput, error) {
		entries, err := svc.History(ctx, input.UserName)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to load history")
		}

		return &GetHistoryOutput{Body: toMessageViews(entries)}, nil
	})
}

// RegisterHistoryAdminRoutes mounts history deletion. Kept separate from
// RegisterHistoryRoutes so the server can gate it behind the admin token
// middleware.
func RegisterHistoryAdminRoutes(api huma.API, svc ChatService) {
	huma.Register(api, huma.Operation{
		OperationID: "delete-history",
		Method:      http.MethodDelete,
		Path:        "/history/{userName}",
		Summary:     "Delete all chat history for a user",
		Tags:        []string{"History"},
	}, func(ctx context.Context, input *DeleteHistoryInput) (*DeleteHistoryOutput, error) {
		count, err := svc.DeleteHistory(ctx, input.UserName)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("no chat history found for the user")
			}
			return nil, huma.Error500InternalServerError("failed to delete history")
		}

		out := &DeleteHistoryOutput{}
		out.Body.Deleted = count

		return out, nil
	})
}
