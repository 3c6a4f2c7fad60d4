package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/parley/internal/api/v1"
	"github.com/gosuda/parley/internal/api/ws"
)

func registerAPIRoutes(api huma.API, svc v1.ChatService) {
	v1.RegisterChatRoutes(api, svc)
	v1.RegisterHistoryRoutes(api, svc)
}

func registerAdminRoutes(api huma.API, svc v1.ChatService) {
	v1.RegisterHistoryAdminRoutes(api, svc)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/chat/{userName}", hub.ServeChat)
}
