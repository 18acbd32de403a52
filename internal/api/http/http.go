package http

import (
	"fmt"

	"werewolf-arena-be/internal/api/http/websocket"
	"werewolf-arena-be/internal/state"

	"github.com/kataras/iris/v12"
)

func RunServer(appState *state.AppState) {
	app := iris.Default()

	api := app.Party("/api/v1")

	api.Post("/sessions/create", CreateSession(appState))
	api.Post("/sessions/resume", ResumeSession(appState))
	api.Get("/sessions", ListSessions(appState))
	api.Get("/sessions/{id}", GetSession(appState))
	api.Post("/sessions/{id}/start", StartSession(appState))
	api.Post("/sessions/{id}/stop", StopSession(appState))

	api.Get("/ws/watch", websocket.WatchSession(appState))

	addr := fmt.Sprintf(
		"%s:%d",
		appState.Cfg.Host,
		appState.Cfg.Port,
	)

	app.Listen(addr)
}
