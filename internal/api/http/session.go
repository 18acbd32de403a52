package http

import (
	"werewolf-arena-be/internal/service/dto"
	"werewolf-arena-be/internal/state"

	"github.com/kataras/iris/v12"
)

func CreateSession(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		var req dto.CreateSessionRequest

		// 请求体允许为空，全部使用默认配置
		if ctx.GetContentLength() > 0 {
			if err := ctx.ReadJSON(&req); err != nil {
				ctx.StatusCode(iris.StatusBadRequest)
				ctx.JSON(iris.Map{
					"error": "请求参数无效",
				})
				return
			}
		}

		resp, err := appState.SessionSvc.CreateSession(req)
		if err != nil {
			ctx.StatusCode(iris.StatusBadRequest)
			ctx.JSON(iris.Map{
				"error": err.Error(),
			})
			return
		}

		ctx.JSON(resp)
	}
}

func ResumeSession(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		var req dto.ResumeSessionRequest

		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StatusCode(iris.StatusBadRequest)
			ctx.JSON(iris.Map{
				"error": "请求参数无效",
			})
			return
		}

		resp, err := appState.SessionSvc.ResumeSession(req.Snapshot)
		if err != nil {
			ctx.StatusCode(iris.StatusBadRequest)
			ctx.JSON(iris.Map{
				"error": err.Error(),
			})
			return
		}

		ctx.JSON(resp)
	}
}

func StartSession(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		sessionID := ctx.Params().Get("id")

		resp, err := appState.SessionSvc.StartSession(sessionID)
		if err != nil {
			ctx.StatusCode(iris.StatusNotFound)
			ctx.JSON(iris.Map{
				"error": err.Error(),
			})
			return
		}

		ctx.JSON(resp)
	}
}

func StopSession(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		sessionID := ctx.Params().Get("id")

		resp, err := appState.SessionSvc.RequestStop(sessionID)
		if err != nil {
			ctx.StatusCode(iris.StatusNotFound)
			ctx.JSON(iris.Map{
				"error": err.Error(),
			})
			return
		}

		ctx.JSON(resp)
	}
}

func GetSession(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		sessionID := ctx.Params().Get("id")

		resp, err := appState.SessionSvc.GetState(sessionID)
		if err != nil {
			ctx.StatusCode(iris.StatusNotFound)
			ctx.JSON(iris.Map{
				"error": err.Error(),
			})
			return
		}

		ctx.JSON(resp)
	}
}

func ListSessions(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		ctx.JSON(appState.SessionSvc.ListSessions())
	}
}
