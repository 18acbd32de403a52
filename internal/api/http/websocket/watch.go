package websocket

import (
	"time"

	"werewolf-arena-be/internal/state"

	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

// WatchSession 是只读的事件流观察端
// 订阅者通过通道关闭感知事件流结束（对局完成或会话被清理）
func WatchSession(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		sessionID := ctx.URLParam("session_id")
		if sessionID == "" {
			ctx.StatusCode(iris.StatusBadRequest)
			ctx.JSON(iris.Map{
				"error": "缺少 session_id 参数",
			})
			return
		}

		sub, err := appState.SessionSvc.Subscribe(sessionID)
		if err != nil {
			ctx.StatusCode(iris.StatusNotFound)
			ctx.JSON(iris.Map{
				"error": err.Error(),
			})
			return
		}

		conn, err := upgrader.Upgrade(
			ctx.ResponseWriter(),
			ctx.Request(),
			nil,
		)
		if err != nil {
			appState.SessionSvc.Unsubscribe(sessionID, sub.ID)

			zap.L().Error("升级到WebSocket失败", zap.Error(err))
			ctx.StatusCode(iris.StatusBadRequest)
			return
		}

		defer conn.Close()
		defer appState.SessionSvc.Unsubscribe(sessionID, sub.ID)

		conn.SetReadDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
		conn.SetPongHandler(heartbeatHandler(conn))

		clientIP := ctx.RemoteAddr()

		zap.L().Info(
			"观察者连接建立",
			zap.String("client_ip", clientIP),
			zap.String("session_id", sessionID),
			zap.String("subscriber_id", sub.ID),
		)

		// 写协程的退出信号
		writeDoneCh := make(chan struct{})
		defer close(writeDoneCh)

		// 写入协程：转发事件流并维持心跳
		go func() {
			ticker := time.NewTicker(HEARTBEAT_INTERVAL)
			defer ticker.Stop()

			for {
				select {
				case <-writeDoneCh:
					zap.L().Debug(
						"WebSocket写入协程退出",
						zap.String("client_ip", clientIP),
					)
					return

				case <-ticker.C:
					if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						zap.L().Error(
							"发送心跳失败",
							zap.String("client_ip", clientIP),
							zap.Error(err),
						)
						return
					}

					conn.SetWriteDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))

				case ev, ok := <-sub.Events():
					// 通道关闭表示事件流结束，通知客户端后退出
					if !ok {
						zap.L().Info(
							"事件流已结束，关闭观察者连接",
							zap.String("client_ip", clientIP),
							zap.String("session_id", sessionID),
						)

						conn.WriteMessage(
							websocket.CloseMessage,
							websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream ended"),
						)
						return
					}

					if err := conn.WriteJSON(ev); err != nil {
						zap.L().Error(
							"发送事件失败",
							zap.String("client_ip", clientIP),
							zap.Error(err),
						)
						return
					}
				}
			}
		}()

		// 读取协程（主协程）：观察端没有业务消息，只用于探测断连
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(
					err,
					websocket.CloseGoingAway,
					websocket.CloseNormalClosure,
					websocket.CloseAbnormalClosure,
				) {
					zap.L().Error(
						"读取消息失败",
						zap.String("client_ip", clientIP),
						zap.Error(err),
					)
				}

				break
			}
		}

		zap.L().Info(
			"观察者连接断开",
			zap.String("client_ip", clientIP),
			zap.String("session_id", sessionID),
		)
	}
}
