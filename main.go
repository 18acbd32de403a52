package main

import (
	"time"

	"werewolf-arena-be/internal/api/http"
	"werewolf-arena-be/internal/config"
	"werewolf-arena-be/internal/logger"
	"werewolf-arena-be/internal/service"
	"werewolf-arena-be/internal/service/game"
	"werewolf-arena-be/internal/state"
)

func main() {
	// 加载配置
	cfg := config.InitConfig()

	// 初始化日志器
	logger.InitLogger(cfg.LogLevel, cfg.LogFile)

	// 组装应用状态
	appState := state.NewAppState(
		cfg,
		service.NewSessionService(service.Options{
			NumPlayers:    cfg.Game.NumPlayers,
			NumWerewolves: cfg.Game.NumWerewolves,
			Engine: game.EngineConfig{
				MaxDebateTurns:  cfg.Game.MaxDebateTurns,
				DecisionTimeout: time.Duration(cfg.Game.DecisionTimeoutSec) * time.Second,
				NumWorkers:      cfg.Game.NumWorkers,
				DebatePolicy:    cfg.Game.DebatePolicy,
				VoteRule:        cfg.Game.VoteRule,
			},
		}),
	)

	// 启动服务器
	http.RunServer(appState)
}
