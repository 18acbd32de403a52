package service

import (
	"errors"
	"math/rand"
	"time"

	"werewolf-arena-be/internal/service/dto"
	"werewolf-arena-be/internal/service/game"
)

// 玩家名字池，每个会话从这里随机抽取
var namePool = []string{
	"Alice", "Bob", "Charlie", "Dana", "Eve", "Frank",
	"Grace", "Hank", "Ivy", "Jack", "Kara", "Liam",
	"Mia", "Noah", "Olivia", "Paul", "Quinn", "Ruby",
	"Sam", "Tina", "Umar", "Vera", "Will", "Xena",
	"Yara", "Zane",
}

type playerRole struct {
	Name string
	Role string
}

// assignRoles 随机抽名字并洗牌分配角色：
// 一名预言家、一名医生、指定数量的狼人，其余都是村民
func assignRoles(numPlayers, numWerewolves int) ([]playerRole, error) {
	// 至少要容得下预言家、医生和所有狼人
	if numPlayers < numWerewolves+2 {
		return nil, errors.New("玩家数量不足以分配所有角色")
	}

	if numPlayers > len(namePool) {
		return nil, errors.New("玩家数量超出名字池容量")
	}

	if numWerewolves < 1 {
		return nil, errors.New("狼人数量至少为 1")
	}

	names := make([]string, len(namePool))
	copy(names, namePool)
	rand.Shuffle(len(names), func(i, j int) {
		names[i], names[j] = names[j], names[i]
	})
	names = names[:numPlayers]

	roles := make([]string, 0, numPlayers)
	roles = append(roles, game.ROLE_SEER, game.ROLE_DOCTOR)
	for i := 0; i < numWerewolves; i++ {
		roles = append(roles, game.ROLE_WEREWOLF)
	}
	for len(roles) < numPlayers {
		roles = append(roles, game.ROLE_VILLAGER)
	}

	rand.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})

	assigned := make([]playerRole, 0, numPlayers)
	for i, name := range names {
		assigned = append(assigned, playerRole{Name: name, Role: roles[i]})
	}

	return assigned, nil
}

// sessionInfo 推导会话的对外状态，调用方必须持有会话表的锁
func sessionInfo(sessionID string, entry *sessionEntry) dto.SessionInfo {
	winner, errMessage, rounds := entry.engine.Status()

	status := dto.STATUS_CREATED
	switch {
	case errMessage != "":
		status = dto.STATUS_ERROR
	case winner == game.WINNER_STOPPED:
		status = dto.STATUS_STOPPED
	case winner != "":
		status = dto.STATUS_COMPLETED
	case entry.started:
		status = dto.STATUS_RUNNING
	}

	info := dto.SessionInfo{
		SessionID:    sessionID,
		Status:       status,
		Rounds:       rounds,
		ErrorMessage: errMessage,
		CreatedAt:    entry.createdAt,
	}

	// 被停止的会话没有真正的胜者
	if winner != game.WINNER_STOPPED {
		info.Winner = winner
	}

	return info
}

// isSessionExpired 判断会话是否可以回收：对局已结束且超出保留期
func isSessionExpired(entry *sessionEntry) bool {
	if !entry.started {
		return time.Since(entry.createdAt) > FINISHED_SESSION_TTL
	}

	select {
	case <-entry.done:
		return time.Since(entry.createdAt) > FINISHED_SESSION_TTL
	default:
		return false
	}
}
