package dto

import (
	"encoding/json"
	"time"
)

// 会话对外状态，由胜负结果和错误信息推导，不单独落盘
const (
	STATUS_CREATED   = "Created"
	STATUS_RUNNING   = "Running"
	STATUS_COMPLETED = "Completed"
	STATUS_STOPPED   = "Stopped"
	STATUS_ERROR     = "Error"
)

type PlayerInfo struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type CreateSessionRequest struct {
	// 留空时使用配置文件里的默认值
	NumPlayers    int    `json:"num_players,omitempty"`
	NumWerewolves int    `json:"num_werewolves,omitempty"`
	DebatePolicy  string `json:"debate_policy,omitempty"`
	VoteRule      string `json:"vote_rule,omitempty"`
}

type CreateSessionResponse struct {
	SessionID string       `json:"session_id"`
	Players   []PlayerInfo `json:"players"`
}

type SessionInfo struct {
	SessionID    string    `json:"session_id"`
	Status       string    `json:"status"`
	Winner       string    `json:"winner,omitempty"`
	Rounds       int       `json:"rounds"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type ListSessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

// SessionStateResponse 携带完整的会话状态文档
// State 就是持久化快照本身，客户端拿到后可以直接用于恢复
type SessionStateResponse struct {
	Info  SessionInfo     `json:"info"`
	State json.RawMessage `json:"state"`
}

type ResumeSessionRequest struct {
	Snapshot json.RawMessage `json:"snapshot"`
}

type ResumeSessionResponse struct {
	SessionID string `json:"session_id"`
	Rounds    int    `json:"rounds"`
}
