package agent

import (
	"context"
)

// 决策能力类型，每次调用只请求其中一种
const (
	CAP_BID         = "bid"
	CAP_DEBATE      = "debate"
	CAP_VOTE        = "vote"
	CAP_INVESTIGATE = "investigate"
	CAP_ELIMINATE   = "eliminate"
	CAP_PROTECT     = "protect"
	CAP_SUMMARIZE   = "summarize"
)

// 一条辩论发言记录
type Utterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// 玩家视角下传给决策后端的上下文
// 除了 ValidOptions 之外全部是只读快照，后端之间不共享可变状态
type Context struct {
	RoundNumber  int         `json:"round_number"`
	Name         string      `json:"name"`
	Role         string      `json:"role"`
	AlivePlayers []string    `json:"alive_players"`
	Observations []string    `json:"observations"`
	Debate       []Utterance `json:"debate"`
	// 允许选择的目标集合，为空表示该能力不需要目标
	ValidOptions []string `json:"valid_options,omitempty"`
	// 狼人队友的名字，仅狼人玩家可见，可能为空
	OtherWolf string `json:"other_wolf,omitempty"`
}

// 决策结果，具体哪些字段有效取决于能力类型：
// 目标类能力（vote/investigate/eliminate/protect）使用 Target，
// bid 使用 Bid，debate/summarize 使用 Say
type Decision struct {
	Target    string `json:"target,omitempty"`
	Bid       int    `json:"bid,omitempty"`
	Say       string `json:"say,omitempty"`
	Rationale string `json:"rationale,omitempty"`
}

// Agent 是可插拔的决策后端
// 返回 (nil, nil) 表示后端放弃决策，由引擎执行回退策略
// 同一个 Agent 可能被多个玩家并发调用，实现必须是并发安全的
type Agent interface {
	Invoke(ctx context.Context, capability string, ac Context) (*Decision, error)
}
