package agent

import (
	"context"
	"math/rand"
	"sync"
)

// RandomAgent 在合法选项中均匀随机决策，发言使用固定文案
// 主要用于本地对局和压测，不依赖任何外部服务
type RandomAgent struct{}

func NewRandomAgent() *RandomAgent {
	return &RandomAgent{}
}

func (ra *RandomAgent) Invoke(
	_ context.Context,
	capability string,
	ac Context,
) (*Decision, error) {
	switch capability {
	case CAP_BID:
		return &Decision{
			Bid:       rand.Intn(5),
			Rationale: "random bid",
		}, nil

	case CAP_DEBATE:
		return &Decision{
			Say:       "I think we need to be careful and look for clues.",
			Rationale: "random debate",
		}, nil

	case CAP_SUMMARIZE:
		return &Decision{
			Say:       "I need to think about what happened today and analyze the situation carefully.",
			Rationale: "random summary",
		}, nil

	default:
		// 目标类能力：没有合法选项时放弃决策
		if len(ac.ValidOptions) == 0 {
			return nil, nil
		}

		return &Decision{
			Target:    ac.ValidOptions[rand.Intn(len(ac.ValidOptions))],
			Rationale: "random target",
		}, nil
	}
}

// SilentAgent 对任何请求都放弃决策，让引擎走回退路径
type SilentAgent struct{}

func NewSilentAgent() *SilentAgent {
	return &SilentAgent{}
}

func (sa *SilentAgent) Invoke(
	_ context.Context,
	_ string,
	_ Context,
) (*Decision, error) {
	return nil, nil
}

// ScriptedAgent 按能力类型依次弹出预设好的决策序列
// 序列耗尽后放弃决策
type ScriptedAgent struct {
	mu      sync.Mutex
	scripts map[string][]*Decision
}

func NewScriptedAgent() *ScriptedAgent {
	return &ScriptedAgent{
		scripts: make(map[string][]*Decision),
	}
}

func (sa *ScriptedAgent) Enqueue(capability string, decisions ...*Decision) *ScriptedAgent {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	sa.scripts[capability] = append(sa.scripts[capability], decisions...)

	return sa
}

func (sa *ScriptedAgent) Invoke(
	_ context.Context,
	capability string,
	_ Context,
) (*Decision, error) {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	queue := sa.scripts[capability]
	if len(queue) == 0 {
		return nil, nil
	}

	decision := queue[0]
	sa.scripts[capability] = queue[1:]

	return decision, nil
}
