package game

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"werewolf-arena-be/internal/agent"

	"go.uber.org/zap"
)

// 一轮内的阶段，严格按以下顺序推进：
// 夜晚（狼人淘汰 → 医生守护 → 预言家查验 → 夜晚结算）→ 胜负判定 →
// 白天（辩论 → 投票 → 放逐）→ 胜负判定 → 总结
// 两次胜负判定命中任意一次都会跳过本轮剩余阶段
const (
	PHASE_NIGHT_START      = "NightStart"
	PHASE_WOLF_ELIMINATE   = "WolfEliminate"
	PHASE_DOCTOR_PROTECT   = "DoctorProtect"
	PHASE_SEER_INVESTIGATE = "SeerInvestigate"
	PHASE_NIGHT_RESOLVE    = "NightResolve"
	PHASE_WIN_CHECK        = "WinCheck"
	PHASE_DAY_DEBATE       = "DayDebate"
	PHASE_DAY_VOTE         = "DayVote"
	PHASE_DAY_EXILE        = "DayExile"
	PHASE_SUMMARIZE        = "Summarize"
	PHASE_GAME_END         = "GameEnd"
)

// 辩论发言顺序策略
const (
	DEBATE_POLICY_BID      = "bid"
	DEBATE_POLICY_ROTATION = "rotation"
)

// 放逐计票规则
const (
	VOTE_RULE_MAJORITY  = "majority"
	VOTE_RULE_PLURALITY = "plurality"
)

// 决策失败时替玩家说的话
const (
	DEFAULT_DEBATE_TEXT  = "I think we need to be careful and look for clues."
	DEFAULT_SUMMARY_TEXT = "I need to think about what happened today and analyze the situation carefully."
	DEFAULT_BID          = 1
)

type EngineConfig struct {
	MaxDebateTurns  int
	DecisionTimeout time.Duration
	NumWorkers      int
	DebatePolicy    string
	VoteRule        string
}

func (ec *EngineConfig) normalize() {
	if ec.MaxDebateTurns <= 0 {
		ec.MaxDebateTurns = 4
	}

	if ec.DecisionTimeout <= 0 {
		ec.DecisionTimeout = 60 * time.Second
	}

	if ec.NumWorkers <= 0 {
		ec.NumWorkers = 4
	}

	if ec.DebatePolicy == "" {
		ec.DebatePolicy = DEBATE_POLICY_BID
	}

	if ec.VoteRule == "" {
		ec.VoteRule = VOTE_RULE_MAJORITY
	}
}

// Engine 驱动一个会话的整场对局
// 状态机本身在单协程内顺序推进，阶段内部的决策调用
// 通过有界工作池并发扇出，全部汇合后才进入下一阶段
type Engine struct {
	mu    sync.RWMutex
	state *State
	cfg   EngineConfig
	pub   *Publisher

	currentRound  int
	stopRequested atomic.Bool
}

func NewEngine(state *State, cfg EngineConfig, pub *Publisher) *Engine {
	cfg.normalize()

	return &Engine{
		state: state,
		cfg:   cfg,
		pub:   pub,
		// 从快照恢复时继续已有轮次的编号
		currentRound: len(state.Rounds),
	}
}

// RequestStop 请求协作式停止
// 停止只在轮次边界生效，进行中的轮次会完整跑完，不会留下半结算的状态
func (e *Engine) RequestStop() {
	e.stopRequested.Store(true)
}

func (e *Engine) StopRequested() bool {
	return e.stopRequested.Load()
}

// RunGame 跑完整场对局并返回胜负结果
// 返回空字符串表示会话因致命错误终止，错误信息在 State.ErrorMessage
func (e *Engine) RunGame() string {
	zap.S().Infof("会话 %s 对局开始", e.state.SessionID)

	for e.winner() == "" {
		// 停止请求只在轮次边界（包括开局前）生效
		if e.stopRequested.Load() {
			e.mu.Lock()
			e.state.Winner = WINNER_STOPPED
			e.mu.Unlock()

			zap.S().Infof("会话 %s 在 %d 个完整轮次后按请求停止", e.state.SessionID, len(e.state.Rounds))
			break
		}

		if err := e.runRound(); err != nil {
			e.mu.Lock()
			e.state.ErrorMessage = err.Error()
			e.mu.Unlock()

			e.pub.Publish(Event{
				EventType: EVENT_ERROR,
				Details: map[string]any{
					"message": err.Error(),
					"round":   e.currentRound,
				},
			})

			zap.L().Error(
				"对局因致命错误终止",
				zap.String("session_id", e.state.SessionID),
				zap.Int("round", e.currentRound),
				zap.Error(err),
			)

			return ""
		}

		if e.winner() != "" {
			break
		}

		// 推进到下一轮：轮次号 +1，清空所有存活玩家的辩论记录
		e.mu.Lock()
		for _, name := range e.thisRound().Players {
			p := e.state.Players[name]
			p.View.RoundNumber = e.currentRound + 1
			p.View.ClearDebate()
		}
		e.currentRound++
		e.mu.Unlock()
	}

	winner := e.winner()

	e.pub.Publish(Event{
		EventType: EVENT_GAME_COMPLETE,
		Details: map[string]any{
			"winner": winner,
			"rounds": len(e.state.Rounds),
		},
	})

	zap.S().Infof("会话 %s 对局结束，结果: %s", e.state.SessionID, winner)

	return winner
}

func (e *Engine) runRound() error {
	e.mu.Lock()
	round := NewRound(e.state.AlivePlayers())
	e.state.Rounds = append(e.state.Rounds, round)
	e.mu.Unlock()

	zap.S().Infof("会话 %s 第 %d 轮开始", e.state.SessionID, e.currentRound)

	e.publishPhase(PHASE_NIGHT_START)

	steps := []struct {
		phase string
		fn    func() error
	}{
		{PHASE_WOLF_ELIMINATE, e.wolfEliminate},
		{PHASE_DOCTOR_PROTECT, e.doctorProtect},
		{PHASE_SEER_INVESTIGATE, e.seerInvestigate},
		{PHASE_NIGHT_RESOLVE, e.nightResolve},
		{PHASE_WIN_CHECK, e.checkWinner},
		{PHASE_DAY_DEBATE, e.dayDebate},
		{PHASE_DAY_VOTE, e.dayVote},
		{PHASE_DAY_EXILE, e.dayExile},
		{PHASE_WIN_CHECK, e.checkWinner},
		{PHASE_SUMMARIZE, e.summarize},
	}

	for _, step := range steps {
		e.publishPhase(step.phase)

		if err := step.fn(); err != nil {
			return err
		}

		if e.winner() != "" {
			break
		}
	}

	e.mu.Lock()
	round.Success = true
	e.mu.Unlock()

	zap.S().Infof("会话 %s 第 %d 轮完成", e.state.SessionID, e.currentRound)

	return nil
}

func (e *Engine) checkWinner() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	winner := e.state.EvaluateWinner(e.thisRound().Players)
	if winner != "" {
		e.state.Winner = winner

		zap.S().Infof("会话 %s 判定胜负: %s", e.state.SessionID, winner)
	}

	return nil
}

// 调用方必须持有 e.mu
func (e *Engine) thisRound() *Round {
	return e.state.Rounds[len(e.state.Rounds)-1]
}

func (e *Engine) winner() string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.state.Winner
}

// StateSnapshot 在对局运行中安全地导出一份完整状态文档
func (e *Engine) StateSnapshot() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.state.Snapshot()
}

// Status 返回状态推导需要的三元组
func (e *Engine) Status() (winner, errMessage string, rounds int) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.state.Winner, e.state.ErrorMessage, len(e.state.Rounds)
}

func (e *Engine) SessionID() string {
	return e.state.SessionID
}

type invokeOutcome struct {
	decision *agent.Decision
	// 非空表示后端没有给出可用决策，值是 FALLBACK_* 之一
	reason string
}

// invoke 调用单个玩家的决策后端，带超时保护
// 即使后端不理会 context，引擎也不会被拖住
func (e *Engine) invoke(p *Player, capability string, options []string) invokeOutcome {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.DecisionTimeout)
	defer cancel()

	type result struct {
		decision *agent.Decision
		err      error
	}

	resCh := make(chan result, 1)

	go func() {
		decision, err := p.Backend.Invoke(ctx, capability, e.agentContext(p, options))
		resCh <- result{decision, err}
	}()

	select {
	case <-ctx.Done():
		return invokeOutcome{reason: FALLBACK_TIMEOUT}

	case res := <-resCh:
		switch {
		case errors.Is(res.err, context.DeadlineExceeded):
			return invokeOutcome{reason: FALLBACK_TIMEOUT}
		case res.err != nil:
			return invokeOutcome{reason: FALLBACK_ERROR}
		case res.decision == nil:
			return invokeOutcome{reason: FALLBACK_NULL}
		}

		return invokeOutcome{decision: res.decision}
	}
}

func (e *Engine) agentContext(p *Player, options []string) agent.Context {
	view := p.View

	return agent.Context{
		RoundNumber:  view.RoundNumber,
		Name:         p.Name,
		Role:         p.Role,
		AlivePlayers: slices.Clone(view.CurrentPlayers),
		Observations: slices.Clone(p.Observations),
		Debate:       slices.Clone(view.Debate),
		ValidOptions: slices.Clone(options),
		OtherWolf:    view.OtherWolf,
	}
}

func (e *Engine) publishPhase(phase string) {
	e.pub.Publish(Event{
		EventType: EVENT_PHASE_CHANGE,
		Details: map[string]any{
			"phase": phase,
			"round": e.currentRound,
		},
	})
}

func (e *Engine) publishFallback(p *Player, capability, reason, substituted string) {
	e.pub.Publish(Event{
		EventType:  EVENT_AGENT_FALLBACK,
		PlayerName: p.Name,
		PlayerRole: p.Role,
		TargetName: substituted,
		Details: map[string]any{
			"capability": capability,
			"reason":     reason,
			"round":      e.currentRound,
		},
	})
}
