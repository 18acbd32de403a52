package game

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strings"

	"werewolf-arena-be/internal/agent"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// wolfEliminate 夜晚的狼人淘汰阶段
// 多狼存活时随机挑一头狼做决策，每晚只有一个淘汰目标生效
func (e *Engine) wolfEliminate() error {
	e.mu.RLock()
	round := e.thisRound()

	aliveWolves := make([]string, 0, len(e.state.Werewolves))
	for _, name := range e.state.Werewolves {
		if slices.Contains(round.Players, name) {
			aliveWolves = append(aliveWolves, name)
		}
	}

	// 候选目标是存活的非狼玩家，天然排除行动狼和狼同伴
	options := make([]string, 0, len(round.Players))
	for _, name := range round.Players {
		if !e.state.IsWerewolf(name) {
			options = append(options, name)
		}
	}
	e.mu.RUnlock()

	// 狼人清零却还没判出胜负，说明状态已经不可信，按致命错误终止
	if len(aliveWolves) == 0 {
		return errors.New("夜晚淘汰阶段没有存活的狼人")
	}

	if len(options) == 0 {
		zap.S().Warnf("会话 %s 第 %d 轮没有可淘汰的目标，跳过", e.state.SessionID, e.currentRound)
		return nil
	}

	actor := e.state.Players[aliveWolves[rand.Intn(len(aliveWolves))]]

	outcome := e.invoke(actor, agent.CAP_ELIMINATE, options)

	var target string
	reason := outcome.reason
	if outcome.decision != nil {
		target, reason = validateTarget(outcome.decision.Target, options, reason)
	}

	if reason != "" {
		target = randomFallback(options)
		e.publishFallback(actor, agent.CAP_ELIMINATE, reason, target)

		zap.L().Warn(
			"狼人淘汰决策失败，采用随机替补目标",
			zap.String("session_id", e.state.SessionID),
			zap.String("player", actor.Name),
			zap.String("reason", reason),
			zap.String("target", target),
		)
	}

	// 所有存活的狼都能看到今晚的决定
	wording := "I"
	if len(aliveWolves) > 1 {
		wording = "we"
	}

	e.mu.Lock()
	round.Eliminated = target
	for _, name := range aliveWolves {
		e.state.Players[name].AddObservation(
			fmt.Sprintf("During the night, %s decided to eliminate %s.", wording, target),
		)
	}
	e.mu.Unlock()

	e.pub.Publish(Event{
		EventType:  EVENT_NIGHT_ACTION,
		PlayerName: actor.Name,
		PlayerRole: actor.Role,
		TargetName: target,
		Details: map[string]any{
			"action": "eliminate",
			"round":  e.currentRound,
		},
	})

	return nil
}

// doctorProtect 夜晚的医生守护阶段，医生已出局时静默跳过
// 医生可以守护任何存活玩家，包括自己
func (e *Engine) doctorProtect() error {
	e.mu.RLock()
	round := e.thisRound()
	alive := slices.Contains(round.Players, e.state.Doctor)
	options := slices.Clone(round.Players)
	e.mu.RUnlock()

	if !alive {
		return nil
	}

	doctor := e.state.Players[e.state.Doctor]

	outcome := e.invoke(doctor, agent.CAP_PROTECT, options)

	var target string
	reason := outcome.reason
	if outcome.decision != nil {
		target, reason = validateTarget(outcome.decision.Target, options, reason)
	}

	if reason != "" {
		target = randomFallback(options)
		e.publishFallback(doctor, agent.CAP_PROTECT, reason, target)

		zap.L().Warn(
			"医生守护决策失败，采用随机替补目标",
			zap.String("session_id", e.state.SessionID),
			zap.String("reason", reason),
			zap.String("target", target),
		)
	}

	e.mu.Lock()
	round.Protected = target
	doctor.AddObservation(fmt.Sprintf("During the night, I chose to protect %s.", target))
	e.mu.Unlock()

	e.pub.Publish(Event{
		EventType:  EVENT_NIGHT_ACTION,
		PlayerName: doctor.Name,
		PlayerRole: doctor.Role,
		TargetName: target,
		Details: map[string]any{
			"action": "protect",
			"round":  e.currentRound,
		},
	})

	return nil
}

// seerInvestigate 夜晚的预言家查验阶段，预言家已出局时静默跳过
// 候选集排除自己和所有历史查验过的玩家，查验结果立即写入私有观察
func (e *Engine) seerInvestigate() error {
	e.mu.RLock()
	round := e.thisRound()
	alive := slices.Contains(round.Players, e.state.Seer)
	e.mu.RUnlock()

	if !alive {
		return nil
	}

	seer := e.state.Players[e.state.Seer]

	e.mu.RLock()
	options := make([]string, 0, len(round.Players))
	for _, name := range round.Players {
		if name == seer.Name {
			continue
		}
		if _, investigated := seer.PreviouslyUnmasked[name]; investigated {
			continue
		}
		options = append(options, name)
	}
	e.mu.RUnlock()

	// 所有存活玩家都查过了，这一夜没有新信息
	if len(options) == 0 {
		zap.S().Debugf("会话 %s 第 %d 轮预言家没有可查验的目标，跳过", e.state.SessionID, e.currentRound)
		return nil
	}

	outcome := e.invoke(seer, agent.CAP_INVESTIGATE, options)

	var target string
	reason := outcome.reason
	if outcome.decision != nil {
		target, reason = validateTarget(outcome.decision.Target, options, reason)
	}

	if reason != "" {
		target = randomFallback(options)
		e.publishFallback(seer, agent.CAP_INVESTIGATE, reason, target)

		zap.L().Warn(
			"预言家查验决策失败，采用随机替补目标",
			zap.String("session_id", e.state.SessionID),
			zap.String("reason", reason),
			zap.String("target", target),
		)
	}

	role := e.state.Players[target].Role

	e.mu.Lock()
	round.Unmasked = target
	seer.PreviouslyUnmasked[target] = role
	seer.AddObservation(
		fmt.Sprintf("During the night, I decided to investigate %s and learned they are a %s.", target, role),
	)
	e.mu.Unlock()

	e.pub.Publish(Event{
		EventType:  EVENT_NIGHT_ACTION,
		PlayerName: seer.Name,
		PlayerRole: seer.Role,
		TargetName: target,
		Details: map[string]any{
			"action":       "investigate",
			"learned_role": role,
			"round":        e.currentRound,
		},
	})

	return nil
}

// nightResolve 结算夜晚：淘汰目标未被守护则移出对局，并向所有存活玩家广播结果
// 公告不泄露医生是否行动过，三种结果只有两种对外措辞
func (e *Engine) nightResolve() error {
	e.mu.Lock()
	round := e.thisRound()

	removed := ""
	var announcement string

	switch {
	case round.Eliminated != "" && round.Eliminated != round.Protected:
		removed = round.Eliminated
		round.RemovePlayer(removed)
		for _, name := range round.Players {
			e.state.Players[name].View.RemovePlayer(removed)
		}
		announcement = fmt.Sprintf("The Werewolves removed %s from the game during the night.", removed)

	default:
		announcement = "No one was removed from the game during the night."
	}

	for _, name := range round.Players {
		e.state.Players[name].AddAnnouncement(announcement)
	}
	e.mu.Unlock()

	if removed != "" {
		zap.S().Infof("会话 %s 第 %d 轮夜晚结算: %s 出局", e.state.SessionID, e.currentRound, removed)
	} else {
		zap.S().Infof("会话 %s 第 %d 轮夜晚结算: 无人出局", e.state.SessionID, e.currentRound)
	}

	e.pub.Publish(Event{
		EventType:  EVENT_NIGHT_ACTION,
		TargetName: removed,
		Details: map[string]any{
			"action":       "resolve",
			"announcement": announcement,
			"round":        e.currentRound,
		},
	})

	return nil
}

// dayDebate 白天辩论，按配置选择竞价制或轮转制
func (e *Engine) dayDebate() error {
	if e.cfg.DebatePolicy == DEBATE_POLICY_ROTATION {
		return e.debateRotation()
	}

	return e.debateByBids()
}

// debateByBids 竞价制辩论：每个发言名额先并发收集竞价，
// 最高价者发言，刚发言过的玩家不参与下一次竞价
func (e *Engine) debateByBids() error {
	for turn := 0; turn < e.cfg.MaxDebateTurns; turn++ {
		speaker, err := e.nextSpeaker()
		if err != nil {
			return err
		}

		e.speakAndBroadcast(speaker)
	}

	return nil
}

func (e *Engine) nextSpeaker() (*Player, error) {
	e.mu.RLock()
	round := e.thisRound()

	var prevSpeaker, prevText string
	if n := len(round.Debate); n > 0 {
		prevSpeaker = round.Debate[n-1].Speaker
		prevText = round.Debate[n-1].Text
	}

	bidders := make([]string, 0, len(round.Players))
	for _, name := range round.Players {
		if name != prevSpeaker {
			bidders = append(bidders, name)
		}
	}
	e.mu.RUnlock()

	if len(bidders) == 0 {
		return nil, errors.New("辩论竞价没有候选发言者")
	}

	bids := make([]int, len(bidders))
	rationales := make([]string, len(bidders))
	reasons := make([]string, len(bidders))

	workers := pool.New().WithMaxGoroutines(e.cfg.NumWorkers)
	for i, name := range bidders {
		i, name := i, name
		workers.Go(func() {
			outcome := e.invoke(e.state.Players[name], agent.CAP_BID, nil)

			bid := DEFAULT_BID
			reason := outcome.reason
			if outcome.decision != nil {
				if outcome.decision.Bid >= 0 && outcome.decision.Bid <= 4 {
					bid = outcome.decision.Bid
					rationales[i] = outcome.decision.Rationale
				} else {
					reason = FALLBACK_INVALID
				}
			}

			bids[i] = bid
			reasons[i] = reason
		})
	}
	workers.Wait()

	// 汇合后的串行化点：记录竞价、发布回退事件
	bidRecord := make(map[string]int, len(bidders))

	e.mu.Lock()
	for i, name := range bidders {
		bidRecord[name] = bids[i]
		e.state.Players[name].BidRationale = rationales[i]
	}
	round.Bids = append(round.Bids, bidRecord)
	e.mu.Unlock()

	for i, name := range bidders {
		if reasons[i] != "" {
			e.publishFallback(e.state.Players[name], agent.CAP_BID, reasons[i], "")
		}
	}

	maxBid := -1
	for _, bid := range bids {
		if bid > maxBid {
			maxBid = bid
		}
	}

	tied := make([]string, 0, len(bidders))
	for i, name := range bidders {
		if bids[i] == maxBid {
			tied = append(tied, name)
		}
	}

	// 被上一条发言点到名的玩家优先拿到发言权
	if prevText != "" {
		mentioned := make([]string, 0, len(tied))
		for _, name := range tied {
			if strings.Contains(prevText, name) {
				mentioned = append(mentioned, name)
			}
		}

		if len(mentioned) > 0 {
			tied = mentioned
		}
	}

	return e.state.Players[tied[rand.Intn(len(tied))]], nil
}

func (e *Engine) speakAndBroadcast(speaker *Player) {
	outcome := e.invoke(speaker, agent.CAP_DEBATE, nil)

	var text string
	reason := outcome.reason
	if outcome.decision != nil {
		if outcome.decision.Say != "" {
			text = outcome.decision.Say
		} else {
			reason = FALLBACK_NULL
		}
	}

	if reason != "" {
		text = DEFAULT_DEBATE_TEXT
		e.publishFallback(speaker, agent.CAP_DEBATE, reason, "")
	}

	e.broadcastUtterance(speaker, text)
}

// broadcastUtterance 把一条发言写入轮次记录并同步到所有存活玩家的视图
func (e *Engine) broadcastUtterance(speaker *Player, text string) {
	e.mu.Lock()
	round := e.thisRound()
	round.Debate = append(round.Debate, agent.Utterance{Speaker: speaker.Name, Text: text})
	for _, name := range round.Players {
		e.state.Players[name].View.UpdateDebate(speaker.Name, text)
	}
	e.mu.Unlock()

	e.pub.Publish(Event{
		EventType:  EVENT_DEBATE_TURN,
		PlayerName: speaker.Name,
		PlayerRole: speaker.Role,
		Details: map[string]any{
			"text":  text,
			"round": e.currentRound,
		},
	})
}

// debateRotation 轮转制辩论：随机洗出发言顺序，发言内容并发生成，
// 但严格按洗好的顺序入记录并广播
func (e *Engine) debateRotation() error {
	e.mu.RLock()
	order := slices.Clone(e.thisRound().Players)
	e.mu.RUnlock()

	rand.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	texts := make([]string, len(order))
	reasons := make([]string, len(order))

	workers := pool.New().WithMaxGoroutines(e.cfg.NumWorkers)
	for i, name := range order {
		i, name := i, name
		workers.Go(func() {
			outcome := e.invoke(e.state.Players[name], agent.CAP_DEBATE, nil)

			reason := outcome.reason
			if outcome.decision != nil {
				if outcome.decision.Say != "" {
					texts[i] = outcome.decision.Say
				} else {
					reason = FALLBACK_NULL
				}
			}

			reasons[i] = reason
		})
	}
	workers.Wait()

	for i, name := range order {
		speaker := e.state.Players[name]

		if reasons[i] != "" {
			texts[i] = DEFAULT_DEBATE_TEXT
			e.publishFallback(speaker, agent.CAP_DEBATE, reasons[i], "")
		}

		e.broadcastUtterance(speaker, texts[i])
	}

	return nil
}

// dayVote 白天投票：所有存活玩家并发决策，汇合后按存活列表顺序统一落账
// 每个玩家的票最终一定有一个合法的非自身目标
func (e *Engine) dayVote() error {
	e.mu.RLock()
	voters := slices.Clone(e.thisRound().Players)
	e.mu.RUnlock()

	type voteResult struct {
		target string
		reason string
	}

	results := make([]voteResult, len(voters))

	workers := pool.New().WithMaxGoroutines(e.cfg.NumWorkers)
	for i, name := range voters {
		i, name := i, name
		workers.Go(func() {
			options := make([]string, 0, len(voters)-1)
			for _, other := range voters {
				if other != name {
					options = append(options, other)
				}
			}

			outcome := e.invoke(e.state.Players[name], agent.CAP_VOTE, options)

			var target string
			reason := outcome.reason
			if outcome.decision != nil {
				// 投自己单独算一种失败，便于观察者区分
				if outcome.decision.Target == name {
					reason = FALLBACK_SELFVOTE
				} else {
					target, reason = validateTarget(outcome.decision.Target, options, reason)
				}
			}

			if reason != "" {
				target = nextAliveFallback(voters, name)
			}

			results[i] = voteResult{target: target, reason: reason}
		})
	}
	workers.Wait()

	// 汇合后的串行化点：按存活列表顺序落账并发布
	votes := make(map[string]string, len(voters))

	e.mu.Lock()
	round := e.thisRound()
	for i, name := range voters {
		votes[name] = results[i].target
		e.state.Players[name].AddObservation(
			fmt.Sprintf("After the debate, I voted to remove %s from the game.", results[i].target),
		)
	}
	round.Votes = append(round.Votes, votes)
	e.mu.Unlock()

	for i, name := range voters {
		voter := e.state.Players[name]

		if results[i].reason != "" {
			e.publishFallback(voter, agent.CAP_VOTE, results[i].reason, results[i].target)
		}

		e.pub.Publish(Event{
			EventType:  EVENT_VOTE_CAST,
			PlayerName: name,
			PlayerRole: voter.Role,
			TargetName: results[i].target,
			Details: map[string]any{
				"round": e.currentRound,
			},
		})
	}

	return nil
}

// dayExile 结算投票：绝对多数制要求票数过半，平票或不过半时无人出局；
// 简单多数制取最高票，平票按存活列表顺序取最先者
func (e *Engine) dayExile() error {
	e.mu.Lock()
	round := e.thisRound()

	if len(round.Votes) == 0 {
		e.mu.Unlock()
		return errors.New("放逐阶段缺少投票记录")
	}

	votes := round.Votes[len(round.Votes)-1]

	counts := make(map[string]int, len(round.Players))
	for _, target := range votes {
		counts[target]++
	}

	// 按存活列表顺序扫描，保证平票裁决是确定性的
	top := ""
	topCount := 0
	for _, name := range round.Players {
		if counts[name] > topCount {
			top = name
			topCount = counts[name]
		}
	}

	exiled := ""
	switch e.cfg.VoteRule {
	case VOTE_RULE_PLURALITY:
		exiled = top
	default:
		if topCount*2 > len(round.Players) {
			exiled = top
		}
	}

	var announcement string
	if exiled != "" {
		round.Exiled = exiled
		round.RemovePlayer(exiled)
		for _, name := range round.Players {
			e.state.Players[name].View.RemovePlayer(exiled)
		}

		// 简单多数制下不存在"过半"的说法，措辞按规则区分
		if e.cfg.VoteRule == VOTE_RULE_PLURALITY {
			announcement = fmt.Sprintf("The group voted to remove %s from the game.", exiled)
		} else {
			announcement = fmt.Sprintf("The majority voted to remove %s from the game.", exiled)
		}
	} else {
		announcement = "A majority vote was not reached, so no one was removed from the game."
	}

	for _, name := range round.Players {
		e.state.Players[name].AddAnnouncement(announcement)
	}
	e.mu.Unlock()

	if exiled != "" {
		zap.S().Infof("会话 %s 第 %d 轮放逐: %s 出局", e.state.SessionID, e.currentRound, exiled)
	} else {
		zap.S().Infof("会话 %s 第 %d 轮放逐: 无人出局", e.state.SessionID, e.currentRound)
	}

	e.pub.Publish(Event{
		EventType:  EVENT_PLAYER_EXILE,
		TargetName: exiled,
		Details: map[string]any{
			"announcement": announcement,
			"vote_counts":  counts,
			"round":        e.currentRound,
		},
	})

	return nil
}

// summarize 轮末总结：存活玩家并发生成总结，写入各自的私有观察
// 总结内容不进事件流，事件只标记总结已完成
func (e *Engine) summarize() error {
	e.mu.RLock()
	alive := slices.Clone(e.thisRound().Players)
	e.mu.RUnlock()

	texts := make([]string, len(alive))
	reasons := make([]string, len(alive))

	workers := pool.New().WithMaxGoroutines(e.cfg.NumWorkers)
	for i, name := range alive {
		i, name := i, name
		workers.Go(func() {
			outcome := e.invoke(e.state.Players[name], agent.CAP_SUMMARIZE, nil)

			reason := outcome.reason
			if outcome.decision != nil {
				if outcome.decision.Say != "" {
					texts[i] = outcome.decision.Say
				} else {
					reason = FALLBACK_NULL
				}
			}

			reasons[i] = reason
		})
	}
	workers.Wait()

	e.mu.Lock()
	for i, name := range alive {
		if reasons[i] != "" {
			texts[i] = DEFAULT_SUMMARY_TEXT
		}

		e.state.Players[name].AddObservation("Summary: " + strings.Trim(texts[i], `"`))
	}
	e.mu.Unlock()

	for i, name := range alive {
		player := e.state.Players[name]

		if reasons[i] != "" {
			e.publishFallback(player, agent.CAP_SUMMARIZE, reasons[i], "")
		}

		e.pub.Publish(Event{
			EventType:  EVENT_PLAYER_SUMMARY,
			PlayerName: name,
			PlayerRole: player.Role,
			Details: map[string]any{
				"round": e.currentRound,
			},
		})
	}

	return nil
}
