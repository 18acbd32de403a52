package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"werewolf-arena-be/internal/agent"
)

// 持久化的会话文档无法解析或字段不自洽时返回，调用方据此区分
// "快照坏了"和"引擎出错"两种失败
var ErrCorruptSnapshot = errors.New("会话快照损坏")

// RestoreState 从 JSON 快照恢复一个可续跑的会话状态
// 最后一个未完成的轮次被整轮丢弃，游戏从该轮的开头重新开始；
// backendFor 用于给每个玩家重新挂上决策后端（后端本身不持久化）
func RestoreState(
	data []byte,
	backendFor func(name, role string) agent.Agent,
) (*State, error) {
	var st State

	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	if err := validateSnapshot(&st); err != nil {
		return nil, err
	}

	// 丢弃失败的轮次，从这一轮的开头续跑
	droppedRound := -1
	if n := len(st.Rounds); n > 0 && !st.Rounds[n-1].Success {
		st.Rounds = st.Rounds[:n-1]
		droppedRound = n - 1
	}

	st.ErrorMessage = ""

	// 被停止的会话恢复后可以继续跑，真正的胜负结果不受影响
	if st.Winner == WINNER_STOPPED {
		st.Winner = ""
	}

	for _, p := range st.Players {
		p.Backend = backendFor(p.Name, p.Role)
		if p.Backend == nil {
			return nil, fmt.Errorf("%w: 玩家 %s 缺少决策后端", ErrCorruptSnapshot, p.Name)
		}
	}

	if len(st.Rounds) == 0 {
		// 没有完整轮次，等价于重开一局
		for _, p := range st.Players {
			p.InitView(0, st.PlayerOrder, st.otherWolfOf(p.Name))
			p.Observations = make([]string, 0)

			if p.Role == ROLE_SEER {
				p.PreviouslyUnmasked = make(map[string]string)
			}
		}

		return &st, nil
	}

	last := st.Rounds[len(st.Rounds)-1]

	for _, name := range last.Players {
		p := st.Players[name]
		if p == nil {
			return nil, fmt.Errorf("%w: 轮次引用了不存在的玩家 %s", ErrCorruptSnapshot, name)
		}

		p.InitView(len(st.Rounds), last.Players, st.otherWolfOf(name))

		// 被丢弃轮次产生的观察记录一并清除
		if droppedRound >= 0 {
			prefix := fmt.Sprintf("Round %d:", droppedRound)
			kept := p.Observations[:0]
			for _, obs := range p.Observations {
				if !strings.HasPrefix(obs, prefix) {
					kept = append(kept, obs)
				}
			}
			p.Observations = kept
		}

		// 预言家的查验历史从已完成轮次重建
		if p.Role == ROLE_SEER {
			history := make(map[string]string)
			for _, r := range st.Rounds {
				if r.Unmasked == "" {
					continue
				}
				if target := st.Players[r.Unmasked]; target != nil {
					history[r.Unmasked] = target.Role
				}
			}
			p.PreviouslyUnmasked = history
		}
	}

	return &st, nil
}

func validateSnapshot(st *State) error {
	if st.SessionID == "" {
		return fmt.Errorf("%w: 缺少 session_id", ErrCorruptSnapshot)
	}

	if len(st.Players) == 0 {
		return fmt.Errorf("%w: 没有任何玩家", ErrCorruptSnapshot)
	}

	if st.Players[st.Seer] == nil || st.Players[st.Doctor] == nil {
		return fmt.Errorf("%w: 预言家或医生缺失", ErrCorruptSnapshot)
	}

	if len(st.Werewolves) == 0 {
		return fmt.Errorf("%w: 没有狼人", ErrCorruptSnapshot)
	}

	for _, w := range st.Werewolves {
		if st.Players[w] == nil {
			return fmt.Errorf("%w: 狼人 %s 不在玩家表中", ErrCorruptSnapshot, w)
		}
	}

	if len(st.PlayerOrder) != len(st.Players) {
		return fmt.Errorf("%w: 玩家顺序表与玩家表不一致", ErrCorruptSnapshot)
	}

	return nil
}
