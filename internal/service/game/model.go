package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"werewolf-arena-be/internal/agent"
)

// 玩家身份
const (
	ROLE_VILLAGER = "Villager"
	ROLE_WEREWOLF = "Werewolf"
	ROLE_SEER     = "Seer"
	ROLE_DOCTOR   = "Doctor"
)

// 胜负结果，空字符串表示尚未分出胜负
const (
	WINNER_WEREWOLVES = "Werewolves"
	WINNER_VILLAGERS  = "Villagers"
	WINNER_STOPPED    = "Stopped"
)

// GameView 是单个玩家可见的游戏状态投影
// 除了狼人的队友信息之外，不包含任何其他玩家的身份
type GameView struct {
	RoundNumber    int               `json:"round_number"`
	CurrentPlayers []string          `json:"current_players"`
	Debate         []agent.Utterance `json:"debate"`
	OtherWolf      string            `json:"other_wolf,omitempty"`
}

func NewGameView(roundNumber int, currentPlayers []string, otherWolf string) *GameView {
	return &GameView{
		RoundNumber:    roundNumber,
		CurrentPlayers: slices.Clone(currentPlayers),
		Debate:         make([]agent.Utterance, 0),
		OtherWolf:      otherWolf,
	}
}

func (gv *GameView) UpdateDebate(speaker, text string) {
	gv.Debate = append(gv.Debate, agent.Utterance{
		Speaker: speaker,
		Text:    text,
	})
}

func (gv *GameView) ClearDebate() {
	gv.Debate = gv.Debate[:0]
}

func (gv *GameView) RemovePlayer(name string) {
	idx := slices.Index(gv.CurrentPlayers, name)
	if idx < 0 {
		// 已经被移除过，状态不同步时只记录不报错
		return
	}

	gv.CurrentPlayers = slices.Delete(gv.CurrentPlayers, idx, idx+1)
}

type Player struct {
	Name string `json:"name"`
	Role string `json:"role"`
	// 私有观察日志，按轮次标记，只增不减
	Observations []string  `json:"observations"`
	BidRationale string    `json:"bid_rationale,omitempty"`
	View         *GameView `json:"game_view"`
	// 预言家已经查验过的玩家及其真实身份，其他角色恒为空
	PreviouslyUnmasked map[string]string `json:"previously_unmasked,omitempty"`

	Backend agent.Agent `json:"-"`
}

func NewPlayer(name, role string, backend agent.Agent) *Player {
	p := &Player{
		Name:         name,
		Role:         role,
		Observations: make([]string, 0),
		Backend:      backend,
	}

	if role == ROLE_SEER {
		p.PreviouslyUnmasked = make(map[string]string)
	}

	return p
}

func (p *Player) InitView(roundNumber int, currentPlayers []string, otherWolf string) {
	p.View = NewGameView(roundNumber, currentPlayers, otherWolf)
}

func (p *Player) AddObservation(observation string) {
	p.Observations = append(
		p.Observations,
		fmt.Sprintf("Round %d: %s", p.View.RoundNumber, observation),
	)
}

func (p *Player) AddAnnouncement(announcement string) {
	p.AddObservation("Moderator Announcement: " + announcement)
}

// Round 记录一整轮（夜晚+白天）的决策产物，0 起始编号
type Round struct {
	// 本轮开始时的存活玩家，夜晚与白天的移除会同步反映在这里
	Players    []string            `json:"players"`
	Eliminated string              `json:"eliminated,omitempty"`
	Protected  string              `json:"protected,omitempty"`
	Unmasked   string              `json:"unmasked,omitempty"`
	Exiled     string              `json:"exiled,omitempty"`
	Debate     []agent.Utterance   `json:"debate"`
	Votes      []map[string]string `json:"votes"`
	Bids       []map[string]int    `json:"bids"`
	// 本轮完整跑完（包括被胜负判定截断的情况）后置为 true
	Success bool `json:"success"`
}

func NewRound(players []string) *Round {
	return &Round{
		Players: slices.Clone(players),
		Debate:  make([]agent.Utterance, 0),
		Votes:   make([]map[string]string, 0),
		Bids:    make([]map[string]int, 0),
	}
}

func (r *Round) RemovePlayer(name string) {
	idx := slices.Index(r.Players, name)
	if idx >= 0 {
		r.Players = slices.Delete(r.Players, idx, idx+1)
	}
}

// State 是一个会话的权威游戏状态，整体可序列化为一份 JSON 文档
type State struct {
	SessionID string             `json:"session_id"`
	Players   map[string]*Player `json:"players"`
	// 角色索引，避免每次遍历 Players
	Seer       string   `json:"seer"`
	Doctor     string   `json:"doctor"`
	Werewolves []string `json:"werewolves"`
	// 创建会话时的玩家顺序，所有"按列表顺序"的确定性规则都以它为准
	PlayerOrder []string `json:"player_order"`

	Rounds       []*Round `json:"rounds"`
	Winner       string   `json:"winner"`
	ErrorMessage string   `json:"error_message"`
}

func NewState(sessionID string, players []*Player) (*State, error) {
	st := &State{
		SessionID:  sessionID,
		Players:    make(map[string]*Player, len(players)),
		Werewolves: make([]string, 0, 2),
		Rounds:     make([]*Round, 0),
	}

	names := make([]string, 0, len(players))
	for _, p := range players {
		if _, exists := st.Players[p.Name]; exists {
			return nil, fmt.Errorf("玩家名重复: %s", p.Name)
		}

		st.Players[p.Name] = p
		names = append(names, p.Name)

		switch p.Role {
		case ROLE_SEER:
			st.Seer = p.Name
		case ROLE_DOCTOR:
			st.Doctor = p.Name
		case ROLE_WEREWOLF:
			st.Werewolves = append(st.Werewolves, p.Name)
		}
	}

	if st.Seer == "" || st.Doctor == "" || len(st.Werewolves) == 0 {
		return nil, errors.New("角色分配不完整：缺少预言家、医生或狼人")
	}

	st.PlayerOrder = names

	// 初始化所有玩家的视图，狼人额外获得队友信息
	for _, p := range players {
		p.InitView(0, names, st.otherWolfOf(p.Name))
	}

	return st, nil
}

func (st *State) otherWolfOf(name string) string {
	if !slices.Contains(st.Werewolves, name) {
		return ""
	}

	for _, w := range st.Werewolves {
		if w != name {
			return w
		}
	}

	return ""
}

func (st *State) IsWerewolf(name string) bool {
	return slices.Contains(st.Werewolves, name)
}

// AlivePlayers 返回最近一轮的存活玩家，没有轮次时返回创建时的全量玩家
func (st *State) AlivePlayers() []string {
	if len(st.Rounds) == 0 {
		return slices.Clone(st.PlayerOrder)
	}

	return slices.Clone(st.Rounds[len(st.Rounds)-1].Players)
}

// Snapshot 把整个会话状态序列化为一份 JSON 文档
func (st *State) Snapshot() ([]byte, error) {
	return json.Marshal(st)
}
