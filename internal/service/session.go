package service

import (
	"errors"
	"sync"
	"time"

	"werewolf-arena-be/internal/agent"
	"werewolf-arena-be/internal/service/dto"
	"werewolf-arena-be/internal/service/game"

	"go.uber.org/zap"
)

// BackendFactory 为每名玩家提供决策后端
type BackendFactory func(name, role string) agent.Agent

// Options 是会话服务的固定配置，创建请求里的字段可以逐项覆盖
type Options struct {
	NumPlayers    int
	NumWerewolves int
	Engine        game.EngineConfig
	Backends      BackendFactory
}

// 已结束的会话保留一段时间供查询，之后由清理协程回收
const FINISHED_SESSION_TTL = 30 * time.Minute

type SessionService struct {
	state *sessionServiceState
	opts  Options
}

type sessionServiceState struct {
	mu sync.RWMutex

	// 从会话 ID 到会话实体的映射
	sessions map[string]*sessionEntry

	cleanUpDone chan struct{}
}

type sessionEntry struct {
	state  *game.State
	engine *game.Engine
	pub    *game.Publisher

	started   bool
	createdAt time.Time

	// 引擎协程退出时关闭
	done chan struct{}
}

func NewSessionService(opts Options) *SessionService {
	if opts.NumPlayers <= 0 {
		opts.NumPlayers = 6
	}

	if opts.NumWerewolves <= 0 {
		opts.NumWerewolves = 1
	}

	if opts.Backends == nil {
		opts.Backends = func(name, role string) agent.Agent {
			return agent.NewRandomAgent()
		}
	}

	state := &sessionServiceState{
		sessions:    make(map[string]*sessionEntry),
		cleanUpDone: make(chan struct{}),
	}

	// 启动一个 goroutine 定期清理过期的会话
	go startCleanupLoop(state)

	return &SessionService{
		state: state,
		opts:  opts,
	}
}

func startCleanupLoop(state *sessionServiceState) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-state.cleanUpDone:
			return

		case <-ticker.C:
			state.mu.Lock()

			for sessionID, entry := range state.sessions {
				if !isSessionExpired(entry) {
					continue
				}

				zap.S().Infof("会话 %s 已过期，开始清理", sessionID)

				entry.pub.Close()
				delete(state.sessions, sessionID)
			}

			state.mu.Unlock()
		}
	}
}

func (ss *SessionService) Close() {
	close(ss.state.cleanUpDone)

	ss.state.mu.Lock()
	defer ss.state.mu.Unlock()

	for sessionID, entry := range ss.state.sessions {
		if entry.started {
			entry.engine.RequestStop()
		}
		entry.pub.Close()

		delete(ss.state.sessions, sessionID)
	}
}

// CreateSession 建立一个新会话：分配名字和角色、绑定决策后端
// 会话创建后不会自动开局，需要显式调用 StartSession
func (ss *SessionService) CreateSession(req dto.CreateSessionRequest) (dto.CreateSessionResponse, error) {
	numPlayers := ss.opts.NumPlayers
	if req.NumPlayers > 0 {
		numPlayers = req.NumPlayers
	}

	numWerewolves := ss.opts.NumWerewolves
	if req.NumWerewolves > 0 {
		numWerewolves = req.NumWerewolves
	}

	assigned, err := assignRoles(numPlayers, numWerewolves)
	if err != nil {
		return dto.CreateSessionResponse{}, err
	}

	players := make([]*game.Player, 0, len(assigned))
	for _, pr := range assigned {
		players = append(players, game.NewPlayer(pr.Name, pr.Role, ss.opts.Backends(pr.Name, pr.Role)))
	}

	sessionID := game.GenID()

	st, err := game.NewState(sessionID, players)
	if err != nil {
		return dto.CreateSessionResponse{}, err
	}

	cfg := ss.opts.Engine
	if req.DebatePolicy != "" {
		cfg.DebatePolicy = req.DebatePolicy
	}
	if req.VoteRule != "" {
		cfg.VoteRule = req.VoteRule
	}

	pub := game.NewPublisher(sessionID)

	entry := &sessionEntry{
		state:     st,
		engine:    game.NewEngine(st, cfg, pub),
		pub:       pub,
		createdAt: time.Now(),
		done:      make(chan struct{}),
	}

	ss.state.mu.Lock()
	ss.state.sessions[sessionID] = entry
	ss.state.mu.Unlock()

	zap.S().Infof("会话 %s 创建完成：%d 名玩家，%d 头狼", sessionID, numPlayers, numWerewolves)

	infos := make([]dto.PlayerInfo, 0, len(assigned))
	for _, pr := range assigned {
		infos = append(infos, dto.PlayerInfo{Name: pr.Name, Role: pr.Role})
	}

	return dto.CreateSessionResponse{
		SessionID: sessionID,
		Players:   infos,
	}, nil
}

// StartSession 开局，幂等：重复调用已开始的会话只返回当前状态
func (ss *SessionService) StartSession(sessionID string) (dto.SessionInfo, error) {
	ss.state.mu.Lock()

	entry, ok := ss.state.sessions[sessionID]
	if !ok {
		ss.state.mu.Unlock()
		return dto.SessionInfo{}, errors.New("会话不存在")
	}

	if entry.started {
		info := sessionInfo(sessionID, entry)
		ss.state.mu.Unlock()

		zap.S().Debugf("会话 %s 已经开始，忽略重复的开局请求", sessionID)
		return info, nil
	}

	entry.started = true
	ss.state.mu.Unlock()

	go func() {
		defer close(entry.done)
		// 对局结束后关闭发布器，订阅者以通道关闭感知流结束
		defer entry.pub.Close()

		entry.engine.RunGame()
	}()

	zap.S().Infof("会话 %s 开局", sessionID)

	ss.state.mu.RLock()
	defer ss.state.mu.RUnlock()

	return sessionInfo(sessionID, entry), nil
}

// RequestStop 请求协作式停止，当前轮次完整结束后才真正停下
func (ss *SessionService) RequestStop(sessionID string) (dto.SessionInfo, error) {
	ss.state.mu.RLock()
	defer ss.state.mu.RUnlock()

	entry, ok := ss.state.sessions[sessionID]
	if !ok {
		return dto.SessionInfo{}, errors.New("会话不存在")
	}

	if !entry.started {
		return dto.SessionInfo{}, errors.New("会话尚未开始")
	}

	entry.engine.RequestStop()

	zap.S().Infof("会话 %s 收到停止请求，将在当前轮次结束后停止", sessionID)

	return sessionInfo(sessionID, entry), nil
}

// GetState 导出会话的完整状态文档，对局运行中也可以安全调用
func (ss *SessionService) GetState(sessionID string) (dto.SessionStateResponse, error) {
	ss.state.mu.RLock()
	entry, ok := ss.state.sessions[sessionID]
	ss.state.mu.RUnlock()

	if !ok {
		return dto.SessionStateResponse{}, errors.New("会话不存在")
	}

	snapshot, err := entry.engine.StateSnapshot()
	if err != nil {
		return dto.SessionStateResponse{}, err
	}

	ss.state.mu.RLock()
	info := sessionInfo(sessionID, entry)
	ss.state.mu.RUnlock()

	return dto.SessionStateResponse{
		Info:  info,
		State: snapshot,
	}, nil
}

func (ss *SessionService) ListSessions() dto.ListSessionsResponse {
	ss.state.mu.RLock()
	defer ss.state.mu.RUnlock()

	sessions := make([]dto.SessionInfo, 0, len(ss.state.sessions))
	for sessionID, entry := range ss.state.sessions {
		sessions = append(sessions, sessionInfo(sessionID, entry))
	}

	return dto.ListSessionsResponse{Sessions: sessions}
}

// ResumeSession 从状态快照恢复一个会话
// 未完整结束的末轮会被丢弃，恢复后从该轮重新开始；恢复不会自动开局
func (ss *SessionService) ResumeSession(snapshot []byte) (dto.ResumeSessionResponse, error) {
	st, err := game.RestoreState(snapshot, ss.opts.Backends)
	if err != nil {
		return dto.ResumeSessionResponse{}, err
	}

	ss.state.mu.Lock()
	defer ss.state.mu.Unlock()

	if _, exists := ss.state.sessions[st.SessionID]; exists {
		return dto.ResumeSessionResponse{}, errors.New("同 ID 的会话已经存在")
	}

	pub := game.NewPublisher(st.SessionID)

	ss.state.sessions[st.SessionID] = &sessionEntry{
		state:     st,
		engine:    game.NewEngine(st, ss.opts.Engine, pub),
		pub:       pub,
		createdAt: time.Now(),
		done:      make(chan struct{}),
	}

	zap.S().Infof("会话 %s 从快照恢复，已有 %d 个完整轮次", st.SessionID, len(st.Rounds))

	return dto.ResumeSessionResponse{
		SessionID: st.SessionID,
		Rounds:    len(st.Rounds),
	}, nil
}

// Subscribe 订阅会话的事件流
func (ss *SessionService) Subscribe(sessionID string) (*game.Subscriber, error) {
	ss.state.mu.RLock()
	defer ss.state.mu.RUnlock()

	entry, ok := ss.state.sessions[sessionID]
	if !ok {
		return nil, errors.New("会话不存在")
	}

	return entry.pub.Subscribe(), nil
}

func (ss *SessionService) Unsubscribe(sessionID, subscriberID string) {
	ss.state.mu.RLock()
	defer ss.state.mu.RUnlock()

	if entry, ok := ss.state.sessions[sessionID]; ok {
		entry.pub.Unsubscribe(subscriberID)
	}
}
