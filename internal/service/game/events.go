package game

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// 对外发布的事件类型
const (
	EVENT_PHASE_CHANGE   = "phase_change"
	EVENT_NIGHT_ACTION   = "night_action"
	EVENT_DEBATE_TURN    = "debate_turn"
	EVENT_VOTE_CAST      = "vote_cast"
	EVENT_PLAYER_EXILE   = "player_exile"
	EVENT_PLAYER_SUMMARY = "player_summary"
	// 引擎替玩家做出回退决策时发布，观察者据此区分"后端正常"和"引擎干预"
	EVENT_AGENT_FALLBACK = "agent_fallback"
	EVENT_GAME_COMPLETE  = "game_complete"
	EVENT_ERROR          = "error"
)

// Event 是对外可见的编排事件
// SequenceNumber 是唯一的排序依据，消费方不能依赖 Timestamp 排序
type Event struct {
	SequenceNumber int64          `json:"sequence_number"`
	EventType      string         `json:"event_type"`
	SessionID      string         `json:"session_id"`
	PlayerName     string         `json:"player_name,omitempty"`
	PlayerRole     string         `json:"player_role,omitempty"`
	TargetName     string         `json:"target_name,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Sequencer 为单个会话维护单调递增的序列号
// 纯内存结构，进程重启后重新从 1 开始（设计上不保证跨进程连续）
type Sequencer struct {
	mu      sync.Mutex
	counter int64
}

func (s *Sequencer) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter++
	return s.counter
}

func (s *Sequencer) Current() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.counter
}

// Subscriber 是一个事件流订阅者
// 通道缓冲满时事件直接丢弃（至多一次、尽力送达），慢订阅者不会拖住引擎
type Subscriber struct {
	ID string
	ch chan Event
}

func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

const (
	// 引擎侧出站队列的容量
	EVENT_QUEUE_SIZE = 256
	// 单个订阅者的通道容量
	SUBSCRIBER_BUFFER_SIZE = 64
)

// Publisher 负责给事件盖序列号并异步分发给所有订阅者
// 引擎只做非阻塞入队，真正的分发由独立协程完成，
// 任何订阅侧的故障都不会传播回编排路径
type Publisher struct {
	sessionID string
	seq       *Sequencer

	queue chan Event
	done  chan struct{}

	mu     sync.RWMutex
	subs   map[string]*Subscriber
	closed bool

	closeOnce sync.Once
}

func NewPublisher(sessionID string) *Publisher {
	p := &Publisher{
		sessionID: sessionID,
		seq:       &Sequencer{},
		queue:     make(chan Event, EVENT_QUEUE_SIZE),
		done:      make(chan struct{}),
		subs:      make(map[string]*Subscriber),
	}

	go p.fanoutLoop()

	return p
}

// Publish 在引擎的串行化点被调用：先盖序列号再入队，
// 保证序列号次序与编排逻辑次序一致
func (p *Publisher) Publish(ev Event) int64 {
	ev.SequenceNumber = p.seq.Next()
	ev.SessionID = p.sessionID
	ev.Timestamp = time.Now()

	select {
	case p.queue <- ev:
	default:
		// 出站队列满只丢事件，绝不阻塞引擎
		zap.L().Warn(
			"事件出站队列已满，丢弃事件",
			zap.String("session_id", p.sessionID),
			zap.String("event_type", ev.EventType),
			zap.Int64("sequence_number", ev.SequenceNumber),
		)
	}

	return ev.SequenceNumber
}

func (p *Publisher) Sequence() int64 {
	return p.seq.Current()
}

func (p *Publisher) Subscribe() *Subscriber {
	sub := &Subscriber{
		ID: GenID(),
		ch: make(chan Event, SUBSCRIBER_BUFFER_SIZE),
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		// 已关闭的发布器直接返回一个关闭的订阅，调用方按流结束处理
		close(sub.ch)
		return sub
	}

	p.subs[sub.ID] = sub

	return sub
}

func (p *Publisher) Unsubscribe(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if sub, ok := p.subs[id]; ok {
		delete(p.subs, id)
		close(sub.ch)
	}
}

// Close 停止分发协程并关闭所有订阅者通道，幂等
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
}

func (p *Publisher) fanoutLoop() {
	defer func() {
		p.mu.Lock()
		p.closed = true
		for id, sub := range p.subs {
			delete(p.subs, id)
			close(sub.ch)
		}
		p.mu.Unlock()

		zap.L().Debug(
			"事件分发协程退出",
			zap.String("session_id", p.sessionID),
		)
	}()

	for {
		select {
		case <-p.done:
			return

		case ev := <-p.queue:
			p.mu.RLock()
			for _, sub := range p.subs {
				select {
				case sub.ch <- ev:
				default:
					// 慢订阅者丢事件，不影响其他订阅者
					zap.L().Debug(
						"订阅者缓冲已满，丢弃事件",
						zap.String("session_id", p.sessionID),
						zap.String("subscriber_id", sub.ID),
						zap.Int64("sequence_number", ev.SequenceNumber),
					)
				}
			}
			p.mu.RUnlock()
		}
	}
}
