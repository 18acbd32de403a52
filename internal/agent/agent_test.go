package agent

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func TestRandomAgentStaysWithinOptions(t *testing.T) {
	ra := NewRandomAgent()
	ac := Context{
		Name:         "Alice",
		ValidOptions: []string{"Bob", "Carol"},
	}

	for i := 0; i < 50; i++ {
		decision, err := ra.Invoke(context.Background(), CAP_VOTE, ac)
		if err != nil {
			t.Fatalf("random vote failed: %v", err)
		}
		if decision == nil {
			t.Fatalf("random agent declined with options available")
		}
		if !slices.Contains(ac.ValidOptions, decision.Target) {
			t.Fatalf("random agent picked %q outside options", decision.Target)
		}
	}

	decision, err := ra.Invoke(context.Background(), CAP_BID, Context{})
	if err != nil {
		t.Fatalf("random bid failed: %v", err)
	}
	if decision.Bid < 0 || decision.Bid > 4 {
		t.Fatalf("bid %d out of range [0, 4]", decision.Bid)
	}

	// 没有合法目标时放弃决策
	decision, err = ra.Invoke(context.Background(), CAP_ELIMINATE, Context{})
	if err != nil || decision != nil {
		t.Fatalf("random agent with no options should decline, got %v, %v", decision, err)
	}
}

func TestSilentAgentAlwaysDeclines(t *testing.T) {
	sa := NewSilentAgent()

	for _, capability := range []string{CAP_BID, CAP_DEBATE, CAP_VOTE, CAP_SUMMARIZE} {
		decision, err := sa.Invoke(context.Background(), capability, Context{})
		if err != nil || decision != nil {
			t.Fatalf("silent agent should always decline, capability %q got %v, %v", capability, decision, err)
		}
	}
}

func TestScriptedAgentPopsInOrderThenDeclines(t *testing.T) {
	sa := NewScriptedAgent().
		Enqueue(CAP_VOTE,
			&Decision{Target: "Bob"},
			&Decision{Target: "Carol"},
		).
		Enqueue(CAP_PROTECT, &Decision{Target: "Dave"})

	first, _ := sa.Invoke(context.Background(), CAP_VOTE, Context{})
	if first == nil || first.Target != "Bob" {
		t.Fatalf("first vote should be Bob, got %v", first)
	}

	second, _ := sa.Invoke(context.Background(), CAP_VOTE, Context{})
	if second == nil || second.Target != "Carol" {
		t.Fatalf("second vote should be Carol, got %v", second)
	}

	// 队列独立：protect 队列不受 vote 消费影响
	protect, _ := sa.Invoke(context.Background(), CAP_PROTECT, Context{})
	if protect == nil || protect.Target != "Dave" {
		t.Fatalf("protect should be Dave, got %v", protect)
	}

	exhausted, err := sa.Invoke(context.Background(), CAP_VOTE, Context{})
	if err != nil || exhausted != nil {
		t.Fatalf("exhausted script should decline, got %v, %v", exhausted, err)
	}
}

type flakyAgent struct {
	failures int
	calls    int
}

func (fa *flakyAgent) Invoke(_ context.Context, _ string, _ Context) (*Decision, error) {
	fa.calls++

	if fa.calls <= fa.failures {
		return nil, errors.New("backend unavailable")
	}

	return &Decision{Target: "Bob"}, nil
}

func TestRetryAgentRecoversFromTransientErrors(t *testing.T) {
	inner := &flakyAgent{failures: 2}
	ra := NewRetryAgent(inner, 3)

	decision, err := ra.Invoke(context.Background(), CAP_VOTE, Context{Name: "Alice"})
	if err != nil {
		t.Fatalf("retry agent surfaced an error it should have absorbed: %v", err)
	}
	if decision == nil || decision.Target != "Bob" {
		t.Fatalf("retry agent should succeed on the third attempt, got %v", decision)
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", inner.calls)
	}
}

func TestRetryAgentDeclinesAfterExhaustion(t *testing.T) {
	inner := &flakyAgent{failures: 10}
	ra := NewRetryAgent(inner, 3)

	decision, err := ra.Invoke(context.Background(), CAP_VOTE, Context{Name: "Alice"})
	if err != nil || decision != nil {
		t.Fatalf("exhausted retries should decline, got %v, %v", decision, err)
	}
	if inner.calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", inner.calls)
	}
}

func TestRetryAgentHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inner := &flakyAgent{failures: 10}
	ra := NewRetryAgent(inner, 3)

	if _, err := ra.Invoke(ctx, CAP_VOTE, Context{Name: "Alice"}); err == nil {
		t.Fatalf("cancelled context should abort the retry loop")
	}
	if inner.calls != 0 {
		t.Fatalf("no attempts should run under a cancelled context, got %d", inner.calls)
	}
}
