package game

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"werewolf-arena-be/internal/agent"
)

func silentBackendFor(name, role string) agent.Agent {
	return agent.NewSilentAgent()
}

// 构造一个带历史的会话：第 0 轮完整，第 1 轮进行到一半
func buildSnapshotState(t *testing.T) *State {
	t.Helper()

	st, err := NewState("restore-test", silentRoster())
	if err != nil {
		t.Fatalf("failed to build state: %v", err)
	}

	// 第 0 轮：Frank 被淘汰，Carol 被查验
	first := NewRound(st.PlayerOrder)
	first.Eliminated = "Frank"
	first.Unmasked = "Carol"
	first.RemovePlayer("Frank")
	first.Success = true
	st.Rounds = append(st.Rounds, first)

	for _, name := range first.Players {
		p := st.Players[name]
		p.View.RemovePlayer("Frank")
		p.AddAnnouncement("The Werewolves removed Frank from the game during the night.")
	}

	// 第 1 轮：夜晚走了一半就被中断
	second := NewRound(first.Players)
	second.Eliminated = "Dave"
	st.Rounds = append(st.Rounds, second)

	for _, name := range second.Players {
		p := st.Players[name]
		p.View.RoundNumber = 1
		p.AddObservation("something happened tonight")
	}

	st.ErrorMessage = "决策后端失联"

	return st
}

func TestRestoreDiscardsIncompleteRound(t *testing.T) {
	original := buildSnapshotState(t)

	data, err := original.Snapshot()
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	restored, err := RestoreState(data, silentBackendFor)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	// 未完成的第 1 轮被整轮丢弃
	if len(restored.Rounds) != 1 {
		t.Fatalf("incomplete round should be dropped, got %d rounds", len(restored.Rounds))
	}

	if restored.ErrorMessage != "" {
		t.Fatalf("error message should be cleared on restore, got %q", restored.ErrorMessage)
	}

	alive := restored.AlivePlayers()
	if slices.Contains(alive, "Frank") {
		t.Fatalf("player removed in a completed round came back: %v", alive)
	}
	if len(alive) != 5 {
		t.Fatalf("expected 5 alive after restore, got %d", len(alive))
	}

	for _, name := range alive {
		p := restored.Players[name]

		if p.Backend == nil {
			t.Fatalf("player %s has no backend after restore", name)
		}

		// 视图从最后一个完整轮次重建，轮次号指向将要重跑的那一轮
		if p.View.RoundNumber != 1 {
			t.Fatalf("player %s view round = %d, want 1", name, p.View.RoundNumber)
		}

		if !slices.Equal(p.View.CurrentPlayers, alive) {
			t.Fatalf("player %s view alive list %v, want %v", name, p.View.CurrentPlayers, alive)
		}

		// 被丢弃轮次的观察记录一并清除
		for _, obs := range p.Observations {
			if strings.HasPrefix(obs, "Round 1:") {
				t.Fatalf("player %s kept an observation from the dropped round: %q", name, obs)
			}
		}
	}

	// 预言家的查验历史只从完整轮次重建
	seer := restored.Players[restored.Seer]
	if len(seer.PreviouslyUnmasked) != 1 || seer.PreviouslyUnmasked["Carol"] != ROLE_WEREWOLF {
		t.Fatalf("seer history rebuilt incorrectly: %v", seer.PreviouslyUnmasked)
	}
}

func TestRestoreRoundTripKeepsIdentity(t *testing.T) {
	original := buildSnapshotState(t)

	data, err := original.Snapshot()
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	restored, err := RestoreState(data, silentBackendFor)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	if restored.SessionID != original.SessionID {
		t.Fatalf("session id changed: %q -> %q", original.SessionID, restored.SessionID)
	}

	if restored.Seer != original.Seer || restored.Doctor != original.Doctor {
		t.Fatalf("role index changed on restore")
	}

	if !slices.Equal(restored.Werewolves, original.Werewolves) {
		t.Fatalf("werewolf list changed: %v -> %v", original.Werewolves, restored.Werewolves)
	}

	if !slices.Equal(restored.PlayerOrder, original.PlayerOrder) {
		t.Fatalf("player order changed: %v -> %v", original.PlayerOrder, restored.PlayerOrder)
	}
}

func TestRestoreStoppedSessionCanContinue(t *testing.T) {
	st, err := NewState("stopped-restore", silentRoster())
	if err != nil {
		t.Fatalf("failed to build state: %v", err)
	}

	round := NewRound(st.PlayerOrder)
	round.Success = true
	st.Rounds = append(st.Rounds, round)
	st.Winner = WINNER_STOPPED

	data, err := st.Snapshot()
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	restored, err := RestoreState(data, silentBackendFor)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	if restored.Winner != "" {
		t.Fatalf("stopped marker should be cleared so the game can continue, got %q", restored.Winner)
	}
}

func TestRestoreRejectsCorruptSnapshots(t *testing.T) {
	if _, err := RestoreState([]byte("{broken json"), silentBackendFor); !errors.Is(err, ErrCorruptSnapshot) {
		t.Fatalf("malformed json should yield ErrCorruptSnapshot, got %v", err)
	}

	// 结构完整但字段不自洽
	if _, err := RestoreState([]byte(`{"session_id":"x","players":{}}`), silentBackendFor); !errors.Is(err, ErrCorruptSnapshot) {
		t.Fatalf("empty player table should yield ErrCorruptSnapshot, got %v", err)
	}

	st, err := NewState("no-backend", silentRoster())
	if err != nil {
		t.Fatalf("failed to build state: %v", err)
	}

	data, err := st.Snapshot()
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	noBackend := func(name, role string) agent.Agent { return nil }
	if _, err := RestoreState(data, noBackend); !errors.Is(err, ErrCorruptSnapshot) {
		t.Fatalf("missing backend should yield ErrCorruptSnapshot, got %v", err)
	}
}
