package main

import (
	"testing"
	"time"
)

// newTestGame builds a session with the given roster, not yet started
func newTestGame(names ...string) (*Game, []*Player) {
	cfg := DefaultGameConfig()
	g := NewGame("test-session", "Test", cfg, nil, nil, nil, nil)
	players := make([]*Player, 0, len(names))
	for _, n := range names {
		players = append(players, g.AddPlayer(n, 0))
	}
	return g, players
}

func startTestMatch(g *Game) {
	g.mu.Lock()
	g.startPlaying(g.now())
	g.mu.Unlock()
}

func TestApplyDamageGrantsInvulnerability(t *testing.T) {
	g, ps := newTestGame("A", "B")
	startTestMatch(g)
	p := ps[0]

	g.mu.Lock()
	g.applyDamage(p, g.now())
	g.mu.Unlock()

	if p.Lives != 2 {
		t.Errorf("expected 2 lives, got %d", p.Lives)
	}
	if !p.Invulnerable {
		t.Error("survivable hit should grant invulnerability")
	}
	if !p.Alive {
		t.Error("player should survive with lives remaining")
	}
}

func TestApplyDamageDuringInvulnerability(t *testing.T) {
	g, ps := newTestGame("A", "B")
	startTestMatch(g)
	p := ps[0]

	g.mu.Lock()
	g.applyDamage(p, g.now())
	g.applyDamage(p, g.now()) // inside the invuln window
	g.mu.Unlock()

	if p.Lives != 2 {
		t.Errorf("second hit inside the window must be ignored, lives %d", p.Lives)
	}
	if p.DamageTaken != 1 {
		t.Errorf("expected 1 recorded hit, got %d", p.DamageTaken)
	}
}

func TestApplyDamageLethal(t *testing.T) {
	g, ps := newTestGame("A", "B")
	startTestMatch(g)
	victim, survivor := ps[0], ps[1]
	victim.Lives = 1

	g.mu.Lock()
	g.applyDamage(victim, g.now())
	g.mu.Unlock()

	if victim.Alive {
		t.Error("player with 0 lives must be eliminated")
	}
	if victim.Invulnerable {
		t.Error("a lethal hit grants no invulnerability")
	}
	if g.phase != PhaseFinished {
		t.Fatal("match should finish when one player remains")
	}
	if g.stats.WinnerID != survivor.ID {
		t.Errorf("expected winner %s, got %s", survivor.ID, g.stats.WinnerID)
	}
}

func TestApplyDamageDeadPlayer(t *testing.T) {
	g, ps := newTestGame("A", "B", "C")
	startTestMatch(g)
	p := ps[0]
	p.Alive = false
	p.Lives = 0

	g.mu.Lock()
	g.applyDamage(p, g.now())
	g.mu.Unlock()

	if p.DamageTaken != 0 {
		t.Error("dead player must not take damage")
	}
}

func TestSweepInvulnerability(t *testing.T) {
	g, ps := newTestGame("A", "B", "C")
	startTestMatch(g)
	p := ps[0]

	now := time.Now()
	g.mu.Lock()
	g.applyDamage(p, now)
	g.sweepInvulnerability(now.Add(time.Second))
	if !p.Invulnerable {
		t.Error("window should still be open after 1s")
	}
	g.sweepInvulnerability(now.Add(3 * time.Second))
	if p.Invulnerable {
		t.Error("window should be closed after it elapses")
	}
	g.mu.Unlock()
}

func TestSweepInvulnerabilityDeadPlayerKeepsFlag(t *testing.T) {
	g, ps := newTestGame("A", "B", "C")
	startTestMatch(g)
	p := ps[0]
	p.Invulnerable = true
	p.InvulnUntil = time.Now().Add(-time.Second)
	p.Alive = false

	g.mu.Lock()
	g.sweepInvulnerability(time.Now())
	g.mu.Unlock()

	if !p.Invulnerable {
		t.Error("sweep must not touch eliminated players")
	}
}

func TestHitEventAfterMatchEndIgnored(t *testing.T) {
	g, ps := newTestGame("A", "B")
	startTestMatch(g)
	victim, winner := ps[0], ps[1]
	victim.Lives = 1

	// both players stand in the blast: the first hit ends the match, the
	// second arrives in the same oracle pass and must not touch the winner
	g.mu.Lock()
	g.PlayerHitByExplosion(victim)
	g.PlayerHitByExplosion(winner)
	g.mu.Unlock()

	if g.phase != PhaseFinished {
		t.Fatal("first hit should have finished the match")
	}
	if g.stats.WinnerID != winner.ID {
		t.Fatalf("expected winner %s, got %s", winner.ID, g.stats.WinnerID)
	}
	if winner.Lives != DefaultGameConfig().StartingLives {
		t.Errorf("winner's lives changed after the match ended: %d", winner.Lives)
	}
	if !winner.Alive {
		t.Error("winner must stay alive after the match ends")
	}
	if winner.DamageTaken != 0 {
		t.Errorf("winner recorded %d hits after the match ended", winner.DamageTaken)
	}
	if g.stats.Eliminations != 1 {
		t.Errorf("expected 1 elimination, got %d", g.stats.Eliminations)
	}
}

func TestDoubleEliminationNoWinner(t *testing.T) {
	g, ps := newTestGame("A", "B")
	startTestMatch(g)
	ps[0].Alive = false
	ps[1].Alive = false

	g.mu.Lock()
	g.checkWinCondition()
	g.mu.Unlock()

	if g.phase != PhaseFinished {
		t.Fatal("match should finish with zero players alive")
	}
	if g.stats.WinnerID != "" {
		t.Errorf("double elimination must leave no winner, got %s", g.stats.WinnerID)
	}
}
