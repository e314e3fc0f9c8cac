package main

import (
	"testing"
	"time"
)

func testPlayer(cfg GameConfig) *Player {
	return NewPlayer("p1", "Tester", 0, Tile{X: 1, Y: 1}, cfg)
}

func TestApplyPowerUpBombStack(t *testing.T) {
	cfg := DefaultGameConfig()
	p := testPlayer(cfg)
	now := time.Now()

	for i := 1; i <= cfg.MaxStackBombs; i++ {
		if !ApplyPowerUp(p, PowerUpBombs, cfg, now) {
			t.Fatalf("pickup %d should be accepted", i)
		}
		if p.MaxBombs != 1+i {
			t.Fatalf("after %d pickups expected MaxBombs %d, got %d", i, 1+i, p.MaxBombs)
		}
	}
	if ApplyPowerUp(p, PowerUpBombs, cfg, now) {
		t.Error("pickup at stack ceiling should be rejected")
	}
	if p.MaxBombs != 1+cfg.MaxStackBombs {
		t.Errorf("rejected pickup must not change MaxBombs, got %d", p.MaxBombs)
	}
}

func TestApplyPowerUpRejectedLeavesScore(t *testing.T) {
	cfg := DefaultGameConfig()
	p := testPlayer(cfg)
	now := time.Now()

	for i := 0; i < cfg.MaxStackFlames; i++ {
		ApplyPowerUp(p, PowerUpFlames, cfg, now)
	}
	before := p.Score
	if ApplyPowerUp(p, PowerUpFlames, cfg, now) {
		t.Fatal("pickup at ceiling should be rejected")
	}
	if p.Score != before {
		t.Errorf("rejected pickup must not award score: %d -> %d", before, p.Score)
	}
}

func TestApplyPowerUpLifeCap(t *testing.T) {
	cfg := DefaultGameConfig()
	p := testPlayer(cfg)
	now := time.Now()

	for p.Lives < cfg.MaxLives {
		if !ApplyPowerUp(p, PowerUpLife, cfg, now) {
			t.Fatalf("life pickup below cap should be accepted at %d lives", p.Lives)
		}
	}
	if ApplyPowerUp(p, PowerUpLife, cfg, now) {
		t.Error("life pickup at cap should be rejected")
	}
	if p.Lives != cfg.MaxLives {
		t.Errorf("expected %d lives, got %d", cfg.MaxLives, p.Lives)
	}
}

func TestApplyPowerUpUnknownKind(t *testing.T) {
	cfg := DefaultGameConfig()
	p := testPlayer(cfg)
	if ApplyPowerUp(p, PowerUpKind(99), cfg, time.Now()) {
		t.Error("unknown kind should be rejected")
	}
	if p.Score != 0 {
		t.Error("unknown kind must not mutate the player")
	}
}

func TestSweepEffectsExpiry(t *testing.T) {
	cfg := DefaultGameConfig()
	p := testPlayer(cfg)
	t0 := time.Now()

	ApplyPowerUp(p, PowerUpSpeed, cfg, t0)
	if p.SpeedBonus != 1 {
		t.Fatalf("expected speed 1, got %d", p.SpeedBonus)
	}

	changed := SweepEffects(p, t0.Add(cfg.EffectDuration/2))
	if len(changed) != 0 {
		t.Fatal("nothing should expire before the duration elapses")
	}

	changed = SweepEffects(p, t0.Add(cfg.EffectDuration+time.Second))
	if len(changed) != 1 || changed[0] != PowerUpSpeed {
		t.Fatalf("expected speed to expire, got %v", changed)
	}
	if p.SpeedBonus != 0 {
		t.Errorf("expected speed back to 0, got %d", p.SpeedBonus)
	}
	if p.EffectCount(PowerUpSpeed) != 0 {
		t.Errorf("expected no pending timers, got %d", p.EffectCount(PowerUpSpeed))
	}
}

func TestSweepEffectsPartialExpiry(t *testing.T) {
	cfg := DefaultGameConfig()
	p := testPlayer(cfg)
	t0 := time.Now()

	ApplyPowerUp(p, PowerUpBombs, cfg, t0)
	ApplyPowerUp(p, PowerUpBombs, cfg, t0.Add(10*time.Second))
	if p.MaxBombs != 3 {
		t.Fatalf("expected MaxBombs 3, got %d", p.MaxBombs)
	}

	// only the first stack has expired at this instant
	changed := SweepEffects(p, t0.Add(cfg.EffectDuration+time.Second))
	if len(changed) != 1 {
		t.Fatalf("expected one changed kind, got %v", changed)
	}
	if p.MaxBombs != 2 {
		t.Errorf("expected MaxBombs 2 after partial expiry, got %d", p.MaxBombs)
	}
	if p.StackLevel(PowerUpBombs) != 1 {
		t.Errorf("expected stack level 1, got %d", p.StackLevel(PowerUpBombs))
	}
}

func TestSweepEffectsBlockPass(t *testing.T) {
	cfg := DefaultGameConfig()
	p := testPlayer(cfg)
	t0 := time.Now()

	ApplyPowerUp(p, PowerUpBlockPass, cfg, t0)
	if !p.BlockPass {
		t.Fatal("block pass should be active")
	}
	if ApplyPowerUp(p, PowerUpBlockPass, cfg, t0) {
		t.Error("block pass does not stack beyond one")
	}

	SweepEffects(p, t0.Add(cfg.EffectDuration+time.Second))
	if p.BlockPass {
		t.Error("block pass should be gone after expiry")
	}
}

func TestRollPowerUpKindValid(t *testing.T) {
	rng := newWorldRand(31337)
	counts := make(map[PowerUpKind]int)
	for i := 0; i < 1000; i++ {
		k := rollPowerUpKind(rng)
		if !k.Valid() {
			t.Fatalf("rolled invalid kind %d", int(k))
		}
		counts[k]++
	}
	// bombs and flames carry the highest weights
	if counts[PowerUpBombs] == 0 || counts[PowerUpFlames] == 0 {
		t.Error("common kinds never rolled in 1000 draws")
	}
}

func TestMapPowerUpExpired(t *testing.T) {
	now := time.Now()
	pu := NewMapPowerUp(PowerUpSpeed, Tile{X: 3, Y: 3}, now)
	if pu.Expired(now.Add(5*time.Second), 15*time.Second) {
		t.Error("should not be expired before the timeout")
	}
	if !pu.Expired(now.Add(15*time.Second), 15*time.Second) {
		t.Error("should be expired at the timeout")
	}
}

func TestPowerUpKindNames(t *testing.T) {
	if PowerUpFlames.String() != "flames" {
		t.Errorf("expected flames, got %s", PowerUpFlames.String())
	}
	if PowerUpKind(42).Valid() {
		t.Error("42 should not be a valid kind")
	}
	if !PowerUpSpeed.Stackable() || PowerUpLife.Stackable() {
		t.Error("stackable classification wrong")
	}
}
