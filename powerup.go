package main

import (
	"fmt"
	"time"
)

// PowerUpKind is the closed set of power-up types. Aliases from older
// clients ("range" for flames etc.) are not accepted; unknown kinds are
// rejected explicitly.
type PowerUpKind int

const (
	PowerUpSpeed     PowerUpKind = 0 // stackable move-speed bonus
	PowerUpBombs     PowerUpKind = 1 // stackable +1 concurrent bomb
	PowerUpFlames    PowerUpKind = 2 // stackable +1 blast range
	PowerUpBlockPass PowerUpKind = 3 // temporary walk-through-blocks
	PowerUpLife      PowerUpKind = 4 // permanent +1 life up to the cap
)

var powerUpNames = map[PowerUpKind]string{
	PowerUpSpeed:     "speed",
	PowerUpBombs:     "bombs",
	PowerUpFlames:    "flames",
	PowerUpBlockPass: "blockpass",
	PowerUpLife:      "life",
}

// String returns the canonical wire name of the kind
func (k PowerUpKind) String() string {
	if n, ok := powerUpNames[k]; ok {
		return n
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// Valid reports whether k is a member of the closed enumeration
func (k PowerUpKind) Valid() bool {
	_, ok := powerUpNames[k]
	return ok
}

// Stackable reports whether the kind carries a stack level and expiry timers
func (k PowerUpKind) Stackable() bool {
	return k == PowerUpSpeed || k == PowerUpBombs || k == PowerUpFlames
}

// spawnWeights biases which kind drops from a destroyed block. Life is
// rare, the stat boosts are common.
var spawnWeights = []struct {
	kind   PowerUpKind
	weight int
}{
	{PowerUpBombs, 30},
	{PowerUpFlames, 30},
	{PowerUpSpeed, 20},
	{PowerUpBlockPass, 12},
	{PowerUpLife, 8},
}

// rollPowerUpKind picks a weighted-random kind from the seeded sequence
func rollPowerUpKind(rng *worldRand) PowerUpKind {
	total := 0
	for _, w := range spawnWeights {
		total += w.weight
	}
	roll := rng.intn(total)
	for _, w := range spawnWeights {
		roll -= w.weight
		if roll < 0 {
			return w.kind
		}
	}
	return spawnWeights[0].kind
}

// MapPowerUp is a collectible lying on the arena floor. It is destroyed by
// pickup or by the despawn sweep once PowerUpDespawn has elapsed.
type MapPowerUp struct {
	ID        string
	Kind      PowerUpKind
	Pos       Tile
	SpawnedAt time.Time
}

// NewMapPowerUp spawns a power-up at a destroyed block's tile
func NewMapPowerUp(kind PowerUpKind, pos Tile, now time.Time) *MapPowerUp {
	return &MapPowerUp{
		ID:        GenerateID(4),
		Kind:      kind,
		Pos:       pos,
		SpawnedAt: now,
	}
}

// Expired reports whether the despawn timeout has elapsed
func (pu *MapPowerUp) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(pu.SpawnedAt) >= timeout
}

// ToState converts to protocol state
func (pu *MapPowerUp) ToState() PowerUpState {
	return PowerUpState{
		ID:   pu.ID,
		Kind: pu.Kind.String(),
		X:    pu.Pos.X,
		Y:    pu.Pos.Y,
	}
}

// EffectTimer is one stack application of a timed ability. Expiry is a
// stored instant checked by the periodic sweep, never a one-shot timer.
type EffectTimer struct {
	Kind      PowerUpKind
	AppliedAt time.Time
	ExpiresAt time.Time
}

// maxStack returns the configured stack ceiling for a kind
func maxStack(cfg GameConfig, kind PowerUpKind) int {
	switch kind {
	case PowerUpSpeed:
		return cfg.MaxStackSpeed
	case PowerUpBombs:
		return cfg.MaxStackBombs
	case PowerUpFlames:
		return cfg.MaxStackFlames
	case PowerUpBlockPass:
		return 1
	default:
		return 0
	}
}

// ApplyPowerUp applies one pickup to a player's effect ledger. It returns
// false without mutating anything when the stack is already at its
// ceiling, lives are capped, or the kind is unknown.
func ApplyPowerUp(p *Player, kind PowerUpKind, cfg GameConfig, now time.Time) bool {
	if !kind.Valid() {
		return false
	}

	switch {
	case kind == PowerUpLife:
		if p.Lives >= cfg.MaxLives {
			return false
		}
		p.Lives++

	case kind.Stackable() || kind == PowerUpBlockPass:
		if p.StackLevel(kind) >= maxStack(cfg, kind) {
			return false
		}
		p.stacks[kind]++
		p.effects[kind] = append(p.effects[kind], EffectTimer{
			Kind:      kind,
			AppliedAt: now,
			ExpiresAt: now.Add(cfg.EffectDuration),
		})
	}

	p.RecomputeStats()
	p.Score += cfg.ScorePickup
	return true
}

// SweepEffects pops every expired timer entry for one player and returns
// the kinds whose stack level changed in this pass. Levels never drop
// below zero.
func SweepEffects(p *Player, now time.Time) []PowerUpKind {
	var changed []PowerUpKind
	for kind, timers := range p.effects {
		expired := 0
		kept := timers[:0]
		for _, t := range timers {
			if !now.Before(t.ExpiresAt) {
				expired++
			} else {
				kept = append(kept, t)
			}
		}
		if expired == 0 {
			continue
		}
		p.effects[kind] = kept
		p.stacks[kind] -= expired
		if p.stacks[kind] < 0 {
			p.stacks[kind] = 0
		}
		changed = append(changed, kind)
	}
	if len(changed) > 0 {
		p.RecomputeStats()
	}
	return changed
}
