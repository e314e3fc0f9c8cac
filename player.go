package main

import "time"

// Player is one participant in a session. The record persists from join
// until session teardown; elimination only clears Alive so the final
// standings keep every roster entry.
type Player struct {
	ID   string
	Name string
	Slot int // spawn slot index, 0-3

	AuthPlayerID int64 // linked account, 0 for guests

	Alive        bool
	Invulnerable bool
	InvulnUntil  time.Time
	Lives        int

	Pos  Tile // authoritative tile position
	X, Y int  // pixel position derived from Pos and the tile size

	// derived combat stats, recomputed whenever a stack level changes
	MaxBombs   int
	BlastRange int
	SpeedBonus int
	BlockPass  bool

	Score           int
	Eliminations    int
	BlocksDestroyed int
	PowerUpsGrabbed int
	DamageTaken     int

	stacks  map[PowerUpKind]int
	effects map[PowerUpKind][]EffectTimer
}

// NewPlayer creates a player at the given spawn slot
func NewPlayer(id, name string, slot int, spawn Tile, cfg GameConfig) *Player {
	p := &Player{
		ID:      id,
		Name:    name,
		Slot:    slot,
		Alive:   true,
		Lives:   cfg.StartingLives,
		Pos:     spawn,
		stacks:  make(map[PowerUpKind]int),
		effects: make(map[PowerUpKind][]EffectTimer),
	}
	p.SyncPixelPos(cfg.TileSize)
	p.RecomputeStats()
	return p
}

// StackLevel returns the current stack level for a kind
func (p *Player) StackLevel(kind PowerUpKind) int {
	return p.stacks[kind]
}

// EffectCount returns the number of pending expiry entries for a kind
func (p *Player) EffectCount(kind PowerUpKind) int {
	return len(p.effects[kind])
}

// RecomputeStats rebuilds the derived combat stats from the stack levels.
// maxBombs and blastRange are always 1 + the corresponding level.
func (p *Player) RecomputeStats() {
	p.MaxBombs = 1 + p.stacks[PowerUpBombs]
	p.BlastRange = 1 + p.stacks[PowerUpFlames]
	p.SpeedBonus = p.stacks[PowerUpSpeed]
	p.BlockPass = p.stacks[PowerUpBlockPass] > 0
}

// SyncPixelPos aligns the pixel position with the tile position
func (p *Player) SyncPixelPos(tileSize int) {
	p.X = p.Pos.X * tileSize
	p.Y = p.Pos.Y * tileSize
}

// ToState converts to protocol state
func (p *Player) ToState() PlayerState {
	return PlayerState{
		ID:         p.ID,
		Name:       p.Name,
		Slot:       p.Slot,
		X:          p.Pos.X,
		Y:          p.Pos.Y,
		PX:         p.X,
		PY:         p.Y,
		Lives:      p.Lives,
		Alive:      p.Alive,
		Invuln:     p.Invulnerable,
		MaxBombs:   p.MaxBombs,
		BlastRange: p.BlastRange,
		Speed:      p.SpeedBonus,
		BlockPass:  p.BlockPass,
		Score:      p.Score,
	}
}
