package main

import "time"

// Bomb is an armed bomb. Blast range is captured from the owner's stat at
// placement time; later stat changes do not affect it.
type Bomb struct {
	ID      string
	OwnerID string
	Pos     Tile
	Fuse    time.Duration
	Range   int
}

// NewBomb arms a bomb at the owner's tile
func NewBomb(owner *Player, fuse time.Duration) *Bomb {
	return &Bomb{
		ID:      GenerateID(4),
		OwnerID: owner.ID,
		Pos:     owner.Pos,
		Fuse:    fuse,
		Range:   owner.BlastRange,
	}
}

// Tick advances the fuse and reports whether the bomb should detonate
func (b *Bomb) Tick(dt time.Duration) bool {
	b.Fuse -= dt
	return b.Fuse <= 0
}

// ToState converts to protocol state
func (b *Bomb) ToState() BombState {
	return BombState{
		ID:    b.ID,
		Owner: b.OwnerID,
		X:     b.Pos.X,
		Y:     b.Pos.Y,
		Fuse:  b.Fuse.Seconds(),
		Range: b.Range,
	}
}

// ExplosionTile is one burning cell of a detonation. Each cell expires on
// its own clock, independent of its siblings from the same bomb.
type ExplosionTile struct {
	ID    string
	Pos   Tile
	Life  time.Duration
	Power int
}

// NewExplosionTile creates one blast cell
func NewExplosionTile(pos Tile, life time.Duration, power int) *ExplosionTile {
	return &ExplosionTile{
		ID:    GenerateID(4),
		Pos:   pos,
		Life:  life,
		Power: power,
	}
}

// Tick advances the visible lifetime and reports whether the cell is spent
func (e *ExplosionTile) Tick(dt time.Duration) bool {
	e.Life -= dt
	return e.Life <= 0
}

// ToState converts to protocol state
func (e *ExplosionTile) ToState() ExplosionState {
	return ExplosionState{
		ID: e.ID,
		X:  e.Pos.X,
		Y:  e.Pos.Y,
	}
}

var blastDirections = [4]Tile{
	{X: 0, Y: -1},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
	{X: 1, Y: 0},
}

// ComputeBlast walks the cross-shaped blast from a bomb's tile. Walls stop
// a direction and are excluded; the first destructible block in a
// direction is included and ends that direction. Returns the affected
// tiles and the subset that held blocks (not yet removed from the world).
func ComputeBlast(w *World, origin Tile, blastRange int) (tiles []Tile, blocks []Tile) {
	tiles = append(tiles, origin)
	for _, dir := range blastDirections {
		for step := 1; step <= blastRange; step++ {
			t := Tile{X: origin.X + dir.X*step, Y: origin.Y + dir.Y*step}
			if !w.InBounds(t) || w.IsWall(t) {
				break
			}
			tiles = append(tiles, t)
			if w.IsBlock(t) {
				blocks = append(blocks, t)
				break
			}
		}
	}
	return tiles, blocks
}
