package main

import "time"

// OracleSnapshot is the read-only per-tick truth handed to the collision
// oracle. The oracle never mutates session state; it only raises events.
type OracleSnapshot struct {
	Width, Height int
	Walls         map[Tile]struct{}
	Blocks        map[Tile]struct{}
	Bombs         map[Tile]struct{}
	PowerUps      map[Tile]*MapPowerUp
	Explosions    map[Tile]struct{}
	Players       []*Player
}

// OracleEvents receives overlap events raised during Step. Handlers run
// synchronously before the tick completes.
type OracleEvents interface {
	PlayerCollectedPowerUp(p *Player, pu *MapPowerUp)
	PlayerHitByExplosion(p *Player)
}

// CollisionOracle answers movement queries and produces overlap events
// from the snapshot the session feeds it each tick.
type CollisionOracle interface {
	RebuildGrid(snap OracleSnapshot)
	CanMoveTo(from, to Tile, p *Player) bool
	Step(dt time.Duration, snap OracleSnapshot, events OracleEvents)
}

// TileOracle is the grid-based oracle used in production. Occupancy is a
// straight tile lookup; overlaps are exact tile coincidence.
type TileOracle struct {
	snap OracleSnapshot
}

// NewTileOracle creates the default collision oracle
func NewTileOracle() *TileOracle {
	return &TileOracle{}
}

// RebuildGrid stores the current-tick snapshot
func (o *TileOracle) RebuildGrid(snap OracleSnapshot) {
	o.snap = snap
}

// CanMoveTo validates a single-tile move. Walls and bombs always block;
// blocks yield to a player with an active block-pass effect. Diagonal and
// multi-tile moves are rejected.
func (o *TileOracle) CanMoveTo(from, to Tile, p *Player) bool {
	if AbsInt(to.X-from.X)+AbsInt(to.Y-from.Y) != 1 {
		return false
	}
	if to.X < 0 || to.Y < 0 || to.X >= o.snap.Width || to.Y >= o.snap.Height {
		return false
	}
	if _, wall := o.snap.Walls[to]; wall {
		return false
	}
	if _, block := o.snap.Blocks[to]; block && !(p != nil && p.BlockPass) {
		return false
	}
	if _, bomb := o.snap.Bombs[to]; bomb {
		return false
	}
	return true
}

// Step scans for player overlaps and raises events. Pickup events fire
// before hit events so a power-up grabbed on a burning tile still counts.
func (o *TileOracle) Step(dt time.Duration, snap OracleSnapshot, events OracleEvents) {
	o.snap = snap
	if events == nil {
		return
	}
	for _, p := range snap.Players {
		if !p.Alive {
			continue
		}
		if pu, ok := snap.PowerUps[p.Pos]; ok {
			events.PlayerCollectedPowerUp(p, pu)
		}
		if _, ok := snap.Explosions[p.Pos]; ok {
			events.PlayerHitByExplosion(p)
		}
	}
}
