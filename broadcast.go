package main

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Broadcaster interface for sending messages to clients
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// buildSnapshot assembles the full wire state. Caller holds the game lock.
func (g *Game) buildSnapshot() StateSnapshot {
	snap := StateSnapshot{
		Players:    make([]PlayerState, 0, len(g.players)),
		Bombs:      make([]BombState, 0, len(g.bombs)),
		Explosions: make([]ExplosionState, 0, len(g.explosions)),
		PowerUps:   make([]PowerUpState, 0, len(g.powerUps)),
		Blocks:     g.world.BlockList(),
		Walls:      g.world.WallList(),
		Tick:       g.tick,
	}
	for _, p := range g.players {
		snap.Players = append(snap.Players, p.ToState())
	}
	for _, b := range g.bombs {
		snap.Bombs = append(snap.Bombs, b.ToState())
	}
	for _, e := range g.explosions {
		snap.Explosions = append(snap.Explosions, e.ToState())
	}
	for _, pu := range g.powerUps {
		snap.PowerUps = append(snap.PowerUps, pu.ToState())
	}
	return snap
}

// stateFingerprint digests the externally relevant state: sorted player
// id+position, bomb count, explosion count, block count. Cheap to build,
// cheap to compare.
func (g *Game) stateFingerprint() string {
	ids := make([]string, 0, len(g.players))
	for id := range g.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var sb strings.Builder
	for _, id := range ids {
		p := g.players[id]
		fmt.Fprintf(&sb, "%s:%d,%d,%d,%t;", id, p.Pos.X, p.Pos.Y, p.Lives, p.Alive)
	}
	fmt.Fprintf(&sb, "|b%d|e%d|k%d", len(g.bombs), len(g.explosions), len(g.world.Blocks))
	return sb.String()
}

// emitState broadcasts the state snapshot unless nothing externally
// visible changed since the last emitted one. Best-effort bandwidth
// saving only; lifecycle events never pass through here.
func (g *Game) emitState() {
	fp := g.stateFingerprint()
	if fp == g.lastFingerprint {
		return
	}
	g.lastFingerprint = fp

	data, err := msgpack.Marshal(g.buildSnapshot())
	if err != nil {
		log.Printf("state marshal error: %v", err)
		return
	}
	for _, client := range g.clients {
		client.SendBinary(data)
	}
}

// broadcastMsg sends a JSON lifecycle message to all clients in the session
func (g *Game) broadcastMsg(msg Envelope) {
	for _, client := range g.clients {
		client.SendJSON(msg)
	}
}
