package main

import (
	"crypto/rand"
	"encoding/binary"
	"hash/fnv"
	"time"
)

// Tile kinds in the world grid
const (
	TileEmpty = 0
	TileWall  = 1
	TileBlock = 2
)

const (
	// MaxSpawnSlots is the number of corner spawn anchors
	MaxSpawnSlots = 4
	// spawnClearRadius keeps blocks out of the corner spawn pockets
	spawnClearRadius = 2
	// blockChanceCap bounds the per-tile block probability
	blockChanceCap = 0.85
)

// Tile is a grid coordinate with value semantics, usable as a map key.
// It is the canonical identity of everything tile-bound (bombs, blocks,
// power-ups, explosion cells).
type Tile struct {
	X int `json:"x" msgpack:"x"`
	Y int `json:"y" msgpack:"y"`
}

// worldRand is a Lehmer multiplicative congruential generator. Two
// generators with the same seed produce the same sequence, which the
// client relies on for map resync.
type worldRand struct {
	state int64
}

func newWorldRand(seed int64) *worldRand {
	seed %= 2147483647
	if seed <= 0 {
		seed += 2147483646
	}
	return &worldRand{state: seed}
}

// next returns a float64 in [0, 1)
func (r *worldRand) next() float64 {
	r.state = r.state * 48271 % 2147483647
	return float64(r.state-1) / 2147483646
}

// intn returns an int in [0, n)
func (r *worldRand) intn(n int) int {
	return int(r.next() * float64(n))
}

// World is the static arena geometry for one match. Walls never change;
// blocks are removed as bombs destroy them.
type World struct {
	Width  int
	Height int
	Seed   int64

	grid   [][]int
	Walls  map[Tile]struct{}
	Blocks map[Tile]struct{}
}

// DeriveWorldSeed reduces a session identity, creation instant and a random
// salt into a bounded positive seed.
func DeriveWorldSeed(sessionID string, createdAt time.Time) int64 {
	salt := make([]byte, 8)
	rand.Read(salt)
	h := fnv.New64a()
	h.Write([]byte(sessionID))
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(createdAt.UnixNano()))
	h.Write(ts[:])
	h.Write(salt)
	seed := int64(h.Sum64() % 2147483646)
	return seed + 1
}

// GenerateWorld builds the arena for the given seed. The same seed always
// yields the same wall and block sets.
func GenerateWorld(seed int64, width, height int) *World {
	w := &World{
		Width:  width,
		Height: height,
		Seed:   seed,
		Walls:  make(map[Tile]struct{}),
		Blocks: make(map[Tile]struct{}),
	}
	w.grid = make([][]int, height)
	for y := range w.grid {
		w.grid[y] = make([]int, width)
	}

	rng := newWorldRand(seed)
	w.placeWalls()
	w.placeBlocks(rng)
	w.augment(rng)
	w.rebuildSets()
	return w
}

// SpawnAnchors returns the four corner spawn tiles in slot order
func (w *World) SpawnAnchors() [MaxSpawnSlots]Tile {
	return [MaxSpawnSlots]Tile{
		{X: 1, Y: 1},
		{X: w.Width - 2, Y: 1},
		{X: 1, Y: w.Height - 2},
		{X: w.Width - 2, Y: w.Height - 2},
	}
}

func (w *World) placeWalls() {
	for y := 0; y < w.Height; y++ {
		for x := 0; x < w.Width; x++ {
			if x == 0 || y == 0 || x == w.Width-1 || y == w.Height-1 {
				w.grid[y][x] = TileWall
				continue
			}
			// interior pillar lattice on both-even coordinates
			if x%2 == 0 && y%2 == 0 {
				w.grid[y][x] = TileWall
			}
		}
	}
}

// blockChance grows toward the map center and is capped
func (w *World) blockChance(x, y int) float64 {
	cx := float64(w.Width-1) / 2
	cy := float64(w.Height-1) / 2
	dx := (float64(x) - cx) / cx
	dy := (float64(y) - cy) / cy
	// 0 at center, ~1 at the corners
	edge := dx * dx
	if dy*dy > edge {
		edge = dy * dy
	}
	chance := 0.45 + 0.5*(1-edge)
	if chance > blockChanceCap {
		chance = blockChanceCap
	}
	return chance
}

func (w *World) nearSpawn(x, y int) bool {
	for _, a := range w.SpawnAnchors() {
		if ChebyshevDist(x, y, a.X, a.Y) <= spawnClearRadius {
			return true
		}
	}
	return false
}

func (w *World) placeBlocks(rng *worldRand) {
	for y := 1; y < w.Height-1; y++ {
		for x := 1; x < w.Width-1; x++ {
			if w.grid[y][x] != TileEmpty || w.nearSpawn(x, y) {
				continue
			}
			if rng.next() < w.blockChance(x, y) {
				w.grid[y][x] = TileBlock
			}
		}
	}
}

// augment applies 2-4 randomized passes so maps with similar seeds still
// play differently: spawn-to-spawn corridors, dense clusters, open rooms
func (w *World) augment(rng *worldRand) {
	passes := 2 + rng.intn(3)
	for i := 0; i < passes; i++ {
		switch rng.intn(3) {
		case 0:
			w.clearPath(rng)
		case 1:
			w.carveCluster(rng)
		case 2:
			w.clearArea(rng)
		}
	}
}

// clearPath removes blocks along an L-shaped route between two spawn anchors
func (w *World) clearPath(rng *worldRand) {
	anchors := w.SpawnAnchors()
	a := anchors[rng.intn(MaxSpawnSlots)]
	b := anchors[rng.intn(MaxSpawnSlots)]
	if a == b {
		b = anchors[(rng.intn(MaxSpawnSlots-1)+1)%MaxSpawnSlots]
	}
	step := func(v, target int) int {
		if v < target {
			return v + 1
		}
		if v > target {
			return v - 1
		}
		return v
	}
	x, y := a.X, a.Y
	for x != b.X {
		x = step(x, b.X)
		if w.grid[y][x] == TileBlock {
			w.grid[y][x] = TileEmpty
		}
	}
	for y != b.Y {
		y = step(y, b.Y)
		if w.grid[y][x] == TileBlock {
			w.grid[y][x] = TileEmpty
		}
	}
}

// carveCluster fills a small dense patch of blocks away from spawns
func (w *World) carveCluster(rng *worldRand) {
	cx := 2 + rng.intn(w.Width-4)
	cy := 2 + rng.intn(w.Height-4)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			x, y := cx+dx, cy+dy
			if x < 1 || y < 1 || x >= w.Width-1 || y >= w.Height-1 {
				continue
			}
			if w.grid[y][x] == TileEmpty && !w.nearSpawn(x, y) {
				w.grid[y][x] = TileBlock
			}
		}
	}
}

// clearArea opens a small empty room
func (w *World) clearArea(rng *worldRand) {
	cx := 2 + rng.intn(w.Width-4)
	cy := 2 + rng.intn(w.Height-4)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			x, y := cx+dx, cy+dy
			if x < 1 || y < 1 || x >= w.Width-1 || y >= w.Height-1 {
				continue
			}
			if w.grid[y][x] == TileBlock {
				w.grid[y][x] = TileEmpty
			}
		}
	}
}

// rebuildSets recomputes the O(1) membership sets from the grid
func (w *World) rebuildSets() {
	w.Walls = make(map[Tile]struct{})
	w.Blocks = make(map[Tile]struct{})
	for y := 0; y < w.Height; y++ {
		for x := 0; x < w.Width; x++ {
			switch w.grid[y][x] {
			case TileWall:
				w.Walls[Tile{x, y}] = struct{}{}
			case TileBlock:
				w.Blocks[Tile{x, y}] = struct{}{}
			}
		}
	}
}

// InBounds reports whether the tile lies inside the grid
func (w *World) InBounds(t Tile) bool {
	return t.X >= 0 && t.Y >= 0 && t.X < w.Width && t.Y < w.Height
}

// IsWall reports whether the tile is an indestructible wall
func (w *World) IsWall(t Tile) bool {
	_, ok := w.Walls[t]
	return ok
}

// IsBlock reports whether the tile currently holds a destructible block
func (w *World) IsBlock(t Tile) bool {
	_, ok := w.Blocks[t]
	return ok
}

// DestroyBlock removes a block, returning false if the tile held none
func (w *World) DestroyBlock(t Tile) bool {
	if !w.IsBlock(t) {
		return false
	}
	delete(w.Blocks, t)
	w.grid[t.Y][t.X] = TileEmpty
	return true
}

// WallList returns the wall coordinates for the wire map snapshot
func (w *World) WallList() []Tile {
	list := make([]Tile, 0, len(w.Walls))
	for y := 0; y < w.Height; y++ {
		for x := 0; x < w.Width; x++ {
			if w.grid[y][x] == TileWall {
				list = append(list, Tile{x, y})
			}
		}
	}
	return list
}

// BlockList returns the remaining block coordinates for the wire map snapshot
func (w *World) BlockList() []Tile {
	list := make([]Tile, 0, len(w.Blocks))
	for y := 0; y < w.Height; y++ {
		for x := 0; x < w.Width; x++ {
			if w.grid[y][x] == TileBlock {
				list = append(list, Tile{x, y})
			}
		}
	}
	return list
}
