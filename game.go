package main

import (
	"fmt"
	"log"
	"sync"
	"time"
)

const (
	effectSweepInterval  = time.Second     // ability-expiry sweep cadence
	powerUpSweepInterval = 5 * time.Second // map power-up despawn cadence
)

// InitialPlayer describes a roster entry supplied at session creation
type InitialPlayer struct {
	Name   string
	AuthID int64
}

// Game is one authoritative match from creation to teardown. It owns the
// world, all entities and the roster, and is the sole mutator of that
// state: every mutation happens under mu, either inside a timer callback
// of the Run loop or inside an externally invoked request method.
type Game struct {
	mu sync.Mutex

	ID   string
	Name string
	cfg  GameConfig

	createdAt time.Time
	phase     GamePhase

	world      *World
	players    map[string]*Player
	clients    map[string]Broadcaster
	bombs      map[string]*Bomb
	explosions map[string]*ExplosionTile
	powerUps   map[string]*MapPowerUp

	// dropRng drives power-up drop rolls; it is seeded independently of
	// the world seed so map regeneration stays deterministic
	dropRng *worldRand
	oracle  CollisionOracle

	countdown        int
	tick             uint64
	lastTick         time.Time
	lastEffectSweep  time.Time
	lastPowerUpSweep time.Time
	lastFingerprint  string

	usedSlots [MaxSpawnSlots]bool
	stats     MatchStats

	running bool
	stop    chan struct{}
	now     func() time.Time

	db        *DB
	analytics *Analytics
	onEnd     func(sessionID string)
	ended     bool
}

// NewGame creates a session and immediately enters countdown. Initial
// players beyond the spawn-slot capacity are rejected individually; the
// session still starts with the accepted subset.
func NewGame(id, name string, cfg GameConfig, initial []InitialPlayer, db *DB, analytics *Analytics, onEnd func(string)) *Game {
	created := time.Now()
	g := &Game{
		ID:         id,
		Name:       name,
		cfg:        cfg,
		createdAt:  created,
		phase:      PhaseCountdown,
		players:    make(map[string]*Player),
		clients:    make(map[string]Broadcaster),
		bombs:      make(map[string]*Bomb),
		explosions: make(map[string]*ExplosionTile),
		powerUps:   make(map[string]*MapPowerUp),
		countdown:  cfg.CountdownSeconds,
		stop:       make(chan struct{}),
		now:        time.Now,
		db:         db,
		analytics:  analytics,
		onEnd:      onEnd,
	}

	seed := DeriveWorldSeed(id, created)
	g.world = GenerateWorld(seed, cfg.MapWidth, cfg.MapHeight)
	g.dropRng = newWorldRand(seed + 7919)

	for _, ip := range initial {
		if p := g.addPlayerLocked(ip.Name, ip.AuthID); p == nil {
			log.Printf("session %s: rejected initial player %q, roster full", id, ip.Name)
		}
	}
	return g
}

// Run drives the session until it finishes or is destroyed
func (g *Game) Run() {
	g.mu.Lock()
	g.running = true
	g.mu.Unlock()

	tick := time.NewTicker(g.cfg.TickInterval())
	second := time.NewTicker(time.Second)
	defer tick.Stop()
	defer second.Stop()

	for {
		select {
		case <-tick.C:
			g.mu.Lock()
			if g.phase == PhasePlaying {
				g.update(g.now())
			}
			g.mu.Unlock()
		case <-second.C:
			g.mu.Lock()
			g.secondTick()
			g.mu.Unlock()
		case <-g.stop:
			return
		}
	}
}

// Stop terminates the session loop
func (g *Game) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopLocked()
}

func (g *Game) stopLocked() {
	if g.running {
		g.running = false
		close(g.stop)
	}
}

// Destroy tears the session down from any state: all timers cancelled,
// all collections cleared. Entity expiry needs no extra cancellation
// because it lives in tick sweeps, not standalone timers.
func (g *Game) Destroy() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopLocked()
	g.phase = PhaseFinished
	g.players = make(map[string]*Player)
	g.clients = make(map[string]Broadcaster)
	g.bombs = make(map[string]*Bomb)
	g.explosions = make(map[string]*ExplosionTile)
	g.powerUps = make(map[string]*MapPowerUp)
}

// secondTick serves the two 1-second timers: the countdown decrement
// while in countdown and the elapsed-time broadcast while playing.
func (g *Game) secondTick() {
	switch g.phase {
	case PhaseCountdown:
		g.countdown--
		if g.countdown <= 0 {
			g.startPlaying(g.now())
			return
		}
		g.broadcastMsg(Envelope{T: MsgCountdown, Data: CountdownMsg{
			Remaining: g.countdown,
			Players:   len(g.players),
		}})
	case PhasePlaying:
		elapsed := int(g.now().Sub(g.stats.StartedAt).Seconds())
		g.broadcastMsg(Envelope{T: MsgElapsed, Data: ElapsedMsg{Seconds: elapsed}})
	}
}

// AddPlayer joins a player mid-countdown. Joins are rejected once the
// match is playing or the roster is full. Filling the last slot starts
// the match immediately.
func (g *Game) AddPlayer(name string, authID int64) *Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addPlayerLocked(name, authID)
}

func (g *Game) addPlayerLocked(name string, authID int64) *Player {
	if g.phase != PhaseCountdown || len(g.players) >= g.cfg.MaxPlayers {
		return nil
	}
	slot := -1
	for i := 0; i < g.cfg.MaxPlayers; i++ {
		if !g.usedSlots[i] {
			slot = i
			break
		}
	}
	if slot < 0 {
		return nil
	}
	g.usedSlots[slot] = true

	anchors := g.world.SpawnAnchors()
	p := NewPlayer(GenerateID(4), name, slot, anchors[slot], g.cfg)
	p.AuthPlayerID = authID
	g.players[p.ID] = p

	g.broadcastMsg(Envelope{T: MsgCountdown, Data: CountdownMsg{
		Remaining: g.countdown,
		Players:   len(g.players),
	}})

	if len(g.players) >= g.cfg.MaxPlayers {
		g.startPlaying(g.now())
	}
	return p
}

// RemovePlayer handles a leave in any phase. During countdown the roster
// simply shrinks; during play it counts as an elimination for broadcast
// and win-condition purposes, regardless of remaining lives.
func (g *Game) RemovePlayer(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.players[id]
	if !ok {
		return false
	}
	delete(g.clients, id)

	switch g.phase {
	case PhaseCountdown:
		delete(g.players, id)
		g.usedSlots[p.Slot] = false
	case PhasePlaying:
		if p.Alive {
			p.Alive = false
			g.broadcastMsg(Envelope{T: MsgEliminated, Data: EliminatedMsg{
				PlayerID:  p.ID,
				Name:      p.Name,
				AliveLeft: g.aliveCount(),
			}})
			g.checkWinCondition()
		}
	}
	return true
}

// SetClient associates a broadcaster with a player
func (g *Game) SetClient(playerID string, client Broadcaster) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clients[playerID] = client
}

// SetOracle injects a collision oracle before the match starts. A session
// is bound to exactly one oracle for its lifetime.
func (g *Game) SetOracle(o CollisionOracle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.oracle == nil {
		g.oracle = o
	}
}

// HasPlayer reports whether a player is on the roster
func (g *Game) HasPlayer(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.players[id]
	return ok
}

// PlayerCount returns the roster size
func (g *Game) PlayerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.players)
}

// Phase returns the current lifecycle phase
func (g *Game) Phase() GamePhase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// HandleInput processes a gameplay request from a player. Requests that
// violate a precondition are silently dropped.
func (g *Game) HandleInput(playerID string, input ClientInput) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.players[playerID]
	if !ok || g.phase != PhasePlaying || !p.Alive {
		return
	}
	switch input.Action {
	case "move":
		g.requestMove(p, input.Dir)
	case "bomb":
		g.requestBomb(p)
	}
}

func (g *Game) requestMove(p *Player, dir string) {
	delta, ok := DirDelta(dir)
	if !ok || g.oracle == nil {
		return
	}
	to := Tile{X: p.Pos.X + delta.X, Y: p.Pos.Y + delta.Y}
	if !g.oracle.CanMoveTo(p.Pos, to, p) {
		return
	}
	p.Pos = to
	p.SyncPixelPos(g.cfg.TileSize)
}

func (g *Game) requestBomb(p *Player) {
	armed := 0
	for _, b := range g.bombs {
		if b.OwnerID == p.ID {
			armed++
		}
		if b.Pos == p.Pos {
			return // tile already occupied by a bomb
		}
	}
	if armed >= p.MaxBombs {
		return
	}
	b := NewBomb(p, g.cfg.BombFuse)
	g.bombs[b.ID] = b
}

// startPlaying transitions countdown -> playing: record the start
// instant, bind the oracle, refresh the world sets and emit the full
// start snapshot. Caller holds the lock.
func (g *Game) startPlaying(now time.Time) {
	if g.phase != PhaseCountdown {
		return
	}
	g.phase = PhasePlaying
	g.stats.StartedAt = now
	g.lastTick = now
	g.lastEffectSweep = now
	g.lastPowerUpSweep = now

	if g.oracle == nil {
		g.oracle = NewTileOracle()
	}
	g.world.rebuildSets()
	g.oracle.RebuildGrid(g.oracleSnapshot())

	g.broadcastMsg(Envelope{T: MsgGameStart, Data: GameStartMsg{
		Map: MapSnapshot{
			Width:  g.world.Width,
			Height: g.world.Height,
			Walls:  g.world.WallList(),
			Blocks: g.world.BlockList(),
		},
		Players: g.rosterStates(),
		Config: ConfigMsg{
			TileSize:          g.cfg.TileSize,
			TickRate:          g.cfg.TickRate,
			BombFuseSec:       g.cfg.BombFuse.Seconds(),
			ExplosionLifeSec:  g.cfg.ExplosionDuration.Seconds(),
			EffectDurationSec: g.cfg.EffectDuration.Seconds(),
		},
	}})
	g.track(EvtMatchStart, 0, fmt.Sprintf(`{"players":%d}`, len(g.players)))
}

func (g *Game) rosterStates() []PlayerState {
	states := make([]PlayerState, 0, len(g.players))
	for _, p := range g.players {
		states = append(states, p.ToState())
	}
	return states
}

// update runs one simulation frame. A frame is skipped if less than one
// tick interval elapsed, bounding CPU without affecting gameplay: all
// durations compare wall-clock deltas, not tick counts.
func (g *Game) update(now time.Time) {
	if now.Sub(g.lastTick) < g.cfg.TickInterval() {
		return
	}
	dt := now.Sub(g.lastTick)
	g.lastTick = now
	g.tick++

	g.updateBombs(dt, now)
	if g.phase != PhasePlaying {
		return // a detonation may have ended the match
	}
	g.updateExplosions(dt)

	if now.Sub(g.lastPowerUpSweep) >= powerUpSweepInterval {
		g.lastPowerUpSweep = now
		g.sweepPowerUps(now)
	}

	snap := g.oracleSnapshot()
	g.oracle.RebuildGrid(snap)
	g.oracle.Step(dt, snap, g)
	if g.phase != PhasePlaying {
		return
	}

	if now.Sub(g.lastEffectSweep) >= effectSweepInterval {
		g.lastEffectSweep = now
		g.sweepEffects(now)
		g.sweepInvulnerability(now)
	}

	g.checkWinCondition()
	if g.phase != PhasePlaying {
		return
	}

	g.emitState()
}

func (g *Game) updateBombs(dt time.Duration, now time.Time) {
	var exploding []*Bomb
	for _, b := range g.bombs {
		if b.Tick(dt) {
			exploding = append(exploding, b)
		}
	}
	for _, b := range exploding {
		g.detonate(b, now)
		if g.phase != PhasePlaying {
			return
		}
	}
}

// detonate resolves one bomb: cross-shaped blast, block destruction with
// probabilistic power-up drops, per-tile explosion records, and damage to
// every living player standing in the blast.
func (g *Game) detonate(b *Bomb, now time.Time) {
	delete(g.bombs, b.ID)
	owner := g.players[b.OwnerID]

	tiles, blocks := ComputeBlast(g.world, b.Pos, b.Range)

	for _, t := range blocks {
		if !g.world.DestroyBlock(t) {
			continue
		}
		if owner != nil {
			owner.Score += g.cfg.ScoreBlock
			owner.BlocksDestroyed++
		}
		if g.dropRng.next() < g.cfg.PowerUpChance {
			pu := NewMapPowerUp(rollPowerUpKind(g.dropRng), t, now)
			g.powerUps[pu.ID] = pu
			g.broadcastMsg(Envelope{T: MsgPowerUpNew, Data: PowerUpEventMsg{
				ID: pu.ID, Kind: pu.Kind.String(), X: t.X, Y: t.Y,
			}})
		}
	}

	blastSet := make(map[Tile]struct{}, len(tiles))
	for _, t := range tiles {
		blastSet[t] = struct{}{}
		e := NewExplosionTile(t, g.cfg.ExplosionDuration, b.Range)
		g.explosions[e.ID] = e
	}

	for _, p := range g.players {
		if !p.Alive {
			continue
		}
		if _, hit := blastSet[p.Pos]; !hit {
			continue
		}
		wasAlive := p.Alive
		g.applyDamage(p, now)
		if wasAlive && !p.Alive && owner != nil && owner.ID != p.ID {
			owner.Eliminations++
			owner.Score += g.cfg.ScoreElimination
		}
		if g.phase != PhasePlaying {
			return
		}
	}
}

func (g *Game) updateExplosions(dt time.Duration) {
	for id, e := range g.explosions {
		if e.Tick(dt) {
			delete(g.explosions, id)
		}
	}
}

// sweepPowerUps despawns uncollected power-ups past their timeout
func (g *Game) sweepPowerUps(now time.Time) {
	for id, pu := range g.powerUps {
		if pu.Expired(now, g.cfg.PowerUpDespawn) {
			delete(g.powerUps, id)
			g.broadcastMsg(Envelope{T: MsgPowerUpGone, Data: PowerUpEventMsg{
				ID: pu.ID, Kind: pu.Kind.String(), X: pu.Pos.X, Y: pu.Pos.Y,
			}})
		}
	}
}

// sweepEffects expires timed ability stacks: one expiry notification per
// affected player/kind pair, one aggregated stats update per player.
func (g *Game) sweepEffects(now time.Time) {
	for _, p := range g.players {
		changed := SweepEffects(p, now)
		if len(changed) == 0 {
			continue
		}
		for _, kind := range changed {
			g.broadcastMsg(Envelope{T: MsgPowerUpGone, Data: PowerUpEventMsg{
				Kind: kind.String(), PlayerID: p.ID,
			}})
		}
		g.broadcastStats(p)
	}
}

func (g *Game) broadcastStats(p *Player) {
	g.broadcastMsg(Envelope{T: MsgStats, Data: StatsUpdateMsg{
		PlayerID:   p.ID,
		Lives:      p.Lives,
		MaxBombs:   p.MaxBombs,
		BlastRange: p.BlastRange,
		Speed:      p.SpeedBonus,
		BlockPass:  p.BlockPass,
		Score:      p.Score,
	}})
}

// oracleSnapshot builds the read-only per-tick truth for the oracle
func (g *Game) oracleSnapshot() OracleSnapshot {
	snap := OracleSnapshot{
		Width:      g.world.Width,
		Height:     g.world.Height,
		Walls:      g.world.Walls,
		Blocks:     g.world.Blocks,
		Bombs:      make(map[Tile]struct{}, len(g.bombs)),
		PowerUps:   make(map[Tile]*MapPowerUp, len(g.powerUps)),
		Explosions: make(map[Tile]struct{}, len(g.explosions)),
		Players:    make([]*Player, 0, len(g.players)),
	}
	for _, b := range g.bombs {
		snap.Bombs[b.Pos] = struct{}{}
	}
	for _, pu := range g.powerUps {
		snap.PowerUps[pu.Pos] = pu
	}
	for _, e := range g.explosions {
		snap.Explosions[e.Pos] = struct{}{}
	}
	for _, p := range g.players {
		snap.Players = append(snap.Players, p)
	}
	return snap
}

// PlayerCollectedPowerUp handles a pickup event from the oracle. The
// power-up must still exist at its registered position (several overlap
// events may reference the same pickup within one tick) and the collector
// must be alive; stale events are discarded without mutation.
func (g *Game) PlayerCollectedPowerUp(p *Player, pu *MapPowerUp) {
	cur, ok := g.powerUps[pu.ID]
	if !ok || cur.Pos != p.Pos || !p.Alive {
		return
	}
	if !cur.Kind.Valid() {
		log.Printf("session %s: unknown power-up kind %d, skipping", g.ID, int(cur.Kind))
		return
	}
	if !ApplyPowerUp(p, cur.Kind, g.cfg, g.now()) {
		return // stack at ceiling, leave the power-up on the map
	}
	p.PowerUpsGrabbed++
	delete(g.powerUps, cur.ID)

	g.broadcastMsg(Envelope{T: MsgPowerUpGot, Data: PowerUpEventMsg{
		ID: cur.ID, Kind: cur.Kind.String(), X: cur.Pos.X, Y: cur.Pos.Y, PlayerID: p.ID,
	}})
	g.broadcastStats(p)
	g.track(EvtPowerUp, p.AuthPlayerID, `{"kind":"`+cur.Kind.String()+`"}`)
}

// PlayerHitByExplosion handles a hit event from the oracle
func (g *Game) PlayerHitByExplosion(p *Player) {
	g.applyDamage(p, g.now())
}

// finish transitions to finished: stop all timers, emit the end snapshot
// and hand the session back to the host. Caller holds the lock.
func (g *Game) finish(winner *Player) {
	if g.phase == PhaseFinished {
		return
	}
	g.phase = PhaseFinished
	g.stats.EndedAt = g.now()
	winnerID, winnerName := "", ""
	if winner != nil {
		winnerID, winnerName = winner.ID, winner.Name
		g.stats.WinnerID = winner.ID
	}
	duration := g.stats.Duration()

	g.broadcastMsg(Envelope{T: MsgGameEnd, Data: GameEndMsg{
		WinnerID:   winnerID,
		WinnerName: winnerName,
		Duration:   duration.Seconds(),
		Standings:  FinalStandings(g.players, winnerID),
	}})
	g.track(EvtMatchEnd, 0, fmt.Sprintf(`{"duration":%.1f}`, duration.Seconds()))

	results := g.collectResults(winnerID, duration)
	g.stopLocked()

	if g.onEnd != nil && !g.ended {
		g.ended = true
		go g.onEnd(g.ID)
	}
	if g.db != nil {
		go persistMatch(g.db, winnerID, duration, results)
	}
}

// matchResult is the per-player payload handed to the persistence
// goroutine after the lock is released
type matchResult struct {
	AuthID       int64
	PlayerID     string
	Won          bool
	Eliminations int
	Died         int
	Score        int
	Blocks       int
	PowerUps     int
	Client       Broadcaster
}

func (g *Game) collectResults(winnerID string, duration time.Duration) []matchResult {
	results := make([]matchResult, 0, len(g.players))
	for _, p := range g.players {
		died := 0
		if !p.Alive {
			died = 1
		}
		results = append(results, matchResult{
			AuthID:       p.AuthPlayerID,
			PlayerID:     p.ID,
			Won:          p.ID == winnerID && winnerID != "",
			Eliminations: p.Eliminations,
			Died:         died,
			Score:        p.Score,
			Blocks:       p.BlocksDestroyed,
			PowerUps:     p.PowerUpsGrabbed,
			Client:       g.clients[p.ID],
		})
	}
	return results
}

func (g *Game) track(evt string, authID int64, data string) {
	if g.analytics != nil {
		g.analytics.Track(evt, authID, g.ID, data)
	}
}
