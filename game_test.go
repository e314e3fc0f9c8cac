package main

import (
	"sync"
	"testing"
	"time"
)

// mockBroadcaster captures sent messages for testing
type mockBroadcaster struct {
	mu       sync.Mutex
	messages []interface{}
	binaries int
}

func (m *mockBroadcaster) SendJSON(msg interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *mockBroadcaster) SendBinary(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.binaries++
}

func (m *mockBroadcaster) countType(msgType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.messages {
		if env, ok := msg.(Envelope); ok && env.T == msgType {
			n++
		}
	}
	return n
}

func TestGameAddRemovePlayer(t *testing.T) {
	g, ps := newTestGame("TestBomber")
	if ps[0] == nil || ps[0].Name != "TestBomber" {
		t.Fatal("expected player to be added")
	}
	if g.PlayerCount() != 1 {
		t.Errorf("expected 1 player, got %d", g.PlayerCount())
	}

	g.RemovePlayer(ps[0].ID)
	if g.PlayerCount() != 0 {
		t.Errorf("expected 0 players, got %d", g.PlayerCount())
	}
}

func TestGameSpawnSlots(t *testing.T) {
	g, ps := newTestGame("A", "B", "C", "D")
	anchors := g.world.SpawnAnchors()
	for i, p := range ps {
		if p.Slot != i {
			t.Errorf("player %d got slot %d", i, p.Slot)
		}
		if p.Pos != anchors[i] {
			t.Errorf("player %d spawned at %v, want %v", i, p.Pos, anchors[i])
		}
	}
}

func TestGameAutoStartWhenFull(t *testing.T) {
	g, _ := newTestGame("A", "B", "C", "D")
	if g.Phase() != PhasePlaying {
		t.Error("filling the last slot should start the match")
	}
	if g.AddPlayer("E", 0) != nil {
		t.Error("fifth join must be rejected")
	}
}

func TestGameJoinAfterStartRejected(t *testing.T) {
	g, _ := newTestGame("A", "B")
	startTestMatch(g)
	if g.AddPlayer("Late", 0) != nil {
		t.Error("joins after the match starts must be rejected")
	}
}

func TestGameSlotReuseDuringCountdown(t *testing.T) {
	g, ps := newTestGame("A", "B")
	g.RemovePlayer(ps[0].ID)
	p := g.AddPlayer("C", 0)
	if p == nil || p.Slot != 0 {
		t.Errorf("expected freed slot 0 to be reused, got %+v", p)
	}
}

func TestGameCountdownRunsDown(t *testing.T) {
	g, ps := newTestGame("A", "B")
	mock := &mockBroadcaster{}
	g.SetClient(ps[0].ID, mock)

	g.mu.Lock()
	for i := 0; i < g.cfg.CountdownSeconds; i++ {
		g.secondTick()
	}
	g.mu.Unlock()

	if g.Phase() != PhasePlaying {
		t.Fatal("countdown reaching zero should start the match")
	}
	if mock.countType(MsgCountdown) == 0 {
		t.Error("expected countdown broadcasts during countdown")
	}
	if mock.countType(MsgGameStart) != 1 {
		t.Errorf("expected 1 game_start, got %d", mock.countType(MsgGameStart))
	}
}

func TestGameRemovePlayerDuringPlay(t *testing.T) {
	g, ps := newTestGame("A", "B", "C")
	startTestMatch(g)

	g.RemovePlayer(ps[0].ID)
	if g.Phase() != PhasePlaying {
		t.Fatal("match should continue with 2 players alive")
	}
	if !g.HasPlayer(ps[0].ID) {
		t.Error("mid-match leaver must stay on the roster record")
	}

	g.RemovePlayer(ps[1].ID)
	if g.Phase() != PhaseFinished {
		t.Fatal("match should finish when one player remains")
	}
	if g.stats.WinnerID != ps[2].ID {
		t.Errorf("expected winner %s, got %s", ps[2].ID, g.stats.WinnerID)
	}
}

func TestGameHandleInputMove(t *testing.T) {
	g, ps := newTestGame("A", "B")
	startTestMatch(g)
	p := ps[0] // spawned at (1,1)

	g.HandleInput(p.ID, ClientInput{Action: "move", Dir: DirUp})
	if p.Pos != (Tile{X: 1, Y: 1}) {
		t.Error("move into the border wall must be rejected")
	}

	g.HandleInput(p.ID, ClientInput{Action: "move", Dir: DirRight})
	if p.Pos != (Tile{X: 2, Y: 1}) {
		t.Errorf("expected move to (2,1), got %v", p.Pos)
	}
	if p.X != 2*g.cfg.TileSize {
		t.Errorf("pixel position not synced after move: %d", p.X)
	}
}

func TestGameHandleInputIgnoredBeforeStart(t *testing.T) {
	g, ps := newTestGame("A", "B", "C")
	g.HandleInput(ps[0].ID, ClientInput{Action: "bomb"})
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.bombs) != 0 {
		t.Error("inputs during countdown must be dropped")
	}
}

func TestGameHandleInputUnknown(t *testing.T) {
	g, ps := newTestGame("A", "B")
	startTestMatch(g)
	// unknown action and unknown direction are silently dropped
	g.HandleInput(ps[0].ID, ClientInput{Action: "teleport"})
	g.HandleInput(ps[0].ID, ClientInput{Action: "move", Dir: "northwest"})
	g.HandleInput("no-such-player", ClientInput{Action: "bomb"})
	if ps[0].Pos != (Tile{X: 1, Y: 1}) {
		t.Error("invalid input must not move the player")
	}
}

func TestGameBombCap(t *testing.T) {
	g, ps := newTestGame("A", "B")
	startTestMatch(g)
	p := ps[0]

	g.HandleInput(p.ID, ClientInput{Action: "bomb"})
	g.mu.Lock()
	if len(g.bombs) != 1 {
		t.Fatalf("expected 1 bomb, got %d", len(g.bombs))
	}
	g.mu.Unlock()

	// second request on the same tile is rejected
	g.HandleInput(p.ID, ClientInput{Action: "bomb"})
	// move away, still capped at MaxBombs
	g.HandleInput(p.ID, ClientInput{Action: "move", Dir: DirRight})
	g.HandleInput(p.ID, ClientInput{Action: "bomb"})

	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.bombs) != 1 {
		t.Errorf("expected bomb cap of 1 to hold, got %d", len(g.bombs))
	}
}

func TestGameBombCapRaisedByPowerUp(t *testing.T) {
	g, ps := newTestGame("A", "B")
	startTestMatch(g)
	p := ps[0]
	ApplyPowerUp(p, PowerUpBombs, g.cfg, time.Now())

	g.HandleInput(p.ID, ClientInput{Action: "bomb"})
	g.HandleInput(p.ID, ClientInput{Action: "move", Dir: DirRight})
	g.HandleInput(p.ID, ClientInput{Action: "bomb"})

	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.bombs) != 2 {
		t.Errorf("expected 2 armed bombs with one bombs stack, got %d", len(g.bombs))
	}
}

func TestGameDetonateDestroysBlock(t *testing.T) {
	g, ps := newTestGame("A", "B")
	startTestMatch(g)
	owner := ps[0]
	owner.Pos = Tile{X: 5, Y: 5} // out of the blast

	g.mu.Lock()
	g.world.grid[1][3] = TileBlock
	g.world.rebuildSets()
	ps[1].Pos = Tile{X: 9, Y: 9}

	b := &Bomb{ID: "b1", OwnerID: owner.ID, Pos: Tile{X: 2, Y: 1}, Range: 1}
	g.bombs[b.ID] = b
	g.detonate(b, g.now())
	g.mu.Unlock()

	if g.world.IsBlock(Tile{X: 3, Y: 1}) {
		t.Error("block in blast range should be destroyed")
	}
	if owner.BlocksDestroyed != 1 {
		t.Errorf("expected 1 destroyed block credited, got %d", owner.BlocksDestroyed)
	}
	if owner.Score < g.cfg.ScoreBlock {
		t.Errorf("expected at least %d score, got %d", g.cfg.ScoreBlock, owner.Score)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.explosions) == 0 {
		t.Error("detonation should leave burning explosion tiles")
	}
	if _, ok := g.bombs[b.ID]; ok {
		t.Error("detonated bomb should be removed")
	}
}

func TestGameDetonateDamagesPlayers(t *testing.T) {
	g, ps := newTestGame("A", "B", "C")
	startTestMatch(g)
	owner, victim := ps[0], ps[1]
	owner.Pos = Tile{X: 9, Y: 9}
	victim.Pos = Tile{X: 3, Y: 1}
	ps[2].Pos = Tile{X: 11, Y: 11}

	g.mu.Lock()
	b := &Bomb{ID: "b1", OwnerID: owner.ID, Pos: Tile{X: 2, Y: 1}, Range: 1}
	g.bombs[b.ID] = b
	g.detonate(b, g.now())
	g.mu.Unlock()

	if victim.Lives != g.cfg.StartingLives-1 {
		t.Errorf("expected victim at %d lives, got %d", g.cfg.StartingLives-1, victim.Lives)
	}
	if !victim.Invulnerable {
		t.Error("surviving victim should be invulnerable")
	}
	if owner.Lives != g.cfg.StartingLives {
		t.Error("owner outside the blast must be untouched")
	}
}

func TestGameDetonateCreditsElimination(t *testing.T) {
	g, ps := newTestGame("A", "B", "C")
	startTestMatch(g)
	owner, victim := ps[0], ps[1]
	owner.Pos = Tile{X: 9, Y: 9}
	victim.Pos = Tile{X: 3, Y: 1}
	victim.Lives = 1
	ps[2].Pos = Tile{X: 11, Y: 11}

	g.mu.Lock()
	b := &Bomb{ID: "b1", OwnerID: owner.ID, Pos: Tile{X: 2, Y: 1}, Range: 1}
	g.bombs[b.ID] = b
	g.detonate(b, g.now())
	g.mu.Unlock()

	if victim.Alive {
		t.Fatal("victim at 1 life should be eliminated")
	}
	if owner.Eliminations != 1 {
		t.Errorf("expected 1 elimination credited, got %d", owner.Eliminations)
	}
	if owner.Score < g.cfg.ScoreElimination {
		t.Errorf("expected elimination score, got %d", owner.Score)
	}
}

func TestGameUpdateFrameSkip(t *testing.T) {
	g, _ := newTestGame("A", "B")
	startTestMatch(g)

	g.mu.Lock()
	base := g.lastTick
	g.update(base.Add(g.cfg.TickInterval()))
	if g.tick != 1 {
		t.Fatalf("expected tick 1, got %d", g.tick)
	}
	g.update(base.Add(g.cfg.TickInterval())) // no time elapsed since last frame
	if g.tick != 1 {
		t.Errorf("frame should be skipped when less than one interval elapsed, tick %d", g.tick)
	}
	g.update(base.Add(2 * g.cfg.TickInterval()))
	if g.tick != 2 {
		t.Errorf("expected tick 2, got %d", g.tick)
	}
	g.mu.Unlock()
}

func TestGameUpdateDetonatesExpiredBombs(t *testing.T) {
	g, ps := newTestGame("A", "B")
	startTestMatch(g)
	ps[0].Pos = Tile{X: 5, Y: 5}
	ps[1].Pos = Tile{X: 9, Y: 9}

	g.mu.Lock()
	b := &Bomb{ID: "b1", OwnerID: ps[0].ID, Pos: Tile{X: 1, Y: 1}, Fuse: time.Millisecond, Range: 1}
	g.bombs[b.ID] = b
	g.update(g.lastTick.Add(g.cfg.TickInterval()))
	bombCount, explCount := len(g.bombs), len(g.explosions)
	g.mu.Unlock()

	if bombCount != 0 {
		t.Errorf("expired bomb should have detonated, %d left", bombCount)
	}
	if explCount == 0 {
		t.Error("detonation should produce explosion tiles")
	}
}

func TestStateFingerprintChangesOnMove(t *testing.T) {
	g, ps := newTestGame("A", "B")
	startTestMatch(g)

	g.mu.Lock()
	fp1 := g.stateFingerprint()
	fp2 := g.stateFingerprint()
	g.mu.Unlock()
	if fp1 != fp2 {
		t.Fatal("fingerprint must be stable when nothing changed")
	}

	g.HandleInput(ps[0].ID, ClientInput{Action: "move", Dir: DirRight})

	g.mu.Lock()
	fp3 := g.stateFingerprint()
	g.mu.Unlock()
	if fp3 == fp1 {
		t.Error("fingerprint must change when a player moves")
	}
}

func TestEmitStateDeduplicates(t *testing.T) {
	g, ps := newTestGame("A", "B")
	mock := &mockBroadcaster{}
	g.SetClient(ps[0].ID, mock)
	startTestMatch(g)

	g.mu.Lock()
	g.emitState()
	g.emitState() // identical state, no second frame
	g.mu.Unlock()

	if mock.binaries != 1 {
		t.Errorf("expected 1 binary state frame, got %d", mock.binaries)
	}

	g.HandleInput(ps[0].ID, ClientInput{Action: "move", Dir: DirRight})
	g.mu.Lock()
	g.emitState()
	g.mu.Unlock()

	if mock.binaries != 2 {
		t.Errorf("expected a new frame after a change, got %d", mock.binaries)
	}
}

func TestSnapshotCarriesFullMap(t *testing.T) {
	g, _ := newTestGame("A", "B")
	startTestMatch(g)

	g.mu.Lock()
	snap := g.buildSnapshot()
	g.mu.Unlock()

	if len(snap.Walls) != len(g.world.WallList()) {
		t.Errorf("snapshot walls %d, world has %d", len(snap.Walls), len(g.world.WallList()))
	}
	if len(snap.Blocks) != len(g.world.BlockList()) {
		t.Errorf("snapshot blocks %d, world has %d", len(snap.Blocks), len(g.world.BlockList()))
	}
	if len(snap.Players) != 2 {
		t.Errorf("expected 2 player states, got %d", len(snap.Players))
	}
}

func TestGameSweepPowerUps(t *testing.T) {
	g, ps := newTestGame("A", "B")
	mock := &mockBroadcaster{}
	g.SetClient(ps[0].ID, mock)
	startTestMatch(g)

	now := time.Now()
	g.mu.Lock()
	pu := NewMapPowerUp(PowerUpSpeed, Tile{X: 5, Y: 5}, now.Add(-g.cfg.PowerUpDespawn))
	g.powerUps[pu.ID] = pu
	fresh := NewMapPowerUp(PowerUpBombs, Tile{X: 7, Y: 5}, now)
	g.powerUps[fresh.ID] = fresh
	g.sweepPowerUps(now)
	remaining := len(g.powerUps)
	g.mu.Unlock()

	if remaining != 1 {
		t.Fatalf("expected 1 power-up to survive the sweep, got %d", remaining)
	}
	if mock.countType(MsgPowerUpGone) != 1 {
		t.Errorf("expected 1 expiry broadcast, got %d", mock.countType(MsgPowerUpGone))
	}
}

func TestGamePlayerCollectedPowerUp(t *testing.T) {
	g, ps := newTestGame("A", "B")
	startTestMatch(g)
	p := ps[0]

	g.mu.Lock()
	pu := NewMapPowerUp(PowerUpBombs, p.Pos, g.now())
	g.powerUps[pu.ID] = pu
	g.PlayerCollectedPowerUp(p, pu)
	picked := len(g.powerUps) == 0
	g.mu.Unlock()

	if !picked {
		t.Fatal("collected power-up should leave the map")
	}
	if p.MaxBombs != 2 {
		t.Errorf("expected MaxBombs 2 after pickup, got %d", p.MaxBombs)
	}
	if p.PowerUpsGrabbed != 1 {
		t.Errorf("expected 1 grab recorded, got %d", p.PowerUpsGrabbed)
	}
	if p.Score != g.cfg.ScorePickup {
		t.Errorf("expected pickup score %d, got %d", g.cfg.ScorePickup, p.Score)
	}
}

func TestGameRejectedPickupStaysOnMap(t *testing.T) {
	g, ps := newTestGame("A", "B")
	startTestMatch(g)
	p := ps[0]
	for i := 0; i < g.cfg.MaxStackBombs; i++ {
		ApplyPowerUp(p, PowerUpBombs, g.cfg, time.Now())
	}

	g.mu.Lock()
	pu := NewMapPowerUp(PowerUpBombs, p.Pos, g.now())
	g.powerUps[pu.ID] = pu
	g.PlayerCollectedPowerUp(p, pu)
	stays := len(g.powerUps) == 1
	g.mu.Unlock()

	if !stays {
		t.Error("a pickup rejected at the stack ceiling must stay on the map")
	}
	if p.PowerUpsGrabbed != 0 {
		t.Error("rejected pickup must not count as a grab")
	}
}

func TestGameDestroy(t *testing.T) {
	g, _ := newTestGame("A", "B")
	startTestMatch(g)
	g.Destroy()

	if g.Phase() != PhaseFinished {
		t.Error("destroyed session should read as finished")
	}
	if g.PlayerCount() != 0 {
		t.Error("destroy should clear the roster")
	}
}

func TestDirDelta(t *testing.T) {
	tests := []struct {
		dir  string
		want Tile
		ok   bool
	}{
		{DirUp, Tile{X: 0, Y: -1}, true},
		{DirDown, Tile{X: 0, Y: 1}, true},
		{DirLeft, Tile{X: -1, Y: 0}, true},
		{DirRight, Tile{X: 1, Y: 0}, true},
		{"sideways", Tile{}, false},
		{"", Tile{}, false},
	}
	for _, tt := range tests {
		got, ok := DirDelta(tt.dir)
		if got != tt.want || ok != tt.ok {
			t.Errorf("DirDelta(%q) = %v,%t want %v,%t", tt.dir, got, ok, tt.want, tt.ok)
		}
	}
}
