package main

import "time"

// applyDamage applies one hit to a player. Dead or invulnerable targets
// are untouched, as are hits landing after the match has finished: the
// oracle raises all of a tick's hit events in one pass, so a hit that
// ends the match must not let the remaining events touch the winner.
// A lethal hit marks the player eliminated; a survivable one grants an
// invulnerability window. The win condition is re-evaluated after every
// application. Caller holds the game lock.
func (g *Game) applyDamage(p *Player, now time.Time) {
	if g.phase != PhasePlaying || !p.Alive || p.Invulnerable {
		return
	}

	p.Lives--
	p.DamageTaken++

	if p.Lives <= 0 {
		p.Lives = 0
		p.Alive = false
		g.stats.Eliminations++
		g.broadcastMsg(Envelope{T: MsgEliminated, Data: EliminatedMsg{
			PlayerID:  p.ID,
			Name:      p.Name,
			AliveLeft: g.aliveCount(),
		}})
		g.track(EvtElimination, p.AuthPlayerID, `{"player":"`+p.ID+`"}`)
	} else {
		p.Invulnerable = true
		p.InvulnUntil = now.Add(g.cfg.InvulnDuration)
		g.broadcastMsg(Envelope{T: MsgDamage, Data: DamageMsg{
			PlayerID: p.ID,
			Lives:    p.Lives,
			InvulnMS: g.cfg.InvulnDuration.Seconds() * 1000,
		}})
	}

	g.checkWinCondition()
}

// sweepInvulnerability clears expired invulnerability windows. The flag is
// only cleared for living players so a past grant can never resurrect an
// eliminated one.
func (g *Game) sweepInvulnerability(now time.Time) {
	for _, p := range g.players {
		if p.Invulnerable && p.Alive && !now.Before(p.InvulnUntil) {
			p.Invulnerable = false
		}
	}
}

// aliveCount returns the number of players still in the fight
func (g *Game) aliveCount() int {
	n := 0
	for _, p := range g.players {
		if p.Alive {
			n++
		}
	}
	return n
}

// checkWinCondition finishes the match as soon as at most one player is
// left alive, even mid-tick. The sole survivor wins; a simultaneous
// double-elimination leaves no winner.
func (g *Game) checkWinCondition() {
	if g.phase != PhasePlaying {
		return
	}
	alive := 0
	var last *Player
	for _, p := range g.players {
		if p.Alive {
			alive++
			last = p
		}
	}
	if alive > 1 {
		return
	}
	g.finish(last)
}
