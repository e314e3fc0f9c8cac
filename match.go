package main

import (
	"sort"
	"time"
)

// GamePhase represents the lifecycle of a session. There is no waiting
// phase: a session enters countdown the moment it is created.
type GamePhase int

const (
	PhaseCountdown GamePhase = 0
	PhasePlaying   GamePhase = 1
	PhaseFinished  GamePhase = 2
)

func (p GamePhase) String() string {
	switch p {
	case PhaseCountdown:
		return "countdown"
	case PhasePlaying:
		return "playing"
	case PhaseFinished:
		return "finished"
	}
	return "unknown"
}

// MatchStats accumulates over one session and feeds the end snapshot and
// the persisted match record.
type MatchStats struct {
	StartedAt    time.Time
	EndedAt      time.Time
	WinnerID     string // empty on a simultaneous double-elimination
	Eliminations int
}

// Duration returns the playing-phase length of the match
func (ms *MatchStats) Duration() time.Duration {
	if ms.StartedAt.IsZero() || ms.EndedAt.IsZero() {
		return 0
	}
	return ms.EndedAt.Sub(ms.StartedAt)
}

// FinalStandings builds the score-sorted results list for the end snapshot
func FinalStandings(players map[string]*Player, winnerID string) []StandingEntry {
	standings := make([]StandingEntry, 0, len(players))
	for _, p := range players {
		standings = append(standings, StandingEntry{
			ID:           p.ID,
			Name:         p.Name,
			Score:        p.Score,
			Eliminations: p.Eliminations,
			Winner:       p.ID == winnerID && winnerID != "",
		})
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Score != standings[j].Score {
			return standings[i].Score > standings[j].Score
		}
		return standings[i].ID < standings[j].ID
	})
	return standings
}
