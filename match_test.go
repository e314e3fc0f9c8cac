package main

import (
	"testing"
	"time"
)

func TestGamePhaseString(t *testing.T) {
	tests := []struct {
		phase GamePhase
		want  string
	}{
		{PhaseCountdown, "countdown"},
		{PhasePlaying, "playing"},
		{PhaseFinished, "finished"},
		{GamePhase(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("GamePhase(%d).String() = %q, want %q", int(tt.phase), got, tt.want)
		}
	}
}

func TestMatchStatsDuration(t *testing.T) {
	var ms MatchStats
	if ms.Duration() != 0 {
		t.Error("unstarted match should have zero duration")
	}
	ms.StartedAt = time.Now()
	ms.EndedAt = ms.StartedAt.Add(90 * time.Second)
	if ms.Duration() != 90*time.Second {
		t.Errorf("expected 90s, got %v", ms.Duration())
	}
}

func TestFinalStandingsOrder(t *testing.T) {
	players := map[string]*Player{
		"a": {ID: "a", Name: "Alpha", Score: 250, Eliminations: 1},
		"b": {ID: "b", Name: "Beta", Score: 400, Eliminations: 2},
		"c": {ID: "c", Name: "Gamma", Score: 250},
	}

	standings := FinalStandings(players, "b")
	if len(standings) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(standings))
	}
	if standings[0].ID != "b" || !standings[0].Winner {
		t.Errorf("expected b first and marked winner, got %+v", standings[0])
	}
	// score tie breaks by ID
	if standings[1].ID != "a" || standings[2].ID != "c" {
		t.Errorf("tie break wrong: %s then %s", standings[1].ID, standings[2].ID)
	}
	if standings[1].Winner || standings[2].Winner {
		t.Error("only one entry may be the winner")
	}
}

func TestFinalStandingsNoWinner(t *testing.T) {
	players := map[string]*Player{
		"a": {ID: "a", Name: "Alpha", Score: 100},
		"b": {ID: "b", Name: "Beta", Score: 100},
	}
	for _, entry := range FinalStandings(players, "") {
		if entry.Winner {
			t.Error("no entry may be the winner in a draw")
		}
	}
}
