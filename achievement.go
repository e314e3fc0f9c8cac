package main

// AchievementDef describes one unlockable achievement
type AchievementDef struct {
	ID          string
	Name        string
	Description string
}

var Achievements = []AchievementDef{
	{"first_win", "Last One Standing", "Win your first match"},
	{"demolition", "Demolition Crew", "Destroy 100 blocks total"},
	{"wrecking_ball", "Wrecking Ball", "Destroy 1000 blocks total"},
	{"exterminator", "Exterminator", "Eliminate 50 players total"},
	{"triple_threat", "Triple Threat", "Eliminate 3 players in one match"},
	{"untouchable", "Untouchable", "Win a match without losing a life"},
	{"collector", "Collector", "Pick up 100 power-ups total"},
	{"veteran", "Veteran", "Reach level 10"},
	{"elite", "Elite", "Reach level 25"},
	{"marathon", "Marathon", "Play for 1 hour total"},
}

// CheckAchievements evaluates unlock conditions after a match and returns
// the newly unlocked achievements.
func CheckAchievements(db *DB, playerID int64, r matchResult) []AchievementDef {
	if db == nil {
		return nil
	}

	stats, err := db.GetStats(playerID)
	if err != nil || stats == nil {
		return nil
	}

	existing, err := db.GetAchievements(playerID)
	if err != nil {
		return nil
	}
	has := make(map[string]bool, len(existing))
	for _, a := range existing {
		has[a] = true
	}

	check := func(id string) bool {
		if has[id] {
			return false
		}
		switch id {
		case "first_win":
			return stats.Wins >= 1
		case "demolition":
			return stats.Blocks >= 100
		case "wrecking_ball":
			return stats.Blocks >= 1000
		case "exterminator":
			return stats.Eliminations >= 50
		case "triple_threat":
			return r.Eliminations >= 3
		case "untouchable":
			return r.Won && r.Died == 0
		case "collector":
			return stats.PowerUps >= 100
		case "veteran":
			return stats.Level >= 10
		case "elite":
			return stats.Level >= 25
		case "marathon":
			return stats.Playtime >= 3600
		}
		return false
	}

	var unlocked []AchievementDef
	for _, def := range Achievements {
		if check(def.ID) {
			if newlyUnlocked, err := db.UnlockAchievement(playerID, def.ID); err == nil && newlyUnlocked {
				unlocked = append(unlocked, def)
			}
		}
	}
	return unlocked
}
