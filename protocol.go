package main

import "encoding/json"

// Client -> Server message types
const (
	MsgJoin     = "join"
	MsgLeave    = "leave"
	MsgInput    = "input"
	MsgCreate   = "create" // create session
	MsgList     = "list"   // list sessions
	MsgCheck    = "check"  // check if session exists
	MsgRegister = "register"
	MsgLogin    = "login"
	MsgAuth     = "auth" // token re-auth
	MsgProfile  = "profile"
	MsgBoard    = "leaderboard"
)

// Server -> Client message types
const (
	MsgState       = "state" // binary msgpack StateSnapshot
	MsgWelcome     = "welcome"
	MsgSessions    = "sessions"
	MsgJoined      = "joined"
	MsgCreated     = "created"
	MsgError       = "error"
	MsgChecked     = "checked"
	MsgCountdown   = "countdown"
	MsgElapsed     = "elapsed"
	MsgGameStart   = "game_start"
	MsgGameEnd     = "game_end"
	MsgPowerUpNew  = "powerup_spawned"
	MsgPowerUpGot  = "powerup_collected"
	MsgPowerUpGone = "powerup_expired"
	MsgStats       = "player_stats"
	MsgDamage      = "player_damaged"
	MsgEliminated  = "player_eliminated"
	MsgAuthOK      = "auth_ok"
	MsgProfileData = "profile_data"
	MsgBoardData   = "leaderboard_data"
	MsgAchievement = "achievement"
)

// Movement directions accepted in input messages
const (
	DirUp    = "up"
	DirDown  = "down"
	DirLeft  = "left"
	DirRight = "right"
)

// DirDelta maps a direction name to its tile offset. Unknown directions
// return ok=false.
func DirDelta(dir string) (Tile, bool) {
	switch dir {
	case DirUp:
		return Tile{X: 0, Y: -1}, true
	case DirDown:
		return Tile{X: 0, Y: 1}, true
	case DirLeft:
		return Tile{X: -1, Y: 0}, true
	case DirRight:
		return Tile{X: 1, Y: 0}, true
	}
	return Tile{}, false
}

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages — json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// ClientInput carries one gameplay request
type ClientInput struct {
	Action string `json:"a"`   // "move" or "bomb"
	Dir    string `json:"dir"` // for "move": up/down/left/right
}

// JoinMsg is sent when a player wants to join a session
type JoinMsg struct {
	Name      string `json:"name"`
	SessionID string `json:"sid"`
}

// CreateMsg is sent when a player wants to create a session
type CreateMsg struct {
	Name        string `json:"name"`
	SessionName string `json:"sname"`
}

// PlayerState is the per-player wire projection
type PlayerState struct {
	ID         string `json:"id" msgpack:"id"`
	Name       string `json:"n" msgpack:"n"`
	Slot       int    `json:"sl" msgpack:"sl"`
	X          int    `json:"x" msgpack:"x"`   // tile X
	Y          int    `json:"y" msgpack:"y"`   // tile Y
	PX         int    `json:"px" msgpack:"px"` // pixel X
	PY         int    `json:"py" msgpack:"py"` // pixel Y
	Lives      int    `json:"l" msgpack:"l"`
	Alive      bool   `json:"a" msgpack:"a"`
	Invuln     bool   `json:"inv" msgpack:"inv"`
	MaxBombs   int    `json:"mb" msgpack:"mb"`
	BlastRange int    `json:"br" msgpack:"br"`
	Speed      int    `json:"sp" msgpack:"sp"`
	BlockPass  bool   `json:"bp" msgpack:"bp"`
	Score      int    `json:"sc" msgpack:"sc"`
}

// BombState is the per-bomb wire projection
type BombState struct {
	ID    string  `json:"id" msgpack:"id"`
	Owner string  `json:"o" msgpack:"o"`
	X     int     `json:"x" msgpack:"x"`
	Y     int     `json:"y" msgpack:"y"`
	Fuse  float64 `json:"f" msgpack:"f"` // seconds remaining
	Range int     `json:"r" msgpack:"r"`
}

// ExplosionState is the per-blast-cell wire projection
type ExplosionState struct {
	ID string `json:"id" msgpack:"id"`
	X  int    `json:"x" msgpack:"x"`
	Y  int    `json:"y" msgpack:"y"`
}

// PowerUpState is the per-power-up wire projection
type PowerUpState struct {
	ID   string `json:"id" msgpack:"id"`
	Kind string `json:"k" msgpack:"k"`
	X    int    `json:"x" msgpack:"x"`
	Y    int    `json:"y" msgpack:"y"`
}

// MapSnapshot lets a client rebuild the grid without re-running generation
type MapSnapshot struct {
	Width  int    `json:"w" msgpack:"w"`
	Height int    `json:"h" msgpack:"h"`
	Walls  []Tile `json:"walls" msgpack:"walls"`
	Blocks []Tile `json:"blocks" msgpack:"blocks"`
}

// StateSnapshot is the diffed full-state broadcast (binary msgpack frames)
type StateSnapshot struct {
	Players    []PlayerState    `json:"p" msgpack:"p"`
	Bombs      []BombState      `json:"b" msgpack:"b"`
	Explosions []ExplosionState `json:"e" msgpack:"e"`
	PowerUps   []PowerUpState   `json:"pu" msgpack:"pu"`
	Blocks     []Tile           `json:"bl" msgpack:"bl"`
	Walls      []Tile           `json:"w" msgpack:"w"`
	Tick       uint64           `json:"tick" msgpack:"tick"`
}

// CountdownMsg carries the visible countdown value
type CountdownMsg struct {
	Remaining int `json:"n"`
	Players   int `json:"players"`
}

// ElapsedMsg is the once-per-second match clock update
type ElapsedMsg struct {
	Seconds int `json:"s"`
}

// GameStartMsg is the full start snapshot
type GameStartMsg struct {
	Map     MapSnapshot   `json:"map"`
	Players []PlayerState `json:"players"`
	Config  ConfigMsg     `json:"config"`
}

// ConfigMsg exposes the client-relevant subset of the session config
type ConfigMsg struct {
	TileSize          int     `json:"tile_size"`
	TickRate          int     `json:"tick_rate"`
	BombFuseSec       float64 `json:"bomb_fuse"`
	ExplosionLifeSec  float64 `json:"explosion_life"`
	EffectDurationSec float64 `json:"effect_duration"`
}

// GameEndMsg is the end snapshot
type GameEndMsg struct {
	WinnerID   string          `json:"winner_id,omitempty"`
	WinnerName string          `json:"winner_name,omitempty"`
	Duration   float64         `json:"duration"` // seconds
	Standings  []StandingEntry `json:"standings"`
}

// StandingEntry is one row of the final results
type StandingEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Score        int    `json:"score"`
	Eliminations int    `json:"eliminations"`
	Winner       bool   `json:"winner"`
}

// PowerUpEventMsg reports spawn/collect/expire of a map power-up
type PowerUpEventMsg struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	PlayerID string `json:"pid,omitempty"` // collector, for pickups
}

// StatsUpdateMsg is the aggregated per-player stats notification
type StatsUpdateMsg struct {
	PlayerID   string `json:"pid"`
	Lives      int    `json:"lives"`
	MaxBombs   int    `json:"max_bombs"`
	BlastRange int    `json:"blast_range"`
	Speed      int    `json:"speed"`
	BlockPass  bool   `json:"block_pass"`
	Score      int    `json:"score"`
}

// DamageMsg reports a non-lethal hit
type DamageMsg struct {
	PlayerID string  `json:"pid"`
	Lives    int     `json:"lives"`
	InvulnMS float64 `json:"invuln_ms"`
}

// EliminatedMsg reports a player running out of lives or leaving mid-match
type EliminatedMsg struct {
	PlayerID  string `json:"pid"`
	Name      string `json:"name"`
	AliveLeft int    `json:"alive_left"`
}

// WelcomeMsg is sent to a player when they join
type WelcomeMsg struct {
	ID   string `json:"id"`
	Slot int    `json:"slot"`
}

// SessionInfo is used in the session list
type SessionInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Players int    `json:"players"`
	Phase   string `json:"phase"`
}

// ErrorMsg sends an error to the client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// CheckMsg is sent by a client to check if a session exists
type CheckMsg struct {
	SID string `json:"sid"`
}

// CheckedMsg is the response to a session check
type CheckedMsg struct {
	SID     string `json:"sid"`
	Exists  bool   `json:"exists"`
	Name    string `json:"name,omitempty"`
	Players int    `json:"players,omitempty"`
	Phase   string `json:"phase,omitempty"`
}

// RegisterMsg creates an account
type RegisterMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginMsg authenticates an account
type LoginMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthMsg re-authenticates with a stored token
type AuthMsg struct {
	Token string `json:"token"`
}

// AuthOKMsg confirms authentication
type AuthOKMsg struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	PlayerID int64  `json:"player_id"`
}

// BoardMsg requests the leaderboard
type BoardMsg struct {
	By    string `json:"by"` // wins, eliminations, level, xp, score
	Limit int    `json:"limit"`
}

// BoardDataMsg returns the requested leaderboard
type BoardDataMsg struct {
	By      string             `json:"by"`
	Entries []LeaderboardEntry `json:"entries"`
}

// ProfileDataMsg returns career stats for the authenticated account
type ProfileDataMsg struct {
	Username     string  `json:"username"`
	Level        int     `json:"level"`
	XP           int     `json:"xp"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	Eliminations int     `json:"eliminations"`
	Deaths       int     `json:"deaths"`
	Blocks       int     `json:"blocks"`
	PowerUps     int     `json:"powerups"`
	Playtime     float64 `json:"playtime"`
}

// AchievementMsg notifies a newly unlocked achievement
type AchievementMsg struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"desc"`
}
