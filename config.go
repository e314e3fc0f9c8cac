package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// GameConfig holds all match tuning parameters. Values are loaded from an
// optional YAML file layered over the defaults below.
type GameConfig struct {
	MapWidth  int `yaml:"map_width"`
	MapHeight int `yaml:"map_height"`
	TileSize  int `yaml:"tile_size"`

	MinPlayers int `yaml:"min_players"`
	MaxPlayers int `yaml:"max_players"`

	CountdownSeconds int `yaml:"countdown_seconds"`
	TickRate         int `yaml:"tick_rate"`

	StartingLives int `yaml:"starting_lives"`
	MaxLives      int `yaml:"max_lives"`

	BombFuse          time.Duration `yaml:"bomb_fuse"`
	ExplosionDuration time.Duration `yaml:"explosion_duration"`
	InvulnDuration    time.Duration `yaml:"invuln_duration"`

	PowerUpDespawn time.Duration `yaml:"powerup_despawn"`
	EffectDuration time.Duration `yaml:"effect_duration"`
	PowerUpChance  float64       `yaml:"powerup_chance"`
	MaxStackSpeed  int           `yaml:"max_stack_speed"`
	MaxStackBombs  int           `yaml:"max_stack_bombs"`
	MaxStackFlames int           `yaml:"max_stack_flames"`

	ScorePickup      int `yaml:"score_pickup"`
	ScoreBlock       int `yaml:"score_block"`
	ScoreElimination int `yaml:"score_elimination"`
}

// DefaultGameConfig returns the standard 4-player arena tuning
func DefaultGameConfig() GameConfig {
	return GameConfig{
		MapWidth:  15,
		MapHeight: 13,
		TileSize:  40,

		MinPlayers: 2,
		MaxPlayers: 4,

		CountdownSeconds: 10,
		TickRate:         60,

		StartingLives: 3,
		MaxLives:      5,

		BombFuse:          3 * time.Second,
		ExplosionDuration: 800 * time.Millisecond,
		InvulnDuration:    2 * time.Second,

		PowerUpDespawn: 15 * time.Second,
		EffectDuration: 20 * time.Second,
		PowerUpChance:  0.4,
		MaxStackSpeed:  3,
		MaxStackBombs:  4,
		MaxStackFlames: 4,

		ScorePickup:      50,
		ScoreBlock:       10,
		ScoreElimination: 200,
	}
}

// LoadGameConfig reads tuning overrides from a YAML file. A missing path
// returns the defaults; a malformed file is an error.
func LoadGameConfig(path string) (GameConfig, error) {
	cfg := DefaultGameConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the generator or session cannot run with
func (c GameConfig) Validate() error {
	if c.MapWidth < 7 || c.MapHeight < 7 {
		return fmt.Errorf("map must be at least 7x7, got %dx%d", c.MapWidth, c.MapHeight)
	}
	if c.MapWidth%2 == 0 || c.MapHeight%2 == 0 {
		return fmt.Errorf("map dimensions must be odd, got %dx%d", c.MapWidth, c.MapHeight)
	}
	if c.MaxPlayers < 2 || c.MaxPlayers > MaxSpawnSlots {
		return fmt.Errorf("max_players must be 2-%d, got %d", MaxSpawnSlots, c.MaxPlayers)
	}
	if c.TickRate < 1 {
		return fmt.Errorf("tick_rate must be positive, got %d", c.TickRate)
	}
	if c.PowerUpChance < 0 || c.PowerUpChance > 1 {
		return fmt.Errorf("powerup_chance must be in [0,1], got %f", c.PowerUpChance)
	}
	return nil
}

// TickInterval returns the duration of one simulation frame
func (c GameConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}
