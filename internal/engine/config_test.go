package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const testGameYAML = `
name: unit-lines
reels: 5
rows: 3
mode: lines
lines:
  - [1, 1, 1, 1, 1]
  - [0, 0, 0, 0, 0]
  - [2, 2, 2, 2, 2]
paytable:
  CHERRY: [0, 0, 0, 40, 400, 1000]
  BELL: [0, 0, 5, 20, 100, 500]
  TEN: [0, 0, 0, 5, 20, 100]
  STAR: [0, 0, 2, 5, 20, 100]
wilds: [WILD]
scatter: STAR
wild_multiplier: 2
free_spins:
  3: 10
  4: 15
  5: 20
free_spin_multiplier: 2
min_scatter_reels: 3
bet_levels: [1, 2, 5, 10, 20, 50]
denomination: 1
max_win: 5000000
avg_bonus_payout: 20
reel_names: [reel1, reel2, reel3, reel4, reel5]
strips_file: unit-lines.reels.txt
chance_bands:
  - lines_min: 1
    lines_max: 3
    percent_min: 0
    percent_max: 100
    spin_chance: 80
    bonus_chance: 300
`

const testReelsFile = `
reel1=CHERRY,BELL,TEN,WILD,STAR,TEN,BELL,CHERRY,TEN,BELL
reel2=BELL,TEN,CHERRY,STAR,TEN,BELL,TEN,WILD,BELL,TEN
reel3=TEN,CHERRY,BELL,TEN,STAR,BELL,TEN,CHERRY,WILD,TEN
reel4=CHERRY,TEN,BELL,STAR,TEN,BELL,CHERRY,TEN,WILD,BELL
reel5=BELL,CHERRY,TEN,BELL,STAR,TEN,BELL,TEN,CHERRY,WILD
`

func writeGameFiles(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "unit-lines.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("Failed to write game file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "unit-lines.reels.txt"), []byte(testReelsFile), 0o644); err != nil {
		t.Fatalf("Failed to write reels file: %v", err)
	}
	return dir
}

func TestLoadGameConfig(t *testing.T) {
	t.Run("LoadsAndValidates", func(t *testing.T) {
		dir := writeGameFiles(t, testGameYAML)

		cfg, err := LoadGameConfig(filepath.Join(dir, "unit-lines.yaml"))
		if err != nil {
			t.Fatalf("Failed to load game config: %v", err)
		}
		if cfg.Name != "unit-lines" {
			t.Errorf("Expected name unit-lines, got %s", cfg.Name)
		}
		if cfg.RetryCap != DefaultRetryCap {
			t.Errorf("Expected default retry cap, got %d", cfg.RetryCap)
		}
		if cfg.Strips(false).Len("reel1") != 10 {
			t.Errorf("Expected reel1 of 10, got %d", cfg.Strips(false).Len("reel1"))
		}
		if cfg.FreeSpins[4] != 15 {
			t.Errorf("Expected 15 free games for 4 scatters, got %d", cfg.FreeSpins[4])
		}
	})

	t.Run("FailsForShortStrip", func(t *testing.T) {
		dir := writeGameFiles(t, testGameYAML)
		short := "reel1=A,B\nreel2=A,B,C\nreel3=A,B,C\nreel4=A,B,C\nreel5=A,B,C\n"
		if err := os.WriteFile(filepath.Join(dir, "unit-lines.reels.txt"), []byte(short), 0o644); err != nil {
			t.Fatalf("Failed to rewrite reels file: %v", err)
		}

		_, err := LoadGameConfig(filepath.Join(dir, "unit-lines.yaml"))
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig for short strip, got %v", err)
		}
	})
}

func TestLoadGameConfigs(t *testing.T) {
	dir := writeGameFiles(t, testGameYAML)

	games, err := LoadGameConfigs(dir)
	if err != nil {
		t.Fatalf("Failed to load game dir: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("Expected 1 game, got %d", len(games))
	}
	if _, ok := games["unit-lines"]; !ok {
		t.Error("Expected unit-lines to be registered")
	}
}

func TestConfigValidate(t *testing.T) {
	broken := func(mutate func(*GameConfig)) error {
		cfg := &GameConfig{
			Name:  "broken",
			Reels: 5,
			Rows:  3,
			Mode:  ModeLines,
			Lines: [][]int{{1, 1, 1, 1, 1}},
			Paytable: map[Symbol][]int64{
				"A": {0, 0, 0, 10, 50, 200},
			},
			BetLevels: []int64{1, 2, 5},
			ReelNames: []string{"reel1", "reel2", "reel3", "reel4", "reel5"},
		}
		cfg.SetStrips(ParseStrips(`
reel1=A,B,C,D
reel2=A,B,C,D
reel3=A,B,C,D
reel4=A,B,C,D
reel5=A,B,C,D
`), nil)
		mutate(cfg)
		return cfg.Validate()
	}

	cases := []struct {
		name   string
		mutate func(*GameConfig)
	}{
		{"MissingName", func(c *GameConfig) { c.Name = "" }},
		{"ZeroReels", func(c *GameConfig) { c.Reels = 0 }},
		{"UnknownMode", func(c *GameConfig) { c.Mode = "cluster" }},
		{"NoLines", func(c *GameConfig) { c.Lines = nil }},
		{"ShortLine", func(c *GameConfig) { c.Lines = [][]int{{1, 1, 1}} }},
		{"RowOutOfRange", func(c *GameConfig) { c.Lines = [][]int{{1, 1, 1, 1, 7}} }},
		{"EmptyPaytable", func(c *GameConfig) { c.Paytable = nil }},
		{"WrongPaytableWidth", func(c *GameConfig) { c.Paytable = map[Symbol][]int64{"A": {0, 10}} }},
		{"NegativePayout", func(c *GameConfig) { c.Paytable["A"][3] = -1 }},
		{"WildScatterClash", func(c *GameConfig) { c.Wilds = []Symbol{"W"}; c.Scatter = "W" }},
		{"WildWithPaytableRow", func(c *GameConfig) {
			c.Wilds = []Symbol{"WILD"}
			c.Paytable["WILD"] = []int64{0, 0, 10, 100, 500, 2500}
		}},
		{"NoBetLevels", func(c *GameConfig) { c.BetLevels = nil }},
		{"UnsortedBetLevels", func(c *GameConfig) { c.BetLevels = []int64{5, 2} }},
		{"WrongReelNameCount", func(c *GameConfig) { c.ReelNames = []string{"reel1"} }},
		{"NoStrips", func(c *GameConfig) { c.SetStrips(nil, nil) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := broken(tc.mutate); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	t.Run("ValidConfigPasses", func(t *testing.T) {
		if err := broken(func(*GameConfig) {}); err != nil {
			t.Errorf("Unexpected error for valid config: %v", err)
		}
	})
}

func TestChances(t *testing.T) {
	cfg := testConfig(t)
	cfg.ChanceBands = []ChanceBand{
		{LinesMin: 1, LinesMax: 5, PercentMin: 0, PercentMax: 90, SpinChance: 60, BonusChance: 200},
		{LinesMin: 6, LinesMax: 10, PercentMin: 0, PercentMax: 90, SpinChance: 90, BonusChance: 350},
	}

	t.Run("MatchesByLinesAndPercent", func(t *testing.T) {
		if spin, bonus := cfg.Chances(3, 50); spin != 60 || bonus != 200 {
			t.Errorf("Expected 60/200, got %d/%d", spin, bonus)
		}
		if spin, bonus := cfg.Chances(10, 50); spin != 90 || bonus != 350 {
			t.Errorf("Expected 90/350, got %d/%d", spin, bonus)
		}
	})

	t.Run("FallsBackToDefaults", func(t *testing.T) {
		if spin, bonus := cfg.Chances(10, 95); spin != DefaultSpinChance || bonus != DefaultBonusChance {
			t.Errorf("Expected defaults %d/%d, got %d/%d",
				DefaultSpinChance, DefaultBonusChance, spin, bonus)
		}
	})
}

func TestValidBet(t *testing.T) {
	cfg := testConfig(t)
	if !cfg.ValidBet(10) {
		t.Error("Expected 10 to be a valid bet level")
	}
	if cfg.ValidBet(3) {
		t.Error("Expected 3 to be rejected")
	}
}
