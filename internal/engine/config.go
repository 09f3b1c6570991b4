package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Symbol identifies one reel symbol.
type Symbol string

// Evaluation modes.
const (
	ModeLines = "lines"
	ModeWays  = "ways"
)

// Default engine tunables, overridable per game.
const (
	DefaultRetryCap    = 2000
	DefaultSpinChance  = 100
	DefaultBonusChance = 500
	BoostedSpinChance  = 20
	BoostedBonusChance = 20
)

// ChanceBand maps an active-line count and a live RTP percent range to the
// base 1-in-N odds of forcing a win or bonus category on a spin.
type ChanceBand struct {
	LinesMin    int     `yaml:"lines_min"`
	LinesMax    int     `yaml:"lines_max"`
	PercentMin  float64 `yaml:"percent_min"`
	PercentMax  float64 `yaml:"percent_max"`
	SpinChance  int64   `yaml:"spin_chance"`
	BonusChance int64   `yaml:"bonus_chance"`
}

// GameConfig is the full immutable parameter set for one game. The engine is
// generic; every game ships as one of these plus its reel strip files.
type GameConfig struct {
	Name string `yaml:"name"`

	Reels int    `yaml:"reels"`
	Rows  int    `yaml:"rows"`
	Mode  string `yaml:"mode"`

	// Lines holds one row index per reel for each selectable payline.
	// Players bet on a prefix of this list. Unused in ways mode.
	Lines [][]int `yaml:"lines"`

	// Paytable maps a symbol to its payout per bet line indexed by match
	// count. Scatter payouts are per total bet instead.
	Paytable map[Symbol][]int64 `yaml:"paytable"`

	Wilds          []Symbol `yaml:"wilds"`
	Scatter        Symbol   `yaml:"scatter"`
	WildMultiplier int64    `yaml:"wild_multiplier"`

	// FreeSpins maps a scatter count to the number of free games awarded.
	FreeSpins          map[int]int `yaml:"free_spins"`
	FreeSpinMultiplier int64       `yaml:"free_spin_multiplier"`
	MinScatterReels    int         `yaml:"min_scatter_reels"`

	BetLevels    []int64 `yaml:"bet_levels"`
	Denomination int64   `yaml:"denomination"`

	// MaxWin caps a single spin payout in currency cents. Zero disables
	// the cap.
	MaxWin int64 `yaml:"max_win"`

	RetryCap int `yaml:"retry_cap"`

	// AvgBonusPayout is the expected free-game payout per bet unit, used
	// to veto bonus awards the bank cannot sustain.
	AvgBonusPayout int64 `yaml:"avg_bonus_payout"`

	ChanceBands []ChanceBand `yaml:"chance_bands"`

	ReelNames       []string `yaml:"reel_names"`
	BonusReelNames  []string `yaml:"bonus_reel_names"`
	StripsFile      string   `yaml:"strips_file"`
	BonusStripsFile string   `yaml:"bonus_strips_file"`

	strips      *StripSet
	bonusStrips *StripSet

	paying []Symbol
}

// LoadGameConfig reads one game definition plus its reel strip files from a
// data directory and validates the result.
func LoadGameConfig(path string) (*GameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read game config %s: %w", path, err)
	}

	var cfg GameConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	dir := filepath.Dir(path)
	if cfg.StripsFile != "" {
		cfg.strips, err = LoadStrips(filepath.Join(dir, cfg.StripsFile))
		if err != nil {
			return nil, err
		}
	}
	if cfg.BonusStripsFile != "" {
		cfg.bonusStrips, err = LoadStrips(filepath.Join(dir, cfg.BonusStripsFile))
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// LoadGameConfigs loads every *.yaml game definition in a directory.
func LoadGameConfigs(dir string) (map[string]*GameConfig, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read game data dir %s: %w", dir, err)
	}

	games := make(map[string]*GameConfig)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		cfg, err := LoadGameConfig(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if _, exists := games[cfg.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate game name %q", ErrInvalidConfig, cfg.Name)
		}
		games[cfg.Name] = cfg
	}
	return games, nil
}

// Validate rejects a malformed configuration before it can reach the spin
// path. Defaults are applied for optional tunables.
func (c *GameConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: game name required", ErrInvalidConfig)
	}
	if c.Reels <= 0 || c.Rows <= 0 {
		return fmt.Errorf("%w: reels and rows must be positive", ErrInvalidConfig)
	}
	if c.Mode != ModeLines && c.Mode != ModeWays {
		return fmt.Errorf("%w: unknown evaluation mode %q", ErrInvalidConfig, c.Mode)
	}
	if c.Mode == ModeLines {
		if len(c.Lines) == 0 {
			return fmt.Errorf("%w: lines mode requires payline definitions", ErrInvalidConfig)
		}
		for i, line := range c.Lines {
			if len(line) != c.Reels {
				return fmt.Errorf("%w: payline %d has %d entries, want %d",
					ErrInvalidConfig, i+1, len(line), c.Reels)
			}
			for _, row := range line {
				if row < 0 || row >= c.Rows {
					return fmt.Errorf("%w: payline %d row %d out of range",
						ErrInvalidConfig, i+1, row)
				}
			}
		}
	}
	if len(c.Paytable) == 0 {
		return fmt.Errorf("%w: paytable required", ErrInvalidConfig)
	}
	for sym, pays := range c.Paytable {
		if len(pays) != c.Reels+1 {
			return fmt.Errorf("%w: paytable entry %q has %d counts, want %d",
				ErrInvalidConfig, sym, len(pays), c.Reels+1)
		}
		for _, pay := range pays {
			if pay < 0 {
				return fmt.Errorf("%w: negative payout for %q", ErrInvalidConfig, sym)
			}
		}
	}
	for _, wild := range c.Wilds {
		if wild == c.Scatter {
			return fmt.Errorf("%w: symbol %q cannot be both wild and scatter",
				ErrInvalidConfig, wild)
		}
		// Wilds pay through substitution only; a paytable row for one is
		// dead data and hides a mismatch between math sheet and config.
		if _, ok := c.Paytable[wild]; ok {
			return fmt.Errorf("%w: wild symbol %q must not carry a paytable entry",
				ErrInvalidConfig, wild)
		}
	}
	if len(c.BetLevels) == 0 {
		return fmt.Errorf("%w: bet levels required", ErrInvalidConfig)
	}
	for i, bet := range c.BetLevels {
		if bet <= 0 {
			return fmt.Errorf("%w: bet level must be positive", ErrInvalidConfig)
		}
		if i > 0 && bet <= c.BetLevels[i-1] {
			return fmt.Errorf("%w: bet levels must be strictly increasing", ErrInvalidConfig)
		}
	}
	if c.Denomination <= 0 {
		c.Denomination = 1
	}
	if c.WildMultiplier <= 0 {
		c.WildMultiplier = 1
	}
	if c.FreeSpinMultiplier <= 0 {
		c.FreeSpinMultiplier = 1
	}
	if c.MinScatterReels <= 0 {
		c.MinScatterReels = 3
	}
	if c.RetryCap <= 0 {
		c.RetryCap = DefaultRetryCap
	}

	if len(c.ReelNames) != c.Reels {
		return fmt.Errorf("%w: %d reel names for %d reels", ErrInvalidConfig,
			len(c.ReelNames), c.Reels)
	}
	if c.strips == nil {
		return fmt.Errorf("%w: reel strips required", ErrInvalidConfig)
	}
	if err := c.strips.Validate(c.ReelNames, c.Rows); err != nil {
		return err
	}
	if c.bonusStrips != nil {
		names := c.BonusReelNames
		if len(names) == 0 {
			names = c.ReelNames
		}
		if err := c.bonusStrips.Validate(names, c.Rows); err != nil {
			return err
		}
	}

	c.paying = c.payingSymbols()
	return nil
}

// SetStrips installs reel strips directly, bypassing file loading. Used by
// tests and embedded game definitions.
func (c *GameConfig) SetStrips(base, bonus *StripSet) {
	c.strips = base
	c.bonusStrips = bonus
}

// Strips returns the strip set for the given play mode. Bonus mode falls
// back to the base strips when no dedicated bonus set is configured.
func (c *GameConfig) Strips(bonus bool) *StripSet {
	if bonus && c.bonusStrips != nil {
		return c.bonusStrips
	}
	return c.strips
}

// StripNames returns the reel names for the given play mode.
func (c *GameConfig) StripNames(bonus bool) []string {
	if bonus && c.bonusStrips != nil && len(c.BonusReelNames) > 0 {
		return c.BonusReelNames
	}
	return c.ReelNames
}

// IsWild reports whether the symbol substitutes for paying symbols.
func (c *GameConfig) IsWild(sym Symbol) bool {
	for _, wild := range c.Wilds {
		if sym == wild {
			return true
		}
	}
	return false
}

// Pay returns the paytable value for count matched symbols, 0 when the
// symbol or count pays nothing.
func (c *GameConfig) Pay(sym Symbol, count int) int64 {
	pays, ok := c.Paytable[sym]
	if !ok || count < 0 || count >= len(pays) {
		return 0
	}
	return pays[count]
}

// payingSymbols lists the line-paying symbols (everything except wilds and
// the scatter) in a stable order so evaluation is deterministic.
func (c *GameConfig) payingSymbols() []Symbol {
	syms := make([]Symbol, 0, len(c.Paytable))
	for sym := range c.Paytable {
		if sym == c.Scatter || c.IsWild(sym) {
			continue
		}
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i] < syms[j] })
	return syms
}

// PayingSymbols returns the stable paying-symbol order computed at load time.
func (c *GameConfig) PayingSymbols() []Symbol {
	if c.paying == nil {
		c.paying = c.payingSymbols()
	}
	return c.paying
}

// Chances resolves the base 1-in-N win and bonus odds for the given active
// line count and live RTP percent. Falls back to conservative defaults when
// no band matches.
func (c *GameConfig) Chances(lines int, percent float64) (spin, bonus int64) {
	for _, band := range c.ChanceBands {
		if lines < band.LinesMin || lines > band.LinesMax {
			continue
		}
		if percent < band.PercentMin || percent > band.PercentMax {
			continue
		}
		return band.SpinChance, band.BonusChance
	}
	return DefaultSpinChance, DefaultBonusChance
}

// ValidBet reports whether the per-line bet is one of the configured levels.
func (c *GameConfig) ValidBet(betPerLine int64) bool {
	for _, level := range c.BetLevels {
		if betPerLine == level {
			return true
		}
	}
	return false
}
