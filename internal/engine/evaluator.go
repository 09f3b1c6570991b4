package engine

// Grid is the visible symbol window, indexed [reel][row].
type Grid [][]Symbol

// WinLine describes one winning combination on the grid. Payout is in
// denomination units with all multipliers already applied.
type WinLine struct {
	Line      int      `json:"line"`
	Symbol    Symbol   `json:"symbol"`
	Count     int      `json:"count"`
	Ways      int64    `json:"ways,omitempty"`
	Payout    int64    `json:"payout"`
	Positions [][2]int `json:"positions"`
	Wild      bool     `json:"wild"`
}

// BuildGrid materializes the visible window from reel stops.
func BuildGrid(cfg *GameConfig, stops []int, bonusMode bool) Grid {
	strips := cfg.Strips(bonusMode)
	names := cfg.StripNames(bonusMode)

	grid := make(Grid, len(names))
	for i, name := range names {
		grid[i] = strips.Window(name, stops[i], cfg.Rows)
	}
	return grid
}

// Evaluate scores the grid: line or ways wins per the game mode plus the
// grid-wide scatter payout. betPerLine and the returned total are in
// denomination units; multiplier is the free-game multiplier (1 for paid
// spins).
func Evaluate(cfg *GameConfig, grid Grid, betPerLine int64, lines int, multiplier int64) ([]WinLine, int64) {
	var wins []WinLine
	if cfg.Mode == ModeWays {
		wins = evaluateWays(cfg, grid, betPerLine, multiplier)
	} else {
		wins = evaluateLines(cfg, grid, betPerLine, lines, multiplier)
	}

	if scatter := scatterWin(cfg, grid, betPerLine*int64(lines), multiplier); scatter != nil {
		wins = append(wins, *scatter)
	}

	var total int64
	for _, win := range wins {
		total += win.Payout
	}
	return wins, total
}

// evaluateLines scores each active payline left to right. Wilds substitute
// for any paying symbol; every paying symbol is tried as the line candidate
// and the best payout kept, with the first candidate winning ties so the
// result is deterministic for a given grid.
func evaluateLines(cfg *GameConfig, grid Grid, betPerLine int64, lines int, multiplier int64) []WinLine {
	if lines > len(cfg.Lines) {
		lines = len(cfg.Lines)
	}

	var wins []WinLine
	for li := 0; li < lines; li++ {
		line := cfg.Lines[li]
		var best *WinLine

		for _, cand := range cfg.PayingSymbols() {
			count := 0
			wildUsed := false
			for reel := 0; reel < cfg.Reels; reel++ {
				sym := grid[reel][line[reel]]
				if sym != cand && !cfg.IsWild(sym) {
					break
				}
				if cfg.IsWild(sym) {
					wildUsed = true
				}
				count++
			}

			pay := cfg.Pay(cand, count)
			if pay == 0 {
				continue
			}
			payout := pay * betPerLine
			if wildUsed {
				payout *= cfg.WildMultiplier
			}
			payout *= multiplier

			if best == nil || payout > best.Payout {
				positions := make([][2]int, count)
				for reel := 0; reel < count; reel++ {
					positions[reel] = [2]int{reel, line[reel]}
				}
				best = &WinLine{
					Line:      li + 1,
					Symbol:    cand,
					Count:     count,
					Payout:    payout,
					Positions: positions,
					Wild:      wildUsed,
				}
			}
		}

		if best != nil {
			wins = append(wins, *best)
		}
	}
	return wins
}

// evaluateWays scores all-ways wins: a paying symbol wins when it (or a
// wild) appears on every reel of a contiguous run starting at reel one, and
// the number of ways is the product of the per-reel match counts.
func evaluateWays(cfg *GameConfig, grid Grid, betPerLine int64, multiplier int64) []WinLine {
	var wins []WinLine
	for _, cand := range cfg.PayingSymbols() {
		ways := int64(1)
		count := 0
		wildUsed := false
		var positions [][2]int

		for reel := 0; reel < cfg.Reels; reel++ {
			matches := 0
			for row := 0; row < cfg.Rows; row++ {
				sym := grid[reel][row]
				if sym != cand && !cfg.IsWild(sym) {
					continue
				}
				if cfg.IsWild(sym) {
					wildUsed = true
				}
				matches++
				positions = append(positions, [2]int{reel, row})
			}
			if matches == 0 {
				break
			}
			ways *= int64(matches)
			count++
		}

		pay := cfg.Pay(cand, count)
		if pay == 0 {
			continue
		}
		payout := pay * betPerLine * ways
		if wildUsed {
			payout *= cfg.WildMultiplier
		}
		payout *= multiplier

		wins = append(wins, WinLine{
			Line:      len(wins) + 1,
			Symbol:    cand,
			Count:     count,
			Ways:      ways,
			Payout:    payout,
			Positions: positions,
			Wild:      wildUsed,
		})
	}
	return wins
}
