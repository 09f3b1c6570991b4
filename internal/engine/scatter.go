package engine

// ScatterCount counts scatters across the whole grid and returns their
// positions. Scatters pay anywhere; they are never substituted by wilds.
func ScatterCount(cfg *GameConfig, grid Grid) (int, [][2]int) {
	if cfg.Scatter == "" {
		return 0, nil
	}
	var positions [][2]int
	for reel := range grid {
		for row, sym := range grid[reel] {
			if sym == cfg.Scatter {
				positions = append(positions, [2]int{reel, row})
			}
		}
	}
	return len(positions), positions
}

// scatterWin builds the scatter pay entry, if any. Scatter pays are staked
// on the total bet rather than the line bet, per the paytable convention.
func scatterWin(cfg *GameConfig, grid Grid, totalBet, multiplier int64) *WinLine {
	count, positions := ScatterCount(cfg, grid)
	if count == 0 {
		return nil
	}
	pay := cfg.Pay(cfg.Scatter, count)
	if pay == 0 {
		return nil
	}
	return &WinLine{
		Line:      0,
		Symbol:    cfg.Scatter,
		Count:     count,
		Payout:    pay * totalBet * multiplier,
		Positions: positions,
	}
}

// FreeSpinAward resolves the free games awarded for a scatter count: the
// largest configured count not exceeding the observed one. Zero means no
// feature trigger.
func FreeSpinAward(cfg *GameConfig, scatters int) int {
	best := 0
	award := 0
	for count, spins := range cfg.FreeSpins {
		if count <= scatters && count > best {
			best = count
			award = spins
		}
	}
	return award
}
