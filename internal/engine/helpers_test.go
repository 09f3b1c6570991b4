package engine

import "testing"

// testStrips builds a five-reel strip set with scatters reachable on
// interior rows of every reel.
func testStrips() *StripSet {
	return ParseStrips(`
reel1=CHERRY,BELL,TEN,WILD,STAR,TEN,BELL,CHERRY,TEN,BELL,TEN,CHERRY,BELL,TEN,BELL,TEN,CHERRY,BELL,TEN,BELL
reel2=BELL,TEN,CHERRY,STAR,TEN,BELL,TEN,WILD,BELL,TEN,CHERRY,TEN,BELL,TEN,BELL,CHERRY,TEN,BELL,TEN,BELL
reel3=TEN,CHERRY,BELL,TEN,STAR,BELL,TEN,CHERRY,WILD,TEN,BELL,TEN,CHERRY,BELL,TEN,BELL,TEN,BELL,CHERRY,TEN
reel4=CHERRY,TEN,BELL,STAR,TEN,BELL,CHERRY,TEN,WILD,BELL,TEN,CHERRY,TEN,BELL,TEN,BELL,TEN,CHERRY,BELL,TEN
reel5=BELL,CHERRY,TEN,BELL,STAR,TEN,BELL,TEN,CHERRY,WILD,TEN,BELL,TEN,CHERRY,BELL,TEN,BELL,TEN,BELL,TEN
`)
}

// testConfig returns a validated five-reel ten-line game used across the
// engine tests.
func testConfig(t *testing.T) *GameConfig {
	t.Helper()

	cfg := &GameConfig{
		Name:  "test-lines",
		Reels: 5,
		Rows:  3,
		Mode:  ModeLines,
		Lines: [][]int{
			{1, 1, 1, 1, 1},
			{0, 0, 0, 0, 0},
			{2, 2, 2, 2, 2},
			{0, 1, 2, 1, 0},
			{2, 1, 0, 1, 2},
			{0, 0, 1, 0, 0},
			{2, 2, 1, 2, 2},
			{1, 0, 0, 0, 1},
			{1, 2, 2, 2, 1},
			{1, 0, 1, 0, 1},
		},
		Paytable: map[Symbol][]int64{
			"CHERRY": {0, 0, 0, 40, 400, 1000},
			"BELL":   {0, 0, 5, 20, 100, 500},
			"TEN":    {0, 0, 0, 5, 20, 100},
			"STAR":   {0, 0, 2, 5, 20, 100},
		},
		Wilds:              []Symbol{"WILD"},
		Scatter:            "STAR",
		WildMultiplier:     2,
		FreeSpins:          map[int]int{3: 10, 4: 15, 5: 20},
		FreeSpinMultiplier: 2,
		MinScatterReels:    3,
		BetLevels:          []int64{1, 2, 5, 10, 20, 50},
		Denomination:       1,
		AvgBonusPayout:     20,
		ReelNames:          []string{"reel1", "reel2", "reel3", "reel4", "reel5"},
	}
	cfg.SetStrips(testStrips(), nil)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Test config failed validation: %v", err)
	}
	return cfg
}

// gridOf builds a 5x3 grid from rows listed top to bottom.
func gridOf(rows ...[5]Symbol) Grid {
	grid := make(Grid, 5)
	for reel := 0; reel < 5; reel++ {
		grid[reel] = make([]Symbol, len(rows))
		for row := range rows {
			grid[reel][row] = rows[row][reel]
		}
	}
	return grid
}

// stubSource returns queued values for GenerateIntRange and defers
// everything else to a seeded source. Used to script control decisions.
type stubSource struct {
	ranges []int64
	seeded *SeededSource
}

func newStubSource(seed int64, ranges ...int64) *stubSource {
	return &stubSource{ranges: ranges, seeded: NewSeeded(seed)}
}

func (s *stubSource) GenerateInt(max int64) (int64, error) {
	return s.seeded.GenerateInt(max)
}

func (s *stubSource) GenerateIntRange(min, max int64) (int64, error) {
	if len(s.ranges) == 0 {
		return s.seeded.GenerateIntRange(min, max)
	}
	v := s.ranges[0]
	s.ranges = s.ranges[1:]
	if v < min {
		v = min
	}
	if v > max {
		v = max
	}
	return v, nil
}

func (s *stubSource) Shuffle(slice []int) error {
	return s.seeded.Shuffle(slice)
}
