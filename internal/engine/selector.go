package engine

// Selector picks reel stop offsets for a spin attempt.
type Selector struct {
	rand Source
}

// NewSelector creates a stop selector backed by the given random source.
func NewSelector(rand Source) *Selector {
	return &Selector{rand: rand}
}

// Stops draws one stop offset per reel. Strips do not wrap: each offset is
// drawn uniformly from the positions that leave a full window before the
// strip end. For the none and win categories every such offset is equally
// likely. For the bonus category at least MinScatterReels reels are
// re-steered onto windows holding a scatter away from the window edges, so
// a triggered feature lands visibly on the grid instead of depending on the
// retry loop alone.
func (s *Selector) Stops(cfg *GameConfig, category WinCategory, bonusMode bool) ([]int, error) {
	names := cfg.StripNames(bonusMode)
	strips := cfg.Strips(bonusMode)

	stops := make([]int, len(names))
	for i, name := range names {
		span := strips.Len(name) - cfg.Rows + 1
		if span <= 0 {
			// Window() serves the sentinel for this reel; keep offset 0.
			continue
		}
		stop, err := s.rand.GenerateInt(int64(span))
		if err != nil {
			return nil, err
		}
		stops[i] = int(stop)
	}
	if category != CategoryBonus {
		return stops, nil
	}

	order := make([]int, len(names))
	for i := range order {
		order[i] = i
	}
	if err := s.rand.Shuffle(order); err != nil {
		return nil, err
	}
	need := cfg.MinScatterReels
	if need > len(names) {
		need = len(names)
	}
	for _, reel := range order[:need] {
		stop, err := s.scatterStop(cfg, strips, names[reel])
		if err != nil {
			return nil, err
		}
		stops[reel] = stop
	}
	return stops, nil
}

// scatterStop returns an offset whose window shows the scatter on an
// interior row. All qualifying offsets are collected and one is drawn
// uniformly; a strip with no qualifying position falls back to the middle
// of the non-wrapping range so the draw still terminates with a full window.
func (s *Selector) scatterStop(cfg *GameConfig, strips *StripSet, name string) (int, error) {
	strip := strips.Strip(name)
	if len(strip) == 0 {
		return 0, nil
	}

	rowLo, rowHi := 1, cfg.Rows-1
	if cfg.Rows < 3 {
		rowLo, rowHi = 0, cfg.Rows
	}

	var candidates []int
	for offset := 0; offset+cfg.Rows <= len(strip); offset++ {
		for row := rowLo; row < rowHi; row++ {
			if strip[offset+row] == cfg.Scatter {
				candidates = append(candidates, offset)
				break
			}
		}
	}
	if len(candidates) == 0 {
		mid := (len(strip) - cfg.Rows) / 2
		if mid < 0 {
			mid = 0
		}
		return mid, nil
	}

	pick, err := s.rand.GenerateInt(int64(len(candidates)))
	if err != nil {
		return 0, err
	}
	return candidates[pick], nil
}
