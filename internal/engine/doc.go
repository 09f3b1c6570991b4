// Package engine implements the spin-outcome pipeline for reel games: reel
// strip storage, stop selection, line and ways evaluation, scatter features
// and the hold controller that steers the realized return toward a
// configured percentage. The engine is a pure library; it holds no session
// or wallet state and all randomness enters through the Source interface.
package engine
