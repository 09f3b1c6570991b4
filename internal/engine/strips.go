package engine

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"
)

// StripSet holds the named reel strips for one game mode. Strips are loaded
// once at registration time and treated as immutable afterwards.
type StripSet struct {
	strips map[string][]Symbol

	// fallbackCount tracks how many times a window request could not be
	// served from real strip data. Any non-zero value is a configuration
	// error worth alerting on (GLI-19 section 3.3, game data integrity).
	fallbackCount atomic.Int64
}

// FallbackSymbol fills windows served for a missing or short strip. It pays
// nothing and never matches a wild or scatter.
const FallbackSymbol Symbol = "BLANK"

// ParseStrips reads reel strip definitions from flat text, one strip per
// line in "name=sym,sym,sym" form. Token whitespace is trimmed and empty
// tokens are dropped; lines without '=' or with an empty name are skipped.
func ParseStrips(data string) *StripSet {
	set := &StripSet{strips: make(map[string][]Symbol)}

	scanner := bufio.NewScanner(strings.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, csv, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var strip []Symbol
		for _, tok := range strings.Split(csv, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			strip = append(strip, Symbol(tok))
		}
		set.strips[name] = strip
	}
	return set
}

// LoadStrips reads reel strip definitions from a flat file.
func LoadStrips(path string) (*StripSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reel strips %s: %w", path, err)
	}
	return ParseStrips(string(data)), nil
}

// Names returns the strip names in sorted order.
func (s *StripSet) Names() []string {
	names := make([]string, 0, len(s.strips))
	for name := range s.strips {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Strip returns the raw strip for a reel name, or nil when absent.
func (s *StripSet) Strip(name string) []Symbol {
	return s.strips[name]
}

// Len returns the length of the named strip, 0 when absent.
func (s *StripSet) Len(name string) int {
	return len(s.strips[name])
}

// Window returns size consecutive symbols starting at offset. Strips do not
// wrap: the window must fit before the strip end. A missing strip, a short
// strip or an offset that would run past the end yields a sentinel window of
// FallbackSymbol and bumps the fallback counter; the caller keeps running on
// degraded data rather than crashing mid-session.
func (s *StripSet) Window(name string, offset, size int) []Symbol {
	strip := s.strips[name]
	if size <= 0 || offset < 0 || offset+size > len(strip) {
		s.fallbackCount.Add(1)
		window := make([]Symbol, size)
		for i := range window {
			window[i] = FallbackSymbol
		}
		return window
	}
	window := make([]Symbol, size)
	copy(window, strip[offset:offset+size])
	return window
}

// Fallbacks reports how many degraded windows have been served.
func (s *StripSet) Fallbacks() int64 {
	return s.fallbackCount.Load()
}

// Validate checks that every listed reel name resolves to a strip at least
// windowSize symbols long. Run at game registration so bad data is rejected
// before any spin can observe it.
func (s *StripSet) Validate(reelNames []string, windowSize int) error {
	for _, name := range reelNames {
		strip, ok := s.strips[name]
		if !ok {
			return fmt.Errorf("%w: reel strip %q not defined", ErrInvalidConfig, name)
		}
		if len(strip) < windowSize {
			return fmt.Errorf("%w: reel strip %q has %d symbols, window needs %d",
				ErrInvalidConfig, name, len(strip), windowSize)
		}
	}
	return nil
}
