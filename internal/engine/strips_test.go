package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseStrips(t *testing.T) {
	t.Run("ParsesNamedStrips", func(t *testing.T) {
		set := ParseStrips("reel1=A,B,C\nreel2=D,E,F,G\n")

		if got := set.Len("reel1"); got != 3 {
			t.Errorf("Expected reel1 length 3, got %d", got)
		}
		if got := set.Len("reel2"); got != 4 {
			t.Errorf("Expected reel2 length 4, got %d", got)
		}
		if sym := set.Strip("reel1")[1]; sym != "B" {
			t.Errorf("Expected B at reel1[1], got %s", sym)
		}
	})

	t.Run("TrimsTokensAndDropsEmpties", func(t *testing.T) {
		set := ParseStrips("reel1= A , , B ,C, \n")

		strip := set.Strip("reel1")
		if len(strip) != 3 {
			t.Fatalf("Expected 3 symbols, got %d: %v", len(strip), strip)
		}
		for i, want := range []Symbol{"A", "B", "C"} {
			if strip[i] != want {
				t.Errorf("Position %d: expected %s, got %s", i, want, strip[i])
			}
		}
	})

	t.Run("SkipsMalformedLines", func(t *testing.T) {
		set := ParseStrips("no separator here\n=A,B,C\n# comment\n\nreel1=A,B\n")

		if len(set.Names()) != 1 {
			t.Errorf("Expected only reel1, got %v", set.Names())
		}
	})
}

func TestLoadStrips(t *testing.T) {
	t.Run("LoadsFromFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reels.txt")
		if err := os.WriteFile(path, []byte("reel1=A,B,C\n"), 0o644); err != nil {
			t.Fatalf("Failed to write fixture: %v", err)
		}

		set, err := LoadStrips(path)
		if err != nil {
			t.Fatalf("Failed to load strips: %v", err)
		}
		if set.Len("reel1") != 3 {
			t.Errorf("Expected 3 symbols, got %d", set.Len("reel1"))
		}
	})

	t.Run("FailsForMissingFile", func(t *testing.T) {
		if _, err := LoadStrips(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
			t.Error("Expected error for missing file")
		}
	})
}

func TestWindow(t *testing.T) {
	set := ParseStrips("reel1=A,B,C,D,E\n")

	t.Run("ReturnsConsecutiveSymbols", func(t *testing.T) {
		window := set.Window("reel1", 1, 3)
		for i, want := range []Symbol{"B", "C", "D"} {
			if window[i] != want {
				t.Errorf("Position %d: expected %s, got %s", i, want, window[i])
			}
		}
	})

	t.Run("ServesLastFullWindow", func(t *testing.T) {
		window := set.Window("reel1", 2, 3)
		for i, want := range []Symbol{"C", "D", "E"} {
			if window[i] != want {
				t.Errorf("Position %d: expected %s, got %s", i, want, window[i])
			}
		}
	})

	t.Run("NeverWrapsPastStripEnd", func(t *testing.T) {
		set := ParseStrips("reel1=A,B,C,D,E\n")

		window := set.Window("reel1", 4, 3)
		for i, sym := range window {
			if sym != FallbackSymbol {
				t.Errorf("Position %d: expected sentinel, got %s", i, sym)
			}
		}
		if set.Fallbacks() != 1 {
			t.Errorf("Expected 1 fallback recorded, got %d", set.Fallbacks())
		}
	})

	t.Run("ServesSentinelForMissingStrip", func(t *testing.T) {
		set := ParseStrips("reel1=A,B,C\n")

		window := set.Window("reel9", 0, 3)
		for i, sym := range window {
			if sym != FallbackSymbol {
				t.Errorf("Position %d: expected sentinel, got %s", i, sym)
			}
		}
		if set.Fallbacks() != 1 {
			t.Errorf("Expected 1 fallback recorded, got %d", set.Fallbacks())
		}
	})

	t.Run("ServesSentinelForShortStrip", func(t *testing.T) {
		set := ParseStrips("reel1=A,B,C\n")

		window := set.Window("reel1", 0, 4)
		if len(window) != 4 {
			t.Fatalf("Expected window of 4, got %d", len(window))
		}
		for _, sym := range window {
			if sym != FallbackSymbol {
				t.Errorf("Expected sentinel symbols, got %v", window)
			}
		}
		if set.Fallbacks() != 1 {
			t.Errorf("Expected 1 fallback recorded, got %d", set.Fallbacks())
		}
	})
}

func TestStripValidate(t *testing.T) {
	set := ParseStrips("reel1=A,B,C\nreel2=A,B\n")

	t.Run("AcceptsSufficientStrips", func(t *testing.T) {
		if err := set.Validate([]string{"reel1"}, 3); err != nil {
			t.Errorf("Unexpected validation error: %v", err)
		}
	})

	t.Run("RejectsMissingStrip", func(t *testing.T) {
		err := set.Validate([]string{"reel1", "reel9"}, 3)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("RejectsShortStrip", func(t *testing.T) {
		err := set.Validate([]string{"reel2"}, 3)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})
}
