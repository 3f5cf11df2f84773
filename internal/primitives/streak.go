package primitives

import "fmt"

// GhostStreakMax is the largest value a GhostStreak may hold: the maximum of
// a signed 32-bit database column, matching the source's column definition.
const GhostStreakMax = int32(1<<31 - 1)

// GhostStreak is a bounded non-negative counter of consecutive scan
// survivals, reset to zero on death.
type GhostStreak struct {
	n int32
}

// ZeroStreak is a fresh, never-survived streak.
var ZeroStreak = GhostStreak{}

// NewGhostStreak validates and constructs a streak value.
func NewGhostStreak(n int32) (GhostStreak, error) {
	if n < 0 {
		return GhostStreak{}, fmt.Errorf("ghost streak cannot be negative: %d", n)
	}
	if n > GhostStreakMax {
		return GhostStreak{}, fmt.Errorf("ghost streak exceeds max %d: %d", GhostStreakMax, n)
	}
	return GhostStreak{n: n}, nil
}

// Int32 returns the raw counter value.
func (g GhostStreak) Int32() int32 { return g.n }

// Incr returns the streak incremented by one, saturating at GhostStreakMax.
func (g GhostStreak) Incr() GhostStreak {
	if g.n >= GhostStreakMax {
		return g
	}
	return GhostStreak{n: g.n + 1}
}
