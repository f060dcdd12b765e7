package bot

import (
	"fmt"
	"math/rand"
	"time"
)

// NewBrain creates a strategy for the given difficulty tier. The rng drives
// the tier's randomized choices; nil seeds a time-based default.
func NewBrain(level Level, rng *rand.Rand) (Brain, error) {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	switch level {
	case LevelEasy:
		return &EasyBot{rng: rng}, nil
	case LevelMedium:
		return &MediumBot{rng: rng}, nil
	case LevelHard:
		return &HardBot{rng: rng}, nil
	default:
		return nil, fmt.Errorf("unknown bot level: %q", level)
	}
}
