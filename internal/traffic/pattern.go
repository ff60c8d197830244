// internal/traffic/pattern.go
package traffic

import (
	"fmt"
	"math/rand/v2"
)

// Pattern is the per-tick arrival model: with ArrivalChance one request
// arrives, and with BurstChance of those it becomes a surge of BurstSize.
type Pattern struct {
	ArrivalChance float64 `mapstructure:"arrival_chance"`
	BurstChance   float64 `mapstructure:"burst_chance"`
	BurstSize     int     `mapstructure:"burst_size"`
}

// DefaultPattern is a 30% chance of one request per tick and a 1% chance
// that it is a surge of five.
func DefaultPattern() Pattern {
	return Pattern{ArrivalChance: 0.30, BurstChance: 0.01, BurstSize: 5}
}

// Validate checks the probabilities are in range.
func (p Pattern) Validate() error {
	if p.ArrivalChance < 0 || p.ArrivalChance > 1 {
		return fmt.Errorf("arrival chance must be in [0,1], got %v", p.ArrivalChance)
	}
	if p.BurstChance < 0 || p.BurstChance > 1 {
		return fmt.Errorf("burst chance must be in [0,1], got %v", p.BurstChance)
	}
	if p.BurstSize < 1 {
		return fmt.Errorf("burst size must be at least 1, got %d", p.BurstSize)
	}
	return nil
}

// Arrivals draws how many requests arrive this tick and whether it is a surge.
func (p Pattern) Arrivals(rng *rand.Rand) (n int, surge bool) {
	if rng.Float64() >= p.ArrivalChance {
		return 0, false
	}
	if p.BurstSize > 1 && rng.Float64() < p.BurstChance {
		return p.BurstSize, true
	}
	return 1, false
}
