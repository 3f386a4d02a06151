package affinity

import (
	"fmt"
	"math"
)

const (
	// GiftRarityMultiplier is the base affinity per rarity point.
	GiftRarityMultiplier = 10
	// GiftFlatValue is the base affinity for gifts without a rarity.
	GiftFlatValue = 5
	// GiftVariance is the maximum relative perturbation of the base value.
	GiftVariance = 0.2
)

// Gift is an item handed to a character.
type Gift struct {
	ID     string `json:"id" yaml:"id"`
	Rarity int    `json:"rarity,omitempty" yaml:"rarity,omitempty"`
}

// BaseValue is the deterministic part of a gift's affinity.
func (g Gift) BaseValue() int {
	if g.Rarity > 0 {
		return g.Rarity * GiftRarityMultiplier
	}
	return GiftFlatValue
}

// GiftValue perturbs the base value by up to ±GiftVariance and floors it.
// roll must be in [0, 1).
func GiftValue(g Gift, roll float64) int {
	factor := 1 - GiftVariance + roll*2*GiftVariance
	return int(math.Floor(float64(g.BaseValue()) * factor))
}

// GiveGift rolls the gift's value and applies it through ChangeAffinity.
func (l *Ledger) GiveGift(id string, g Gift) (int, error) {
	if !l.Has(id) {
		return 0, fmt.Errorf("give gift %q to %q: %w", g.ID, id, ErrUnknownCharacter)
	}

	l.mu.Lock()
	roll := l.rng.Float64()
	l.mu.Unlock()

	value := GiftValue(g, roll)
	l.logger.Debug("Gift given", "character", id, "gift", g.ID, "value", value)
	return l.ChangeAffinity(id, value)
}
