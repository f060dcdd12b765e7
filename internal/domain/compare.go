package domain

// fiveTier orders the five-card combo kinds by strength. Returns -1 for
// kinds that are not five-card shapes.
func fiveTier(k ComboKind) int {
	switch k {
	case Straight:
		return 0
	case Flush:
		return 1
	case FullHouse:
		return 2
	case FourKind:
		return 3
	case StraightFlush:
		return 4
	default:
		return -1
	}
}

// Beats reports whether next beats prev. It is defined only for combos of
// matching arity: mismatched arity or invalid combos never beat. Five-card
// combos compare across tiers (Straight < Flush < FullHouse < FourKind <
// StraightFlush); within a tier, and for all 1/2/3-card shapes, the combos'
// defining high cards decide under the total card order.
func Beats(prev, next Combo) bool {
	if prev.Kind == Invalid || next.Kind == Invalid {
		return false
	}
	if len(prev.Cards) != len(next.Cards) {
		return false
	}

	if len(next.Cards) == 5 {
		prevTier, nextTier := fiveTier(prev.Kind), fiveTier(next.Kind)
		if nextTier != prevTier {
			return nextTier > prevTier
		}
		return next.High.Beats(prev.High)
	}

	if next.Kind != prev.Kind {
		return false
	}
	return next.High.Beats(prev.High)
}
