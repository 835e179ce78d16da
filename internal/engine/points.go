// internal/engine/points.go
package engine

import "github.com/jason-s-yu/tresillo/internal/models"

// TrumpCardPoints is the bidding heuristic value of c if trump were named. It is
// only used to decide how strongly a synthetic player bids.
func TrumpCardPoints(c models.Card, trump models.Suit) int {
	if c.Suit == trump {
		switch c.Rank {
		case 1:
			return 9
		case 2:
			return 8
		case 3:
			return 7
		case 12:
			return 6
		case 11:
			return 5
		case 10:
			return 4
		case 7:
			return 3
		default:
			return 2
		}
	}
	if c.Rank == 12 {
		return 2
	}
	return 0
}

// EvalTrumpPointsExact sums TrumpCardPoints over hand.
func EvalTrumpPointsExact(hand []models.Card, trump models.Suit) int {
	total := 0
	for _, c := range hand {
		total += TrumpCardPoints(c, trump)
	}
	return total
}

// BestTrumpSuit returns the suit maximising EvalTrumpPointsExact over hand. Ties keep
// the earlier suit in models.Suits.
func BestTrumpSuit(hand []models.Card) (models.Suit, int) {
	best, bestPts := models.Oros, -1
	for _, s := range models.Suits {
		if p := EvalTrumpPointsExact(hand, s); p > bestPts {
			best, bestPts = s, p
		}
	}
	return best, bestPts
}
