// internal/engine/deck.go
package engine

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tresillo/internal/models"
)

// DeckSize is the number of cards in a Spanish deck with eights and nines removed.
const DeckSize = 40

// MakeDeck returns all 40 suit/rank combinations with fresh ids, shuffled in place
// with rng (Fisher-Yates). A nil rng falls back to the global source.
func MakeDeck(rng *rand.Rand) []models.Card {
	deck := make([]models.Card, 0, DeckSize)
	for _, s := range models.Suits {
		for _, r := range models.Ranks {
			deck = append(deck, models.Card{ID: uuid.NewString(), Suit: s, Rank: r})
		}
	}
	swap := func(i, j int) { deck[i], deck[j] = deck[j], deck[i] }
	if rng != nil {
		rng.Shuffle(len(deck), swap)
	} else {
		rand.Shuffle(len(deck), swap)
	}
	return deck
}
