// internal/engine/ranking.go
package engine

import (
	"errors"
	"fmt"

	"github.com/jason-s-yu/tresillo/internal/models"
)

var (
	ErrEmptyTrick    = errors.New("trick has no cards")
	ErrDuplicateCard = errors.New("trick contains the same card twice")
)

// NoTrump is the zero Suit, used for bola and contrabola.
const NoTrump models.Suit = ""

// Fixed strengths of the three matadors. Any other trump scores below 98.
const (
	spadilleStrength = 100
	manilleStrength  = 99
	bastoStrength    = 98
	redAceStrength   = 97
)

// Rank tables for non-matador trumps, keyed by rank.
var (
	blackTrumpTable = map[int]int{12: 90, 11: 89, 10: 88, 7: 87, 6: 86, 5: 85, 4: 84, 3: 83}
	redTrumpTable   = map[int]int{12: 90, 11: 89, 10: 88, 2: 87, 3: 86, 4: 85, 5: 84, 6: 83}
)

// Rank tables for cards following the led suit when it is not trump.
var (
	blackPlainTable = map[int]int{12: 10, 11: 9, 10: 8, 7: 7, 6: 6, 5: 5, 4: 4, 3: 3, 2: 2, 1: 1}
	redPlainTable   = map[int]int{12: 10, 11: 9, 10: 8, 1: 7, 2: 6, 3: 5, 4: 4, 5: 3, 6: 2, 7: 1}
)

// IsBlack reports whether s is espadas or bastos.
func IsBlack(s models.Suit) bool {
	return s == models.Espadas || s == models.Bastos
}

// IsSpadille reports whether c is the ace of espadas.
func IsSpadille(c models.Card) bool {
	return c.Suit == models.Espadas && c.Rank == 1
}

// IsBasto reports whether c is the ace of bastos.
func IsBasto(c models.Card) bool {
	return c.Suit == models.Bastos && c.Rank == 1
}

// IsManille reports whether c is the second matador for trump: the 2 of a black
// trump suit or the 7 of a red one.
func IsManille(trump models.Suit, c models.Card) bool {
	if trump == NoTrump || c.Suit != trump {
		return false
	}
	if IsBlack(trump) {
		return c.Rank == 2
	}
	return c.Rank == 7
}

// IsMatador reports whether c is spadille, manille or basto.
func IsMatador(trump models.Suit, c models.Card) bool {
	return IsSpadille(c) || IsManille(trump, c) || IsBasto(c)
}

// IsTrump reports whether c counts as trump. Without a trump suit nothing is trump,
// matadors included.
func IsTrump(trump models.Suit, c models.Card) bool {
	if trump == NoTrump {
		return false
	}
	return c.Suit == trump || IsMatador(trump, c)
}

// LegalPlays returns the cards of hand that may be played onto a trick whose first
// card is led (nil when leading). A trump lead must be answered with trump if any
// is held; otherwise the led suit must be followed if held. There is no obligation
// to win the trick. The result is non-empty whenever hand is.
func LegalPlays(trump models.Suit, hand []models.Card, led *models.Card) []models.Card {
	all := append([]models.Card(nil), hand...)
	if led == nil {
		return all
	}

	var must []models.Card
	if IsTrump(trump, *led) {
		for _, c := range hand {
			if IsTrump(trump, c) {
				must = append(must, c)
			}
		}
	} else {
		for _, c := range hand {
			if c.Suit == led.Suit {
				must = append(must, c)
			}
		}
	}
	if len(must) == 0 {
		return all
	}
	return must
}

// trumpStrength is the strength of c as a trump, or 0 when c is not one.
func trumpStrength(trump models.Suit, c models.Card) int {
	if trump == NoTrump {
		return 0
	}
	switch {
	case IsSpadille(c):
		return spadilleStrength
	case IsManille(trump, c):
		return manilleStrength
	case IsBasto(c):
		return bastoStrength
	case c.Suit != trump:
		return 0
	}
	if IsBlack(trump) {
		return blackTrumpTable[c.Rank]
	}
	if c.Rank == 1 {
		return redAceStrength
	}
	return redTrumpTable[c.Rank]
}

func plainStrength(c models.Card) int {
	if IsBlack(c.Suit) {
		return blackPlainTable[c.Rank]
	}
	return redPlainTable[c.Rank]
}

// CardStrength orders a card within a trick: trumps score above 1000, cards of the
// led suit between 100 and 110, everything else 0.
func CardStrength(trump, ledSuit models.Suit, c models.Card) int {
	if tv := trumpStrength(trump, c); tv > 0 {
		return 1000 + tv
	}
	if c.Suit == ledSuit {
		return 100 + plainStrength(c)
	}
	return 0
}

// TrickWinner returns the index, in play order, of the card that takes the trick.
// An empty trick or one holding the same card id twice is an error; with unique
// cards no two trumps or led-suit cards share a strength, so the first maximum is
// the only one.
func TrickWinner(trump, ledSuit models.Suit, played []models.Card) (int, error) {
	if len(played) == 0 {
		return -1, ErrEmptyTrick
	}
	seen := make(map[string]struct{}, len(played))
	best, idx := -1, 0
	for i, c := range played {
		if _, dup := seen[c.ID]; dup {
			return -1, fmt.Errorf("%w: %s", ErrDuplicateCard, c.ID)
		}
		seen[c.ID] = struct{}{}
		if v := CardStrength(trump, ledSuit, c); v > best {
			best, idx = v, i
		}
	}
	return idx, nil
}
