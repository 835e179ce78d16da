// internal/models/card.go
package models

import "fmt"

// Suit is one of the four suits of the Spanish 40-card deck.
type Suit string

const (
	Oros    Suit = "oros"
	Copas   Suit = "copas"
	Espadas Suit = "espadas"
	Bastos  Suit = "bastos"
)

// Suits lists the suits in their canonical order. Bots iterate in this order when
// picking a preferred trump, so the order is part of the behaviour.
var Suits = []Suit{Oros, Copas, Espadas, Bastos}

// Ranks lists the ten ranks present in the deck (8 and 9 are stripped).
var Ranks = []int{1, 2, 3, 4, 5, 6, 7, 10, 11, 12}

// Valid reports whether s names one of the four suits.
func (s Suit) Valid() bool {
	switch s {
	case Oros, Copas, Espadas, Bastos:
		return true
	}
	return false
}

// Card is an immutable playing card. The JSON field names are kept short since
// full hands travel in every STATE message.
type Card struct {
	ID   string `json:"id"`
	Suit Suit   `json:"s"`
	Rank int    `json:"r"`
}

func (c Card) String() string {
	return fmt.Sprintf("%d of %s", c.Rank, c.Suit)
}
