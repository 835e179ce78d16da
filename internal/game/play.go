// internal/game/play.go
package game

import (
	"fmt"

	"github.com/jason-s-yu/tresillo/internal/engine"
	"github.com/jason-s-yu/tresillo/internal/models"
)

func (r *Room) startPlay(leader models.Seat) {
	r.state.Phase = PhasePlay
	r.state.Turn = leader
	r.state.Table = []models.Card{}
	r.state.PlayOrder = []models.Seat{}
	r.publish()
	r.scheduleTurn()
}

// ledCard is the first card of the current trick, or nil when leading.
func (r *Room) ledCard() *models.Card {
	if len(r.state.Table) == 0 {
		return nil
	}
	led := r.state.Table[0]
	return &led
}

// play puts cardID from seat's hand on the table. A full trick goes to its
// winner, who leads the next one.
func (r *Room) play(seat models.Seat, cardID string) error {
	if r.state.Phase != PhasePlay {
		return ErrWrongPhase
	}
	if r.state.Turn != seat {
		return ErrNotYourTurn
	}
	hand := r.hands[seat]
	idx := indexOfCard(hand, cardID)
	if idx < 0 {
		return ErrNotYourCard
	}
	led := r.ledCard()
	if indexOfCard(engine.LegalPlays(r.state.Trump, hand, led), cardID) < 0 {
		if engine.IsTrump(r.state.Trump, *led) {
			return ErrIllegalPlay.because("must play trump")
		}
		return ErrIllegalPlay.because("must follow %s", led.Suit)
	}

	card := hand[idx]
	r.hands[seat] = append(hand[:idx:idx], hand[idx+1:]...)
	r.state.HandsCount[seat] = len(r.hands[seat])
	r.state.Table = append(r.state.Table, card)
	r.state.PlayOrder = append(r.state.PlayOrder, seat)
	r.logAction(seat, "play", map[string]interface{}{"card": card})

	if len(r.state.Table) < len(r.activeSeats()) {
		r.state.Turn = r.leftOf(seat)
		r.publish()
		r.scheduleTurn()
		return nil
	}

	trick := r.state.Table
	winIdx, err := engine.TrickWinner(r.state.Trump, trick[0].Suit, trick)
	if err != nil {
		return fmt.Errorf("resolve trick: %w", err)
	}
	winner := r.state.PlayOrder[winIdx]
	r.state.Tricks[winner]++
	r.taken[winner] = append(r.taken[winner], trick...)
	r.event(EventTrickTaken, map[string]interface{}{"winner": winner, "cards": trick})

	r.state.Table = []models.Card{}
	r.state.PlayOrder = []models.Seat{}
	r.state.Turn = winner

	if r.handEmpty() {
		r.publish()
		r.finishHand()
		return nil
	}
	r.publish()
	r.scheduleTurn()
	return nil
}

func (r *Room) handEmpty() bool {
	for _, s := range r.activeSeats() {
		if len(r.hands[s]) > 0 {
			return false
		}
	}
	return true
}
