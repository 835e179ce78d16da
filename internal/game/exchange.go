// internal/game/exchange.go
package game

import "github.com/jason-s-yu/tresillo/internal/models"

const defenderExchangeMax = 5

// exchangeMax is how many cards seat may swap with the talon under the current
// contract, before the talon size bound.
func (r *Room) exchangeMax(seat models.Seat) int {
	if seat != r.state.Ombre {
		return defenderExchangeMax
	}
	switch {
	case r.state.Contract.IsSolo():
		return 0
	case r.state.Contract.RequiresOros():
		return 6
	default:
		return 8
	}
}

// startExchange opens the exchange: the ombre first (unless playing solo), then
// the defenders clockwise from the ombre's left.
func (r *Room) startExchange() {
	if r.state.Contract.NoTrump() {
		r.startPlay(r.leftOf(r.state.Ombre))
		return
	}

	var order []models.Seat
	for _, s := range r.rotationFrom(r.state.Ombre) {
		if s == r.state.Ombre && r.state.Contract.IsSolo() {
			continue
		}
		order = append(order, s)
	}

	r.state.Phase = PhaseExchange
	r.state.Exchange = ExchangeState{
		Current:   order[0],
		Order:     order,
		TalonSize: len(r.talon),
		Completed: []models.Seat{},
	}
	r.state.Turn = order[0]
	r.publish()
	r.scheduleTurn()
}

// exchange discards the named cards from seat's hand and draws as many from the
// front of the talon. Every id must be in the hand; duplicates count once.
func (r *Room) exchange(seat models.Seat, discardIDs []string) error {
	if r.state.Phase != PhaseExchange {
		return ErrWrongPhase
	}
	if r.state.Turn != seat {
		return ErrNotYourTurn
	}

	hand := r.hands[seat]
	chosen := make(map[string]bool, len(discardIDs))
	for _, id := range discardIDs {
		if chosen[id] {
			continue
		}
		if indexOfCard(hand, id) < 0 {
			return ErrNotYourCard.because("card %s is not in your hand", id)
		}
		chosen[id] = true
	}
	if limit := min(r.exchangeMax(seat), len(r.talon)); len(chosen) > limit {
		return ErrExchangeLimit.because("at most %d cards", limit)
	}

	kept := make([]models.Card, 0, len(hand))
	for _, c := range hand {
		if chosen[c.ID] {
			r.discards = append(r.discards, c)
		} else {
			kept = append(kept, c)
		}
	}
	n := len(chosen)
	kept = append(kept, r.talon[:n]...)
	r.talon = r.talon[n:]
	r.hands[seat] = kept
	r.state.HandsCount[seat] = len(kept)

	ex := &r.state.Exchange
	ex.Completed = append(ex.Completed, seat)
	ex.TalonSize = len(r.talon)
	r.logAction(seat, "exchange", map[string]interface{}{"count": n})

	var next models.Seat
	for _, s := range ex.Order {
		if !containsSeat(ex.Completed, s) {
			next = s
			break
		}
	}
	if next != "" {
		ex.Current = next
		r.state.Turn = next
		r.publish()
		r.scheduleTurn()
		return nil
	}
	ex.Current = ""
	r.startPlay(r.leftOf(r.state.Ombre))
	return nil
}

func indexOfCard(cards []models.Card, id string) int {
	for i, c := range cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}
