// internal/game/trump.go
package game

import "github.com/jason-s-yu/tresillo/internal/models"

// chooseTrump names trump for the hand. Only the ombre may, and only for
// contracts that have a trump to name.
func (r *Room) chooseTrump(seat models.Seat, suit models.Suit) error {
	if r.state.Phase != PhaseTrumpChoice {
		return ErrWrongPhase
	}
	if r.state.Ombre != seat {
		return ErrNotOmbre
	}
	if r.state.Contract.NoTrump() {
		return ErrNoTrumpForContract
	}
	if !suit.Valid() {
		return ErrBadSuit.because("unknown suit %q", suit)
	}
	if r.state.Contract.RequiresOros() && suit != models.Oros {
		return ErrTrumpMustBeOros
	}

	r.state.Trump = suit
	r.logAction(seat, "choose_trump", map[string]interface{}{"suit": suit})
	r.event(EventTrumpSet, map[string]interface{}{"method": "choice", "suit": suit})
	r.startExchange()
	return nil
}
