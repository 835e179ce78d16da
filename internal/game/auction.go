// internal/game/auction.go
package game

import (
	"github.com/jason-s-yu/tresillo/internal/models"
)

// bid applies seat's auction token. Each bid must beat the standing one, except
// contrabola, which only the last seat may call and only when everyone before it
// passed and nobody bid.
func (r *Room) bid(seat models.Seat, value models.Bid) error {
	if r.state.Phase != PhaseAuction {
		return ErrWrongPhase
	}
	if r.state.Turn != seat {
		return ErrNotYourTurn
	}
	if !value.Valid() {
		return ErrBadBid.because("unknown bid %q", value)
	}
	a := &r.state.Auction
	if containsSeat(a.Passed, seat) {
		return ErrAlreadyPassed
	}

	switch {
	case value == models.BidContrabola:
		if !r.contrabolaOpen(seat) {
			return ErrBadBid.because("contrabola is only open to the last seat after everyone else passed")
		}
	case value != models.BidPass && !value.Beats(a.CurrentBid):
		return ErrBadBid.because("must beat %s", a.CurrentBid)
	}

	if value == models.BidPass {
		a.Passed = append(a.Passed, seat)
	} else {
		a.CurrentBid = value
		a.CurrentBidder = seat
	}
	r.logAction(seat, "bid", map[string]interface{}{"value": value})

	alive := r.unpassed()
	if len(alive) == 0 {
		r.passOut()
		return nil
	}
	if len(alive) == 1 && a.CurrentBidder != "" && alive[0] == a.CurrentBidder {
		r.resolveAuction()
		return nil
	}

	r.state.Turn = r.nextBidder(seat)
	r.publish()
	r.scheduleTurn()
	return nil
}

// contrabolaOpen reports whether seat may call contrabola now.
func (r *Room) contrabolaOpen(seat models.Seat) bool {
	a := r.state.Auction
	allPassed := a.CurrentBid == models.BidPass && len(a.Passed) == len(a.Order)-1
	last := len(a.Order) > 0 && a.Order[len(a.Order)-1] == seat
	return allPassed && last
}

func (r *Room) unpassed() []models.Seat {
	var alive []models.Seat
	for _, s := range r.state.Auction.Order {
		if !containsSeat(r.state.Auction.Passed, s) {
			alive = append(alive, s)
		}
	}
	return alive
}

// nextBidder is the first seat after seat in the auction order that has not passed.
func (r *Room) nextBidder(seat models.Seat) models.Seat {
	order := r.state.Auction.Order
	idx := 0
	for i, s := range order {
		if s == seat {
			idx = i
			break
		}
	}
	for k := 1; k <= len(order); k++ {
		cand := order[(idx+k)%len(order)]
		if !containsSeat(r.state.Auction.Passed, cand) {
			return cand
		}
	}
	return seat
}

// resolveAuction makes the last bidder ombre and moves to trump choice, or
// straight to exchange (volteo) or play (bola, contrabola).
func (r *Room) resolveAuction() {
	a := r.state.Auction
	ombre := a.CurrentBidder
	r.state.Ombre = ombre
	r.state.Contract = a.CurrentBid.Contract()
	r.event(EventAuctionWin, map[string]interface{}{
		"ombre":    ombre,
		"bid":      a.CurrentBid,
		"contract": r.state.Contract,
	})
	r.log.Debugf("%s wins the auction with %s", ombre, a.CurrentBid)

	switch {
	case a.CurrentBid == models.BidVolteo:
		top := r.talon[0]
		r.state.Trump = top.Suit
		r.event(EventTrumpSet, map[string]interface{}{"method": "volteo", "suit": top.Suit, "card": top})
		r.startExchange()
	case r.state.Contract.NoTrump():
		r.startPlay(r.leftOf(ombre))
	default:
		r.state.Phase = PhaseTrumpChoice
		r.state.Turn = ombre
		r.publish()
		r.scheduleTurn()
	}
}

// passOut handles an auction where every seat passed: penetro if enabled in
// quadrille, else the spadille holder is forced to play entrada, else a redeal.
func (r *Room) passOut() {
	if r.state.Mode == models.ModeQuadrille && r.rules.PenetroEnabled {
		r.startPenetro()
		return
	}
	if r.rules.EspadaObligatoria {
		if holder := r.spadilleHolder(); holder != "" {
			r.state.Ombre = holder
			r.state.Contract = models.ContractEntrada
			r.state.Phase = PhaseTrumpChoice
			r.state.Turn = holder
			r.event(EventEspadaObligatoria, map[string]interface{}{"ombre": holder})
			r.publish()
			r.scheduleTurn()
			return
		}
	}
	r.event(EventAuctionPassOut, map[string]interface{}{})
	r.newHand()
}

func (r *Room) spadilleHolder() models.Seat {
	for _, s := range r.activeSeats() {
		for _, c := range r.hands[s] {
			if c.Suit == models.Espadas && c.Rank == 1 {
				return s
			}
		}
	}
	return ""
}

// startPenetro reactivates the resting seat, hands it up to nine talon cards and
// starts play with all four seats.
func (r *Room) startPenetro() {
	rest := r.state.Resting
	n := min(handSize, len(r.talon))
	r.hands[rest] = append(r.hands[rest], r.talon[:n]...)
	r.talon = r.talon[n:]
	r.state.HandsCount[rest] = len(r.hands[rest])
	r.state.Exchange.TalonSize = len(r.talon)
	r.state.Contract = models.ContractPenetro
	r.ensureFullSeats()
	r.event(EventPenetroStart, map[string]interface{}{"restingPlayer": rest})
	r.startPlay(r.leftOf(models.SeatYou))
}
