// internal/game/bot.go
package game

import (
	"github.com/jason-s-yu/tresillo/internal/engine"
	"github.com/jason-s-yu/tresillo/internal/models"
)

const contrabolaChance = 0.1

// actFor takes seat's turn with the synthetic policy. It runs for bots and for
// humans whose turn timed out, through the same entry points clients use.
func (r *Room) actFor(seat models.Seat) {
	if occ := r.connAt(seat); occ != nil && !occ.Synthetic() {
		r.log.Infof("turn timeout, acting for %s (%s)", occ.Handle, seat)
	}

	var err error
	switch r.state.Phase {
	case PhaseAuction:
		err = r.bid(seat, r.botBid(seat))
	case PhaseTrumpChoice:
		err = r.chooseTrump(seat, r.botTrump())
	case PhaseExchange:
		err = r.exchange(seat, r.botDiscards(seat))
	case PhasePlay:
		legal := engine.LegalPlays(r.state.Trump, r.hands[seat], r.ledCard())
		if len(legal) > 0 {
			err = r.play(seat, legal[0].ID)
		}
	}
	if err != nil {
		r.log.Errorf("synthetic action for %s in %s rejected: %v", seat, r.state.Phase, err)
	}
}

// botBidFor maps heuristic strength in the best suit to a bid tier. Red suits need
// one point more.
func botBidFor(suit models.Suit, pts int) models.Bid {
	threshold := 22
	if !engine.IsBlack(suit) {
		threshold = 23
	}
	oros := suit == models.Oros
	switch {
	case pts >= threshold+12:
		return models.BidBola
	case pts >= threshold+6:
		if oros {
			return models.BidSoloOros
		}
		return models.BidSolo
	case pts >= threshold+3:
		if oros {
			return models.BidOros
		}
		return models.BidVolteo
	case pts >= threshold:
		if oros {
			return models.BidOros
		}
		return models.BidEntrada
	}
	return models.BidPass
}

// botBid judges the hand as dealt, never the post-exchange one.
func (r *Room) botBid(seat models.Seat) models.Bid {
	hand := r.original[seat]
	if len(hand) == 0 {
		hand = r.hands[seat]
	}
	suit, pts := engine.BestTrumpSuit(hand)
	bid := botBidFor(suit, pts)

	if bid == models.BidPass && r.contrabolaOpen(seat) && r.rng.Float64() < contrabolaChance {
		return models.BidContrabola
	}
	if bid != models.BidPass && !bid.Beats(r.state.Auction.CurrentBid) {
		return models.BidPass
	}
	return bid
}

func (r *Room) botTrump() models.Suit {
	if r.state.Contract.RequiresOros() {
		return models.Oros
	}
	return models.Suits[r.rng.Intn(len(models.Suits))]
}

// botDiscards throws away up to two cards from the front of the hand.
func (r *Room) botDiscards(seat models.Seat) []string {
	n := min(r.exchangeMax(seat), len(r.talon), r.rng.Intn(3))
	ids := make([]string, 0, n)
	for _, c := range r.hands[seat][:n] {
		ids = append(ids, c.ID)
	}
	return ids
}
