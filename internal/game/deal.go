// internal/game/deal.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/tresillo/internal/engine"
	"github.com/jason-s-yu/tresillo/internal/models"
)

const (
	handSize      = 9
	dealRounds    = 3
	cardsPerRound = handSize / dealRounds
)

// newHand resets everything hand-scoped, deals nine cards to each active seat in
// three rounds of three, leaves the rest as the talon and opens the auction.
func (r *Room) newHand() {
	r.stopTimer()
	if r.state.Mode == models.ModeQuadrille && r.dealt {
		r.restIndex = (r.restIndex + 1) % len(models.Seats)
	}
	r.dealt = true

	r.state.Phase = PhaseDealing
	r.state.Contract = ""
	r.state.Ombre = ""
	r.state.Trump = ""
	r.state.Turn = ""
	r.state.Resting = r.restSeat()
	r.ensureFullSeats()

	r.hands = make(map[models.Seat][]models.Card)
	r.original = make(map[models.Seat][]models.Card)
	r.taken = make(map[models.Seat][]models.Card)
	r.talon = nil
	r.discards = nil
	r.state.Table = []models.Card{}
	r.state.PlayOrder = []models.Seat{}
	r.state.Tricks = seatCounter()
	r.state.HandsCount = seatCounter()
	r.handID = uuid.New()
	r.actionIndex = 0

	active := r.activeSeats()
	deck := engine.MakeDeck(r.rng)
	for round := 0; round < dealRounds; round++ {
		for _, s := range active {
			for i := 0; i < cardsPerRound; i++ {
				top := deck[len(deck)-1]
				deck = deck[:len(deck)-1]
				r.hands[s] = append(r.hands[s], top)
			}
		}
	}
	for _, s := range active {
		r.original[s] = append([]models.Card{}, r.hands[s]...)
		r.state.HandsCount[s] = len(r.hands[s])
	}
	r.talon = deck

	order := r.auctionOrder()
	r.state.Auction = AuctionState{
		CurrentBid: models.BidPass,
		Passed:     []models.Seat{},
		Order:      order,
	}
	r.state.Exchange = ExchangeState{
		Order:     []models.Seat{},
		TalonSize: len(r.talon),
		Completed: []models.Seat{},
	}
	r.state.Phase = PhaseAuction
	r.state.Turn = order[0]

	r.log.Debugf("hand %d dealt, resting %s, talon %d", r.state.HandNo, r.state.Resting, len(r.talon))
	r.publish()
	r.scheduleTurn()
}
