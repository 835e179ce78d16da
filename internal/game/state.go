// internal/game/state.go
package game

import "github.com/jason-s-yu/tresillo/internal/models"

// Phase is the step of the hand the room is in.
type Phase string

const (
	PhaseLobby       Phase = "lobby"
	PhaseDealing     Phase = "dealing"
	PhaseAuction     Phase = "auction"
	PhaseTrumpChoice Phase = "trump_choice"
	PhaseExchange    Phase = "exchange"
	PhasePlay        Phase = "play"
	PhaseScoring     Phase = "scoring"
	PhaseEnd         Phase = "end"
)

// awaitsTurn reports whether some seat is expected to act in this phase.
func (p Phase) awaitsTurn() bool {
	switch p {
	case PhaseAuction, PhaseTrumpChoice, PhaseExchange, PhasePlay:
		return true
	}
	return false
}

// AuctionState tracks the bidding of the current hand.
type AuctionState struct {
	CurrentBid    models.Bid    `json:"currentBid"`
	CurrentBidder models.Seat   `json:"currentBidder,omitempty"`
	Passed        []models.Seat `json:"passed"`
	Order         []models.Seat `json:"order"`
}

// ExchangeState tracks who has swapped cards with the talon.
type ExchangeState struct {
	Current   models.Seat   `json:"current,omitempty"`
	Order     []models.Seat `json:"order"`
	TalonSize int           `json:"talonSize"`
	Completed []models.Seat `json:"completed"`
}

// RuleToggles are the rule switches visible to clients.
type RuleToggles struct {
	EspadaObligatoria bool `json:"espadaObligatoria"`
	PenetroEnabled    bool `json:"penetroEnabled"`
}

// RoomState is the public state of a room. Hidden information (hands, talon)
// lives on the Room and is never part of this value. Empty seat, suit and contract
// fields mean "none" and are omitted from JSON.
type RoomState struct {
	RoomID     string              `json:"roomId"`
	Mode       models.Mode         `json:"mode"`
	Phase      Phase               `json:"phase"`
	Turn       models.Seat         `json:"turn,omitempty"`
	Ombre      models.Seat         `json:"ombre,omitempty"`
	Trump      models.Suit         `json:"trump,omitempty"`
	Contract   models.Contract     `json:"contract,omitempty"`
	Resting    models.Seat         `json:"resting,omitempty"`
	HandNo     int                 `json:"handNo"`
	Table      []models.Card       `json:"table"`
	PlayOrder  []models.Seat       `json:"playOrder"`
	HandsCount map[models.Seat]int `json:"handsCount"`
	Scores     map[models.Seat]int `json:"scores"`
	Tricks     map[models.Seat]int `json:"tricks"`
	Auction    AuctionState        `json:"auction"`
	Exchange   ExchangeState       `json:"exchange"`
	GameTarget int                 `json:"gameTarget"`
	Seq        int                 `json:"seq"`
	Rules      RuleToggles         `json:"rules"`
}

func newRoomState(id string, mode models.Mode, rules HouseRules) RoomState {
	return RoomState{
		RoomID:     id,
		Mode:       mode,
		Phase:      PhaseLobby,
		HandNo:     1,
		Table:      []models.Card{},
		PlayOrder:  []models.Seat{},
		HandsCount: seatCounter(),
		Scores:     seatCounter(),
		Tricks:     seatCounter(),
		Auction:    AuctionState{CurrentBid: models.BidPass, Passed: []models.Seat{}, Order: []models.Seat{}},
		Exchange:   ExchangeState{Order: []models.Seat{}, Completed: []models.Seat{}},
		GameTarget: rules.GameTarget,
		Rules: RuleToggles{
			EspadaObligatoria: rules.EspadaObligatoria,
			PenetroEnabled:    rules.PenetroEnabled,
		},
	}
}

func seatCounter() map[models.Seat]int {
	m := make(map[models.Seat]int, len(models.Seats))
	for _, s := range models.Seats {
		m[s] = 0
	}
	return m
}

// Snapshot returns a deep copy that shares nothing with s.
func (s *RoomState) Snapshot() RoomState {
	out := *s
	out.Table = append([]models.Card{}, s.Table...)
	out.PlayOrder = append([]models.Seat{}, s.PlayOrder...)
	out.HandsCount = copyCounts(s.HandsCount)
	out.Scores = copyCounts(s.Scores)
	out.Tricks = copyCounts(s.Tricks)
	out.Auction.Passed = append([]models.Seat{}, s.Auction.Passed...)
	out.Auction.Order = append([]models.Seat{}, s.Auction.Order...)
	out.Exchange.Order = append([]models.Seat{}, s.Exchange.Order...)
	out.Exchange.Completed = append([]models.Seat{}, s.Exchange.Completed...)
	return out
}

func copyCounts(m map[models.Seat]int) map[models.Seat]int {
	out := make(map[models.Seat]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func containsSeat(seats []models.Seat, s models.Seat) bool {
	for _, x := range seats {
		if x == s {
			return true
		}
	}
	return false
}
