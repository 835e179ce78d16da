// internal/models/bid.go
package models

// Bid is an auction token.
type Bid string

const (
	BidPass       Bid = "pass"
	BidEntrada    Bid = "entrada"
	BidOros       Bid = "oros"
	BidVolteo     Bid = "volteo"
	BidSolo       Bid = "solo"
	BidSoloOros   Bid = "solo_oros"
	BidBola       Bid = "bola"
	BidContrabola Bid = "contrabola"
)

var bidValues = map[Bid]int{
	BidPass:       0,
	BidEntrada:    1,
	BidOros:       2,
	BidVolteo:     3,
	BidSolo:       4,
	BidSoloOros:   5,
	BidBola:       6,
	BidContrabola: 99,
}

// Valid reports whether b is a known bid token.
func (b Bid) Valid() bool {
	_, ok := bidValues[b]
	return ok
}

// Value is the position of b in the bid ordering. Unknown tokens are -1.
func (b Bid) Value() int {
	v, ok := bidValues[b]
	if !ok {
		return -1
	}
	return v
}

// Beats reports whether b is strictly above other in the bid ordering.
func (b Bid) Beats(other Bid) bool {
	return b.Value() > other.Value()
}

// Contract maps a winning bid to the contract that is played. A pass never wins
// an auction on its own; it maps to entrada for the forced-holder case.
func (b Bid) Contract() Contract {
	switch b {
	case BidOros:
		return ContractOros
	case BidVolteo:
		return ContractVolteo
	case BidSolo:
		return ContractSolo
	case BidSoloOros:
		return ContractSoloOros
	case BidBola:
		return ContractBola
	case BidContrabola:
		return ContractContrabola
	default:
		return ContractEntrada
	}
}

// Contract is the game the ombre undertakes for the hand.
type Contract string

const (
	ContractEntrada    Contract = "entrada"
	ContractOros       Contract = "oros"
	ContractVolteo     Contract = "volteo"
	ContractSolo       Contract = "solo"
	ContractSoloOros   Contract = "solo_oros"
	ContractBola       Contract = "bola"
	ContractContrabola Contract = "contrabola"
	ContractPenetro    Contract = "penetro"
)

// RequiresOros is true for the contracts whose trump must be oros.
func (c Contract) RequiresOros() bool {
	return c == ContractOros || c == ContractSoloOros
}

// NoTrump is true for the two extreme contracts, played without trump or exchange.
func (c Contract) NoTrump() bool {
	return c == ContractBola || c == ContractContrabola
}

// IsSolo is true when the ombre plays without exchanging.
func (c Contract) IsSolo() bool {
	return c == ContractSolo || c == ContractSoloOros
}
