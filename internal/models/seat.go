// internal/models/seat.go
package models

// Seat is one of the four fixed relative positions around the table.
type Seat string

const (
	SeatYou    Seat = "you"
	SeatLeft   Seat = "left"
	SeatAcross Seat = "across"
	SeatRight  Seat = "right"
)

// Seats is the clockwise seat order. Rotation, tie-breaks and turn order all follow it.
var Seats = []Seat{SeatYou, SeatLeft, SeatAcross, SeatRight}

// Valid reports whether s is one of the four seats.
func (s Seat) Valid() bool {
	return s.Index() >= 0
}

// Index returns the position of s in Seats, or -1.
func (s Seat) Index() int {
	for i, seat := range Seats {
		if seat == s {
			return i
		}
	}
	return -1
}

// Mode selects how many people sit at the table.
type Mode string

const (
	// ModeTresillo is the three-handed game; the across seat never plays.
	ModeTresillo Mode = "tresillo"
	// ModeQuadrille is the four-handed game; one seat rests each hand in rotation.
	ModeQuadrille Mode = "quadrille"
)

// Valid reports whether m is a supported mode.
func (m Mode) Valid() bool {
	return m == ModeTresillo || m == ModeQuadrille
}

// Players is the number of participants a full table of this mode seats.
func (m Mode) Players() int {
	if m == ModeTresillo {
		return 3
	}
	return 4
}
