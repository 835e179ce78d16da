// internal/game/seats.go
package game

import "github.com/jason-s-yu/tresillo/internal/models"

// restSeat is the seat sitting out this hand: always across in tresillo, rotating
// through all four seats in quadrille.
func (r *Room) restSeat() models.Seat {
	if r.state.Mode == models.ModeQuadrille {
		return models.Seats[r.restIndex%len(models.Seats)]
	}
	return models.SeatAcross
}

// activeSeats are the seats dealt in, in seat order. Penetro brings back the
// resting seat.
func (r *Room) activeSeats() []models.Seat {
	if r.state.Contract == models.ContractPenetro {
		return append([]models.Seat{}, models.Seats...)
	}
	rest := r.restSeat()
	active := make([]models.Seat, 0, 3)
	for _, s := range models.Seats {
		if s != rest {
			active = append(active, s)
		}
	}
	return active
}

// leftOf is the next active seat clockwise from s. s itself need not be active.
func (r *Room) leftOf(s models.Seat) models.Seat {
	active := r.activeSeats()
	start := s.Index()
	for k := 1; k <= len(models.Seats); k++ {
		cand := models.Seats[(start+k)%len(models.Seats)]
		if containsSeat(active, cand) {
			return cand
		}
	}
	return active[0]
}

// rotationFrom lists every active seat once, clockwise, starting at first.
func (r *Room) rotationFrom(first models.Seat) []models.Seat {
	n := len(r.activeSeats())
	order := make([]models.Seat, 0, n)
	for s := first; len(order) < n; s = r.leftOf(s) {
		order = append(order, s)
	}
	return order
}

// auctionOrder starts left of the you seat.
func (r *Room) auctionOrder() []models.Seat {
	return r.rotationFrom(r.leftOf(models.SeatYou))
}

func (r *Room) connAt(seat models.Seat) *Connection {
	for _, c := range r.conns {
		if c.Seat == seat {
			return c
		}
	}
	return nil
}

func (r *Room) removeConn(conn *Connection) {
	for i, c := range r.conns {
		if c == conn {
			r.conns = append(r.conns[:i], r.conns[i+1:]...)
			return
		}
	}
}

func (r *Room) seat(conn *Connection, seat models.Seat) {
	conn.Seat = seat
	if !conn.Synthetic() {
		r.lastSeat[conn.ID] = seat
	}
	r.log.Debugf("%s seated at %s", conn.Handle, seat)
	r.event(EventSeated, map[string]interface{}{
		"seat":   seat,
		"id":     conn.ID,
		"handle": conn.Handle,
		"bot":    conn.Synthetic(),
	})
}

// ensureFullSeats puts a synthetic player on every empty active seat and drops
// synthetic players whose seat is no longer active.
func (r *Room) ensureFullSeats() {
	active := r.activeSeats()
	for _, s := range active {
		if r.connAt(s) == nil {
			bot := newBotConnection()
			r.conns = append(r.conns, bot)
			r.seat(bot, s)
		}
	}
	kept := r.conns[:0]
	for _, c := range r.conns {
		if c.Synthetic() && !containsSeat(active, c.Seat) {
			continue
		}
		kept = append(kept, c)
	}
	r.conns = kept
}

// join seats conn, displacing a synthetic player first and otherwise taking a
// free active seat. The first join in the lobby starts the first hand.
func (r *Room) join(conn *Connection, mode models.Mode) error {
	if conn.Seat != "" {
		r.sync(conn)
		return nil
	}
	if mode.Valid() && r.state.Phase == PhaseLobby && mode != r.state.Mode {
		r.state.Mode = mode
		r.state.Resting = r.restSeat()
	}

	active := r.activeSeats()
	var target models.Seat
	for _, s := range active {
		if occ := r.connAt(s); occ != nil && occ.Synthetic() {
			r.removeConn(occ)
			target = s
			break
		}
	}
	if target == "" {
		target = r.freeSeat(active)
	}
	if target == "" && r.state.Mode == models.ModeQuadrille {
		// the resting seat belongs to the fourth player
		target = r.freeSeat(models.Seats)
	}
	if target == "" {
		return ErrRoomFull
	}
	r.seat(conn, target)

	if r.state.Phase == PhaseLobby {
		r.newHand()
		return nil
	}
	r.sync(conn)
	r.scheduleTurn()
	return nil
}

func (r *Room) freeSeat(candidates []models.Seat) models.Seat {
	for _, s := range candidates {
		if r.connAt(s) == nil {
			return s
		}
	}
	return ""
}

// reclaimSeat returns a resuming client to the seat it last held, if that seat is
// empty or a synthetic player is keeping it warm.
func (r *Room) reclaimSeat(conn *Connection) {
	seat, ok := r.lastSeat[conn.ID]
	if !ok {
		return
	}
	switch occ := r.connAt(seat); {
	case occ == nil:
		if r.state.Mode == models.ModeQuadrille || containsSeat(r.activeSeats(), seat) {
			r.seat(conn, seat)
		}
	case occ.Synthetic():
		r.removeConn(occ)
		r.seat(conn, seat)
	}
}
