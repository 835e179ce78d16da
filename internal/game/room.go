// internal/game/room.go
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tresillo/internal/models"
	"github.com/sirupsen/logrus"
)

// HandRecorder persists finished hands and games. Calls are made off the room's
// executor; a failure is logged and otherwise ignored.
type HandRecorder interface {
	RecordHand(ctx context.Context, rec models.HandRecord) error
	RecordGame(ctx context.Context, rec models.GameRecord) error
}

// ActionPublisher receives every accepted action. Publish must not block.
type ActionPublisher interface {
	Publish(rec models.ActionRecord)
}

// TokenIssuer signs a resume token for a client of a room.
type TokenIssuer func(clientID, roomID string) (string, error)

// Options configures a Room. Zero values fall back to production defaults.
type Options struct {
	Mode      models.Mode
	Rules     HouseRules
	Logger    *logrus.Logger
	Clock     Clock
	Executor  Executor
	Rand      *rand.Rand
	Recorder  HandRecorder
	Publisher ActionPublisher
	Tokens    TokenIssuer
}

// Room is one table. All state below is owned by exec: every method that is not
// exported assumes it is running there.
type Room struct {
	ID string

	log       *logrus.Entry
	exec      Executor
	mailbox   *Mailbox
	clock     Clock
	rng       *rand.Rand
	rules     HouseRules
	recorder  HandRecorder
	publisher ActionPublisher
	tokens    TokenIssuer

	state    RoomState
	hands    map[models.Seat][]models.Card
	original map[models.Seat][]models.Card
	talon    []models.Card
	discards []models.Card
	taken    map[models.Seat][]models.Card

	conns     []*Connection
	lastSeat  map[string]models.Seat
	restIndex int
	dealt     bool

	timer    Timer
	timerGen uint64
	armed    *turnKey // the turn the pending timer belongs to, nil for other timers

	gameID      uuid.UUID
	handID      uuid.UUID
	handsPlayed int
	actionIndex int
	lastActive  time.Time
	closed      bool
	stopped     chan struct{}
}

// NewRoom builds a room in the lobby phase.
func NewRoom(id string, opts Options) *Room {
	if !opts.Mode.Valid() {
		opts.Mode = models.ModeQuadrille
	}
	if opts.Rules == (HouseRules{}) {
		opts.Rules = DefaultHouseRules()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	r := &Room{
		ID:         id,
		log:        opts.Logger.WithField("room", id),
		exec:       opts.Executor,
		clock:      opts.Clock,
		rng:        opts.Rand,
		rules:      opts.Rules,
		recorder:   opts.Recorder,
		publisher:  opts.Publisher,
		tokens:     opts.Tokens,
		state:      newRoomState(id, opts.Mode, opts.Rules),
		hands:      make(map[models.Seat][]models.Card),
		original:   make(map[models.Seat][]models.Card),
		taken:      make(map[models.Seat][]models.Card),
		lastSeat:   make(map[string]models.Seat),
		gameID:     uuid.New(),
		handID:     uuid.Nil,
		stopped:    make(chan struct{}),
		lastActive: time.Now(),
	}
	if r.exec == nil {
		r.mailbox = NewMailbox(64)
		r.exec = r.mailbox
	}
	r.state.Resting = r.restSeat()
	return r
}

// call runs fn on the executor and waits for it. It returns false if the room
// has shut down.
func (r *Room) call(fn func()) bool {
	done := make(chan struct{})
	if !r.exec.Execute(func() {
		defer close(done)
		fn()
	}) {
		return false
	}
	select {
	case <-done:
		return true
	case <-r.stopped:
		return false
	}
}

// AttachOptions identify the client behind a new connection.
type AttachOptions struct {
	ClientID string // set when resuming a previous session
	Handle   string
}

// Attach registers a live connection, sends WELCOME and the current state, and
// returns the connection. It returns nil once the room is closed.
func (r *Room) Attach(sink Sink, opts AttachOptions) *Connection {
	var conn *Connection
	r.call(func() {
		if r.closed {
			return
		}
		conn = r.attach(sink, opts)
	})
	return conn
}

// Detach removes a connection, refilling its seat with a synthetic player.
func (r *Room) Detach(conn *Connection) {
	r.call(func() {
		if r.closed {
			return
		}
		r.detach(conn)
	})
}

// Handle applies an inbound action from conn. It does not wait for the result;
// any rejection is sent to conn as an ERROR message.
func (r *Room) Handle(conn *Connection, action models.Action) {
	r.exec.Execute(func() {
		if r.closed {
			return
		}
		r.handle(conn, action)
	})
}

// Snapshot returns a copy of the public state.
func (r *Room) Snapshot() RoomState {
	var snap RoomState
	r.call(func() { snap = r.state.Snapshot() })
	return snap
}

// RoomInfo is a summary for room listings.
type RoomInfo struct {
	ID         string      `json:"id"`
	Mode       models.Mode `json:"mode"`
	Phase      Phase       `json:"phase"`
	HandNo     int         `json:"handNo"`
	Humans     int         `json:"humans"`
	Spectators int         `json:"spectators"`
	LastActive time.Time   `json:"lastActive"`
}

// Info summarises the room. ok is false if the room has shut down.
func (r *Room) Info() (info RoomInfo, ok bool) {
	ran := r.call(func() {
		if r.closed {
			return
		}
		ok = true
		info = RoomInfo{
			ID:         r.ID,
			Mode:       r.state.Mode,
			Phase:      r.state.Phase,
			HandNo:     r.state.HandNo,
			LastActive: r.lastActive,
		}
		for _, c := range r.conns {
			if c.Synthetic() {
				continue
			}
			if c.Seat == "" {
				info.Spectators++
			} else {
				info.Humans++
			}
		}
	})
	return info, ran && ok
}

// Close stops the turn clock, tells every client the room is closing and closes
// their sinks. The room is unusable afterwards.
func (r *Room) Close() {
	r.call(func() {
		if r.closed {
			return
		}
		r.stopTimer()
		r.event(EventRoomClosing, map[string]interface{}{})
		for _, c := range r.conns {
			if err := c.Sink.Close("room closing"); err != nil {
				r.log.Warnf("close connection %s: %v", c.ID, err)
			}
		}
		r.conns = nil
		r.closed = true
		close(r.stopped)
		if r.mailbox != nil {
			r.mailbox.Stop()
		}
		r.log.Info("room closed")
	})
}

func (r *Room) attach(sink Sink, opts AttachOptions) *Connection {
	r.lastActive = time.Now()
	resumed := opts.ClientID != ""
	id := opts.ClientID
	if id == "" {
		id = uuid.NewString()
	}
	handle := opts.Handle
	if handle == "" {
		handle = fmt.Sprintf("p%d", r.rng.Intn(999))
	}
	conn := &Connection{ID: id, Handle: handle, Kind: Live, Sink: sink}
	r.conns = append(r.conns, conn)

	var token string
	if r.tokens != nil {
		var err error
		if token, err = r.tokens(id, r.ID); err != nil {
			r.log.Warnf("issue resume token for %s: %v", id, err)
		}
	}
	r.send(conn, welcomeMessage(id, r.ID, resumed, token))

	if resumed {
		r.reclaimSeat(conn)
	}
	r.sync(conn)
	r.scheduleTurn()

	r.log.Infof("client %s attached (resumed=%t), %d connections", id, resumed, len(r.conns))
	return conn
}

func (r *Room) detach(conn *Connection) {
	idx := -1
	for i, c := range r.conns {
		if c == conn {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	r.lastActive = time.Now()
	r.conns = append(r.conns[:idx], r.conns[idx+1:]...)
	if conn.Seat != "" {
		r.log.Infof("player %s (%s) left", conn.Handle, conn.Seat)
		r.event(EventPlayerLeft, map[string]interface{}{"seat": conn.Seat, "handle": conn.Handle})
	}
	if r.state.Phase != PhaseLobby {
		r.ensureFullSeats()
	}
	r.scheduleTurn()
	r.log.Infof("client %s detached, %d connections", conn.ID, len(r.conns))
}

// handle routes one action. Rule violations go back to conn only; a panic is
// reported as INTERNAL_ERROR and never takes the room down.
func (r *Room) handle(conn *Connection, action models.Action) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.WithField("client", conn.ID).Errorf("panic handling %s: %v\n%s", action.Type, rec, debug.Stack())
			r.send(conn, ErrorMessage(CodeInternal, "an internal error occurred"))
		}
	}()
	if !r.attached(conn) {
		return
	}
	r.lastActive = time.Now()

	var err error
	switch action.Type {
	case models.ActionPing:
		r.send(conn, PongMessage())
		return
	case models.ActionJoin:
		err = r.join(conn, action.Mode)
	case models.ActionBid, models.ActionChooseTrump, models.ActionExchange, models.ActionPlay:
		if conn.Seat == "" {
			err = ErrNoSeat
			break
		}
		switch action.Type {
		case models.ActionBid:
			err = r.bid(conn.Seat, action.Value)
		case models.ActionChooseTrump:
			err = r.chooseTrump(conn.Seat, action.Suit)
		case models.ActionExchange:
			err = r.exchange(conn.Seat, action.DiscardIDs)
		case models.ActionPlay:
			err = r.play(conn.Seat, action.CardID)
		}
	default:
		err = ErrInvalidMessage.because("unknown message type %q", action.Type)
	}

	if err == nil {
		return
	}
	var re *RuleError
	if errors.As(err, &re) {
		r.log.WithField("client", conn.ID).Debugf("rejected %s: %v", action.Type, re)
		r.send(conn, ErrorMessage(re.Code, re.Why))
		return
	}
	r.log.WithField("client", conn.ID).Errorf("handling %s: %v", action.Type, err)
	r.send(conn, ErrorMessage(CodeInternal, "an internal error occurred"))
}

func (r *Room) attached(conn *Connection) bool {
	for _, c := range r.conns {
		if c == conn {
			return true
		}
	}
	return false
}

// send delivers msg best-effort; a failure is logged and never retried.
func (r *Room) send(conn *Connection, msg Message) {
	if err := conn.Sink.Send(msg); err != nil {
		r.log.WithField("client", conn.ID).Warnf("send %s: %v", msg.Type, err)
	}
}

// publish bumps the sequence number and sends the state to everyone, each with
// their own hand.
func (r *Room) publish() {
	r.state.Seq++
	snap := r.state.Snapshot()
	for _, c := range r.conns {
		r.send(c, stateMessage(&snap, r.handOf(c)))
	}
}

// sync sends the current state to one connection without bumping the sequence.
func (r *Room) sync(conn *Connection) {
	snap := r.state.Snapshot()
	r.send(conn, stateMessage(&snap, r.handOf(conn)))
}

func (r *Room) handOf(conn *Connection) []models.Card {
	if conn.Seat == "" {
		return nil
	}
	return append([]models.Card{}, r.hands[conn.Seat]...)
}

func (r *Room) event(name string, payload map[string]interface{}) {
	msg := eventMessage(name, payload)
	for _, c := range r.conns {
		r.send(c, msg)
	}
}

// logAction queues an accepted action for the historian.
func (r *Room) logAction(seat models.Seat, actionType string, payload map[string]interface{}) {
	r.actionIndex++
	if r.publisher == nil {
		return
	}
	r.publisher.Publish(models.ActionRecord{
		RoomID:        r.ID,
		HandID:        r.handID,
		ActionIndex:   r.actionIndex,
		Seat:          seat,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	})
}

// persist runs fn against the recorder in the background.
func (r *Room) persist(what string, fn func(ctx context.Context, rec HandRecorder) error) {
	if r.recorder == nil {
		return
	}
	rec := r.recorder
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := fn(ctx, rec); err != nil {
			r.log.Warnf("persist %s: %v", what, err)
		}
	}()
}
