// internal/game/game_test.go
package game

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/tresillo/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSink collects messages instead of sending them over WS.
type mockSink struct {
	mu     sync.Mutex
	msgs   []Message
	closed bool
}

func (s *mockSink) Send(m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, m)
	return nil
}

func (s *mockSink) Close(string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *mockSink) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = nil
}

func (s *mockSink) ofType(typ string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Message
	for _, m := range s.msgs {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

func (s *mockSink) last(typ string) *Message {
	all := s.ofType(typ)
	if len(all) == 0 {
		return nil
	}
	return &all[len(all)-1]
}

func (s *mockSink) events(name string) []Message {
	var out []Message
	for _, m := range s.ofType(MsgEvent) {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

// manualTimer and manualClock let tests fire the turn clock by hand.
type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

type manualClock struct {
	timers []*manualTimer
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &manualTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) pending() []*manualTimer {
	var out []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// fire runs the newest pending timer.
func (c *manualClock) fire() bool {
	p := c.pending()
	if len(p) == 0 {
		return false
	}
	t := p[len(p)-1]
	t.fired = true
	t.f()
	return true
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// setupTestRoom builds a deterministic room: inline executor, manual clock, seeded rand.
func setupTestRoom(t *testing.T, mode models.Mode, rules *HouseRules) (*Room, *manualClock) {
	t.Helper()
	clock := &manualClock{}
	hr := DefaultHouseRules()
	if rules != nil {
		hr = *rules
	}
	r := NewRoom("test", Options{
		Mode:     mode,
		Rules:    hr,
		Logger:   quietLogger(),
		Clock:    clock,
		Executor: inlineExecutor{},
		Rand:     rand.New(rand.NewSource(3)),
	})
	return r, clock
}

// joinHuman attaches a live client and seats it.
func joinHuman(t *testing.T, r *Room, mode models.Mode) (*Connection, *mockSink) {
	t.Helper()
	sink := &mockSink{}
	conn := r.Attach(sink, AttachOptions{})
	require.NotNil(t, conn)
	r.Handle(conn, models.Action{Type: models.ActionJoin, Mode: mode})
	return conn, sink
}

// giveCard moves the card suit/rank into seat's hand, swapping out the seat's
// first card so the 40 cards stay partitioned.
func giveCard(t *testing.T, r *Room, seat models.Seat, suit models.Suit, rank int) {
	t.Helper()
	if hasCard(r.hands[seat], suit, rank) {
		return
	}
	swap := r.hands[seat][0]
	for _, s := range models.Seats {
		for i, c := range r.hands[s] {
			if c.Suit == suit && c.Rank == rank {
				r.hands[s][i] = swap
				r.hands[seat][0] = c
				return
			}
		}
	}
	for i, c := range r.talon {
		if c.Suit == suit && c.Rank == rank {
			r.talon[i] = swap
			r.hands[seat][0] = c
			return
		}
	}
	t.Fatalf("card %d of %s not found", rank, suit)
}

func hasCard(cards []models.Card, suit models.Suit, rank int) bool {
	for _, c := range cards {
		if c.Suit == suit && c.Rank == rank {
			return true
		}
	}
	return false
}

// allCardIDs gathers every card the room holds for the hand.
func allCardIDs(r *Room) []string {
	var ids []string
	add := func(cs []models.Card) {
		for _, c := range cs {
			ids = append(ids, c.ID)
		}
	}
	for _, s := range models.Seats {
		add(r.hands[s])
		add(r.taken[s])
	}
	add(r.talon)
	add(r.discards)
	add(r.state.Table)
	return ids
}

func requirePartition(t *testing.T, r *Room) {
	t.Helper()
	ids := allCardIDs(r)
	require.Len(t, ids, 40)
	seen := map[string]bool{}
	for _, id := range ids {
		require.False(t, seen[id], "card %s held twice", id)
		seen[id] = true
	}
}

func TestJoinStartsHand(t *testing.T) {
	r, clock := setupTestRoom(t, models.ModeTresillo, nil)
	conn, sink := joinHuman(t, r, models.ModeTresillo)

	welcome := sink.ofType(MsgWelcome)
	require.Len(t, welcome, 1)
	assert.Equal(t, conn.ID, welcome[0].ClientID)
	assert.Equal(t, "test", welcome[0].RoomID)
	assert.False(t, welcome[0].Resumed)

	assert.Equal(t, models.SeatYou, conn.Seat)
	assert.Equal(t, PhaseAuction, r.state.Phase)
	assert.Equal(t, models.SeatAcross, r.state.Resting)
	assert.Equal(t, []models.Seat{models.SeatLeft, models.SeatRight, models.SeatYou}, r.state.Auction.Order)
	assert.Equal(t, models.SeatLeft, r.state.Turn)
	for _, s := range []models.Seat{models.SeatYou, models.SeatLeft, models.SeatRight} {
		assert.Len(t, r.hands[s], 9)
		assert.Equal(t, r.hands[s], r.original[s])
		assert.Equal(t, 9, r.state.HandsCount[s])
	}
	assert.Empty(t, r.hands[models.SeatAcross])
	assert.Len(t, r.talon, 13)
	requirePartition(t, r)

	// bots hold the other two active seats
	assert.True(t, r.connAt(models.SeatLeft).Synthetic())
	assert.True(t, r.connAt(models.SeatRight).Synthetic())
	assert.Nil(t, r.connAt(models.SeatAcross))
	assert.Len(t, sink.events(EventSeated), 3)

	st := sink.last(MsgState)
	require.NotNil(t, st)
	assert.Equal(t, 1, st.Patch.Seq)
	assert.Len(t, st.SelfHand, 9)

	// the bot on turn is scheduled with the short delay
	p := clock.pending()
	require.Len(t, p, 1)
	assert.GreaterOrEqual(t, p[0].d, 600*time.Millisecond)
	assert.LessOrEqual(t, p[0].d, 1200*time.Millisecond)
}

func TestJoinIsIdempotent(t *testing.T) {
	r, _ := setupTestRoom(t, models.ModeTresillo, nil)
	conn, _ := joinHuman(t, r, models.ModeTresillo)
	seq := r.state.Seq

	r.Handle(conn, models.Action{Type: models.ActionJoin, Mode: models.ModeQuadrille})
	assert.Equal(t, models.SeatYou, conn.Seat)
	assert.Equal(t, models.ModeTresillo, r.state.Mode, "mode only changes in the lobby")
	assert.Equal(t, seq, r.state.Seq)
}

func TestSpectatorAndPing(t *testing.T) {
	r, _ := setupTestRoom(t, models.ModeTresillo, nil)
	sink := &mockSink{}
	conn := r.Attach(sink, AttachOptions{})

	r.Handle(conn, models.Action{Type: models.ActionPing})
	assert.NotNil(t, sink.last(MsgPong))

	r.Handle(conn, models.Action{Type: models.ActionBid, Value: models.BidEntrada})
	e := sink.last(MsgError)
	require.NotNil(t, e)
	assert.Equal(t, CodeNoSeat, e.Code)

	st := sink.last(MsgState)
	require.NotNil(t, st)
	assert.Nil(t, st.SelfHand)
	assert.Equal(t, PhaseLobby, st.Patch.Phase)
}

func TestRoomFull(t *testing.T) {
	r, _ := setupTestRoom(t, models.ModeTresillo, nil)
	for i := 0; i < 3; i++ {
		joinHuman(t, r, models.ModeTresillo)
	}
	conn, sink := joinHuman(t, r, models.ModeTresillo)
	assert.Equal(t, models.Seat(""), conn.Seat)
	e := sink.last(MsgError)
	require.NotNil(t, e)
	assert.Equal(t, CodeRoomFull, e.Code)
}

func TestQuadrilleSeatsFourHumans(t *testing.T) {
	r, _ := setupTestRoom(t, models.ModeQuadrille, nil)
	seats := map[models.Seat]bool{}
	for i := 0; i < 4; i++ {
		conn, _ := joinHuman(t, r, models.ModeQuadrille)
		require.NotEmpty(t, conn.Seat)
		seats[conn.Seat] = true
	}
	assert.Len(t, seats, 4)
	_, sink := joinHuman(t, r, models.ModeQuadrille)
	assert.Equal(t, CodeRoomFull, sink.last(MsgError).Code)
}

func TestSelfHandOmittedOnlyForUnseated(t *testing.T) {
	r, _ := setupTestRoom(t, models.ModeQuadrille, nil)
	var resting *mockSink
	for i := 0; i < 4; i++ {
		conn, sink := joinHuman(t, r, models.ModeQuadrille)
		if conn.Seat == r.state.Resting {
			resting = sink
		}
	}
	require.NotNil(t, resting, "the fourth player sits on the resting seat")

	data, err := json.Marshal(resting.last(MsgState))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"selfHand":[]`)

	watcher := &mockSink{}
	require.NotNil(t, r.Attach(watcher, AttachOptions{}))
	data, err = json.Marshal(watcher.last(MsgState))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "selfHand")
	assert.Contains(t, string(data), `"patch"`)
}

func TestAuctionFlow(t *testing.T) {
	r, _ := setupTestRoom(t, models.ModeTresillo, nil)
	conn, sink := joinHuman(t, r, models.ModeTresillo)
	seq := r.state.Seq

	// out of turn
	r.Handle(conn, models.Action{Type: models.ActionBid, Value: models.BidEntrada})
	assert.Equal(t, CodeNotYourTurn, sink.last(MsgError).Code)
	assert.Equal(t, seq, r.state.Seq, "a rejected action does not broadcast")

	require.NoError(t, r.bid(models.SeatLeft, models.BidEntrada))
	assert.ErrorIs(t, r.bid(models.SeatRight, models.BidEntrada), ErrBadBid)
	require.NoError(t, r.bid(models.SeatRight, models.BidPass))
	assert.Equal(t, models.SeatYou, r.state.Turn)

	// contrabola is closed once someone bid
	r.Handle(conn, models.Action{Type: models.ActionBid, Value: models.BidContrabola})
	assert.Equal(t, CodeBadBid, sink.last(MsgError).Code)

	r.Handle(conn, models.Action{Type: models.ActionBid, Value: models.BidOros})
	assert.Equal(t, models.SeatLeft, r.state.Turn, "the passed right seat is skipped")
	assert.ErrorIs(t, r.bid(models.SeatRight, models.BidSolo), ErrNotYourTurn)

	require.NoError(t, r.bid(models.SeatLeft, models.BidPass))
	assert.Equal(t, PhaseTrumpChoice, r.state.Phase)
	assert.Equal(t, models.SeatYou, r.state.Ombre)
	assert.Equal(t, models.ContractOros, r.state.Contract)
	assert.Equal(t, models.SeatYou, r.state.Turn)
	win := sink.events(EventAuctionWin)
	require.Len(t, win, 1)
	assert.Equal(t, models.SeatYou, win[0].Payload["ombre"])

	r.Handle(conn, models.Action{Type: models.ActionChooseTrump, Suit: models.Copas})
	assert.Equal(t, CodeTrumpMustBeOros, sink.last(MsgError).Code)
	assert.ErrorIs(t, r.chooseTrump(models.SeatLeft, models.Oros), ErrNotOmbre)

	r.Handle(conn, models.Action{Type: models.ActionChooseTrump, Suit: models.Oros})
	assert.Equal(t, models.Oros, r.state.Trump)
	assert.Equal(t, PhaseExchange, r.state.Phase)
	assert.Equal(t, []models.Seat{models.SeatYou, models.SeatLeft, models.SeatRight}, r.state.Exchange.Order)
	assert.Equal(t, models.SeatYou, r.state.Exchange.Current)
	requirePartition(t, r)
}

func TestBidSequencePerSeatIsIncreasing(t *testing.T) {
	r, _ := setupTestRoom(t, models.ModeTresillo, nil)
	joinHuman(t, r, models.ModeTresillo)

	require.NoError(t, r.bid(models.SeatLeft, models.BidEntrada))
	require.NoError(t, r.bid(models.SeatRight, models.BidOros))
	require.NoError(t, r.bid(models.SeatYou, models.BidVolteo))
	assert.ErrorIs(t, r.bid(models.SeatLeft, models.BidVolteo), ErrBadBid)
	assert.ErrorIs(t, r.bid(models.SeatLeft, models.Bid("grand")), ErrBadBid)
	require.NoError(t, r.bid(models.SeatLeft, models.BidSolo))
	require.NoError(t, r.bid(models.SeatRight, models.BidPass))
	require.NoError(t, r.bid(models.SeatYou, models.BidPass))

	assert.Equal(t, models.SeatLeft, r.state.Ombre)
	assert.Equal(t, models.ContractSolo, r.state.Contract)
	assert.ErrorIs(t, r.bid(models.SeatLeft, models.BidBola), ErrWrongPhase)
}

func TestContrabolaForLastSeat(t *testing.T) {
	r, _ := setupTestRoom(t, models.ModeTresillo, nil)
	joinHuman(t, r, models.ModeTresillo)

	assert.ErrorIs(t, r.bid(models.SeatLeft, models.BidContrabola), ErrBadBid)
	require.NoError(t, r.bid(models.SeatLeft, models.BidPass))
	require.NoError(t, r.bid(models.SeatRight, models.BidPass))
	require.NoError(t, r.bid(models.SeatYou, models.BidContrabola))

	assert.Equal(t, models.ContractContrabola, r.state.Contract)
	assert.Equal(t, PhasePlay, r.state.Phase)
	assert.Equal(t, models.SeatLeft, r.state.Turn)
	assert.Equal(t, models.Suit(""), r.state.Trump)
	assert.ErrorIs(t, r.chooseTrump(models.SeatYou, models.Oros), ErrWrongPhase)
}

func TestVolteoTakesTrumpFromTalon(t *testing.T) {
	r, _ := setupTestRoom(t, models.ModeTresillo, nil)
	_, sink := joinHuman(t, r, models.ModeTresillo)
	top := r.talon[0]

	require.NoError(t, r.bid(models.SeatLeft, models.BidVolteo))
	require.NoError(t, r.bid(models.SeatRight, models.BidPass))
	require.NoError(t, r.bid(models.SeatYou, models.BidPass))

	assert.Equal(t, top.Suit, r.state.Trump)
	assert.Equal(t, PhaseExchange, r.state.Phase)
	assert.Equal(t, models.SeatLeft, r.state.Turn)
	set := sink.events(EventTrumpSet)
	require.Len(t, set, 1)
	assert.Equal(t, "volteo", set[0].Payload["method"])
}

func TestEspadaObligatoria(t *testing.T) {
	rules := DefaultHouseRules()
	r, _ := setupTestRoom(t, models.ModeTresillo, &rules)
	_, sink := joinHuman(t, r, models.ModeTresillo)
	giveCard(t, r, models.SeatRight, models.Espadas, 1)
	requirePartition(t, r)

	for _, s := range []models.Seat{models.SeatLeft, models.SeatRight, models.SeatYou} {
		require.NoError(t, r.bid(s, models.BidPass))
	}
	assert.Equal(t, PhaseTrumpChoice, r.state.Phase)
	assert.Equal(t, models.SeatRight, r.state.Ombre)
	assert.Equal(t, models.ContractEntrada, r.state.Contract)
	assert.Equal(t, models.SeatRight, r.state.Turn)
	assert.Len(t, sink.events(EventEspadaObligatoria), 1)
}

func TestPassOutRedeals(t *testing.T) {
	rules := DefaultHouseRules()
	rules.EspadaObligatoria = false
	r, _ := setupTestRoom(t, models.ModeTresillo, &rules)
	_, sink := joinHuman(t, r, models.ModeTresillo)
	firstHand := r.handID

	for _, s := range []models.Seat{models.SeatLeft, models.SeatRight, models.SeatYou} {
		require.NoError(t, r.bid(s, models.BidPass))
	}
	assert.Len(t, sink.events(EventAuctionPassOut), 1)
	assert.Equal(t, PhaseAuction, r.state.Phase)
	assert.Equal(t, 1, r.state.HandNo)
	assert.NotEqual(t, firstHand, r.handID)
	assert.Empty(t, r.state.Auction.Passed)
	requirePartition(t, r)
}

func TestPenetro(t *testing.T) {
	r, _ := setupTestRoom(t, models.ModeQuadrille, nil)
	conn, sink := joinHuman(t, r, models.ModeQuadrille)
	assert.Equal(t, models.SeatYou, r.state.Resting, "no rotation on the first deal")
	assert.Equal(t, models.SeatLeft, conn.Seat)
	assert.Nil(t, r.connAt(models.SeatYou))

	for _, s := range []models.Seat{models.SeatLeft, models.SeatAcross, models.SeatRight} {
		require.NoError(t, r.bid(s, models.BidPass))
	}
	assert.Equal(t, models.ContractPenetro, r.state.Contract)
	assert.Equal(t, PhasePlay, r.state.Phase)
	assert.Len(t, r.activeSeats(), 4)
	assert.Len(t, r.hands[models.SeatYou], 9)
	assert.Len(t, r.talon, 4)
	assert.Equal(t, models.SeatLeft, r.state.Turn)
	require.NotNil(t, r.connAt(models.SeatYou))
	assert.True(t, r.connAt(models.SeatYou).Synthetic())
	assert.Len(t, sink.events(EventPenetroStart), 1)
	requirePartition(t, r)
}

func TestExchange(t *testing.T) {
	r, _ := setupTestRoom(t, models.ModeTresillo, nil)
	conn, sink := joinHuman(t, r, models.ModeTresillo)
	require.NoError(t, r.bid(models.SeatLeft, models.BidPass))
	require.NoError(t, r.bid(models.SeatRight, models.BidPass))
	require.NoError(t, r.bid(models.SeatYou, models.BidOros))
	require.NoError(t, r.chooseTrump(models.SeatYou, models.Oros))
	seq := r.state.Seq

	r.Handle(conn, models.Action{Type: models.ActionExchange, DiscardIDs: []string{"nope"}})
	assert.Equal(t, CodeNotYourCard, sink.last(MsgError).Code)

	var seven []string
	for _, c := range r.hands[models.SeatYou][:7] {
		seven = append(seven, c.ID)
	}
	r.Handle(conn, models.Action{Type: models.ActionExchange, DiscardIDs: seven})
	assert.Equal(t, CodeExchangeLimit, sink.last(MsgError).Code, "oros allows six")
	assert.Equal(t, seq, r.state.Seq)

	hand := r.hands[models.SeatYou]
	out := []string{hand[0].ID, hand[1].ID, hand[0].ID}
	drawn := append([]models.Card{}, r.talon[:2]...)
	r.Handle(conn, models.Action{Type: models.ActionExchange, DiscardIDs: out})
	assert.Len(t, r.hands[models.SeatYou], 9)
	assert.Equal(t, drawn, r.hands[models.SeatYou][7:])
	assert.Len(t, r.talon, 11)
	assert.Len(t, r.discards, 2)
	assert.Equal(t, 11, r.state.Exchange.TalonSize)
	assert.Equal(t, models.SeatLeft, r.state.Turn)
	requirePartition(t, r)

	assert.ErrorIs(t, r.exchange(models.SeatYou, nil), ErrNotYourTurn)
	require.NoError(t, r.exchange(models.SeatLeft, nil))
	require.NoError(t, r.exchange(models.SeatRight, []string{r.hands[models.SeatRight][0].ID}))
	assert.Equal(t, PhasePlay, r.state.Phase)
	assert.Equal(t, models.SeatLeft, r.state.Turn, "the seat left of the ombre leads")
	requirePartition(t, r)
}

func TestSoloSkipsOmbreExchange(t *testing.T) {
	r, _ := setupTestRoom(t, models.ModeTresillo, nil)
	joinHuman(t, r, models.ModeTresillo)
	require.NoError(t, r.bid(models.SeatLeft, models.BidSolo))
	require.NoError(t, r.bid(models.SeatRight, models.BidPass))
	require.NoError(t, r.bid(models.SeatYou, models.BidPass))
	require.NoError(t, r.chooseTrump(models.SeatLeft, models.Bastos))

	assert.Equal(t, []models.Seat{models.SeatRight, models.SeatYou}, r.state.Exchange.Order)
	assert.Equal(t, 5, r.exchangeMax(models.SeatRight))
	assert.Equal(t, 0, r.exchangeMax(models.SeatLeft))
}

// setupPlay jumps straight to the play phase with known hands.
func setupPlay(t *testing.T, r *Room, contract models.Contract, trump models.Suit, ombre models.Seat, hands map[models.Seat][]models.Card) {
	t.Helper()
	r.state.Contract = contract
	r.state.Trump = trump
	r.state.Ombre = ombre
	for s, h := range hands {
		r.hands[s] = h
		r.state.HandsCount[s] = len(h)
	}
	r.startPlay(r.leftOf(ombre))
}

func cardOf(s models.Suit, rank int) models.Card {
	return models.Card{ID: fmt.Sprintf("%s-%d", s, rank), Suit: s, Rank: rank}
}

func TestPlayFollowsSuitAndTakesTricks(t *testing.T) {
	r, _ := setupTestRoom(t, models.ModeTresillo, nil)
	conn, sink := joinHuman(t, r, models.ModeTresillo)
	setupPlay(t, r, models.ContractEntrada, models.Oros, models.SeatYou, map[models.Seat][]models.Card{
		models.SeatLeft:  {cardOf(models.Copas, 3), cardOf(models.Bastos, 4)},
		models.SeatRight: {cardOf(models.Espadas, 5), cardOf(models.Espadas, 6)},
		models.SeatYou:   {cardOf(models.Copas, 5), cardOf(models.Oros, 2)},
	})
	require.Equal(t, models.SeatLeft, r.state.Turn)

	r.Handle(conn, models.Action{Type: models.ActionPlay, CardID: cardOf(models.Copas, 5).ID})
	assert.Equal(t, CodeNotYourTurn, sink.last(MsgError).Code)

	require.NoError(t, r.play(models.SeatLeft, cardOf(models.Copas, 3).ID))
	assert.Equal(t, models.SeatRight, r.state.Turn)
	assert.ErrorIs(t, r.play(models.SeatRight, cardOf(models.Copas, 3).ID), ErrNotYourCard)
	require.NoError(t, r.play(models.SeatRight, cardOf(models.Espadas, 5).ID))

	r.Handle(conn, models.Action{Type: models.ActionPlay, CardID: cardOf(models.Oros, 2).ID})
	e := sink.last(MsgError)
	assert.Equal(t, CodeIllegalPlay, e.Code)
	assert.Equal(t, "must follow copas", e.Why)

	r.Handle(conn, models.Action{Type: models.ActionPlay, CardID: cardOf(models.Copas, 5).ID})
	assert.Equal(t, 1, r.state.Tricks[models.SeatLeft], "copas 3 outranks copas 5 in a red suit")
	assert.Equal(t, models.SeatLeft, r.state.Turn)
	assert.Empty(t, r.state.Table)
	taken := sink.events(EventTrickTaken)
	require.Len(t, taken, 1)
	assert.Equal(t, models.SeatLeft, taken[0].Payload["winner"])
}

func TestHandEndsAndScores(t *testing.T) {
	r, _ := setupTestRoom(t, models.ModeTresillo, nil)
	_, sink := joinHuman(t, r, models.ModeTresillo)
	setupPlay(t, r, models.ContractEntrada, models.Oros, models.SeatLeft, map[models.Seat][]models.Card{
		models.SeatLeft:  {cardOf(models.Copas, 3)},
		models.SeatRight: {cardOf(models.Oros, 5)},
		models.SeatYou:   {cardOf(models.Copas, 4)},
	})
	// right leads as the seat left of the ombre
	r.state.Tricks[models.SeatLeft] = 4
	r.state.Tricks[models.SeatRight] = 4
	require.Equal(t, models.SeatRight, r.state.Turn)

	require.NoError(t, r.play(models.SeatRight, cardOf(models.Oros, 5).ID))
	require.NoError(t, r.play(models.SeatYou, cardOf(models.Copas, 4).ID))
	require.NoError(t, r.play(models.SeatLeft, cardOf(models.Copas, 3).ID))

	res := sink.events(EventHandResult)
	require.Len(t, res, 1)
	assert.Equal(t, ResultCodille, res[0].Payload["result"])
	assert.Equal(t, 2, r.state.Scores[models.SeatRight])
	assert.Equal(t, 2, r.state.HandNo)
	assert.Equal(t, PhaseAuction, r.state.Phase)
}

func TestGameEndAndRestart(t *testing.T) {
	r, clock := setupTestRoom(t, models.ModeTresillo, nil)
	_, sink := joinHuman(t, r, models.ModeTresillo)

	r.state.Scores[models.SeatLeft] = 11
	r.state.Scores[models.SeatRight] = 11
	r.state.Contract = models.ContractEntrada
	r.state.Ombre = models.SeatRight
	r.state.Tricks = map[models.Seat]int{models.SeatRight: 2, models.SeatLeft: 3, models.SeatYou: 4}
	r.finishHand()

	assert.Equal(t, PhaseEnd, r.state.Phase)
	end := sink.events(EventGameEnd)
	require.Len(t, end, 1)
	assert.Equal(t, models.SeatLeft, end[0].Payload["winner"], "puesta lifts both defenders")
	assert.Equal(t, 12, r.state.Scores[models.SeatLeft])
	assert.Equal(t, 1, r.state.Scores[models.SeatYou])
	assert.Equal(t, 11, r.state.Scores[models.SeatRight])

	p := clock.pending()
	require.Len(t, p, 1)
	assert.Equal(t, 3*time.Second, p[0].d)

	require.True(t, clock.fire())
	assert.Equal(t, PhaseAuction, r.state.Phase)
	assert.Equal(t, 1, r.state.HandNo)
	for _, s := range models.Seats {
		assert.Zero(t, r.state.Scores[s])
	}
}

func TestStaleTimerIsIgnored(t *testing.T) {
	r, clock := setupTestRoom(t, models.ModeTresillo, nil)
	joinHuman(t, r, models.ModeTresillo)

	p := clock.pending()
	require.Len(t, p, 1)
	stale := p[0]

	// the bot on turn acts through another path before its timer fires
	require.NoError(t, r.bid(models.SeatLeft, models.BidPass))
	assert.True(t, stale.stopped)
	seq := r.state.Seq
	turn := r.state.Turn

	stale.f()
	assert.Equal(t, seq, r.state.Seq)
	assert.Equal(t, turn, r.state.Turn)
	assert.Len(t, clock.pending(), 1)
}

func TestTimeoutActsForHuman(t *testing.T) {
	r, clock := setupTestRoom(t, models.ModeTresillo, nil)
	joinHuman(t, r, models.ModeTresillo)
	require.NoError(t, r.bid(models.SeatLeft, models.BidPass))
	require.NoError(t, r.bid(models.SeatRight, models.BidPass))
	require.Equal(t, models.SeatYou, r.state.Turn)
	seq := r.state.Seq

	p := clock.pending()
	require.Len(t, p, 1)
	assert.Equal(t, 25*time.Second, p[0].d)

	require.True(t, clock.fire())
	assert.Greater(t, r.state.Seq, seq)
	assert.True(t, r.state.Phase != PhaseAuction || r.state.Turn != models.SeatYou)
}

func TestAttachKeepsPendingTurnDeadline(t *testing.T) {
	r, clock := setupTestRoom(t, models.ModeTresillo, nil)
	joinHuman(t, r, models.ModeTresillo)
	require.NoError(t, r.bid(models.SeatLeft, models.BidPass))
	require.NoError(t, r.bid(models.SeatRight, models.BidPass))
	require.Equal(t, models.SeatYou, r.state.Turn)

	p := clock.pending()
	require.Len(t, p, 1)
	deadline := p[0]
	armed := len(clock.timers)

	for i := 0; i < 5; i++ {
		spectator := r.Attach(&mockSink{}, AttachOptions{})
		require.NotNil(t, spectator)
		r.Detach(spectator)
	}
	assert.False(t, deadline.stopped, "watchers must not restart the turn clock")
	assert.Equal(t, armed, len(clock.timers))
	assert.Equal(t, []*manualTimer{deadline}, clock.pending())

	seq := r.state.Seq
	require.True(t, clock.fire())
	assert.Greater(t, r.state.Seq, seq)
}

func TestSeatChangeRearmsTurn(t *testing.T) {
	r, clock := setupTestRoom(t, models.ModeTresillo, nil)
	conn, _ := joinHuman(t, r, models.ModeTresillo)
	joinHuman(t, r, models.ModeTresillo) // keeps a live client after conn leaves
	require.NoError(t, r.bid(models.SeatLeft, models.BidPass))
	require.NoError(t, r.bid(models.SeatRight, models.BidPass))
	require.Equal(t, models.SeatYou, r.state.Turn)
	require.Equal(t, models.SeatYou, conn.Seat)

	human := clock.pending()[0]
	require.Equal(t, 25*time.Second, human.d)

	// the seat on turn passes to a bot, which gets its own short delay
	r.Detach(conn)
	assert.True(t, human.stopped)
	p := clock.pending()
	require.Len(t, p, 1)
	assert.Less(t, p[0].d, 25*time.Second)
}

func TestPanicInTimerIsRecovered(t *testing.T) {
	r, clock := setupTestRoom(t, models.ModeTresillo, nil)
	r.armTimer(time.Second, func() { panic("boom") })

	assert.NotPanics(t, func() { clock.fire() })
	_, ok := r.Info()
	assert.True(t, ok)
}

func TestPauseWithoutLiveClients(t *testing.T) {
	r, clock := setupTestRoom(t, models.ModeTresillo, nil)
	conn, sink := joinHuman(t, r, models.ModeTresillo)
	require.Len(t, clock.pending(), 1)

	r.Detach(conn)
	assert.Empty(t, clock.pending())
	assert.True(t, r.connAt(models.SeatYou).Synthetic(), "a bot takes the empty seat")

	r.Attach(&mockSink{}, AttachOptions{})
	assert.Len(t, clock.pending(), 1)
	assert.Empty(t, sink.events(EventPlayerLeft), "the leaver gets nothing after detaching")
}

func TestDetachAnnouncesAndRefills(t *testing.T) {
	r, _ := setupTestRoom(t, models.ModeTresillo, nil)
	leaver, _ := joinHuman(t, r, models.ModeTresillo)
	_, sink := joinHuman(t, r, models.ModeTresillo)

	r.Detach(leaver)
	left := sink.events(EventPlayerLeft)
	require.Len(t, left, 1)
	assert.Equal(t, models.SeatYou, left[0].Payload["seat"])
	require.NotNil(t, r.connAt(models.SeatYou))
	assert.True(t, r.connAt(models.SeatYou).Synthetic())
}

func TestResumeReclaimsSeat(t *testing.T) {
	r, _ := setupTestRoom(t, models.ModeTresillo, nil)
	conn, _ := joinHuman(t, r, models.ModeTresillo)
	id := conn.ID
	r.Detach(conn)

	sink := &mockSink{}
	back := r.Attach(sink, AttachOptions{ClientID: id})
	require.NotNil(t, back)
	w := sink.last(MsgWelcome)
	require.NotNil(t, w)
	assert.True(t, w.Resumed)
	assert.Equal(t, id, w.ClientID)
	assert.Equal(t, models.SeatYou, back.Seat)
	assert.False(t, r.connAt(models.SeatYou).Synthetic())
	assert.Len(t, sink.last(MsgState).SelfHand, 9)
}

func TestPanicIsReportedToSender(t *testing.T) {
	r, _ := setupTestRoom(t, models.ModeTresillo, nil)
	conn, sink := joinHuman(t, r, models.ModeTresillo)
	setupPlay(t, r, models.ContractEntrada, models.Oros, models.SeatRight, map[models.Seat][]models.Card{
		models.SeatYou: {cardOf(models.Copas, 3)},
	})
	require.Equal(t, models.SeatYou, r.state.Turn)
	r.state.HandsCount = nil // corrupt on purpose

	assert.NotPanics(t, func() {
		r.Handle(conn, models.Action{Type: models.ActionPlay, CardID: cardOf(models.Copas, 3).ID})
	})
	e := sink.last(MsgError)
	require.NotNil(t, e)
	assert.Equal(t, CodeInternal, e.Code)

	r.Handle(conn, models.Action{Type: models.ActionPing})
	assert.NotNil(t, sink.last(MsgPong), "the room keeps serving")
}

func TestCloseNotifiesClients(t *testing.T) {
	r, clock := setupTestRoom(t, models.ModeTresillo, nil)
	_, sink := joinHuman(t, r, models.ModeTresillo)

	r.Close()
	assert.Len(t, sink.events(EventRoomClosing), 1)
	assert.True(t, sink.closed)
	assert.Empty(t, clock.pending())
	assert.Nil(t, r.Attach(&mockSink{}, AttachOptions{}))
}

// TestBotsPlayFullGames drives rooms purely by the turn clock and checks the
// invariants that must hold after every step.
func TestBotsPlayFullGames(t *testing.T) {
	for _, mode := range []models.Mode{models.ModeTresillo, models.ModeQuadrille} {
		t.Run(string(mode), func(t *testing.T) {
			rules := DefaultHouseRules()
			rules.GameTarget = 4
			r, clock := setupTestRoom(t, mode, &rules)
			_, sink := joinHuman(t, r, mode)

			games := 0
			for i := 0; i < 20000 && games < 2; i++ {
				require.LessOrEqual(t, len(clock.pending()), 1, "at most one timer is pending")
				require.True(t, clock.fire(), "the room stalled in %s", r.state.Phase)
				requirePartition(t, r)
				if r.state.Turn != "" {
					require.Contains(t, r.activeSeats(), r.state.Turn)
				}
				if r.state.Phase == PhaseEnd {
					games++
				}
			}
			require.Equal(t, 2, games)

			states := sink.ofType(MsgState)
			for i := 1; i < len(states); i++ {
				prev, cur := states[i-1].Patch, states[i].Patch
				assert.Equal(t, prev.Seq+1, cur.Seq)
				for _, s := range models.Seats {
					if cur.Scores[s] < prev.Scores[s] {
						assert.Equal(t, PhaseEnd, prev.Phase, "scores only reset after a game ends")
					}
				}
				if cur.Phase != PhaseEnd {
					for _, s := range models.Seats {
						assert.Less(t, cur.Scores[s], rules.GameTarget)
					}
				}
			}
		})
	}
}
