// internal/handlers/room_ws_test.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/tresillo/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialRoom(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.CloseNow() })
	return c
}

func send(t *testing.T, c *websocket.Conn, frame string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(frame)))
}

// readUntil reads messages until one matches, failing after five seconds.
func readUntil(t *testing.T, c *websocket.Conn, match func(game.Message) bool) game.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, data, err := c.Read(ctx)
		require.NoError(t, err)
		var msg game.Message
		require.NoError(t, json.Unmarshal(data, &msg))
		if match(msg) {
			return msg
		}
	}
}

func ofType(typ string) func(game.Message) bool {
	return func(m game.Message) bool { return m.Type == typ }
}

func dealtState(m game.Message) bool {
	return m.Type == game.MsgState && len(m.SelfHand) > 0
}

func TestRoomWSJoinAndPlayProtocol(t *testing.T) {
	srv := newTestServer(t, nil)
	ts := httptest.NewServer(NewRouter(srv))
	defer ts.Close()

	c := dialRoom(t, ts, "?name=ana")
	welcome := readUntil(t, c, ofType(game.MsgWelcome))
	assert.NotEmpty(t, welcome.ClientID)
	assert.Equal(t, game.DefaultRoomID, welcome.RoomID)
	assert.False(t, welcome.Resumed)
	assert.NotEmpty(t, welcome.ResumeToken)

	// the attach sync carries the lobby state
	lobbyState := readUntil(t, c, ofType(game.MsgState))
	require.NotNil(t, lobbyState.Patch)
	assert.Equal(t, game.PhaseLobby, lobbyState.Patch.Phase)

	send(t, c, `{"type":"JOIN","mode":"tresillo"}`)
	state := readUntil(t, c, dealtState)
	assert.Len(t, state.SelfHand, 9)
	assert.Equal(t, game.PhaseAuction, state.Patch.Phase)

	send(t, c, `{"type":`)
	msg := readUntil(t, c, ofType(game.MsgError))
	assert.Equal(t, game.CodeInvalidJSON, msg.Code)

	send(t, c, `{"type":"BID","value":"everything"}`)
	msg = readUntil(t, c, ofType(game.MsgError))
	assert.Equal(t, game.CodeInvalidMessage, msg.Code)

	send(t, c, `{"type":"PING"}`)
	readUntil(t, c, ofType(game.MsgPong))

	assert.Equal(t, 1, srv.Rooms.Connections())
}

func TestRoomWSResumeReclaimsSeat(t *testing.T) {
	srv := newTestServer(t, nil)
	ts := httptest.NewServer(NewRouter(srv))
	defer ts.Close()

	c := dialRoom(t, ts, "")
	welcome := readUntil(t, c, ofType(game.MsgWelcome))
	send(t, c, `{"type":"JOIN","mode":"tresillo"}`)
	first := readUntil(t, c, dealtState)
	require.NoError(t, c.Close(websocket.StatusNormalClosure, "bye"))

	require.Eventually(t, func() bool { return srv.Rooms.Connections() == 0 }, 5*time.Second, 10*time.Millisecond)

	c = dialRoom(t, ts, "?resume="+welcome.ResumeToken)
	again := readUntil(t, c, ofType(game.MsgWelcome))
	assert.True(t, again.Resumed)
	assert.Equal(t, welcome.ClientID, again.ClientID)

	state := readUntil(t, c, dealtState)
	assert.ElementsMatch(t, first.SelfHand, state.SelfHand)
}

func TestRoomWSBadResumeTokenStartsFresh(t *testing.T) {
	srv := newTestServer(t, nil)
	ts := httptest.NewServer(NewRouter(srv))
	defer ts.Close()

	c := dialRoom(t, ts, "?resume=garbage")
	welcome := readUntil(t, c, ofType(game.MsgWelcome))
	assert.False(t, welcome.Resumed)
	assert.NotEmpty(t, welcome.ClientID)
}

func TestRoomWSUnknownRoom(t *testing.T) {
	srv := newTestServer(t, nil)
	ts := httptest.NewServer(NewRouter(srv))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/ws?room=nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRoomWSClosedWithRoom(t *testing.T) {
	srv := newTestServer(t, nil)
	ts := httptest.NewServer(NewRouter(srv))
	defer ts.Close()

	room := srv.Rooms.Create("", game.HouseRules{})
	c := dialRoom(t, ts, "?room="+room.ID)
	readUntil(t, c, ofType(game.MsgWelcome))

	srv.Rooms.Delete(room.ID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, _, err := c.Read(ctx)
		if err != nil {
			assert.Equal(t, RoomClosingCode, websocket.CloseStatus(err))
			return
		}
	}
}

func TestWSSinkSlowConsumer(t *testing.T) {
	s := newWSSink()
	for i := 0; i < sendBuffer; i++ {
		require.NoError(t, s.Send(game.PongMessage()))
	}
	assert.ErrorIs(t, s.Send(game.PongMessage()), errSlowConsumer)
	assert.Equal(t, SlowConsumerCode, s.code)

	// later sends and closes are no-ops
	assert.Error(t, s.Send(game.PongMessage()))
	require.NoError(t, s.Close("room closing"))
	assert.Equal(t, SlowConsumerCode, s.code)
}

func TestRoomWSCapsConnectionsPerIP(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.Config.MaxConnsPerIP = 2
	ts := httptest.NewServer(NewRouter(srv))
	defer ts.Close()

	first := dialRoom(t, ts, "")
	readUntil(t, first, ofType(game.MsgWelcome))
	second := dialRoom(t, ts, "")
	readUntil(t, second, ofType(game.MsgWelcome))

	third := dialRoom(t, ts, "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err := third.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
	assert.Equal(t, 2, srv.Rooms.Connections())

	// a closed socket frees its slot
	require.NoError(t, first.Close(websocket.StatusNormalClosure, "bye"))
	require.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
		c, _, err := websocket.Dial(ctx, url, nil)
		if err != nil {
			return false
		}
		defer c.CloseNow()
		_, data, err := c.Read(ctx)
		if err != nil {
			return false
		}
		var msg game.Message
		return json.Unmarshal(data, &msg) == nil && msg.Type == game.MsgWelcome
	}, 5*time.Second, 20*time.Millisecond)
}

func TestRoomWSThrottlesFrames(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.Config.FramesPerSec = 20
	srv.Config.FrameBurst = 1
	ts := httptest.NewServer(NewRouter(srv))
	defer ts.Close()

	c := dialRoom(t, ts, "")
	readUntil(t, c, ofType(game.MsgWelcome))

	start := time.Now()
	for i := 0; i < 6; i++ {
		send(t, c, `{"type":"PING"}`)
	}
	for i := 0; i < 6; i++ {
		readUntil(t, c, ofType(game.MsgPong))
	}
	// one frame from the burst, then one every 50ms
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}

func TestIPCounter(t *testing.T) {
	c := newIPCounter(1)
	assert.True(t, c.acquire("10.0.0.1"))
	assert.False(t, c.acquire("10.0.0.1"))
	assert.True(t, c.acquire("10.0.0.2"))
	c.release("10.0.0.1")
	assert.True(t, c.acquire("10.0.0.1"))

	unlimited := newIPCounter(0)
	for i := 0; i < 500; i++ {
		require.True(t, unlimited.acquire("10.0.0.1"))
	}
}
